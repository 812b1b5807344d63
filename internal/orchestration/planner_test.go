package orchestration

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPlanOrderPeopleSpecialistFirst(t *testing.T) {
	p := NewPlanner("", "", "")

	order := p.PlanOrder(
		[]string{"generic_agent", "knowledge_finder", "people_lookup"},
		"who is the contact for payroll?",
	)

	assert.Equal(t, []string{"people_lookup", "knowledge_finder", "generic_agent"}, order)
}

func TestPlanOrderKnowledgeSpecialistFirst(t *testing.T) {
	p := NewPlanner("", "", "")

	order := p.PlanOrder(
		[]string{"generic_agent", "people_lookup", "knowledge_finder"},
		"find the travel policy document",
	)

	assert.Equal(t, []string{"knowledge_finder", "people_lookup", "generic_agent"}, order)
}

func TestPlanOrderPeopleTriggersWinOverKnowledge(t *testing.T) {
	p := NewPlanner("", "", "")

	order := p.PlanOrder(
		[]string{"knowledge_finder", "people_lookup"},
		"who wrote the policy?",
	)

	assert.Equal(t, "people_lookup", order[0])
}

func TestPlanOrderGenericAlwaysLast(t *testing.T) {
	p := NewPlanner("", "", "")

	order := p.PlanOrder(
		[]string{"generic_agent", "a", "b"},
		"no triggers here",
	)

	assert.Equal(t, []string{"a", "b", "generic_agent"}, order)
}

func TestPlanOrderSpecialistAbsent(t *testing.T) {
	p := NewPlanner("", "", "")

	order := p.PlanOrder(
		[]string{"a", "b"},
		"who is on call?",
	)

	assert.Equal(t, []string{"a", "b"}, order)
}

func TestPlanOrderIsPermutation(t *testing.T) {
	p := NewPlanner("", "", "")

	inputs := [][]string{
		{},
		{"generic_agent"},
		{"people_lookup"},
		{"a"},
		{"a", "b", "c", "d"},
		{"generic_agent", "people_lookup", "knowledge_finder", "extra"},
	}
	messages := []string{"", "who", "find the document", "hello then goodbye"}

	for _, agents := range inputs {
		for _, msg := range messages {
			order := p.PlanOrder(agents, msg)
			assert.ElementsMatch(t, agents, order, "agents=%v msg=%q", agents, msg)
		}
	}
}

func TestPlanOrderCustomIdentifiers(t *testing.T) {
	p := NewPlanner("hr_bot", "docs_bot", "assistant")

	order := p.PlanOrder(
		[]string{"assistant", "docs_bot", "hr_bot"},
		"how do I reach the HR team?",
	)

	assert.Equal(t, []string{"hr_bot", "docs_bot", "assistant"}, order)
}
