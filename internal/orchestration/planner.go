package orchestration

import "strings"

// Default agent identifiers for planning.
const (
	DefaultPeopleAgent    = "people_lookup"
	DefaultKnowledgeAgent = "knowledge_finder"
	DefaultGenericAgent   = "generic_agent"
)

// Specialist trigger tables. People triggers are checked before knowledge
// triggers.
var (
	peopleTriggers    = []string{"who", "contact", "email", "reach"}
	knowledgeTriggers = []string{"policy", "document", "find", "search"}
)

// Planner orders agents for sequential hand-off execution. At most one
// specialist is moved to the front by keyword affinity; the generic agent
// always goes last.
type Planner struct {
	peopleAgent    string
	knowledgeAgent string
	genericAgent   string
}

// NewPlanner creates a planner. Empty identifiers fall back to the built-in
// workshop agent names.
func NewPlanner(peopleAgent, knowledgeAgent, genericAgent string) *Planner {
	if peopleAgent == "" {
		peopleAgent = DefaultPeopleAgent
	}
	if knowledgeAgent == "" {
		knowledgeAgent = DefaultKnowledgeAgent
	}
	if genericAgent == "" {
		genericAgent = DefaultGenericAgent
	}
	return &Planner{
		peopleAgent:    peopleAgent,
		knowledgeAgent: knowledgeAgent,
		genericAgent:   genericAgent,
	}
}

// GenericAgent returns the designated generic/fallback agent identifier.
func (p *Planner) GenericAgent() string {
	return p.genericAgent
}

// PlanOrder returns a permutation of agents: a keyword-matched specialist
// first (if present), the remaining agents in their original relative order,
// and the generic agent last. Every input agent appears exactly once.
func (p *Planner) PlanOrder(agents []string, message string) []string {
	lower := strings.ToLower(message)

	specialist := ""
	if containsAny(lower, peopleTriggers) {
		specialist = p.peopleAgent
	} else if containsAny(lower, knowledgeTriggers) {
		specialist = p.knowledgeAgent
	}

	present := make(map[string]bool, len(agents))
	for _, a := range agents {
		present[a] = true
	}

	order := make([]string, 0, len(agents))
	placed := make(map[string]bool, len(agents))

	if specialist != "" && present[specialist] {
		order = append(order, specialist)
		placed[specialist] = true
	}

	for _, a := range agents {
		if placed[a] || a == p.genericAgent {
			continue
		}
		order = append(order, a)
		placed[a] = true
	}

	if present[p.genericAgent] && !placed[p.genericAgent] {
		order = append(order, p.genericAgent)
		placed[p.genericAgent] = true
	}

	// Defensive completeness: anything not yet placed keeps its input slot.
	for _, a := range agents {
		if !placed[a] {
			order = append(order, a)
			placed[a] = true
		}
	}

	return order
}
