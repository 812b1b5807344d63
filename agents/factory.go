package agents

import (
	"fmt"

	"github.com/nhcloud/agentframework-workshop-sub001/agent"
	"github.com/nhcloud/agentframework-workshop-sub001/internal/provider"
)

// Def describes one agent in configuration
type Def struct {
	Name         string  `yaml:"name"`
	Type         string  `yaml:"type"`
	Provider     string  `yaml:"provider"`
	Model        string  `yaml:"model"`
	Instructions string  `yaml:"instructions"`
	Temperature  float64 `yaml:"temperature"`
	MaxTokens    int     `yaml:"max_tokens"`
}

// Defaults returns the built-in workshop agents. They are used when the
// config file defines no agents of its own.
func Defaults(providerName string) []Def {
	return []Def{
		{
			Name:         "generic_agent",
			Type:         "generic",
			Provider:     providerName,
			Instructions: GenericInstructions,
		},
		{
			Name:         "people_lookup",
			Type:         "specialist",
			Provider:     providerName,
			Instructions: PeopleLookupInstructions,
		},
		{
			Name:         "knowledge_finder",
			Type:         "specialist",
			Provider:     providerName,
			Instructions: KnowledgeFinderInstructions,
		},
	}
}

// New builds a single agent from its definition. providers maps provider
// names to initialized backends.
func New(def Def, providers map[string]provider.Provider) (agent.Agent, error) {
	if def.Name == "" {
		return nil, fmt.Errorf("agent definition missing name")
	}

	if def.Type == "echo" {
		return NewEchoAgent(def.Name), nil
	}

	p, ok := providers[def.Provider]
	if !ok {
		return nil, fmt.Errorf("agent %s: provider '%s' not configured", def.Name, def.Provider)
	}

	agentType := def.Type
	if agentType == "" {
		agentType = "generic"
	}

	var opts []LLMOption
	if def.Model != "" {
		opts = append(opts, WithModel(def.Model))
	}
	if def.Temperature > 0 {
		opts = append(opts, WithTemperature(def.Temperature))
	}
	if def.MaxTokens > 0 {
		opts = append(opts, WithMaxTokens(def.MaxTokens))
	}

	return NewLLMAgent(def.Name, agentType, def.Instructions, p, opts...), nil
}

// BuildAll builds and registers every defined agent
func BuildAll(defs []Def, providers map[string]provider.Provider, registry agent.Registry) error {
	for _, def := range defs {
		a, err := New(def, providers)
		if err != nil {
			return err
		}
		if err := registry.Register(a); err != nil {
			return fmt.Errorf("registering agent %s: %w", def.Name, err)
		}
	}
	return nil
}
