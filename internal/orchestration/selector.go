// Package orchestration implements the core engine: mode selection,
// fan-out/fan-in execution, sequential hand-off, hybrid refinement, and
// termination detection.
package orchestration

import (
	"strings"

	"github.com/nhcloud/agentframework-workshop-sub001/chat"
)

// Keyword tables for mode selection. Plain substring containment against the
// lower-cased message; parallel signals are checked first.
var (
	parallelSignals = []string{
		"compare", "pros", "cons", "alternatives", "options",
		"summarize", "overview", "analyze", "research",
	}

	sequentialSignals = []string{
		"then", "step", "first", "next", "after",
		"pipeline", "compose", "draft", "send",
	}
)

// SelectMode picks the orchestration mode for a message and candidate list.
// Pure function: with 0 or 1 candidates the answer is always Single; any
// parallel signal wins over a sequential signal; with no signal the candidate
// count decides (3 or more means Parallel, otherwise Hybrid).
func SelectMode(message string, agents []string) chat.Mode {
	if len(agents) <= 1 {
		return chat.ModeSingle
	}

	lower := strings.ToLower(message)

	if containsAny(lower, parallelSignals) {
		return chat.ModeParallel
	}
	if containsAny(lower, sequentialSignals) {
		return chat.ModeSequential
	}

	if len(agents) >= 3 {
		return chat.ModeParallel
	}
	return chat.ModeHybrid
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
