package orchestrator

import (
	"fmt"
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// SPEC_FULL §5.3's token-budget trimming: after each step is appended,
// step memory is rendered to text and measured against the configured
// context budget; if it exceeds the budget, the oldest steps are dropped
// from mem.Steps first (never the current task or the most recent step).
// This never changes status/final_result semantics. It bounds the step
// memory the run records and returns; the persistent session's own
// transcript, which is what the LLM is prompted with, is not shortened.

var (
	encOnce sync.Once
	enc     *tiktoken.Tiktoken
	encErr  error
)

func encoder() (*tiktoken.Tiktoken, error) {
	encOnce.Do(func() {
		enc, encErr = tiktoken.GetEncoding("cl100k_base")
	})
	return enc, encErr
}

// countTokens measures s with the cl100k_base encoding tiktoken-go ships,
// falling back to a rough 4-characters-per-token estimate if the encoding
// tables failed to load (e.g. no network access to fetch the BPE ranks).
func countTokens(s string) int {
	e, err := encoder()
	if err != nil || e == nil {
		return len(s) / 4
	}
	return len(e.Encode(s, nil, nil))
}

// renderStep renders one step the way it would appear in the transcript
// sent back to the LLM (a RESULT:/ERROR: line plus the thought/action that
// preceded it), for token counting and for trimming.
func renderStep(s Step) string {
	var b strings.Builder
	if s.Thought != "" {
		fmt.Fprintf(&b, "THOUGHT: %s\n", s.Thought)
	}
	if s.Action != "" {
		fmt.Fprintf(&b, "ACTION: %s\nINPUT: %v\n", s.Action, s.Input)
	}
	if s.Result != nil {
		fmt.Fprintf(&b, "RESULT: %v\n", s.Result)
	}
	return b.String()
}

// trimToTokenBudget returns the slice of mem.Steps that fits within
// maxTokens when rendered, dropping the oldest steps first. maxTokens <= 0
// disables trimming. The current task and the single most recent step are
// never dropped.
func trimToTokenBudget(mem *Memory, maxTokens int) []Step {
	if maxTokens <= 0 || len(mem.Steps) == 0 {
		return mem.Steps
	}

	taskTokens := countTokens(fmt.Sprintf("Task: %s", mem.Task))
	kept := make([]Step, len(mem.Steps))
	copy(kept, mem.Steps)

	total := taskTokens
	rendered := make([]string, len(kept))
	for i, s := range kept {
		rendered[i] = renderStep(s)
		total += countTokens(rendered[i])
	}

	for total > maxTokens && len(kept) > 1 {
		total -= countTokens(rendered[0])
		kept = kept[1:]
		rendered = rendered[1:]
	}

	return kept
}
