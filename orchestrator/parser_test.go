package orchestrator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// Scenario 4 (spec §8): parser first-action-wins.
func TestParseResponse_FirstActionWins(t *testing.T) {
	resp := "THOUGHT: hmm\nACTION: calculator\nINPUT: {\"expression\":\"2+2\"}\nACTION: datetime\nINPUT: {}"
	p := parseResponse(resp)
	assert.Equal(t, "calculator", p.action)
	assert.Equal(t, map[string]any{"expression": "2+2"}, p.input)
	assert.True(t, p.foundAction)
}

func TestParseResponse_DoneHonoredOnlyWithoutAction(t *testing.T) {
	p := parseResponse("THOUGHT: all set\nDONE: the answer is 42")
	assert.False(t, p.foundAction)
	assert.True(t, p.foundDone)
	assert.Equal(t, "the answer is 42", p.done)
}

func TestParseResponse_PlainTextBecomesThought(t *testing.T) {
	p := parseResponse("just thinking out loud, nothing structured")
	assert.Equal(t, "just thinking out loud, nothing structured", p.thought)
	assert.False(t, p.foundAction)
	assert.False(t, p.foundDone)
}

func TestParseInputTolerant_StrictJSON(t *testing.T) {
	m := parseInputTolerant(`{"a": 1, "b": "two"}`)
	assert.Equal(t, float64(1), m["a"])
	assert.Equal(t, "two", m["b"])
}

func TestParseInputTolerant_SingleQuotesAndBareKeys(t *testing.T) {
	m := parseInputTolerant(`{a: 'one', b: 'two'}`)
	assert.Equal(t, "one", m["a"])
	assert.Equal(t, "two", m["b"])
}

func TestParseInputTolerant_TrailingComma(t *testing.T) {
	m := parseInputTolerant(`{"a": "one", "b": "two",}`)
	assert.Equal(t, "one", m["a"])
	assert.Equal(t, "two", m["b"])
}

func TestParseInputTolerant_KeyValueFallback(t *testing.T) {
	m := parseInputTolerant(`expression=2+2, note=thanks`)
	assert.Equal(t, "2+2", m["expression"])
	assert.Equal(t, "thanks", m["note"])
}

func TestParseInputTolerant_RawFallback(t *testing.T) {
	m := parseInputTolerant(`totally unstructured`)
	assert.Equal(t, "totally unstructured", m["raw"])
}
