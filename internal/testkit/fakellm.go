// Package testkit provides hand-rolled service fakes for engine and
// orchestrator tests, mirroring the teacher's habit of fake AgentServices
// implementations rather than mocking frameworks.
package testkit

import "github.com/localflow/core/llm"

// FakeLLM is llm.FakeProvider under the name engine/orchestrator tests use;
// kept as an alias so there is exactly one scripted-fake implementation.
type FakeLLM = llm.FakeProvider

// NewFakeLLM constructs an empty FakeLLM; chain WithResponse to script it.
func NewFakeLLM() *FakeLLM {
	return llm.NewFakeProvider()
}
