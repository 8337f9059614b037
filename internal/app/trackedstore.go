package app

import (
	"github.com/localflow/core/store"
	"github.com/localflow/core/workflowtool"
)

// trackedStore wraps a store.WorkflowStore so every Save/Rename/Duplicate/
// Delete keeps the workflow-as-tool adapter's registrations current (spec
// §5.7), the same embed-and-override idiom llm.SerializingProvider uses to
// wrap a Provider.
type trackedStore struct {
	store.WorkflowStore
	adapter *workflowtool.Adapter
}

func (s *trackedStore) Save(name string, nodes, edges []any, description, existingID string) (*store.SavedWorkflow, error) {
	wf, err := s.WorkflowStore.Save(name, nodes, edges, description, existingID)
	if err != nil {
		return nil, err
	}
	s.adapter.Register(wf)
	return wf, nil
}

func (s *trackedStore) Rename(id, name string) (*store.SavedWorkflow, bool, error) {
	wf, ok, err := s.WorkflowStore.Rename(id, name)
	if err == nil && ok {
		s.adapter.Register(wf)
	}
	return wf, ok, err
}

func (s *trackedStore) Duplicate(id, name string) (*store.SavedWorkflow, bool, error) {
	wf, ok, err := s.WorkflowStore.Duplicate(id, name)
	if err == nil && ok {
		s.adapter.Register(wf)
	}
	return wf, ok, err
}

func (s *trackedStore) Delete(id string) error {
	if err := s.WorkflowStore.Delete(id); err != nil {
		return err
	}
	s.adapter.Unregister(id)
	return nil
}
