package mcp

import (
	"sync"

	"github.com/intrusive-memory/app-store-connect-mcp-server/src/diagnostics"
)

// ResultStore holds failure-details results for drill-down. A deep-dive
// can be large; storing it lets get_failed_action_details answer from
// the cached result instead of refetching the whole fan-out.
type ResultStore interface {
	// Store saves a failure-details result for a request.
	Store(requestID string, result *diagnostics.FailureDetailsResult)
	// Action retrieves a single failed action from a stored result.
	Action(requestID, actionID string) (diagnostics.FailedAction, bool)
}

// InMemoryStore is a thread-safe in-memory implementation of ResultStore.
type InMemoryStore struct {
	mu      sync.RWMutex
	results map[string]*diagnostics.FailureDetailsResult
	actions map[string]map[string]diagnostics.FailedAction
}

// NewInMemoryStore creates a new in-memory result store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		results: make(map[string]*diagnostics.FailureDetailsResult),
		actions: make(map[string]map[string]diagnostics.FailedAction),
	}
}

// Store saves a result, indexed by action ID for drill-down.
func (s *InMemoryStore) Store(requestID string, result *diagnostics.FailureDetailsResult) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.results[requestID] = result

	actionMap := make(map[string]diagnostics.FailedAction, len(result.FailedActions))
	for _, action := range result.FailedActions {
		actionMap[action.ID] = action
	}
	s.actions[requestID] = actionMap
}

// Action retrieves one failed action from a stored result.
func (s *InMemoryStore) Action(requestID, actionID string) (diagnostics.FailedAction, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if actionMap, ok := s.actions[requestID]; ok {
		action, found := actionMap[actionID]
		return action, found
	}
	return diagnostics.FailedAction{}, false
}
