package memory

import "context"

// MockService is a scriptable MemoryService for handler and wiring tests.
// Unset functions return zero values.
type MockService struct {
	StatusFn      func(ctx context.Context, userID int32) (*Status, error)
	ConsolidateFn func(ctx context.Context, userID int32, threadID string, limit int, force bool) (*ConsolidationReport, error)
	SearchFn      func(ctx context.Context, userID int32, query string, limit int) ([]*ConceptMatch, error)
	MaintainFn    func(ctx context.Context, userID *int32, hard bool) (*MaintenanceReport, error)
}

var _ MemoryService = (*MockService)(nil)

func (m *MockService) Status(ctx context.Context, userID int32) (*Status, error) {
	if m.StatusFn == nil {
		return &Status{}, nil
	}
	return m.StatusFn(ctx, userID)
}

func (m *MockService) Consolidate(ctx context.Context, userID int32, threadID string, limit int, force bool) (*ConsolidationReport, error) {
	if m.ConsolidateFn == nil {
		return &ConsolidationReport{}, nil
	}
	return m.ConsolidateFn(ctx, userID, threadID, limit, force)
}

func (m *MockService) SearchConcepts(ctx context.Context, userID int32, query string, limit int) ([]*ConceptMatch, error) {
	if m.SearchFn == nil {
		return []*ConceptMatch{}, nil
	}
	return m.SearchFn(ctx, userID, query, limit)
}

func (m *MockService) Maintain(ctx context.Context, userID *int32, hard bool) (*MaintenanceReport, error) {
	if m.MaintainFn == nil {
		return &MaintenanceReport{}, nil
	}
	return m.MaintainFn(ctx, userID, hard)
}
