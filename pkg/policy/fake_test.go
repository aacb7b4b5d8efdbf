package policy

import (
	"context"
	"sync"
	"time"

	"mercator-hq/arbiter/pkg/apperrors"
)

type fakeStore struct {
	mu         sync.Mutex
	policies   map[string][]Policy
	listErr    error
	replaceErr error
	panicOn    bool
}

func newFakeStore(policies ...Policy) *fakeStore {
	s := &fakeStore{policies: make(map[string][]Policy)}
	for _, p := range policies {
		s.policies[p.TenantID] = append(s.policies[p.TenantID], p)
	}
	return s
}

func (s *fakeStore) ListPoliciesByTenant(ctx context.Context, tenantID string) ([]Policy, error) {
	if s.panicOn {
		panic("corrupt row")
	}
	if s.listErr != nil {
		return nil, s.listErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Policy, len(s.policies[tenantID]))
	copy(out, s.policies[tenantID])
	return out, nil
}

func (s *fakeStore) ReplacePolicies(ctx context.Context, tenantID string, policies []Policy) error {
	if s.replaceErr != nil {
		return s.replaceErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.policies[tenantID] = append([]Policy(nil), policies...)
	return nil
}

type recordedDecision struct {
	effect, path string
}

type fakeRecorder struct {
	mu        sync.Mutex
	decisions []recordedDecision
	imports   map[string]int
}

func (r *fakeRecorder) RecordDecision(effect, path string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.decisions = append(r.decisions, recordedDecision{effect, path})
}

func (r *fakeRecorder) RecordPolicyImport(status string, _ int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.imports == nil {
		r.imports = make(map[string]int)
	}
	r.imports[status]++
}

var errStoreDown = apperrors.NewStoreError("sqlite", "list_policies", context.DeadlineExceeded)
