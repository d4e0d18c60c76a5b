package deals

import (
	"context"
	"sync"

	"github.com/odyssey-erp/commissiondesk/internal/backend"
	"github.com/odyssey-erp/commissiondesk/internal/shared"
	"github.com/odyssey-erp/commissiondesk/internal/statusdir"
)

type statusCall struct {
	dealID   backend.ID
	statusID backend.ID
}

type fakeBackend struct {
	mu           sync.Mutex
	deals        map[backend.ID]backend.Deal
	statusCalls  []statusCall
	patches      []backend.DealPatch
	compliance   []backend.ID
	listFilters  []backend.DealFilters
	getErr       error
	statusErr    error
	complianceTo backend.ID
	mismatch     backend.ID
}

func newFakeBackend(deals ...backend.Deal) *fakeBackend {
	fb := &fakeBackend{deals: map[backend.ID]backend.Deal{}}
	for _, d := range deals {
		fb.deals[d.ID] = d
	}
	return fb
}

func (f *fakeBackend) GetDealByID(ctx context.Context, id backend.ID) (backend.Deal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return backend.Deal{}, f.getErr
	}
	if f.mismatch != "" {
		return backend.Deal{ID: f.mismatch}, nil
	}
	d, ok := f.deals[id]
	if !ok {
		return backend.Deal{}, &backend.APIError{Status: 404, Message: "Deal not found"}
	}
	return d, nil
}

func (f *fakeBackend) GetDeals(ctx context.Context, filters backend.DealFilters, page, pageSize int) (backend.DealPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listFilters = append(f.listFilters, filters)
	out := backend.DealPage{}
	for _, d := range f.deals {
		out.Data = append(out.Data, d)
	}
	out.Total = len(out.Data)
	return out, nil
}

func (f *fakeBackend) UpdateDealStatus(ctx context.Context, dealID, statusID backend.ID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.statusErr != nil {
		return f.statusErr
	}
	f.statusCalls = append(f.statusCalls, statusCall{dealID: dealID, statusID: statusID})
	d := f.deals[dealID]
	d.StatusID = statusID
	d.Status = nil
	f.deals[dealID] = d
	return nil
}

func (f *fakeBackend) UpdateDeal(ctx context.Context, dealID backend.ID, patch backend.DealPatch) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.patches = append(f.patches, patch)
	return nil
}

func (f *fakeBackend) CompleteCompliance(ctx context.Context, dealID backend.ID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.compliance = append(f.compliance, dealID)
	if f.complianceTo != "" {
		d := f.deals[dealID]
		d.StatusID = f.complianceTo
		f.deals[dealID] = d
	}
	return nil
}

type stubDirectories struct {
	dir *statusdir.Directory
	err error
}

func (s stubDirectories) Get(ctx context.Context, session string) (*statusdir.Directory, error) {
	return s.dir, s.err
}

type transitionLog struct {
	mu       sync.Mutex
	outcomes map[string]int
}

func (l *transitionLog) ObserveTransition(action, outcome string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.outcomes == nil {
		l.outcomes = map[string]int{}
	}
	l.outcomes[action+"/"+outcome]++
}

func fullDirectory() *statusdir.Directory {
	return statusdir.New([]backend.Status{
		{ID: "st-submitted", Name: "Submitted"},
		{ID: "st-review", Name: "Finance Review"},
		{ID: "st-fin-ok", Name: "Finance Approve"},
		{ID: "st-ceo-ok", Name: "CEO Approved"},
		{ID: "st-ceo-no", Name: "CEO Rejected"},
	})
}

func as(role shared.Role) context.Context {
	return withRole(context.Background(), role)
}

func withRole(ctx context.Context, role shared.Role) context.Context {
	return shared.ContextWithPrincipal(ctx, shared.Principal{
		SessionID: "sess-1",
		UserID:    "user-7",
		Role:      role,
	})
}
