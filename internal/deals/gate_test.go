package deals

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/commissiondesk/internal/backend"
	"github.com/odyssey-erp/commissiondesk/internal/shared"
	"github.com/odyssey-erp/commissiondesk/internal/statusdir"
)

func TestCEOActionsHiddenOnceApprovedByID(t *testing.T) {
	dir := statusdir.New([]backend.Status{{ID: "s1", Name: "CEO Approved"}})
	deal := backend.Deal{ID: "d1", StatusID: "s1"}

	p := Evaluate(deal, dir, shared.RoleCEO, SurfaceDetail)
	assert.Equal(t, StageCEOApproved, p.Stage)
	assert.False(t, p.ShowCEOActions())
}

func TestCEOActionsHiddenByNameWhenDirectoryEmpty(t *testing.T) {
	deal := backend.Deal{ID: "d1", StatusID: "s1", Status: &backend.StatusRef{ID: "s1", Name: "  ceo APPROVED "}}

	p := Evaluate(deal, statusdir.New(nil), shared.RoleCEO, SurfaceDetail)
	assert.False(t, p.ShowCEOActions())
}

func TestCEOActionsHiddenForNameOnlyDeal(t *testing.T) {
	deal := backend.Deal{ID: "d1", Status: &backend.StatusRef{Name: "CEO Approved"}}

	p := Evaluate(deal, fullDirectory(), shared.RoleCEO, SurfaceDetail)
	assert.Equal(t, StageCEOApproved, p.Stage)
	assert.False(t, p.ShowCEOActions())
}

func TestCEOActionsHiddenAfterRejection(t *testing.T) {
	deal := backend.Deal{ID: "d1", StatusID: "st-ceo-no"}

	p := Evaluate(deal, fullDirectory(), shared.RoleCEO, SurfaceDetail)
	assert.Equal(t, StageCEORejected, p.Stage)
	assert.False(t, p.Allows(ActionApprove))
	assert.False(t, p.Allows(ActionReject))
}

func TestCEOActionsShownForUndecidedDeal(t *testing.T) {
	deal := backend.Deal{ID: "d1", StatusID: "st-review"}

	p := Evaluate(deal, fullDirectory(), shared.RoleCEO, SurfaceDetail)
	assert.True(t, p.ShowCEOActions())
}

func TestCEONameFallbackIsExact(t *testing.T) {
	// "pending ceo approved" would match a containment rule but not the CEO rule.
	deal := backend.Deal{ID: "d1", Status: &backend.StatusRef{Name: "Pending CEO Approved"}}

	p := Evaluate(deal, statusdir.New(nil), shared.RoleCEO, SurfaceDetail)
	assert.True(t, p.ShowCEOActions())
}

func TestFinanceStages(t *testing.T) {
	dir := fullDirectory()
	cases := []struct {
		status  backend.ID
		stage   Stage
		allowed []Action
		denied  []Action
	}{
		{"st-submitted", StageOpen, []Action{ActionApproveOverview, ActionEditOverview}, []Action{ActionFinalApproval, ActionCollect, ActionTransfer}},
		{"st-review", StageFinanceReview, []Action{ActionFinalApproval, ActionEditOverview, ActionCollect, ActionTransfer}, []Action{ActionApproveOverview}},
		{"st-fin-ok", StageFinanceApproved, []Action{ActionEditOverview, ActionCollect}, []Action{ActionApproveOverview, ActionFinalApproval}},
		{"st-ceo-no", StageCEORejected, []Action{ActionEditOverview}, []Action{ActionCollect, ActionFinalApproval}},
	}
	for _, tc := range cases {
		t.Run(string(tc.stage), func(t *testing.T) {
			p := Evaluate(backend.Deal{ID: "d1", StatusID: tc.status}, dir, shared.RoleFinance, SurfaceDetail)
			require.Equal(t, tc.stage, p.Stage)
			for _, a := range tc.allowed {
				assert.True(t, p.Allows(a), "expected %s", a)
			}
			for _, a := range tc.denied {
				assert.False(t, p.Allows(a), "unexpected %s", a)
			}
		})
	}
}

func TestFinanceSubstringMatching(t *testing.T) {
	deal := backend.Deal{ID: "d1", Status: &backend.StatusRef{Name: "Awaiting Finance Review"}}

	p := Evaluate(deal, statusdir.New(nil), shared.RoleFinance, SurfaceDetail)
	assert.Equal(t, StageFinanceReview, p.Stage)
}

func TestListSurfaceIgnoresApprovalState(t *testing.T) {
	deal := backend.Deal{ID: "d1", StatusID: "st-ceo-no"}
	dir := fullDirectory()

	for _, role := range []shared.Role{shared.RoleCEO, shared.RoleFinance, shared.RoleCompliance, shared.RoleAdmin} {
		p := Evaluate(deal, dir, role, SurfaceList)
		assert.True(t, p.Allows(ActionCollect), role)
		assert.True(t, p.Allows(ActionTransfer), role)
	}
	assert.Empty(t, Evaluate(deal, dir, shared.RoleAgent, SurfaceList).Actions)
	assert.True(t, Evaluate(deal, dir, shared.RoleFinance, SurfaceList).Allows(ActionEditStatus))
	assert.False(t, Evaluate(deal, dir, shared.RoleCEO, SurfaceList).Allows(ActionEditStatus))
}

func TestComplianceAndAgentDetail(t *testing.T) {
	deal := backend.Deal{ID: "d1", StatusID: "st-submitted"}
	dir := fullDirectory()

	assert.Equal(t, []Action{ActionCompleteCompliance}, Evaluate(deal, dir, shared.RoleCompliance, SurfaceDetail).Actions)
	assert.Empty(t, Evaluate(deal, dir, shared.RoleAgent, SurfaceDetail).Actions)
}

func TestRoleCan(t *testing.T) {
	assert.True(t, RoleCan(shared.RoleCEO, ActionApprove))
	assert.False(t, RoleCan(shared.RoleFinance, ActionApprove))
	assert.False(t, RoleCan(shared.RoleAgent, ActionCollect))
	assert.True(t, RoleCan(shared.RoleCompliance, ActionCompleteCompliance))
}
