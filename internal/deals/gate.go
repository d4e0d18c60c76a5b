// Package deals gates and executes deal workflow actions for each dashboard role.
package deals

import (
	"github.com/odyssey-erp/commissiondesk/internal/backend"
	"github.com/odyssey-erp/commissiondesk/internal/shared"
	"github.com/odyssey-erp/commissiondesk/internal/statusdir"
)

// Action is a user-facing operation on a deal.
type Action string

const (
	ActionApprove            Action = "approve"
	ActionReject             Action = "reject"
	ActionEditStatus         Action = "edit_status"
	ActionCollect            Action = "collect_commission"
	ActionTransfer           Action = "transfer_commission"
	ActionCompleteCompliance Action = "complete_compliance"
	ActionApproveOverview    Action = "approve_overview"
	ActionFinalApproval      Action = "final_approval"
	ActionEditOverview       Action = "edit_overview"
)

// Surface is the dashboard screen a deal is rendered on.
type Surface string

const (
	SurfaceList   Surface = "list"
	SurfaceDetail Surface = "detail"
)

// ParseSurface defaults to the detail surface.
func ParseSurface(raw string) Surface {
	if Surface(raw) == SurfaceList {
		return SurfaceList
	}
	return SurfaceDetail
}

// Stage is the workflow position of a deal, derived from its remote status on every evaluation.
type Stage string

const (
	StageOpen            Stage = "open"
	StageFinanceReview   Stage = "finance_review"
	StageFinanceApproved Stage = "finance_approved"
	StageCEOApproved     Stage = "ceo_approved"
	StageCEORejected     Stage = "ceo_rejected"
)

// CEODecided reports whether the CEO already approved or rejected the deal.
func (s Stage) CEODecided() bool {
	return s == StageCEOApproved || s == StageCEORejected
}

// FinanceUnlocked reports whether finance has approved the overview, which unlocks
// finance detail editing and commission recording on the finance review screen.
func (s Stage) FinanceUnlocked() bool {
	switch s {
	case StageFinanceReview, StageFinanceApproved, StageCEOApproved:
		return true
	default:
		return false
	}
}

// StageOf derives the stage of a deal. Terminal CEO states are checked first.
func StageOf(deal backend.Deal, dir *statusdir.Directory) Stage {
	id := deal.CurrentStatusID()
	name := deal.StatusName()
	if name == "" {
		name = dir.Name(id)
	}
	switch {
	case dir.Matches(statusdir.CEORejected, id, name):
		return StageCEORejected
	case dir.Matches(statusdir.CEOApproved, id, name):
		return StageCEOApproved
	case dir.Matches(statusdir.FinanceApproved, id, name):
		return StageFinanceApproved
	case dir.Matches(statusdir.FinanceReview, id, name):
		return StageFinanceReview
	default:
		return StageOpen
	}
}

// Permissions is the evaluated action set for one viewer on one deal.
type Permissions struct {
	Stage   Stage    `json:"stage"`
	Actions []Action `json:"actions"`
}

// Allows reports whether the action is permitted.
func (p Permissions) Allows(a Action) bool {
	for _, got := range p.Actions {
		if got == a {
			return true
		}
	}
	return false
}

// ShowCEOActions reports whether approve/reject buttons are rendered.
func (p Permissions) ShowCEOActions() bool {
	return p.Allows(ActionApprove) && p.Allows(ActionReject)
}

// Evaluate decides which actions a role may take on a deal from a given surface.
func Evaluate(deal backend.Deal, dir *statusdir.Directory, role shared.Role, surface Surface) Permissions {
	stage := StageOf(deal, dir)
	p := Permissions{Stage: stage, Actions: []Action{}}
	add := func(actions ...Action) {
		p.Actions = append(p.Actions, actions...)
	}

	if role == shared.RoleAgent {
		return p
	}

	if surface == SurfaceList {
		if role == shared.RoleFinance || role == shared.RoleAdmin {
			add(ActionEditStatus)
		}
		add(ActionCollect, ActionTransfer)
		return p
	}

	switch role {
	case shared.RoleCEO:
		if !stage.CEODecided() {
			add(ActionApprove, ActionReject)
		}
	case shared.RoleFinance:
		add(ActionEditOverview)
		switch stage {
		case StageOpen:
			add(ActionApproveOverview)
		case StageFinanceReview:
			add(ActionFinalApproval)
		}
		if stage.FinanceUnlocked() {
			add(ActionCollect, ActionTransfer)
		}
	case shared.RoleCompliance:
		add(ActionCompleteCompliance)
	case shared.RoleAdmin:
		add(ActionEditStatus, ActionCollect, ActionTransfer)
	}
	return p
}

// roleCapabilities lists every action a role can ever take, regardless of stage.
var roleCapabilities = map[shared.Role][]Action{
	shared.RoleCEO:        {ActionApprove, ActionReject, ActionCollect, ActionTransfer},
	shared.RoleFinance:    {ActionEditOverview, ActionApproveOverview, ActionFinalApproval, ActionEditStatus, ActionCollect, ActionTransfer},
	shared.RoleCompliance: {ActionCompleteCompliance, ActionCollect, ActionTransfer},
	shared.RoleAdmin:      {ActionEditStatus, ActionCollect, ActionTransfer},
}

// RoleCan reports whether the role could take the action at some stage.
func RoleCan(role shared.Role, action Action) bool {
	for _, a := range roleCapabilities[role] {
		if a == action {
			return true
		}
	}
	return false
}
