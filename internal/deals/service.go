package deals

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/odyssey-erp/commissiondesk/internal/backend"
	"github.com/odyssey-erp/commissiondesk/internal/commission"
	"github.com/odyssey-erp/commissiondesk/internal/shared"
	"github.com/odyssey-erp/commissiondesk/internal/statusdir"
)

// ListPath is where the dashboard returns after final approval.
const ListPath = "/deals"

const statusesUnavailable = "Status directory unavailable; statuses are matched by name"

// Backend is the subset of the backend client used by the deal workflow.
type Backend interface {
	GetDealByID(ctx context.Context, id backend.ID) (backend.Deal, error)
	GetDeals(ctx context.Context, filters backend.DealFilters, page, pageSize int) (backend.DealPage, error)
	UpdateDealStatus(ctx context.Context, dealID, statusID backend.ID) error
	UpdateDeal(ctx context.Context, dealID backend.ID, patch backend.DealPatch) error
	CompleteCompliance(ctx context.Context, dealID backend.ID) error
}

// Directories resolves the status directory of a session.
type Directories interface {
	Get(ctx context.Context, session string) (*statusdir.Directory, error)
}

// TransitionRecorder observes workflow outcomes.
type TransitionRecorder interface {
	ObserveTransition(action, outcome string)
}

// DealView is everything a dashboard needs to render one deal.
type DealView struct {
	Deal        backend.Deal    `json:"deal"`
	StatusName  string          `json:"statusName"`
	Commission  commission.View `json:"commission"`
	Permissions Permissions     `json:"permissions"`
	Warnings    []string        `json:"warnings,omitempty"`
}

// ActionResult is returned by every workflow action.
type ActionResult struct {
	Notification *shared.Notification `json:"notification"`
	View         *DealView            `json:"deal,omitempty"`
	Redirect     string               `json:"redirect,omitempty"`
	Warnings     []string             `json:"warnings,omitempty"`
}

// Service runs deal views and workflow transitions.
type Service struct {
	backend  Backend
	dirs     Directories
	logger   *slog.Logger
	recorder TransitionRecorder
}

// NewService constructs a Service.
func NewService(b Backend, dirs Directories, logger *slog.Logger, recorder TransitionRecorder) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{backend: b, dirs: dirs, logger: logger, recorder: recorder}
}

type loaded struct {
	deal     backend.Deal
	dir      *statusdir.Directory
	warnings []string
}

// load fetches the deal and the status directory in parallel. A directory failure only
// degrades matching to names; a deal failure is returned.
func (s *Service) load(ctx context.Context, dealID backend.ID) (loaded, error) {
	principal, _ := shared.PrincipalFromContext(ctx)
	var (
		deal    backend.Deal
		dir     *statusdir.Directory
		dealErr error
		dirErr  error
		g       errgroup.Group
	)
	g.Go(func() error {
		deal, dealErr = s.backend.GetDealByID(ctx, dealID)
		return nil
	})
	g.Go(func() error {
		dir, dirErr = s.dirs.Get(ctx, principal.SessionID)
		return nil
	})
	_ = g.Wait()

	if dealErr != nil {
		s.logger.Error("load deal", slog.String("deal_id", dealID.String()), slog.Any("error", dealErr))
		if errors.Is(dealErr, shared.ErrNotFound) {
			return loaded{}, fmt.Errorf("deal %s: %w", dealID, shared.ErrNotFound)
		}
		return loaded{}, &shared.ActionError{
			Action:   "load deal",
			Fallback: "Failed to load deal",
			Message:  backend.MessageOf(dealErr, ""),
			Err:      dealErr,
		}
	}
	if deal.ID == "" {
		return loaded{}, fmt.Errorf("deal %s: %w", dealID, shared.ErrNotFound)
	}
	if deal.ID != dealID {
		// A response for another deal must never be rendered under this id.
		s.logger.Warn("discarding stale deal response", slog.String("deal_id", dealID.String()), slog.String("got", deal.ID.String()))
		return loaded{}, &shared.ActionError{Action: "load deal", Fallback: "Failed to load deal", Err: errors.New("deal response id mismatch")}
	}

	out := loaded{deal: deal, dir: dir}
	if dirErr != nil {
		s.logger.Warn("load status directory", slog.String("deal_id", dealID.String()), slog.Any("error", dirErr))
		out.dir = statusdir.New(nil)
		out.warnings = append(out.warnings, statusesUnavailable)
	}
	return out, nil
}

func (s *Service) buildView(l loaded, role shared.Role, surface Surface) DealView {
	name := l.deal.StatusName()
	if name == "" {
		name = l.dir.Name(l.deal.CurrentStatusID())
	}
	return DealView{
		Deal:        l.deal,
		StatusName:  name,
		Commission:  commission.NewView(commission.Resolve(l.deal)),
		Permissions: Evaluate(l.deal, l.dir, role, surface),
		Warnings:    l.warnings,
	}
}

// View loads and evaluates a single deal for the current viewer.
func (s *Service) View(ctx context.Context, dealID backend.ID, surface Surface) (DealView, error) {
	l, err := s.load(ctx, dealID)
	if err != nil {
		return DealView{}, err
	}
	principal, _ := shared.PrincipalFromContext(ctx)
	return s.buildView(l, principal.Role, surface), nil
}

// transition describes a status-changing action.
type transition struct {
	action   Action
	surface  Surface
	target   statusdir.Kind
	success  string
	fallback string
}

var (
	ceoApprove = transition{action: ActionApprove, surface: SurfaceDetail, target: statusdir.CEOApproved,
		success: "Deal approved", fallback: "Failed to approve deal"}
	ceoReject = transition{action: ActionReject, surface: SurfaceDetail, target: statusdir.CEORejected,
		success: "Deal rejected", fallback: "Failed to reject deal"}
	approveOverview = transition{action: ActionApproveOverview, surface: SurfaceDetail, target: statusdir.FinanceReview,
		success: "Deal overview approved, finance details unlocked", fallback: "Failed to approve deal overview"}
	finalApproval = transition{action: ActionFinalApproval, surface: SurfaceDetail, target: statusdir.FinanceApproved,
		success: "Deal finance approval completed", fallback: "Failed to complete final approval"}
)

// CEOApprove moves the deal to CEO Approved.
func (s *Service) CEOApprove(ctx context.Context, dealID backend.ID) (ActionResult, error) {
	return s.runTransition(ctx, dealID, ceoApprove, backend.DealPatch{})
}

// CEOReject moves the deal to CEO Rejected.
func (s *Service) CEOReject(ctx context.Context, dealID backend.ID) (ActionResult, error) {
	return s.runTransition(ctx, dealID, ceoReject, backend.DealPatch{})
}

// ApproveOverview moves the deal to Finance Review, unlocking finance details.
func (s *Service) ApproveOverview(ctx context.Context, dealID backend.ID) (ActionResult, error) {
	return s.runTransition(ctx, dealID, approveOverview, backend.DealPatch{})
}

// FinalApproval persists finance edits and moves the deal to Finance Approve.
func (s *Service) FinalApproval(ctx context.Context, dealID backend.ID, form OverviewForm) (ActionResult, error) {
	patch, err := form.Patch()
	if err != nil {
		return ActionResult{}, err
	}
	res, err := s.runTransition(ctx, dealID, finalApproval, patch)
	if err != nil {
		return res, err
	}
	res.Redirect = ListPath
	return res, nil
}

func (s *Service) runTransition(ctx context.Context, dealID backend.ID, t transition, patch backend.DealPatch) (ActionResult, error) {
	principal, _ := shared.PrincipalFromContext(ctx)
	if !RoleCan(principal.Role, t.action) {
		s.observe(t.action, "forbidden")
		return ActionResult{}, fmt.Errorf("%s: %w", t.action, shared.ErrForbidden)
	}
	l, err := s.load(ctx, dealID)
	if err != nil {
		s.observe(t.action, "load_failed")
		return ActionResult{}, err
	}
	statusID, ok := l.dir.ID(t.target)
	if !ok {
		s.logger.Warn("status not configured", slog.String("deal_id", dealID.String()), slog.String("status", t.target.String()))
		s.observe(t.action, "not_configured")
		return ActionResult{}, fmt.Errorf("%s: %w", t.action, shared.ErrStatusNotConfigured)
	}
	if !Evaluate(l.deal, l.dir, principal.Role, t.surface).Allows(t.action) {
		s.observe(t.action, "not_permitted")
		return ActionResult{}, fmt.Errorf("%s: %w", t.action, shared.ErrActionNotPermitted)
	}

	if !patch.Empty() {
		if err := s.backend.UpdateDeal(ctx, dealID, patch); err != nil {
			return ActionResult{}, s.remoteFailure(t.action, dealID, "Failed to save finance details", err)
		}
	}
	if err := s.backend.UpdateDealStatus(ctx, dealID, statusID); err != nil {
		return ActionResult{}, s.remoteFailure(t.action, dealID, t.fallback, err)
	}
	s.observe(t.action, "success")
	return s.refetched(ctx, dealID, principal.Role, t.surface, t.success), nil
}

// UpdateOverview saves edited overview or finance fields without changing status.
func (s *Service) UpdateOverview(ctx context.Context, dealID backend.ID, form OverviewForm) (ActionResult, error) {
	principal, _ := shared.PrincipalFromContext(ctx)
	if !RoleCan(principal.Role, ActionEditOverview) {
		return ActionResult{}, fmt.Errorf("%s: %w", ActionEditOverview, shared.ErrForbidden)
	}
	patch, err := form.Patch()
	if err != nil {
		return ActionResult{}, err
	}
	if patch.Empty() {
		return ActionResult{}, shared.NewValidationError("body", "nothing to update")
	}
	if err := s.backend.UpdateDeal(ctx, dealID, patch); err != nil {
		return ActionResult{}, s.remoteFailure(ActionEditOverview, dealID, "Failed to update deal", err)
	}
	s.observe(ActionEditOverview, "success")
	return s.refetched(ctx, dealID, principal.Role, SurfaceDetail, "Deal updated"), nil
}

// UpdateStatus sets an arbitrary directory status, as offered by the list's status editor.
func (s *Service) UpdateStatus(ctx context.Context, dealID, statusID backend.ID) (ActionResult, error) {
	principal, _ := shared.PrincipalFromContext(ctx)
	if !RoleCan(principal.Role, ActionEditStatus) {
		return ActionResult{}, fmt.Errorf("%s: %w", ActionEditStatus, shared.ErrForbidden)
	}
	if strings.TrimSpace(statusID.String()) == "" {
		return ActionResult{}, shared.NewValidationError("statusId", "status is required")
	}
	l, err := s.load(ctx, dealID)
	if err != nil {
		return ActionResult{}, err
	}
	if len(l.dir.Statuses) > 0 && l.dir.Name(statusID) == "" {
		return ActionResult{}, shared.NewValidationError("statusId", "unknown status")
	}
	if !Evaluate(l.deal, l.dir, principal.Role, SurfaceList).Allows(ActionEditStatus) {
		return ActionResult{}, fmt.Errorf("%s: %w", ActionEditStatus, shared.ErrActionNotPermitted)
	}
	if err := s.backend.UpdateDealStatus(ctx, dealID, statusID); err != nil {
		return ActionResult{}, s.remoteFailure(ActionEditStatus, dealID, "Failed to update status", err)
	}
	s.observe(ActionEditStatus, "success")
	return s.refetched(ctx, dealID, principal.Role, SurfaceList, "Status updated"), nil
}

// CompleteCompliance delegates the compliance transition to the backend.
func (s *Service) CompleteCompliance(ctx context.Context, dealID backend.ID) (ActionResult, error) {
	principal, _ := shared.PrincipalFromContext(ctx)
	if !RoleCan(principal.Role, ActionCompleteCompliance) {
		return ActionResult{}, fmt.Errorf("%s: %w", ActionCompleteCompliance, shared.ErrForbidden)
	}
	if err := s.backend.CompleteCompliance(ctx, dealID); err != nil {
		return ActionResult{}, s.remoteFailure(ActionCompleteCompliance, dealID, "Failed to complete compliance", err)
	}
	s.observe(ActionCompleteCompliance, "success")
	return s.refetched(ctx, dealID, principal.Role, SurfaceDetail, "Compliance completed"), nil
}

// refetched reloads the deal after a successful write. The action already succeeded, so a
// failed reload only adds a warning.
func (s *Service) refetched(ctx context.Context, dealID backend.ID, role shared.Role, surface Surface, message string) ActionResult {
	res := ActionResult{Notification: shared.Success(message)}
	l, err := s.load(ctx, dealID)
	if err != nil {
		res.Warnings = append(res.Warnings, "Deal could not be reloaded, refresh to see the latest status")
		return res
	}
	view := s.buildView(l, role, surface)
	res.View = &view
	return res
}

func (s *Service) remoteFailure(action Action, dealID backend.ID, fallback string, err error) error {
	s.logger.Error("deal action failed", slog.String("action", string(action)), slog.String("deal_id", dealID.String()), slog.Any("error", err))
	s.observe(action, "remote_error")
	return &shared.ActionError{
		Action:   string(action),
		Fallback: fallback,
		Message:  backend.MessageOf(err, ""),
		Err:      err,
	}
}

func (s *Service) observe(action Action, outcome string) {
	if s.recorder != nil {
		s.recorder.ObserveTransition(string(action), outcome)
	}
}

// ListQuery filters the deal list.
type ListQuery struct {
	Page     int
	PageSize int
	Filters  backend.DealFilters
}

// DealRow is one deal of the list.
type DealRow struct {
	ID          backend.ID      `json:"id"`
	DealNumber  string          `json:"dealNumber"`
	DealValue   string          `json:"dealValue"`
	StatusName  string          `json:"statusName"`
	Commission  commission.View `json:"commission"`
	Permissions Permissions     `json:"permissions"`
}

// ListResult is a page of evaluated deals.
type ListResult struct {
	Rows       []DealRow         `json:"rows"`
	Pagination shared.Pagination `json:"pagination"`
	Warnings   []string          `json:"warnings,omitempty"`
}

// List loads a page of deals and evaluates each for the list surface.
func (s *Service) List(ctx context.Context, q ListQuery) (ListResult, error) {
	principal, _ := shared.PrincipalFromContext(ctx)
	pg := shared.NewPagination(q.Page, q.PageSize, 0)
	if principal.Role == shared.RoleAgent && q.Filters.AgentID == "" {
		q.Filters.AgentID = backend.ID(principal.UserID)
	}

	var (
		page    backend.DealPage
		dir     *statusdir.Directory
		pageErr error
		dirErr  error
		g       errgroup.Group
	)
	g.Go(func() error {
		page, pageErr = s.backend.GetDeals(ctx, q.Filters, pg.Page, pg.PerPage)
		return nil
	})
	g.Go(func() error {
		dir, dirErr = s.dirs.Get(ctx, principal.SessionID)
		return nil
	})
	_ = g.Wait()

	if pageErr != nil {
		s.logger.Error("list deals", slog.Any("error", pageErr))
		return ListResult{}, &shared.ActionError{Action: "list deals", Fallback: "Failed to load deals", Message: backend.MessageOf(pageErr, ""), Err: pageErr}
	}
	result := ListResult{Rows: make([]DealRow, 0, len(page.Data))}
	if dirErr != nil {
		s.logger.Warn("load status directory", slog.Any("error", dirErr))
		dir = statusdir.New(nil)
		result.Warnings = append(result.Warnings, statusesUnavailable)
	}
	for _, d := range page.Data {
		name := d.StatusName()
		if name == "" {
			name = dir.Name(d.CurrentStatusID())
		}
		result.Rows = append(result.Rows, DealRow{
			ID:          d.ID,
			DealNumber:  d.DealNumber,
			DealValue:   commission.FormatAmount(d.DealValue),
			StatusName:  name,
			Commission:  commission.NewView(commission.Resolve(d)),
			Permissions: Evaluate(d, dir, principal.Role, SurfaceList),
		})
	}
	result.Pagination = shared.NewPagination(pg.Page, pg.PerPage, page.Total)
	return result, nil
}

// OverviewForm carries editable overview and finance fields. Amounts accept JSON numbers
// or numeric strings.
type OverviewForm struct {
	DealValue       *json.Number `json:"dealValue,omitempty"`
	TotalCommission *json.Number `json:"totalCommission,omitempty"`
	FinanceNotes    *string      `json:"financeNotes,omitempty"`
}

// Patch validates the form and converts it to a backend patch.
func (f OverviewForm) Patch() (backend.DealPatch, error) {
	fields := shared.FieldErrors{}
	var patch backend.DealPatch
	parse := func(field string, n *json.Number) *float64 {
		if n == nil {
			return nil
		}
		d, err := decimal.NewFromString(n.String())
		if err != nil || d.IsNegative() {
			fields[field] = "must be a non-negative amount"
			return nil
		}
		v := d.InexactFloat64()
		return &v
	}
	patch.DealValue = parse("dealValue", f.DealValue)
	patch.TotalCommission = parse("totalCommission", f.TotalCommission)
	if f.FinanceNotes != nil {
		notes := strings.TrimSpace(*f.FinanceNotes)
		patch.FinanceNotes = &notes
	}
	if len(fields) > 0 {
		return backend.DealPatch{}, &shared.ValidationError{Fields: fields}
	}
	return patch, nil
}
