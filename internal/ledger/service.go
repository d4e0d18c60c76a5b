package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/odyssey-erp/commissiondesk/internal/backend"
	"github.com/odyssey-erp/commissiondesk/internal/commission"
	"github.com/odyssey-erp/commissiondesk/internal/deals"
	"github.com/odyssey-erp/commissiondesk/internal/shared"
)

// Idempotency modules.
const (
	moduleCollection = "collection"
	moduleTransfer   = "transfer"
)

// Backend is the subset of the backend client used for ledger entries.
type Backend interface {
	GetDealByID(ctx context.Context, id backend.ID) (backend.Deal, error)
	RecordCollection(ctx context.Context, req backend.CollectionRequest) (backend.Collection, error)
	TransferCommission(ctx context.Context, req backend.TransferRequest) (backend.Transfer, error)
	GetDealAgents(ctx context.Context, dealID backend.ID) (backend.DealAgents, error)
	GetDealCollections(ctx context.Context, dealID backend.ID) ([]backend.Collection, error)
	GetDealTransfers(ctx context.Context, dealID backend.ID) ([]backend.Transfer, error)
	GetCollectionSources(ctx context.Context) ([]backend.SelectOption, error)
	GetCollectionTypes(ctx context.Context) ([]backend.SelectOption, error)
}

// Recorder observes ledger submissions.
type Recorder interface {
	ObserveLedger(kind, outcome string)
}

// Service validates and submits collections and transfers.
type Service struct {
	backend  Backend
	guard    *shared.IdempotencyStore
	logger   *slog.Logger
	recorder Recorder
	validate *validator.Validate
	now      func() time.Time
}

// NewService constructs a Service. guard may be nil.
func NewService(b Backend, guard *shared.IdempotencyStore, logger *slog.Logger, recorder Recorder) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		backend:  b,
		guard:    guard,
		logger:   logger,
		recorder: recorder,
		validate: newValidator(),
		now:      time.Now,
	}
}

// CollectionDefaults is everything the collect modal needs to open.
type CollectionDefaults struct {
	Form            CollectionForm   `json:"form"`
	Sources         []backend.SelectOption `json:"sources"`
	CollectionTypes []backend.SelectOption `json:"collectionTypes"`
	Warnings        []string         `json:"warnings,omitempty"`
}

// TransferDefaults is everything the transfer modal needs to open.
type TransferDefaults struct {
	Form       TransferForm       `json:"form"`
	Recipients backend.DealAgents `json:"recipients"`
	Warnings   []string           `json:"warnings,omitempty"`
}

// CollectResult is returned after a collection is recorded.
type CollectResult struct {
	Notification *shared.Notification `json:"notification"`
	Collection   backend.Collection   `json:"collection"`
	Form         CollectionForm       `json:"form"`
	Commission   *commission.View     `json:"commission,omitempty"`
	Warnings     []string             `json:"warnings,omitempty"`
}

// TransferResult is returned after a transfer is recorded.
type TransferResult struct {
	Notification *shared.Notification `json:"notification"`
	Transfer     backend.Transfer     `json:"transfer"`
	Form         TransferForm         `json:"form"`
	Commission   *commission.View     `json:"commission,omitempty"`
	Warnings     []string             `json:"warnings,omitempty"`
}

func (s *Service) authorize(ctx context.Context, action deals.Action) error {
	principal, _ := shared.PrincipalFromContext(ctx)
	if !deals.RoleCan(principal.Role, action) {
		return fmt.Errorf("%s: %w", action, shared.ErrForbidden)
	}
	return nil
}

// CollectionDefaults loads the selectors of the collect modal. A failing selector is
// reported as a warning and left empty.
func (s *Service) CollectionDefaults(ctx context.Context) (CollectionDefaults, error) {
	if err := s.authorize(ctx, deals.ActionCollect); err != nil {
		return CollectionDefaults{}, err
	}
	out := CollectionDefaults{
		Form:            newCollectionForm(s.now()),
		Sources:         []backend.SelectOption{},
		CollectionTypes: []backend.SelectOption{},
	}
	var (
		sources, types       []backend.SelectOption
		sourcesErr, typesErr error
		g                    errgroup.Group
	)
	g.Go(func() error {
		sources, sourcesErr = s.backend.GetCollectionSources(ctx)
		return nil
	})
	g.Go(func() error {
		types, typesErr = s.backend.GetCollectionTypes(ctx)
		return nil
	})
	_ = g.Wait()
	if sourcesErr != nil {
		s.logger.Warn("load collection sources", slog.Any("error", sourcesErr))
		out.Warnings = append(out.Warnings, "Collection sources could not be loaded")
	} else if sources != nil {
		out.Sources = sources
	}
	if typesErr != nil {
		s.logger.Warn("load collection types", slog.Any("error", typesErr))
		out.Warnings = append(out.Warnings, "Collection types could not be loaded")
	} else if types != nil {
		out.CollectionTypes = types
	}
	return out, nil
}

// Collect validates and records money received for a deal. key identifies the submission;
// an empty key gets a fresh one.
func (s *Service) Collect(ctx context.Context, dealID backend.ID, form CollectionForm, key string) (CollectResult, error) {
	if err := s.authorize(ctx, deals.ActionCollect); err != nil {
		return CollectResult{}, err
	}
	if err := validate(s.validate, form); err != nil {
		s.observe(moduleCollection, "invalid")
		return CollectResult{}, err
	}
	amount, _ := parseAmount(form.Amount)
	date, err := time.Parse(time.RFC3339, form.CollectionDate)
	if err != nil {
		return CollectResult{}, shared.NewValidationError("collectionDate", "Enter a valid date")
	}

	release, err := s.claim(ctx, moduleCollection, key)
	if err != nil {
		return CollectResult{}, err
	}
	defer release()

	collection, err := s.backend.RecordCollection(ctx, backend.CollectionRequest{
		DealID:           dealID,
		SourceID:         backend.ID(form.SourceID),
		CollectionTypeID: backend.ID(form.CollectionTypeID),
		Amount:           amount.InexactFloat64(),
		CollectionDate:   date.UTC(),
		Notes:            strings.TrimSpace(form.Notes),
	})
	if err != nil {
		s.logger.Error("record collection", slog.String("deal_id", dealID.String()), slog.Any("error", err))
		s.observe(moduleCollection, "remote_error")
		return CollectResult{}, &shared.ActionError{
			Action:   "record collection",
			Fallback: "Could not record collection",
			Message:  backend.MessageOf(err, ""),
			Err:      err,
		}
	}
	s.observe(moduleCollection, "success")

	res := CollectResult{
		Notification: shared.Success(fmt.Sprintf("Collection of %s recorded", commission.FormatAED(amount))),
		Collection:   collection,
		Form:         newCollectionForm(s.now()),
	}
	res.Commission, res.Warnings = s.figures(ctx, dealID)
	return res, nil
}

// Recipients returns the people a transfer may go to. When the lookup fails the deal's own
// agent and manager are offered instead.
func (s *Service) Recipients(ctx context.Context, dealID backend.ID) (backend.DealAgents, []string, error) {
	agents, err := s.backend.GetDealAgents(ctx, dealID)
	if err == nil {
		if agents.Agents == nil {
			agents.Agents = []backend.Person{}
		}
		if agents.Managers == nil {
			agents.Managers = []backend.Person{}
		}
		return agents, nil, nil
	}
	s.logger.Warn("load deal agents, using deal's own agent and manager", slog.String("deal_id", dealID.String()), slog.Any("error", err))

	deal, dealErr := s.backend.GetDealByID(ctx, dealID)
	if dealErr != nil {
		s.logger.Error("load deal", slog.String("deal_id", dealID.String()), slog.Any("error", dealErr))
		return backend.DealAgents{}, nil, &shared.ActionError{
			Action:   "load recipients",
			Fallback: "Could not load recipients",
			Message:  backend.MessageOf(dealErr, ""),
			Err:      dealErr,
		}
	}
	out := backend.DealAgents{Agents: []backend.Person{}, Managers: []backend.Person{}}
	if p, ok := person(deal.Agent, deal.PrimaryAgentID()); ok {
		out.Agents = append(out.Agents, p)
	}
	if p, ok := person(deal.Manager, deal.PrimaryManagerID()); ok {
		out.Managers = append(out.Managers, p)
	}
	return out, []string{"Recipient list unavailable, showing the deal's agent and manager"}, nil
}

func person(embedded *backend.Person, id backend.ID) (backend.Person, bool) {
	if embedded != nil && embedded.ID != "" {
		return *embedded, true
	}
	if id == "" {
		return backend.Person{}, false
	}
	return backend.Person{ID: id}, true
}

// TransferDefaults loads the recipients of the transfer modal.
func (s *Service) TransferDefaults(ctx context.Context, dealID backend.ID) (TransferDefaults, error) {
	if err := s.authorize(ctx, deals.ActionTransfer); err != nil {
		return TransferDefaults{}, err
	}
	recipients, warnings, err := s.Recipients(ctx, dealID)
	if err != nil {
		return TransferDefaults{}, err
	}
	return TransferDefaults{Form: TransferForm{}, Recipients: recipients, Warnings: warnings}, nil
}

// Transfer validates and records money paid out to one of the deal's agents or managers.
func (s *Service) Transfer(ctx context.Context, dealID backend.ID, form TransferForm, key string) (TransferResult, error) {
	if err := s.authorize(ctx, deals.ActionTransfer); err != nil {
		return TransferResult{}, err
	}
	if err := validate(s.validate, form); err != nil {
		s.observe(moduleTransfer, "invalid")
		return TransferResult{}, err
	}
	amount, _ := parseAmount(form.Amount)

	recipients, warnings, err := s.Recipients(ctx, dealID)
	if err != nil {
		return TransferResult{}, err
	}
	if !belongs(recipients, form.RecipientType, backend.ID(form.RecipientID)) {
		s.observe(moduleTransfer, "invalid")
		return TransferResult{}, shared.NewValidationError("recipientId", fmt.Sprintf("Select one of the deal's %ss", form.RecipientType))
	}

	release, err := s.claim(ctx, moduleTransfer, key)
	if err != nil {
		return TransferResult{}, err
	}
	defer release()

	transfer, err := s.backend.TransferCommission(ctx, backend.TransferRequest{
		DealID:        dealID,
		RecipientID:   backend.ID(form.RecipientID),
		RecipientType: form.RecipientType,
		Amount:        amount.InexactFloat64(),
		Notes:         strings.TrimSpace(form.Notes),
	})
	if err != nil {
		s.logger.Error("transfer commission", slog.String("deal_id", dealID.String()), slog.Any("error", err))
		s.observe(moduleTransfer, "remote_error")
		return TransferResult{}, &shared.ActionError{
			Action:   "transfer commission",
			Fallback: "Could not transfer commission",
			Message:  backend.MessageOf(err, ""),
			Err:      err,
		}
	}
	s.observe(moduleTransfer, "success")

	res := TransferResult{
		Notification: shared.Success(fmt.Sprintf("Transfer of %s recorded", commission.FormatAED(amount))),
		Transfer:     transfer,
		Form:         TransferForm{},
		Warnings:     warnings,
	}
	view, more := s.figures(ctx, dealID)
	res.Commission = view
	res.Warnings = append(res.Warnings, more...)
	return res, nil
}

func belongs(recipients backend.DealAgents, recipientType string, id backend.ID) bool {
	people := recipients.Agents
	if recipientType == RecipientManager {
		people = recipients.Managers
	}
	for _, p := range people {
		if p.ID == id {
			return true
		}
	}
	return false
}

// Collections lists the collections recorded for a deal.
func (s *Service) Collections(ctx context.Context, dealID backend.ID) ([]backend.Collection, error) {
	items, err := s.backend.GetDealCollections(ctx, dealID)
	if err != nil {
		s.logger.Error("list collections", slog.String("deal_id", dealID.String()), slog.Any("error", err))
		return nil, &shared.ActionError{Action: "list collections", Fallback: "Could not load collections", Message: backend.MessageOf(err, ""), Err: err}
	}
	if items == nil {
		items = []backend.Collection{}
	}
	return items, nil
}

// Transfers lists the transfers recorded for a deal.
func (s *Service) Transfers(ctx context.Context, dealID backend.ID) ([]backend.Transfer, error) {
	items, err := s.backend.GetDealTransfers(ctx, dealID)
	if err != nil {
		s.logger.Error("list transfers", slog.String("deal_id", dealID.String()), slog.Any("error", err))
		return nil, &shared.ActionError{Action: "list transfers", Fallback: "Could not load transfers", Message: backend.MessageOf(err, ""), Err: err}
	}
	if items == nil {
		items = []backend.Transfer{}
	}
	return items, nil
}

func (s *Service) claim(ctx context.Context, module, key string) (func(), error) {
	if strings.TrimSpace(key) == "" {
		key = uuid.NewString()
	}
	if err := s.guard.Claim(ctx, module, key); err != nil {
		s.observe(module, "duplicate")
		return nil, err
	}
	return func() {
		if err := s.guard.Release(context.WithoutCancel(ctx), module, key); err != nil {
			s.logger.Warn("release idempotency key", slog.String("module", module), slog.Any("error", err))
		}
	}, nil
}

// figures refetches the deal so the caller sees updated aggregates.
func (s *Service) figures(ctx context.Context, dealID backend.ID) (*commission.View, []string) {
	deal, err := s.backend.GetDealByID(ctx, dealID)
	if err != nil || deal.ID != dealID {
		s.logger.Warn("refetch deal after ledger entry", slog.String("deal_id", dealID.String()), slog.Any("error", err))
		return nil, []string{"Deal could not be reloaded, refresh to see updated totals"}
	}
	view := commission.NewView(commission.Resolve(deal))
	return &view, nil
}

func (s *Service) observe(kind, outcome string) {
	if s.recorder != nil {
		s.recorder.ObserveLedger(kind, outcome)
	}
}
