// Package reports builds the commission summary across all deals.
package reports

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/commissiondesk/internal/backend"
	"github.com/odyssey-erp/commissiondesk/internal/commission"
)

const (
	summaryKey      = "reports:commission_summary"
	maxSummaryPages = 1000
)

// DealSource pages through deals.
type DealSource interface {
	GetDeals(ctx context.Context, filters backend.DealFilters, page, pageSize int) (backend.DealPage, error)
}

// Totals are exact sums over a set of deals.
type Totals struct {
	Expected            decimal.Decimal `json:"expected"`
	Collected           decimal.Decimal `json:"collected"`
	Transferred         decimal.Decimal `json:"transferred"`
	RemainingToCollect  decimal.Decimal `json:"remainingToCollect"`
	RemainingToTransfer decimal.Decimal `json:"remainingToTransfer"`
}

func totalsOf(f commission.Figures) Totals {
	return Totals{
		Expected:            f.Expected,
		Collected:           f.Collected,
		Transferred:         f.Transferred,
		RemainingToCollect:  f.RemainingToCollect(),
		RemainingToTransfer: f.RemainingToTransfer(),
	}
}

// AgentLine summarises the deals of one agent.
type AgentLine struct {
	AgentID   backend.ID `json:"agentId"`
	AgentName string     `json:"agentName,omitempty"`
	Deals     int        `json:"deals"`
	Totals    Totals     `json:"totals"`
}

// Summary is the commission report.
type Summary struct {
	GeneratedAt   time.Time                 `json:"generatedAt"`
	Deals         int                       `json:"deals"`
	Totals        Totals                    `json:"totals"`
	Display       commission.Display        `json:"display"`
	DealStatuses  map[commission.Status]int `json:"dealStatuses"`
	AgentStatuses map[commission.Status]int `json:"agentStatuses"`
	Agents        []AgentLine               `json:"agents"`
}

// Service builds and caches the summary.
type Service struct {
	deals    DealSource
	cache    *Cache
	pageSize int
	logger   *slog.Logger
	clock    func() time.Time
}

// NewService constructs a Service.
func NewService(deals DealSource, cache *Cache, pageSize int, logger *slog.Logger) *Service {
	if pageSize <= 0 {
		pageSize = 100
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		deals:    deals,
		cache:    cache,
		pageSize: pageSize,
		logger:   logger,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Summary returns the cached summary, building it on a miss.
func (s *Service) Summary(ctx context.Context) (Summary, error) {
	key, err := s.cache.BuildKey(ctx, summaryKey)
	if err != nil {
		s.logger.Warn("report cache unavailable", slog.Any("error", err))
		return s.Build(ctx)
	}
	var out Summary
	err = s.cache.FetchJSON(ctx, key, &out, func(ctx context.Context) (any, error) {
		return s.Build(ctx)
	})
	return out, err
}

// Refresh invalidates the cached summary and stores a freshly built one.
func (s *Service) Refresh(ctx context.Context) (Summary, error) {
	summary, err := s.Build(ctx)
	if err != nil {
		return Summary{}, err
	}
	if _, err := s.cache.Bump(ctx); err != nil {
		return Summary{}, fmt.Errorf("bump report cache: %w", err)
	}
	key, err := s.cache.BuildKey(ctx, summaryKey)
	if err != nil {
		return Summary{}, err
	}
	if err := s.cache.StoreJSON(ctx, key, summary); err != nil {
		return Summary{}, fmt.Errorf("store report: %w", err)
	}
	return summary, nil
}

// Build pages through every deal and aggregates its figures.
func (s *Service) Build(ctx context.Context) (Summary, error) {
	summary := Summary{
		GeneratedAt:   s.clock(),
		DealStatuses:  map[commission.Status]int{},
		AgentStatuses: map[commission.Status]int{},
		Agents:        []AgentLine{},
	}
	for _, st := range commission.Statuses {
		summary.DealStatuses[st] = 0
		summary.AgentStatuses[st] = 0
	}

	var all commission.Figures
	agents := map[backend.ID]*agentAccumulator{}
	seen := 0
	for page := 1; page <= maxSummaryPages; page++ {
		res, err := s.deals.GetDeals(ctx, backend.DealFilters{}, page, s.pageSize)
		if err != nil {
			return Summary{}, fmt.Errorf("load deals page %d: %w", page, err)
		}
		for _, d := range res.Data {
			f := commission.Resolve(d)
			all = all.Add(f)
			summary.Deals++
			summary.DealStatuses[f.DealStatus()]++
			summary.AgentStatuses[f.AgentStatus()]++

			id := d.PrimaryAgentID()
			acc, ok := agents[id]
			if !ok {
				acc = &agentAccumulator{line: AgentLine{AgentID: id}}
				agents[id] = acc
			}
			if acc.line.AgentName == "" && d.Agent != nil {
				acc.line.AgentName = d.Agent.Name
			}
			acc.line.Deals++
			acc.figures = acc.figures.Add(f)
		}
		seen += len(res.Data)
		if lastPage(res, seen, s.pageSize) {
			break
		}
	}

	summary.Totals = totalsOf(all)
	summary.Display = commission.NewView(all).Display
	for _, acc := range agents {
		acc.line.Totals = totalsOf(acc.figures)
		summary.Agents = append(summary.Agents, acc.line)
	}
	sort.Slice(summary.Agents, func(i, j int) bool {
		a, b := summary.Agents[i], summary.Agents[j]
		if !a.Totals.Expected.Equal(b.Totals.Expected) {
			return a.Totals.Expected.GreaterThan(b.Totals.Expected)
		}
		return a.AgentID < b.AgentID
	})
	s.logger.Info("commission summary built", slog.Int("deals", summary.Deals), slog.Int("agents", len(summary.Agents)))
	return summary, nil
}

// lastPage reports whether paging should stop. Without a total the loop runs
// until the backend returns a short or empty page.
func lastPage(res backend.DealPage, seen, pageSize int) bool {
	if len(res.Data) == 0 {
		return true
	}
	if res.Total > 0 {
		return seen >= res.Total
	}
	return len(res.Data) < pageSize
}

type agentAccumulator struct {
	line    AgentLine
	figures commission.Figures
}
