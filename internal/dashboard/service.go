package dashboard

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/cashflow-ai/cashflow/internal/invoices"
	"github.com/cashflow-ai/cashflow/internal/shared"
)

const defaultAnnotateConcurrency = 4

// Service serves dashboard reads for one user at a time.
type Service struct {
	repo        Repository
	logger      *slog.Logger
	concurrency int
}

// NewService wires the dashboard service.
func NewService(repo Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger, concurrency: defaultAnnotateConcurrency}
}

// WithConcurrency bounds parallel outstanding lookups when ranking clients.
func (s *Service) WithConcurrency(n int) *Service {
	if n > 0 {
		s.concurrency = n
	}
	return s
}

// GetSummary computes the KPI bundle as of now.
func (s *Service) GetSummary(ctx context.Context, userID uuid.UUID, now time.Time) (Summary, error) {
	list, err := s.repo.Invoices(ctx, userID)
	if err != nil {
		return Summary{}, err
	}
	days, err := s.repo.PaymentDays(ctx, userID)
	if err != nil {
		return Summary{}, err
	}
	return Summarize(Snapshot{Invoices: list, PaymentDays: days}, now), nil
}

// GetForecast projects income over horizon days.
func (s *Service) GetForecast(ctx context.Context, userID uuid.UUID, now time.Time, horizon int) ([]ForecastPoint, error) {
	if horizon < 0 {
		return nil, fmt.Errorf("%w: horizon must not be negative", shared.ErrValidation)
	}
	list, err := s.repo.Invoices(ctx, userID)
	if err != nil {
		return nil, err
	}
	return Forecast(list, now, horizon), nil
}

// GetAlerts evaluates the alert rules against a fresh snapshot.
func (s *Service) GetAlerts(ctx context.Context, userID uuid.UUID, now time.Time) ([]Alert, error) {
	list, err := s.repo.Invoices(ctx, userID)
	if err != nil {
		return nil, err
	}
	cls, err := s.repo.Clients(ctx, userID)
	if err != nil {
		return nil, err
	}
	alerts := EvaluateAlerts(AlertInput{
		Now:      now,
		Invoices: list,
		Forecast: Forecast(list, now, AlertLookaheadDays),
		Clients:  cls,
	})
	s.logger.Debug("dashboard alerts evaluated", slog.String("user_id", userID.String()), slog.Int("alerts", len(alerts)))
	return alerts, nil
}

// GetRecentInvoices returns the newest invoices by creation time.
func (s *Service) GetRecentInvoices(ctx context.Context, userID uuid.UUID, limit int) ([]invoices.Invoice, error) {
	if limit < 0 {
		return nil, fmt.Errorf("%w: limit must not be negative", shared.ErrValidation)
	}
	if limit == 0 {
		return []invoices.Invoice{}, nil
	}
	list, err := s.repo.RecentInvoices(ctx, userID, limit)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []invoices.Invoice{}
	}
	return list, nil
}

// GetTopClients ranks clients by total invoiced and annotates each with its live
// outstanding balance. Lookups run concurrently; the first failure aborts the rest.
func (s *Service) GetTopClients(ctx context.Context, userID uuid.UUID, limit int) ([]RankedClient, error) {
	if limit < 0 {
		return nil, fmt.Errorf("%w: limit must not be negative", shared.ErrValidation)
	}
	if limit == 0 {
		return []RankedClient{}, nil
	}
	cls, err := s.repo.Clients(ctx, userID)
	if err != nil {
		return nil, err
	}
	top := RankClients(cls, limit)

	out := make([]RankedClient, len(top))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i := range top {
		g.Go(func() error {
			outstanding, err := s.repo.ClientOutstanding(gctx, userID, top[i].ID)
			if err != nil {
				return fmt.Errorf("outstanding for client %s: %w", top[i].ID, err)
			}
			out[i] = RankedClient{Client: top[i], Outstanding: shared.RoundMoney(outstanding)}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
