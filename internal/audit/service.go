// Package audit reads back the lifecycle events written to audit_logs.
package audit

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/cashflow-ai/cashflow/internal/shared"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 50
	// MaxExportRows caps a CSV export.
	MaxExportRows = 5000
)

// Service coordinates timeline reads.
type Service struct {
	repo Repository
}

// NewService constructs the timeline service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Timeline returns one page of events, newest first.
func (s *Service) Timeline(ctx context.Context, filters TimelineFilters) (Result, error) {
	if err := validate(filters); err != nil {
		return Result{}, err
	}
	pageSize := filters.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	page := filters.Page
	if page <= 0 {
		page = 1
	}
	params := windowParams(filters)
	params.Offset = int32((page - 1) * pageSize)
	params.Limit = int32(pageSize + 1)

	rows, err := s.repo.TimelineWindow(ctx, params)
	if err != nil {
		return Result{}, err
	}
	hasNext := len(rows) > pageSize
	if hasNext {
		rows = rows[:pageSize]
	}
	paging := PagingInfo{Page: page, PageSize: pageSize, HasNext: hasNext}
	if page > 1 {
		paging.PrevPage = page - 1
	}
	if hasNext {
		paging.NextPage = page + 1
	}
	return Result{Rows: rows, Paging: paging}, nil
}

// Export returns every matching event up to MaxExportRows.
func (s *Service) Export(ctx context.Context, filters TimelineFilters) ([]TimelineRow, error) {
	if err := validate(filters); err != nil {
		return nil, err
	}
	params := windowParams(filters)
	params.Limit = MaxExportRows
	return s.repo.TimelineWindow(ctx, params)
}

func validate(filters TimelineFilters) error {
	if filters.ActorID == uuid.Nil {
		return fmt.Errorf("audit timeline: %w", shared.ErrUnauthorized)
	}
	if !filters.From.IsZero() && !filters.To.IsZero() && filters.To.Before(filters.From) {
		return fmt.Errorf("audit timeline: to before from: %w", shared.ErrValidation)
	}
	return nil
}

func windowParams(filters TimelineFilters) WindowParams {
	return WindowParams{
		ActorID:  filters.ActorID,
		From:     toPgTime(filters.From),
		To:       toPgTime(filters.To),
		Entity:   optionalText(filters.Entity),
		EntityID: optionalText(filters.EntityID),
		Action:   optionalText(filters.Action),
	}
}
