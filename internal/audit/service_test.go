package audit

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/cashflow-ai/cashflow/internal/shared"
)

type stubTimelineRepo struct {
	rows     []TimelineRow
	err      error
	lastCall WindowParams
}

func (s *stubTimelineRepo) TimelineWindow(ctx context.Context, arg WindowParams) ([]TimelineRow, error) {
	s.lastCall = arg
	return s.rows, s.err
}

func event(at string, action, entityID string) TimelineRow {
	ts, _ := time.Parse(time.RFC3339, at)
	return TimelineRow{At: ts, Action: action, Entity: "invoice", EntityID: entityID}
}

func TestServiceTimelinePaging(t *testing.T) {
	repo := &stubTimelineRepo{rows: []TimelineRow{
		event("2024-03-10T10:00:00Z", shared.AuditInvoicePaid, "a"),
		event("2024-03-09T09:00:00Z", shared.AuditInvoiceReminded, "b"),
		event("2024-03-08T08:00:00Z", shared.AuditInvoiceCreated, "c"),
	}}
	svc := NewService(repo)

	result, err := svc.Timeline(context.Background(), TimelineFilters{ActorID: uuid.New(), Page: 1, PageSize: 2})
	require.NoError(t, err)
	require.Len(t, result.Rows, 2)
	require.True(t, result.Paging.HasNext)
	require.Equal(t, 2, result.Paging.NextPage)
	require.Zero(t, result.Paging.PrevPage)
	require.EqualValues(t, 3, repo.lastCall.Limit)
	require.EqualValues(t, 0, repo.lastCall.Offset)
}

func TestServiceTimelineClampsPageSize(t *testing.T) {
	repo := &stubTimelineRepo{}
	svc := NewService(repo)

	result, err := svc.Timeline(context.Background(), TimelineFilters{ActorID: uuid.New(), Page: 3, PageSize: 500})
	require.NoError(t, err)
	require.Equal(t, MaxPageSize, result.Paging.PageSize)
	require.Equal(t, 2, result.Paging.PrevPage)
	require.False(t, result.Paging.HasNext)
	require.EqualValues(t, 2*MaxPageSize, repo.lastCall.Offset)
}

func TestServiceTimelineFilters(t *testing.T) {
	repo := &stubTimelineRepo{}
	svc := NewService(repo)
	from := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	_, err := svc.Timeline(context.Background(), TimelineFilters{
		ActorID:  uuid.New(),
		From:     from,
		Entity:   " invoice ",
		EntityID: "",
		Action:   shared.AuditInvoicePaid,
	})
	require.NoError(t, err)
	require.True(t, repo.lastCall.From.Valid)
	require.False(t, repo.lastCall.To.Valid)
	require.Equal(t, "invoice", repo.lastCall.Entity.String)
	require.False(t, repo.lastCall.EntityID.Valid)
	require.Equal(t, shared.AuditInvoicePaid, repo.lastCall.Action.String)
}

func TestServiceRejectsInvertedRange(t *testing.T) {
	svc := NewService(&stubTimelineRepo{})
	_, err := svc.Timeline(context.Background(), TimelineFilters{
		ActorID: uuid.New(),
		From:    time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC),
		To:      time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
	})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestServiceRequiresActor(t *testing.T) {
	_, err := NewService(&stubTimelineRepo{}).Export(context.Background(), TimelineFilters{})
	require.ErrorIs(t, err, shared.ErrUnauthorized)
}

func TestServicePropagatesStoreFailure(t *testing.T) {
	repo := &stubTimelineRepo{err: errors.Join(shared.ErrDependency, errors.New("conn reset"))}
	_, err := NewService(repo).Timeline(context.Background(), TimelineFilters{ActorID: uuid.New()})
	require.ErrorIs(t, err, shared.ErrDependency)
}

func TestWriteCSV(t *testing.T) {
	row := event("2024-03-10T10:00:00Z", shared.AuditInvoicePaid, "inv-1")
	row.Meta = map[string]any{"amount": "120.00"}

	out, err := WriteCSV([]TimelineRow{row})
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	require.Len(t, lines, 2)
	require.Equal(t, "occurred_at,action,entity,entity_id,meta", lines[0])
	require.Equal(t, `2024-03-10T10:00:00Z,invoice.paid,invoice,inv-1,"{""amount"":""120.00""}"`, lines[1])
}
