package audit

import (
	"time"

	"github.com/google/uuid"
)

// TimelineFilters narrows the activity timeline of one user.
type TimelineFilters struct {
	ActorID  uuid.UUID
	From     time.Time
	To       time.Time
	Entity   string
	EntityID string
	Action   string
	Page     int
	PageSize int
}

// TimelineRow is one recorded lifecycle event.
type TimelineRow struct {
	At       time.Time
	Action   string
	Entity   string
	EntityID string
	Meta     map[string]any
}

// PagingInfo carries simple next/prev paging metadata.
type PagingInfo struct {
	Page     int
	HasNext  bool
	PageSize int
	PrevPage int
	NextPage int
}

// Result wraps a timeline page.
type Result struct {
	Rows   []TimelineRow
	Paging PagingInfo
}
