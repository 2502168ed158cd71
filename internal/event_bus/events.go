package event_bus

import (
	"time"

	"github.com/google/uuid"
)

// TimeEntryAppended is published after a ledger entry is stored. Hours is signed: reversal
// entries carry the negated hours of the entry they cancel.
type TimeEntryAppended struct {
	EntryId  uuid.UUID
	TenantId int
	ClientId int
	Date     time.Time
	Hours    float64
	Billable bool
}

type DeliverableStatusUpdated struct {
	DeliverableId int
	TenantId      int
	ClientId      int
	From          string
	To            string
	ChangedAt     time.Time
}
