package timelog

import (
	"time"

	"github.com/google/uuid"
)

type Kind string

const (
	KindRegular Kind = "regular"
	// KindReversal cancels exactly one regular entry. Its hours are stored positive and count negative in every sum.
	KindReversal Kind = "reversal"
)

// Entry is an immutable record of hours spent for a client. Corrections are new reversal entries.
type Entry struct {
	Id          uuid.UUID
	Seq         int64
	TenantId    int
	ClientId    int `validate:"gt=0"`
	TaskId      *int
	UserId      int
	Date        time.Time `validate:"required"`
	Hours       float64   `validate:"gt=0,quarterhour"`
	Description string    `validate:"max=2000"`
	Billable    bool
	Kind        Kind
	ReversesId  *uuid.UUID
	CreatedAt   time.Time
}

// SignedHours is the contribution of the entry to any ledger sum.
func (e Entry) SignedHours() float64 {
	if e.Kind == KindReversal {
		return -e.Hours
	}
	return e.Hours
}

func (e Entry) IsReversal() bool {
	return e.Kind == KindReversal
}

// Sum folds entries into their signed total, optionally skipping non-billable ones.
func Sum(entries []Entry, billableOnly bool) float64 {
	total := 0.0
	for _, e := range entries {
		if billableOnly && !e.Billable {
			continue
		}
		total += e.SignedHours()
	}
	return total
}
