package engagement

import (
	"github.com/agencydesk/agencydesk/internal/apperror"
)

// ValidateTerms checks the invariants of either variant: a campaign needs an end date after its
// start date and a non-negative total; a retainer needs non-negative monthly hours.
func ValidateTerms(terms Terms) error {
	switch t := terms.(type) {
	case Campaign:
		if t.StartDate.IsZero() {
			return apperror.Invalid("startDate", "is required")
		}
		if t.EndDate.IsZero() {
			return apperror.Invalid("endDate", "is required")
		}
		if !t.EndDate.After(t.StartDate) {
			return apperror.Invalid("endDate", "must be after startDate")
		}
		return apperror.ValidateStruct(t)
	case Retainer:
		if !t.Rollover.Valid() {
			return apperror.Invalid("rollover", "has an unsupported value")
		}
		return apperror.ValidateStruct(t)
	case nil:
		return apperror.Invalid("terms", "is required")
	default:
		return apperror.Invalid("model", "has an unsupported value")
	}
}

func validateEngagement(e Engagement) error {
	if err := apperror.ValidateStruct(e); err != nil {
		return err
	}
	if !e.Status.Valid() {
		return apperror.Invalid("status", "has an unsupported value")
	}
	return ValidateTerms(e.Terms)
}
