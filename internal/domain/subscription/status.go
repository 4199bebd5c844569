// Package subscription models a shop's trial/paid subscription state and the
// rules that derive remaining trial days and the lazy trial expiry.
package subscription

import (
	"fmt"
	"time"

	"github.com/tallerhub/tallerhub/internal/domain/auth"
)

// Status is a tenant's subscription state.
type Status string

const (
	StatusTrial   Status = "trial"
	StatusActive  Status = "active"
	StatusExpired Status = "expired"
)

// Stored column values for estado_suscripcion.
const (
	storedTrial   = "prueba"
	storedActive  = "activo"
	storedExpired = "expirado"
)

// DefaultModalThresholdDays is the number of remaining trial days at or below
// which the expiry modal is shown.
const DefaultModalThresholdDays = 3

const day = 24 * time.Hour

// ParseStored maps an estado_suscripcion value to a Status.
func ParseStored(s string) (Status, error) {
	switch s {
	case storedTrial:
		return StatusTrial, nil
	case storedActive:
		return StatusActive, nil
	case storedExpired:
		return StatusExpired, nil
	default:
		return "", fmt.Errorf("unknown subscription status %q", s)
	}
}

// StoredName returns the estado_suscripcion value for s.
func (s Status) StoredName() string {
	switch s {
	case StatusTrial:
		return storedTrial
	case StatusActive:
		return storedActive
	case StatusExpired:
		return storedExpired
	default:
		return ""
	}
}

// TrialWindow is the trial start/end pair set at tenant creation.
type TrialWindow struct {
	Start *time.Time
	End   *time.Time
}

// Record is the subscription slice of a tenant row.
type Record struct {
	TenantID string
	Status   Status
	Trial    TrialWindow
}

// Evaluation is the outcome of applying the trial rules to a Record at a point in time.
type Evaluation struct {
	Status        Status
	DaysRemaining *int
	// Expire is set when the record must be persisted as expired.
	Expire bool
}

// Evaluate derives the reported status and remaining days for rec at now.
// Non-trial states are returned verbatim. A trial whose end has passed is
// reported as expired and flagged for persistence.
func Evaluate(rec Record, now time.Time) Evaluation {
	if rec.Status != StatusTrial {
		return Evaluation{Status: rec.Status}
	}
	if rec.Trial.End == nil {
		return Evaluation{Status: StatusTrial}
	}

	days := DaysRemaining(*rec.Trial.End, now)
	if days == 0 && now.After(*rec.Trial.End) {
		return Evaluation{Status: StatusExpired, DaysRemaining: &days, Expire: true}
	}
	return Evaluation{Status: StatusTrial, DaysRemaining: &days}
}

// DaysRemaining returns ceil((end - now) / 24h), floored at zero.
func DaysRemaining(end, now time.Time) int {
	d := end.Sub(now)
	if d <= 0 {
		return 0
	}
	n := int(d / day)
	if d%day != 0 {
		n++
	}
	return n
}

// Resolution is what the status resolver publishes to the shell.
type Resolution struct {
	Status        Status `json:"status,omitempty"`
	DaysRemaining *int   `json:"days_remaining"`
	// Idle marks a resolution that was skipped: no tenant, or an exempt role.
	Idle bool `json:"idle"`
}

// IdleResolution is the non-updating state used when gating does not apply.
func IdleResolution() Resolution { return Resolution{Idle: true} }

// FromEvaluation converts an evaluation into a published resolution.
// A lazily expired trial keeps its zero day count.
func FromEvaluation(ev Evaluation) Resolution {
	return Resolution{Status: ev.Status, DaysRemaining: ev.DaysRemaining}
}

// ShowExpiryModal reports whether the trial-expiry modal must be shown.
// Exempt roles and idle resolutions never see it.
func ShowExpiryModal(role *auth.Role, res Resolution, thresholdDays int) bool {
	if res.Idle {
		return false
	}
	if role != nil && role.ExemptFromTrial() {
		return false
	}
	switch res.Status {
	case StatusExpired:
		return true
	case StatusTrial:
		return res.DaysRemaining != nil && *res.DaysRemaining <= thresholdDays
	default:
		return false
	}
}
