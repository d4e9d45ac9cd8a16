package heartbeat

import (
	"errors"
	"fmt"
	"time"

	"heartbeat-controlplane/services/license"
)

var ErrInvalidExpiration = errors.New("heartbeat: license expiration data is inconsistent")

type ExpirationState int

const (
	ExpirationStateNone ExpirationState = iota
	ExpirationStateFixed
	ExpirationStateUnstarted
	ExpirationStateStarted
)

func (s ExpirationState) String() string {
	switch s {
	case ExpirationStateNone:
		return "none"
	case ExpirationStateFixed:
		return "date"
	case ExpirationStateUnstarted:
		return "duration_unstarted"
	case ExpirationStateStarted:
		return "duration_started"
	default:
		return "unknown"
	}
}

func expirationState(l *license.License) (ExpirationState, error) {
	switch l.ExpirationType {
	case license.ExpirationNone, "":
		return ExpirationStateNone, nil
	case license.ExpirationDate:
		if l.ExpirationDate == nil {
			return 0, fmt.Errorf("%w: DATE license %s has no expiration date", ErrInvalidExpiration, l.ID)
		}
		return ExpirationStateFixed, nil
	case license.ExpirationDuration:
		if l.ExpirationDate != nil {
			return ExpirationStateStarted, nil
		}
		if l.ExpirationDays == nil || *l.ExpirationDays < 0 {
			return 0, fmt.Errorf("%w: DURATION license %s has no expiration days", ErrInvalidExpiration, l.ID)
		}
		return ExpirationStateUnstarted, nil
	default:
		return 0, fmt.Errorf("%w: unknown expiration type %q", ErrInvalidExpiration, l.ExpirationType)
	}
}

// Expiration is the outcome of evaluating a license's expiration policy.
// ActivateAt is set when this heartbeat starts a DURATION license's clock.
type Expiration struct {
	State      ExpirationState
	Expired    bool
	ActivateAt *time.Time
}

func EvaluateExpiration(l *license.License, now time.Time) (Expiration, error) {
	state, err := expirationState(l)
	if err != nil {
		return Expiration{}, err
	}

	switch state {
	case ExpirationStateFixed, ExpirationStateStarted:
		return Expiration{State: state, Expired: now.After(*l.ExpirationDate)}, nil
	case ExpirationStateUnstarted:
		at := now.Add(time.Duration(*l.ExpirationDays) * 24 * time.Hour)
		return Expiration{State: state, ActivateAt: &at}, nil
	default:
		return Expiration{State: state}, nil
	}
}
