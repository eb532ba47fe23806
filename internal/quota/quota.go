// Package quota caps how many simulations each user may start per period. Every simulation
// spends content, speech and avatar vendor credits, so the cap is enforced before the run.
package quota

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// ErrExceeded is returned when a user has no simulations left in the current period.
var ErrExceeded = errors.New("quota exceeded")

// Limiter hands out per-user token buckets refilled evenly over the period.
// A nil *Limiter allows everything.
type Limiter struct {
	mu      sync.Mutex
	perUser map[uuid.UUID]*rate.Limiter
	limit   rate.Limit
	burst   int
}

// NewLimiter allows count simulations per period. count <= 0 returns nil (no limit).
func NewLimiter(count int, period string) *Limiter {
	if count <= 0 {
		return nil
	}
	return &Limiter{
		perUser: make(map[uuid.UUID]*rate.Limiter),
		limit:   rate.Every(PeriodDuration(period) / time.Duration(count)),
		burst:   count,
	}
}

// Reservation is one simulation taken from a user's allowance.
type Reservation struct {
	r  *rate.Reservation
	at time.Time
}

// Refund hands the simulation back. A nil Reservation is a no-op.
func (r *Reservation) Refund() {
	if r == nil {
		return
	}
	// Cancelling at the reservation's own instant restores the token even after it is spent.
	r.r.CancelAt(r.at)
}

// Reserve takes one simulation from userID's allowance; Refund gives it back
// when the simulation could not be started.
func (l *Limiter) Reserve(userID uuid.UUID) (*Reservation, error) {
	if l == nil {
		return nil, nil
	}
	now := time.Now()
	r := l.forUser(userID).ReserveN(now, 1)
	if !r.OK() || r.DelayFrom(now) > 0 {
		r.CancelAt(now)
		return nil, ErrExceeded
	}
	return &Reservation{r: r, at: now}, nil
}

// Consume takes one simulation from userID's allowance.
func (l *Limiter) Consume(userID uuid.UUID) error {
	_, err := l.Reserve(userID)
	return err
}

func (l *Limiter) forUser(userID uuid.UUID) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	lim, ok := l.perUser[userID]
	if !ok {
		lim = rate.NewLimiter(l.limit, l.burst)
		l.perUser[userID] = lim
	}
	return lim
}

// PeriodDuration maps a period name onto its length; unknown names are daily.
func PeriodDuration(period string) time.Duration {
	switch period {
	case "hourly":
		return time.Hour
	case "daily":
		return 24 * time.Hour
	case "weekly":
		return 7 * 24 * time.Hour
	case "monthly":
		return 30 * 24 * time.Hour
	default:
		return 24 * time.Hour
	}
}
