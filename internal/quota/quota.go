// Package quota implements the per-user daily usage limit.
//
// Each account carries a fixed 24-hour window: a request count, the window
// start time, and a daily limit. The window is lazy — there is no
// background job. Whenever the account is touched and 24 hours or more
// have elapsed since the window started, the count resets to zero and the
// window start advances to now. Because the advance is a pure function of
// (now, windowStart, requestCount), an account untouched for days resets
// correctly on its next access instead of accumulating missed resets.
package quota

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sakif/study-helper/internal/model"
	"github.com/sakif/study-helper/internal/repository"
)

// Window is the length of one usage window.
const Window = 24 * time.Hour

// Tracker decides admission for quota-consuming actions and maintains the
// usage counters in the store.
//
// The clock is injectable so window-boundary behavior is testable without
// sleeping; production code uses time.Now.
type Tracker struct {
	users  repository.UserRepository
	logger *slog.Logger
	now    func() time.Time
}

// New creates a Tracker backed by the given user repository.
func New(users repository.UserRepository, logger *slog.Logger) *Tracker {
	return &Tracker{
		users:  users,
		logger: logger,
		now:    time.Now,
	}
}

// NewWithClock creates a Tracker with an injected clock for tests.
func NewWithClock(users repository.UserRepository, logger *slog.Logger, now func() time.Time) *Tracker {
	return &Tracker{users: users, logger: logger, now: now}
}

// advance returns the usage window as seen at time now, applying the lazy
// reset if the window has expired. The bool reports whether a reset
// happened. Pure function — no I/O, no mutation.
func advance(now time.Time, usage model.APIUsage) (model.APIUsage, bool) {
	if usage.WindowStart.IsZero() || now.Sub(usage.WindowStart) >= Window {
		usage.RequestCount = 0
		usage.WindowStart = now
		return usage, true
	}
	return usage, false
}

// CheckAdmission evaluates (and if necessary advances) the user's window,
// then reports whether another quota-consuming request is allowed.
//
// When the lazy reset fires, the new window is persisted before the
// decision is returned, and user.Usage is updated in place so the caller
// sees the post-reset counters. Calling this repeatedly at the same
// instant is idempotent — the reset fires at most once per window.
//
// Concurrent requests for the same account can race between this check and
// the later Increment: slightly more than DailyLimit requests may slip
// through in one window. Counts are never lost (Increment is atomic at the
// store), the limit is just not a hard ceiling under concurrency.
func (t *Tracker) CheckAdmission(ctx context.Context, user *model.User) (bool, error) {
	usage, reset := advance(t.now(), user.Usage)
	if reset {
		if err := t.users.UpdateUsage(ctx, user.ID, usage); err != nil {
			return false, fmt.Errorf("quota: persisting window reset for user %s: %w", user.ID, err)
		}
		user.Usage = usage
		t.logger.Debug("usage window reset",
			slog.String("userID", user.ID),
			slog.Time("windowStart", usage.WindowStart),
		)
	}

	return user.Usage.RequestCount < user.Usage.DailyLimit, nil
}

// Increment records one consumed request.
//
// Call it only after the quota-consuming action succeeded — a failed
// upstream call is free. The store-side counter is bumped atomically and
// the in-memory user is kept in sync.
func (t *Tracker) Increment(ctx context.Context, user *model.User) error {
	if err := t.users.IncrementUsage(ctx, user.ID); err != nil {
		return fmt.Errorf("quota: incrementing usage for user %s: %w", user.ID, err)
	}
	user.Usage.RequestCount++
	return nil
}

// Remaining returns how many requests are left in the current window,
// never negative. It applies the lazy window view (without persisting) so
// a stale counter from an expired window reads as a full allowance.
func (t *Tracker) Remaining(user *model.User) int {
	usage, _ := advance(t.now(), user.Usage)
	return usage.Remaining()
}

// TimeUntilReset returns how long until the current window expires,
// clamped at zero for already-expired windows.
func (t *Tracker) TimeUntilReset(user *model.User) time.Duration {
	if user.Usage.WindowStart.IsZero() {
		return 0
	}
	left := Window - t.now().Sub(user.Usage.WindowStart)
	if left < 0 {
		return 0
	}
	return left
}

// Reset forces the window to restart now with a zero count, regardless of
// elapsed time, and persists it.
func (t *Tracker) Reset(ctx context.Context, user *model.User) error {
	usage := user.Usage
	usage.RequestCount = 0
	usage.WindowStart = t.now()

	if err := t.users.UpdateUsage(ctx, user.ID, usage); err != nil {
		return fmt.Errorf("quota: resetting usage for user %s: %w", user.ID, err)
	}
	user.Usage = usage

	t.logger.Info("usage forcibly reset", slog.String("userID", user.ID))
	return nil
}
