package service

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/sakif/study-helper/internal/apperror"
	"github.com/sakif/study-helper/internal/completion"
	"github.com/sakif/study-helper/internal/model"
	"github.com/sakif/study-helper/internal/quota"
)

// MaxInputLength caps the user text of a completion request.
const MaxInputLength = 5000

// AssistService proxies completion requests to the upstream provider,
// gated by the per-user daily quota.
//
// Order of operations matters: admission is checked first, the upstream
// call happens second, and the counter is incremented only after the call
// succeeds. Failed upstream calls are free.
type AssistService struct {
	client  completion.Client
	tracker *quota.Tracker
	logger  *slog.Logger
}

// NewAssistService creates an AssistService. client may be nil when the
// provider is not configured; requests then fail with an upstream error
// while the rest of the API keeps working.
func NewAssistService(client completion.Client, tracker *quota.Tracker, logger *slog.Logger) *AssistService {
	return &AssistService{
		client:  client,
		tracker: tracker,
		logger:  logger,
	}
}

// UsageStats is the usage snapshot returned alongside completions and from
// the usage endpoint.
type UsageStats struct {
	Used        int       `json:"used"`
	Limit       int       `json:"limit"`
	Remaining   int       `json:"remaining"`
	WindowStart time.Time `json:"windowStart"`
	ResetsIn    string    `json:"resetsIn"`
}

// AssistResult is a completed proxy call.
type AssistResult struct {
	Result string
	Usage  UsageStats
}

// Complete validates the request, checks quota admission, calls the
// upstream provider, and on success records the consumed request.
func (s *AssistService) Complete(ctx context.Context, user *model.User, systemPrompt, userText string) (*AssistResult, error) {
	if systemPrompt == "" || userText == "" {
		return nil, apperror.ValidationFailed("userText", "missing systemPrompt or userText")
	}
	if len(userText) > MaxInputLength {
		return nil, apperror.ValidationFailed("userText",
			fmt.Sprintf("input text cannot exceed %d characters", MaxInputLength))
	}

	allowed, err := s.tracker.CheckAdmission(ctx, user)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, apperror.QuotaExceeded(fmt.Sprintf(
			"daily API limit reached, resets in %s", s.resetHint(user)))
	}

	if s.client == nil {
		return nil, apperror.Upstream("completion API is not configured")
	}

	result, err := s.client.Complete(ctx, completion.Request{
		SystemPrompt: systemPrompt,
		UserText:     userText,
	})
	if err != nil {
		// The quota is not consumed on failure.
		s.logger.Error("completion call failed",
			slog.String("userID", user.ID),
			slog.String("error", err.Error()),
		)
		return nil, apperror.Upstream("failed to process AI request")
	}

	if err := s.tracker.Increment(ctx, user); err != nil {
		// The upstream call succeeded but the count didn't stick. Return
		// the result anyway — the user paid for it with upstream latency —
		// and log the discrepancy.
		s.logger.Error("failed to record usage after successful completion",
			slog.String("userID", user.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.Info("completion served",
		slog.String("userID", user.ID),
		slog.Int("totalTokens", result.TotalTokens),
		slog.Int("used", user.Usage.RequestCount),
	)

	return &AssistResult{
		Result: result.Text,
		Usage:  s.Usage(user),
	}, nil
}

// Usage returns the user's current usage snapshot. Reads never persist a
// window reset; an expired window simply reads as a full allowance.
func (s *AssistService) Usage(user *model.User) UsageStats {
	remaining := s.tracker.Remaining(user)
	return UsageStats{
		Used:        user.Usage.DailyLimit - remaining,
		Limit:       user.Usage.DailyLimit,
		Remaining:   remaining,
		WindowStart: user.Usage.WindowStart,
		ResetsIn:    s.resetHint(user),
	}
}

// ResetUsage forces the user's window to restart immediately.
func (s *AssistService) ResetUsage(ctx context.Context, user *model.User) (UsageStats, error) {
	if err := s.tracker.Reset(ctx, user); err != nil {
		return UsageStats{}, err
	}
	return s.Usage(user), nil
}

// resetHint renders the time-to-reset as a rounded-up hour count, e.g.
// "23 hours", or "ready to reset" when the window has already expired.
func (s *AssistService) resetHint(user *model.User) string {
	left := s.tracker.TimeUntilReset(user)
	if left <= 0 {
		return "ready to reset"
	}
	return fmt.Sprintf("%d hours", int(math.Ceil(left.Hours())))
}
