package publisher

import (
	"context"
	"time"
)

// Per-platform publish caps: at most DefaultPublishLimit posts per user per
// platform inside the trailing DefaultPublishWindow.
const (
	DefaultPublishLimit  = 5
	DefaultPublishWindow = time.Hour
)

// PublishCounter counts a user's published posts on one platform after an
// instant.
type PublishCounter interface {
	CountPublishedSince(ctx context.Context, userID uint, platform string, since time.Time) (int64, error)
}

// RateLimiter enforces a sliding-window publish cap per (user, platform),
// counted from the store's published rows so it survives restarts.
type RateLimiter struct {
	Counter PublishCounter
	Limit   int
	Window  time.Duration
}

func NewRateLimiter(counter PublishCounter) *RateLimiter {
	return &RateLimiter{
		Counter: counter,
		Limit:   DefaultPublishLimit,
		Window:  DefaultPublishWindow,
	}
}

// Allow reports whether the user may publish one more post to the platform
// right now.
func (l *RateLimiter) Allow(ctx context.Context, userID uint, platform string, now time.Time) (bool, error) {
	count, err := l.Counter.CountPublishedSince(ctx, userID, platform, now.Add(-l.Window))
	if err != nil {
		return false, err
	}
	return count < int64(l.Limit), nil
}
