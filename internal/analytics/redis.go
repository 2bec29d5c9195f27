// Package analytics counts fire events in Redis time buckets. Counting is
// best-effort: a Redis outage never affects delivery.
package analytics

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"notehub/internal/domain"
)

const (
	DefaultWindow    = time.Minute
	DefaultRetention = 30 * 24 * time.Hour
)

type RedisSink struct {
	client    *redis.Client
	window    time.Duration
	retention time.Duration
}

func NewRedisSink(client *redis.Client) *RedisSink {
	return &RedisSink{
		client:    client,
		window:    DefaultWindow,
		retention: DefaultRetention,
	}
}

// WithWindow sets the bucket granularity. Supported values are one minute,
// five minutes and one hour; anything else falls back to one minute.
func (s *RedisSink) WithWindow(window time.Duration) *RedisSink {
	s.window = window
	return s
}

// WithRetention sets how long counters are kept before Redis expires them.
func (s *RedisSink) WithRetention(retention time.Duration) *RedisSink {
	s.retention = retention
	return s
}

// Record increments the firing counter for the event's subject in the bucket
// covering its scheduled time. Errors are logged and swallowed.
func (s *RedisSink) Record(ctx context.Context, event domain.FireEvent) {
	key := buildKey(event.SubjectID, event.ScheduledAt, s.window)

	pipe := s.client.Pipeline()
	pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, s.retention)

	if _, err := pipe.Exec(ctx); err != nil {
		log.Printf("analytics: redis pipeline: %v", err)
	}
}

// Count returns the firing counter for a subject in the bucket covering t.
// A missing key reads as zero.
func (s *RedisSink) Count(ctx context.Context, subjectID string, t time.Time) (int64, error) {
	key := buildKey(subjectID, t, s.window)
	n, err := s.client.Get(ctx, key).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("redis get: %w", err)
	}
	return n, nil
}

func buildKey(subjectID string, t time.Time, window time.Duration) string {
	bucket := truncateToBucket(t, window)
	return fmt.Sprintf("n:%s:fired:%s", subjectID, bucket)
}

func truncateToBucket(t time.Time, window time.Duration) string {
	t = t.UTC()
	switch window {
	case time.Minute:
		return t.Format("200601021504")
	case 5 * time.Minute:
		minute := (t.Minute() / 5) * 5
		return t.Format("2006010215") + fmt.Sprintf("%02d", minute)
	case time.Hour:
		return t.Format("2006010215")
	default:
		return t.Format("200601021504")
	}
}
