// database/event_log.go
package database

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/BotCoder254/streamvibes/models"
	"github.com/gocql/gocql"
)

// EventLog is an append-only store of timestamped engagement events.
type EventLog interface {
	Append(ctx context.Context, e models.EngagementEvent) error
	// Events returns events of the given videos with from <= ts < to.
	Events(ctx context.Context, videoIDs []string, from, to time.Time) ([]models.EngagementEvent, error)
}

type CassandraEventLog struct {
	session *gocql.Session
}

func NewCassandraEventLog(session *gocql.Session) *CassandraEventLog {
	return &CassandraEventLog{session: session}
}

func (l *CassandraEventLog) Append(ctx context.Context, e models.EngagementEvent) error {
	ts := e.Timestamp.UTC()
	id := gocql.UUIDFromTime(ts)
	query := `INSERT INTO engagement_events (video_id, day, ts, event_id, kind, viewer_id, percentage)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	err := l.session.Query(query, e.VideoID, dayOf(ts), ts, id, string(e.Kind), e.ViewerID, e.Percentage).
		WithContext(ctx).Exec()
	if err != nil {
		return models.Wrap("append event", models.ErrStorage, err)
	}
	return nil
}

// Events reads one partition per video and day.
func (l *CassandraEventLog) Events(ctx context.Context, videoIDs []string, from, to time.Time) ([]models.EngagementEvent, error) {
	from, to = from.UTC(), to.UTC()
	var out []models.EngagementEvent
	query := `SELECT event_id, ts, kind, viewer_id, percentage FROM engagement_events
		WHERE video_id = ? AND day = ? AND ts >= ? AND ts < ?`
	for _, videoID := range videoIDs {
		for day := dayOf(from); day.Before(to); day = day.AddDate(0, 0, 1) {
			iter := l.session.Query(query, videoID, day, from, to).WithContext(ctx).Iter()
			var (
				id         gocql.UUID
				ts         time.Time
				kind       string
				viewerID   string
				percentage float64
			)
			for iter.Scan(&id, &ts, &kind, &viewerID, &percentage) {
				out = append(out, models.EngagementEvent{
					EventID:    id.String(),
					VideoID:    videoID,
					Kind:       models.EngagementKind(kind),
					ViewerID:   viewerID,
					Percentage: percentage,
					Timestamp:  ts.UTC(),
				})
			}
			if err := iter.Close(); err != nil {
				return nil, models.Wrap("read events", models.ErrStorage, err)
			}
		}
	}
	return out, nil
}

func dayOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// MemoryEventLog is the in-process EventLog used by tests and the memory profile.
type MemoryEventLog struct {
	mu     sync.RWMutex
	events []models.EngagementEvent
}

func NewMemoryEventLog() *MemoryEventLog {
	return &MemoryEventLog{}
}

func (l *MemoryEventLog) Append(ctx context.Context, e models.EngagementEvent) error {
	l.mu.Lock()
	l.events = append(l.events, e)
	l.mu.Unlock()
	return nil
}

func (l *MemoryEventLog) Events(ctx context.Context, videoIDs []string, from, to time.Time) ([]models.EngagementEvent, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []models.EngagementEvent
	for _, e := range l.events {
		if !slices.Contains(videoIDs, e.VideoID) {
			continue
		}
		if e.Timestamp.Before(from) || !e.Timestamp.Before(to) {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}
