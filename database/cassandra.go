// database/cassandra.go
package database

import (
	"fmt"
	"regexp"
	"time"

	"github.com/BotCoder254/streamvibes/config"
	"github.com/gocql/gocql"
)

var keyspacePattern = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_]{0,47}$`)

// NewCassandraDB connects without a keyspace first, creates the keyspace and
// tables if missing, and returns a session bound to the keyspace.
func NewCassandraDB(cfg config.CassandraConfig) (*gocql.Session, error) {
	if !keyspacePattern.MatchString(cfg.Keyspace) {
		return nil, fmt.Errorf("invalid cassandra keyspace %q", cfg.Keyspace)
	}

	cluster := gocql.NewCluster(cfg.Hosts...)
	cluster.Consistency = gocql.Quorum
	cluster.ProtoVersion = 4
	cluster.ConnectTimeout = 10 * time.Second
	cluster.Timeout = 10 * time.Second

	session, err := cluster.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("cassandra connect: %w", err)
	}
	err = createKeyspace(session, cfg.Keyspace)
	session.Close()
	if err != nil {
		return nil, fmt.Errorf("create keyspace: %w", err)
	}

	cluster.Keyspace = cfg.Keyspace
	keyspaceSession, err := cluster.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("cassandra connect %s: %w", cfg.Keyspace, err)
	}
	if err := createTables(keyspaceSession); err != nil {
		keyspaceSession.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}
	return keyspaceSession, nil
}

func createKeyspace(session *gocql.Session, keyspace string) error {
	query := `
	CREATE KEYSPACE IF NOT EXISTS ` + keyspace + `
	WITH replication = {
		'class': 'SimpleStrategy',
		'replication_factor': 1
	}`
	return session.Query(query).Exec()
}

func createTables(session *gocql.Session) error {
	tables := []string{
		// One partition per video and UTC day.
		`CREATE TABLE IF NOT EXISTS engagement_events (
			video_id TEXT,
			day DATE,
			ts TIMESTAMP,
			event_id TIMEUUID,
			kind TEXT,
			viewer_id TEXT,
			percentage DOUBLE,
			PRIMARY KEY ((video_id, day), ts, event_id)
		) WITH CLUSTERING ORDER BY (ts ASC, event_id ASC)`,
	}

	for _, query := range tables {
		if err := session.Query(query).Exec(); err != nil {
			return err
		}
	}
	return nil
}
