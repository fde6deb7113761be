package sink

import (
	"context"
	"errors"
	"fmt"
	"net"
	"regexp"
	"time"

	"github.com/gocql/gocql"

	"github.com/openframe-oss/openframe-stream/stream/internal/model"
)

// LogTable is the Cassandra table holding unified log records.
const LogTable = "unified_logs"

var keyspacePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,47}$`)

// Executor runs one CQL statement.
type Executor interface {
	Exec(ctx context.Context, stmt string, values ...any) error
}

// SessionExecutor runs statements on a gocql session.
type SessionExecutor struct {
	Session *gocql.Session
}

// Exec runs stmt with values bound.
func (e SessionExecutor) Exec(ctx context.Context, stmt string, values ...any) error {
	return e.Session.Query(stmt, values...).WithContext(ctx).Exec()
}

// CassandraConfig holds Cassandra connection settings.
type CassandraConfig struct {
	Hosts       []string
	Keyspace    string
	Consistency string
	Username    string
	Password    string
	Timeout     time.Duration
}

// NewCassandraSession opens a session for cfg.
func NewCassandraSession(cfg CassandraConfig) (*gocql.Session, error) {
	if len(cfg.Hosts) == 0 {
		return nil, fmt.Errorf("cassandra hosts not configured")
	}

	cluster := gocql.NewCluster(cfg.Hosts...)
	cluster.Keyspace = cfg.Keyspace
	if cfg.Timeout > 0 {
		cluster.Timeout = cfg.Timeout
		cluster.ConnectTimeout = cfg.Timeout
	}
	if cfg.Consistency != "" {
		consistency, err := gocql.ParseConsistencyWrapper(cfg.Consistency)
		if err != nil {
			return nil, fmt.Errorf("invalid cassandra consistency %q: %w", cfg.Consistency, err)
		}
		cluster.Consistency = consistency
	}
	if cfg.Username != "" {
		cluster.Authenticator = gocql.PasswordAuthenticator{
			Username: cfg.Username,
			Password: cfg.Password,
		}
	}

	session, err := cluster.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("failed to create cassandra session: %w", err)
	}
	return session, nil
}

// CassandraSink upserts UnifiedLogRecords into unified_logs. Cassandra INSERT
// overwrites rows with the same primary key, so redeliveries are idempotent.
type CassandraSink struct {
	exec Executor
	stmt string
}

// NewCassandraSink creates a sink writing to keyspace.unified_logs.
func NewCassandraSink(exec Executor, keyspace string) (*CassandraSink, error) {
	if !keyspacePattern.MatchString(keyspace) {
		return nil, fmt.Errorf("invalid cassandra keyspace %q", keyspace)
	}
	return &CassandraSink{
		exec: exec,
		stmt: "INSERT INTO " + keyspace + "." + LogTable + " (" +
			"ingest_day, tool_type, event_type, event_timestamp, tool_event_id, " +
			"unified_event_type, user_id, device_id, severity, message, details" +
			") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
	}, nil
}

// Push writes r.
func (s *CassandraSink) Push(ctx context.Context, r *model.UnifiedLogRecord) error {
	if r == nil {
		return Fatal(model.DestinationLogStore, errors.New("nil record"))
	}
	details := r.Details
	if details == nil {
		details = map[string]string{}
	}

	err := s.exec.Exec(ctx, s.stmt,
		r.IngestDay,
		string(r.ToolType),
		r.EventType,
		r.EventTimestamp,
		r.ToolEventID,
		r.UnifiedEventType,
		r.UserID,
		r.DeviceID,
		string(r.Severity),
		r.Message,
		details,
	)
	if err != nil {
		return classifyCassandra(err)
	}
	return nil
}

func classifyCassandra(err error) error {
	var reqErr gocql.RequestError
	if errors.As(err, &reqErr) {
		switch reqErr.Code() {
		case gocql.ErrCodeSyntax, gocql.ErrCodeInvalid, gocql.ErrCodeUnauthorized,
			gocql.ErrCodeConfig, gocql.ErrCodeCredentials, gocql.ErrCodeProtocol:
			return Fatal(model.DestinationLogStore, err)
		}
		return Retryable(model.DestinationLogStore, err)
	}

	var netErr net.Error
	var marshalErr gocql.MarshalError
	switch {
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, gocql.ErrNoConnections),
		errors.Is(err, gocql.ErrTimeoutNoResponse),
		errors.Is(err, gocql.ErrConnectionClosed),
		errors.As(err, &netErr):
		return Retryable(model.DestinationLogStore, err)
	case errors.As(err, &marshalErr):
		return Fatal(model.DestinationLogStore, err)
	}
	return Retryable(model.DestinationLogStore, err)
}
