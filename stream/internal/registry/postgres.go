package registry

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres looks bindings up in a relational table with agent_id and machine_id columns.
type Postgres struct {
	pool  *pgxpool.Pool
	query string
}

// NewPostgres connects to connString and verifies the connection.
func NewPostgres(ctx context.Context, connString, table string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return NewPostgresFromPool(pool, table), nil
}

// NewPostgresFromPool wraps an existing pool.
func NewPostgresFromPool(pool *pgxpool.Pool, table string) *Postgres {
	if table == "" {
		table = DefaultPostgresTable
	}
	ident := pgx.Identifier{table}.Sanitize()
	return &Postgres{
		pool:  pool,
		query: "SELECT machine_id FROM " + ident + " WHERE agent_id = $1 LIMIT 1",
	}
}

// FindMachineIDByAgentID returns the machine bound to agentID. A NULL or
// empty machine_id is a miss.
func (p *Postgres) FindMachineIDByAgentID(ctx context.Context, agentID string) (string, bool, error) {
	var machineID pgtype.Text
	err := p.pool.QueryRow(ctx, p.query, agentID).Scan(&machineID)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("query machine for agent %s: %w", agentID, err)
	}
	if !machineID.Valid || machineID.String == "" {
		return "", false, nil
	}
	return machineID.String, true, nil
}

// Ping checks the connection.
func (p *Postgres) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

// Close closes the pool.
func (p *Postgres) Close() {
	p.pool.Close()
}
