package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"Kasumi/server/internal/pkg/galois"
	"Kasumi/server/internal/protocol"

	"github.com/lib/pq"
)

var _ galois.ParameterStore = (*DB)(nil)

// ErrDuplicate is returned when an insert hits a unique constraint
var ErrDuplicate = errors.New("duplicate record")

// uniqueViolation is the postgres SQLSTATE for unique_violation
const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

// DB wraps the database connection and provides query methods
type DB struct {
	conn *sql.DB
}

// Config contains database connection configuration
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// DSN returns the lib/pq connection string
func (cfg Config) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)
}

// New creates a new database connection
func New(cfg Config) (*DB, error) {
	return Open(cfg.DSN())
}

// Open connects using a raw connection string
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}

	// Test the connection
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, err
	}

	return &DB{conn: conn}, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// InitSchema creates all database tables
func (db *DB) InitSchema() error {
	schema := `
	-- API clients allowed to call the cipher routes
	CREATE TABLE IF NOT EXISTS api_clients (
		id BIGSERIAL PRIMARY KEY,
		name VARCHAR(64) UNIQUE NOT NULL,
		hashed_secret VARCHAR(255) NOT NULL,
		created_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT
	);

	-- Galois field parameters, one row per degree
	CREATE TABLE IF NOT EXISTS field_parameters (
		degree INTEGER PRIMARY KEY,
		polynomial BIGINT NOT NULL,
		generator BIGINT NOT NULL,
		created_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT
	);

	-- Audit trail of cipher operations
	CREATE TABLE IF NOT EXISTS operations (
		id BIGSERIAL PRIMARY KEY,
		client_id BIGINT NOT NULL,
		mode VARCHAR(8) NOT NULL,
		direction VARCHAR(8) NOT NULL,
		blocks INTEGER NOT NULL,
		integrity VARCHAR(16) NOT NULL,
		created_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT
	);

	CREATE INDEX IF NOT EXISTS idx_operations_client_id ON operations(client_id);
	`

	_, err := db.conn.Exec(schema)
	return err
}

// API client operations

// CreateClient creates a new API client with a hashed secret.
// A name that is already taken yields ErrDuplicate.
func (db *DB) CreateClient(name, hashedSecret string) (int64, error) {
	var id int64
	err := db.conn.QueryRow(
		"INSERT INTO api_clients (name, hashed_secret) VALUES ($1, $2) RETURNING id",
		name, hashedSecret,
	).Scan(&id)
	if isUniqueViolation(err) {
		return 0, fmt.Errorf("%w: client %q", ErrDuplicate, name)
	}
	return id, err
}

// GetClientByName retrieves a client by name, or nil when absent
func (db *DB) GetClientByName(name string) (*APIClient, error) {
	client := &APIClient{}
	err := db.conn.QueryRow(
		"SELECT id, name, hashed_secret, created_at FROM api_clients WHERE name = $1",
		name,
	).Scan(&client.ID, &client.Name, &client.HashedSecret, &client.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	return client, err
}

// Field parameter operations

// LoadParameters returns the stored parameters for a degree
func (db *DB) LoadParameters(ctx context.Context, degree uint) (galois.Parameters, error) {
	params := galois.Parameters{Degree: degree}
	var poly, gen int64
	err := db.conn.QueryRowContext(ctx,
		"SELECT polynomial, generator FROM field_parameters WHERE degree = $1",
		int64(degree),
	).Scan(&poly, &gen)

	if errors.Is(err, sql.ErrNoRows) {
		return galois.Parameters{}, galois.ErrNotFound
	}
	if err != nil {
		return galois.Parameters{}, err
	}

	params.Polynomial = uint64(poly)
	params.Generator = uint64(gen)
	return params, params.Verify()
}

// SaveParameters stores parameters for their degree, replacing older ones
func (db *DB) SaveParameters(ctx context.Context, params galois.Parameters) error {
	if err := params.Verify(); err != nil {
		return err
	}
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO field_parameters (degree, polynomial, generator) VALUES ($1, $2, $3)
		ON CONFLICT (degree) DO UPDATE SET polynomial = EXCLUDED.polynomial, generator = EXCLUDED.generator`,
		int64(params.Degree), int64(params.Polynomial), int64(params.Generator),
	)
	return err
}

// Operation log

// RecordOperation appends an audit record
func (db *DB) RecordOperation(ctx context.Context, op protocol.Operation) error {
	_, err := db.conn.ExecContext(ctx,
		"INSERT INTO operations (client_id, mode, direction, blocks, integrity, created_at) VALUES ($1, $2, $3, $4, $5, $6)",
		op.ClientID, op.Mode, op.Direction, op.Blocks, op.Integrity, op.CreatedAt,
	)
	return err
}

// ListOperations returns the latest operations of a client, newest first
func (db *DB) ListOperations(ctx context.Context, clientID int64, limit int) ([]protocol.Operation, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, client_id, mode, direction, blocks, integrity, created_at
		FROM operations WHERE client_id = $1 ORDER BY id DESC LIMIT $2`,
		clientID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ops []protocol.Operation
	for rows.Next() {
		var op protocol.Operation
		if err := rows.Scan(&op.ID, &op.ClientID, &op.Mode, &op.Direction, &op.Blocks, &op.Integrity, &op.CreatedAt); err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}
	return ops, rows.Err()
}

// APIClient represents a registered API client
type APIClient struct {
	ID           int64
	Name         string
	HashedSecret string
	CreatedAt    int64
}
