package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"Kasumi/server/internal/pkg/galois"
	"Kasumi/server/internal/protocol"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigDSN(t *testing.T) {
	cfg := Config{Host: "db", Port: 5433, User: "u", Password: "p", Database: "kasumi", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5433 user=u password=p dbname=kasumi sslmode=disable", cfg.DSN())
}

func TestIsUniqueViolation(t *testing.T) {
	type scenario struct {
		testName string
		err      error
		expected bool
	}

	scenarios := []scenario{
		{"unique violation", &pq.Error{Code: "23505"}, true},
		{"wrapped unique violation", fmt.Errorf("insert: %w", &pq.Error{Code: "23505"}), true},
		{"foreign key violation", &pq.Error{Code: "23503"}, false},
		{"plain error", errors.New("connection refused"), false},
		{"nil", nil, false},
	}

	for _, s := range scenarios {
		t.Run(s.testName, func(t *testing.T) {
			assert.Equal(t, s.expected, isUniqueViolation(s.err))
		})
	}
}

// openTestDB connects to the database named by KASUMI_TEST_DSN or skips
func openTestDB(t *testing.T) *DB {
	t.Helper()
	dsn := os.Getenv("KASUMI_TEST_DSN")
	if dsn == "" {
		t.Skip("KASUMI_TEST_DSN not set")
	}
	db, err := Open(dsn)
	require.NoError(t, err)
	require.NoError(t, db.InitSchema())
	t.Cleanup(func() { db.Close() })
	return db
}

func TestFieldParametersRoundTrip(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	_, err := db.conn.Exec("DELETE FROM field_parameters WHERE degree = 8")
	require.NoError(t, err)

	_, err = db.LoadParameters(ctx, 8)
	assert.ErrorIs(t, err, galois.ErrNotFound)

	params := galois.Parameters{Degree: 8, Polynomial: 0x11D, Generator: 2}
	require.NoError(t, db.SaveParameters(ctx, params))

	loaded, err := db.LoadParameters(ctx, 8)
	require.NoError(t, err)
	assert.Equal(t, params, loaded)

	assert.ErrorIs(t, db.SaveParameters(ctx, galois.Parameters{Degree: 8, Polynomial: 0x11D, Generator: 3}), galois.ErrInvalidGenerator)

	// rows written behind our back are still checked on the way out
	_, err = db.conn.Exec("UPDATE field_parameters SET generator = 3 WHERE degree = 8")
	require.NoError(t, err)
	_, err = db.LoadParameters(ctx, 8)
	assert.ErrorIs(t, err, galois.ErrInvalidGenerator)
}

func TestClientsAndOperations(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	name := "it-" + time.Now().Format("150405.000000")

	missing, err := db.GetClientByName(name)
	require.NoError(t, err)
	assert.Nil(t, missing)

	id, err := db.CreateClient(name, "hash")
	require.NoError(t, err)

	_, err = db.CreateClient(name, "other")
	assert.ErrorIs(t, err, ErrDuplicate)

	client, err := db.GetClientByName(name)
	require.NoError(t, err)
	assert.Equal(t, id, client.ID)
	assert.Equal(t, "hash", client.HashedSecret)

	op := protocol.Operation{ClientID: id, Mode: "GCM", Direction: "decrypt", Blocks: 3, Integrity: "verified", CreatedAt: 42}
	require.NoError(t, db.RecordOperation(ctx, op))

	ops, err := db.ListOperations(ctx, id, 10)
	require.NoError(t, err)
	require.Len(t, ops, 1)
	op.ID = ops[0].ID
	assert.Equal(t, op, ops[0])
}
