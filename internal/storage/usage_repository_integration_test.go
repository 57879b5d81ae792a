package storage

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// integrationDB connects to the database named by TEST_DATABASE_URL and
// skips the test when none is available.
func integrationDB(t *testing.T) *DB {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping database integration test")
	}

	db, err := NewDB(DBConfig{
		DSN:             dsn,
		MaxOpenConns:    5,
		MaxIdleConns:    2,
		ConnMaxLifetime: time.Minute,
		ConnMaxIdleTime: time.Minute,
	})
	if err != nil {
		t.Skipf("Database not available for testing: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	require.NoError(t, db.EnsureSchema(ctx))

	_, err = db.conn.ExecContext(ctx, "TRUNCATE usage_records")
	require.NoError(t, err)

	return db
}

func integrationRecord(requestID, fingerprint string) *UsageRecord {
	return &UsageRecord{
		ID:          uuid.New(),
		RequestID:   requestID,
		Fingerprint: fingerprint,
		Provider:    "openai",
		Model:       "openai:gpt-4o",
		Outcome:     "ok",
		StatusCode:  200,
		Timestamp:   time.Now(),
	}
}

func TestUsageRepositoryIntegration(t *testing.T) {
	ctx := context.Background()

	t.Run("batch commits every row", func(t *testing.T) {
		repo := integrationDB(t).NewUsageRepository()

		batch := []*UsageRecord{
			integrationRecord("batch-1", "fp-batch"),
			integrationRecord("batch-2", "fp-batch"),
			integrationRecord("batch-3", "fp-batch"),
		}
		require.NoError(t, repo.InsertBatch(ctx, batch))

		count, err := repo.CountByFingerprint(ctx, "fp-batch",
			time.Now().Add(-time.Hour), time.Now().Add(time.Hour))
		require.NoError(t, err)
		assert.Equal(t, 3, count)

		got, err := repo.GetByRequestID(ctx, "batch-2")
		require.NoError(t, err)
		assert.Equal(t, "fp-batch", got.Fingerprint)
	})

	t.Run("failed batch leaves no rows behind", func(t *testing.T) {
		repo := integrationDB(t).NewUsageRepository()

		// The duplicate primary key makes the third insert fail; the
		// earlier rows of the batch must roll back with it.
		existing := integrationRecord("pre-existing", "fp-rollback")
		require.NoError(t, repo.Create(ctx, existing))

		duplicate := integrationRecord("duplicate", "fp-rollback")
		duplicate.ID = existing.ID

		batch := []*UsageRecord{
			integrationRecord("rolled-back-1", "fp-rollback"),
			integrationRecord("rolled-back-2", "fp-rollback"),
			duplicate,
		}
		require.Error(t, repo.InsertBatch(ctx, batch))

		count, err := repo.CountByFingerprint(ctx, "fp-rollback",
			time.Now().Add(-time.Hour), time.Now().Add(time.Hour))
		require.NoError(t, err)
		assert.Equal(t, 1, count)

		_, err = repo.GetByRequestID(ctx, "rolled-back-1")
		assert.ErrorIs(t, err, ErrUsageRecordNotFound)
	})

	t.Run("missing request id reports not found", func(t *testing.T) {
		repo := integrationDB(t).NewUsageRepository()

		_, err := repo.GetByRequestID(ctx, "never-written")
		assert.ErrorIs(t, err, ErrUsageRecordNotFound)
	})

	t.Run("queries filter by fingerprint and model", func(t *testing.T) {
		repo := integrationDB(t).NewUsageRepository()

		require.NoError(t, repo.Create(ctx, integrationRecord("q-1", "fp-a")))
		require.NoError(t, repo.Create(ctx, integrationRecord("q-2", "fp-b")))

		byFp, err := repo.GetByFingerprint(ctx, "fp-a",
			time.Now().Add(-time.Hour), time.Now().Add(time.Hour), 10, 0)
		require.NoError(t, err)
		require.Len(t, byFp, 1)
		assert.Equal(t, "q-1", byFp[0].RequestID)

		byModel, err := repo.GetByModel(ctx, "openai:gpt-4o",
			time.Now().Add(-time.Hour), time.Now().Add(time.Hour), 10, 0)
		require.NoError(t, err)
		assert.Len(t, byModel, 2)
	})
}
