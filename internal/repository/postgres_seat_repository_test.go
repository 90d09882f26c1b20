package repository

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prohmpiriya/studycafe-seatmap/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// getPostgresPool creates a PostgreSQL connection pool for testing
func getPostgresPool(t *testing.T) *pgxpool.Pool {
	skipIfNoIntegration(t)

	connStr := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		getEnv("TEST_POSTGRES_USER", "postgres"),
		getEnv("TEST_POSTGRES_PASSWORD", "postgres"),
		getEnv("TEST_POSTGRES_HOST", "localhost"),
		getEnv("TEST_POSTGRES_PORT", "5432"),
		getEnv("TEST_POSTGRES_DB", "studycafe_test"),
	)

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	require.NoError(t, pool.Ping(ctx))
	return pool
}

func TestPostgresSeatRepository_ListByCafe(t *testing.T) {
	pool := getPostgresPool(t)
	defer pool.Close()

	ctx := context.Background()
	cafeID := uuid.New().String()

	_, err := pool.Exec(ctx, `INSERT INTO cafes (id, name) VALUES ($1, 'test cafe')`, cafeID)
	require.NoError(t, err)
	defer pool.Exec(ctx, `DELETE FROM cafes WHERE id = $1`, cafeID)

	_, err = pool.Exec(ctx, `
		INSERT INTO seats (id, cafe_id, label, placement, sort_order) VALUES
			($1::text || '-b', $1, 'B-1', '60,0,40,40', 2),
			($1::text || '-a', $1, 'A-1', '0,0,40,40', 1),
			($1::text || '-w', $1, 'WALL-1', '0,-20,200,10', 1)
	`, cafeID)
	require.NoError(t, err)

	repo := NewPostgresSeatRepository(pool)

	seats, err := repo.ListByCafe(ctx, cafeID)
	require.NoError(t, err)
	require.Len(t, seats, 3)
	assert.Equal(t, "A-1", seats[0].Label)
	assert.Equal(t, "WALL-1", seats[1].Label)
	assert.Equal(t, "60,0,40,40", seats[2].Placement)

	_, err = repo.ListByCafe(ctx, uuid.New().String())
	assert.ErrorIs(t, err, domain.ErrCafeNotFound)
}
