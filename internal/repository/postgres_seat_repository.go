package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prohmpiriya/studycafe-seatmap/internal/domain"
	"github.com/prohmpiriya/studycafe-seatmap/internal/seatmap"
	"github.com/prohmpiriya/studycafe-seatmap/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// PostgresSeatRepository implements SeatRepository using PostgreSQL with pgxpool
type PostgresSeatRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresSeatRepository creates a new PostgresSeatRepository
func NewPostgresSeatRepository(pool *pgxpool.Pool) *PostgresSeatRepository {
	return &PostgresSeatRepository{pool: pool}
}

// ListByCafe loads the seats of a cafe ordered by sort_order, then id
func (r *PostgresSeatRepository) ListByCafe(ctx context.Context, cafeID string) ([]seatmap.RawSeat, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.seat.list_by_cafe")
	defer span.End()

	span.SetAttributes(attribute.String("cafe_id", cafeID))

	query := `
		SELECT id, label, placement
		FROM seats
		WHERE cafe_id = $1
		ORDER BY sort_order, id
	`

	rows, err := r.pool.Query(ctx, query, cafeID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to query seats: %w", err)
	}
	defer rows.Close()

	var seats []seatmap.RawSeat
	for rows.Next() {
		var (
			seat      seatmap.RawSeat
			label     *string
			placement *string
		)
		if err := rows.Scan(&seat.ID, &label, &placement); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, fmt.Errorf("failed to scan seat: %w", err)
		}
		if label != nil {
			seat.Label = *label
		}
		if placement != nil {
			seat.Placement = *placement
		}
		seats = append(seats, seat)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to iterate seats: %w", err)
	}

	if len(seats) == 0 {
		exists, err := r.cafeExists(ctx, cafeID)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		if !exists {
			span.SetStatus(codes.Error, "cafe not found")
			return nil, domain.ErrCafeNotFound
		}
	}

	span.SetAttributes(attribute.Int("seat_count", len(seats)))
	span.SetStatus(codes.Ok, "")
	return seats, nil
}

func (r *PostgresSeatRepository) cafeExists(ctx context.Context, cafeID string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM cafes WHERE id = $1)`, cafeID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check cafe: %w", err)
	}
	return exists, nil
}

// Ensure PostgresSeatRepository implements SeatRepository
var _ SeatRepository = (*PostgresSeatRepository)(nil)
