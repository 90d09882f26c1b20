package repository

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/prohmpiriya/studycafe-seatmap/internal/domain"
	"github.com/prohmpiriya/studycafe-seatmap/internal/seatmap"
	pkgredis "github.com/prohmpiriya/studycafe-seatmap/pkg/redis"
	"github.com/prohmpiriya/studycafe-seatmap/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

//go:embed scripts/start_session.lua
var startSessionScript string

const scriptStartSession = "start_session"

// Error codes returned by start_session.lua
const (
	codeSeatOccupied      = "SEAT_OCCUPIED"
	codeUserAlreadySeated = "USER_ALREADY_SEATED"
)

func sessionsKey(cafeID string) string {
	return fmt.Sprintf("cafe:sessions:%s", cafeID)
}

func usersKey(cafeID string) string {
	return fmt.Sprintf("cafe:users:%s", cafeID)
}

// RedisSessionRepository implements SessionRepository using Redis hashes.
// One hash per cafe maps seat id to the session, a second maps user id to
// seat id so a user holds at most one seat per cafe.
type RedisSessionRepository struct {
	client *pkgredis.Client
}

// NewRedisSessionRepository creates a new RedisSessionRepository
func NewRedisSessionRepository(client *pkgredis.Client) *RedisSessionRepository {
	return &RedisSessionRepository{client: client}
}

// LoadScripts loads the Lua scripts into Redis
func (r *RedisSessionRepository) LoadScripts(ctx context.Context) error {
	if _, err := r.client.LoadScript(ctx, scriptStartSession, startSessionScript); err != nil {
		return fmt.Errorf("failed to load script %s: %w", scriptStartSession, err)
	}
	return nil
}

// ListActive returns the sessions of a cafe ordered by start time
func (r *RedisSessionRepository) ListActive(ctx context.Context, cafeID string) ([]seatmap.ActiveSession, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.redis.session.list_active")
	defer span.End()

	span.SetAttributes(attribute.String("cafe_id", cafeID))

	fields, err := r.client.HGetAll(ctx, sessionsKey(cafeID)).Result()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	sessions, err := decodeSessions(fields)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.Int("session_count", len(sessions)))
	span.SetStatus(codes.Ok, "")
	return sessions, nil
}

func decodeSessions(fields map[string]string) ([]seatmap.ActiveSession, error) {
	sessions := make([]seatmap.ActiveSession, 0, len(fields))
	for seatID, raw := range fields {
		var s seatmap.ActiveSession
		if err := json.Unmarshal([]byte(raw), &s); err != nil {
			return nil, fmt.Errorf("failed to decode session for seat %s: %w", seatID, err)
		}
		s.SeatID = seatID
		sessions = append(sessions, s)
	}
	sortSessions(sessions)
	return sessions, nil
}

func sortSessions(sessions []seatmap.ActiveSession) {
	sort.Slice(sessions, func(i, j int) bool {
		if !sessions[i].StartedAt.Equal(sessions[j].StartedAt) {
			return sessions[i].StartedAt.Before(sessions[j].StartedAt)
		}
		return sessions[i].SeatID < sessions[j].SeatID
	})
}

// Start atomically claims the seat through start_session.lua
func (r *RedisSessionRepository) Start(ctx context.Context, session seatmap.ActiveSession) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.redis.session.start")
	defer span.End()

	span.SetAttributes(
		attribute.String("cafe_id", session.CafeID),
		attribute.String("seat_id", session.SeatID),
		attribute.String("user_id", session.UserID),
	)

	payload, err := json.Marshal(session)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to encode session: %w", err)
	}

	keys := []string{sessionsKey(session.CafeID), usersKey(session.CafeID)}
	result := r.client.RunScript(ctx, scriptStartSession, startSessionScript, keys,
		session.SeatID, // ARGV[1]
		session.UserID, // ARGV[2]
		payload,        // ARGV[3]
	)
	if result.Err() != nil {
		span.RecordError(result.Err())
		span.SetStatus(codes.Error, result.Err().Error())
		return fmt.Errorf("failed to execute start_session script: %w", result.Err())
	}

	values, err := result.Slice()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to parse script result: %w", err)
	}

	if err := startResultError(values); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// startResultError maps the {ok, code} reply of start_session.lua
func startResultError(values []interface{}) error {
	if len(values) < 2 {
		return fmt.Errorf("unexpected script result length: %d", len(values))
	}
	if ok, _ := toInt64(values[0]); ok == 1 {
		return nil
	}
	code, _ := values[1].(string)
	switch code {
	case codeSeatOccupied:
		return domain.ErrSeatOccupied
	case codeUserAlreadySeated:
		return domain.ErrUserAlreadySeated
	default:
		return fmt.Errorf("start_session failed: %s", code)
	}
}

// End removes the session on a seat and its user index entry in one transaction
func (r *RedisSessionRepository) End(ctx context.Context, cafeID, seatID string) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.redis.session.end")
	defer span.End()

	span.SetAttributes(
		attribute.String("cafe_id", cafeID),
		attribute.String("seat_id", seatID),
	)

	raw, err := r.client.HGet(ctx, sessionsKey(cafeID), seatID).Result()
	if errors.Is(err, pkgredis.Nil) {
		span.SetStatus(codes.Ok, "")
		return nil
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to read session: %w", err)
	}

	var session seatmap.ActiveSession
	if err := json.Unmarshal([]byte(raw), &session); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to decode session: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.HDel(ctx, sessionsKey(cafeID), seatID)
	if session.UserID != "" {
		pipe.HDel(ctx, usersKey(cafeID), session.UserID)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to end session: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// toInt64 converts a Lua reply value to int64
func toInt64(v interface{}) (int64, bool) {
	switch val := v.(type) {
	case int64:
		return val, true
	case int:
		return int64(val), true
	case string:
		i, err := strconv.ParseInt(val, 10, 64)
		if err != nil {
			return 0, false
		}
		return i, true
	default:
		return 0, false
	}
}

// Ensure RedisSessionRepository implements SessionRepository
var _ SessionRepository = (*RedisSessionRepository)(nil)
