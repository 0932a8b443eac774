package timeslot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/courtly/scheduler/internal/interval"
)

type Repository interface {
	// InsertNonOverlapping persists s as an active slot unless it overlaps an
	// active slot of the same court and weekday, in which case it returns an
	// *OverlapError. The check and insert are serialized per (court, weekday).
	InsertNonOverlapping(ctx context.Context, s *TimeSlot) error
	GetByID(ctx context.Context, id string) (*TimeSlot, error)
	List(ctx context.Context, filter Filter) ([]*TimeSlot, error)
	// FindExact returns the active slot with exactly this window, or ErrNotFound.
	FindExact(ctx context.Context, courtID string, day time.Weekday, iv interval.Interval) (*TimeSlot, error)
	// Remove soft-deletes the slot when pending or confirmed bookings reference
	// it, and hard-deletes it otherwise.
	Remove(ctx context.Context, id string) (Removal, error)
}

// dbtx is satisfied by both *pgxpool.Pool and pgx.Tx.
type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type pgxRepository struct {
	pool *pgxpool.Pool
}

func NewPgxRepository(pool *pgxpool.Pool) Repository {
	return &pgxRepository{pool: pool}
}

var slotColumns = []string{"id", "court_id", "day_of_week", "start_minute", "end_minute", "is_active", "created_at", "updated_at"}

// catalogLockKey scopes the advisory lock taken by InsertNonOverlapping.
func catalogLockKey(courtID string, day time.Weekday) string {
	return fmt.Sprintf("timeslot:%s:%d", courtID, int(day))
}

func (r *pgxRepository) InsertNonOverlapping(ctx context.Context, s *TimeSlot) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin insert slot tx failed: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock(hashtextextended($1, 0))", catalogLockKey(s.CourtID, s.DayOfWeek)); err != nil {
		return fmt.Errorf("lock slot catalog failed: %w", err)
	}

	day := s.DayOfWeek
	existing, err := list(ctx, tx, Filter{CourtIDs: []string{s.CourtID}, DayOfWeek: &day, ActiveOnly: true})
	if err != nil {
		return err
	}
	if o := FirstOverlap(existing, s.Interval()); o != nil {
		return &OverlapError{Existing: o, Requested: s.Interval()}
	}

	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Insert("public.time_slots").
		Columns("court_id", "day_of_week", "start_minute", "end_minute", "is_active").
		Values(s.CourtID, int(s.DayOfWeek), int(s.StartTime), int(s.EndTime), true).
		Suffix("RETURNING id, is_active, created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build create slot query failed: %w", err)
	}
	if err := tx.QueryRow(ctx, query, args...).Scan(&s.ID, &s.IsActive, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return fmt.Errorf("create slot failed: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit slot failed: %w", err)
	}
	return nil
}

func (r *pgxRepository) GetByID(ctx context.Context, id string) (*TimeSlot, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Select(slotColumns...).
		From("public.time_slots").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get slot query failed: %w", err)
	}

	s, err := scanSlot(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get slot failed: %w", err)
	}
	return s, nil
}

func (r *pgxRepository) List(ctx context.Context, filter Filter) ([]*TimeSlot, error) {
	return list(ctx, r.pool, filter)
}

func list(ctx context.Context, db dbtx, filter Filter) ([]*TimeSlot, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	q := psql.Select(slotColumns...).From("public.time_slots")

	if len(filter.CourtIDs) > 0 {
		q = q.Where(squirrel.Eq{"court_id": filter.CourtIDs})
	}
	if filter.DayOfWeek != nil {
		q = q.Where(squirrel.Eq{"day_of_week": int(*filter.DayOfWeek)})
	}
	if filter.ActiveOnly {
		q = q.Where(squirrel.Eq{"is_active": true})
	}
	q = q.OrderBy("court_id", "day_of_week", "start_minute")

	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list slots query failed: %w", err)
	}

	rows, err := db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list slots failed: %w", err)
	}
	defer rows.Close()

	var slots []*TimeSlot
	for rows.Next() {
		s, err := scanSlot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan slot failed: %w", err)
		}
		slots = append(slots, s)
	}
	return slots, rows.Err()
}

func (r *pgxRepository) FindExact(ctx context.Context, courtID string, day time.Weekday, iv interval.Interval) (*TimeSlot, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Select(slotColumns...).
		From("public.time_slots").
		Where(squirrel.Eq{
			"court_id":     courtID,
			"day_of_week":  int(day),
			"start_minute": int(iv.Start),
			"end_minute":   int(iv.End),
			"is_active":    true,
		}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build find slot query failed: %w", err)
	}

	s, err := scanSlot(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find slot failed: %w", err)
	}
	return s, nil
}

func (r *pgxRepository) Remove(ctx context.Context, id string) (Removal, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return "", fmt.Errorf("begin remove slot tx failed: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	// Row lock blocks concurrent booking inserts (FK check) until we decide.
	var locked string
	err = tx.QueryRow(ctx, "SELECT id FROM public.time_slots WHERE id = $1 FOR UPDATE", id).Scan(&locked)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("lock slot failed: %w", err)
	}

	var referenced bool
	err = tx.QueryRow(ctx, `SELECT EXISTS (
		SELECT 1 FROM public.bookings
		WHERE time_slot_id = $1 AND status IN ('pending', 'confirmed')
	)`, id).Scan(&referenced)
	if err != nil {
		return "", fmt.Errorf("check slot references failed: %w", err)
	}

	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	var (
		query   string
		args    []any
		removal Removal
	)
	if referenced {
		removal = RemovalDeactivated
		query, args, err = psql.Update("public.time_slots").
			Set("is_active", false).
			Set("updated_at", squirrel.Expr("now()")).
			Where(squirrel.Eq{"id": id}).
			ToSql()
	} else {
		removal = RemovalDeleted
		query, args, err = psql.Delete("public.time_slots").
			Where(squirrel.Eq{"id": id}).
			ToSql()
	}
	if err != nil {
		return "", fmt.Errorf("build remove slot query failed: %w", err)
	}
	if _, err := tx.Exec(ctx, query, args...); err != nil {
		return "", fmt.Errorf("remove slot failed: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return "", fmt.Errorf("commit remove slot failed: %w", err)
	}
	return removal, nil
}

func scanSlot(row pgx.Row) (*TimeSlot, error) {
	var (
		s          TimeSlot
		day        int
		start, end int
	)
	if err := row.Scan(&s.ID, &s.CourtID, &day, &start, &end, &s.IsActive, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, err
	}
	s.DayOfWeek = time.Weekday(day)
	s.StartTime = interval.Minute(start)
	s.EndTime = interval.Minute(end)
	return &s, nil
}
