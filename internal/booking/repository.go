package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/courtly/scheduler/internal/interval"
	"github.com/courtly/scheduler/internal/pkg/apperror"
	"github.com/courtly/scheduler/internal/timeslot"
)

// ActiveSlotIndex is the partial unique index that enforces at most one
// pending or confirmed booking per (court, slot, date).
const ActiveSlotIndex = "bookings_active_slot_uidx"

type Repository interface {
	// Insert fails with ErrSlotAlreadyBooked when another active booking holds the key.
	Insert(ctx context.Context, b *Booking) error
	// InsertMany inserts the batch in a single transaction.
	InsertMany(ctx context.Context, bs []*Booking, mode BatchMode) (BatchResult, error)
	GetByID(ctx context.Context, id string) (*Booking, error)
	List(ctx context.Context, filter Filter) ([]*Booking, int, error)
	// ActiveKeys lists keys of pending or confirmed bookings of the courts within [from, to].
	ActiveKeys(ctx context.Context, courtIDs []string, from, to interval.Date) ([]SlotKey, error)
	// UpdateStatus moves a booking from one status to another, failing with
	// ErrStatusChanged if the stored status is no longer from.
	UpdateStatus(ctx context.Context, id string, from, to Status) (*Booking, error)
	UpdatePaymentStatus(ctx context.Context, id string, from, to PaymentStatus) (*Booking, error)
	// CompleteBefore marks confirmed bookings dated before day as completed.
	CompleteBefore(ctx context.Context, day interval.Date) (int64, error)
}

type pgxRepository struct {
	pool *pgxpool.Pool
}

func NewPgxRepository(pool *pgxpool.Pool) Repository {
	return &pgxRepository{pool: pool}
}

var bookingColumns = []string{
	"id", "court_id", "COALESCE(time_slot_id::text, '')", "booking_date", "start_minute", "end_minute",
	"status", "payment_status", "total_amount", "user_id", "created_at", "updated_at",
}

// insertQuery inserts only while the slot is still active on the court. The
// share lock on the slot row makes a concurrent deactivation wait for this
// insert, or makes this insert see the deactivation and write nothing.
func insertQuery(b *Booking) (string, []any, error) {
	activeSlot, activeArgs, err := squirrel.Select("1").
		From("public.time_slots").
		Where(squirrel.Eq{"id": b.TimeSlotID, "court_id": b.CourtID}).
		Where("is_active").
		Suffix("FOR SHARE").
		ToSql()
	if err != nil {
		return "", nil, err
	}

	row := squirrel.Select().
		Column("?::uuid", b.CourtID).
		Column("?::uuid", b.TimeSlotID).
		Column("?::date", b.BookingDate.Time()).
		Column("?::smallint", int(b.StartTime)).
		Column("?::smallint", int(b.EndTime)).
		Column("?::text", string(b.Status)).
		Column("?::text", string(b.PaymentStatus)).
		Column("?::bigint", b.TotalAmount).
		Column("?::text", b.UserID).
		Where("EXISTS ("+activeSlot+")", activeArgs...)

	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	return psql.Insert("public.bookings").
		Columns("court_id", "time_slot_id", "booking_date", "start_minute", "end_minute",
			"status", "payment_status", "total_amount", "user_id").
		Select(row).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
}

type queryRower interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func insertOne(ctx context.Context, db queryRower, b *Booking) error {
	query, args, err := insertQuery(b)
	if err != nil {
		return fmt.Errorf("build create booking query failed: %w", err)
	}
	if err := db.QueryRow(ctx, query, args...).Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return translateInsertError(err)
	}
	return nil
}

// translateInsertError maps constraint violations to ledger errors. No
// returned row means the slot was missing or inactive.
func translateInsertError(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrSlotInactive
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == pgerrcode.UniqueViolation && pgErr.ConstraintName == ActiveSlotIndex:
			return ErrSlotAlreadyBooked
		case pgErr.Code == pgerrcode.ForeignKeyViolation && strings.Contains(pgErr.ConstraintName, "time_slot"):
			return timeslot.ErrNotFound
		}
	}
	return fmt.Errorf("create booking failed: %w", err)
}

func (r *pgxRepository) Insert(ctx context.Context, b *Booking) error {
	return insertOne(ctx, r.pool, b)
}

func (r *pgxRepository) InsertMany(ctx context.Context, bs []*Booking, mode BatchMode) (BatchResult, error) {
	var res BatchResult

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return res, fmt.Errorf("begin batch tx failed: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	for i, b := range bs {
		if mode == BatchAllOrNothing {
			if err := insertOne(ctx, tx, b); err != nil {
				if errors.Is(err, ErrSlotAlreadyBooked) {
					return BatchResult{}, &BatchConflictError{FailedIndex: i}
				}
				return BatchResult{}, err
			}
			res.Created = append(res.Created, b)
			continue
		}

		// A failed statement aborts the whole transaction, so each row gets
		// its own savepoint that can be rolled back on a lost race.
		sp, err := tx.Begin(ctx)
		if err != nil {
			return BatchResult{}, fmt.Errorf("savepoint failed: %w", err)
		}
		if err := insertOne(ctx, sp, b); err != nil {
			_ = sp.Rollback(ctx)
			switch {
			case errors.Is(err, ErrSlotAlreadyBooked):
				res.Lost = append(res.Lost, i)
				continue
			case errors.Is(err, ErrSlotInactive):
				res.Inactive = append(res.Inactive, i)
				continue
			}
			return BatchResult{}, err
		}
		if err := sp.Commit(ctx); err != nil {
			return BatchResult{}, fmt.Errorf("release savepoint failed: %w", err)
		}
		res.Created = append(res.Created, b)
	}

	if err := tx.Commit(ctx); err != nil {
		return BatchResult{}, fmt.Errorf("commit batch failed: %w", err)
	}
	return res, nil
}

func (r *pgxRepository) GetByID(ctx context.Context, id string) (*Booking, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Select(bookingColumns...).
		From("public.bookings").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get booking query failed: %w", err)
	}

	b, err := scanBooking(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		// A malformed id cannot name any booking.
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.InvalidTextRepresentation {
			return nil, apperror.Wrap(err, ErrNotFound.Code, ErrNotFound.Kind, ErrNotFound.Message)
		}
		return nil, fmt.Errorf("get booking failed: %w", err)
	}
	return b, nil
}

func (r *pgxRepository) List(ctx context.Context, filter Filter) ([]*Booking, int, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query := psql.Select(append(bookingColumns, "count(*) OVER() as total_count")...).
		From("public.bookings")

	if filter.UserID != "" {
		query = query.Where(squirrel.Eq{"user_id": filter.UserID})
	}
	if filter.CourtID != "" {
		query = query.Where(squirrel.Eq{"court_id": filter.CourtID})
	}
	if filter.Status != "" {
		query = query.Where(squirrel.Eq{"status": filter.Status})
	}
	if filter.From != nil {
		query = query.Where(squirrel.GtOrEq{"booking_date": filter.From.Time()})
	}
	if filter.To != nil {
		query = query.Where(squirrel.LtOrEq{"booking_date": filter.To.Time()})
	}

	orderDir := "DESC"
	if strings.EqualFold(filter.SortOrder, "asc") {
		orderDir = "ASC"
	}
	query = query.OrderBy("booking_date "+orderDir, "start_minute "+orderDir, "id")

	// Pagination
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = 20
	}
	offset := (filter.Page - 1) * filter.PageSize
	query = query.Limit(uint64(filter.PageSize)).Offset(uint64(offset))

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build list bookings query failed: %w", err)
	}

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list bookings failed: %w", err)
	}
	defer rows.Close()

	var (
		bookings []*Booking
		total    int
	)
	for rows.Next() {
		b, err := scanBooking(rows, &total)
		if err != nil {
			return nil, 0, fmt.Errorf("scan booking failed: %w", err)
		}
		bookings = append(bookings, b)
	}
	return bookings, total, rows.Err()
}

func (r *pgxRepository) ActiveKeys(ctx context.Context, courtIDs []string, from, to interval.Date) ([]SlotKey, error) {
	if len(courtIDs) == 0 {
		return nil, nil
	}

	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Select("court_id", "COALESCE(time_slot_id::text, '')", "booking_date").
		From("public.bookings").
		Where(squirrel.Eq{"court_id": courtIDs}).
		Where(squirrel.Eq{"status": []string{string(StatusPending), string(StatusConfirmed)}}).
		Where(squirrel.GtOrEq{"booking_date": from.Time()}).
		Where(squirrel.LtOrEq{"booking_date": to.Time()}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build active keys query failed: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list active keys failed: %w", err)
	}
	defer rows.Close()

	var keys []SlotKey
	for rows.Next() {
		var (
			k    SlotKey
			date time.Time
		)
		if err := rows.Scan(&k.CourtID, &k.TimeSlotID, &date); err != nil {
			return nil, fmt.Errorf("scan active key failed: %w", err)
		}
		k.Date = interval.DateOf(date)
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

func (r *pgxRepository) UpdateStatus(ctx context.Context, id string, from, to Status) (*Booking, error) {
	return r.updateWhere(ctx, id, "status", string(from), string(to))
}

func (r *pgxRepository) UpdatePaymentStatus(ctx context.Context, id string, from, to PaymentStatus) (*Booking, error) {
	return r.updateWhere(ctx, id, "payment_status", string(from), string(to))
}

// updateWhere is a compare-and-set on one status column.
func (r *pgxRepository) updateWhere(ctx context.Context, id, column, from, to string) (*Booking, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Update("public.bookings").
		Set(column, to).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": id, column: from}).
		Suffix("RETURNING " + strings.Join(bookingColumns, ", ")).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build update %s query failed: %w", column, err)
	}

	b, err := scanBooking(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrStatusChanged
		}
		return nil, fmt.Errorf("update %s failed: %w", column, err)
	}
	return b, nil
}

func (r *pgxRepository) CompleteBefore(ctx context.Context, day interval.Date) (int64, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Update("public.bookings").
		Set("status", string(StatusCompleted)).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"status": string(StatusConfirmed)}).
		Where(squirrel.Lt{"booking_date": day.Time()}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build complete bookings query failed: %w", err)
	}

	ct, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("complete bookings failed: %w", err)
	}
	return ct.RowsAffected(), nil
}

func scanBooking(row pgx.Row, extra ...any) (*Booking, error) {
	var (
		b          Booking
		date       time.Time
		start, end int
		status     string
		payment    string
	)
	dest := []any{
		&b.ID, &b.CourtID, &b.TimeSlotID, &date, &start, &end,
		&status, &payment, &b.TotalAmount, &b.UserID, &b.CreatedAt, &b.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	b.BookingDate = interval.DateOf(date)
	b.StartTime = interval.Minute(start)
	b.EndTime = interval.Minute(end)
	b.Status = Status(status)
	b.PaymentStatus = PaymentStatus(payment)
	return &b, nil
}
