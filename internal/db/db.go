package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// NewPool creates a new pgx connection pool using the provided DSN.
// It pings the database to ensure the connection is valid.
func NewPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create database pool: %w", err)
	}

	// Use a short-lived context for the initial ping.
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return pool, nil
}

// schema is idempotent. The partial unique index is what serializes
// concurrent writers on one (court, slot, date).
const schema = `
CREATE TABLE IF NOT EXISTS public.courts (
	id             uuid PRIMARY KEY DEFAULT gen_random_uuid(),
	venue_id       text        NOT NULL,
	name           text        NOT NULL,
	sport_type     text        NOT NULL,
	price_per_hour bigint      NOT NULL CHECK (price_per_hour >= 0),
	is_active      boolean     NOT NULL DEFAULT true,
	created_at     timestamptz NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS courts_venue_sport_idx
	ON public.courts (venue_id, sport_type) WHERE is_active;

CREATE TABLE IF NOT EXISTS public.time_slots (
	id           uuid PRIMARY KEY DEFAULT gen_random_uuid(),
	court_id     uuid        NOT NULL REFERENCES public.courts (id) ON DELETE CASCADE,
	day_of_week  smallint    NOT NULL CHECK (day_of_week BETWEEN 0 AND 6),
	start_minute smallint    NOT NULL CHECK (start_minute BETWEEN 0 AND 1439),
	end_minute   smallint    NOT NULL CHECK (end_minute BETWEEN 0 AND 1439),
	is_active    boolean     NOT NULL DEFAULT true,
	created_at   timestamptz NOT NULL DEFAULT now(),
	updated_at   timestamptz NOT NULL DEFAULT now(),
	CHECK (start_minute < end_minute)
);

CREATE INDEX IF NOT EXISTS time_slots_court_day_idx
	ON public.time_slots (court_id, day_of_week) WHERE is_active;

CREATE TABLE IF NOT EXISTS public.bookings (
	id             uuid PRIMARY KEY DEFAULT gen_random_uuid(),
	court_id       uuid        NOT NULL REFERENCES public.courts (id),
	time_slot_id   uuid        REFERENCES public.time_slots (id) ON DELETE SET NULL,
	booking_date   date        NOT NULL,
	start_minute   smallint    NOT NULL,
	end_minute     smallint    NOT NULL,
	status         text        NOT NULL CHECK (status IN ('pending', 'confirmed', 'cancelled', 'completed')),
	payment_status text        NOT NULL CHECK (payment_status IN ('pending', 'paid', 'failed', 'refunded')),
	total_amount   bigint      NOT NULL,
	user_id        text        NOT NULL,
	created_at     timestamptz NOT NULL DEFAULT now(),
	updated_at     timestamptz NOT NULL DEFAULT now()
);

CREATE UNIQUE INDEX IF NOT EXISTS bookings_active_slot_uidx
	ON public.bookings (court_id, time_slot_id, booking_date)
	WHERE status IN ('pending', 'confirmed');

CREATE INDEX IF NOT EXISTS bookings_user_date_idx
	ON public.bookings (user_id, booking_date);
`

// EnsureSchema creates the scheduler tables and indexes if they do not exist.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}
