/*
Package sqlite provides a SQLite-backed implementation of booking.TxStore.

PURPOSE:
  Persists the fleet, pricing rules, settings, bookings and the audit log.
  The pricing breakdown of a booking is stored as JSON exactly as computed,
  so it is never recomputed on read.

KEY TABLES:
  boats:     Bookable vessels
  add_ons:   Per-boat add-on catalog (ordered)
  rules:     Pricing rules; conditions as the factory's JSON record
  settings:  Single row of booking settings JSON
  bookings:  Bookings with a version column for optimistic concurrency
  audit_log: Append-only, ordered by insertion

OPTIMISTIC CONCURRENCY:
  UpdateBooking is a single statement:
    UPDATE bookings SET ..., version = version + 1 WHERE id = ? AND version = ?
  Zero rows affected means another writer got there first (or the booking
  does not exist; the two are told apart with a follow-up read).

TIME STORAGE:
  Instants are stored in UTC with a fixed-width layout so that string
  comparison in SQL orders them correctly.

CONNECTIONS:
  The pool is limited to one connection. ":memory:" databases are
  per-connection, and SQLite allows a single writer anyway.

USAGE:
  store, err := sqlite.New("./charter.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  svc := booking.NewService(store, logger)

SEE ALSO:
  - booking/store.go: Interface definitions
  - store/memory: In-memory implementation for tests
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/tidewater/charter-engine/booking"
	"github.com/tidewater/charter-engine/factory"
	"github.com/tidewater/charter-engine/pricing"
)

// timeLayout is fixed width so stored instants compare as strings.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Store implements booking.TxStore using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
	q  *queries
}

var _ booking.TxStore = (*Store)(nil)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	store := &Store{db: db, q: &queries{db: db}}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS boats (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		base_price TEXT NOT NULL,
		min_capacity INTEGER NOT NULL,
		max_capacity INTEGER NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT TRUE
	);

	CREATE TABLE IF NOT EXISTS add_ons (
		boat_id TEXT NOT NULL REFERENCES boats(id) ON DELETE CASCADE,
		id TEXT NOT NULL,
		position INTEGER NOT NULL,
		type TEXT NOT NULL DEFAULT '',
		label TEXT NOT NULL,
		price TEXT NOT NULL,
		price_type TEXT NOT NULL,
		PRIMARY KEY (boat_id, id)
	);

	CREATE TABLE IF NOT EXISTS rules (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		type TEXT NOT NULL,
		adjustment_percent TEXT NOT NULL,
		priority INTEGER NOT NULL DEFAULT 0,
		is_active BOOLEAN NOT NULL,
		conditions_json TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_rules_created ON rules(created_at, id);

	CREATE TABLE IF NOT EXISTS settings (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		settings_json TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS bookings (
		id TEXT PRIMARY KEY,
		boat_id TEXT NOT NULL,
		customer_json TEXT NOT NULL,
		event_start TEXT NOT NULL,
		event_end TEXT NOT NULL,
		guest_count INTEGER NOT NULL,
		status TEXT NOT NULL,
		selected_json TEXT,
		pricing_json TEXT NOT NULL,
		cancellation_json TEXT,
		version INTEGER NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_bookings_boat_start ON bookings(boat_id, event_start);
	CREATE INDEX IF NOT EXISTS idx_bookings_status_end ON bookings(status, event_end);

	CREATE TABLE IF NOT EXISTS audit_log (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		timestamp TEXT NOT NULL,
		actor TEXT NOT NULL,
		action TEXT NOT NULL,
		booking_id TEXT,
		payload_json TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_audit_booking ON audit_log(booking_id) WHERE booking_id IS NOT NULL;
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// TRANSACTIONAL STORE
// =============================================================================

// WithTx executes fn within a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(booking.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&queries{db: sqlTx}); err != nil {
		return err
	}
	return sqlTx.Commit()
}

// Reset clears all data (for demos).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{"audit_log", "bookings", "add_ons", "boats", "rules", "settings"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	return nil
}

func (s *Store) CreateBooking(ctx context.Context, b booking.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.q.CreateBooking(ctx, b)
}

func (s *Store) GetBooking(ctx context.Context, id booking.BookingID) (*booking.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.q.GetBooking(ctx, id)
}

func (s *Store) ListBookings(ctx context.Context, filter booking.BookingFilter) ([]booking.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.q.ListBookings(ctx, filter)
}

func (s *Store) UpdateBooking(ctx context.Context, b booking.Booking, expectedVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.q.UpdateBooking(ctx, b, expectedVersion)
}

func (s *Store) SaveBoat(ctx context.Context, boat booking.Boat) error {
	return s.WithTx(ctx, func(tx booking.Store) error {
		return tx.SaveBoat(ctx, boat)
	})
}

func (s *Store) GetBoat(ctx context.Context, id booking.BoatID) (*booking.Boat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.q.GetBoat(ctx, id)
}

func (s *Store) ListBoats(ctx context.Context) ([]booking.Boat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.q.ListBoats(ctx)
}

func (s *Store) SaveRule(ctx context.Context, rule pricing.PricingRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.q.SaveRule(ctx, rule)
}

func (s *Store) GetRule(ctx context.Context, id pricing.RuleID) (*pricing.PricingRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.q.GetRule(ctx, id)
}

func (s *Store) ListRules(ctx context.Context) ([]pricing.PricingRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.q.ListRules(ctx)
}

func (s *Store) DeleteRule(ctx context.Context, id pricing.RuleID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.q.DeleteRule(ctx, id)
}

func (s *Store) GetSettings(ctx context.Context) (pricing.BookingSettings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.q.GetSettings(ctx)
}

func (s *Store) SaveSettings(ctx context.Context, settings pricing.BookingSettings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.q.SaveSettings(ctx, settings)
}

func (s *Store) AppendAudit(ctx context.Context, entry booking.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.q.AppendAudit(ctx, entry)
}

func (s *Store) QueryAudit(ctx context.Context, filter booking.AuditFilter) ([]booking.AuditEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.q.QueryAudit(ctx, filter)
}

// =============================================================================
// QUERIES - Shared by the store and its transactions
// =============================================================================

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type queries struct {
	db querier
}

// ---- bookings ----

const bookingColumns = `id, boat_id, customer_json, event_start, event_end, guest_count, status,
	selected_json, pricing_json, cancellation_json, version, created_at, updated_at`

func (q *queries) CreateBooking(ctx context.Context, b booking.Booking) error {
	row, err := bookingRow(b)
	if err != nil {
		return err
	}
	_, err = q.db.ExecContext(ctx, `INSERT INTO bookings (`+bookingColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.BoatID, row.customer, formatTime(b.EventStart), formatTime(b.EventEnd), b.GuestCount,
		b.Status, row.selected, row.pricing, row.cancellation, b.Version,
		formatTime(b.CreatedAt), formatTime(b.UpdatedAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return fmt.Errorf("booking %s already exists", b.ID)
		}
		return fmt.Errorf("failed to insert booking: %w", err)
	}
	return nil
}

func (q *queries) GetBooking(ctx context.Context, id booking.BookingID) (*booking.Booking, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query booking: %w", err)
	}
	list, err := scanBookings(rows)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, fmt.Errorf("%w: booking %s", booking.ErrNotFound, id)
	}
	return &list[0], nil
}

func (q *queries) ListBookings(ctx context.Context, filter booking.BookingFilter) ([]booking.Booking, error) {
	var (
		where []string
		args  []any
	)
	if filter.BoatID != "" {
		where = append(where, "boat_id = ?")
		args = append(args, filter.BoatID)
	}
	if len(filter.Statuses) > 0 {
		where = append(where, "status IN (?"+strings.Repeat(", ?", len(filter.Statuses)-1)+")")
		for _, st := range filter.Statuses {
			args = append(args, st)
		}
	}
	if filter.EventEndUntil != nil {
		where = append(where, "event_end <= ?")
		args = append(args, formatTime(*filter.EventEndUntil))
	}

	query := `SELECT ` + bookingColumns + ` FROM bookings`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY event_start ASC, created_at ASC"

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query bookings: %w", err)
	}
	return scanBookings(rows)
}

func (q *queries) UpdateBooking(ctx context.Context, b booking.Booking, expectedVersion int64) error {
	row, err := bookingRow(b)
	if err != nil {
		return err
	}
	res, err := q.db.ExecContext(ctx, `
		UPDATE bookings SET
			customer_json = ?, event_start = ?, event_end = ?, guest_count = ?, status = ?,
			selected_json = ?, pricing_json = ?, cancellation_json = ?,
			version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?`,
		row.customer, formatTime(b.EventStart), formatTime(b.EventEnd), b.GuestCount, b.Status,
		row.selected, row.pricing, row.cancellation, formatTime(b.UpdatedAt),
		b.ID, expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("failed to update booking: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 1 {
		return nil
	}

	var current int64
	err = q.db.QueryRowContext(ctx, "SELECT version FROM bookings WHERE id = ?", b.ID).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: booking %s", booking.ErrNotFound, b.ID)
	}
	if err != nil {
		return err
	}
	return fmt.Errorf("%w: booking %s at version %d, expected %d",
		booking.ErrConcurrentModification, b.ID, current, expectedVersion)
}

type encodedBooking struct {
	customer     string
	selected     sql.NullString
	pricing      string
	cancellation sql.NullString
}

func bookingRow(b booking.Booking) (encodedBooking, error) {
	var row encodedBooking
	customer, err := json.Marshal(b.Customer)
	if err != nil {
		return row, err
	}
	bd, err := json.Marshal(b.Pricing)
	if err != nil {
		return row, fmt.Errorf("failed to encode pricing: %w", err)
	}
	row.customer = string(customer)
	row.pricing = string(bd)

	if len(b.Selected) > 0 {
		sel, err := json.Marshal(b.Selected)
		if err != nil {
			return row, err
		}
		row.selected = sql.NullString{String: string(sel), Valid: true}
	}
	if b.Cancellation != nil {
		c, err := json.Marshal(b.Cancellation)
		if err != nil {
			return row, err
		}
		row.cancellation = sql.NullString{String: string(c), Valid: true}
	}
	return row, nil
}

func scanBookings(rows *sql.Rows) ([]booking.Booking, error) {
	defer rows.Close()

	out := []booking.Booking{}
	for rows.Next() {
		var (
			b                            booking.Booking
			customer, pricingJSON        string
			start, end, created, updated string
			selected, cancellation       sql.NullString
		)
		if err := rows.Scan(&b.ID, &b.BoatID, &customer, &start, &end, &b.GuestCount, &b.Status,
			&selected, &pricingJSON, &cancellation, &b.Version, &created, &updated); err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}

		if err := json.Unmarshal([]byte(customer), &b.Customer); err != nil {
			return nil, fmt.Errorf("booking %s: customer: %w", b.ID, err)
		}
		if err := json.Unmarshal([]byte(pricingJSON), &b.Pricing); err != nil {
			return nil, fmt.Errorf("booking %s: pricing: %w", b.ID, err)
		}
		if selected.Valid {
			if err := json.Unmarshal([]byte(selected.String), &b.Selected); err != nil {
				return nil, fmt.Errorf("booking %s: add-ons: %w", b.ID, err)
			}
		}
		if cancellation.Valid {
			b.Cancellation = &pricing.CancellationRecord{}
			if err := json.Unmarshal([]byte(cancellation.String), b.Cancellation); err != nil {
				return nil, fmt.Errorf("booking %s: cancellation: %w", b.ID, err)
			}
		}
		b.EventStart = parseTime(start)
		b.EventEnd = parseTime(end)
		b.CreatedAt = parseTime(created)
		b.UpdatedAt = parseTime(updated)
		out = append(out, b)
	}
	return out, rows.Err()
}

// ---- fleet ----

func (q *queries) SaveBoat(ctx context.Context, boat booking.Boat) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO boats (id, name, base_price, min_capacity, max_capacity, is_active)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			base_price = excluded.base_price,
			min_capacity = excluded.min_capacity,
			max_capacity = excluded.max_capacity,
			is_active = excluded.is_active`,
		boat.ID, boat.Name, boat.BasePrice.String(), boat.MinCapacity, boat.MaxCapacity, boat.IsActive,
	)
	if err != nil {
		return fmt.Errorf("failed to save boat: %w", err)
	}

	if _, err := q.db.ExecContext(ctx, "DELETE FROM add_ons WHERE boat_id = ?", boat.ID); err != nil {
		return err
	}
	for i, a := range boat.AddOns {
		_, err := q.db.ExecContext(ctx, `
			INSERT INTO add_ons (boat_id, id, position, type, label, price, price_type)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			boat.ID, a.ID, i, a.Type, a.Label, a.Price.String(), a.PriceType,
		)
		if err != nil {
			return fmt.Errorf("failed to save add-on %s: %w", a.ID, err)
		}
	}
	return nil
}

func (q *queries) GetBoat(ctx context.Context, id booking.BoatID) (*booking.Boat, error) {
	var (
		boat  booking.Boat
		price string
	)
	err := q.db.QueryRowContext(ctx,
		"SELECT id, name, base_price, min_capacity, max_capacity, is_active FROM boats WHERE id = ?", id,
	).Scan(&boat.ID, &boat.Name, &price, &boat.MinCapacity, &boat.MaxCapacity, &boat.IsActive)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", booking.ErrBoatNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	if boat.BasePrice, err = decimal.NewFromString(price); err != nil {
		return nil, fmt.Errorf("boat %s: base price: %w", id, err)
	}
	if boat.AddOns, err = q.addOns(ctx, id); err != nil {
		return nil, err
	}
	return &boat, nil
}

func (q *queries) ListBoats(ctx context.Context) ([]booking.Boat, error) {
	rows, err := q.db.QueryContext(ctx, "SELECT id FROM boats ORDER BY id")
	if err != nil {
		return nil, err
	}
	var ids []booking.BoatID
	for rows.Next() {
		var id booking.BoatID
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]booking.Boat, 0, len(ids))
	for _, id := range ids {
		boat, err := q.GetBoat(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, *boat)
	}
	return out, nil
}

func (q *queries) addOns(ctx context.Context, boatID booking.BoatID) ([]pricing.AddOn, error) {
	rows, err := q.db.QueryContext(ctx,
		"SELECT id, type, label, price, price_type FROM add_ons WHERE boat_id = ? ORDER BY position", boatID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []pricing.AddOn
	for rows.Next() {
		var (
			a     pricing.AddOn
			price string
		)
		if err := rows.Scan(&a.ID, &a.Type, &a.Label, &price, &a.PriceType); err != nil {
			return nil, err
		}
		if a.Price, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("add-on %s: price: %w", a.ID, err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// ---- rules ----

func (q *queries) SaveRule(ctx context.Context, rule pricing.PricingRule) error {
	rj := factory.NewRuleFactory().ToJSON(rule)
	conditions, err := json.Marshal(rj.Conditions)
	if err != nil {
		return err
	}
	_, err = q.db.ExecContext(ctx, `
		INSERT INTO rules (id, name, type, adjustment_percent, priority, is_active, conditions_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			type = excluded.type,
			adjustment_percent = excluded.adjustment_percent,
			priority = excluded.priority,
			is_active = excluded.is_active,
			conditions_json = excluded.conditions_json`,
		rule.ID, rule.Name, rule.Type, rule.AdjustmentPercent.String(), rule.Priority, rule.IsActive,
		string(conditions), formatTime(rule.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to save rule: %w", err)
	}
	return nil
}

const ruleColumns = "id, name, type, adjustment_percent, priority, is_active, conditions_json, created_at"

func (q *queries) GetRule(ctx context.Context, id pricing.RuleID) (*pricing.PricingRule, error) {
	rows, err := q.db.QueryContext(ctx, "SELECT "+ruleColumns+" FROM rules WHERE id = ?", id)
	if err != nil {
		return nil, err
	}
	list, err := scanRules(rows)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, fmt.Errorf("%w: rule %s", booking.ErrNotFound, id)
	}
	return &list[0], nil
}

func (q *queries) ListRules(ctx context.Context) ([]pricing.PricingRule, error) {
	rows, err := q.db.QueryContext(ctx, "SELECT "+ruleColumns+" FROM rules ORDER BY created_at, id")
	if err != nil {
		return nil, err
	}
	return scanRules(rows)
}

func (q *queries) DeleteRule(ctx context.Context, id pricing.RuleID) error {
	res, err := q.db.ExecContext(ctx, "DELETE FROM rules WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: rule %s", booking.ErrNotFound, id)
	}
	return nil
}

// scanRules rebuilds rules without re-validating them. A rule that went bad
// in storage is still listed so the admin can fix it; the engine rejects it
// if it is active.
func scanRules(rows *sql.Rows) ([]pricing.PricingRule, error) {
	defer rows.Close()

	out := []pricing.PricingRule{}
	for rows.Next() {
		var (
			rj                  factory.RuleJSON
			percent, conditions string
			created             string
		)
		if err := rows.Scan(&rj.ID, &rj.Name, &rj.Type, &percent, &rj.Priority, &rj.IsActive, &conditions, &created); err != nil {
			return nil, fmt.Errorf("failed to scan rule: %w", err)
		}
		p, err := decimal.NewFromString(percent)
		if err != nil {
			return nil, fmt.Errorf("rule %s: adjustment: %w", rj.ID, err)
		}
		rj.AdjustmentPercent = p
		if err := json.Unmarshal([]byte(conditions), &rj.Conditions); err != nil {
			return nil, fmt.Errorf("rule %s: conditions: %w", rj.ID, err)
		}
		createdAt := parseTime(created)
		rj.CreatedAt = &createdAt

		// A rule that no longer parses is still listed, so an admin can see
		// and replace it, but it fails validation and is never evaluated.
		rule, err := factory.NewRuleFactory().FromJSON(rj)
		if err != nil {
			rule = pricing.PricingRule{
				ID: pricing.RuleID(rj.ID), Name: rj.Name, Type: pricing.RuleType(rj.Type),
				AdjustmentPercent: p, Priority: rj.Priority, IsActive: rj.IsActive, CreatedAt: createdAt,
				Conditions: pricing.MalformedConditions{Reason: err.Error()},
			}
		}
		out = append(out, rule)
	}
	return out, rows.Err()
}

// ---- settings ----

func (q *queries) GetSettings(ctx context.Context) (pricing.BookingSettings, error) {
	var raw string
	err := q.db.QueryRowContext(ctx, "SELECT settings_json FROM settings WHERE id = 1").Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return pricing.DefaultSettings(), nil
	}
	if err != nil {
		return pricing.BookingSettings{}, err
	}
	return factory.ParseSettings(raw)
}

func (q *queries) SaveSettings(ctx context.Context, settings pricing.BookingSettings) error {
	raw, err := json.Marshal(factory.SettingsToJSON(settings))
	if err != nil {
		return err
	}
	_, err = q.db.ExecContext(ctx, `
		INSERT INTO settings (id, settings_json, updated_at) VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET settings_json = excluded.settings_json, updated_at = excluded.updated_at`,
		string(raw), formatTime(time.Now()),
	)
	return err
}

// ---- audit ----

func (q *queries) AppendAudit(ctx context.Context, entry booking.AuditEntry) error {
	payload, err := json.Marshal(entry.Payload)
	if err != nil {
		return err
	}
	_, err = q.db.ExecContext(ctx, `
		INSERT INTO audit_log (id, timestamp, actor, action, booking_id, payload_json)
		VALUES (?, ?, ?, ?, ?, ?)`,
		entry.ID, formatTime(entry.Timestamp), entry.Actor, entry.Action,
		nullString(string(entry.BookingID)), string(payload),
	)
	if err != nil {
		return fmt.Errorf("failed to append audit entry: %w", err)
	}
	return nil
}

func (q *queries) QueryAudit(ctx context.Context, filter booking.AuditFilter) ([]booking.AuditEntry, error) {
	var (
		where []string
		args  []any
	)
	if filter.BookingID != nil {
		where = append(where, "booking_id = ?")
		args = append(args, *filter.BookingID)
	}
	if len(filter.Actions) > 0 {
		where = append(where, "action IN (?"+strings.Repeat(", ?", len(filter.Actions)-1)+")")
		for _, a := range filter.Actions {
			args = append(args, a)
		}
	}
	query := "SELECT id, timestamp, actor, action, booking_id, payload_json FROM audit_log"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY seq"

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []booking.AuditEntry{}
	for rows.Next() {
		var (
			e                  booking.AuditEntry
			ts                 string
			bookingID, payload sql.NullString
		)
		if err := rows.Scan(&e.ID, &ts, &e.Actor, &e.Action, &bookingID, &payload); err != nil {
			return nil, err
		}
		e.Timestamp = parseTime(ts)
		e.BookingID = booking.BookingID(bookingID.String)
		if payload.Valid && payload.String != "" && payload.String != "null" {
			if err := json.Unmarshal([]byte(payload.String), &e.Payload); err != nil {
				return nil, fmt.Errorf("audit %s: payload: %w", e.ID, err)
			}
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// =============================================================================
// HELPERS
// =============================================================================

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(timeLayout, s)
	return t
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func isUniqueConstraintError(err error) bool {
	var se sqlite3.Error
	return errors.As(err, &se) && se.Code == sqlite3.ErrConstraint
}
