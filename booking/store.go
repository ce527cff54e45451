/*
store.go - Persistence interfaces for bookings, fleet, rules and settings

PURPOSE:
  Defines the boundary between the booking service and the database.
  store/sqlite implements it for production; store/memory for tests and demos.

OPTIMISTIC CONCURRENCY:
  UpdateBooking takes the version the caller read. If the stored version has
  moved on, the write is rejected with ErrConcurrentModification and nothing
  changes. Two concurrent cancellations of the same booking therefore record
  exactly one refund.

AUDIT:
  The audit log is append-only. Every booking transition writes one entry in
  the same transaction as the booking update.
*/
package booking

import (
	"context"

	"github.com/tidewater/charter-engine/pricing"
)

// Repository persists bookings.
type Repository interface {
	CreateBooking(ctx context.Context, b Booking) error
	// GetBooking returns ErrNotFound for an unknown id.
	GetBooking(ctx context.Context, id BookingID) (*Booking, error)
	ListBookings(ctx context.Context, filter BookingFilter) ([]Booking, error)
	// UpdateBooking writes b if the stored version equals expectedVersion.
	// The stored version becomes expectedVersion+1.
	UpdateBooking(ctx context.Context, b Booking, expectedVersion int64) error
}

// FleetStore persists boats and their add-on catalogs.
type FleetStore interface {
	SaveBoat(ctx context.Context, boat Boat) error
	// GetBoat returns ErrBoatNotFound for an unknown id.
	GetBoat(ctx context.Context, id BoatID) (*Boat, error)
	ListBoats(ctx context.Context) ([]Boat, error)
}

// RuleStore persists pricing rules.
type RuleStore interface {
	SaveRule(ctx context.Context, rule pricing.PricingRule) error
	GetRule(ctx context.Context, id pricing.RuleID) (*pricing.PricingRule, error)
	// ListRules returns every rule, active or not, in creation order.
	ListRules(ctx context.Context) ([]pricing.PricingRule, error)
	DeleteRule(ctx context.Context, id pricing.RuleID) error
}

// SettingsStore persists the operator's booking settings.
type SettingsStore interface {
	// GetSettings returns pricing.DefaultSettings until settings are saved.
	GetSettings(ctx context.Context) (pricing.BookingSettings, error)
	SaveSettings(ctx context.Context, s pricing.BookingSettings) error
}

// AuditLog stores audit entries. Append-only.
type AuditLog interface {
	AppendAudit(ctx context.Context, entry AuditEntry) error
	QueryAudit(ctx context.Context, filter AuditFilter) ([]AuditEntry, error)
}

// Store is everything the booking service persists.
type Store interface {
	Repository
	FleetStore
	RuleStore
	SettingsStore
	AuditLog
}

// TxStore wraps Store with transaction support.
type TxStore interface {
	Store

	// WithTx executes fn within a transaction.
	// If fn returns error, the transaction is rolled back.
	WithTx(ctx context.Context, fn func(Store) error) error
}
