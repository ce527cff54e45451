/*
Package booking runs the booking lifecycle on top of the pricing engine.

PURPOSE:
  The pricing package is pure: it prices a request against rules and settings
  it is handed. This package loads those inputs from storage, persists the
  resulting breakdown with the booking, and walks the booking through its
  states under an optimistic version check.

LIFECYCLE:
  PENDING ──confirm──▶ CONFIRMED ──complete──▶ COMPLETED
     │                     │
     │                     ├──no-show──▶ NO_SHOW
     │                     │
     └───────cancel────────┴──────────▶ CANCELLED (refund recorded once)

STORED PRICING:
  The breakdown computed at creation is stored on the booking and never
  recomputed. Rule or settings changes affect new quotes only. An admin
  override is layered over the stored breakdown with pricing.ApplyOverride.

SEE ALSO:
  - service.go: Lifecycle operations
  - store.go: Persistence interfaces
  - pricing/engine.go: ComputePricing
*/
package booking

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/tidewater/charter-engine/pricing"
)

type BookingID string

type BoatID string

// Customer is who the booking is for.
type Customer struct {
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// Booking is a persisted reservation of a boat.
type Booking struct {
	ID         BookingID `json:"id"`
	BoatID     BoatID    `json:"boat_id"`
	Customer   Customer  `json:"customer"`
	EventStart time.Time `json:"event_start"`
	EventEnd   time.Time `json:"event_end"`
	GuestCount int       `json:"guest_count"`

	Status pricing.BookingStatus `json:"status"`

	// Selected is what the customer picked; the priced lines live on Pricing.
	Selected []pricing.AddOnSelection `json:"selected_add_ons,omitempty"`
	Pricing  pricing.PricingBreakdown `json:"pricing"`

	Cancellation *pricing.CancellationRecord `json:"cancellation,omitempty"`

	// Version increments on every write. Updates must name the version they read.
	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Snapshot is the view of the booking the refund resolver works from.
func (b Booking) Snapshot() pricing.BookingSnapshot {
	return pricing.BookingSnapshot{
		Status:      b.Status,
		EventStart:  b.EventStart,
		FinalAmount: b.Pricing.FinalAmount,
	}
}

// Boat is a bookable vessel with its add-on catalog.
type Boat struct {
	ID          BoatID          `json:"id"`
	Name        string          `json:"name"`
	BasePrice   decimal.Decimal `json:"base_price"`
	MinCapacity int             `json:"min_capacity"`
	MaxCapacity int             `json:"max_capacity"`
	AddOns      []pricing.AddOn `json:"add_ons,omitempty"`
	IsActive    bool            `json:"is_active"`
}

// Validate checks the boat can be priced and booked.
func (b Boat) Validate() error {
	switch {
	case b.ID == "":
		return invalid("boat id is required")
	case b.Name == "":
		return invalid("boat name is required")
	case b.BasePrice.IsNegative():
		return invalid("base price must not be negative")
	case b.MinCapacity < 0 || b.MaxCapacity < b.MinCapacity || b.MaxCapacity == 0:
		return invalid("capacity range %d-%d is invalid", b.MinCapacity, b.MaxCapacity)
	}
	seen := make(map[pricing.AddOnID]bool, len(b.AddOns))
	for _, a := range b.AddOns {
		if a.ID == "" || seen[a.ID] {
			return invalid("add-on ids must be unique and non-empty")
		}
		seen[a.ID] = true
		if a.Price.IsNegative() {
			return invalid("add-on %s has negative price", a.ID)
		}
		if a.PriceType != pricing.PriceFixed && a.PriceType != pricing.PricePerPerson {
			return invalid("add-on %s has unknown price type %q", a.ID, a.PriceType)
		}
	}
	return nil
}

// =============================================================================
// AUDIT
// =============================================================================

type AuditAction string

const (
	AuditBookingCreated   AuditAction = "booking_created"
	AuditBookingConfirmed AuditAction = "booking_confirmed"
	AuditBookingCompleted AuditAction = "booking_completed"
	AuditBookingNoShow    AuditAction = "booking_no_show"
	AuditBookingCancelled AuditAction = "booking_cancelled"
	AuditOverrideSet      AuditAction = "override_set"
	AuditRuleSaved        AuditAction = "rule_saved"
	AuditRuleDeleted      AuditAction = "rule_deleted"
	AuditSettingsChanged  AuditAction = "settings_changed"
)

// AuditEntry records who did what when. Append-only.
type AuditEntry struct {
	ID        string         `json:"id"`
	Timestamp time.Time      `json:"timestamp"`
	Actor     string         `json:"actor"`
	Action    AuditAction    `json:"action"`
	BookingID BookingID      `json:"booking_id,omitempty"`
	Payload   map[string]any `json:"payload,omitempty"`
}

type AuditFilter struct {
	BookingID *BookingID
	Actions   []AuditAction
}

// Matches reports whether e passes the filter.
func (f AuditFilter) Matches(e AuditEntry) bool {
	if f.BookingID != nil && e.BookingID != *f.BookingID {
		return false
	}
	if len(f.Actions) == 0 {
		return true
	}
	for _, a := range f.Actions {
		if a == e.Action {
			return true
		}
	}
	return false
}

// BookingFilter narrows ListBookings. Zero values match everything.
type BookingFilter struct {
	BoatID        BoatID
	Statuses      []pricing.BookingStatus
	EventEndUntil *time.Time
}

// Matches reports whether b passes the filter.
func (f BookingFilter) Matches(b Booking) bool {
	if f.BoatID != "" && b.BoatID != f.BoatID {
		return false
	}
	if f.EventEndUntil != nil && b.EventEnd.After(*f.EventEndUntil) {
		return false
	}
	if len(f.Statuses) == 0 {
		return true
	}
	for _, s := range f.Statuses {
		if s == b.Status {
			return true
		}
	}
	return false
}
