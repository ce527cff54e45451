/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. Bookings and pricing
  breakdowns already carry JSON tags and are returned as they are; the types
  here cover request bodies and the few responses that need reshaping.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

TYPES:
  Quotes and bookings:
    QuoteRequest, CreateBookingRequest, CancelBookingRequest, OverrideRequest

  Fleet:
    BoatDTO

  Rules and settings:
    factory.RuleJSON, factory.SettingsJSON (used directly)

  Scenarios:
    ScenarioDTO, LoadScenarioRequest

MONEY:
  Amounts are decimals. They are written as JSON strings ("50000") and
  accepted as either strings or numbers.

VALIDATION:
  Validation is done by the booking service and the factory, not in DTOs.

SEE ALSO:
  - handlers.go: Uses these types
  - factory/rule.go: RuleJSON type
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/tidewater/charter-engine/booking"
	"github.com/tidewater/charter-engine/pricing"
)

// =============================================================================
// QUOTES AND BOOKINGS
// =============================================================================

// QuoteRequest asks for a price. guest_count may be omitted while unknown.
type QuoteRequest struct {
	BoatID              string                   `json:"boat_id"`
	EventStart          time.Time                `json:"event_start"`
	EventEnd            *time.Time               `json:"event_end,omitempty"`
	GuestCount          int                      `json:"guest_count,omitempty"`
	AddOns              []pricing.AddOnSelection `json:"add_ons,omitempty"`
	SlotPrice           *decimal.Decimal         `json:"slot_price,omitempty"`
	AdminOverrideAmount *decimal.Decimal         `json:"admin_override_amount,omitempty"`
}

func (q QuoteRequest) toDomain() booking.QuoteRequest {
	req := booking.QuoteRequest{
		BoatID:              booking.BoatID(q.BoatID),
		EventStart:          q.EventStart,
		GuestCount:          q.GuestCount,
		Selected:            q.AddOns,
		SlotPrice:           q.SlotPrice,
		AdminOverrideAmount: q.AdminOverrideAmount,
	}
	if q.EventEnd != nil {
		req.EventEnd = *q.EventEnd
	}
	return req
}

// CreateBookingRequest submits a booking.
type CreateBookingRequest struct {
	QuoteRequest
	Customer booking.Customer `json:"customer"`
}

// CancelBookingRequest cancels a booking as of the server's clock.
type CancelBookingRequest struct {
	Reason          string `json:"reason"`
	ExpectedVersion *int64 `json:"expected_version,omitempty"`
}

// OverrideRequest sets the admin override. A null amount clears it.
type OverrideRequest struct {
	Amount          *decimal.Decimal `json:"amount"`
	ExpectedVersion *int64           `json:"expected_version,omitempty"`
}

// =============================================================================
// FLEET
// =============================================================================

// BoatDTO represents a boat with its add-on catalog.
type BoatDTO struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	BasePrice   decimal.Decimal `json:"base_price"`
	MinCapacity int             `json:"min_capacity"`
	MaxCapacity int             `json:"max_capacity"`
	AddOns      []pricing.AddOn `json:"add_ons"`
	IsActive    bool            `json:"is_active"`
}

func toBoatDTO(b booking.Boat) BoatDTO {
	addOns := b.AddOns
	if addOns == nil {
		addOns = []pricing.AddOn{}
	}
	return BoatDTO{
		ID:          string(b.ID),
		Name:        b.Name,
		BasePrice:   b.BasePrice,
		MinCapacity: b.MinCapacity,
		MaxCapacity: b.MaxCapacity,
		AddOns:      addOns,
		IsActive:    b.IsActive,
	}
}

func (d BoatDTO) toDomain() booking.Boat {
	return booking.Boat{
		ID:          booking.BoatID(d.ID),
		Name:        d.Name,
		BasePrice:   d.BasePrice,
		MinCapacity: d.MinCapacity,
		MaxCapacity: d.MaxCapacity,
		AddOns:      d.AddOns,
		IsActive:    d.IsActive,
	}
}

// =============================================================================
// SCENARIOS
// =============================================================================

// ScenarioDTO describes a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// LoadScenarioRequest is the request to load a scenario.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrorResponse is returned on errors.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
