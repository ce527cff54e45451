/*
handlers.go - HTTP API handlers for the charter booking engine

PURPOSE:
  Exposes quoting, the booking lifecycle and the admin surface (rules,
  settings, fleet) via REST. Handles HTTP request/response and JSON, and
  delegates everything else to booking.Service.

ENDPOINTS:
  Quotes:
    POST   /api/quotes                     Price a request (no side effects)

  Bookings:
    GET    /api/bookings                   List (?boat_id=&status=A,B)
    POST   /api/bookings                   Create a PENDING booking
    GET    /api/bookings/{id}              Get one booking
    POST   /api/bookings/{id}/confirm      PENDING -> CONFIRMED
    POST   /api/bookings/{id}/complete     CONFIRMED -> COMPLETED
    POST   /api/bookings/{id}/no-show      CONFIRMED -> NO_SHOW
    POST   /api/bookings/{id}/cancel       Cancel and record the refund
    PUT    /api/bookings/{id}/override     Set or clear the admin override
    GET    /api/bookings/{id}/audit        Audit trail

  Rules:
    GET    /api/rules                      List in creation order
    POST   /api/rules                      Create (id generated if empty)
    GET    /api/rules/{id}                 Get one rule
    PUT    /api/rules/{id}                 Replace a rule
    DELETE /api/rules/{id}                 Delete a rule

  Settings:
    GET    /api/settings                   Current settings
    PUT    /api/settings                   Partial update

  Fleet:
    GET    /api/boats                      List boats
    POST   /api/boats                      Create or replace a boat
    GET    /api/boats/{id}                 Get one boat

ACTOR:
  The X-Actor header names who is acting. It is recorded on audit entries
  and defaults to "system".

ERROR HANDLING:
  Errors are returned as JSON with a status from the error classification:
  - 400: Validation errors, invalid input
  - 404: Booking, boat or rule not found
  - 409: State conflicts, lost version races, unavailable slots
  - 500: Internal errors

SECURITY NOTE:
  No authentication or authorization. Admin routes must sit behind a
  gateway that provides it.

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tidewater/charter-engine/booking"
	"github.com/tidewater/charter-engine/factory"
	"github.com/tidewater/charter-engine/logging"
	"github.com/tidewater/charter-engine/pricing"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Resetter clears all stored data. Both stores implement it.
type Resetter interface {
	Reset(ctx context.Context) error
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Service     *booking.Service
	RuleFactory *factory.RuleFactory
	Logger      *zap.Logger

	store Resetter

	// Track currently loaded scenario
	mu              sync.Mutex
	currentScenario string
}

// NewHandler creates a new handler. store is used only to reset data when a
// scenario is loaded.
func NewHandler(svc *booking.Service, store Resetter, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		Service:     svc,
		RuleFactory: factory.NewRuleFactory(),
		Logger:      logger,
		store:       store,
	}
}

// =============================================================================
// QUOTE HANDLERS
// =============================================================================

// Quote prices a request without creating anything.
func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	var req QuoteRequest
	if !decode(w, r, &req) {
		return
	}

	bd, err := h.Service.Quote(r.Context(), req.toDomain())
	if err != nil {
		h.writeServiceError(w, r, "Failed to compute quote", err)
		return
	}
	writeJSON(w, http.StatusOK, bd)
}

// =============================================================================
// BOOKING HANDLERS
// =============================================================================

// ListBookings returns bookings, optionally filtered by boat and status.
func (h *Handler) ListBookings(w http.ResponseWriter, r *http.Request) {
	filter := booking.BookingFilter{BoatID: booking.BoatID(r.URL.Query().Get("boat_id"))}
	if raw := r.URL.Query().Get("status"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			filter.Statuses = append(filter.Statuses, pricing.BookingStatus(strings.ToUpper(strings.TrimSpace(s))))
		}
	}

	bookings, err := h.Service.ListBookings(r.Context(), filter)
	if err != nil {
		h.writeServiceError(w, r, "Failed to list bookings", err)
		return
	}
	writeJSON(w, http.StatusOK, bookings)
}

// CreateBooking creates a PENDING booking with its computed breakdown.
func (h *Handler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	var req CreateBookingRequest
	if !decode(w, r, &req) {
		return
	}

	b, err := h.Service.Create(r.Context(), booking.CreateRequest{
		QuoteRequest: req.QuoteRequest.toDomain(),
		Customer:     req.Customer,
	})
	if err != nil {
		h.writeServiceError(w, r, "Failed to create booking", err)
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

// GetBooking returns a single booking.
func (h *Handler) GetBooking(w http.ResponseWriter, r *http.Request) {
	b, err := h.Service.GetBooking(r.Context(), bookingID(r))
	if err != nil {
		h.writeServiceError(w, r, "Failed to get booking", err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// ConfirmBooking moves a booking from PENDING to CONFIRMED.
func (h *Handler) ConfirmBooking(w http.ResponseWriter, r *http.Request) {
	h.respondBooking(w, r, "Failed to confirm booking")(h.Service.Confirm(r.Context(), bookingID(r)))
}

// CompleteBooking marks a finished charter as COMPLETED.
func (h *Handler) CompleteBooking(w http.ResponseWriter, r *http.Request) {
	h.respondBooking(w, r, "Failed to complete booking")(h.Service.Complete(r.Context(), bookingID(r)))
}

// MarkNoShow marks a started charter whose customer never arrived.
func (h *Handler) MarkNoShow(w http.ResponseWriter, r *http.Request) {
	h.respondBooking(w, r, "Failed to mark no-show")(h.Service.MarkNoShow(r.Context(), bookingID(r)))
}

// CancelBooking cancels a booking and records the refund owed.
func (h *Handler) CancelBooking(w http.ResponseWriter, r *http.Request) {
	var req CancelBookingRequest
	if r.ContentLength != 0 && !decode(w, r, &req) {
		return
	}

	b, err := h.Service.Cancel(r.Context(), bookingID(r), booking.CancelRequest{
		Reason:          req.Reason,
		ExpectedVersion: req.ExpectedVersion,
	})
	h.respondBooking(w, r, "Failed to cancel booking")(b, err)
}

// SetOverride sets or clears the admin override on a booking.
func (h *Handler) SetOverride(w http.ResponseWriter, r *http.Request) {
	var req OverrideRequest
	if !decode(w, r, &req) {
		return
	}
	h.respondBooking(w, r, "Failed to set override")(
		h.Service.SetOverride(r.Context(), bookingID(r), req.Amount, req.ExpectedVersion))
}

// GetBookingAudit returns the audit trail of a booking.
func (h *Handler) GetBookingAudit(w http.ResponseWriter, r *http.Request) {
	entries, err := h.Service.History(r.Context(), bookingID(r))
	if err != nil {
		h.writeServiceError(w, r, "Failed to get audit trail", err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *Handler) respondBooking(w http.ResponseWriter, r *http.Request, message string) func(*booking.Booking, error) {
	return func(b *booking.Booking, err error) {
		if err != nil {
			h.writeServiceError(w, r, message, err)
			return
		}
		writeJSON(w, http.StatusOK, b)
	}
}

func bookingID(r *http.Request) booking.BookingID {
	return booking.BookingID(chi.URLParam(r, "id"))
}

// =============================================================================
// RULE HANDLERS
// =============================================================================

// ListRules returns all rules in creation order.
func (h *Handler) ListRules(w http.ResponseWriter, r *http.Request) {
	rules, err := h.Service.ListRules(r.Context())
	if err != nil {
		h.writeServiceError(w, r, "Failed to list rules", err)
		return
	}
	out := make([]factory.RuleJSON, len(rules))
	for i, rule := range rules {
		out[i] = h.RuleFactory.ToJSON(rule)
	}
	writeJSON(w, http.StatusOK, out)
}

// GetRule returns a single rule.
func (h *Handler) GetRule(w http.ResponseWriter, r *http.Request) {
	rule, err := h.Service.GetRule(r.Context(), pricing.RuleID(chi.URLParam(r, "id")))
	if err != nil {
		h.writeServiceError(w, r, "Failed to get rule", err)
		return
	}
	writeJSON(w, http.StatusOK, h.RuleFactory.ToJSON(*rule))
}

// CreateRule validates and stores a new rule.
func (h *Handler) CreateRule(w http.ResponseWriter, r *http.Request) {
	var rj factory.RuleJSON
	if !decode(w, r, &rj) {
		return
	}
	if rj.ID == "" {
		rj.ID = uuid.NewString()
	}
	h.saveRule(w, r, rj, http.StatusCreated)
}

// UpdateRule replaces the rule named in the path.
func (h *Handler) UpdateRule(w http.ResponseWriter, r *http.Request) {
	var rj factory.RuleJSON
	if !decode(w, r, &rj) {
		return
	}
	id := chi.URLParam(r, "id")
	if _, err := h.Service.GetRule(r.Context(), pricing.RuleID(id)); err != nil {
		h.writeServiceError(w, r, "Failed to update rule", err)
		return
	}
	rj.ID = id
	h.saveRule(w, r, rj, http.StatusOK)
}

func (h *Handler) saveRule(w http.ResponseWriter, r *http.Request, rj factory.RuleJSON, status int) {
	rule, err := h.RuleFactory.FromJSON(rj)
	if err != nil {
		h.writeServiceError(w, r, "Invalid rule", err)
		return
	}
	saved, err := h.Service.SaveRule(r.Context(), rule)
	if err != nil {
		h.writeServiceError(w, r, "Failed to save rule", err)
		return
	}
	writeJSON(w, status, h.RuleFactory.ToJSON(*saved))
}

// DeleteRule removes a rule. Stored bookings keep their prices.
func (h *Handler) DeleteRule(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.DeleteRule(r.Context(), pricing.RuleID(chi.URLParam(r, "id"))); err != nil {
		h.writeServiceError(w, r, "Failed to delete rule", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// SETTINGS HANDLERS
// =============================================================================

// GetSettings returns the current booking settings.
func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.Service.Settings(r.Context())
	if err != nil {
		h.writeServiceError(w, r, "Failed to get settings", err)
		return
	}
	writeJSON(w, http.StatusOK, factory.SettingsToJSON(settings))
}

// UpdateSettings applies the fields present in the body to the current settings.
func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var sj factory.SettingsJSON
	if !decode(w, r, &sj) {
		return
	}

	current, err := h.Service.Settings(r.Context())
	if err != nil {
		h.writeServiceError(w, r, "Failed to get settings", err)
		return
	}
	merged, err := factory.MergeSettings(current, sj)
	if err != nil {
		h.writeServiceError(w, r, "Invalid settings", err)
		return
	}
	saved, err := h.Service.UpdateSettings(r.Context(), merged)
	if err != nil {
		h.writeServiceError(w, r, "Failed to update settings", err)
		return
	}
	writeJSON(w, http.StatusOK, factory.SettingsToJSON(saved))
}

// =============================================================================
// FLEET HANDLERS
// =============================================================================

// ListBoats returns the fleet.
func (h *Handler) ListBoats(w http.ResponseWriter, r *http.Request) {
	boats, err := h.Service.ListBoats(r.Context())
	if err != nil {
		h.writeServiceError(w, r, "Failed to list boats", err)
		return
	}
	out := make([]BoatDTO, len(boats))
	for i, b := range boats {
		out[i] = toBoatDTO(b)
	}
	writeJSON(w, http.StatusOK, out)
}

// GetBoat returns a single boat.
func (h *Handler) GetBoat(w http.ResponseWriter, r *http.Request) {
	boat, err := h.Service.GetBoat(r.Context(), booking.BoatID(chi.URLParam(r, "id")))
	if err != nil {
		h.writeServiceError(w, r, "Failed to get boat", err)
		return
	}
	writeJSON(w, http.StatusOK, toBoatDTO(*boat))
}

// SaveBoat creates or replaces a boat and its add-on catalog.
func (h *Handler) SaveBoat(w http.ResponseWriter, r *http.Request) {
	var dto BoatDTO
	if !decode(w, r, &dto) {
		return
	}
	if dto.ID == "" {
		dto.ID = uuid.NewString()
	}
	boat, err := h.Service.SaveBoat(r.Context(), dto.toDomain())
	if err != nil {
		h.writeServiceError(w, r, "Failed to save boat", err)
		return
	}
	writeJSON(w, http.StatusCreated, toBoatDTO(*boat))
}

// =============================================================================
// HELPERS
// =============================================================================

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// statusFor maps a service error to an HTTP status.
func statusFor(err error) int {
	switch {
	case booking.IsNotFound(err):
		return http.StatusNotFound
	case booking.IsConflict(err):
		return http.StatusConflict
	case booking.IsClientError(err):
		return http.StatusBadRequest
	case errors.Is(err, context.Canceled):
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, message string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logging.L(r.Context(), h.Logger).Error(message, zap.Error(err))
		writeError(w, status, message, nil)
		return
	}
	writeError(w, status, message, err)
}
