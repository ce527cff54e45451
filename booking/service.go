package booking

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/tidewater/charter-engine/logging"
	"github.com/tidewater/charter-engine/metrics"
	"github.com/tidewater/charter-engine/pricing"
)

// =============================================================================
// SERVICE
// =============================================================================

// Service orchestrates quotes and the booking lifecycle.
type Service struct {
	store  TxStore
	logger *zap.Logger
	now    func() time.Time
	newID  func() string
}

type Option func(*Service)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIDGenerator replaces the UUID generator for booking and audit ids.
func WithIDGenerator(fn func() string) Option {
	return func(s *Service) { s.newID = fn }
}

func NewService(store TxStore, logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		store:  store,
		logger: logger,
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// QuoteRequest is a price request from the booking wizard. GuestCount <= 0
// while the guest count is not known yet.
type QuoteRequest struct {
	BoatID     BoatID
	EventStart time.Time
	EventEnd   time.Time
	GuestCount int
	Selected   []pricing.AddOnSelection

	// SlotPrice replaces the boat's base price when the chosen slot has its own.
	SlotPrice *decimal.Decimal

	AdminOverrideAmount *decimal.Decimal
}

// CreateRequest is a booking submission. AdminOverrideAmount must be nil.
type CreateRequest struct {
	QuoteRequest
	Customer Customer
}

// =============================================================================
// QUOTE
// =============================================================================

// Quote prices a request. No side effects beyond metrics.
func (s *Service) Quote(ctx context.Context, req QuoteRequest) (*pricing.PricingBreakdown, error) {
	return s.quote(ctx, s.store, req)
}

func (s *Service) quote(ctx context.Context, st Store, req QuoteRequest) (*pricing.PricingBreakdown, error) {
	log := logging.L(ctx, s.logger)

	if !req.EventEnd.IsZero() && !req.EventEnd.After(req.EventStart) {
		metrics.RecordQuote(metrics.ResultRejected, false)
		return nil, invalid("event end must be after event start")
	}

	boat, err := st.GetBoat(ctx, req.BoatID)
	if err != nil {
		metrics.RecordQuote(metrics.ResultRejected, false)
		return nil, err
	}
	rules, err := st.ListRules(ctx)
	if err != nil {
		metrics.RecordQuote(metrics.ResultError, false)
		return nil, fmt.Errorf("loading rules: %w", err)
	}
	settings, err := st.GetSettings(ctx)
	if err != nil {
		metrics.RecordQuote(metrics.ResultError, false)
		return nil, fmt.Errorf("loading settings: %w", err)
	}

	base := boat.BasePrice
	if req.SlotPrice != nil {
		base = *req.SlotPrice
	}

	bd, err := pricing.ComputePricing(pricing.PricingInput{
		BasePrice:           base,
		EventStart:          req.EventStart,
		GuestCount:          req.GuestCount,
		MinCapacity:         boat.MinCapacity,
		Catalog:             boat.AddOns,
		Selected:            req.Selected,
		AdminOverrideAmount: req.AdminOverrideAmount,
	}, rules, settings)
	if err != nil {
		result := metrics.ResultError
		if pricing.IsClientError(err) {
			result = metrics.ResultRejected
		}
		metrics.RecordQuote(result, false)
		log.Warn("quote failed", zap.String("boat_id", string(req.BoatID)), zap.Error(err))
		return nil, err
	}

	result := metrics.ResultOK
	if bd.Provisional {
		result = metrics.ResultProvisional
	}
	metrics.RecordQuote(result, bd.PriceClamped)

	for _, w := range bd.Warnings {
		log.Warn("pricing warning",
			zap.String("boat_id", string(req.BoatID)),
			zap.String("code", string(w.Code)),
			zap.String("rule_id", string(w.RuleID)),
			zap.String("message", w.Message))
	}
	return bd, nil
}

// =============================================================================
// CREATE
// =============================================================================

// Create quotes the request and stores a PENDING booking.
//
// Unlike a quote, a booking needs a known guest count within the boat's
// capacity, an event end, and a start inside the notice and advance-booking
// window. The boat must be free for the window plus the turnaround buffer.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Booking, error) {
	if req.Customer.Name == "" {
		return nil, invalid("customer name is required")
	}
	if req.GuestCount <= 0 {
		return nil, invalid("guest count is required")
	}
	if req.EventEnd.IsZero() || !req.EventEnd.After(req.EventStart) {
		return nil, invalid("event end must be after event start")
	}
	// Overrides are only set on an existing booking, through SetOverride.
	if req.AdminOverrideAmount != nil {
		return nil, invalid("admin override cannot be set when creating a booking")
	}

	now := s.now()
	var created *Booking

	err := s.store.WithTx(ctx, func(tx Store) error {
		boat, err := tx.GetBoat(ctx, req.BoatID)
		if err != nil {
			return err
		}
		if !boat.IsActive {
			return invalid("boat %s is not accepting bookings", boat.ID)
		}
		if req.GuestCount > boat.MaxCapacity {
			return invalid("%d guests exceeds capacity %d", req.GuestCount, boat.MaxCapacity)
		}

		settings, err := tx.GetSettings(ctx)
		if err != nil {
			return fmt.Errorf("loading settings: %w", err)
		}
		if err := checkBookingWindow(now, req.EventStart, settings); err != nil {
			return err
		}
		if err := checkAvailability(ctx, tx, boat.ID, req.EventStart, req.EventEnd, settings); err != nil {
			return err
		}

		bd, err := s.quote(ctx, tx, req.QuoteRequest)
		if err != nil {
			return err
		}

		b := Booking{
			ID:         BookingID(s.newID()),
			BoatID:     boat.ID,
			Customer:   req.Customer,
			EventStart: req.EventStart,
			EventEnd:   req.EventEnd,
			GuestCount: req.GuestCount,
			Status:     pricing.StatusPending,
			Selected:   req.Selected,
			Pricing:    *bd,
			Version:    1,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := tx.CreateBooking(ctx, b); err != nil {
			return err
		}
		if err := tx.AppendAudit(ctx, s.auditEntry(ctx, now, AuditBookingCreated, b.ID, map[string]any{
			"boat_id":      string(b.BoatID),
			"total_amount": bd.TotalAmount.String(),
			"final_amount": bd.FinalAmount.String(),
		})); err != nil {
			return err
		}
		created = &b
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordTransition(string(created.Status))
	logging.L(ctx, s.logger).Info("booking created",
		zap.String("booking_id", string(created.ID)),
		zap.String("boat_id", string(created.BoatID)),
		zap.String("final_amount", created.Pricing.FinalAmount.String()))
	return created, nil
}

func checkBookingWindow(now, start time.Time, settings pricing.BookingSettings) error {
	if settings.MinNoticeHours > 0 && start.Before(now.Add(time.Duration(settings.MinNoticeHours)*time.Hour)) {
		return invalid("bookings need at least %d hours notice", settings.MinNoticeHours)
	}
	if settings.MaxAdvanceDays > 0 && start.After(now.AddDate(0, 0, settings.MaxAdvanceDays)) {
		return invalid("bookings open at most %d days ahead", settings.MaxAdvanceDays)
	}
	return nil
}

func checkAvailability(ctx context.Context, st Store, boatID BoatID, start, end time.Time, settings pricing.BookingSettings) error {
	existing, err := st.ListBookings(ctx, BookingFilter{
		BoatID:   boatID,
		Statuses: []pricing.BookingStatus{pricing.StatusPending, pricing.StatusConfirmed},
	})
	if err != nil {
		return fmt.Errorf("checking availability: %w", err)
	}
	buffer := time.Duration(settings.BufferMinutes) * time.Minute
	for _, b := range existing {
		if start.Before(b.EventEnd.Add(buffer)) && b.EventStart.Before(end.Add(buffer)) {
			return fmt.Errorf("%w: overlaps booking %s", ErrSlotUnavailable, b.ID)
		}
	}
	return nil
}

// =============================================================================
// TRANSITIONS
// =============================================================================

// Confirm moves a PENDING booking to CONFIRMED.
func (s *Service) Confirm(ctx context.Context, id BookingID) (*Booking, error) {
	return s.transition(ctx, id, nil, AuditBookingConfirmed, func(_ Store, b *Booking, _ time.Time) (map[string]any, error) {
		if b.Status != pricing.StatusPending {
			return nil, &TransitionError{From: b.Status, Action: "confirm"}
		}
		b.Status = pricing.StatusConfirmed
		return nil, nil
	})
}

// Complete moves a CONFIRMED booking to COMPLETED once its event has ended.
func (s *Service) Complete(ctx context.Context, id BookingID) (*Booking, error) {
	return s.transition(ctx, id, nil, AuditBookingCompleted, func(_ Store, b *Booking, now time.Time) (map[string]any, error) {
		if b.Status != pricing.StatusConfirmed {
			return nil, &TransitionError{From: b.Status, Action: "complete"}
		}
		if now.Before(b.EventEnd) {
			return nil, &TransitionError{From: b.Status, Action: "complete", Reason: "event has not ended"}
		}
		b.Status = pricing.StatusCompleted
		return nil, nil
	})
}

// MarkNoShow moves a CONFIRMED booking to NO_SHOW once its event has started.
// No refund is recorded.
func (s *Service) MarkNoShow(ctx context.Context, id BookingID) (*Booking, error) {
	return s.transition(ctx, id, nil, AuditBookingNoShow, func(_ Store, b *Booking, now time.Time) (map[string]any, error) {
		if b.Status != pricing.StatusConfirmed {
			return nil, &TransitionError{From: b.Status, Action: "mark no-show"}
		}
		if now.Before(b.EventStart) {
			return nil, &TransitionError{From: b.Status, Action: "mark no-show", Reason: "event has not started"}
		}
		b.Status = pricing.StatusNoShow
		return nil, nil
	})
}

// CancelRequest describes a cancellation. The cancellation is dated by the
// service clock. ExpectedVersion, when set, must match the stored version.
type CancelRequest struct {
	Reason          string
	ExpectedVersion *int64
}

// Cancel resolves the refund against the stored breakdown and the current
// cancellation schedule, and records it on the booking. The version check
// guarantees the refund is recorded once.
func (s *Service) Cancel(ctx context.Context, id BookingID, req CancelRequest) (*Booking, error) {
	b, err := s.transition(ctx, id, req.ExpectedVersion, AuditBookingCancelled, func(tx Store, b *Booking, now time.Time) (map[string]any, error) {
		settings, err := tx.GetSettings(ctx)
		if err != nil {
			return nil, fmt.Errorf("loading settings: %w", err)
		}

		record, err := pricing.ComputeRefund(b.Snapshot(), settings, now, req.Reason)
		if err != nil {
			return nil, err
		}
		b.Status = pricing.StatusCancelled
		b.Cancellation = record
		return map[string]any{
			"tier":           string(record.Tier),
			"refund_percent": record.RefundPercent.String(),
			"refund_amount":  record.RefundAmount.String(),
			"reason":         record.Reason,
		}, nil
	})
	if err != nil {
		return nil, err
	}
	metrics.RecordRefund(string(b.Cancellation.Tier), b.Cancellation.RefundAmount)
	return b, nil
}

// SetOverride layers an admin override over the stored breakdown. A nil
// amount clears it. Total, tax and lines keep their computed values.
func (s *Service) SetOverride(ctx context.Context, id BookingID, amount *decimal.Decimal, expectedVersion *int64) (*Booking, error) {
	if _, err := pricing.ResolveFinalAmount(decimal.Zero, amount); err != nil {
		return nil, err
	}
	return s.transition(ctx, id, expectedVersion, AuditOverrideSet, func(_ Store, b *Booking, _ time.Time) (map[string]any, error) {
		if !b.Status.Cancellable() {
			return nil, &TransitionError{From: b.Status, Action: "override"}
		}
		payload := map[string]any{"total_amount": b.Pricing.TotalAmount.String()}
		if prev := b.Pricing.AdminOverrideAmount; prev != nil {
			payload["previous"] = prev.String()
		}
		if amount != nil {
			payload["amount"] = amount.String()
		}
		b.Pricing = pricing.ApplyOverride(b.Pricing, amount)
		return payload, nil
	})
}

type mutation func(tx Store, b *Booking, now time.Time) (map[string]any, error)

func (s *Service) transition(ctx context.Context, id BookingID, expectedVersion *int64, action AuditAction, mutate mutation) (*Booking, error) {
	now := s.now()
	var updated *Booking

	err := s.store.WithTx(ctx, func(tx Store) error {
		b, err := tx.GetBooking(ctx, id)
		if err != nil {
			return err
		}
		read := b.Version
		if expectedVersion != nil && *expectedVersion != read {
			return fmt.Errorf("%w: expected version %d, found %d", ErrConcurrentModification, *expectedVersion, read)
		}

		payload, err := mutate(tx, b, now)
		if err != nil {
			return err
		}
		b.UpdatedAt = now
		if err := tx.UpdateBooking(ctx, *b, read); err != nil {
			return err
		}
		b.Version = read + 1

		if payload == nil {
			payload = map[string]any{}
		}
		payload["status"] = string(b.Status)
		if err := tx.AppendAudit(ctx, s.auditEntry(ctx, now, action, b.ID, payload)); err != nil {
			return err
		}
		updated = b
		return nil
	})

	log := logging.L(ctx, s.logger).With(zap.String("booking_id", string(id)), zap.String("action", string(action)))
	if err != nil {
		log.Info("booking transition rejected", zap.Error(err))
		return nil, err
	}

	metrics.RecordTransition(string(updated.Status))
	log.Info("booking updated",
		zap.String("status", string(updated.Status)),
		zap.Int64("version", updated.Version))
	return updated, nil
}

func (s *Service) auditEntry(ctx context.Context, now time.Time, action AuditAction, id BookingID, payload map[string]any) AuditEntry {
	return AuditEntry{
		ID:        s.newID(),
		Timestamp: now,
		Actor:     logging.Actor(ctx, "system"),
		Action:    action,
		BookingID: id,
		Payload:   payload,
	}
}

// =============================================================================
// QUERIES
// =============================================================================

func (s *Service) GetBooking(ctx context.Context, id BookingID) (*Booking, error) {
	return s.store.GetBooking(ctx, id)
}

func (s *Service) ListBookings(ctx context.Context, filter BookingFilter) ([]Booking, error) {
	return s.store.ListBookings(ctx, filter)
}

// History returns the audit trail of one booking, oldest first.
func (s *Service) History(ctx context.Context, id BookingID) ([]AuditEntry, error) {
	if _, err := s.store.GetBooking(ctx, id); err != nil {
		return nil, err
	}
	return s.store.QueryAudit(ctx, AuditFilter{BookingID: &id})
}

// CompleteDue completes every CONFIRMED booking whose event has ended.
// Bookings that race with another writer are skipped and picked up next time.
func (s *Service) CompleteDue(ctx context.Context) (int, error) {
	now := s.now()
	due, err := s.store.ListBookings(ctx, BookingFilter{
		Statuses:      []pricing.BookingStatus{pricing.StatusConfirmed},
		EventEndUntil: &now,
	})
	if err != nil {
		return 0, err
	}

	completed := 0
	for _, b := range due {
		if ctx.Err() != nil {
			return completed, ctx.Err()
		}
		if _, err := s.Complete(ctx, b.ID); err != nil {
			if IsConflict(err) {
				continue
			}
			return completed, err
		}
		completed++
	}
	return completed, nil
}
