// Package memory provides an in-memory booking.TxStore for tests and demos.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/tidewater/charter-engine/booking"
	"github.com/tidewater/charter-engine/pricing"
)

// =============================================================================
// MEMORY STORE
// =============================================================================

type Store struct {
	mu    sync.Mutex
	state state
}

type state struct {
	bookings map[booking.BookingID]booking.Booking
	order    []booking.BookingID
	boats    map[booking.BoatID]booking.Boat
	rules    map[pricing.RuleID]pricing.PricingRule
	settings *pricing.BookingSettings
	audit    []booking.AuditEntry
}

var _ booking.TxStore = (*Store)(nil)

func New() *Store {
	return &Store{state: state{
		bookings: make(map[booking.BookingID]booking.Booking),
		boats:    make(map[booking.BoatID]booking.Boat),
		rules:    make(map[pricing.RuleID]pricing.PricingRule),
	}}
}

// WithTx executes fn while holding the store lock.
// Rollback is simulated with a snapshot that is restored on error.
func (m *Store) WithTx(_ context.Context, fn func(booking.Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.state.clone()
	if err := fn(&view{s: &m.state}); err != nil {
		m.state = snapshot
		return err
	}
	return nil
}

func (m *Store) locked() (*view, func()) {
	m.mu.Lock()
	return &view{s: &m.state}, m.mu.Unlock
}

func (m *Store) CreateBooking(ctx context.Context, b booking.Booking) error {
	v, unlock := m.locked()
	defer unlock()
	return v.CreateBooking(ctx, b)
}

func (m *Store) GetBooking(ctx context.Context, id booking.BookingID) (*booking.Booking, error) {
	v, unlock := m.locked()
	defer unlock()
	return v.GetBooking(ctx, id)
}

func (m *Store) ListBookings(ctx context.Context, filter booking.BookingFilter) ([]booking.Booking, error) {
	v, unlock := m.locked()
	defer unlock()
	return v.ListBookings(ctx, filter)
}

func (m *Store) UpdateBooking(ctx context.Context, b booking.Booking, expectedVersion int64) error {
	v, unlock := m.locked()
	defer unlock()
	return v.UpdateBooking(ctx, b, expectedVersion)
}

func (m *Store) SaveBoat(ctx context.Context, boat booking.Boat) error {
	v, unlock := m.locked()
	defer unlock()
	return v.SaveBoat(ctx, boat)
}

func (m *Store) GetBoat(ctx context.Context, id booking.BoatID) (*booking.Boat, error) {
	v, unlock := m.locked()
	defer unlock()
	return v.GetBoat(ctx, id)
}

func (m *Store) ListBoats(ctx context.Context) ([]booking.Boat, error) {
	v, unlock := m.locked()
	defer unlock()
	return v.ListBoats(ctx)
}

func (m *Store) SaveRule(ctx context.Context, rule pricing.PricingRule) error {
	v, unlock := m.locked()
	defer unlock()
	return v.SaveRule(ctx, rule)
}

func (m *Store) GetRule(ctx context.Context, id pricing.RuleID) (*pricing.PricingRule, error) {
	v, unlock := m.locked()
	defer unlock()
	return v.GetRule(ctx, id)
}

func (m *Store) ListRules(ctx context.Context) ([]pricing.PricingRule, error) {
	v, unlock := m.locked()
	defer unlock()
	return v.ListRules(ctx)
}

func (m *Store) DeleteRule(ctx context.Context, id pricing.RuleID) error {
	v, unlock := m.locked()
	defer unlock()
	return v.DeleteRule(ctx, id)
}

func (m *Store) GetSettings(ctx context.Context) (pricing.BookingSettings, error) {
	v, unlock := m.locked()
	defer unlock()
	return v.GetSettings(ctx)
}

func (m *Store) SaveSettings(ctx context.Context, s pricing.BookingSettings) error {
	v, unlock := m.locked()
	defer unlock()
	return v.SaveSettings(ctx, s)
}

func (m *Store) AppendAudit(ctx context.Context, entry booking.AuditEntry) error {
	v, unlock := m.locked()
	defer unlock()
	return v.AppendAudit(ctx, entry)
}

func (m *Store) QueryAudit(ctx context.Context, filter booking.AuditFilter) ([]booking.AuditEntry, error) {
	v, unlock := m.locked()
	defer unlock()
	return v.QueryAudit(ctx, filter)
}

// =============================================================================
// VIEW - Unlocked operations, used under the store lock
// =============================================================================

type view struct {
	s *state
}

func (v *view) CreateBooking(_ context.Context, b booking.Booking) error {
	if _, ok := v.s.bookings[b.ID]; ok {
		return fmt.Errorf("booking %s already exists", b.ID)
	}
	v.s.bookings[b.ID] = b
	v.s.order = append(v.s.order, b.ID)
	return nil
}

func (v *view) GetBooking(_ context.Context, id booking.BookingID) (*booking.Booking, error) {
	b, ok := v.s.bookings[id]
	if !ok {
		return nil, fmt.Errorf("%w: booking %s", booking.ErrNotFound, id)
	}
	return &b, nil
}

func (v *view) ListBookings(_ context.Context, filter booking.BookingFilter) ([]booking.Booking, error) {
	out := []booking.Booking{}
	for _, id := range v.s.order {
		b := v.s.bookings[id]
		if filter.Matches(b) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (v *view) UpdateBooking(_ context.Context, b booking.Booking, expectedVersion int64) error {
	stored, ok := v.s.bookings[b.ID]
	if !ok {
		return fmt.Errorf("%w: booking %s", booking.ErrNotFound, b.ID)
	}
	if stored.Version != expectedVersion {
		return fmt.Errorf("%w: booking %s at version %d, expected %d",
			booking.ErrConcurrentModification, b.ID, stored.Version, expectedVersion)
	}
	b.Version = expectedVersion + 1
	v.s.bookings[b.ID] = b
	return nil
}

func (v *view) SaveBoat(_ context.Context, boat booking.Boat) error {
	boat.AddOns = append([]pricing.AddOn(nil), boat.AddOns...)
	v.s.boats[boat.ID] = boat
	return nil
}

func (v *view) GetBoat(_ context.Context, id booking.BoatID) (*booking.Boat, error) {
	boat, ok := v.s.boats[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", booking.ErrBoatNotFound, id)
	}
	return &boat, nil
}

func (v *view) ListBoats(_ context.Context) ([]booking.Boat, error) {
	out := make([]booking.Boat, 0, len(v.s.boats))
	for _, b := range v.s.boats {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (v *view) SaveRule(_ context.Context, rule pricing.PricingRule) error {
	v.s.rules[rule.ID] = rule
	return nil
}

func (v *view) GetRule(_ context.Context, id pricing.RuleID) (*pricing.PricingRule, error) {
	rule, ok := v.s.rules[id]
	if !ok {
		return nil, fmt.Errorf("%w: rule %s", booking.ErrNotFound, id)
	}
	return &rule, nil
}

func (v *view) ListRules(_ context.Context) ([]pricing.PricingRule, error) {
	out := make([]pricing.PricingRule, 0, len(v.s.rules))
	for _, r := range v.s.rules {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (v *view) DeleteRule(_ context.Context, id pricing.RuleID) error {
	if _, ok := v.s.rules[id]; !ok {
		return fmt.Errorf("%w: rule %s", booking.ErrNotFound, id)
	}
	delete(v.s.rules, id)
	return nil
}

func (v *view) GetSettings(_ context.Context) (pricing.BookingSettings, error) {
	if v.s.settings == nil {
		return pricing.DefaultSettings(), nil
	}
	return *v.s.settings, nil
}

func (v *view) SaveSettings(_ context.Context, s pricing.BookingSettings) error {
	v.s.settings = &s
	return nil
}

func (v *view) AppendAudit(_ context.Context, entry booking.AuditEntry) error {
	v.s.audit = append(v.s.audit, entry)
	return nil
}

func (v *view) QueryAudit(_ context.Context, filter booking.AuditFilter) ([]booking.AuditEntry, error) {
	out := []booking.AuditEntry{}
	for _, e := range v.s.audit {
		if filter.Matches(e) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s state) clone() state {
	c := state{
		bookings: make(map[booking.BookingID]booking.Booking, len(s.bookings)),
		order:    append([]booking.BookingID(nil), s.order...),
		boats:    make(map[booking.BoatID]booking.Boat, len(s.boats)),
		rules:    make(map[pricing.RuleID]pricing.PricingRule, len(s.rules)),
		audit:    append([]booking.AuditEntry(nil), s.audit...),
	}
	for k, v := range s.bookings {
		c.bookings[k] = v
	}
	for k, v := range s.boats {
		c.boats[k] = v
	}
	for k, v := range s.rules {
		c.rules[k] = v
	}
	if s.settings != nil {
		settings := *s.settings
		c.settings = &settings
	}
	return c
}

// Reset clears all data (for demos).
func (m *Store) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = New().state
	return nil
}
