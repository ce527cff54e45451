package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tidewater/charter-engine/booking"
	"github.com/tidewater/charter-engine/pricing"
)

func TestWithTx_RestoresSnapshotOnError(t *testing.T) {
	// GIVEN: A store with one booking
	store := New()
	ctx := context.Background()
	require.NoError(t, store.CreateBooking(ctx, booking.Booking{ID: "bk-1", Status: pricing.StatusPending, Version: 1}))

	// WHEN: A transaction updates it and then fails
	boom := errors.New("boom")
	err := store.WithTx(ctx, func(tx booking.Store) error {
		b, err := tx.GetBooking(ctx, "bk-1")
		if err != nil {
			return err
		}
		b.Status = pricing.StatusCancelled
		if err := tx.UpdateBooking(ctx, *b, 1); err != nil {
			return err
		}
		if err := tx.AppendAudit(ctx, booking.AuditEntry{ID: "a-1"}); err != nil {
			return err
		}
		return boom
	})

	// THEN: The booking and audit log are as before
	assert.ErrorIs(t, err, boom)
	got, err := store.GetBooking(ctx, "bk-1")
	require.NoError(t, err)
	assert.Equal(t, pricing.StatusPending, got.Status)
	assert.Equal(t, int64(1), got.Version)

	entries, err := store.QueryAudit(ctx, booking.AuditFilter{})
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestUpdateBooking_StaleVersion(t *testing.T) {
	store := New()
	ctx := context.Background()
	require.NoError(t, store.CreateBooking(ctx, booking.Booking{ID: "bk-1", Version: 1}))
	require.NoError(t, store.UpdateBooking(ctx, booking.Booking{ID: "bk-1"}, 1))

	err := store.UpdateBooking(ctx, booking.Booking{ID: "bk-1"}, 1)
	assert.ErrorIs(t, err, booking.ErrConcurrentModification)

	err = store.UpdateBooking(ctx, booking.Booking{ID: "ghost"}, 1)
	assert.ErrorIs(t, err, booking.ErrNotFound)
}

func TestSettings_DefaultUntilSaved(t *testing.T) {
	store := New()
	ctx := context.Background()

	got, err := store.GetSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, pricing.DefaultSettings(), got)

	s := pricing.DefaultSettings()
	s.BufferMinutes = 0
	require.NoError(t, store.SaveSettings(ctx, s))
	got, err = store.GetSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, got.BufferMinutes)
}

func TestReset(t *testing.T) {
	store := New()
	ctx := context.Background()
	require.NoError(t, store.CreateBooking(ctx, booking.Booking{ID: "bk-1"}))
	require.NoError(t, store.SaveRule(ctx, pricing.PricingRule{ID: "weekend"}))

	require.NoError(t, store.Reset(ctx))

	all, err := store.ListBookings(ctx, booking.BookingFilter{})
	require.NoError(t, err)
	assert.Empty(t, all)
	rules, err := store.ListRules(ctx)
	require.NoError(t, err)
	assert.Empty(t, rules)
}
