/*
handlers_test.go - HTTP tests for the API handlers

Tests for:
- Quotes and the booking lifecycle over HTTP
- Error classification (400 / 404 / 409)
- Rule and settings admin
- Health and metrics endpoints
*/
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tidewater/charter-engine/booking"
	"github.com/tidewater/charter-engine/factory"
	"github.com/tidewater/charter-engine/pricing"
	"github.com/tidewater/charter-engine/store/sqlite"
)

var (
	// Saturday 2025-06-14, 10:00-14:00 UTC
	testEventStart = time.Date(2025, time.June, 14, 10, 0, 0, 0, time.UTC)
	testEventEnd   = time.Date(2025, time.June, 14, 14, 0, 0, 0, time.UTC)
	testNow        = time.Date(2025, time.June, 1, 9, 0, 0, 0, time.UTC)
)

type testServer struct {
	t       *testing.T
	handler *Handler
	router  http.Handler
}

// newTestServer wires a sqlite :memory: store, one boat, a weekend +10% rule
// and a 50% advance.
func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	svc := booking.NewService(store, nil, booking.WithClock(func() time.Time { return testNow }))
	h := NewHandler(svc, store, nil)
	ts := &testServer{t: t, handler: h, router: NewRouter(h, RouterOptions{})}

	ctx := context.Background()
	_, err = svc.SaveBoat(ctx, booking.Boat{
		ID: "sea-breeze", Name: "Sea Breeze", BasePrice: decimal.NewFromInt(50000),
		MinCapacity: 4, MaxCapacity: 12, IsActive: true,
		AddOns: []pricing.AddOn{
			{ID: "deco", Type: "decoration", Label: "Balloons", Price: decimal.NewFromInt(2500), PriceType: pricing.PriceFixed},
		},
	})
	require.NoError(t, err)

	rec := ts.do(http.MethodPost, "/api/rules", factory.WeekendSurcharge("weekend", 10))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rec = ts.do(http.MethodPut, "/api/settings", map[string]any{"advance_percent": 50})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return ts
}

func (ts *testServer) do(method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	ts.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(ts.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func (ts *testServer) createBooking() booking.Booking {
	ts.t.Helper()
	rec := ts.do(http.MethodPost, "/api/bookings", CreateBookingRequest{
		QuoteRequest: QuoteRequest{
			BoatID:     "sea-breeze",
			EventStart: testEventStart,
			EventEnd:   &testEventEnd,
			GuestCount: 8,
		},
		Customer: booking.Customer{Name: "Asha", Email: "asha@example.com"},
	})
	require.Equal(ts.t, http.StatusCreated, rec.Code, rec.Body.String())
	return decodeBody[booking.Booking](ts.t, rec)
}

func assertAmount(t *testing.T, want string, got decimal.Decimal, msg string) {
	t.Helper()
	assert.True(t, got.Equal(decimal.RequireFromString(want)), "%s: want %s, got %s", msg, want, got)
}

// =============================================================================
// QUOTES
// =============================================================================

func TestQuote_AppliesWeekendRule(t *testing.T) {
	// GIVEN: A weekend +10% rule and 18% exclusive GST
	ts := newTestServer(t)

	// WHEN: A Saturday charter is quoted
	rec := ts.do(http.MethodPost, "/api/quotes", QuoteRequest{
		BoatID: "sea-breeze", EventStart: testEventStart, GuestCount: 8,
	})

	// THEN: The breakdown carries the adjusted price, tax and split
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	bd := decodeBody[pricing.PricingBreakdown](t, rec)
	assertAmount(t, "55000", bd.AdjustedBasePrice, "adjusted base")
	assertAmount(t, "9900", bd.GSTAmount, "gst")
	assertAmount(t, "64900", bd.FinalAmount, "final")
	assertAmount(t, "32450", bd.Payment.Advance, "advance")
	require.Len(t, bd.Adjustments, 1)
	assert.Equal(t, pricing.RuleID("weekend"), bd.Adjustments[0].RuleID)
}

func TestQuote_Errors(t *testing.T) {
	ts := newTestServer(t)

	tests := map[string]struct {
		body   any
		status int
	}{
		"unknown boat": {
			body:   QuoteRequest{BoatID: "ghost", EventStart: testEventStart},
			status: http.StatusNotFound,
		},
		"unknown add-on": {
			body: QuoteRequest{
				BoatID: "sea-breeze", EventStart: testEventStart, GuestCount: 8,
				AddOns: []pricing.AddOnSelection{{AddOnID: "fireworks"}},
			},
			status: http.StatusBadRequest,
		},
		"malformed body": {
			body:   "not an object",
			status: http.StatusBadRequest,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			rec := ts.do(http.MethodPost, "/api/quotes", tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			resp := decodeBody[ErrorResponse](t, rec)
			assert.NotEmpty(t, resp.Error)
		})
	}
}

// =============================================================================
// BOOKING LIFECYCLE
// =============================================================================

func TestBooking_CreateConfirmCancel(t *testing.T) {
	// GIVEN: A created booking
	ts := newTestServer(t)
	b := ts.createBooking()
	assert.Equal(t, pricing.StatusPending, b.Status)
	assertAmount(t, "64900", b.Pricing.FinalAmount, "stored final")

	// WHEN: It is confirmed and then cancelled two weeks before the event
	rec := ts.do(http.MethodPost, "/api/bookings/"+string(b.ID)+"/confirm", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = ts.do(http.MethodPost, "/api/bookings/"+string(b.ID)+"/cancel", CancelBookingRequest{
		Reason: "weather",
	}, "X-Actor", "admin@tidewater")

	// THEN: The full amount is refunded once
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	cancelled := decodeBody[booking.Booking](t, rec)
	assert.Equal(t, pricing.StatusCancelled, cancelled.Status)
	require.NotNil(t, cancelled.Cancellation)
	assert.Equal(t, pricing.Tier24h, cancelled.Cancellation.Tier)
	assertAmount(t, "64900", cancelled.Cancellation.RefundAmount, "refund")

	rec = ts.do(http.MethodPost, "/api/bookings/"+string(b.ID)+"/cancel", CancelBookingRequest{Reason: "again"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	// AND: The audit trail names the actor
	rec = ts.do(http.MethodGet, "/api/bookings/"+string(b.ID)+"/audit", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	entries := decodeBody[[]booking.AuditEntry](t, rec)
	require.Len(t, entries, 3)
	assert.Equal(t, booking.AuditBookingCancelled, entries[2].Action)
	assert.Equal(t, "admin@tidewater", entries[2].Actor)
}

func TestBooking_OverlapIsConflict(t *testing.T) {
	ts := newTestServer(t)
	ts.createBooking()

	later := testEventEnd.Add(15 * time.Minute)
	laterEnd := later.Add(2 * time.Hour)
	rec := ts.do(http.MethodPost, "/api/bookings", CreateBookingRequest{
		QuoteRequest: QuoteRequest{BoatID: "sea-breeze", EventStart: later, EventEnd: &laterEnd, GuestCount: 6},
		Customer:     booking.Customer{Name: "Ravi"},
	})
	assert.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())
}

func TestBooking_CreateValidation(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodPost, "/api/bookings", CreateBookingRequest{
		QuoteRequest: QuoteRequest{BoatID: "sea-breeze", EventStart: testEventStart, EventEnd: &testEventEnd},
		Customer:     booking.Customer{Name: "Asha"},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "guest count is required for a booking")
}

func TestBooking_CreateRejectsOverride(t *testing.T) {
	// GIVEN: A storefront submission carrying its own price
	ts := newTestServer(t)
	override := decimal.NewFromInt(1)

	// WHEN: It is posted
	rec := ts.do(http.MethodPost, "/api/bookings", CreateBookingRequest{
		QuoteRequest: QuoteRequest{
			BoatID: "sea-breeze", EventStart: testEventStart, EventEnd: &testEventEnd,
			GuestCount: 8, AdminOverrideAmount: &override,
		},
		Customer: booking.Customer{Name: "Asha"},
	})

	// THEN: Nothing is booked
	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	rec = ts.do(http.MethodGet, "/api/bookings", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeBody[[]booking.Booking](t, rec))
}

func TestBooking_CancelIgnoresClientTimestamp(t *testing.T) {
	// GIVEN: A confirmed booking created at the server's current time
	ts := newTestServer(t)
	b := ts.createBooking()
	rec := ts.do(http.MethodPost, "/api/bookings/"+string(b.ID)+"/confirm", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// WHEN: The client sends a cancellation date from before the booking existed
	rec = ts.do(http.MethodPost, "/api/bookings/"+string(b.ID)+"/cancel", map[string]any{
		"reason":       "weather",
		"cancelled_at": "2024-05-15T00:00:00Z",
	})

	// THEN: The cancellation is dated by the server
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	cancelled := decodeBody[booking.Booking](t, rec)
	require.NotNil(t, cancelled.Cancellation)
	assert.True(t, cancelled.Cancellation.CancelledAt.Equal(testNow), "got %s", cancelled.Cancellation.CancelledAt)
	assert.False(t, cancelled.Cancellation.CancelledAt.Before(b.CreatedAt))
}

func TestBooking_NotFound(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodGet, "/api/bookings/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(http.MethodPost, "/api/bookings/missing/confirm", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBooking_OverrideAndStaleVersion(t *testing.T) {
	// GIVEN: A booking at version 1
	ts := newTestServer(t)
	b := ts.createBooking()
	amount := decimal.NewFromInt(60000)
	v1 := int64(1)

	// WHEN: The override is set against version 1
	rec := ts.do(http.MethodPut, "/api/bookings/"+string(b.ID)+"/override", OverrideRequest{Amount: &amount, ExpectedVersion: &v1})

	// THEN: The final amount and split follow the override, tax does not
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decodeBody[booking.Booking](t, rec)
	assertAmount(t, "60000", updated.Pricing.FinalAmount, "final")
	assertAmount(t, "64900", updated.Pricing.TotalAmount, "total")
	assertAmount(t, "30000", updated.Pricing.Payment.Advance, "advance")
	assert.Equal(t, int64(2), updated.Version)

	// AND: A second write against version 1 is rejected
	rec = ts.do(http.MethodPut, "/api/bookings/"+string(b.ID)+"/override", OverrideRequest{Amount: nil, ExpectedVersion: &v1})
	assert.Equal(t, http.StatusConflict, rec.Code)

	negative := decimal.NewFromInt(-1)
	rec = ts.do(http.MethodPut, "/api/bookings/"+string(b.ID)+"/override", OverrideRequest{Amount: &negative})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListBookings_StatusFilter(t *testing.T) {
	ts := newTestServer(t)
	b := ts.createBooking()

	rec := ts.do(http.MethodGet, "/api/bookings?status=confirmed", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeBody[[]booking.Booking](t, rec))

	rec = ts.do(http.MethodGet, "/api/bookings?status=pending,confirmed&boat_id=sea-breeze", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decodeBody[[]booking.Booking](t, rec)
	require.Len(t, list, 1)
	assert.Equal(t, b.ID, list[0].ID)
}

// =============================================================================
// ADMIN
// =============================================================================

func TestRules_CRUD(t *testing.T) {
	ts := newTestServer(t)

	// Create with a generated id
	rec := ts.do(http.MethodPost, "/api/rules", factory.RuleJSON{
		Name: "Sunset", Type: "PEAK_HOURS", AdjustmentPercent: decimal.NewFromInt(15), IsActive: true,
		Conditions: factory.ConditionsJSON{StartTime: "17:00", EndTime: "21:00"},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decodeBody[factory.RuleJSON](t, rec)
	require.NotEmpty(t, created.ID)
	require.NotNil(t, created.CreatedAt)

	// Update keeps the id from the path
	created.AdjustmentPercent = decimal.NewFromInt(20)
	rec = ts.do(http.MethodPut, "/api/rules/"+created.ID, created)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = ts.do(http.MethodGet, "/api/rules/"+created.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decodeBody[factory.RuleJSON](t, rec)
	assertAmount(t, "20", got.AdjustmentPercent, "updated percent")
	assert.Equal(t, "17:00", got.Conditions.StartTime)

	rec = ts.do(http.MethodGet, "/api/rules", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[[]factory.RuleJSON](t, rec), 2)

	rec = ts.do(http.MethodDelete, "/api/rules/"+created.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = ts.do(http.MethodDelete, "/api/rules/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = ts.do(http.MethodPut, "/api/rules/unknown", created)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRules_InvalidRejected(t *testing.T) {
	ts := newTestServer(t)

	tests := map[string]factory.RuleJSON{
		"unknown type":    {ID: "x", Type: "BIRTHDAY", IsActive: true},
		"zero window":     {ID: "x", Type: "PEAK_HOURS", IsActive: true, Conditions: factory.ConditionsJSON{StartTime: "18:00", EndTime: "18:00"}},
		"reversed dates":  {ID: "x", Type: "SEASONAL", IsActive: true, Conditions: factory.ConditionsJSON{StartDate: "2025-09-30", EndDate: "2025-06-01"}},
		"empty special":   {ID: "x", Type: "SPECIAL", IsActive: true},
		"irrelevant days": {ID: "x", Type: "HOLIDAY", IsActive: true, Conditions: factory.ConditionsJSON{StartDate: "2025-12-31", EndDate: "2025-12-31", DaysOfWeek: []int{1}}},
	}
	for name, rj := range tests {
		t.Run(name, func(t *testing.T) {
			rec := ts.do(http.MethodPost, "/api/rules", rj)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		})
	}
}

func TestSettings_PartialUpdate(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodPut, "/api/settings", map[string]any{"gst_inclusive": true})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = ts.do(http.MethodGet, "/api/settings", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	sj := decodeBody[factory.SettingsJSON](t, rec)
	require.NotNil(t, sj.GSTInclusive)
	assert.True(t, *sj.GSTInclusive)
	require.NotNil(t, sj.AdvancePercent)
	assertAmount(t, "50", *sj.AdvancePercent, "advance kept from the earlier update")

	rec = ts.do(http.MethodPut, "/api/settings", map[string]any{"advance_percent": 150})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBoats(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodPost, "/api/boats", BoatDTO{
		ID: "coral-queen", Name: "Coral Queen", BasePrice: decimal.NewFromInt(120000),
		MinCapacity: 10, MaxCapacity: 40, IsActive: true,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = ts.do(http.MethodGet, "/api/boats", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[[]BoatDTO](t, rec), 2)

	rec = ts.do(http.MethodGet, "/api/boats/sea-breeze", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	boat := decodeBody[BoatDTO](t, rec)
	require.Len(t, boat.AddOns, 1)

	rec = ts.do(http.MethodGet, "/api/boats/ghost", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(http.MethodPost, "/api/boats", BoatDTO{ID: "bad", Name: "Bad", BasePrice: decimal.NewFromInt(-1), MinCapacity: 1, MaxCapacity: 2})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// =============================================================================
// OPERATIONS
// =============================================================================

func TestHealthzAndMetrics(t *testing.T) {
	ts := newTestServer(t)
	ts.do(http.MethodPost, "/api/quotes", QuoteRequest{BoatID: "sea-breeze", EventStart: testEventStart})

	rec := ts.do(http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "charter_quotes_total")
	assert.Contains(t, rec.Body.String(), `route="/api/quotes"`)
}
