/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built operator setups (fleet, pricing rules, settings) so
	the storefront and admin console have something realistic to show.

AVAILABLE SCENARIOS:

	harbour-fleet:   Two boats, weekend and evening peak surcharges, a holiday
	monsoon-season:  One boat, monsoon discount, off-peak mornings, GST inclusive
	empty:           Defaults only, no boats or rules

HOW SCENARIOS WORK:
 1. Reset database (clear all data)
 2. Save settings
 3. Save boats with their add-on catalogs
 4. Save rules from factory presets

All writes go through booking.Service, so they are validated and audited
like admin changes.

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "harbour-fleet"}

NOTE:

	Scenarios reset the database. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: Admin handlers
  - factory/presets.go: Rule presets
*/
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/tidewater/charter-engine/booking"
	"github.com/tidewater/charter-engine/factory"
	"github.com/tidewater/charter-engine/logging"
	"github.com/tidewater/charter-engine/pricing"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "harbour-fleet",
		Name:        "Harbour Fleet",
		Description: "Two boats with weekend and evening surcharges and a New Year holiday rate",
	},
	{
		ID:          "monsoon-season",
		Name:        "Monsoon Season",
		Description: "Seasonal discount, cheaper mornings, GST-inclusive prices and a 30% advance",
	},
	{
		ID:          "empty",
		Name:        "Empty",
		Description: "Default settings with no boats or rules",
	},
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	current := h.currentScenario
	h.mu.Unlock()

	for _, s := range scenarios {
		if s.ID == current {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, nil)
}

// LoadScenario resets the database and loads a scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if !decode(w, r, &req) {
		return
	}

	if err := h.loadScenario(r.Context(), req.ScenarioID); err != nil {
		if errors.Is(err, errUnknownScenario) {
			writeError(w, http.StatusBadRequest, "Unknown scenario", fmt.Errorf("%s", req.ScenarioID))
			return
		}
		h.writeServiceError(w, r, "Failed to load scenario", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":   "loaded",
		"scenario": req.ScenarioID,
	})
}

var errUnknownScenario = errors.New("unknown scenario")

func (h *Handler) loadScenario(ctx context.Context, id string) error {
	loaders := map[string]func(context.Context) error{
		"harbour-fleet":  h.loadHarbourFleetScenario,
		"monsoon-season": h.loadMonsoonSeasonScenario,
		"empty":          func(context.Context) error { return nil },
	}
	load, ok := loaders[id]
	if !ok {
		return errUnknownScenario
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.store.Reset(ctx); err != nil {
		return fmt.Errorf("failed to reset: %w", err)
	}
	ctx = logging.WithActor(ctx, "scenario:"+id)
	if err := load(ctx); err != nil {
		return err
	}
	h.currentScenario = id
	logging.L(ctx, h.Logger).Info("scenario loaded", zap.String("scenario", id))
	return nil
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

func (h *Handler) loadHarbourFleetScenario(ctx context.Context) error {
	settings := pricing.DefaultSettings()
	settings.AdvancePercent = decimal.NewFromInt(50)
	settings.RemainderDueBeforeDays = 2
	settings.TimeZone = "Asia/Kolkata"
	if _, err := h.Service.UpdateSettings(ctx, settings); err != nil {
		return err
	}

	boats := []booking.Boat{
		{
			ID: "sea-breeze", Name: "Sea Breeze", BasePrice: decimal.NewFromInt(50000),
			MinCapacity: 4, MaxCapacity: 12, IsActive: true,
			AddOns: []pricing.AddOn{
				{ID: "deco", Type: "decoration", Label: "Balloon decoration", Price: decimal.NewFromInt(2500), PriceType: pricing.PriceFixed},
				{ID: "dinner", Type: "catering", Label: "Dinner buffet", Price: decimal.NewFromInt(450), PriceType: pricing.PricePerPerson},
				{ID: "dj", Type: "entertainment", Label: "DJ", Price: decimal.NewFromInt(6000), PriceType: pricing.PriceFixed},
			},
		},
		{
			ID: "coral-queen", Name: "Coral Queen", BasePrice: decimal.NewFromInt(120000),
			MinCapacity: 10, MaxCapacity: 40, IsActive: true,
			AddOns: []pricing.AddOn{
				{ID: "cake", Type: "catering", Label: "Celebration cake", Price: decimal.NewFromInt(1800), PriceType: pricing.PriceFixed},
				{ID: "drinks", Type: "catering", Label: "Mocktail bar", Price: decimal.NewFromInt(300), PriceType: pricing.PricePerPerson},
			},
		},
	}
	if err := h.saveBoats(ctx, boats); err != nil {
		return err
	}

	return h.saveRules(ctx,
		factory.WeekendSurcharge("weekend", 10),
		factory.PeakHours("sunset", "17:00", "21:00", 15),
		factory.Holiday("new-year", "New Year's Eve", "2025-12-31", 40),
	)
}

func (h *Handler) loadMonsoonSeasonScenario(ctx context.Context) error {
	settings := pricing.DefaultSettings()
	settings.GSTInclusive = true
	settings.AdvancePercent = decimal.NewFromInt(30)
	settings.RemainderDueBeforeDays = 1
	settings.Cancellation12hRefund = decimal.NewFromInt(25)
	if _, err := h.Service.UpdateSettings(ctx, settings); err != nil {
		return err
	}

	boats := []booking.Boat{
		{
			ID: "monsoon-drifter", Name: "Monsoon Drifter", BasePrice: decimal.NewFromInt(30000),
			MinCapacity: 2, MaxCapacity: 8, IsActive: true,
			AddOns: []pricing.AddOn{
				{ID: "chai", Type: "catering", Label: "Chai and pakoras", Price: decimal.NewFromInt(200), PriceType: pricing.PricePerPerson},
				{ID: "photos", Type: "photography", Label: "Photographer", Price: decimal.NewFromInt(4000), PriceType: pricing.PriceFixed},
			},
		},
	}
	if err := h.saveBoats(ctx, boats); err != nil {
		return err
	}

	return h.saveRules(ctx,
		factory.Season("monsoon", "Monsoon discount", "2025-06-01", "2025-09-30", -20),
		factory.OffPeakDiscount("early-bird", "06:00", "10:00", 10),
		factory.WeekendSurcharge("weekend", 5),
	)
}

func (h *Handler) saveBoats(ctx context.Context, boats []booking.Boat) error {
	for _, b := range boats {
		if _, err := h.Service.SaveBoat(ctx, b); err != nil {
			return fmt.Errorf("boat %s: %w", b.ID, err)
		}
	}
	return nil
}

func (h *Handler) saveRules(ctx context.Context, rules ...factory.RuleJSON) error {
	for _, rj := range rules {
		rule, err := h.RuleFactory.FromJSON(rj)
		if err != nil {
			return fmt.Errorf("rule %s: %w", rj.ID, err)
		}
		if _, err := h.Service.SaveRule(ctx, rule); err != nil {
			return fmt.Errorf("rule %s: %w", rj.ID, err)
		}
	}
	return nil
}
