package booking

import (
	"context"

	"go.uber.org/zap"

	"github.com/tidewater/charter-engine/logging"
	"github.com/tidewater/charter-engine/pricing"
)

// =============================================================================
// ADMIN - Rules, settings and fleet
// =============================================================================
//
// Rule and settings changes apply to quotes computed afterwards. Stored
// bookings keep the breakdown they were created with.

// SaveRule validates and stores a rule. A zero CreatedAt is stamped with now,
// which fixes the rule's place among equal-priority rules.
func (s *Service) SaveRule(ctx context.Context, rule pricing.PricingRule) (*pricing.PricingRule, error) {
	if err := rule.Validate(); err != nil {
		return nil, err
	}
	now := s.now()

	err := s.store.WithTx(ctx, func(tx Store) error {
		if existing, err := tx.GetRule(ctx, rule.ID); err == nil {
			rule.CreatedAt = existing.CreatedAt
		} else if !IsNotFound(err) {
			return err
		}
		if rule.CreatedAt.IsZero() {
			rule.CreatedAt = now
		}
		if err := tx.SaveRule(ctx, rule); err != nil {
			return err
		}
		return tx.AppendAudit(ctx, s.auditEntry(ctx, now, AuditRuleSaved, "", map[string]any{
			"rule_id":            string(rule.ID),
			"type":               string(rule.Type),
			"adjustment_percent": rule.AdjustmentPercent.String(),
			"is_active":          rule.IsActive,
		}))
	})
	if err != nil {
		return nil, err
	}
	logging.L(ctx, s.logger).Info("pricing rule saved", zap.String("rule_id", string(rule.ID)))
	return &rule, nil
}

func (s *Service) GetRule(ctx context.Context, id pricing.RuleID) (*pricing.PricingRule, error) {
	return s.store.GetRule(ctx, id)
}

func (s *Service) ListRules(ctx context.Context) ([]pricing.PricingRule, error) {
	return s.store.ListRules(ctx)
}

func (s *Service) DeleteRule(ctx context.Context, id pricing.RuleID) error {
	now := s.now()
	err := s.store.WithTx(ctx, func(tx Store) error {
		if err := tx.DeleteRule(ctx, id); err != nil {
			return err
		}
		return tx.AppendAudit(ctx, s.auditEntry(ctx, now, AuditRuleDeleted, "", map[string]any{"rule_id": string(id)}))
	})
	if err != nil {
		return err
	}
	logging.L(ctx, s.logger).Info("pricing rule deleted", zap.String("rule_id", string(id)))
	return nil
}

func (s *Service) Settings(ctx context.Context) (pricing.BookingSettings, error) {
	return s.store.GetSettings(ctx)
}

// UpdateSettings validates and stores new settings.
func (s *Service) UpdateSettings(ctx context.Context, settings pricing.BookingSettings) (pricing.BookingSettings, error) {
	if err := settings.Validate(); err != nil {
		return pricing.BookingSettings{}, err
	}
	now := s.now()
	err := s.store.WithTx(ctx, func(tx Store) error {
		if err := tx.SaveSettings(ctx, settings); err != nil {
			return err
		}
		return tx.AppendAudit(ctx, s.auditEntry(ctx, now, AuditSettingsChanged, "", map[string]any{
			"gst_percent":     settings.GSTPercent.String(),
			"gst_inclusive":   settings.GSTInclusive,
			"advance_percent": settings.AdvancePercent.String(),
			"timezone":        settings.TimeZone,
		}))
	})
	if err != nil {
		return pricing.BookingSettings{}, err
	}
	logging.L(ctx, s.logger).Info("booking settings updated")
	return settings, nil
}

// SaveBoat validates and stores a boat with its add-on catalog.
func (s *Service) SaveBoat(ctx context.Context, boat Boat) (*Boat, error) {
	if err := boat.Validate(); err != nil {
		return nil, err
	}
	if err := s.store.SaveBoat(ctx, boat); err != nil {
		return nil, err
	}
	logging.L(ctx, s.logger).Info("boat saved", zap.String("boat_id", string(boat.ID)))
	return &boat, nil
}

func (s *Service) GetBoat(ctx context.Context, id BoatID) (*Boat, error) {
	return s.store.GetBoat(ctx, id)
}

func (s *Service) ListBoats(ctx context.Context) ([]Boat, error) {
	return s.store.ListBoats(ctx)
}
