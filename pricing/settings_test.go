package pricing_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tidewater/charter-engine/pricing"
)

func TestSettingsValidate(t *testing.T) {
	assert.NoError(t, pricing.DefaultSettings().Validate())

	s := pricing.DefaultSettings()
	s.TimeZone = "Mars/Olympus"
	assert.ErrorIs(t, s.Validate(), pricing.ErrInvalidSettings)

	s = pricing.DefaultSettings()
	s.AdvancePercent = dec("-1")
	assert.ErrorIs(t, s.Validate(), pricing.ErrInvalidSettings)

	s = pricing.DefaultSettings()
	s.RemainderDueBeforeDays = -2
	assert.ErrorIs(t, s.Validate(), pricing.ErrInvalidSettings)
}
