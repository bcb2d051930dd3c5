package engine

import (
	"testing"

	"chargelog/backend/services/insights-service/internal/models"
)

func TestNormalizeRepairsMalformedValues(t *testing.T) {
	cfg := Config{
		MinDeltaMiles: -1,
		MinEnergyKWh:  -5,
		PlausibleMin:  2.0,
		PlausibleMax:  1.5, // inverted band
	}.Normalize()

	if cfg.MinDeltaMiles != DefaultMinDeltaMiles {
		t.Fatalf("expected default min delta, got %g", cfg.MinDeltaMiles)
	}
	if cfg.MinEnergyKWh != DefaultMinEnergyKWh {
		t.Fatalf("expected default min energy, got %g", cfg.MinEnergyKWh)
	}
	if cfg.PlausibleMax <= cfg.PlausibleMin {
		t.Fatalf("expected a repaired band, got [%g, %g]", cfg.PlausibleMin, cfg.PlausibleMax)
	}
	if cfg.MaxAnchorGapDays != DefaultMaxAnchorGapDays {
		t.Fatalf("expected default anchor gap, got %d", cfg.MaxAnchorGapDays)
	}
	if cfg.AnchorHorizonDays != DefaultAnchorHorizonDays {
		t.Fatalf("expected default horizon, got %d", cfg.AnchorHorizonDays)
	}
}

func TestForUserNilSettingsKeepsBase(t *testing.T) {
	base := DefaultConfig()
	cfg := base.ForUser(nil)
	if cfg != base {
		t.Fatalf("expected base config unchanged, got %+v", cfg)
	}
}

func TestForUserAppliesOverrides(t *testing.T) {
	minDelta := 20.0
	gap := 14

	cfg := DefaultConfig().ForUser(&models.UserSettings{
		UserID:           1,
		FallbackEnabled:  true,
		DefaultMiPerKWh:  3.5,
		MinDeltaMiles:    &minDelta,
		MaxAnchorGapDays: &gap,
	})

	if !cfg.FallbackEnabled {
		t.Fatalf("expected fallback enabled")
	}
	if cfg.DefaultMiPerKWh != 3.5 {
		t.Fatalf("expected default efficiency 3.5, got %g", cfg.DefaultMiPerKWh)
	}
	if cfg.MinDeltaMiles != 20.0 {
		t.Fatalf("expected min delta override 20, got %g", cfg.MinDeltaMiles)
	}
	if cfg.MaxAnchorGapDays != 14 {
		t.Fatalf("expected anchor gap override 14, got %d", cfg.MaxAnchorGapDays)
	}
	if cfg.MinEnergyKWh != DefaultMinEnergyKWh {
		t.Fatalf("expected untouched min energy, got %g", cfg.MinEnergyKWh)
	}
}

func TestForUserNormalizesBadOverrides(t *testing.T) {
	badMax := 0.5 // below the band minimum

	cfg := DefaultConfig().ForUser(&models.UserSettings{UserID: 1, PlausibleMax: &badMax})
	if cfg.PlausibleMax <= cfg.PlausibleMin {
		t.Fatalf("expected repaired band, got [%g, %g]", cfg.PlausibleMin, cfg.PlausibleMax)
	}
}

func TestConfigHashTracksThresholds(t *testing.T) {
	base := DefaultConfig()
	if base.Hash() != DefaultConfig().Hash() {
		t.Fatalf("expected stable hash for identical configs")
	}

	changed := base
	changed.MinDeltaMiles = 20
	if changed.Hash() == base.Hash() {
		t.Fatalf("expected hash to change with thresholds")
	}

	toggled := base
	toggled.FallbackEnabled = true
	if toggled.Hash() == base.Hash() {
		t.Fatalf("expected hash to change with the fallback flag")
	}
}
