package engine

import "testing"

func TestComputeObservationDerivesEfficiency(t *testing.T) {
	anchor := acSession(1, 1, 900, 15)
	target := acSession(2, 3, 1000, 25)

	obs, skip := ComputeObservation(target, anchor, DefaultConfig())
	if skip != SkipNone {
		t.Fatalf("expected observation, got skip reason %q", skip)
	}
	if obs.Miles != 100 {
		t.Fatalf("expected 100 miles, got %g", obs.Miles)
	}
	if obs.EnergyKWh != 25 {
		t.Fatalf("expected 25 kWh, got %g", obs.EnergyKWh)
	}
	if obs.MiPerKWh != 4.0 {
		t.Fatalf("expected 4.0 mi/kWh, got %g", obs.MiPerKWh)
	}
	if obs.AnchorID != 1 || obs.AnchorGapDays != 2 {
		t.Fatalf("expected anchor 1 at gap 2, got anchor %d gap %d", obs.AnchorID, obs.AnchorGapDays)
	}
}

func TestComputeObservationUsesTargetEnergyOnly(t *testing.T) {
	// The anchor delivered energy too; none of it belongs in this window.
	anchor := acSession(1, 1, 960, 40)
	target := acSession(2, 2, 1000, 10)

	obs, skip := ComputeObservation(target, anchor, DefaultConfig())
	if skip != SkipNone {
		t.Fatalf("expected observation, got skip reason %q", skip)
	}
	if obs.EnergyKWh != 10 {
		t.Fatalf("expected target energy 10 only, got %g", obs.EnergyKWh)
	}
	if obs.MiPerKWh != 4.0 {
		t.Fatalf("expected 4.0 mi/kWh, got %g", obs.MiPerKWh)
	}
}

func TestComputeObservationRejectsNonPositiveDistance(t *testing.T) {
	anchor := acSession(1, 1, 1000, 10)

	target := acSession(2, 3, 1000, 20)
	if _, skip := ComputeObservation(target, anchor, DefaultConfig()); skip != SkipNonPositiveDistance {
		t.Fatalf("expected non_positive_distance for a stationary odometer, got %q", skip)
	}

	target.OdometerMiles = 990
	if _, skip := ComputeObservation(target, anchor, DefaultConfig()); skip != SkipNonPositiveDistance {
		t.Fatalf("expected non_positive_distance for a backwards odometer, got %q", skip)
	}
}

func TestComputeObservationRejectsNonPositiveEnergy(t *testing.T) {
	anchor := acSession(1, 1, 900, 10)
	target := acSession(2, 3, 1000, 0)

	if _, skip := ComputeObservation(target, anchor, DefaultConfig()); skip != SkipNonPositiveEnergy {
		t.Fatalf("expected non_positive_energy, got %q", skip)
	}
}

func TestComputeObservationDiscardsImplausibleValues(t *testing.T) {
	// 90 miles on 10 kWh implies 9.0 mi/kWh against a band max of 7.0. The
	// value must vanish entirely, not get clamped to the band edge.
	anchor := acSession(1, 1, 910, 10)
	target := acSession(2, 3, 1000, 10)

	obs, skip := ComputeObservation(target, anchor, DefaultConfig())
	if skip != SkipImplausible {
		t.Fatalf("expected implausible_efficiency, got %q", skip)
	}
	if obs.MiPerKWh != 0 {
		t.Fatalf("expected discarded observation, got %g mi/kWh", obs.MiPerKWh)
	}

	// 5 miles on 10 kWh is 0.5 mi/kWh, below the band minimum.
	target.OdometerMiles = 915
	if _, skip := ComputeObservation(target, anchor, DefaultConfig()); skip != SkipImplausible {
		t.Fatalf("expected implausible_efficiency below the band, got %q", skip)
	}
}

func TestComputeObservationAcceptsBandEdges(t *testing.T) {
	cfg := DefaultConfig()
	anchor := acSession(1, 1, 930, 10)
	target := acSession(2, 3, 1000, 10) // exactly 7.0 mi/kWh

	obs, skip := ComputeObservation(target, anchor, cfg)
	if skip != SkipNone {
		t.Fatalf("expected band-edge value accepted, got skip reason %q", skip)
	}
	if obs.MiPerKWh != cfg.PlausibleMax {
		t.Fatalf("expected %g mi/kWh, got %g", cfg.PlausibleMax, obs.MiPerKWh)
	}

	target.OdometerMiles = 940 // exactly 1.0 mi/kWh
	obs, skip = ComputeObservation(target, anchor, cfg)
	if skip != SkipNone {
		t.Fatalf("expected lower band edge accepted, got skip reason %q", skip)
	}
	if obs.MiPerKWh != cfg.PlausibleMin {
		t.Fatalf("expected %g mi/kWh, got %g", cfg.PlausibleMin, obs.MiPerKWh)
	}
}
