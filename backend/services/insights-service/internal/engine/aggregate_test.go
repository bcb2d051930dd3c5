package engine

import (
	"math"
	"testing"
	"time"

	"chargelog/backend/services/insights-service/internal/models"
)

// mixedHistory covers the aggregate paths: a first session with no anchor,
// two high-confidence observations, a low-confidence one and a free session
// that still observes cleanly.
func mixedHistory() []models.ChargingSession {
	free := acSession(5, 8, 1302, 25) // 100 mi / 25 kWh
	free.CostPerKWh = 0
	return []models.ChargingSession{
		acSession(1, 0, 1000, 12),
		acSession(2, 2, 1100, 25), // 4.0 mi/kWh, high
		acSession(3, 4, 1190, 30), // 3.0 mi/kWh, high
		acSession(4, 6, 1202, 2),  // 6.0 mi/kWh, low: tiny distance and energy windows
		free,
	}
}

func TestComputeWeightedEfficiencyMatchesIndependentSum(t *testing.T) {
	window := mixedHistory()
	cfg := DefaultConfig()
	results := ComposeAll(window, nil, cfg)

	weighted := ComputeWeightedEfficiency(window, results, cfg)

	var wantMiles, wantEnergy float64
	for _, r := range results {
		if !r.Bundle.Qualifying() {
			continue
		}
		wantMiles += r.Bundle.Efficiency.MiPerKWh * r.Session.EnergyKWh
		wantEnergy += r.Session.EnergyKWh
	}
	if wantEnergy == 0 {
		t.Fatalf("test scenario broken: no qualifying sessions")
	}

	if weighted.Efficiency.Source != SourceObserved {
		t.Fatalf("expected observed weighted value, got %s", weighted.Efficiency.Source)
	}
	if weighted.Efficiency.MiPerKWh != wantMiles/wantEnergy {
		t.Fatalf("expected %g mi/kWh, got %g", wantMiles/wantEnergy, weighted.Efficiency.MiPerKWh)
	}
	if weighted.Qualifying != 3 {
		t.Fatalf("expected 3 qualifying sessions, got %d", weighted.Qualifying)
	}
	if weighted.Excluded != 2 {
		t.Fatalf("expected 2 excluded sessions, got %d", weighted.Excluded)
	}
	if weighted.Miles != wantMiles || weighted.EnergyKWh != wantEnergy {
		t.Fatalf("expected sums %g/%g, got %g/%g", wantMiles, wantEnergy, weighted.Miles, weighted.EnergyKWh)
	}
}

func TestComputeWeightedEfficiencyFallsBackToDynamicAggregate(t *testing.T) {
	// Every observation lands at low confidence (12-mile, 2.8 kWh windows),
	// so nothing qualifies — but their cumulative sums still clear the
	// aggregate minimums.
	baseline := acSession(1, 0, 988, 0)
	baseline.IsBaseline = true
	window := []models.ChargingSession{baseline}
	for i := 0; i < 8; i++ {
		window = append(window, acSession(int64(i+2), (i+1)*2, 1000+float64(i)*12, 2.8))
	}

	cfg := DefaultConfig()
	results := ComposeAll(window, nil, cfg)
	weighted := ComputeWeightedEfficiency(window, results, cfg)

	if weighted.Qualifying != 0 {
		t.Fatalf("expected no qualifying sessions, got %d", weighted.Qualifying)
	}
	if weighted.Efficiency.Source != SourceAggregateHomeAC {
		t.Fatalf("expected aggregate_home_ac fallback, got %s", weighted.Efficiency.Source)
	}
	want := 96.0 / 22.4
	if math.Abs(weighted.Efficiency.MiPerKWh-want) > 1e-9 {
		t.Fatalf("expected %g mi/kWh, got %g", want, weighted.Efficiency.MiPerKWh)
	}
}

func TestComputeWeightedEfficiencyUnavailableWithNoData(t *testing.T) {
	weighted := ComputeWeightedEfficiency(nil, nil, DefaultConfig())
	if weighted.Efficiency.Available() {
		t.Fatalf("expected unavailable efficiency, got %+v", weighted.Efficiency)
	}
}

func TestComputeLifetimeTotals(t *testing.T) {
	window := mixedHistory()
	cfg := DefaultConfig()
	results := ComposeAll(window, nil, cfg)

	totals := ComputeLifetimeTotals(window, results, cfg)

	if totals.Sessions != 5 || totals.FreeSessions != 1 {
		t.Fatalf("expected 5 sessions with 1 free, got %d/%d", totals.Sessions, totals.FreeSessions)
	}
	if totals.EnergyKWh != 94 {
		t.Fatalf("expected 94 kWh, got %g", totals.EnergyKWh)
	}
	if !closeTo(totals.TotalCost, 20.7) {
		t.Fatalf("expected cost 20.7, got %g", totals.TotalCost)
	}

	// 290 weighted miles over 80 weighted kWh; the free session is excluded
	// from cost but fully present in the efficiency and energy figures.
	if totals.Weighted.Efficiency.MiPerKWh != 3.625 {
		t.Fatalf("expected weighted 3.625 mi/kWh, got %g", totals.Weighted.Efficiency.MiPerKWh)
	}
	if !totals.HasMiles() {
		t.Fatalf("expected derivable miles")
	}
	if totals.TotalMiles != 3.625*94 {
		t.Fatalf("expected total miles %g, got %g", 3.625*94, totals.TotalMiles)
	}
	if !totals.HasPetrolSaving() {
		t.Fatalf("expected a petrol saving figure")
	}
	if !closeTo(totals.PetrolSaving, 3.625*94*cfg.PetrolCostPerMile-20.7) {
		t.Fatalf("unexpected petrol saving %g", totals.PetrolSaving)
	}
}

func TestComputeLifetimeTotalsWithoutEfficiency(t *testing.T) {
	// A lone session has no anchor and nothing to fall back on.
	window := []models.ChargingSession{acSession(1, 0, 1000, 20)}
	cfg := DefaultConfig()
	results := ComposeAll(window, nil, cfg)

	totals := ComputeLifetimeTotals(window, results, cfg)

	if totals.EnergyKWh != 20 {
		t.Fatalf("expected energy summed regardless, got %g", totals.EnergyKWh)
	}
	if totals.HasMiles() || totals.TotalMiles != 0 {
		t.Fatalf("expected no derived miles, got %g", totals.TotalMiles)
	}
	if totals.HasPetrolSaving() {
		t.Fatalf("expected no petrol saving without miles")
	}
}

func TestComputeCostExtremes(t *testing.T) {
	free := acSession(4, 6, 1250, 25)
	free.CostPerKWh = 0
	dear := acSession(3, 4, 1150, 25) // 2.0 mi/kWh at 0.60/kWh
	dear.CostPerKWh = 0.60
	window := []models.ChargingSession{
		acSession(1, 0, 1000, 10), // no anchor, no cost per mile
		acSession(2, 2, 1100, 25), // 0.075 per mile
		dear,
		free,
		acSession(5, 8, 1350, 25), // 0.075 per mile again, later date
	}

	extremes := ComputeCostExtremes(ComposeAll(window, nil, DefaultConfig()))

	if extremes.Considered != 3 {
		t.Fatalf("expected 3 considered sessions, got %d", extremes.Considered)
	}
	if extremes.Cheapest == nil || extremes.Cheapest.SessionID != 2 {
		t.Fatalf("expected session 2 cheapest (earliest on the tie), got %+v", extremes.Cheapest)
	}
	if extremes.Cheapest.CostPerMile != 0.075 {
		t.Fatalf("expected 0.075 per mile, got %g", extremes.Cheapest.CostPerMile)
	}
	if extremes.Dearest == nil || extremes.Dearest.SessionID != 3 {
		t.Fatalf("expected session 3 dearest, got %+v", extremes.Dearest)
	}
	if extremes.Dearest.CostPerMile != 0.30 {
		t.Fatalf("expected 0.30 per mile, got %g", extremes.Dearest.CostPerMile)
	}
}

func TestComputeCostExtremesEmptyWhenNothingEligible(t *testing.T) {
	free := acSession(2, 2, 1100, 25)
	free.CostPerKWh = 0
	window := []models.ChargingSession{acSession(1, 0, 1000, 10), free}

	extremes := ComputeCostExtremes(ComposeAll(window, nil, DefaultConfig()))
	if extremes.Cheapest != nil || extremes.Dearest != nil || extremes.Considered != 0 {
		t.Fatalf("expected empty extremes, got %+v", extremes)
	}
}

func TestComputeSeasonalBuckets(t *testing.T) {
	cold, mild, warm := -3.0, 2.0, 7.0

	baseline := acSession(1, 0, 988, 0)
	baseline.IsBaseline = true
	a := acSession(2, 2, 1088, 25) // 4.0 mi/kWh
	a.AmbientTempC = &mild
	b := acSession(3, 4, 1178, 30) // 3.0 mi/kWh
	b.AmbientTempC = &warm
	c := acSession(4, 6, 1278, 25) // 4.0 mi/kWh
	c.AmbientTempC = &cold
	noTemp := acSession(5, 8, 1378, 25)

	window := []models.ChargingSession{baseline, a, b, c, noTemp}
	buckets := ComputeSeasonal(ComposeAll(window, nil, DefaultConfig()))

	if len(buckets) != 3 {
		t.Fatalf("expected 3 buckets, got %+v", buckets)
	}
	if buckets[0].TempFromC != -5 || buckets[0].TempToC != 0 {
		t.Fatalf("expected coldest bucket [-5,0), got %+v", buckets[0])
	}
	if buckets[0].MiPerKWh != 4.0 || buckets[0].Sessions != 1 {
		t.Fatalf("unexpected coldest bucket %+v", buckets[0])
	}
	if buckets[1].TempFromC != 0 || buckets[2].TempFromC != 5 {
		t.Fatalf("expected ascending temperature order, got %+v", buckets)
	}
	if buckets[2].MiPerKWh != 3.0 {
		t.Fatalf("expected 3.0 mi/kWh in the warm bucket, got %g", buckets[2].MiPerKWh)
	}
}

func TestComputeLeaderboard(t *testing.T) {
	baseline := acSession(1, 0, 1000, 0)
	baseline.IsBaseline = true

	h1 := acSession(2, 2, 1100, 25)
	h1.CostPerKWh = 0.25
	h2 := acSession(3, 4, 1200, 25)
	h2.CostPerKWh = 0.30
	h3 := acSession(4, 6, 1300, 25)
	h3.CostPerKWh = 0.35

	t1 := acSession(5, 8, 1400, 25)
	t1.CostPerKWh = 0.50
	t1.LocationLabel = "Tesco"
	t1.VenueType = models.VenueTypePublic
	t2 := acSession(6, 10, 1500, 25)
	t2.CostPerKWh = 0
	t2.LocationLabel = "Tesco"
	t2.VenueType = models.VenueTypePublic

	unlabeled := acSession(7, 12, 1600, 25)
	unlabeled.LocationLabel = ""

	window := []models.ChargingSession{baseline, h1, h2, h3, t1, t2, unlabeled}
	entries := ComputeLeaderboard(ComposeAll(window, nil, DefaultConfig()))

	if len(entries) != 2 {
		t.Fatalf("expected 2 locations, got %+v", entries)
	}

	home := entries[0]
	if home.Location != "Home" || home.Sessions != 3 || home.PaidSessions != 3 {
		t.Fatalf("unexpected first entry %+v", home)
	}
	if home.MedianCostPerKWh != 0.30 {
		t.Fatalf("expected median 0.30/kWh at home, got %g", home.MedianCostPerKWh)
	}
	if home.MedianCostPerMile != 0.075 {
		t.Fatalf("expected median 0.075/mi at home, got %g", home.MedianCostPerMile)
	}

	tesco := entries[1]
	if tesco.Sessions != 2 || tesco.PaidSessions != 1 {
		t.Fatalf("unexpected tesco counts %+v", tesco)
	}
	// The free visit is in the session count but not the medians.
	if tesco.MedianCostPerKWh != 0.50 {
		t.Fatalf("expected median 0.50/kWh at tesco, got %g", tesco.MedianCostPerKWh)
	}
}

func TestComputeSweetSpotOrdersByEfficiency(t *testing.T) {
	baseline := acSession(1, 0, 988, 0)
	baseline.IsBaseline = true

	low := acSession(2, 2, 1088, 25) // 4.0 mi/kWh starting at 25%
	low.SocFrom, low.SocTo = 25, 80
	mid := acSession(3, 4, 1178, 30) // 3.0 mi/kWh starting at 65%
	mid.SocFrom, mid.SocTo = 65, 90
	noSoc := acSession(4, 6, 1278, 25) // recorded without SoC
	top := acSession(5, 8, 1358, 20)   // 4.0 mi/kWh starting at 80%
	top.SocFrom, top.SocTo = 80, 100

	window := []models.ChargingSession{baseline, low, mid, noSoc, top}
	buckets := ComputeSweetSpot(ComposeAll(window, nil, DefaultConfig()))

	if len(buckets) != 3 {
		t.Fatalf("expected 3 buckets, got %+v", buckets)
	}
	if buckets[0].SocFrom != 20 || buckets[0].MiPerKWh != 4.0 {
		t.Fatalf("expected [20,40) bucket first, got %+v", buckets[0])
	}
	// Equal efficiency sorts by window position.
	if buckets[1].SocFrom != 80 || buckets[1].SocTo != 100 {
		t.Fatalf("expected [80,100] bucket second, got %+v", buckets[1])
	}
	if buckets[2].SocFrom != 60 || buckets[2].MiPerKWh != 3.0 {
		t.Fatalf("expected [60,80) bucket last, got %+v", buckets[2])
	}
}

func TestComputeMonthlySummaries(t *testing.T) {
	baseline := acSession(1, 0, 988, 0)
	baseline.IsBaseline = true

	m1 := acSession(2, 2, 1088, 25) // March, 4.0 mi/kWh
	m2 := acSession(3, 4, 1178, 30) // March, 3.0 mi/kWh, free
	m2.CostPerKWh = 0
	a1 := acSession(4, 31, 1278, 25) // April, 4.0 mi/kWh with a stale anchor
	a1.CostPerKWh = 0.40
	a2 := acSession(5, 33, 1290, 20) // April, implausibly low, discarded

	window := []models.ChargingSession{baseline, m1, m2, a1, a2}
	summaries := ComputeMonthlySummaries(ComposeAll(window, nil, DefaultConfig()))

	if len(summaries) != 2 {
		t.Fatalf("expected 2 months, got %+v", summaries)
	}

	march := summaries[0]
	if march.Month.String() != "March" || march.Sessions != 2 || march.FreeSessions != 1 {
		t.Fatalf("unexpected march summary %+v", march)
	}
	if march.EnergyKWh != 55 {
		t.Fatalf("expected 55 kWh in march, got %g", march.EnergyKWh)
	}
	if !closeTo(march.TotalCost, 7.5) {
		t.Fatalf("expected 7.5 cost in march, got %g", march.TotalCost)
	}
	if march.Efficiency.MiPerKWh != 190.0/55.0 {
		t.Fatalf("expected weighted march efficiency, got %g", march.Efficiency.MiPerKWh)
	}

	april := summaries[1]
	if april.Month.String() != "April" || april.Sessions != 2 {
		t.Fatalf("unexpected april summary %+v", april)
	}
	if april.Efficiency.MiPerKWh != 4.0 || april.Efficiency.Source != SourceObserved {
		t.Fatalf("expected only the clean april observation weighted, got %+v", april.Efficiency)
	}
}

func TestComputeMonthlySummariesSpanYearBoundary(t *testing.T) {
	window := []models.ChargingSession{
		acSession(1, -75, 1000, 10), // December 2023, no anchor
		acSession(2, -73, 1100, 25), // December 2023, 4.0 mi/kWh
		acSession(3, -45, 1200, 25), // January 2024, 4.0 mi/kWh off a stale anchor
	}
	summaries := ComputeMonthlySummaries(ComposeAll(window, nil, DefaultConfig()))

	if len(summaries) != 2 {
		t.Fatalf("expected 2 months, got %+v", summaries)
	}
	dec, jan := summaries[0], summaries[1]
	if dec.Year != 2023 || dec.Month != time.December || dec.Sessions != 2 {
		t.Fatalf("unexpected december summary %+v", dec)
	}
	if jan.Year != 2024 || jan.Month != time.January || jan.Sessions != 1 {
		t.Fatalf("unexpected january summary %+v", jan)
	}
	if dec.Efficiency.MiPerKWh != 4.0 || jan.Efficiency.MiPerKWh != 4.0 {
		t.Fatalf("expected observed efficiency on both sides of the boundary")
	}
}

func TestComputeChargeMix(t *testing.T) {
	baseline := acSession(1, 0, 988, 0)
	baseline.IsBaseline = true
	ac1 := acSession(2, 2, 1088, 25)
	ac2 := acSession(3, 4, 1178, 30)
	dc := acSession(4, 6, 1278, 45)
	dc.ChargeType = models.ChargeTypeDC
	dc.CostPerKWh = 0.70
	dc.VenueType = models.VenueTypePublic

	window := []models.ChargingSession{baseline, ac1, ac2, dc}
	mix := ComputeChargeMix(ComposeAll(window, nil, DefaultConfig()))

	if len(mix) != 2 {
		t.Fatalf("expected AC and DC entries, got %+v", mix)
	}
	if mix[0].ChargeType != models.ChargeTypeAC || mix[0].Sessions != 2 {
		t.Fatalf("expected AC first by energy, got %+v", mix[0])
	}
	if mix[0].EnergyKWh != 55 || mix[0].EnergyShare != 0.55 {
		t.Fatalf("unexpected AC energy split %+v", mix[0])
	}
	if mix[1].ChargeType != models.ChargeTypeDC || mix[1].EnergyShare != 0.45 {
		t.Fatalf("unexpected DC entry %+v", mix[1])
	}
	if !closeTo(mix[1].TotalCost, 31.5) {
		t.Fatalf("expected DC cost 31.5, got %g", mix[1].TotalCost)
	}
}

func TestMedian(t *testing.T) {
	if got := median(nil); got != 0 {
		t.Fatalf("expected 0 for empty input, got %g", got)
	}
	if got := median([]float64{3, 1, 2}); got != 2 {
		t.Fatalf("expected 2, got %g", got)
	}
	if got := median([]float64{4, 1, 3, 2}); got != 2.5 {
		t.Fatalf("expected 2.5, got %g", got)
	}
}

func closeTo(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}
