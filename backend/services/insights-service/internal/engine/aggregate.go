package engine

import (
	"math"
	"sort"
	"time"

	"chargelog/backend/services/insights-service/internal/models"
)

// Fixed bucket widths for the temperature and starting-SoC views.
const (
	seasonalBinWidthC  = 5
	sweetSpotBinWidth  = 20
	sweetSpotFinalEdge = 100
)

// WeightedEfficiency is the energy-weighted lifetime efficiency together with
// the sums behind it, so multi-vehicle callers can merge figures without
// losing the weighting.
type WeightedEfficiency struct {
	Efficiency Efficiency `json:"efficiency"`
	Miles      float64    `json:"miles"`
	EnergyKWh  float64    `json:"energy_kwh"`
	Qualifying int        `json:"qualifying_sessions"`
	Excluded   int        `json:"excluded_sessions"`
}

// ComputeWeightedEfficiency averages observed efficiencies weighted by session
// energy. Only qualifying sessions contribute; when none exist the dynamic
// aggregate chain supplies the value instead (never the vehicle profile or
// the user default, which would hide how thin the data really is). window is
// the same ordered history the results were composed from.
func ComputeWeightedEfficiency(window []models.ChargingSession, results []SessionResult, cfg Config) WeightedEfficiency {
	out := WeightedEfficiency{Efficiency: Unavailable()}

	for i := range results {
		b := results[i].Bundle
		if !b.Qualifying() {
			out.Excluded++
			continue
		}
		energy := results[i].Session.EnergyKWh
		out.Miles += b.Efficiency.MiPerKWh * energy
		out.EnergyKWh += energy
		out.Qualifying++
	}

	if out.EnergyKWh > 0 {
		out.Efficiency = Efficiency{MiPerKWh: out.Miles / out.EnergyKWh, Source: SourceObserved}
		return out
	}

	asOf := latestDate(window)
	if asOf.IsZero() {
		return out
	}
	if sums := DynamicAggregateSums(window, asOf, true, cfg); sums.Qualifies(cfg) {
		out.Efficiency = Efficiency{MiPerKWh: sums.MiPerKWh(), Source: SourceAggregateHomeAC}
	} else if sums := DynamicAggregateSums(window, asOf, false, cfg); sums.Qualifies(cfg) {
		out.Efficiency = Efficiency{MiPerKWh: sums.MiPerKWh(), Source: SourceAggregateAC}
	}
	return out
}

// LifetimeTotals aggregates a vehicle's whole history. TotalMiles multiplies
// the weighted efficiency into the energy sum instead of summing per-session
// distances, so per-session rounding cannot compound.
type LifetimeTotals struct {
	Sessions     int     `json:"sessions"`
	FreeSessions int     `json:"free_sessions"`
	EnergyKWh    float64 `json:"energy_kwh"`
	TotalCost    float64 `json:"total_cost"`

	Weighted WeightedEfficiency `json:"weighted_efficiency"`

	// TotalMiles and PetrolSaving hold real figures only when HasMiles /
	// HasPetrolSaving report true.
	TotalMiles        float64 `json:"total_miles"`
	PetrolRatePerMile float64 `json:"petrol_rate_per_mile"`
	PetrolSaving      float64 `json:"petrol_saving"`
}

// HasMiles reports whether TotalMiles carries a real figure.
func (t LifetimeTotals) HasMiles() bool {
	return t.Weighted.Efficiency.Available()
}

// HasPetrolSaving reports whether the petrol comparison could be computed.
func (t LifetimeTotals) HasPetrolSaving() bool {
	return t.HasMiles() && t.PetrolRatePerMile > 0
}

// ComputeLifetimeTotals sums energy and derived cost across all composed
// sessions (free ones included) and derives distance and the estimated saving
// against the petrol reference rate.
func ComputeLifetimeTotals(window []models.ChargingSession, results []SessionResult, cfg Config) LifetimeTotals {
	totals := LifetimeTotals{
		Weighted:          ComputeWeightedEfficiency(window, results, cfg),
		PetrolRatePerMile: cfg.PetrolCostPerMile,
	}

	for i := range results {
		s := results[i].Session
		totals.Sessions++
		if s.IsFree() {
			totals.FreeSessions++
		}
		totals.EnergyKWh += s.EnergyKWh
		totals.TotalCost += s.TotalCost()
	}

	if totals.HasMiles() {
		totals.TotalMiles = totals.Weighted.Efficiency.MiPerKWh * totals.EnergyKWh
	}
	if totals.HasPetrolSaving() {
		totals.PetrolSaving = totals.TotalMiles*totals.PetrolRatePerMile - totals.TotalCost
	}
	return totals
}

// SessionCost is one extreme-cost candidate.
type SessionCost struct {
	SessionID   int64     `json:"session_id"`
	Date        time.Time `json:"date"`
	Location    string    `json:"location,omitempty"`
	CostPerMile float64   `json:"cost_per_mile"`
	TotalCost   float64   `json:"total_cost"`
}

// CostExtremes are the cheapest and most expensive paid sessions by
// cost-per-mile. Nil pointers mean no session was eligible.
type CostExtremes struct {
	Cheapest   *SessionCost `json:"cheapest,omitempty"`
	Dearest    *SessionCost `json:"dearest,omitempty"`
	Considered int          `json:"considered"`
}

// ComputeCostExtremes picks the cost-per-mile extremes among paid sessions
// that have one. Results arrive (date, id)-ordered, so strict comparisons
// break ties toward the earliest session.
func ComputeCostExtremes(results []SessionResult) CostExtremes {
	var extremes CostExtremes

	for i := range results {
		b := results[i].Bundle
		if b.Free || !b.HasCostPerMile() {
			continue
		}
		extremes.Considered++
		cand := SessionCost{
			SessionID:   b.SessionID,
			Date:        b.Date,
			Location:    results[i].Session.LocationLabel,
			CostPerMile: b.CostPerMile,
			TotalCost:   b.TotalCost,
		}
		if extremes.Cheapest == nil || cand.CostPerMile < extremes.Cheapest.CostPerMile {
			c := cand
			extremes.Cheapest = &c
		}
		if extremes.Dearest == nil || cand.CostPerMile > extremes.Dearest.CostPerMile {
			c := cand
			extremes.Dearest = &c
		}
	}

	return extremes
}

// SeasonalBucket is one fixed 5 °C ambient-temperature bin.
type SeasonalBucket struct {
	TempFromC int     `json:"temp_from_c"`
	TempToC   int     `json:"temp_to_c"`
	MiPerKWh  float64 `json:"mi_per_kwh"`
	Sessions  int     `json:"sessions"`
	EnergyKWh float64 `json:"energy_kwh"`
}

// ComputeSeasonal groups qualifying sessions into 5 °C bins by recorded
// ambient temperature. Sessions without a reading stay out of this view
// entirely rather than polluting an "unknown" bin. Buckets come back in
// ascending temperature order.
func ComputeSeasonal(results []SessionResult) []SeasonalBucket {
	type sums struct {
		miles, energy float64
		sessions      int
	}
	bins := make(map[int]*sums)

	for i := range results {
		s := results[i].Session
		b := results[i].Bundle
		if s.AmbientTempC == nil || !b.Qualifying() {
			continue
		}
		from := int(math.Floor(*s.AmbientTempC/seasonalBinWidthC)) * seasonalBinWidthC
		bin := bins[from]
		if bin == nil {
			bin = &sums{}
			bins[from] = bin
		}
		bin.miles += b.Efficiency.MiPerKWh * s.EnergyKWh
		bin.energy += s.EnergyKWh
		bin.sessions++
	}

	buckets := make([]SeasonalBucket, 0, len(bins))
	for from, bin := range bins {
		if bin.energy <= 0 {
			continue
		}
		buckets = append(buckets, SeasonalBucket{
			TempFromC: from,
			TempToC:   from + seasonalBinWidthC,
			MiPerKWh:  bin.miles / bin.energy,
			Sessions:  bin.sessions,
			EnergyKWh: bin.energy,
		})
	}
	sort.Slice(buckets, func(i, j int) bool { return buckets[i].TempFromC < buckets[j].TempFromC })
	return buckets
}

// LeaderboardEntry is one location's cost profile. Medians resist the single
// wildly-priced session a mean would amplify.
type LeaderboardEntry struct {
	Location          string  `json:"location"`
	Sessions          int     `json:"sessions"`
	PaidSessions      int     `json:"paid_sessions"`
	CostedSessions    int     `json:"costed_sessions"`
	EnergyKWh         float64 `json:"energy_kwh"`
	MedianCostPerKWh  float64 `json:"median_cost_per_kwh"`
	MedianCostPerMile float64 `json:"median_cost_per_mile"`
}

// ComputeLeaderboard groups sessions by location label. Free sessions count
// toward the group but never toward the medians; sessions with no label are
// skipped since they cannot name a place. Sorted by session count descending,
// label ascending on ties.
func ComputeLeaderboard(results []SessionResult) []LeaderboardEntry {
	type group struct {
		sessions    int
		paid        int
		energy      float64
		perKWh      []float64
		perMile     []float64
		costedCount int
	}
	groups := make(map[string]*group)

	for i := range results {
		s := results[i].Session
		b := results[i].Bundle
		if s.LocationLabel == "" {
			continue
		}
		g := groups[s.LocationLabel]
		if g == nil {
			g = &group{}
			groups[s.LocationLabel] = g
		}
		g.sessions++
		g.energy += s.EnergyKWh
		if b.Free {
			continue
		}
		g.paid++
		g.perKWh = append(g.perKWh, s.CostPerKWh)
		if b.HasCostPerMile() {
			g.perMile = append(g.perMile, b.CostPerMile)
			g.costedCount++
		}
	}

	entries := make([]LeaderboardEntry, 0, len(groups))
	for label, g := range groups {
		entries = append(entries, LeaderboardEntry{
			Location:          label,
			Sessions:          g.sessions,
			PaidSessions:      g.paid,
			CostedSessions:    g.costedCount,
			EnergyKWh:         g.energy,
			MedianCostPerKWh:  median(g.perKWh),
			MedianCostPerMile: median(g.perMile),
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Sessions != entries[j].Sessions {
			return entries[i].Sessions > entries[j].Sessions
		}
		return entries[i].Location < entries[j].Location
	})
	return entries
}

// SweetSpotBucket is one fixed 20 % starting-SoC window.
type SweetSpotBucket struct {
	SocFrom   int     `json:"soc_from"`
	SocTo     int     `json:"soc_to"`
	MiPerKWh  float64 `json:"mi_per_kwh"`
	Sessions  int     `json:"sessions"`
	EnergyKWh float64 `json:"energy_kwh"`
}

// ComputeSweetSpot buckets qualifying sessions by starting SoC into fixed
// 20 % windows (the last window closes at 100 inclusive) and sorts buckets by
// efficiency descending, surfacing the battery window that drives cheapest.
// Sessions without a recorded SoC range are excluded.
func ComputeSweetSpot(results []SessionResult) []SweetSpotBucket {
	type sums struct {
		miles, energy float64
		sessions      int
	}
	bins := make(map[int]*sums)

	for i := range results {
		s := results[i].Session
		b := results[i].Bundle
		if s.SocTo <= s.SocFrom || s.SocFrom < 0 || s.SocFrom > sweetSpotFinalEdge {
			continue
		}
		if !b.Qualifying() {
			continue
		}
		from := (s.SocFrom / sweetSpotBinWidth) * sweetSpotBinWidth
		if from >= sweetSpotFinalEdge {
			from = sweetSpotFinalEdge - sweetSpotBinWidth
		}
		bin := bins[from]
		if bin == nil {
			bin = &sums{}
			bins[from] = bin
		}
		bin.miles += b.Efficiency.MiPerKWh * s.EnergyKWh
		bin.energy += s.EnergyKWh
		bin.sessions++
	}

	buckets := make([]SweetSpotBucket, 0, len(bins))
	for from, bin := range bins {
		if bin.energy <= 0 {
			continue
		}
		buckets = append(buckets, SweetSpotBucket{
			SocFrom:   from,
			SocTo:     from + sweetSpotBinWidth,
			MiPerKWh:  bin.miles / bin.energy,
			Sessions:  bin.sessions,
			EnergyKWh: bin.energy,
		})
	}
	sort.Slice(buckets, func(i, j int) bool {
		if buckets[i].MiPerKWh != buckets[j].MiPerKWh {
			return buckets[i].MiPerKWh > buckets[j].MiPerKWh
		}
		return buckets[i].SocFrom < buckets[j].SocFrom
	})
	return buckets
}

// MonthlySummary is one calendar month of activity.
type MonthlySummary struct {
	Year         int        `json:"year"`
	Month        time.Month `json:"month"`
	Sessions     int        `json:"sessions"`
	FreeSessions int        `json:"free_sessions"`
	EnergyKWh    float64    `json:"energy_kwh"`
	TotalCost    float64    `json:"total_cost"`
	// Efficiency is the month's energy-weighted observed value; source none
	// when the month had no qualifying session.
	Efficiency Efficiency `json:"efficiency"`
}

// ComputeMonthlySummaries rolls composed sessions up per calendar month, in
// chronological order.
func ComputeMonthlySummaries(results []SessionResult) []MonthlySummary {
	type sums struct {
		sessions, free int
		energy, cost   float64
		wMiles, wKWh   float64
	}
	type monthKey struct {
		year  int
		month time.Month
	}
	months := make(map[monthKey]*sums)

	for i := range results {
		s := results[i].Session
		b := results[i].Bundle
		key := monthKey{year: s.Date.Year(), month: s.Date.Month()}
		m := months[key]
		if m == nil {
			m = &sums{}
			months[key] = m
		}
		m.sessions++
		if s.IsFree() {
			m.free++
		}
		m.energy += s.EnergyKWh
		m.cost += s.TotalCost()
		if b.Qualifying() {
			m.wMiles += b.Efficiency.MiPerKWh * s.EnergyKWh
			m.wKWh += s.EnergyKWh
		}
	}

	summaries := make([]MonthlySummary, 0, len(months))
	for key, m := range months {
		summary := MonthlySummary{
			Year:         key.year,
			Month:        key.month,
			Sessions:     m.sessions,
			FreeSessions: m.free,
			EnergyKWh:    m.energy,
			TotalCost:    m.cost,
			Efficiency:   Unavailable(),
		}
		if m.wKWh > 0 {
			summary.Efficiency = Efficiency{MiPerKWh: m.wMiles / m.wKWh, Source: SourceObserved}
		}
		summaries = append(summaries, summary)
	}
	sort.Slice(summaries, func(i, j int) bool {
		if summaries[i].Year != summaries[j].Year {
			return summaries[i].Year < summaries[j].Year
		}
		return summaries[i].Month < summaries[j].Month
	})
	return summaries
}

// ChargeMixEntry is the AC/DC usage split for one charge type.
type ChargeMixEntry struct {
	ChargeType  string  `json:"charge_type"`
	Sessions    int     `json:"sessions"`
	EnergyKWh   float64 `json:"energy_kwh"`
	TotalCost   float64 `json:"total_cost"`
	EnergyShare float64 `json:"energy_share"`
}

// ComputeChargeMix splits composed sessions by charge type with each type's
// share of total energy, largest share first.
func ComputeChargeMix(results []SessionResult) []ChargeMixEntry {
	type sums struct {
		sessions     int
		energy, cost float64
	}
	mix := make(map[string]*sums)
	var totalEnergy float64

	for i := range results {
		s := results[i].Session
		m := mix[s.ChargeType]
		if m == nil {
			m = &sums{}
			mix[s.ChargeType] = m
		}
		m.sessions++
		m.energy += s.EnergyKWh
		m.cost += s.TotalCost()
		totalEnergy += s.EnergyKWh
	}

	entries := make([]ChargeMixEntry, 0, len(mix))
	for chargeType, m := range mix {
		entry := ChargeMixEntry{
			ChargeType: chargeType,
			Sessions:   m.sessions,
			EnergyKWh:  m.energy,
			TotalCost:  m.cost,
		}
		if totalEnergy > 0 {
			entry.EnergyShare = m.energy / totalEnergy
		}
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].EnergyKWh != entries[j].EnergyKWh {
			return entries[i].EnergyKWh > entries[j].EnergyKWh
		}
		return entries[i].ChargeType < entries[j].ChargeType
	})
	return entries
}

// median returns the middle value of vals, averaging the two central values
// for even counts. Zero when vals is empty.
func median(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	sorted := append([]float64(nil), vals...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}

// latestDate returns the newest session date in an ordered window, zero when
// the window is empty.
func latestDate(window []models.ChargingSession) time.Time {
	if len(window) == 0 {
		return time.Time{}
	}
	return window[len(window)-1].Date
}
