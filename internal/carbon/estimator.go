package carbon

import (
	"github.com/emberlens/ccwatt/internal/model"
)

// Fixed environmental constants. These are deliberately coarse: the
// estimates trade accuracy for simplicity.
const (
	// PUE is the data-center power-usage-effectiveness overhead multiplier
	PUE = 1.2
	// CarbonIntensity is grams of CO2 per kWh of electricity consumed
	// (global grid average)
	CarbonIntensity = 475.0
)

// Result holds the energy and CO2 attributed to some usage
type Result struct {
	EnergyWh float64
	CO2Grams float64
}

func (r *Result) add(other Result) {
	r.EnergyWh += other.EnergyWh
	r.CO2Grams += other.CO2Grams
}

// Estimator converts one request's token usage into energy and CO2.
// Implementations are pure and stateless.
type Estimator interface {
	EstimateRecord(modelID string, usage model.TokenUsage) Result
}

// co2FromWh applies the fixed carbon intensity to an energy figure
func co2FromWh(wh float64) float64 {
	return wh / 1000.0 * CarbonIntensity
}

// SessionResult is the session-level carbon estimate with a breakdown
// keyed by model family. Never persisted directly; only the scalar
// totals are written to the store.
type SessionResult struct {
	Total    Result
	ByFamily map[Family]Result
}

// EstimateSession runs the estimator over every retained record and
// aggregates by family, so two exact model ids in the same family
// collapse into one breakdown bucket.
func EstimateSession(session *model.SessionUsage, est Estimator) SessionResult {
	out := SessionResult{ByFamily: make(map[Family]Result)}
	for _, rec := range session.Records {
		r := est.EstimateRecord(rec.Model, rec.Usage)
		out.Total.add(r)

		family := Classify(rec.Model)
		fr := out.ByFamily[family]
		fr.add(r)
		out.ByFamily[family] = fr
	}
	return out
}
