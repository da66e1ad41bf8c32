package carbon

import "github.com/emberlens/ccwatt/internal/model"

// whPer1kTokens is the flat per-family energy coefficient, in Wh per
// 1000 tokens of any kind, before the PUE multiplier.
var whPer1kTokens = map[Family]float64{
	FamilyLight:  0.27,
	FamilyMedium: 0.85,
	FamilyHeavy:  2.10,
}

// FlatEstimator is the historical flat-rate cost model: total tokens
// scaled by a per-family Wh/1k coefficient and the PUE factor. Kept as a
// named strategy; InferenceEstimator is the canonical model.
type FlatEstimator struct{}

func (FlatEstimator) EstimateRecord(modelID string, usage model.TokenUsage) Result {
	coeff := whPer1kTokens[Classify(modelID)]
	wh := float64(usage.Total()) / 1000.0 * coeff * PUE
	return Result{EnergyWh: wh, CO2Grams: co2FromWh(wh)}
}
