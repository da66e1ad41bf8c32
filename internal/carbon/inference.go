package carbon

import "github.com/emberlens/ccwatt/internal/model"

// Inference-time model parameters. Per-request energy is the wall time
// the GPU spends generating (a fixed time-to-first-token plus output
// tokens at the family's throughput) times an interpolated power draw,
// times PUE. TTFT is paid once per request, not once per session.
const (
	ttftSeconds = 2.0

	// GPU power draw bounds for interpolation, in watts
	gpuPowerLowW  = 150.0
	gpuPowerHighW = 400.0
)

// familyThroughput holds tokens-per-second and the power interpolation
// weight (0 = low bound, 1 = high bound) per family.
var familyThroughput = map[Family]struct {
	tokensPerSecond float64
	powerWeight     float64
}{
	FamilyLight:  {tokensPerSecond: 120, powerWeight: 0.25},
	FamilyMedium: {tokensPerSecond: 70, powerWeight: 0.50},
	FamilyHeavy:  {tokensPerSecond: 40, powerWeight: 0.90},
}

// InferenceEstimator is the canonical cost model
type InferenceEstimator struct{}

func (InferenceEstimator) EstimateRecord(modelID string, usage model.TokenUsage) Result {
	p := familyThroughput[Classify(modelID)]

	seconds := ttftSeconds + float64(usage.OutputTokens)/p.tokensPerSecond
	powerW := gpuPowerLowW + p.powerWeight*(gpuPowerHighW-gpuPowerLowW)

	wh := seconds / 3600.0 * powerW * PUE
	return Result{EnergyWh: wh, CO2Grams: co2FromWh(wh)}
}

// DefaultEstimator returns the canonical estimator
func DefaultEstimator() Estimator {
	return InferenceEstimator{}
}
