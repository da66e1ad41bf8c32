package carbon

import "fmt"

// FormatCO2 renders a CO2 amount in grams. The thresholds and decimal
// precisions are exact output contracts relied on by callers.
func FormatCO2(grams float64) string {
	switch {
	case grams < 0.01:
		return "< 0.01g"
	case grams < 1000:
		return fmt.Sprintf("%.2fg", grams)
	default:
		return fmt.Sprintf("%.3fkg", grams/1000)
	}
}

// FormatEnergy renders an energy amount in Wh, switching to kWh at 1000
func FormatEnergy(wh float64) string {
	switch {
	case wh < 0.001:
		return "< 0.001 Wh"
	case wh < 1:
		return fmt.Sprintf("%.3f Wh", wh)
	case wh < 1000:
		return fmt.Sprintf("%.2f Wh", wh)
	default:
		return fmt.Sprintf("%.3f kWh", wh/1000)
	}
}
