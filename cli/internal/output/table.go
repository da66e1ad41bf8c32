package output

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/emberlens/ccwatt/internal/carbon"
	"github.com/emberlens/ccwatt/internal/store"
)

const (
	compactThreshold = 90 // Terminal width below which compact mode kicks in
	defaultWidth     = 120
)

// TableOptions controls table display behavior
type TableOptions struct {
	ForceCompact bool
}

// shouldUseCompact determines if compact mode should be used
func shouldUseCompact(opts TableOptions) bool {
	if opts.ForceCompact {
		return true
	}
	return getTerminalWidth() < compactThreshold
}

// FormatNumber formats a number with thousand separators
func FormatNumber(n int64) string {
	if n == 0 {
		return "0"
	}

	str := fmt.Sprintf("%d", n)
	negative := n < 0
	if negative {
		str = str[1:]
	}

	result := ""
	for i, c := range str {
		if i > 0 && (len(str)-i)%3 == 0 {
			result += ","
		}
		result += string(c)
	}

	if negative {
		return "-" + result
	}
	return result
}

// PrintJSON writes any value as indented JSON to stdout
func PrintJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding JSON: %v\n", err)
	}
}

func printRow(widths []int, cells []string) {
	parts := make([]string, len(cells))
	for i, cell := range cells {
		parts[i] = fmt.Sprintf("%*s", widths[i], cell)
	}
	fmt.Println(strings.Join(parts, "  "))
}

func printRule(widths []int) {
	parts := make([]string, len(widths))
	for i, w := range widths {
		parts[i] = strings.Repeat("-", w)
	}
	fmt.Println(strings.Join(parts, "  "))
}

// PrintDaily renders per-day energy and CO2 buckets as a table
func PrintDaily(buckets []store.DayBucket, opts TableOptions) {
	if len(buckets) == 0 {
		fmt.Println("No usage data recorded yet.")
		return
	}

	compact := shouldUseCompact(opts)

	headers := []string{"Date", "Sessions", "Tokens", "Energy", "CO2"}
	widths := []int{10, 8, 14, 12, 10}
	if compact {
		headers = []string{"Date", "Energy", "CO2"}
		widths = []int{10, 12, 10}
	}

	printRow(widths, headers)
	printRule(widths)

	var totalEnergy, totalCO2 float64
	var totalTokens, totalSessions int64
	for _, b := range buckets {
		if compact {
			printRow(widths, []string{b.Day, carbon.FormatEnergy(b.EnergyWh), carbon.FormatCO2(b.CO2Grams)})
		} else {
			printRow(widths, []string{
				b.Day,
				FormatNumber(b.Sessions),
				FormatNumber(b.Tokens),
				carbon.FormatEnergy(b.EnergyWh),
				carbon.FormatCO2(b.CO2Grams),
			})
		}
		totalEnergy += b.EnergyWh
		totalCO2 += b.CO2Grams
		totalTokens += b.Tokens
		totalSessions += b.Sessions
	}

	printRule(widths)
	if compact {
		printRow(widths, []string{"Total", carbon.FormatEnergy(totalEnergy), carbon.FormatCO2(totalCO2)})
	} else {
		printRow(widths, []string{
			"Total",
			FormatNumber(totalSessions),
			FormatNumber(totalTokens),
			carbon.FormatEnergy(totalEnergy),
			carbon.FormatCO2(totalCO2),
		})
	}
}

// PrintTotals renders aggregate totals
func PrintTotals(t *store.Totals) {
	fmt.Printf("Sessions:      %s\n", FormatNumber(t.Sessions))
	fmt.Printf("Input tokens:  %s\n", FormatNumber(t.Usage.InputTokens))
	fmt.Printf("Output tokens: %s\n", FormatNumber(t.Usage.OutputTokens))
	fmt.Printf("Cache write:   %s\n", FormatNumber(t.Usage.CacheCreationTokens))
	fmt.Printf("Cache read:    %s\n", FormatNumber(t.Usage.CacheReadTokens))
	fmt.Printf("Total tokens:  %s\n", FormatNumber(t.Tokens))
	fmt.Printf("Energy:        %s\n", carbon.FormatEnergy(t.EnergyWh))
	fmt.Printf("CO2:           %s\n", carbon.FormatCO2(t.CO2Grams))
}

// StatusLine renders the compact one-line summary used by status bars
func StatusLine(t *store.Totals) string {
	return fmt.Sprintf("%s | %s CO2", carbon.FormatEnergy(t.EnergyWh), carbon.FormatCO2(t.CO2Grams))
}
