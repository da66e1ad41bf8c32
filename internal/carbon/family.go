package carbon

import "strings"

// Family is a coarse capability-tier grouping of model identifiers used
// for energy coefficient lookup and result aggregation.
type Family string

const (
	FamilyLight  Family = "light"  // haiku-class
	FamilyMedium Family = "medium" // sonnet-class
	FamilyHeavy  Family = "heavy"  // opus-class
)

// knownFamilies maps exact model identifiers to their family
var knownFamilies = map[string]Family{
	"claude-3-haiku-20240307":    FamilyLight,
	"claude-3-5-haiku-20241022":  FamilyLight,
	"claude-haiku-4-5":           FamilyLight,
	"claude-haiku-4-5-20251001":  FamilyLight,
	"claude-3-5-sonnet-20240620": FamilyMedium,
	"claude-3-5-sonnet-20241022": FamilyMedium,
	"claude-3-7-sonnet-20250219": FamilyMedium,
	"claude-sonnet-4-20250514":   FamilyMedium,
	"claude-4-sonnet-20250514":   FamilyMedium,
	"claude-sonnet-4-5":          FamilyMedium,
	"claude-sonnet-4-5-20250929": FamilyMedium,
	"claude-3-opus-20240229":     FamilyHeavy,
	"claude-opus-4-20250514":     FamilyHeavy,
	"claude-4-opus-20250514":     FamilyHeavy,
	"claude-opus-4-1":            FamilyHeavy,
	"claude-opus-4-1-20250805":   FamilyHeavy,
	"claude-opus-4-5":            FamilyHeavy,
	"claude-opus-4-5-20251101":   FamilyHeavy,
}

// familyKeywords classifies identifiers missing from the table
var familyKeywords = []struct {
	keyword string
	family  Family
}{
	{"haiku", FamilyLight},
	{"sonnet", FamilyMedium},
	{"opus", FamilyHeavy},
}

// Classify maps a model identifier to its family. Unknown identifiers
// are matched by keyword; fully unknown ones fall back to the mid tier.
func Classify(modelID string) Family {
	if f, ok := knownFamilies[modelID]; ok {
		return f
	}
	lower := strings.ToLower(modelID)
	for _, k := range familyKeywords {
		if strings.Contains(lower, k.keyword) {
			return k.family
		}
	}
	return FamilyMedium
}
