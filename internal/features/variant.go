package features

import (
	"fmt"
	"strings"

	"github.com/fortuna/halftime/internal/live"
)

// Variant selects which trained model family the vector is built for. The
// differential columns must match the family's training schema exactly.
type Variant string

const (
	VariantSingle   Variant = "single"
	VariantTwoModel Variant = "two-model"
	VariantEnsemble Variant = "ensemble"
)

var differentials = map[Variant][]string{
	VariantSingle:   nil,
	VariantTwoModel: {live.StatPoints},
	VariantEnsemble: {live.StatPoints, live.StatFieldGoals, live.StatFieldGoalsAtt},
}

// ParseVariant parses a configured variant name.
func ParseVariant(s string) (Variant, error) {
	v := Variant(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := differentials[v]; !ok {
		return "", fmt.Errorf("unknown model variant %q (want single, two-model or ensemble)", s)
	}
	return v, nil
}

// Differentials returns the statistics that get a <STAT>_diff column.
func (v Variant) Differentials() []string {
	return append([]string(nil), differentials[v]...)
}

// NeedsQuantiles reports whether the variant blends quantile models.
func (v Variant) NeedsQuantiles() bool {
	return v == VariantEnsemble
}
