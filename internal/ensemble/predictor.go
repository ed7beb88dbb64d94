// Package ensemble turns a merged feature vector into a single point
// prediction by blending the mean regressor with one of the quantile
// regressors according to how lopsided the game is.
package ensemble

import (
	"errors"
	"fmt"
	"math"

	"github.com/fortuna/halftime/internal/baseline"
	"github.com/fortuna/halftime/internal/features"
	"github.com/fortuna/halftime/internal/model"
)

// SpreadSaturation is the first-half margin at which the quantile model
// takes over completely.
const SpreadSaturation = 20.0

// Quantile sides.
const (
	SideNone = ""
	SideLow  = "low"
	SideHigh = "high"
)

// ErrEncoding means the vector could not be laid out for a model.
var ErrEncoding = errors.New("feature encoding failed")

// Explanation carries the intermediate values of one prediction. Spread is
// nil when the opponent's score was unknown.
type Explanation struct {
	Mean       float64  `json:"mean"`
	Low        *float64 `json:"low,omitempty"`
	High       *float64 `json:"high,omitempty"`
	Spread     *float64 `json:"spread,omitempty"`
	Factor     float64  `json:"factor"`
	Side       string   `json:"side,omitempty"`
	Prediction int      `json:"prediction"`
}

// Predictor scores vectors against a fixed registry.
type Predictor struct {
	registry *model.Registry
}

// NewPredictor returns a predictor over registry.
func NewPredictor(registry *model.Registry) *Predictor {
	return &Predictor{registry: registry}
}

// Predict returns the blended final point total.
func (p *Predictor) Predict(vec features.Vector, cats baseline.Categories) (int, error) {
	exp, err := p.Explain(vec, cats)
	if err != nil {
		return 0, err
	}
	return exp.Prediction, nil
}

// Explain evaluates every loaded model on vec and reports how they were
// combined. Without quantile models the result is the rounded mean.
func (p *Predictor) Explain(vec features.Vector, cats baseline.Categories) (Explanation, error) {
	mean := p.registry.Mean()
	row, err := Encode(vec, cats, mean)
	if err != nil {
		return Explanation{}, err
	}

	spread := vec.Spread()
	var exp Explanation
	if !math.IsNaN(spread) {
		exp.Spread = &spread
	}
	if exp.Mean, err = mean.PredictRow(row); err != nil {
		return Explanation{}, fmt.Errorf("%w: %v", ErrEncoding, err)
	}

	if !p.registry.HasQuantiles() {
		exp.Prediction = round(exp.Mean)
		return exp, nil
	}

	// The registry guarantees the quantile models share the mean's schema.
	low, err := p.registry.Low().PredictRow(row)
	if err != nil {
		return Explanation{}, fmt.Errorf("%w: %v", ErrEncoding, err)
	}
	high, err := p.registry.High().PredictRow(row)
	if err != nil {
		return Explanation{}, fmt.Errorf("%w: %v", ErrEncoding, err)
	}
	exp.Low, exp.High = &low, &high

	exp.Factor = SpreadFactor(spread)
	exp.Side = Side(spread)
	chosen := low
	if exp.Side == SideHigh {
		chosen = high
	}
	exp.Prediction = Blend(exp.Mean, chosen, exp.Factor)
	return exp, nil
}

// SpreadFactor is |spread|/20 clamped to [0, 1].
func SpreadFactor(spread float64) float64 {
	f := math.Abs(spread) / SpreadSaturation
	if f > 1 {
		return 1
	}
	if f < 0 || math.IsNaN(f) {
		return 0
	}
	return f
}

// Side picks the quantile to blend: a trailing team leans on the high
// quantile, a leading or tied team on the low one. An unknown spread has
// no side.
func Side(spread float64) string {
	if math.IsNaN(spread) {
		return SideNone
	}
	if spread < 0 {
		return SideHigh
	}
	return SideLow
}

// Blend mixes mean and quantile by factor and rounds half away from zero.
func Blend(mean, quantile, factor float64) int {
	return round(mean*(1-factor) + quantile*factor)
}

func round(v float64) int {
	return int(math.Round(v))
}

// Encode lays vec out in b's feature order. Categorical features become
// category codes from cats. The vector's column set must equal the model's.
func Encode(vec features.Vector, cats baseline.Categories, b *model.Booster) ([]float64, error) {
	names := b.FeatureNames()
	row := make([]float64, len(names))
	for i, name := range names {
		if b.IsCategorical(i) {
			v, ok := vec.Categorical[name]
			if !ok {
				return nil, fmt.Errorf("%w: categorical column %s missing for %s", features.ErrSchemaMismatch, name, vec.Player)
			}
			row[i] = cats.Encode(name, v)
			continue
		}
		v, ok := vec.Numeric[name]
		if !ok {
			return nil, fmt.Errorf("%w: column %s missing for %s", features.ErrSchemaMismatch, name, vec.Player)
		}
		row[i] = v
	}

	if n := len(vec.Numeric) + len(vec.Categorical); n != len(names) {
		return nil, fmt.Errorf("%w: vector for %s has %d columns, model %s expects %d",
			features.ErrSchemaMismatch, vec.Player, n, b.Name(), len(names))
	}
	return row, nil
}
