// Package model evaluates boosted-tree regressors saved with XGBoost's
// JSON model format and holds the registry of loaded artifacts.
package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// ErrUnsupportedModel is returned for artifacts this evaluator cannot score.
var ErrUnsupportedModel = errors.New("unsupported model artifact")

// Feature types as written by XGBoost.
const (
	FeatureFloat       = "float"
	FeatureInt         = "int"
	FeatureCategorical = "c"
)

// Objectives with an identity link; the margin is the prediction.
var identityObjectives = map[string]bool{
	"reg:squarederror":     true,
	"reg:absoluteerror":    true,
	"reg:quantileerror":    true,
	"reg:pseudohubererror": true,
	"reg:linear":           true,
}

type modelFile struct {
	Learner struct {
		FeatureNames     []string `json:"feature_names"`
		FeatureTypes     []string `json:"feature_types"`
		LearnerParameter struct {
			BaseScore string `json:"base_score"`
			NumTarget string `json:"num_target"`
		} `json:"learner_model_param"`
		Objective struct {
			Name string `json:"name"`
		} `json:"objective"`
		GradientBooster struct {
			Name  string `json:"name"`
			Model struct {
				Trees []treeFile `json:"trees"`
			} `json:"model"`
		} `json:"gradient_booster"`
	} `json:"learner"`
}

type treeFile struct {
	LeftChildren       []int     `json:"left_children"`
	RightChildren      []int     `json:"right_children"`
	SplitIndices       []int     `json:"split_indices"`
	SplitConditions    []float64 `json:"split_conditions"`
	SplitType          []int     `json:"split_type"`
	DefaultLeft        flexBools `json:"default_left"`
	Categories         []int     `json:"categories"`
	CategoriesNodes    []int     `json:"categories_nodes"`
	CategoriesSegments []int     `json:"categories_segments"`
	CategoriesSizes    []int     `json:"categories_sizes"`
}

// flexBools accepts XGBoost's default_left as either 0/1 or booleans.
type flexBools []bool

func (f *flexBools) UnmarshalJSON(data []byte) error {
	var bools []bool
	if err := json.Unmarshal(data, &bools); err == nil {
		*f = bools
		return nil
	}
	var ints []int
	if err := json.Unmarshal(data, &ints); err != nil {
		return fmt.Errorf("default_left: %w", err)
	}
	out := make([]bool, len(ints))
	for i, v := range ints {
		out[i] = v != 0
	}
	*f = out
	return nil
}

type node struct {
	left, right int
	feature     int
	threshold   float64
	defaultLeft bool
	// categories holds the codes sent right at a categorical split.
	categories map[int]bool
}

func (n node) leaf() bool {
	return n.left == -1
}

type tree []node

// Booster is a parsed gradient-boosted tree ensemble. It is immutable after
// parsing and safe for concurrent use.
type Booster struct {
	name         string
	objective    string
	baseScore    float64
	featureNames []string
	featureTypes []string
	trees        []tree
}

// ParseBooster reads an XGBoost JSON model.
func ParseBooster(name string, r io.Reader) (*Booster, error) {
	var mf modelFile
	if err := json.NewDecoder(r).Decode(&mf); err != nil {
		return nil, fmt.Errorf("decoding model %s: %w", name, err)
	}
	learner := mf.Learner

	if gb := learner.GradientBooster.Name; gb != "" && gb != "gbtree" {
		return nil, fmt.Errorf("%w: %s uses booster %q", ErrUnsupportedModel, name, gb)
	}
	if obj := learner.Objective.Name; obj != "" && !identityObjectives[obj] {
		return nil, fmt.Errorf("%w: %s uses objective %q", ErrUnsupportedModel, name, obj)
	}
	if nt := learner.LearnerParameter.NumTarget; nt != "" && nt != "1" {
		return nil, fmt.Errorf("%w: %s has %s targets", ErrUnsupportedModel, name, nt)
	}
	if len(learner.FeatureNames) == 0 {
		return nil, fmt.Errorf("%w: %s carries no feature names", ErrUnsupportedModel, name)
	}

	baseScore, err := parseBaseScore(learner.LearnerParameter.BaseScore)
	if err != nil {
		return nil, fmt.Errorf("model %s: %w", name, err)
	}

	types := learner.FeatureTypes
	if len(types) == 0 {
		types = make([]string, len(learner.FeatureNames))
		for i := range types {
			types[i] = FeatureFloat
		}
	}
	if len(types) != len(learner.FeatureNames) {
		return nil, fmt.Errorf("%w: %s has %d feature types for %d names",
			ErrUnsupportedModel, name, len(types), len(learner.FeatureNames))
	}

	b := &Booster{
		name:         name,
		objective:    learner.Objective.Name,
		baseScore:    baseScore,
		featureNames: learner.FeatureNames,
		featureTypes: types,
	}
	for i, tf := range learner.GradientBooster.Model.Trees {
		t, err := buildTree(tf, len(b.featureNames))
		if err != nil {
			return nil, fmt.Errorf("model %s tree %d: %w", name, i, err)
		}
		b.trees = append(b.trees, t)
	}
	return b, nil
}

// parseBaseScore handles both "5E-1" and the bracketed "[5E-1]" form.
func parseBaseScore(s string) (float64, error) {
	s = strings.Trim(strings.TrimSpace(s), "[]")
	if s == "" {
		return 0.5, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("base_score %q: %w", s, err)
	}
	return v, nil
}

func buildTree(tf treeFile, numFeatures int) (tree, error) {
	n := len(tf.LeftChildren)
	if n == 0 {
		return nil, fmt.Errorf("%w: empty tree", ErrUnsupportedModel)
	}
	if len(tf.RightChildren) != n || len(tf.SplitIndices) != n ||
		len(tf.SplitConditions) != n || len(tf.DefaultLeft) != n {
		return nil, fmt.Errorf("%w: node arrays differ in length", ErrUnsupportedModel)
	}

	t := make(tree, n)
	for i := 0; i < n; i++ {
		t[i] = node{
			left:        tf.LeftChildren[i],
			right:       tf.RightChildren[i],
			feature:     tf.SplitIndices[i],
			threshold:   tf.SplitConditions[i],
			defaultLeft: tf.DefaultLeft[i],
		}
		if t[i].leaf() {
			continue
		}
		if t[i].left <= 0 || t[i].left >= n || t[i].right <= 0 || t[i].right >= n {
			return nil, fmt.Errorf("%w: node %d has out-of-range children", ErrUnsupportedModel, i)
		}
		if t[i].feature < 0 || t[i].feature >= numFeatures {
			return nil, fmt.Errorf("%w: node %d splits on feature %d of %d", ErrUnsupportedModel, i, t[i].feature, numFeatures)
		}
	}

	if len(tf.CategoriesNodes) != len(tf.CategoriesSegments) || len(tf.CategoriesNodes) != len(tf.CategoriesSizes) {
		return nil, fmt.Errorf("%w: categorical split arrays differ in length", ErrUnsupportedModel)
	}
	for i, nid := range tf.CategoriesNodes {
		start, size := tf.CategoriesSegments[i], tf.CategoriesSizes[i]
		if nid < 0 || nid >= n || start < 0 || start+size > len(tf.Categories) {
			return nil, fmt.Errorf("%w: categorical split %d out of range", ErrUnsupportedModel, i)
		}
		set := make(map[int]bool, size)
		for _, c := range tf.Categories[start : start+size] {
			set[c] = true
		}
		t[nid].categories = set
	}
	return t, nil
}

// Name returns the artifact's name.
func (b *Booster) Name() string { return b.name }

// FeatureNames returns the training schema in model order.
func (b *Booster) FeatureNames() []string {
	return append([]string(nil), b.featureNames...)
}

// FeatureTypes returns the XGBoost type of each feature.
func (b *Booster) FeatureTypes() []string {
	return append([]string(nil), b.featureTypes...)
}

// IsCategorical reports whether the i-th feature is categorical.
func (b *Booster) IsCategorical(i int) bool {
	return b.featureTypes[i] == FeatureCategorical
}

// NumTrees returns the number of trees.
func (b *Booster) NumTrees() int { return len(b.trees) }

// PredictRow scores a row laid out in FeatureNames order. NaN is missing.
func (b *Booster) PredictRow(row []float64) (float64, error) {
	if len(row) != len(b.featureNames) {
		return 0, fmt.Errorf("model %s expects %d features, got %d", b.name, len(b.featureNames), len(row))
	}
	sum := b.baseScore
	for _, t := range b.trees {
		sum += t.score(row)
	}
	return sum, nil
}

func (t tree) score(row []float64) float64 {
	i := 0
	for !t[i].leaf() {
		n := t[i]
		v := row[n.feature]
		switch {
		case math.IsNaN(v):
			i = pick(n.defaultLeft, n.left, n.right)
		case n.categories != nil:
			// Categories in the split set go right.
			i = pick(!n.categories[int(v)], n.left, n.right)
		default:
			i = pick(v < n.threshold, n.left, n.right)
		}
	}
	return t[i].threshold
}

func pick(left bool, l, r int) int {
	if left {
		return l
	}
	return r
}

// Objective returns the training objective recorded in the artifact.
func (b *Booster) Objective() string { return b.objective }
