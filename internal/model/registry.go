package model

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/sync/errgroup"
)

// Paths locates the model artifacts on disk. Low and High are optional
// unless the quantile blend is used.
type Paths struct {
	Mean string
	Low  string
	High string
}

// Registry holds the loaded boosters. It is built once per process and never
// modified afterwards.
type Registry struct {
	mean *Booster
	low  *Booster
	high *Booster
}

// NewRegistry validates and wraps already parsed boosters. low and high must
// be both set or both nil, and every booster must share the mean model's
// feature schema.
func NewRegistry(mean, low, high *Booster) (*Registry, error) {
	if mean == nil {
		return nil, errors.New("mean model is required")
	}
	if (low == nil) != (high == nil) {
		return nil, errors.New("low and high quantile models must be loaded together")
	}
	for _, b := range []*Booster{low, high} {
		if b == nil {
			continue
		}
		if !sameSchema(mean, b) {
			return nil, fmt.Errorf("model %s feature schema differs from %s", b.Name(), mean.Name())
		}
	}
	return &Registry{mean: mean, low: low, high: high}, nil
}

// LoadRegistry reads the artifacts named in paths concurrently.
func LoadRegistry(ctx context.Context, paths Paths) (*Registry, error) {
	if paths.Mean == "" {
		return nil, errors.New("mean model path is required")
	}

	var mean, low, high *Booster
	g, ctx := errgroup.WithContext(ctx)

	load := func(path string, dst **Booster) {
		if path == "" {
			return
		}
		g.Go(func() error {
			b, err := loadFile(ctx, path)
			if err != nil {
				return err
			}
			*dst = b
			return nil
		})
	}
	load(paths.Mean, &mean)
	load(paths.Low, &low)
	load(paths.High, &high)

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return NewRegistry(mean, low, high)
}

func loadFile(ctx context.Context, path string) (*Booster, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening model: %w", err)
	}
	defer f.Close()
	return ParseBooster(path, f)
}

// Mean returns the mean regressor.
func (r *Registry) Mean() *Booster { return r.mean }

// Low returns the low quantile regressor, or nil.
func (r *Registry) Low() *Booster { return r.low }

// High returns the high quantile regressor, or nil.
func (r *Registry) High() *Booster { return r.high }

// HasQuantiles reports whether both quantile models are loaded.
func (r *Registry) HasQuantiles() bool {
	return r.low != nil && r.high != nil
}

// String lists the loaded artifacts for startup logging.
func (r *Registry) String() string {
	names := []string{"mean=" + r.mean.Name()}
	if r.HasQuantiles() {
		names = append(names, "low="+r.low.Name(), "high="+r.high.Name())
	}
	return strings.Join(names, " ")
}

func sameSchema(a, b *Booster) bool {
	if len(a.featureNames) != len(b.featureNames) {
		return false
	}
	for i := range a.featureNames {
		if a.featureNames[i] != b.featureNames[i] || a.featureTypes[i] != b.featureTypes[i] {
			return false
		}
	}
	return true
}
