package view

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/lifebook/pkg/model"
	"golang.org/x/sync/errgroup"
)

// Versioned is a collection split by pipeline version. Every version in
// Versions has its own slice, possibly empty; items are never merged.
type Versioned[T any] struct {
	Versions []model.PipelineVersion
	Items    map[model.PipelineVersion][]T
}

// Get returns the items of version
func (x *Versioned[T]) Get(version model.PipelineVersion) []T {
	if x == nil {
		return nil
	}
	return x.Items[version]
}

// Total returns the number of items over all versions
func (x *Versioned[T]) Total() int {
	if x == nil {
		return 0
	}
	n := 0
	for _, items := range x.Items {
		n += len(items)
	}
	return n
}

// Find returns the first item matching fn and its version
func (x *Versioned[T]) Find(fn func(T) bool) (T, model.PipelineVersion, bool) {
	var zero T
	if x == nil {
		return zero, "", false
	}
	for _, v := range x.Versions {
		for _, item := range x.Items[v] {
			if fn(item) {
				return item, v, true
			}
		}
	}
	return zero, "", false
}

// LoadVersioned fetches every version concurrently and fails when any fetch fails
func LoadVersioned[T any](ctx context.Context, versions []model.PipelineVersion, fetch func(ctx context.Context, version model.PipelineVersion) ([]T, error)) (*Versioned[T], error) {
	results := make([][]T, len(versions))

	eg, ctx := errgroup.WithContext(ctx)
	for i, version := range versions {
		eg.Go(func() error {
			items, err := fetch(ctx, version)
			if err != nil {
				return goerr.Wrap(err, "failed to load version", goerr.V("pipeline_version", version))
			}
			if items == nil {
				items = []T{}
			}
			results[i] = items
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	out := &Versioned[T]{
		Versions: append([]model.PipelineVersion(nil), versions...),
		Items:    make(map[model.PipelineVersion][]T, len(versions)),
	}
	for i, version := range versions {
		out.Items[version] = results[i]
	}
	return out, nil
}

// All runs fns concurrently and returns after every one of them returned.
// The first error is returned.
func All(ctx context.Context, fns ...func(ctx context.Context) error) error {
	eg, ctx := errgroup.WithContext(ctx)
	for _, fn := range fns {
		eg.Go(func() error {
			return fn(ctx)
		})
	}
	return eg.Wait()
}
