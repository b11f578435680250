package revalidate

import (
	"context"

	"go.uber.org/multierr"

	"github.com/hoppafit/website/internal/cachetag"
)

// Purger drops cached copies of site paths.
type Purger interface {
	Purge(ctx context.Context, paths []string) error
}

type PurgerFunc func(ctx context.Context, paths []string) error

func (f PurgerFunc) Purge(ctx context.Context, paths []string) error { return f(ctx, paths) }

// Purgers runs every purger, even after one fails, and returns the combined
// error.
type Purgers []Purger

func (ps Purgers) Purge(ctx context.Context, paths []string) error {
	var err error
	for _, p := range ps {
		err = multierr.Append(err, p.Purge(ctx, paths))
	}

	return err
}

// LocalPurger invalidates the in-process page cache.
type LocalPurger struct {
	Pages *cachetag.Store
}

func (l LocalPurger) Purge(ctx context.Context, paths []string) error {
	if l.Pages == nil {
		return nil
	}
	tags := make([]cachetag.Tag, 0, len(paths))
	for _, p := range paths {
		tags = append(tags, cachetag.Path(p))
	}
	l.Pages.Invalidate(ctx, tags...)

	return nil
}
