package repository

import (
	"context"
	"log/slog"
	"time"
)

// Collection is a tenant-scoped durable set of one entity kind. Save replaces
// the whole set; Append adds a single record.
type Collection[T any] interface {
	List(ctx context.Context, tenantID string) ([]T, error)
	Save(ctx context.Context, tenantID string, items []T) error
	Append(ctx context.Context, tenantID string, item T) error
}

// Doc is a tenant-scoped single document.
type Doc[T any] interface {
	Get(ctx context.Context, tenantID string) (*T, error)
	Set(ctx context.Context, tenantID string, value T) error
}

// fallbackCollection composes a remote and a local Collection. Reads race the
// remote against the timeout and fall back to the local copy; successful
// remote reads are mirrored into the local copy. Writes are local-first and
// never fail on a remote outage.
type fallbackCollection[T any] struct {
	name    string
	remote  Collection[T]
	local   Collection[T]
	timeout time.Duration
	log     *slog.Logger
}

func newFallbackCollection[T any](name string, remote, local Collection[T], timeout time.Duration, log *slog.Logger) *fallbackCollection[T] {
	return &fallbackCollection[T]{name: name, remote: remote, local: local, timeout: timeout, log: log}
}

func (f *fallbackCollection[T]) List(ctx context.Context, tenantID string) ([]T, error) {
	rctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	items, err := f.remote.List(rctx, tenantID)
	if err == nil {
		if mirrorErr := f.local.Save(ctx, tenantID, items); mirrorErr != nil {
			f.log.Warn("mirror to local cache failed", "collection", f.name, "error", mirrorErr)
		}
		return items, nil
	}

	f.log.Warn("remote read failed, using local fallback", "collection", f.name, "error", err)
	return f.local.List(ctx, tenantID)
}

func (f *fallbackCollection[T]) Save(ctx context.Context, tenantID string, items []T) error {
	if err := f.local.Save(ctx, tenantID, items); err != nil {
		return err
	}
	rctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()
	if err := f.remote.Save(rctx, tenantID, items); err != nil {
		f.log.Warn("remote sync failed", "collection", f.name, "error", err)
	}
	return nil
}

func (f *fallbackCollection[T]) Append(ctx context.Context, tenantID string, item T) error {
	if err := f.local.Append(ctx, tenantID, item); err != nil {
		return err
	}
	rctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()
	if err := f.remote.Append(rctx, tenantID, item); err != nil {
		f.log.Warn("remote sync failed", "collection", f.name, "error", err)
	}
	return nil
}

// fallbackDoc applies the same policy to single documents.
type fallbackDoc[T any] struct {
	name    string
	remote  Doc[T]
	local   Doc[T]
	timeout time.Duration
	log     *slog.Logger
}

func newFallbackDoc[T any](name string, remote, local Doc[T], timeout time.Duration, log *slog.Logger) *fallbackDoc[T] {
	return &fallbackDoc[T]{name: name, remote: remote, local: local, timeout: timeout, log: log}
}

func (f *fallbackDoc[T]) Get(ctx context.Context, tenantID string) (*T, error) {
	rctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	value, err := f.remote.Get(rctx, tenantID)
	if err == nil {
		if value != nil {
			if mirrorErr := f.local.Set(ctx, tenantID, *value); mirrorErr != nil {
				f.log.Warn("mirror to local cache failed", "doc", f.name, "error", mirrorErr)
			}
		}
		return value, nil
	}

	f.log.Warn("remote read failed, using local fallback", "doc", f.name, "error", err)
	return f.local.Get(ctx, tenantID)
}

func (f *fallbackDoc[T]) Set(ctx context.Context, tenantID string, value T) error {
	if err := f.local.Set(ctx, tenantID, value); err != nil {
		return err
	}
	rctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()
	if err := f.remote.Set(rctx, tenantID, value); err != nil {
		f.log.Warn("remote sync failed", "doc", f.name, "error", err)
	}
	return nil
}
