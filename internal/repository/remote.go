package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fleex/storefront-api/internal/model"
)

// The remote side stores every collection as JSON documents in a single
// table, namespaced by tenant and collection name (see schema.sql).

type remoteCollection[T any] struct {
	pool *pgxpool.Pool
	name string
	id   func(T) string
}

func newRemoteCollection[T any](pool *pgxpool.Pool, name string, id func(T) string) *remoteCollection[T] {
	return &remoteCollection[T]{pool: pool, name: name, id: id}
}

func (r *remoteCollection[T]) List(ctx context.Context, tenantID string) ([]T, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT data FROM documents WHERE tenant_id = $1 AND collection = $2`,
		tenantID, r.name,
	)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", r.name, err)
	}
	defer rows.Close()

	var items []T
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan %s: %w", r.name, err)
		}
		var item T
		if err := json.Unmarshal(raw, &item); err != nil {
			return nil, fmt.Errorf("decode %s: %w", r.name, err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// Save replaces the tenant's whole collection in one transaction, mirroring
// the dashboard's bulk-save semantics.
func (r *remoteCollection[T]) Save(ctx context.Context, tenantID string, items []T) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`DELETE FROM documents WHERE tenant_id = $1 AND collection = $2`,
		tenantID, r.name,
	); err != nil {
		return fmt.Errorf("clear %s: %w", r.name, err)
	}
	for _, item := range items {
		raw, err := json.Marshal(item)
		if err != nil {
			return fmt.Errorf("encode %s: %w", r.name, err)
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO documents (tenant_id, collection, id, data) VALUES ($1, $2, $3, $4)`,
			tenantID, r.name, r.id(item), raw,
		); err != nil {
			return fmt.Errorf("insert %s: %w", r.name, err)
		}
	}
	return tx.Commit(ctx)
}

func (r *remoteCollection[T]) Append(ctx context.Context, tenantID string, item T) error {
	raw, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("encode %s: %w", r.name, err)
	}
	_, err = r.pool.Exec(ctx,
		`INSERT INTO documents (tenant_id, collection, id, data) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (tenant_id, collection, id) DO UPDATE SET data = EXCLUDED.data`,
		tenantID, r.name, r.id(item), raw,
	)
	if err != nil {
		return fmt.Errorf("append %s: %w", r.name, err)
	}
	return nil
}

type remoteDoc[T any] struct {
	pool *pgxpool.Pool
	name string
}

func newRemoteDoc[T any](pool *pgxpool.Pool, name string) *remoteDoc[T] {
	return &remoteDoc[T]{pool: pool, name: name}
}

func (r *remoteDoc[T]) Get(ctx context.Context, tenantID string) (*T, error) {
	var raw []byte
	err := r.pool.QueryRow(ctx,
		`SELECT data FROM documents WHERE tenant_id = $1 AND collection = $2 AND id = $1`,
		tenantID, r.name,
	).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get %s: %w", r.name, err)
	}
	value := new(T)
	if err := json.Unmarshal(raw, value); err != nil {
		return nil, fmt.Errorf("decode %s: %w", r.name, err)
	}
	return value, nil
}

func (r *remoteDoc[T]) Set(ctx context.Context, tenantID string, value T) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", r.name, err)
	}
	_, err = r.pool.Exec(ctx,
		`INSERT INTO documents (tenant_id, collection, id, data) VALUES ($1, $2, $1, $3)
		 ON CONFLICT (tenant_id, collection, id) DO UPDATE SET data = EXCLUDED.data`,
		tenantID, r.name, raw,
	)
	if err != nil {
		return fmt.Errorf("set %s: %w", r.name, err)
	}
	return nil
}

// remoteStock applies purchased quantities directly in SQL so the decrement
// is atomic and floor-checked against concurrent finalizations.
type remoteStock struct{ pool *pgxpool.Pool }

func (r remoteStock) DecrementStock(ctx context.Context, tenantID string, items []model.CartItem) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, item := range items {
		if _, err := tx.Exec(ctx,
			`UPDATE documents
			 SET data = jsonb_set(
			     jsonb_set(data, '{stock}', to_jsonb(GREATEST((data->>'stock')::int - $4, 0))),
			     '{sales}', to_jsonb(COALESCE((data->>'sales')::int, 0) + $4))
			 WHERE tenant_id = $1 AND collection = $2 AND id = $3`,
			tenantID, colProducts, item.Product.ID, item.Quantity,
		); err != nil {
			return fmt.Errorf("decrement stock %s: %w", item.Product.ID, err)
		}
	}
	return tx.Commit(ctx)
}

// remoteUserIndex answers cross-tenant profile lookups for login.
type remoteUserIndex struct{ pool *pgxpool.Pool }

func (r remoteUserIndex) find(ctx context.Context, field, value string) (*model.UserProfile, error) {
	var raw []byte
	err := r.pool.QueryRow(ctx,
		`SELECT data FROM documents WHERE collection = $1 AND data->>$2 = $3 LIMIT 1`,
		colProfile, field, value,
	).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find profile by %s: %w", field, err)
	}
	user := &model.UserProfile{}
	if err := json.Unmarshal(raw, user); err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}
	return user, nil
}

func (r remoteUserIndex) FindByEmail(ctx context.Context, email string) (*model.UserProfile, error) {
	return r.find(ctx, "email", email)
}

func (r remoteUserIndex) FindBySlug(ctx context.Context, slug string) (*model.UserProfile, error) {
	return r.find(ctx, "slug", slug)
}
