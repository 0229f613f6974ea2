package repository

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleex/storefront-api/internal/model"
)

func TestRemoteCollection_SaveListAppend(t *testing.T) {
	requireDB(t)
	cleanupDocuments(t)
	ctx := context.Background()

	coll := newRemoteCollection(testPool, colProducts, func(p model.Product) string { return p.ID })

	products := []model.Product{
		{ID: "p1", Title: "Camisa", Price: decimal.NewFromFloat(49.9), Stock: 5},
		{ID: "p2", Title: "Boné", Price: decimal.NewFromFloat(29.9), Stock: 3},
	}
	require.NoError(t, coll.Save(ctx, "t1", products))

	listed, err := coll.List(ctx, "t1")
	require.NoError(t, err)
	assert.Len(t, listed, 2)

	// Save replaces the whole set.
	require.NoError(t, coll.Save(ctx, "t1", products[:1]))
	listed, err = coll.List(ctx, "t1")
	require.NoError(t, err)
	assert.Len(t, listed, 1)

	// Append upserts on id.
	require.NoError(t, coll.Append(ctx, "t1", model.Product{ID: "p1", Title: "Camisa Nova", Stock: 4}))
	listed, err = coll.List(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, "Camisa Nova", listed[0].Title)

	// Tenants do not see each other's documents.
	other, err := coll.List(ctx, "t2")
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestRemoteDoc_SetGet(t *testing.T) {
	requireDB(t)
	cleanupDocuments(t)
	ctx := context.Background()

	doc := newRemoteDoc[model.UserProfile](testPool, colProfile)

	missing, err := doc.Get(ctx, "t1")
	require.NoError(t, err)
	assert.Nil(t, missing)

	require.NoError(t, doc.Set(ctx, "t1", model.UserProfile{ID: "t1", Name: "Loja", Slug: "loja"}))
	require.NoError(t, doc.Set(ctx, "t1", model.UserProfile{ID: "t1", Name: "Loja Nova", Slug: "loja"}))

	got, err := doc.Get(ctx, "t1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Loja Nova", got.Name)
}

func TestRemoteStock_FloorCheckedDecrement(t *testing.T) {
	requireDB(t)
	cleanupDocuments(t)
	ctx := context.Background()

	coll := newRemoteCollection(testPool, colProducts, func(p model.Product) string { return p.ID })
	require.NoError(t, coll.Save(ctx, "t1", []model.Product{{ID: "p1", Title: "Camisa", Stock: 3}}))

	stock := remoteStock{pool: testPool}
	require.NoError(t, stock.DecrementStock(ctx, "t1", []model.CartItem{
		{Product: model.Product{ID: "p1"}, Quantity: 5},
	}))

	listed, err := coll.List(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, 0, listed[0].Stock, "stock never goes negative")
	assert.Equal(t, 5, listed[0].Sales, "sales counts the purchased quantity")
}

func TestRemoteUserIndex_Find(t *testing.T) {
	requireDB(t)
	cleanupDocuments(t)
	ctx := context.Background()

	doc := newRemoteDoc[model.UserProfile](testPool, colProfile)
	require.NoError(t, doc.Set(ctx, "t1", model.UserProfile{
		ID: "t1", Email: "dono@example.com", Slug: "loja",
	}))

	index := remoteUserIndex{pool: testPool}

	byEmail, err := index.FindByEmail(ctx, "dono@example.com")
	require.NoError(t, err)
	require.NotNil(t, byEmail)
	assert.Equal(t, "t1", byEmail.ID)

	bySlug, err := index.FindBySlug(ctx, "loja")
	require.NoError(t, err)
	require.NotNil(t, bySlug)
	assert.Equal(t, "t1", bySlug.ID)

	none, err := index.FindBySlug(ctx, "ninguem")
	require.NoError(t, err)
	assert.Nil(t, none)
}
