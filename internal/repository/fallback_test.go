package repository

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCollection struct {
	items   map[string][]string
	failing bool
	slow    time.Duration

	lists   int
	saves   int
	appends int
}

func newFakeCollection() *fakeCollection {
	return &fakeCollection{items: make(map[string][]string)}
}

func (f *fakeCollection) wait(ctx context.Context) error {
	if f.failing {
		return errors.New("backend unavailable")
	}
	if f.slow > 0 {
		select {
		case <-time.After(f.slow):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (f *fakeCollection) List(ctx context.Context, tenantID string) ([]string, error) {
	f.lists++
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	return append([]string(nil), f.items[tenantID]...), nil
}

func (f *fakeCollection) Save(ctx context.Context, tenantID string, items []string) error {
	f.saves++
	if err := f.wait(ctx); err != nil {
		return err
	}
	f.items[tenantID] = append([]string(nil), items...)
	return nil
}

func (f *fakeCollection) Append(ctx context.Context, tenantID string, item string) error {
	f.appends++
	if err := f.wait(ctx); err != nil {
		return err
	}
	f.items[tenantID] = append(f.items[tenantID], item)
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestFallbackCollection_List_MirrorsRemote(t *testing.T) {
	remote := newFakeCollection()
	local := newFakeCollection()
	remote.items["t1"] = []string{"a", "b"}

	fc := newFallbackCollection[string]("test", remote, local, time.Second, discardLogger())

	items, err := fc.List(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, items)
	assert.Equal(t, []string{"a", "b"}, local.items["t1"], "remote read is mirrored locally")
}

func TestFallbackCollection_List_FallsBackOnRemoteFailure(t *testing.T) {
	remote := newFakeCollection()
	local := newFakeCollection()
	remote.failing = true
	local.items["t1"] = []string{"cached"}

	fc := newFallbackCollection[string]("test", remote, local, time.Second, discardLogger())

	items, err := fc.List(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, []string{"cached"}, items)
}

func TestFallbackCollection_List_TimesOutSlowRemote(t *testing.T) {
	remote := newFakeCollection()
	local := newFakeCollection()
	remote.slow = 200 * time.Millisecond
	remote.items["t1"] = []string{"remote"}
	local.items["t1"] = []string{"cached"}

	fc := newFallbackCollection[string]("test", remote, local, 10*time.Millisecond, discardLogger())

	start := time.Now()
	items, err := fc.List(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, []string{"cached"}, items, "slow remote loses the race")
	assert.Less(t, time.Since(start), 150*time.Millisecond)
}

func TestFallbackCollection_Save_LocalFirst(t *testing.T) {
	remote := newFakeCollection()
	local := newFakeCollection()
	remote.failing = true

	fc := newFallbackCollection[string]("test", remote, local, time.Second, discardLogger())

	require.NoError(t, fc.Save(context.Background(), "t1", []string{"x"}),
		"remote outage does not fail the write")
	assert.Equal(t, []string{"x"}, local.items["t1"])
}

func TestFallbackCollection_Save_LocalFailureSurfaces(t *testing.T) {
	remote := newFakeCollection()
	local := newFakeCollection()
	local.failing = true

	fc := newFallbackCollection[string]("test", remote, local, time.Second, discardLogger())

	assert.Error(t, fc.Save(context.Background(), "t1", []string{"x"}))
	assert.Equal(t, 0, remote.saves, "remote is not attempted after a local failure")
}

func TestFallbackCollection_Append_ReachesBoth(t *testing.T) {
	remote := newFakeCollection()
	local := newFakeCollection()

	fc := newFallbackCollection[string]("test", remote, local, time.Second, discardLogger())

	require.NoError(t, fc.Append(context.Background(), "t1", "a"))
	require.NoError(t, fc.Append(context.Background(), "t1", "b"))
	assert.Equal(t, []string{"a", "b"}, local.items["t1"])
	assert.Equal(t, []string{"a", "b"}, remote.items["t1"])
}

type fakeDoc struct {
	values  map[string]string
	failing bool
}

func newFakeDoc() *fakeDoc { return &fakeDoc{values: make(map[string]string)} }

func (f *fakeDoc) Get(_ context.Context, tenantID string) (*string, error) {
	if f.failing {
		return nil, errors.New("backend unavailable")
	}
	if v, ok := f.values[tenantID]; ok {
		return &v, nil
	}
	return nil, nil
}

func (f *fakeDoc) Set(_ context.Context, tenantID string, value string) error {
	if f.failing {
		return errors.New("backend unavailable")
	}
	f.values[tenantID] = value
	return nil
}

func TestFallbackDoc_Get_MirrorsAndFallsBack(t *testing.T) {
	remote := newFakeDoc()
	local := newFakeDoc()
	remote.values["t1"] = "profile"

	fd := newFallbackDoc[string]("test", remote, local, time.Second, discardLogger())

	v, err := fd.Get(context.Background(), "t1")
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.Equal(t, "profile", *v)
	assert.Equal(t, "profile", local.values["t1"])

	remote.failing = true
	v, err = fd.Get(context.Background(), "t1")
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.Equal(t, "profile", *v, "served from the local mirror while remote is down")
}

func TestFallbackDoc_Get_MissingIsNotMirrored(t *testing.T) {
	remote := newFakeDoc()
	local := newFakeDoc()

	fd := newFallbackDoc[string]("test", remote, local, time.Second, discardLogger())

	v, err := fd.Get(context.Background(), "t1")
	require.NoError(t, err)
	assert.Nil(t, v)
	_, ok := local.values["t1"]
	assert.False(t, ok)
}
