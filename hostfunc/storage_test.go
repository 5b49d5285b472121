package hostfunc

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStorageSetGet(t *testing.T) {
	s := NewStorage(DefaultStorageConfig())
	ctx := context.Background()

	_, err := s.Set(ctx, map[string]any{"key": "foo", "value": "bar"})
	require.NoError(t, err)

	val, err := s.Get(ctx, map[string]any{"key": "foo"})
	require.NoError(t, err)
	assert.Equal(t, "bar", val)
}

func TestStorageGetMissing(t *testing.T) {
	s := NewStorage(DefaultStorageConfig())

	val, err := s.Get(context.Background(), map[string]any{"key": "missing"})
	require.NoError(t, err)
	assert.Nil(t, val)
}

func TestStorageRequiresKey(t *testing.T) {
	s := NewStorage(DefaultStorageConfig())
	_, err := s.Get(context.Background(), map[string]any{})
	assert.ErrorContains(t, err, "invalid arguments")
}

func TestStorageRemove(t *testing.T) {
	s := NewStorage(DefaultStorageConfig())
	ctx := context.Background()

	_, err := s.Set(ctx, map[string]any{"key": "foo", "value": "bar"})
	require.NoError(t, err)
	_, err = s.Remove(ctx, map[string]any{"key": "foo"})
	require.NoError(t, err)

	val, err := s.Get(ctx, map[string]any{"key": "foo"})
	require.NoError(t, err)
	assert.Nil(t, val)
	assert.Equal(t, 0, s.Len())
}

func TestStorageKeysSorted(t *testing.T) {
	s := NewStorage(DefaultStorageConfig())
	ctx := context.Background()

	for _, k := range []string{"c", "a", "b"} {
		_, err := s.Set(ctx, map[string]any{"key": k, "value": 1})
		require.NoError(t, err)
	}

	keys, err := s.Keys(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, keys)
}

func TestStorageStoresText(t *testing.T) {
	s := NewStorage(DefaultStorageConfig())
	ctx := context.Background()

	tests := []struct {
		name  string
		value any
		want  string
	}{
		{"string", "hello", "hello"},
		{"int", 42, "42"},
		{"float", 3.14, "3.14"},
		{"bool", true, "true"},
		{"null", nil, "null"},
		{"slice", []any{1, 2, 3}, "1,2,3"},
		{"map", map[string]any{"nested": "value"}, "[object Object]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Set(ctx, map[string]any{"key": tt.name, "value": tt.value})
			require.NoError(t, err)

			val, err := s.Get(ctx, map[string]any{"key": tt.name})
			require.NoError(t, err)
			assert.Equal(t, tt.want, val)
		})
	}
}

func TestStorageOverwrite(t *testing.T) {
	s := NewStorageWith(WithMaxEntries(1))
	ctx := context.Background()

	_, err := s.Set(ctx, map[string]any{"key": "foo", "value": "original"})
	require.NoError(t, err)
	_, err = s.Set(ctx, map[string]any{"key": "foo", "value": "updated"})
	require.NoError(t, err)

	val, _ := s.Get(ctx, map[string]any{"key": "foo"})
	assert.Equal(t, "updated", val)
}

func TestStorageLimits(t *testing.T) {
	ctx := context.Background()

	s := NewStorageWith(WithMaxKeySize(10))
	_, err := s.Set(ctx, map[string]any{"key": "this-key-is-too-long", "value": "x"})
	assert.ErrorIs(t, err, ErrKeyTooLarge)

	s = NewStorageWith(WithMaxValueSize(10))
	_, err = s.Set(ctx, map[string]any{"key": "k", "value": strings.Repeat("v", 11)})
	assert.ErrorIs(t, err, ErrValueTooLarge)

	s = NewStorageWith(WithMaxEntries(2))
	_, err = s.Set(ctx, map[string]any{"key": "a", "value": "1"})
	require.NoError(t, err)
	_, err = s.Set(ctx, map[string]any{"key": "b", "value": "2"})
	require.NoError(t, err)
	_, err = s.Set(ctx, map[string]any{"key": "c", "value": "3"})
	assert.ErrorIs(t, err, ErrStorageFull)
}

func TestStorageZeroConfigUsesDefaults(t *testing.T) {
	s := NewStorage(StorageConfig{})
	assert.Equal(t, DefaultStorageConfig(), s.cfg)
}

func TestStorageRegister(t *testing.T) {
	r := NewRegistry()
	NewStorage(DefaultStorageConfig()).Register(r)
	assert.Equal(t, []string{"storage_get", "storage_keys", "storage_remove", "storage_set"}, r.List())
}

func TestStorageConcurrent(t *testing.T) {
	s := NewStorage(DefaultStorageConfig())
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			key := string(rune('a' + (n % 26)))
			s.Set(ctx, map[string]any{"key": key, "value": n})
			s.Get(ctx, map[string]any{"key": key})
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 26, s.Len())
}
