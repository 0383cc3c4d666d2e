package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigStore_SetAndGet(t *testing.T) {
	store := NewConfigStore()

	require.NoError(t, store.Set("merge.resolution", "theirs"))
	require.NoError(t, store.Set("merge.resolution", "base"))

	val, ok := store.Get("merge.resolution")
	assert.True(t, ok)
	assert.Equal(t, "base", val)

	_, ok = store.Get("missing")
	assert.False(t, ok)
}

func TestConfigStore_TypedGetters(t *testing.T) {
	store := NewConfigStore()
	_ = store.Set("s", "sqlite")
	_ = store.Set("i", 5)
	_ = store.Set("i64", int64(7))
	_ = store.Set("f", 2.5)
	_ = store.Set("b", true)

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"string", store.GetString("s"), "sqlite"},
		{"string wrong type", store.GetString("i"), ""},
		{"int", store.GetInt("i"), 5},
		{"int from int64", store.GetInt("i64"), 7},
		{"int from float", store.GetInt("f"), 2},
		{"int wrong type", store.GetInt("s"), 0},
		{"float", store.GetFloat("f"), 2.5},
		{"float from int", store.GetFloat("i"), 5.0},
		{"float from int64", store.GetFloat("i64"), 7.0},
		{"float wrong type", store.GetFloat("b"), 0.0},
		{"float missing", store.GetFloat("missing"), 0.0},
		{"bool", store.GetBool("b"), true},
		{"bool wrong type", store.GetBool("s"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.got)
		})
	}
}

func TestConfigStore_SaveLoadPath(t *testing.T) {
	store := NewConfigStore()
	_ = store.Set("k", "v")

	assert.NoError(t, store.Save())
	assert.NoError(t, store.Load())
	assert.Equal(t, "v", store.GetString("k"))
	assert.Equal(t, ":memory:", store.Path())
}

func TestConfigStore_Watch_ReturnsOnCancel(t *testing.T) {
	store := NewConfigStore()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- store.Watch(ctx, func() { t.Error("unexpected reload") })
	}()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}

func TestConfigStore_ConcurrentAccess(t *testing.T) {
	store := NewConfigStore()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			_ = store.Set("save.max_attempts", n)
		}(i)
		go func() {
			defer wg.Done()
			_ = store.GetInt("save.max_attempts")
		}()
	}
	wg.Wait()

	_, ok := store.Get("save.max_attempts")
	assert.True(t, ok)
}
