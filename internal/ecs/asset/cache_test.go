package asset

import (
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestCache_Request(t *testing.T) {
	t.Run("TC001: a successful load transitions Loading to Loaded", func(t *testing.T) {
		c := NewCache[string]("text", func(path string) (string, error) {
			return "payload:" + path, nil
		}, zerolog.Nop())

		h := c.Request("a.txt")
		assert.Equal(t, StatusLoading, h.Status())

		waitFor(t, func() bool { return h.Status() == StatusLoaded })
		payload, ok := h.TryGetAsset()
		require.True(t, ok)
		assert.Equal(t, "payload:a.txt", payload)
	})

	t.Run("TC002: a failing load transitions Loading to FailedToLoad", func(t *testing.T) {
		c := NewCache[string]("text", func(path string) (string, error) {
			return "", errors.New("boom")
		}, zerolog.Nop())

		h := c.Request("bad.txt")
		waitFor(t, func() bool { return h.Status() == StatusFailedToLoad })
		_, ok := h.TryGetAsset()
		assert.False(t, ok)
	})

	t.Run("TC003: concurrent requests for the same path share one asset and dedupe the load", func(t *testing.T) {
		loads := 0
		c := NewCache[string]("text", func(path string) (string, error) {
			loads++
			return path, nil
		}, zerolog.Nop())

		h1 := c.Request("shared.txt")
		h2 := c.Request("shared.txt")

		waitFor(t, func() bool { return h1.Status() == StatusLoaded })
		assert.Equal(t, int64(2), h1.asset.RefCount())
		assert.Same(t, h1.asset, h2.asset)
	})
}

func TestCache_UpdateReap(t *testing.T) {
	t.Run("TC004: a released, loaded asset is reaped on Update", func(t *testing.T) {
		c := NewCache[string]("text", func(path string) (string, error) {
			return path, nil
		}, zerolog.Nop())

		h := c.Request("reap.txt")
		waitFor(t, func() bool { return h.Status() == StatusLoaded })
		h.Release()

		c.Update()
		assert.Equal(t, 0, c.Len())
	})

	t.Run("TC005: a still-loading asset at refcount zero is not reaped", func(t *testing.T) {
		block := make(chan struct{})
		c := NewCache[string]("text", func(path string) (string, error) {
			<-block
			return path, nil
		}, zerolog.Nop())

		h := c.Request("slow.txt")
		h.Release()

		c.Update()
		assert.Equal(t, 1, c.Len(), "a Loading asset must survive a sweep even at refcount zero")

		close(block)
		waitFor(t, func() bool { return h.Status() == StatusLoaded })
		c.Update()
		assert.Equal(t, 0, c.Len())
	})

	t.Run("TC006: a referenced asset is never reaped", func(t *testing.T) {
		c := NewCache[string]("text", func(path string) (string, error) {
			return path, nil
		}, zerolog.Nop())

		h := c.Request("kept.txt")
		waitFor(t, func() bool { return h.Status() == StatusLoaded })

		c.Update()
		assert.Equal(t, 1, c.Len())
	})
}

func TestHandle_Clone(t *testing.T) {
	t.Run("TC007: cloning increments the reference count", func(t *testing.T) {
		c := NewCache[string]("text", func(path string) (string, error) {
			return path, nil
		}, zerolog.Nop())

		h := c.Request("clone.txt")
		clone := h.Clone()
		assert.Equal(t, int64(2), h.asset.RefCount())

		h.Release()
		clone.Release()
		assert.Equal(t, int64(0), h.asset.RefCount())
	})
}
