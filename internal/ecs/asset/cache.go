// Package asset is an asynchronous, reference-counted asset cache with no
// analog in the teacher repo — games load texture/model/audio files, but
// this replicated core has no equivalent concept, so the package is
// grounded directly on original_source/Amp/asset/AssetHandle.h and
// AssetManager.h for the ref-counting and status-transition contract,
// implemented in the teacher's mutex-guarded-map idiom
// (storage/component_store.go's nested-map-plus-mutex shape) rather than
// C++'s manual allocator/future machinery, which Go's goroutines and GC
// make unnecessary.
package asset

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Status mirrors AssetHandle.h's AssetStatus: transitions are forward-only,
// Loading -> {Loaded, FailedToLoad}, never backward.
type Status int32

const (
	StatusLoading Status = iota
	StatusLoaded
	StatusFailedToLoad
)

func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusLoaded:
		return "loaded"
	case StatusFailedToLoad:
		return "failed_to_load"
	default:
		return "unknown"
	}
}

// LoadFunc loads the asset at path, returning the payload or an error. It
// runs on a dedicated goroutine per distinct path, the Go equivalent of
// AssetManager's std::async-per-request model.
type LoadFunc[T any] func(path string) (T, error)

// ManagedAsset is the Go form of ManagedAsset<TAsset>: a status, a
// reference count, and the payload once loaded.
type ManagedAsset[T any] struct {
	status   atomic.Int32
	refCount atomic.Int64
	mu       sync.RWMutex
	payload  T
	loadErr  error
}

// Status returns the asset's current load status.
func (a *ManagedAsset[T]) Status() Status {
	return Status(a.status.Load())
}

// RefCount returns the asset's current reference count.
func (a *ManagedAsset[T]) RefCount() int64 {
	return a.refCount.Load()
}

// TryGet returns the payload if loaded, the same guarded-by-status access
// AssetHandle<TAsset>::TryGetAsset performs.
func (a *ManagedAsset[T]) TryGet() (T, bool) {
	if Status(a.status.Load()) != StatusLoaded {
		var zero T
		return zero, false
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.payload, true
}

// Handle is a caller's reference to a cached asset; Release must be called
// exactly once to drop the reference count, mirroring AssetHandle's
// destructor decrementing m_managedAsset->m_header.m_refCount.
type Handle[T any] struct {
	asset *ManagedAsset[T]
	path  string
}

// TryGetAsset returns the payload if it has finished loading.
func (h Handle[T]) TryGetAsset() (T, bool) {
	if h.asset == nil {
		var zero T
		return zero, false
	}
	return h.asset.TryGet()
}

// Path returns the asset's cache key.
func (h Handle[T]) Path() string {
	return h.path
}

// Status returns the underlying asset's current status.
func (h Handle[T]) Status() Status {
	if h.asset == nil {
		return StatusFailedToLoad
	}
	return h.asset.Status()
}

// Release drops this handle's reference. Release is not idempotent:
// calling it twice on the same Handle double-decrements the count, exactly like calling a C++ destructor twice would — callers own
// exactly one Release per Request/Clone.
func (h Handle[T]) Release() {
	if h.asset == nil {
		return
	}
	h.asset.refCount.Add(-1)
}

// Clone returns a new Handle sharing the same asset, incrementing the
// reference count — the Go analog of AssetHandle's copy constructor.
func (h Handle[T]) Clone() Handle[T] {
	if h.asset != nil {
		h.asset.refCount.Add(1)
	}
	return h
}

// Cache is a path-keyed, reference-counted, asynchronously loaded asset
// registry for one asset type T.
type Cache[T any] struct {
	mu      sync.Mutex
	assets  map[string]*ManagedAsset[T]
	load    LoadFunc[T]
	logger  zerolog.Logger
	typeTag string
}

// NewCache creates a cache for one asset type, identified by typeTag for
// logging (the Go stand-in for AssetContainer's file-type key).
func NewCache[T any](typeTag string, load LoadFunc[T], logger zerolog.Logger) *Cache[T] {
	return &Cache[T]{
		assets:  make(map[string]*ManagedAsset[T]),
		load:    load,
		logger:  logger,
		typeTag: typeTag,
	}
}

// Request returns a handle to the asset at path, loading it in the
// background the first time it is requested and deduplicating concurrent
// requests for the same path, matching RequestAsset's "if already
// requested, just return it, else allocate and load asynchronously" rule.
func (c *Cache[T]) Request(path string) Handle[T] {
	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, ok := c.assets[path]; ok {
		existing.refCount.Add(1)
		return Handle[T]{asset: existing, path: path}
	}

	managed := &ManagedAsset[T]{}
	managed.status.Store(int32(StatusLoading))
	managed.refCount.Store(1)
	c.assets[path] = managed

	taskID := uuid.New()
	c.logger.Debug().
		Str("asset_type", c.typeTag).
		Str("path", path).
		Str("task_id", taskID.String()).
		Msg("asset load started")

	go c.loadAsync(path, managed, taskID.String())

	return Handle[T]{asset: managed, path: path}
}

func (c *Cache[T]) loadAsync(path string, managed *ManagedAsset[T], taskID string) {
	payload, err := c.load(path)
	managed.mu.Lock()
	if err == nil {
		managed.payload = payload
	} else {
		managed.loadErr = err
	}
	managed.mu.Unlock()

	if err != nil {
		managed.status.Store(int32(StatusFailedToLoad))
		c.logger.Warn().
			Str("asset_type", c.typeTag).
			Str("path", path).
			Str("task_id", taskID).
			Err(err).
			Msg("asset load failed")
		return
	}
	managed.status.Store(int32(StatusLoaded))
	c.logger.Debug().
		Str("asset_type", c.typeTag).
		Str("path", path).
		Str("task_id", taskID).
		Msg("asset load finished")
}

// Update sweeps assets with a zero reference count, reaping any that have
// reached a terminal status (Loaded or FailedToLoad). Per spec §4.4, an
// asset dropped to refCount 0 while still Loading is left alone until its
// loader goroutine finishes: reaping it immediately would let a second
// Request for the same path race the original loader's write to a freed
// slot, so the sweep only ever removes entries whose background goroutine
// has already observably finished.
func (c *Cache[T]) Update() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for path, managed := range c.assets {
		if managed.refCount.Load() > 0 {
			continue
		}
		switch Status(managed.status.Load()) {
		case StatusLoaded, StatusFailedToLoad:
			delete(c.assets, path)
		case StatusLoading:
			// Still in flight; revisit on a later Update call.
		}
	}
}

// Len reports how many distinct paths the cache currently tracks,
// regardless of status.
func (c *Cache[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.assets)
}
