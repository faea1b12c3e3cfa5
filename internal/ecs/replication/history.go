package replication

import "sync"

// frameHistoryEntry is one ring slot: a stored snapshot plus whether it is
// currently trustworthy. A slot a forward jump in StoreFrame skips over is
// reset to the zero entry (valid=false, no snapshot), matching §4.8's "gaps
// introduced by shifting are marked invalid".
type frameHistoryEntry struct {
	valid    bool
	snapshot *Snapshot
}

// FrameHistory is the bounded circular buffer of snapshots both the
// encoder (as the delta baseline source) and the decoder (§4.8) keep,
// indexed by monotonic frame_index. Grounded on
// original_source/Conductor/src/network/ECSReceiver.cpp's StoreFrame.
//
// original_source's StoreFrame computes its ring-advance gap as
// `newFrameIndex - m_frameIndex` *after* already having assigned
// `m_frameIndex = newFrameIndex` on the preceding line — as transcribed,
// that makes the gap always zero, which would never invalidate the slots
// a forward jump skips over. That is inconsistent with the surrounding
// comments and with §4.8's explicit "gaps introduced by shifting are
// marked invalid", so StoreFrame here computes the gap against the *old*
// frame index before advancing, which is what a ring buffer must do to
// keep stale entries from being read as valid.
type FrameHistory struct {
	mu         sync.Mutex
	entries    []frameHistoryEntry
	frameIndex uint64
	hasAny     bool
}

// NewFrameHistory creates a ring of the given size (spec's "N", typically
// 64).
func NewFrameHistory(size int) *FrameHistory {
	if size < 1 {
		size = 1
	}
	return &FrameHistory{entries: make([]frameHistoryEntry, size)}
}

// Size returns the ring's capacity.
func (h *FrameHistory) Size() int {
	return len(h.entries)
}

// OldestFrameIndex reports the oldest frame index still in the window,
// given the current latest frame. Used by the receive-side bounds check in
// §4.8 ("if it is older than frame_index - (N-1) discard").
func (h *FrameHistory) OldestFrameIndex() (uint64, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.hasAny {
		return 0, false
	}
	window := uint64(len(h.entries) - 1)
	if h.frameIndex < window {
		return 0, true
	}
	return h.frameIndex - window, true
}

// LatestFrameIndex returns the most recently stored frame index.
func (h *FrameHistory) LatestFrameIndex() (uint64, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.frameIndex, h.hasAny
}

// Get returns the snapshot stored at idx, if that slot is both in the
// current window and marked valid.
func (h *FrameHistory) Get(idx uint64) (*Snapshot, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.getLocked(idx)
}

func (h *FrameHistory) getLocked(idx uint64) (*Snapshot, bool) {
	if !h.hasAny {
		return nil, false
	}
	size := uint64(len(h.entries))
	if idx > h.frameIndex || h.frameIndex-idx >= size {
		return nil, false
	}
	e := h.entries[idx%size]
	if !e.valid || e.snapshot == nil || e.snapshot.FrameIndex != idx {
		return nil, false
	}
	return e.snapshot, true
}

// IsValid reports whether idx names a currently-valid stored frame.
func (h *FrameHistory) IsValid(idx uint64) bool {
	_, ok := h.Get(idx)
	return ok
}

// StoreFrame records snap (whose FrameIndex must equal idx) at position idx
// in the ring. Three cases, per §4.8/§9's "Frame history ring" note:
//
//   - Empty history: snap becomes the first entry; every other slot starts
//     invalid.
//   - idx within the current window: overwrite that exact slot and mark it
//     valid, without moving the ring's head — this is how an
//     out-of-order-arrival delta fills a hole. An idx older than the
//     window is dropped, since its slot belongs to a newer frame.
//   - idx ahead of the current head: advance the head to idx, invalidating
//     every slot the jump skipped over (bounded by the ring's size, since a
//     jump larger than the ring invalidates the whole thing regardless).
func (h *FrameHistory) StoreFrame(idx uint64, snap *Snapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()

	size := uint64(len(h.entries))

	if !h.hasAny {
		h.entries[idx%size] = frameHistoryEntry{valid: true, snapshot: snap}
		h.frameIndex = idx
		h.hasAny = true
		return
	}

	if idx <= h.frameIndex {
		if h.frameIndex-idx >= size {
			return
		}
		h.entries[idx%size] = frameHistoryEntry{valid: true, snapshot: snap}
		return
	}

	gap := idx - h.frameIndex
	steps := gap - 1
	if steps > size {
		steps = size
	}
	for i := uint64(1); i <= steps; i++ {
		slot := (h.frameIndex + i) % size
		h.entries[slot] = frameHistoryEntry{}
	}
	h.entries[idx%size] = frameHistoryEntry{valid: true, snapshot: snap}
	h.frameIndex = idx
}
