package replication

import (
	"github.com/rs/zerolog"

	"ecsruntime/internal/ecs/codec"
	"ecsruntime/internal/ecs/reflect"
)

// Decoder reconstructs snapshots from received wire transmissions and
// maintains a short frame history so later deltas can be decoded against
// a frame it already holds. Grounded on
// original_source/Conductor/src/network/ECSReceiver.cpp's
// TryReceiveFrameTransmission/TryReceiveFullFrameTransmission/
// TryReceiveDeltaFrameTransmission/StoreFrame. Applying a reconstructed
// snapshot to a live entity manager is a separate step (ApplySnapshot) —
// the decoder itself only owns the frame history.
type Decoder struct {
	reflector *reflect.Reflector
	history   *FrameHistory
	logger    zerolog.Logger
}

// NewDecoder creates a decoder with a frame history of the given size.
func NewDecoder(r *reflect.Reflector, historySize int, logger zerolog.Logger) *Decoder {
	return &Decoder{
		reflector: r,
		history:   NewFrameHistory(historySize),
		logger:    logger,
	}
}

// History exposes the decoder's frame history, e.g. for a caller that wants
// to re-apply an older stored frame.
func (d *Decoder) History() *FrameHistory {
	return d.history
}

// TryReceiveFrameTransmission decodes one wire transmission, stores the
// resulting snapshot in the frame history, and returns it only if it became
// the newest frame in history — matching §4.8's "returns a reference to the
// newly-stored snapshot only when the received frame is the newest in
// history; earlier arrivals are stored silently." A malformed transmission
// is logged at warning and leaves the frame history untouched, per §7.
func (d *Decoder) TryReceiveFrameTransmission(data []byte) (*Snapshot, bool) {
	marker, _, ok := codec.ReadUint32(data)
	if !ok {
		d.logger.Warn().Msg("malformed transmission: short frame header")
		return nil, false
	}

	switch marker {
	case markerFull:
		return d.tryReceiveFull(data)
	case markerDelta:
		return d.tryReceiveDelta(data)
	default:
		d.logger.Warn().Uint32("marker", marker).Msg("malformed transmission: unknown frame marker")
		return nil, false
	}
}

func (d *Decoder) tryReceiveFull(data []byte) (*Snapshot, bool) {
	snap, ok := DecodeFull(data, d.reflector)
	if !ok {
		d.logger.Warn().Msg("malformed transmission: full frame decode failed")
		return nil, false
	}

	if oldest, hasAny := d.history.OldestFrameIndex(); hasAny && snap.FrameIndex < oldest {
		d.logger.Warn().Uint64("frame", snap.FrameIndex).Uint64("oldest", oldest).Msg("discarding full frame older than history window")
		return nil, false
	}

	d.history.StoreFrame(snap.FrameIndex, snap)
	return d.latestIfNewest(snap.FrameIndex)
}

func (d *Decoder) tryReceiveDelta(data []byte) (*Snapshot, bool) {
	_, body, ok := codec.ReadUint32(data)
	if !ok {
		d.logger.Warn().Msg("malformed transmission: short delta header")
		return nil, false
	}
	_, body, ok = codec.ReadUint64(body)
	if !ok {
		d.logger.Warn().Msg("malformed transmission: short delta header")
		return nil, false
	}
	prevFrameIndex, _, ok := codec.ReadUint64(body)
	if !ok {
		d.logger.Warn().Msg("malformed transmission: short delta header")
		return nil, false
	}

	baseline, ok := d.history.Get(prevFrameIndex)
	if !ok {
		d.logger.Warn().Uint64("previous_frame", prevFrameIndex).Msg("malformed transmission: previous frame not valid in history")
		return nil, false
	}

	snap, ok := DecodeDelta(data, baseline, d.reflector)
	if !ok {
		d.logger.Warn().Msg("malformed transmission: delta frame decode failed")
		return nil, false
	}

	d.history.StoreFrame(snap.FrameIndex, snap)
	return d.latestIfNewest(snap.FrameIndex)
}

func (d *Decoder) latestIfNewest(idx uint64) (*Snapshot, bool) {
	latestIdx, hasAny := d.history.LatestFrameIndex()
	if !hasAny || idx != latestIdx {
		return nil, false
	}
	return d.history.Get(idx)
}
