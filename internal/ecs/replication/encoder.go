package replication

import (
	"sync"

	"github.com/rs/zerolog"

	"ecsruntime/internal/ecs/entitymgr"
	"ecsruntime/internal/ecs/reflect"
)

// ClientID names a connected client for per-client last-seen-frame
// bookkeeping. The core treats it as opaque; a host binds it to whatever
// identifies a network peer.
type ClientID uint64

type clientState struct {
	hasFrame bool
	frame    uint64
}

// Encoder produces canonical per-tick snapshots and, per connected client,
// either a full or delta transmission depending on what that client is
// known to already hold. Grounded on
// original_source/Conductor/src/network/ECSTransmitter.cpp's
// ECSTransmitter: AddSerializedFrame/TransmitFrame/TransmitFullFrame and
// the NotifyOfClient*/NotifyOfFrameAcknowledgement bookkeeping.
type Encoder struct {
	mu        sync.Mutex
	reflector *reflect.Reflector
	history   *FrameHistory
	lastSeen  map[ClientID]*clientState
	nextFrame uint64
	logger    zerolog.Logger
}

// NewEncoder creates an encoder with a frame history of the given size.
func NewEncoder(r *reflect.Reflector, historySize int, logger zerolog.Logger) *Encoder {
	return &Encoder{
		reflector: r,
		history:   NewFrameHistory(historySize),
		lastSeen:  make(map[ClientID]*clientState),
		logger:    logger,
	}
}

// BuildAndStoreFrame materializes a snapshot of m's networked state,
// assigns it the next monotonic frame index, and pushes it into the
// encoder's frame history as a future delta baseline. Returns the assigned
// frame index.
func (enc *Encoder) BuildAndStoreFrame(m *entitymgr.Manager) uint64 {
	enc.mu.Lock()
	idx := enc.nextFrame
	enc.nextFrame++
	enc.mu.Unlock()

	snap := BuildSnapshot(m, enc.reflector, idx)
	enc.history.StoreFrame(idx, snap)
	return idx
}

// NotifyOfClientConnected registers a client with no acknowledged frame,
// the sentinel state that forces the next TransmitFrame for it to fall back
// to a full transmission.
func (enc *Encoder) NotifyOfClientConnected(client ClientID) {
	enc.mu.Lock()
	defer enc.mu.Unlock()
	enc.lastSeen[client] = &clientState{}
}

// NotifyOfClientDisconnected removes a client's last-seen-frame state
// entirely — per the Open Question decision, that state is reset on
// disconnect rather than retained across a reconnect.
func (enc *Encoder) NotifyOfClientDisconnected(client ClientID) {
	enc.mu.Lock()
	defer enc.mu.Unlock()
	delete(enc.lastSeen, client)
}

// NotifyOfFrameAcknowledgement monotonically advances the frame a client is
// known to hold; an acknowledgement older than what is already recorded is
// ignored (acknowledgements can arrive out of network order).
func (enc *Encoder) NotifyOfFrameAcknowledgement(client ClientID, frame uint64) {
	enc.mu.Lock()
	defer enc.mu.Unlock()
	cs, ok := enc.lastSeen[client]
	if !ok {
		cs = &clientState{}
		enc.lastSeen[client] = cs
	}
	if !cs.hasFrame || frame > cs.frame {
		cs.hasFrame = true
		cs.frame = frame
	}
}

// TransmitFrame produces the wire bytes for the latest stored frame
// addressed to client: a delta against the client's last-acknowledged
// frame if one exists and is still within the frame history window,
// otherwise a full transmission.
func (enc *Encoder) TransmitFrame(client ClientID) ([]byte, bool) {
	latestIdx, ok := enc.history.LatestFrameIndex()
	if !ok {
		return nil, false
	}
	latest, ok := enc.history.Get(latestIdx)
	if !ok {
		return nil, false
	}

	enc.mu.Lock()
	cs := enc.lastSeen[client]
	enc.mu.Unlock()

	if cs != nil && cs.hasFrame {
		if baseline, ok := enc.history.Get(cs.frame); ok {
			enc.logger.Debug().Uint64("frame", latestIdx).Uint64("baseline", cs.frame).Msg("transmitting delta frame")
			return EncodeDelta(latest, baseline, enc.reflector), true
		}
	}

	enc.logger.Debug().Uint64("frame", latestIdx).Msg("transmitting full frame")
	return EncodeFull(latest, enc.reflector), true
}
