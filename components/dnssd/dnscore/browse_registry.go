package dnscore

import (
	"sync"

	"github.com/open-control-systems/dnssd-bridge/components/status"
)

// BrowseHandle uniquely names one outstanding browse operation.
//
// The zero value is reserved and invalid as input. A handle is created by
// BrowseRegistry.Begin and destroyed by exactly one matching End call, it's
// never reused after destruction.
type BrowseHandle uint64

// BrowseHandleNone is the reserved empty handle.
const BrowseHandleNone BrowseHandle = 0

// BrowseContext is the per-browse bookkeeping owned by a BrowseHandle.
type BrowseContext struct {
	// CallbackID correlates the browse with the discovery engine. Stop
	// requests and deliveries reference it, never the handle itself.
	CallbackID uint64

	// Callback receives result batches for this browse.
	Callback BrowseCallback

	// UserData is passed through to the callback unchanged.
	UserData any
}

// maxBrowseSlots bounds the number of simultaneously alive browse operations.
const maxBrowseSlots = 1 << 16

// BrowseRegistry allocates opaque, generation-checked handles for in-flight
// browse operations.
//
// A handle encodes a slot index and a generation counter. Ending a handle
// bumps the slot generation, so a stale or doubly-ended handle fails the
// generation check instead of touching reused storage.
//
// Remarks:
//   - Can be used from multiple goroutines.
type BrowseRegistry struct {
	mu         sync.Mutex
	slots      []*browseSlot
	free       []int
	byCallback map[uint64]int
	nextID     uint64
}

type browseSlot struct {
	gen   uint32
	alive bool
	ctx   BrowseContext
}

// NewBrowseRegistry is an initialization of BrowseRegistry.
func NewBrowseRegistry() *BrowseRegistry {
	return &BrowseRegistry{
		byCallback: make(map[uint64]int),
	}
}

// Begin allocates a new handle wrapping the callback reference.
//
// It fails with status.StatusNoMemory if the registry is exhausted, a reused
// or empty handle is never returned.
func (r *BrowseRegistry) Begin(callback BrowseCallback, userData any) (BrowseHandle, BrowseContext, error) {
	if callback == nil {
		return BrowseHandleNone, BrowseContext{}, status.StatusInvalidArgument
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	idx, err := r.allocSlot()
	if err != nil {
		return BrowseHandleNone, BrowseContext{}, err
	}

	r.nextID++

	slot := r.slots[idx]
	slot.alive = true
	slot.ctx = BrowseContext{
		CallbackID: r.nextID,
		Callback:   callback,
		UserData:   userData,
	}

	r.byCallback[slot.ctx.CallbackID] = idx

	return makeHandle(idx, slot.gen), slot.ctx, nil
}

// Lookup returns a copy of the context owned by the handle. A copy, not a
// reference: slot storage is zeroed by End, a returned context stays valid
// even when the handle is concurrently ended.
//
// It fails with status.StatusInvalidArgument if the handle is empty, stale
// or was already ended.
func (r *BrowseRegistry) Lookup(handle BrowseHandle) (BrowseContext, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx, err := r.checkHandle(handle)
	if err != nil {
		return BrowseContext{}, err
	}

	return r.slots[idx].ctx, nil
}

// LookupCallback returns a copy of the context registered for the callback
// id, used by inbound deliveries which carry the callback id instead of the
// handle. The copy stays valid even when the browse is concurrently ended.
//
// It fails with status.StatusNoData if no such browse is alive.
func (r *BrowseRegistry) LookupCallback(callbackID uint64) (BrowseContext, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx, ok := r.byCallback[callbackID]
	if !ok {
		return BrowseContext{}, status.StatusNoData
	}

	return r.slots[idx].ctx, nil
}

// End releases the handle's storage.
//
// At most one End per Begin: a second End on an already-released handle fails
// the generation check and is reported with status.StatusInvalidArgument.
func (r *BrowseRegistry) End(handle BrowseHandle) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx, err := r.checkHandle(handle)
	if err != nil {
		return err
	}

	slot := r.slots[idx]

	delete(r.byCallback, slot.ctx.CallbackID)

	slot.gen++
	slot.alive = false
	slot.ctx = BrowseContext{}

	r.free = append(r.free, idx)

	return nil
}

// Len returns the number of currently alive browse operations.
func (r *BrowseRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.byCallback)
}

func (r *BrowseRegistry) allocSlot() (int, error) {
	if n := len(r.free); n > 0 {
		idx := r.free[n-1]
		r.free = r.free[:n-1]

		return idx, nil
	}

	if len(r.slots) >= maxBrowseSlots {
		return 0, status.StatusNoMemory
	}

	r.slots = append(r.slots, &browseSlot{})

	return len(r.slots) - 1, nil
}

func (r *BrowseRegistry) checkHandle(handle BrowseHandle) (int, error) {
	if handle == BrowseHandleNone {
		return 0, status.StatusInvalidArgument
	}

	idx, gen := splitHandle(handle)
	if idx >= len(r.slots) {
		return 0, status.StatusInvalidArgument
	}

	slot := r.slots[idx]
	if !slot.alive || slot.gen != gen {
		return 0, status.StatusInvalidArgument
	}

	return idx, nil
}

// makeHandle packs a slot index and generation into an opaque non-zero token.
// The index is stored off-by-one so the reserved empty handle never collides
// with slot 0 generation 0.
func makeHandle(idx int, gen uint32) BrowseHandle {
	return BrowseHandle(uint64(idx+1)<<32 | uint64(gen))
}

func splitHandle(handle BrowseHandle) (int, uint32) {
	return int(uint64(handle)>>32) - 1, uint32(uint64(handle) & 0xffffffff)
}
