package dnsbridge

import (
	"net"
	"sync"

	"github.com/open-control-systems/dnssd-bridge/components/core"
	"github.com/open-control-systems/dnssd-bridge/components/dnssd/dnscore"
	"github.com/open-control-systems/dnssd-bridge/components/status"
)

// PublishStore records the service instances the bridge has published, so a
// remove operation can withdraw exactly what was advertised.
type PublishStore interface {
	// Add records a published instance.
	Add(instance string) error

	// Clear forgets all recorded instances.
	Clear() error
}

// Config provides various options for the bridge.
//
// All collaborators are registered once at construction and read-only
// afterwards, there is no concurrent mutation path.
type Config struct {
	// Engine is the external discovery engine, required.
	Engine Engine

	// Store persists published instances, optional.
	Store PublishStore

	// Events observes completed operations and deliveries, optional.
	Events EventHandler
}

// Bridge exposes asynchronous DNS-SD operations to the application and
// delegates the protocol work to the external discovery engine.
//
// Two execution contexts exist: the application goroutines invoking the
// operations, and the engine goroutines invoking the deliveries. The
// collaborators are read-only after construction and the browse registry
// carries its own lock, so the bridge mutex guards only the pending-resolve
// table. No bridge lock is held while an application callback or an outbound
// engine call runs: a callback may re-enter the bridge, including stopping
// its own browse from the final result batch.
type Bridge struct {
	engine Engine
	store  PublishStore
	events EventHandler

	registry *dnscore.BrowseRegistry

	mu            sync.Mutex
	resolves      map[uint64]resolveContext
	nextResolveID uint64
}

type resolveContext struct {
	callback dnscore.ResolveCallback
	userData any
}

// NewBridge is an initialization of Bridge.
func NewBridge(config Config) *Bridge {
	return &Bridge{
		engine:   config.Engine,
		store:    config.Store,
		events:   config.Events,
		registry: dnscore.NewBrowseRegistry(),
		resolves: make(map[uint64]resolveContext),
	}
}

// Init validates the readiness callbacks and reports readiness synchronously.
//
// onReady is invoked inline, before Init returns. There is no asynchrony at
// initialization time, the call exists to reject nil callback references.
func (b *Bridge) Init(onReady, onError dnscore.AsyncCallback, userData any) error {
	if onReady == nil || onError == nil {
		return status.StatusInvalidArgument
	}

	onReady(userData, nil)

	return nil
}

// Shutdown is a no-op by contract, the engine owns all protocol resources.
func (*Bridge) Shutdown() {}

// PublishService advertises a service instance through the engine.
//
// Synchronous accept-or-fail: a nil error means the engine accepted the
// request, not that the advertisement is live.
func (b *Bridge) PublishService(record *dnscore.ServiceRecord) error {
	if record == nil {
		return status.StatusInvalidArgument
	}

	if err := b.publishService(record); err != nil {
		return err
	}

	if b.events != nil {
		b.events.HandlePublish(record)
	}

	return nil
}

func (b *Bridge) publishService(record *dnscore.ServiceRecord) error {
	if b.engine == nil {
		return status.StatusInvalidState
	}

	if len(record.Name) > dnscore.InstanceNameMaxLen ||
		len(record.HostName) > dnscore.HostNameMaxLen {
		return status.StatusInvalidArgument
	}

	if !dnscore.FitsCount(len(record.TextEntries)) || !dnscore.FitsCount(len(record.SubTypes)) {
		return status.StatusInvalidArgument
	}

	fullType, err := dnscore.ComposeFullType(record.Type, record.Protocol)
	if err != nil {
		return err
	}

	keys, values, err := dnscore.EncodeTextEntries(record.TextEntries)
	if err != nil {
		return err
	}

	subTypes := append([]string(nil), record.SubTypes...)

	err = callEngine("publish", func() error {
		return b.engine.Publish(record.Name, record.HostName, fullType,
			record.Port, keys, values, subTypes)
	})
	if err != nil {
		return err
	}

	if b.store != nil {
		if err := b.store.Add(record.Name); err != nil {
			core.LogWrn.Printf("dnssd-bridge: failed to store published instance:"+
				" instance=%s err=%v\n", record.Name, err)
		}
	}

	return nil
}

// RemoveServices withdraws every service instance published so far.
func (b *Bridge) RemoveServices() error {
	if err := b.removeServices(); err != nil {
		return err
	}

	if b.events != nil {
		b.events.HandleRemove()
	}

	return nil
}

func (b *Bridge) removeServices() error {
	if b.engine == nil {
		return status.StatusInvalidState
	}

	if err := callEngine("remove-services", b.engine.RemoveServices); err != nil {
		return err
	}

	if b.store != nil {
		if err := b.store.Clear(); err != nil {
			core.LogWrn.Printf("dnssd-bridge: failed to clear publish store: %v\n", err)
		}
	}

	return nil
}

// BrowseServices starts browsing for the service type.
//
// The returned handle stays alive until StopBrowse. Result batches arrive
// later through DeliverBrowse, on the engine's goroutines.
func (b *Bridge) BrowseServices(
	serviceType string,
	proto dnscore.Protocol,
	family dnscore.AddressFamily,
	iface dnscore.InterfaceID,
	callback dnscore.BrowseCallback,
	userData any,
) (dnscore.BrowseHandle, error) {
	if serviceType == "" || callback == nil {
		return dnscore.BrowseHandleNone, status.StatusInvalidArgument
	}

	if b.engine == nil {
		return dnscore.BrowseHandleNone, status.StatusInvalidState
	}

	fullType, err := dnscore.ComposeFullTypeWithSubTypes(serviceType, proto)
	if err != nil {
		return dnscore.BrowseHandleNone, err
	}

	handle, browseCtx, err := b.registry.Begin(callback, userData)
	if err != nil {
		return dnscore.BrowseHandleNone, err
	}

	callbackID := browseCtx.CallbackID

	err = callEngine("browse", func() error {
		return b.engine.Browse(fullType, family, iface, callbackID)
	})
	if err != nil {
		if endErr := b.registry.End(handle); endErr != nil {
			core.LogErr.Printf("dnssd-bridge: failed to release handle after"+
				" browse failure: %v\n", endErr)
		}

		return dnscore.BrowseHandleNone, err
	}

	return handle, nil
}

// StopBrowse stops the browse operation and releases its handle.
//
// Best-effort: a result batch already in flight may still be delivered after
// the engine acknowledged the stop.
func (b *Bridge) StopBrowse(handle dnscore.BrowseHandle) error {
	if handle == dnscore.BrowseHandleNone {
		return status.StatusInvalidArgument
	}

	if b.engine == nil {
		return status.StatusInvalidState
	}

	browseCtx, err := b.registry.Lookup(handle)
	if err != nil {
		return err
	}

	// Correlate with the engine by callback identity, not by handle.
	callbackID := browseCtx.CallbackID

	engineErr := callEngine("stop-browse", func() error {
		return b.engine.StopBrowse(callbackID)
	})

	// The handle is released even when the engine failed to stop.
	if err := b.registry.End(handle); err != nil {
		return err
	}

	return engineErr
}

// ResolveService resolves a single service instance.
//
// Exactly one DeliverResolve is expected per call, arriving later on the
// engine's goroutines.
func (b *Bridge) ResolveService(
	record *dnscore.ServiceRecord,
	iface dnscore.InterfaceID,
	callback dnscore.ResolveCallback,
	userData any,
) error {
	if record == nil || callback == nil {
		return status.StatusInvalidArgument
	}

	if b.engine == nil {
		return status.StatusInvalidState
	}

	if record.Name == "" || len(record.Name) > dnscore.InstanceNameMaxLen {
		return status.StatusInvalidArgument
	}

	fullType, err := dnscore.ComposeFullType(record.Type, record.Protocol)
	if err != nil {
		return err
	}

	b.mu.Lock()
	b.nextResolveID++
	callbackID := b.nextResolveID
	b.resolves[callbackID] = resolveContext{callback: callback, userData: userData}
	b.mu.Unlock()

	err = callEngine("resolve", func() error {
		return b.engine.Resolve(record.Name, fullType, callbackID)
	})
	if err != nil {
		b.mu.Lock()
		delete(b.resolves, callbackID)
		b.mu.Unlock()

		return err
	}

	return nil
}

// ResolveNoLongerNeeded is a no-op by contract.
func (*Bridge) ResolveNoLongerNeeded(string) {}

// ReconfirmRecord is unimplemented.
func (*Bridge) ReconfirmRecord(string, net.IP, dnscore.InterfaceID) error {
	return status.StatusNotSupported
}

// callEngine invokes fn and maps an engine failure at the boundary. No bridge
// lock is held around the call, the engine may re-enter the bridge, including
// delivering a result, on the same call stack.
func callEngine(op string, fn func() error) error {
	if err := fn(); err != nil {
		return mapEngineError(op, err)
	}

	return nil
}

// mapEngineError logs and clears an engine failure at the boundary, so it
// never propagates as-is into the bridge's own control flow.
func mapEngineError(op string, err error) error {
	core.LogErr.Printf("dnssd-bridge: engine failure: op=%s err=%v\n", op, err)

	return status.StatusOperationFailed
}
