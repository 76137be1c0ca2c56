package dnszeroconf

import (
	"context"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/grandcat/zeroconf"

	"github.com/open-control-systems/dnssd-bridge/components/core"
	"github.com/open-control-systems/dnssd-bridge/components/dnssd/dnsbridge"
	"github.com/open-control-systems/dnssd-bridge/components/dnssd/dnscore"
	"github.com/open-control-systems/dnssd-bridge/components/system/sysnet"
	"github.com/open-control-systems/dnssd-bridge/components/system/syssched"
)

// EngineParams represents various options for the zeroconf discovery engine.
type EngineParams struct {
	// Domain is a mDNS domain.
	//
	// Examples:
	//  - Local domain: "local.".
	Domain string

	// LookupTimeout bounds a single browse or resolve lookup window.
	LookupTimeout time.Duration

	// BrowseInterval is the period between browse lookup windows.
	BrowseInterval time.Duration
}

// Engine is a discovery engine built on the zeroconf library.
//
// Each browse operation runs its own periodic lookup task, every lookup
// window is coalesced into a single result batch for the bridge.
//
// References:
//   - https://github.com/grandcat/zeroconf
type Engine struct {
	ctx      context.Context
	params   EngineParams
	fallback sysnet.Resolver

	mu       sync.Mutex
	sink     dnsbridge.DeliverySink
	resolver *zeroconf.Resolver
	servers  map[string]*zeroconf.Server
	browses  map[uint64]*browseOp
}

type browseOp struct {
	cancel context.CancelFunc
	runner *syssched.AsyncTaskRunner
}

// NewEngine is an initialization of Engine.
//
// Parameters:
//   - ctx - parent context.
//   - fallback - resolver for lookup entries without any address, optional.
//   - params - various zeroconf configuration options.
func NewEngine(ctx context.Context, fallback sysnet.Resolver, params EngineParams) *Engine {
	if params.Domain == "" {
		params.Domain = "local."
	}
	if params.LookupTimeout == 0 {
		params.LookupTimeout = time.Second * 5
	}
	if params.BrowseInterval == 0 {
		params.BrowseInterval = time.Second * 10
	}

	return &Engine{
		ctx:      ctx,
		params:   params,
		fallback: fallback,
		servers:  make(map[string]*zeroconf.Server),
		browses:  make(map[uint64]*browseOp),
	}
}

// SetSink registers the delivery sink, should be called once before any
// browse or resolve operation.
func (e *Engine) SetSink(sink dnsbridge.DeliverySink) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.sink = sink
}

// Publish advertises a service instance on the local network.
//
// Remarks:
//   - The service is advertised from the local host, hostName is informational.
//   - Sub-types aren't supported by the zeroconf library and are ignored.
func (e *Engine) Publish(instance, hostName, fullType string, port uint16,
	txtKeys []string, txtValues [][]byte, subTypes []string) error {
	if len(subTypes) > 0 {
		core.LogWrn.Printf("zeroconf-engine: sub-types ignored: instance=%s count=%d\n",
			instance, len(subTypes))
	}

	records := make([]string, 0, len(txtKeys))
	for i, key := range txtKeys {
		if i < len(txtValues) && txtValues[i] != nil {
			records = append(records, key+"="+string(txtValues[i]))
		} else {
			records = append(records, key)
		}
	}

	server, err := zeroconf.Register(instance, fullType, e.params.Domain,
		int(port), records, nil)
	if err != nil {
		return fmt.Errorf("zeroconf-engine: failed to register: instance=%s: %w",
			instance, err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if prev, ok := e.servers[instance]; ok {
		prev.Shutdown()
	}

	e.servers[instance] = server

	return nil
}

// RemoveServices withdraws every published service instance.
func (e *Engine) RemoveServices() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	for instance, server := range e.servers {
		server.Shutdown()
		delete(e.servers, instance)
	}

	return nil
}

// Browse starts a periodic lookup for the service type.
func (e *Engine) Browse(fullType string, family dnscore.AddressFamily,
	_ dnscore.InterfaceID, callbackID uint64) error {
	resolver, err := e.getResolver()
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.sink == nil {
		return fmt.Errorf("zeroconf-engine: delivery sink not registered")
	}

	if _, ok := e.browses[callbackID]; ok {
		return fmt.Errorf("zeroconf-engine: browse already started: callback=%d",
			callbackID)
	}

	service, deliverType := splitBrowseType(fullType)

	opCtx, cancel := context.WithCancel(e.ctx)

	task := &browseTask{
		ctx:         opCtx,
		resolver:    resolver,
		sink:        e.sink,
		service:     service,
		deliverType: deliverType,
		domain:      e.params.Domain,
		timeout:     e.params.LookupTimeout,
		family:      family,
		callbackID:  callbackID,
	}

	runner := syssched.NewAsyncTaskRunner(opCtx, task, task, e.params.BrowseInterval)
	runner.Start()

	e.browses[callbackID] = &browseOp{cancel: cancel, runner: runner}

	return nil
}

// StopBrowse stops emitting results for the callback id.
//
// Best-effort: a lookup window already delivering is not suppressed.
func (e *Engine) StopBrowse(callbackID uint64) error {
	e.mu.Lock()
	op, ok := e.browses[callbackID]
	if ok {
		delete(e.browses, callbackID)
	}
	e.mu.Unlock()

	if !ok {
		return nil
	}

	op.cancel()

	return op.runner.Close()
}

// Resolve looks up a single service instance, exactly one delivery is
// reported per call.
func (e *Engine) Resolve(instance, fullType string, callbackID uint64) error {
	e.mu.Lock()
	sink := e.sink
	e.mu.Unlock()

	if sink == nil {
		return fmt.Errorf("zeroconf-engine: delivery sink not registered")
	}

	resolver, err := e.getResolver()
	if err != nil {
		return err
	}

	go e.runResolve(resolver, sink, instance, fullType, callbackID)

	return nil
}

// Close stops all browse operations and withdraws all published services.
func (e *Engine) Close() error {
	e.mu.Lock()

	browses := e.browses
	e.browses = make(map[uint64]*browseOp)

	e.mu.Unlock()

	for _, op := range browses {
		op.cancel()

		if err := op.runner.Close(); err != nil {
			core.LogErr.Printf("zeroconf-engine: failed to close browse runner: %v\n", err)
		}
	}

	return e.RemoveServices()
}

func (e *Engine) getResolver() (*zeroconf.Resolver, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.resolver != nil {
		return e.resolver, nil
	}

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("zeroconf-engine: failed to create resolver: %w", err)
	}

	e.resolver = resolver

	return resolver, nil
}

func (e *Engine) runResolve(resolver *zeroconf.Resolver,
	sink dnsbridge.DeliverySink, instance, fullType string, callbackID uint64) {
	params := dnsbridge.ResolveDeliveryParams{
		CallbackID:  callbackID,
		Instance:    instance,
		ServiceType: fullType,
	}

	ctx, cancel := context.WithTimeout(e.ctx, e.params.LookupTimeout)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry)

	if err := resolver.Lookup(ctx, instance, fullType, e.params.Domain, entries); err != nil {
		core.LogErr.Printf("zeroconf-engine: lookup failed: instance=%s type=%s: %v\n",
			instance, fullType, err)

		sink.DeliverResolve(params)

		return
	}

	for {
		select {
		case entry := <-entries:
			if entry == nil {
				continue
			}

			e.fillResolveParams(ctx, &params, entry)

			sink.DeliverResolve(params)

			return

		case <-ctx.Done():
			// No entry in time, report an empty delivery.
			sink.DeliverResolve(params)

			return
		}
	}
}

func (e *Engine) fillResolveParams(ctx context.Context,
	params *dnsbridge.ResolveDeliveryParams, entry *zeroconf.ServiceEntry) {
	params.HostName = strings.TrimSuffix(entry.HostName, ".")
	params.Port = entry.Port
	params.TextEntries = newTextSource(entry.Text)

	switch {
	case len(entry.AddrIPv4) > 0:
		params.Address = entry.AddrIPv4[0].String()

	case len(entry.AddrIPv6) > 0:
		params.Address = entry.AddrIPv6[0].String()

	case e.fallback != nil:
		addr, err := e.fallback.Resolve(ctx, params.HostName)
		if err != nil {
			core.LogWrn.Printf("zeroconf-engine: fallback resolve failed:"+
				" host=%s: %v\n", params.HostName, err)

			return
		}

		if ipAddr, ok := addr.(*net.IPAddr); ok {
			params.Address = ipAddr.IP.String()
		} else {
			params.Address = addr.String()
		}
	}
}

// splitBrowseType converts the comma form the bridge composes for sub-type
// browsing, e.g. "_matter._tcp,_L1", into the query form the zeroconf library
// expects, "_L1._sub._matter._tcp". The delivery type stays the plain
// composed type shared by the whole batch.
func splitBrowseType(fullType string) (string, string) {
	base, sub, found := strings.Cut(fullType, ",")
	if !found {
		return fullType, fullType
	}

	return sub + "._sub." + base, base
}

type browseTask struct {
	ctx         context.Context
	resolver    *zeroconf.Resolver
	sink        dnsbridge.DeliverySink
	service     string
	deliverType string
	domain      string
	timeout     time.Duration
	family      dnscore.AddressFamily
	callbackID  uint64
}

// Run executes a single browse lookup window.
func (t *browseTask) Run() error {
	ctx, cancel := context.WithTimeout(t.ctx, t.timeout)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry)

	if err := t.resolver.Browse(ctx, t.service, t.domain, entries); err != nil {
		return err
	}

	var instances []string
	seen := make(map[string]struct{})

	for {
		select {
		case entry := <-entries:
			if entry == nil || !t.matchFamily(entry) {
				continue
			}

			if _, ok := seen[entry.Instance]; ok {
				continue
			}

			seen[entry.Instance] = struct{}{}
			instances = append(instances, entry.Instance)

		case <-ctx.Done():
			if len(instances) > 0 {
				t.sink.DeliverBrowse(t.callbackID, instances, t.deliverType)
			}

			return nil
		}
	}
}

// HandleError handles browsing errors.
func (t *browseTask) HandleError(err error) {
	core.LogErr.Printf("zeroconf-engine: browsing failed: service=%s domain=%s: %v\n",
		t.service, t.domain, err)
}

func (t *browseTask) matchFamily(entry *zeroconf.ServiceEntry) bool {
	switch t.family {
	case dnscore.AddressFamilyIPv4:
		return len(entry.AddrIPv4) > 0

	case dnscore.AddressFamilyIPv6:
		return len(entry.AddrIPv6) > 0

	default:
		return true
	}
}
