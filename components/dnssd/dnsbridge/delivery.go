package dnsbridge

import (
	"math"
	"net"
	"strconv"
	"strings"

	"github.com/open-control-systems/dnssd-bridge/components/core"
	"github.com/open-control-systems/dnssd-bridge/components/dnssd/dnscore"
	"github.com/open-control-systems/dnssd-bridge/components/status"
)

// DeliverResolve handles the inbound result of a single resolve operation.
//
// The pending resolve is consumed first, so the original callback is invoked
// exactly once, with either a fully populated record or an error. Validation
// failures are routed through that same callback, never raised to the engine.
// All TXT buffers are released right after the callback returns, regardless
// of the callback outcome.
func (b *Bridge) DeliverResolve(params ResolveDeliveryParams) {
	b.mu.Lock()
	resolveCtx, ok := b.resolves[params.CallbackID]
	if ok {
		delete(b.resolves, params.CallbackID)
	}
	b.mu.Unlock()

	if !ok {
		core.LogWrn.Printf("dnssd-bridge: resolve delivery without pending resolve:"+
			" callback=%d instance=%s\n", params.CallbackID, params.Instance)

		return
	}

	// The callback runs with no bridge lock held, it may re-enter the
	// bridge with a follow-up operation.
	dispatch := func(err error, service *dnscore.ServiceRecord, addr *dnscore.DiscoveryAddress) {
		resolveCtx.callback(resolveCtx.userData, service, addr, err)
	}

	if params.Address == "" || params.Port == 0 {
		dispatch(status.StatusUnknownResource, nil, nil)
		return
	}

	if len(params.Instance) > dnscore.InstanceNameMaxLen ||
		len(params.ServiceType) > dnscore.TypeAndProtocolMaxLen {
		dispatch(status.StatusInvalidArgument, nil, nil)
		return
	}

	if params.Port < 0 || params.Port > math.MaxUint16 {
		dispatch(status.StatusInvalidArgument, nil, nil)
		return
	}

	ip, iface, err := parseDeliveryAddress(params.Address)
	if err != nil {
		dispatch(status.StatusInvalidArgument, nil, nil)
		return
	}

	baseName, proto, err := dnscore.DecomposeFullType(params.ServiceType)
	if err != nil {
		dispatch(status.StatusInvalidArgument, nil, nil)
		return
	}

	textEntries, err := dnscore.DecodeTextEntries(params.TextEntries)
	if err != nil {
		dispatch(status.StatusInvalidArgument, nil, nil)
		return
	}

	service := &dnscore.ServiceRecord{
		Name:        params.Instance,
		HostName:    params.HostName,
		Type:        baseName,
		Protocol:    proto,
		Port:        uint16(params.Port),
		Interface:   iface,
		TextEntries: textEntries.Entries(),
	}

	addr := &dnscore.DiscoveryAddress{IP: ip, Interface: iface}

	dispatch(nil, service, addr)

	textEntries.Release()

	if b.events != nil {
		b.events.HandleResolve(params.Instance, addr)
	}
}

// DeliverBrowse handles one inbound batch of browse results.
//
// The whole batch is rejected with a single error callback if any entry fails
// validation, a partial batch is never delivered. Every batch is final: the
// engine reports complete, non-incremental snapshots.
func (b *Bridge) DeliverBrowse(callbackID uint64, instances []string, serviceType string) {
	browseCtx, err := b.registry.LookupCallback(callbackID)
	if err != nil {
		core.LogWrn.Printf("dnssd-bridge: browse delivery for stopped browse dropped:"+
			" callback=%d type=%s\n", callbackID, serviceType)

		return
	}

	// The context is a copy, it stays valid even when the browse is
	// stopped while the batch is in flight. The callback runs with no
	// bridge lock held, it may stop its own browse from the final batch.
	dispatch := func(err error, services []dnscore.ServiceRecord) {
		browseCtx.Callback(browseCtx.UserData, services, true, err)
	}

	baseName, proto, err := dnscore.DecomposeFullType(serviceType)
	if err != nil {
		dispatch(status.StatusInvalidArgument, nil)
		return
	}

	services := make([]dnscore.ServiceRecord, 0, len(instances))

	for _, instance := range instances {
		if len(instance) > dnscore.InstanceNameMaxLen {
			dispatch(status.StatusInvalidArgument, nil)
			return
		}

		services = append(services, dnscore.ServiceRecord{
			Name:     instance,
			Type:     baseName,
			Protocol: proto,
		})
	}

	dispatch(nil, services)

	// The batch is owned by the bridge, invalidate it after the callback.
	for i := range services {
		services[i] = dnscore.ServiceRecord{}
	}

	if b.events != nil {
		b.events.HandleBrowse(serviceType, len(instances))
	}
}

// parseDeliveryAddress parses the textual address of a resolve delivery into
// a network address and the interface it belongs to.
//
// The interface is carried as an optional "%zone" suffix, either an interface
// index or an interface name.
func parseDeliveryAddress(text string) (net.IP, dnscore.InterfaceID, error) {
	host, zone, _ := strings.Cut(text, "%")

	ip := net.ParseIP(host)
	if ip == nil {
		return nil, dnscore.InterfaceAny, status.StatusInvalidArgument
	}

	if zone == "" {
		return ip, dnscore.InterfaceAny, nil
	}

	if index, err := strconv.Atoi(zone); err == nil {
		if index < 0 {
			return nil, dnscore.InterfaceAny, status.StatusInvalidArgument
		}

		return ip, dnscore.InterfaceID(index), nil
	}

	iface, err := net.InterfaceByName(zone)
	if err != nil {
		return nil, dnscore.InterfaceAny, status.StatusInvalidArgument
	}

	return ip, dnscore.InterfaceID(iface.Index), nil
}
