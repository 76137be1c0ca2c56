package dnsbridge

import (
	"github.com/open-control-systems/dnssd-bridge/components/dnssd/dnscore"
)

// Engine is the external discovery engine the bridge delegates all protocol
// work to. The engine runs on its own goroutines and reports results back
// through the DeliverySink it was given.
//
// Every entry point returns a typed error which the bridge checks right at
// the call site, an engine failure never unwinds through the bridge.
type Engine interface {
	// Publish advertises a service instance. fullType carries the protocol
	// suffix, e.g. "_matter._udp". A nil value in txtValues marks a TXT key
	// without any data.
	Publish(instance, hostName, fullType string, port uint16,
		txtKeys []string, txtValues [][]byte, subTypes []string) error

	// RemoveServices withdraws every service instance published so far.
	RemoveServices() error

	// Browse starts a continuous lookup for the service type. fullType may
	// carry a sub-type facet in the comma form, e.g. "_matter._tcp,_L1".
	// Results are reported via DeliverySink.DeliverBrowse with callbackID as
	// the correlation key.
	Browse(fullType string, family dnscore.AddressFamily,
		iface dnscore.InterfaceID, callbackID uint64) error

	// StopBrowse stops emitting results for the callback id. Best-effort: a
	// batch already in flight may still be delivered.
	StopBrowse(callbackID uint64) error

	// Resolve looks up one service instance. Exactly one
	// DeliverySink.DeliverResolve call is expected per Resolve call.
	Resolve(instance, fullType string, callbackID uint64) error
}

// DeliverySink receives asynchronous results from the discovery engine.
// Implemented by the bridge.
type DeliverySink interface {
	// DeliverBrowse reports one batch of discovered instance names sharing a
	// single composed service type.
	DeliverBrowse(callbackID uint64, instances []string, serviceType string)

	// DeliverResolve reports the outcome of a single resolve operation.
	DeliverResolve(params ResolveDeliveryParams)
}

// ResolveDeliveryParams is the payload of a single inbound resolve delivery.
type ResolveDeliveryParams struct {
	// CallbackID correlates the delivery with the originating Resolve call.
	CallbackID uint64

	// Instance is the resolved service instance name.
	Instance string

	// ServiceType is the composed service type, e.g. "_matter._tcp".
	ServiceType string

	// HostName is the DNS name of the host machine.
	HostName string

	// Address is the textual network address, optionally with a "%zone"
	// suffix. Empty if resolution failed.
	Address string

	// Port is the service port. Zero if resolution failed.
	Port int

	// TextEntries enumerates the TXT attributes, may be nil.
	TextEntries dnscore.TextEntrySource
}
