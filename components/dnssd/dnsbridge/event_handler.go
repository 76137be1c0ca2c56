package dnsbridge

import (
	"github.com/open-control-systems/dnssd-bridge/components/core"
	"github.com/open-control-systems/dnssd-bridge/components/dnssd/dnscore"
)

// EventHandler observes completed bridge operations and deliveries.
type EventHandler interface {
	// HandlePublish is called after a service instance was accepted for
	// advertisement by the engine.
	HandlePublish(record *dnscore.ServiceRecord)

	// HandleRemove is called after all published services were withdrawn.
	HandleRemove()

	// HandleBrowse is called after a browse batch was delivered to the
	// application callback.
	HandleBrowse(serviceType string, count int)

	// HandleResolve is called after a successful resolve delivery.
	HandleResolve(instance string, addr *dnscore.DiscoveryAddress)
}

// FanoutEventHandler notifies the underlying handlers about bridge events.
type FanoutEventHandler struct {
	handlers []EventHandler
}

// Add adds handler to be notified about bridge events.
func (h *FanoutEventHandler) Add(handler EventHandler) {
	h.handlers = append(h.handlers, handler)
}

// HandlePublish propagates the publish event.
func (h *FanoutEventHandler) HandlePublish(record *dnscore.ServiceRecord) {
	for _, handler := range h.handlers {
		handler.HandlePublish(record)
	}
}

// HandleRemove propagates the remove event.
func (h *FanoutEventHandler) HandleRemove() {
	for _, handler := range h.handlers {
		handler.HandleRemove()
	}
}

// HandleBrowse propagates the browse delivery event.
func (h *FanoutEventHandler) HandleBrowse(serviceType string, count int) {
	for _, handler := range h.handlers {
		handler.HandleBrowse(serviceType, count)
	}
}

// HandleResolve propagates the resolve delivery event.
func (h *FanoutEventHandler) HandleResolve(instance string, addr *dnscore.DiscoveryAddress) {
	for _, handler := range h.handlers {
		handler.HandleResolve(instance, addr)
	}
}

// LogEventHandler logs bridge events.
type LogEventHandler struct{}

// HandlePublish logs the publish event.
func (*LogEventHandler) HandlePublish(record *dnscore.ServiceRecord) {
	core.LogInf.Printf("dnssd-bridge: published: instance=%s type=%s.%s port=%d\n",
		record.Name, record.Type, record.Protocol, record.Port)
}

// HandleRemove logs the remove event.
func (*LogEventHandler) HandleRemove() {
	core.LogInf.Printf("dnssd-bridge: removed all published services\n")
}

// HandleBrowse logs the browse delivery event.
func (*LogEventHandler) HandleBrowse(serviceType string, count int) {
	core.LogInf.Printf("dnssd-bridge: browse delivery: type=%s count=%d\n", serviceType, count)
}

// HandleResolve logs the resolve delivery event.
func (*LogEventHandler) HandleResolve(instance string, addr *dnscore.DiscoveryAddress) {
	core.LogInf.Printf("dnssd-bridge: resolved: instance=%s addr=%s\n", instance, addr.IP)
}
