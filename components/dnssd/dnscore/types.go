package dnscore

import (
	"math"
	"net"
)

// Protocol represents the transport protocol part of a DNS-SD service type.
//
// References:
//   - https://www.ietf.org/rfc/rfc6763.txt
//   - https://datatracker.ietf.org/doc/html/rfc6335
type Protocol int

const (
	// ProtocolUnknown is the zero value, it never appears in a valid ServiceRecord.
	ProtocolUnknown Protocol = iota

	// ProtocolTCP is used for application protocols that run over TCP.
	ProtocolTCP

	// ProtocolUDP is used for application protocols that run over UDP.
	ProtocolUDP
)

// String returns string representation of the protocol, without the leading dot.
func (p Protocol) String() string {
	switch p {
	case ProtocolTCP:
		return "_tcp"
	case ProtocolUDP:
		return "_udp"
	default:
		return "<none>"
	}
}

// AddressFamily restricts which IP address family a browse operation is interested in.
type AddressFamily int

const (
	// AddressFamilyAny accepts both IPv4 and IPv6 results.
	AddressFamilyAny AddressFamily = iota

	// AddressFamilyIPv4 accepts IPv4 results only.
	AddressFamilyIPv4

	// AddressFamilyIPv6 accepts IPv6 results only.
	AddressFamilyIPv6
)

// InterfaceID identifies a network interface, InterfaceAny means any interface.
type InterfaceID int

// InterfaceAny matches every network interface.
const InterfaceAny InterfaceID = 0

const (
	// InstanceNameMaxLen is the maximum length of a service instance name,
	// a single DNS label.
	InstanceNameMaxLen = 63

	// TypeAndProtocolMaxLen is the maximum length of a composed service type,
	// e.g. "_matter._tcp", including an optional "._sub." facet.
	TypeAndProtocolMaxLen = 69

	// HostNameMaxLen is the maximum length of a host DNS name.
	HostNameMaxLen = 253

	// MaxCount is the maximum number of TXT entries or sub-types per record.
	MaxCount = math.MaxUint32
)

// TextEntry is a single TXT record attribute of a service instance.
//
// An entry with HasData=false represents a key present without any value,
// which DNS-SD distinguishes from a key with an empty value.
type TextEntry struct {
	Key     string
	Data    []byte
	HasData bool
}

// ServiceRecord describes a single DNS-SD service instance.
type ServiceRecord struct {
	// Name is the service instance name, e.g. "Bonsai GrowLab Firmware".
	Name string

	// HostName is the DNS name of the host machine, e.g. "bonsai-growlab.local".
	HostName string

	// Type is the base service name without the protocol suffix, e.g. "_http".
	Type string

	// Protocol is the transport protocol, never ProtocolUnknown in a record
	// handed to the application layer.
	Protocol Protocol

	// Port is the service port, e.g. 80.
	Port uint16

	// Interface is the network interface the service was discovered on.
	Interface InterfaceID

	// TextEntries are the TXT record attributes of the service.
	TextEntries []TextEntry

	// SubTypes are the DNS-SD sub-type facets of the service.
	SubTypes []string
}

// DiscoveryAddress is a resolved network address together with the interface
// it was discovered on. It's produced by a resolve delivery only, at most one
// per resolve callback.
type DiscoveryAddress struct {
	IP        net.IP
	Interface InterfaceID
}

// FitsCount reports whether a native length fits a 32-bit unsigned count.
func FitsCount(n int) bool {
	return n >= 0 && uint64(n) <= MaxCount
}
