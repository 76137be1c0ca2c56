package dnscore

import (
	"strings"

	"github.com/open-control-systems/dnssd-bridge/components/status"
)

// subTypeMarker separates a sub-type facet from the base service type,
// e.g. "_L1._sub._matter._tcp".
const subTypeMarker = "._sub."

// ComposeFullType appends the protocol suffix to the base service type.
//
// Examples:
//   - ComposeFullType("_http", ProtocolTCP) - "_http._tcp".
func ComposeFullType(baseType string, proto Protocol) (string, error) {
	if baseType == "" {
		return "", status.StatusInvalidArgument
	}
	if proto != ProtocolTCP && proto != ProtocolUDP {
		return "", status.StatusInvalidArgument
	}

	return strings.Join([]string{baseType, proto.String()}, "."), nil
}

// ComposeFullTypeWithSubTypes composes the full service type and rewrites an
// embedded sub-type facet into the comma-separated form the discovery engine
// expects for browse operations.
//
// Examples:
//   - "_L1._sub._matter" + TCP - "_matter._tcp,_L1".
//   - "_matter" + TCP - "_matter._tcp", unchanged.
func ComposeFullTypeWithSubTypes(baseType string, proto Protocol) (string, error) {
	fullType, err := ComposeFullType(baseType, proto)
	if err != nil {
		return "", err
	}

	pos := strings.Index(fullType, subTypeMarker)
	if pos == -1 {
		return fullType, nil
	}

	return fullType[pos+len(subTypeMarker):] + "," + fullType[:pos], nil
}

// DecomposeFullType splits a composed service type back into the base service
// name and the transport protocol.
//
// The protocol is derived from the last "."-delimited segment, which should
// contain either "._tcp" or "._udp". Anything else fails with
// status.StatusInvalidArgument, ProtocolUnknown is never returned as a valid
// decode result.
func DecomposeFullType(composedType string) (string, Protocol, error) {
	pos := strings.LastIndexByte(composedType, '.')
	if pos == -1 {
		return "", ProtocolUnknown, status.StatusInvalidArgument
	}

	baseName := composedType[:pos]
	if baseName == "" || len(baseName) > TypeAndProtocolMaxLen {
		return "", ProtocolUnknown, status.StatusInvalidArgument
	}

	tail := composedType[pos:]

	switch {
	case strings.Contains(tail, "._tcp"):
		return baseName, ProtocolTCP, nil

	case strings.Contains(tail, "._udp"):
		return baseName, ProtocolUDP, nil

	default:
		return "", ProtocolUnknown, status.StatusInvalidArgument
	}
}
