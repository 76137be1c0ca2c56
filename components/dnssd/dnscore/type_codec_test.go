package dnscore

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/open-control-systems/dnssd-bridge/components/status"
)

func TestComposeFullType(t *testing.T) {
	fullType, err := ComposeFullType("_http", ProtocolTCP)
	require.Nil(t, err)
	require.Equal(t, "_http._tcp", fullType)

	fullType, err = ComposeFullType("_matter", ProtocolUDP)
	require.Nil(t, err)
	require.Equal(t, "_matter._udp", fullType)
}

func TestComposeFullTypeInvalidInput(t *testing.T) {
	_, err := ComposeFullType("", ProtocolTCP)
	require.Equal(t, status.StatusInvalidArgument, err)

	_, err = ComposeFullType("_http", ProtocolUnknown)
	require.Equal(t, status.StatusInvalidArgument, err)
}

func TestComposeDecomposeFullTypeRoundTrip(t *testing.T) {
	for _, baseType := range []string{"_http", "_matter", "_hap", "_printer"} {
		for _, proto := range []Protocol{ProtocolTCP, ProtocolUDP} {
			fullType, err := ComposeFullType(baseType, proto)
			require.Nil(t, err)

			gotBase, gotProto, err := DecomposeFullType(fullType)
			require.Nil(t, err)
			require.Equal(t, baseType, gotBase)
			require.Equal(t, proto, gotProto)
		}
	}
}

func TestComposeFullTypeWithSubTypes(t *testing.T) {
	fullType, err := ComposeFullTypeWithSubTypes("_L1._sub._matter", ProtocolTCP)
	require.Nil(t, err)
	require.Equal(t, "_matter._tcp,_L1", fullType)

	fullType, err = ComposeFullTypeWithSubTypes("_V123._sub._matterc", ProtocolUDP)
	require.Nil(t, err)
	require.Equal(t, "_matterc._udp,_V123", fullType)
}

func TestComposeFullTypeWithSubTypesNoMarker(t *testing.T) {
	withSubTypes, err := ComposeFullTypeWithSubTypes("_matter", ProtocolTCP)
	require.Nil(t, err)

	plain, err := ComposeFullType("_matter", ProtocolTCP)
	require.Nil(t, err)

	require.Equal(t, plain, withSubTypes)
}

func TestDecomposeFullTypeInvalidInput(t *testing.T) {
	tests := []struct {
		name         string
		composedType string
	}{
		{name: "no dot", composedType: "_matter"},
		{name: "empty", composedType: ""},
		{name: "no protocol", composedType: "_matter._foo"},
		{name: "empty base name", composedType: "._tcp"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, proto, err := DecomposeFullType(test.composedType)
			require.Equal(t, status.StatusInvalidArgument, err)
			require.Equal(t, ProtocolUnknown, proto)
		})
	}
}

func TestDecomposeFullTypeOversizeBaseName(t *testing.T) {
	baseName := ""
	for len(baseName) <= TypeAndProtocolMaxLen {
		baseName += "x"
	}

	_, _, err := DecomposeFullType(baseName + "._tcp")
	require.Equal(t, status.StatusInvalidArgument, err)
}
