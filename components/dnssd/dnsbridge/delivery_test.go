package dnsbridge

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/open-control-systems/dnssd-bridge/components/dnssd/dnscore"
	"github.com/open-control-systems/dnssd-bridge/components/status"
)

type testTextSource struct {
	keys []string
	data map[string][]byte
}

func (s *testTextSource) Keys() []string {
	return s.keys
}

func (s *testTextSource) Data(key string) ([]byte, bool) {
	data, ok := s.data[key]

	return data, ok
}

type resolveResult struct {
	service *dnscore.ServiceRecord
	addr    *dnscore.DiscoveryAddress
	err     error
}

// startResolve issues a resolve and returns the engine-visible callback id
// together with the recorded callback invocations.
func startResolve(t *testing.T, bridge *Bridge, engine *fakeEngine) (uint64, *[]resolveResult) {
	t.Helper()

	results := &[]resolveResult{}

	callback := func(_ any, service *dnscore.ServiceRecord,
		addr *dnscore.DiscoveryAddress, err error) {
		*results = append(*results, resolveResult{service: service, addr: addr, err: err})
	}

	record := &dnscore.ServiceRecord{
		Name:     "thermostat",
		Type:     "_matter",
		Protocol: dnscore.ProtocolTCP,
	}

	require.Nil(t, bridge.ResolveService(record, dnscore.InterfaceAny, callback, nil))
	require.NotEmpty(t, engine.resolveCalls)

	return engine.resolveCalls[len(engine.resolveCalls)-1].callbackID, results
}

func TestBridgeResolveDelivery(t *testing.T) {
	engine := &fakeEngine{}
	bridge := NewBridge(Config{Engine: engine})

	callbackID, results := startResolve(t, bridge, engine)

	bridge.DeliverResolve(ResolveDeliveryParams{
		CallbackID:  callbackID,
		Instance:    "thermostat",
		ServiceType: "_matter._tcp",
		HostName:    "thermostat.local",
		Address:     "192.168.4.2",
		Port:        5540,
		TextEntries: &testTextSource{
			keys: []string{"D", "CM"},
			data: map[string][]byte{"D": {0x00, 0x01}},
		},
	})

	require.Len(t, *results, 1)
	result := (*results)[0]

	require.Nil(t, result.err)
	require.NotNil(t, result.service)
	require.NotNil(t, result.addr)

	require.Equal(t, "thermostat", result.service.Name)
	require.Equal(t, "thermostat.local", result.service.HostName)
	require.Equal(t, "_matter", result.service.Type)
	require.Equal(t, dnscore.ProtocolTCP, result.service.Protocol)
	require.Equal(t, uint16(5540), result.service.Port)

	require.Equal(t, "192.168.4.2", result.addr.IP.String())
}

func TestBridgeResolveDeliveryTextEntriesReleased(t *testing.T) {
	engine := &fakeEngine{}
	bridge := NewBridge(Config{Engine: engine})

	var retained []dnscore.TextEntry

	callback := func(_ any, service *dnscore.ServiceRecord,
		_ *dnscore.DiscoveryAddress, err error) {
		require.Nil(t, err)

		// Entries are fully populated during the callback.
		require.Len(t, service.TextEntries, 1)
		require.Equal(t, "D", service.TextEntries[0].Key)
		require.Equal(t, []byte{0x00, 0x01}, service.TextEntries[0].Data)

		retained = service.TextEntries
	}

	record := &dnscore.ServiceRecord{
		Name:     "thermostat",
		Type:     "_matter",
		Protocol: dnscore.ProtocolTCP,
	}
	require.Nil(t, bridge.ResolveService(record, dnscore.InterfaceAny, callback, nil))

	bridge.DeliverResolve(ResolveDeliveryParams{
		CallbackID:  engine.resolveCalls[0].callbackID,
		Instance:    "thermostat",
		ServiceType: "_matter._tcp",
		Address:     "192.168.4.2",
		Port:        5540,
		TextEntries: &testTextSource{
			keys: []string{"D"},
			data: map[string][]byte{"D": {0x00, 0x01}},
		},
	})

	// The entries are owned by the bridge for the callback duration only,
	// anything retained past the return is wiped.
	require.Len(t, retained, 1)
	require.Equal(t, dnscore.TextEntry{}, retained[0])
}

func TestBridgeResolveDeliveryUnknownResource(t *testing.T) {
	engine := &fakeEngine{}
	bridge := NewBridge(Config{Engine: engine})

	tests := []struct {
		name   string
		params ResolveDeliveryParams
	}{
		{
			name: "missing address",
			params: ResolveDeliveryParams{
				Instance:    "thermostat",
				ServiceType: "_matter._tcp",
				Port:        5540,
			},
		},
		{
			name: "zero port",
			params: ResolveDeliveryParams{
				Instance:    "thermostat",
				ServiceType: "_matter._tcp",
				Address:     "::1",
			},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			callbackID, results := startResolve(t, bridge, engine)

			params := test.params
			params.CallbackID = callbackID

			bridge.DeliverResolve(params)

			require.Len(t, *results, 1)
			result := (*results)[0]

			require.Equal(t, status.StatusUnknownResource, result.err)
			require.Nil(t, result.service)
			require.Nil(t, result.addr)
		})
	}
}

func TestBridgeResolveDeliveryInvalidInput(t *testing.T) {
	engine := &fakeEngine{}
	bridge := NewBridge(Config{Engine: engine})

	oversizeName := ""
	for len(oversizeName) <= dnscore.InstanceNameMaxLen {
		oversizeName += "x"
	}

	tests := []struct {
		name   string
		params ResolveDeliveryParams
	}{
		{
			name: "oversize instance name",
			params: ResolveDeliveryParams{
				Instance:    oversizeName,
				ServiceType: "_matter._tcp",
				Address:     "192.168.4.2",
				Port:        5540,
			},
		},
		{
			name: "bad service type",
			params: ResolveDeliveryParams{
				Instance:    "thermostat",
				ServiceType: "_matter._foo",
				Address:     "192.168.4.2",
				Port:        5540,
			},
		},
		{
			name: "bad address",
			params: ResolveDeliveryParams{
				Instance:    "thermostat",
				ServiceType: "_matter._tcp",
				Address:     "not-an-address",
				Port:        5540,
			},
		},
		{
			name: "port overflow",
			params: ResolveDeliveryParams{
				Instance:    "thermostat",
				ServiceType: "_matter._tcp",
				Address:     "192.168.4.2",
				Port:        1 << 17,
			},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			callbackID, results := startResolve(t, bridge, engine)

			params := test.params
			params.CallbackID = callbackID

			bridge.DeliverResolve(params)

			require.Len(t, *results, 1)
			result := (*results)[0]

			require.Equal(t, status.StatusInvalidArgument, result.err)
			require.Nil(t, result.service)
			require.Nil(t, result.addr)
		})
	}
}

func TestBridgeResolveDeliveryZonedAddress(t *testing.T) {
	engine := &fakeEngine{}
	bridge := NewBridge(Config{Engine: engine})

	callbackID, results := startResolve(t, bridge, engine)

	bridge.DeliverResolve(ResolveDeliveryParams{
		CallbackID:  callbackID,
		Instance:    "thermostat",
		ServiceType: "_matter._tcp",
		Address:     "fe80::1%7",
		Port:        5540,
	})

	require.Len(t, *results, 1)
	result := (*results)[0]

	require.Nil(t, result.err)
	require.Equal(t, "fe80::1", result.addr.IP.String())
	require.Equal(t, dnscore.InterfaceID(7), result.addr.Interface)
	require.Equal(t, dnscore.InterfaceID(7), result.service.Interface)
}

func TestBridgeResolveDeliveryExactlyOnce(t *testing.T) {
	engine := &fakeEngine{}
	bridge := NewBridge(Config{Engine: engine})

	callbackID, results := startResolve(t, bridge, engine)

	params := ResolveDeliveryParams{
		CallbackID:  callbackID,
		Instance:    "thermostat",
		ServiceType: "_matter._tcp",
		Address:     "192.168.4.2",
		Port:        5540,
	}

	bridge.DeliverResolve(params)
	bridge.DeliverResolve(params)

	require.Len(t, *results, 1)
}

func TestBridgeResolveDeliveryNoPendingResolve(t *testing.T) {
	bridge := NewBridge(Config{Engine: &fakeEngine{}})

	// A delivery that correlates with nothing is dropped.
	bridge.DeliverResolve(ResolveDeliveryParams{
		CallbackID:  42,
		Instance:    "thermostat",
		ServiceType: "_matter._tcp",
		Address:     "192.168.4.2",
		Port:        5540,
	})
}

func TestBridgeBrowseDeliveryBatchReject(t *testing.T) {
	engine := &fakeEngine{}
	bridge := NewBridge(Config{Engine: engine})

	oversizeName := ""
	for len(oversizeName) <= dnscore.InstanceNameMaxLen {
		oversizeName += "x"
	}

	var (
		callCount int
		gotErr    error
		gotCount  int
	)

	callback := func(_ any, services []dnscore.ServiceRecord, final bool, err error) {
		require.True(t, final)

		callCount++
		gotErr = err
		gotCount = len(services)
	}

	_, err := bridge.BrowseServices("_matter", dnscore.ProtocolTCP,
		dnscore.AddressFamilyAny, dnscore.InterfaceAny, callback, nil)
	require.Nil(t, err)

	// One bad entry rejects the whole batch, a partial batch is never
	// delivered.
	bridge.DeliverBrowse(engine.browseCalls[0].callbackID,
		[]string{"devA", oversizeName, "devB"}, "_matter._tcp")

	require.Equal(t, 1, callCount)
	require.Equal(t, status.StatusInvalidArgument, gotErr)
	require.Equal(t, 0, gotCount)
}

func TestBridgeBrowseDeliveryBadServiceType(t *testing.T) {
	engine := &fakeEngine{}
	bridge := NewBridge(Config{Engine: engine})

	var gotErr error

	callback := func(_ any, _ []dnscore.ServiceRecord, _ bool, err error) {
		gotErr = err
	}

	_, err := bridge.BrowseServices("_matter", dnscore.ProtocolTCP,
		dnscore.AddressFamilyAny, dnscore.InterfaceAny, callback, nil)
	require.Nil(t, err)

	bridge.DeliverBrowse(engine.browseCalls[0].callbackID,
		[]string{"devA"}, "_matter._foo")

	require.Equal(t, status.StatusInvalidArgument, gotErr)
}
