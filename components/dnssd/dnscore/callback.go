package dnscore

// AsyncCallback reports the outcome of an asynchronous bridge operation.
type AsyncCallback func(userData any, err error)

// BrowseCallback receives one batch of browse results.
//
// The services slice is owned by the bridge and valid only for the duration
// of the call. final reports whether more batches should be expected for the
// same browse operation.
type BrowseCallback func(userData any, services []ServiceRecord, final bool, err error)

// ResolveCallback receives the result of a single resolve operation.
//
// On failure service and addr are nil and err carries the reason. The service
// record and its TXT entries are owned by the bridge and valid only for the
// duration of the call.
type ResolveCallback func(userData any, service *ServiceRecord, addr *DiscoveryAddress, err error)
