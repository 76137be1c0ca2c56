package sysnet

import (
	"context"
	"net"
)

// Resolver resolves a DNS hostname to a network address.
type Resolver interface {
	// Resolve hostname.
	Resolve(ctx context.Context, hostname string) (net.Addr, error)
}
