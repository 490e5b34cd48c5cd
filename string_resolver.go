package cfddns

import (
	"context"
	"fmt"
	"net/netip"
)

// FromString constructs a resolver that parses an IP from the string addr.
// The address is parsed on every call to Resolve, so a bad value surfaces as a resolution failure.
func FromString(addr string) Resolver {
	return stringResolver(addr)
}

type stringResolver string

func (s stringResolver) Resolve(context.Context) (PublicAddress, error) {
	addr, err := netip.ParseAddr(string(s))
	if err != nil {
		return PublicAddress{}, fmt.Errorf("unable to parse IP: %w", err)
	}
	return newPublicAddress(addr), nil
}
