package cfddns

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
)

// InterfaceResolver constructs a resolver that returns an address assigned to one of the given interfaces.
// If no interfaces are provided then all interfaces will be searched.
//
// Loopback, link-local, and unspecified addresses are skipped,
// and a globally routable address is preferred over a private one.
// This suits hosts that hold their public address directly, without NAT in front of them.
func InterfaceResolver(iface ...string) Resolver {
	return interfaceResolver{ifaces: iface}
}

type interfaceResolver struct {
	ifaces []string
}

func (r interfaceResolver) Resolve(ctx context.Context) (PublicAddress, error) {
	var addrs []net.Addr
	var errs []error
	if len(r.ifaces) == 0 {
		a, err := net.InterfaceAddrs()
		if err != nil {
			return PublicAddress{}, fmt.Errorf("error getting addresses for interfaces: %w", err)
		}
		addrs = a
	}
	for _, ifs := range r.ifaces {
		iface, err := net.InterfaceByName(ifs)
		if err != nil {
			errs = append(errs, fmt.Errorf("error getting interface %s by name: %w", ifs, err))
			continue
		}
		a, err := iface.Addrs()
		if err != nil {
			errs = append(errs, fmt.Errorf("error looking up addresses for interface %s: %w", ifs, err))
			continue
		}
		addrs = append(addrs, a...)
	}

	addr, err := pickAddress(addrs)
	if err != nil {
		errs = append(errs, err)
		return PublicAddress{}, errors.Join(errs...)
	}
	return newPublicAddress(addr), nil
}

// pickAddress returns the first global unicast address in addrs,
// preferring public addresses over private ones.
func pickAddress(addrs []net.Addr) (netip.Addr, error) {
	// addr: ip+net:192.168.86.253/24
	// addr: ip+net:fd64:9f44:fc30:0:b951:8b16:2812:a227/64
	// addr: ip+net:fe80::2cc9:801b:3551:9a43/64
	var private netip.Addr
	for _, a := range addrs {
		prefix, err := netip.ParsePrefix(a.String())
		if err != nil {
			continue
		}
		ip := prefix.Addr().Unmap()
		if !ip.IsGlobalUnicast() {
			continue
		}
		if !ip.IsPrivate() {
			return ip, nil
		}
		if !private.IsValid() {
			private = ip
		}
	}
	if private.IsValid() {
		return private, nil
	}
	return netip.Addr{}, errors.New("no usable address found on the local interfaces")
}
