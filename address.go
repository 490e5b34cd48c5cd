package cfddns

import "net/netip"

// Family tags a PublicAddress with its IP version.
type Family int

const (
	FamilyUnknown Family = iota
	FamilyIPv4
	FamilyIPv6
)

func (f Family) String() string {
	switch f {
	case FamilyIPv4:
		return "ipv4"
	case FamilyIPv6:
		return "ipv6"
	}
	return "unknown"
}

// PublicAddress is the result of a single resolution.
// It is never cached; call Resolve again for a fresh value.
type PublicAddress struct {
	Addr   netip.Addr
	Family Family
}

func newPublicAddress(addr netip.Addr) PublicAddress {
	addr = addr.Unmap()
	pa := PublicAddress{Addr: addr}
	switch {
	case addr.Is4():
		pa.Family = FamilyIPv4
	case addr.Is6():
		pa.Family = FamilyIPv6
	}
	return pa
}

// IsValid reports whether the resolution produced an address.
func (pa PublicAddress) IsValid() bool {
	return pa.Addr.IsValid()
}

func (pa PublicAddress) String() string {
	if !pa.IsValid() {
		return ""
	}
	return pa.Addr.String()
}

// recordType returns the DNS record type that holds addr, or "" for an invalid address.
func recordType(addr netip.Addr) string {
	if addr.Is4() || addr.Is4In6() {
		return RecordTypeA
	}
	if addr.Is6() {
		return RecordTypeAAAA
	}
	return ""
}
