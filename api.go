package cfddns

import (
	"context"
	"net/netip"
)

type Resolver interface {
	Resolve(context.Context) (PublicAddress, error)
}

// ResolverFunc adapts a function to the Resolver interface.
type ResolverFunc func(context.Context) (PublicAddress, error)

func (f ResolverFunc) Resolve(ctx context.Context) (PublicAddress, error) { return f(ctx) }

// Provider is the set of DNS provider calls used by the workflow.
// Failures are folded into the return values: false, an empty slice, or the zero UpdateOutcome.
type Provider interface {
	ValidateToken(ctx context.Context) bool
	ValidateZone(ctx context.Context, zoneID string) bool
	ValidateRecord(ctx context.Context, zoneID, recordID string) bool
	ListRecords(ctx context.Context, zoneID string) []DNSRecord
	UpdateRecord(ctx context.Context, zoneID, recordID string, addr netip.Addr) UpdateOutcome
}

// ProviderFactory returns a Provider that authenticates with token.
type ProviderFactory func(token string) Provider

type SettingsStore interface {
	Load() (Settings, error)
	Save(Settings) error
	Reset() error
}

// UI is a line oriented sink for status messages.
type UI interface {
	Info(msg string)
	Success(msg string)
	Error(msg string)
	Question(msg string)
	Records(records []DNSRecord)
}

// Prompter reads one answer per call.
// Secret answers should not be echoed back to the terminal.
type Prompter interface {
	Prompt(secret bool) (string, error)
}

type discardUI struct{}

func (discardUI) Info(string) {}
func (discardUI) Success(string) {}
func (discardUI) Error(string) {}
func (discardUI) Question(string) {}
func (discardUI) Records([]DNSRecord) {}
