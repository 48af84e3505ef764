// Package dnsops holds the narrow boundary to the DNS and certificate
// providers. Provisioning failures are soft: they are logged and surfaced to
// the initiating action but never roll back tenant or store state already
// committed.
package dnsops

import (
	"context"
)

// DNSProvider manages the DNS records backing store subdomains and custom
// domains.
type DNSProvider interface {
	// EnsureSubdomain creates or updates the record routing
	// <subdomain>.<root domain> at the platform edge.
	EnsureSubdomain(ctx context.Context, subdomain string) error
	// EnsureCustomDomain creates or updates the record for a merchant's own
	// hostname.
	EnsureCustomDomain(ctx context.Context, host string) error
	// RemoveSubdomain deletes the record for a subdomain.
	RemoveSubdomain(ctx context.Context, subdomain string) error
}

// CertIssuer provisions TLS certificates for custom domains.
type CertIssuer interface {
	Issue(ctx context.Context, host string) error
}

// NoopProvider satisfies DNSProvider without side effects, used when no DNS
// provider is configured.
type NoopProvider struct{}

func (NoopProvider) EnsureSubdomain(context.Context, string) error    { return nil }
func (NoopProvider) EnsureCustomDomain(context.Context, string) error { return nil }
func (NoopProvider) RemoveSubdomain(context.Context, string) error    { return nil }

// NoopIssuer satisfies CertIssuer without side effects.
type NoopIssuer struct{}

func (NoopIssuer) Issue(context.Context, string) error { return nil }
