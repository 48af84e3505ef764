package tenancy_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pintubaloda/Sitesellr-sub000/internal/tenancy"
)

func TestNormalizeSubdomain(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{name: "simple", in: "acme", want: "acme"},
		{name: "uppercase folded", in: "Acme", want: "acme"},
		{name: "surrounding space trimmed", in: "  acme  ", want: "acme"},
		{name: "surrounding hyphens trimmed", in: "-acme-", want: "acme"},
		{name: "digits allowed", in: "shop42", want: "shop42"},
		{name: "inner hyphen allowed", in: "acme-store", want: "acme-store"},
		{name: "too short", in: "ab", wantErr: true},
		{name: "empty", in: "", wantErr: true},
		{name: "invalid characters", in: "ac_me!", wantErr: true},
		{name: "inner dot", in: "acme.shop", wantErr: true},
		{name: "reserved www", in: "www", wantErr: true},
		{name: "reserved admin", in: "ADMIN", wantErr: true},
		{name: "reserved api", in: "api", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tenancy.NormalizeSubdomain(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSubdomainFromHost(t *testing.T) {
	assert.Equal(t, "acme", tenancy.SubdomainFromHost("acme.platform.example", "platform.example"))
	assert.Equal(t, "acme", tenancy.SubdomainFromHost("ACME.Platform.Example", "platform.example"))
	assert.Equal(t, "acme", tenancy.SubdomainFromHost("acme.platform.example:8080", "platform.example"))

	// Not under the root domain.
	assert.Empty(t, tenancy.SubdomainFromHost("shop.acme-custom.com", "platform.example"))
	// The bare root domain has no subdomain label.
	assert.Empty(t, tenancy.SubdomainFromHost("platform.example", "platform.example"))
	// Nested labels are not a direct subdomain.
	assert.Empty(t, tenancy.SubdomainFromHost("a.b.platform.example", "platform.example"))
	// No root domain configured.
	assert.Empty(t, tenancy.SubdomainFromHost("acme.platform.example", ""))
}

func TestCanonicalHost(t *testing.T) {
	assert.Equal(t, "shop.acme.com", tenancy.CanonicalHost("Shop.Acme.Com:443"))
	assert.Equal(t, "shop.acme.com", tenancy.CanonicalHost(" shop.acme.com "))
}
