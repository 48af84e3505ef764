package handler

import (
	"gorm.io/gorm"

	"github.com/pintubaloda/Sitesellr-sub000/internal/dnsops"
	"github.com/pintubaloda/Sitesellr-sub000/internal/inventory"
	"github.com/pintubaloda/Sitesellr-sub000/internal/subscription"
	"github.com/pintubaloda/Sitesellr-sub000/internal/token"
	"github.com/pintubaloda/Sitesellr-sub000/pkg/config"
)

var (
	db           *gorm.DB
	tokens       *token.Service
	capabilities *subscription.CapabilityService
	stock        *inventory.Service
	dns          dnsops.DNSProvider
	certs        dnsops.CertIssuer
	bcryptCost   int
)

// Deps carries the services the handlers depend on.
type Deps struct {
	DB           *gorm.DB
	Tokens       *token.Service
	Capabilities *subscription.CapabilityService
	Stock        *inventory.Service
	DNS          dnsops.DNSProvider
	Certs        dnsops.CertIssuer
}

// Init wires handler dependencies. Must be called once during bootstrap
// before any route is served.
func Init(cfg *config.Config, deps Deps) {
	db = deps.DB
	tokens = deps.Tokens
	capabilities = deps.Capabilities
	stock = deps.Stock
	dns = deps.DNS
	certs = deps.Certs
	if dns == nil {
		dns = dnsops.NoopProvider{}
	}
	if certs == nil {
		certs = dnsops.NoopIssuer{}
	}
	bcryptCost = cfg.Auth.BcryptCost
}
