package tenancy

import (
	"fmt"
	"regexp"
	"strings"
)

// reservedSubdomains are labels that must never be claimed by a tenant
// because they route platform infrastructure.
var reservedSubdomains = map[string]struct{}{
	"www":       {},
	"api":       {},
	"admin":     {},
	"app":       {},
	"dashboard": {},
	"mail":      {},
	"smtp":      {},
	"ftp":       {},
	"cdn":       {},
	"assets":    {},
	"static":    {},
	"status":    {},
	"billing":   {},
	"checkout":  {},
	"help":      {},
	"support":   {},
	"docs":      {},
}

var subdomainPattern = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]*[a-z0-9])?$`)

const (
	subdomainMinLen = 3
	subdomainMaxLen = 63
)

// NormalizeSubdomain lowercases and trims a requested subdomain and validates
// it against DNS label rules and the reserved-word list.
func NormalizeSubdomain(raw string) (string, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.Trim(s, "-.")

	if len(s) < subdomainMinLen {
		return "", fmt.Errorf("subdomain %q is too short (minimum %d characters)", s, subdomainMinLen)
	}
	if len(s) > subdomainMaxLen {
		return "", fmt.Errorf("subdomain %q is too long (maximum %d characters)", s, subdomainMaxLen)
	}
	if !subdomainPattern.MatchString(s) {
		return "", fmt.Errorf("subdomain %q contains invalid characters", s)
	}
	if _, ok := reservedSubdomains[s]; ok {
		return "", fmt.Errorf("subdomain %q is reserved", s)
	}
	return s, nil
}

// SubdomainFromHost extracts the leading label of host when host is a direct
// subdomain of rootDomain. Returns "" when host does not belong to the root
// domain. The host may carry a port.
func SubdomainFromHost(host, rootDomain string) string {
	h := strings.ToLower(strings.TrimSpace(host))
	if i := strings.LastIndex(h, ":"); i >= 0 {
		h = h[:i]
	}
	root := strings.ToLower(strings.TrimSpace(rootDomain))
	if root == "" || !strings.HasSuffix(h, "."+root) {
		return ""
	}
	label := strings.TrimSuffix(h, "."+root)
	if label == "" || strings.Contains(label, ".") {
		return ""
	}
	return label
}

// CanonicalHost lowercases a host and strips any port.
func CanonicalHost(host string) string {
	h := strings.ToLower(strings.TrimSpace(host))
	if i := strings.LastIndex(h, ":"); i >= 0 {
		h = h[:i]
	}
	return h
}
