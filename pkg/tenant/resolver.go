package tenant

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
)

// Resolver extracts a tenant identifier from HTTP requests.
type Resolver interface {
	// Resolve returns the tenant identifier, or an empty string when the
	// request does not carry one.
	Resolve(r *http.Request) (string, error)
}

// HostResolver uses the request host (without port) as the identifier,
// matching tenants by their domain URL.
type HostResolver struct{}

// NewHostResolver creates a new host resolver.
func NewHostResolver() *HostResolver {
	return &HostResolver{}
}

// Resolve returns the lower-cased host name.
func (HostResolver) Resolve(req *http.Request) (string, error) {
	return strings.ToLower(stripPort(req.Host)), nil
}

// SubdomainResolver extracts the first label of the host, e.g. "testone"
// from "testone.testproject.localhost".
type SubdomainResolver struct {
	// Suffix is the base domain (e.g. ".testproject.localhost").
	// When set, hosts that do not end with it resolve to no tenant.
	Suffix string
}

// NewSubdomainResolver creates a new subdomain resolver.
func NewSubdomainResolver(suffix string) *SubdomainResolver {
	return &SubdomainResolver{Suffix: suffix}
}

// Resolve extracts the subdomain, skipping a leading "www".
func (r *SubdomainResolver) Resolve(req *http.Request) (string, error) {
	host := strings.ToLower(stripPort(req.Host))

	if r.Suffix != "" {
		suffix := strings.ToLower(r.Suffix)
		if !strings.HasSuffix(host, suffix) || len(host) <= len(suffix) {
			return "", nil
		}
		host = strings.TrimSuffix(host, suffix)
	} else if strings.Count(host, ".") < 2 {
		// subdomain.domain.tld is the minimum
		return "", nil
	}

	parts := strings.Split(host, ".")
	if parts[0] == "www" {
		parts = parts[1:]
	}
	if len(parts) == 0 || parts[0] == "" {
		return "", nil
	}
	return parts[0], nil
}

// HeaderResolver extracts the tenant identifier from an HTTP header.
type HeaderResolver struct {
	HeaderName string
}

// NewHeaderResolver creates a new header resolver. Defaults to "X-Tenant-ID".
func NewHeaderResolver(headerName string) *HeaderResolver {
	if headerName == "" {
		headerName = "X-Tenant-ID"
	}
	return &HeaderResolver{HeaderName: headerName}
}

// Resolve reads the configured header.
func (r *HeaderResolver) Resolve(req *http.Request) (string, error) {
	return strings.TrimSpace(req.Header.Get(r.HeaderName)), nil
}

// CompositeResolver tries multiple resolvers in order until one succeeds.
type CompositeResolver struct {
	Resolvers []Resolver
}

// NewCompositeResolver creates a new composite resolver.
func NewCompositeResolver(resolvers ...Resolver) *CompositeResolver {
	return &CompositeResolver{Resolvers: resolvers}
}

// Resolve returns the first non-empty identifier.
func (c *CompositeResolver) Resolve(r *http.Request) (string, error) {
	var errs []error

	for _, resolver := range c.Resolvers {
		id, err := resolver.Resolve(r)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if id != "" {
			return id, nil
		}
	}

	if len(errs) > 0 {
		return "", fmt.Errorf("composite resolver errors: %w", errors.Join(errs...))
	}

	return "", nil
}

// ResolverFunc is an adapter to allow the use of ordinary functions as Resolvers.
type ResolverFunc func(r *http.Request) (string, error)

// Resolve calls the function.
func (f ResolverFunc) Resolve(r *http.Request) (string, error) {
	return f(r)
}

func stripPort(host string) string {
	if h, _, err := net.SplitHostPort(host); err == nil {
		return h
	}
	return host
}
