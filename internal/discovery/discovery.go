// Package discovery resolves GOV.UK service names to base URLs.
//
// Lookups read the environment through viper, so a config file bound to the
// same viper instance can supply the same keys.
package discovery

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/fivetwenty-io/gdsapi/internal/constants"
)

// Finder resolves service URLs and credentials.
type Finder struct {
	v *viper.Viper
}

// New returns a Finder over the process environment.
func New() *Finder {
	v := viper.New()
	v.AutomaticEnv()

	return NewFromViper(v)
}

// NewFromViper returns a Finder reading from v. v should have AutomaticEnv
// enabled if environment overrides are wanted.
func NewFromViper(v *viper.Viper) *Finder {
	v.SetDefault(constants.EnvAppDomain, constants.DefaultAppDomain)
	v.SetDefault(constants.EnvAppScheme, constants.DefaultScheme)

	return &Finder{v: v}
}

// Find returns the internal base URL of service. PLEK_SERVICE_<NAME>_URI
// wins over the app domain.
func (f *Finder) Find(service string) (string, error) {
	if service == "" {
		return "", constants.ErrServiceNameRequired
	}

	if override := f.v.GetString(overrideKey(service)); override != "" {
		return strings.TrimRight(override, "/"), nil
	}

	return f.build(service, f.v.GetString(constants.EnvAppDomain))
}

// FindExternal returns the public base URL of service. It falls back to
// Find when no external domain is set.
func (f *Finder) FindExternal(service string) (string, error) {
	domain := f.v.GetString(constants.EnvAppDomainExternal)
	if domain == "" || service == "" {
		return f.Find(service)
	}

	return f.build(service, domain)
}

// WebsiteRoot returns the public site origin, or "" when unset.
func (f *Finder) WebsiteRoot() string {
	return strings.TrimRight(f.v.GetString(constants.EnvWebsiteRoot), "/")
}

// BearerToken returns <SERVICE>_BEARER_TOKEN, or "".
func (f *Finder) BearerToken(service string) string {
	return f.v.GetString(envName(service) + constants.EnvBearerTokenSuffix)
}

func (f *Finder) build(service, domain string) (string, error) {
	if domain == "" {
		return "", fmt.Errorf("%w: %s", constants.ErrNoEndpointForService, service)
	}

	return fmt.Sprintf("%s://%s.%s", f.v.GetString(constants.EnvAppScheme), service, domain), nil
}

func overrideKey(service string) string {
	return constants.EnvServicePrefix + envName(service) + constants.EnvServiceSuffix
}

// envName turns "content-store" into "CONTENT_STORE".
func envName(service string) string {
	return strings.ToUpper(strings.ReplaceAll(service, "-", "_"))
}
