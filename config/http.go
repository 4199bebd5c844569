package config

import (
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// HTTPConfig contains HTTP server configuration.
type HTTPConfig struct {
	// Addr is the address to bind the HTTP server to.
	Addr string `env:"HTTP_ADDR" envDefault:":8080"`

	// BaseURL is the base URL of the application (e.g., "https://app.example.com").
	BaseURL string `env:"APP_BASE_URL" envDefault:"http://localhost:8080"`

	// CookieDomain is the domain for session cookies.
	// Leave empty to use the request domain.
	CookieDomain string `env:"APP_COOKIE_DOMAIN" envDefault:""`

	// LoginRate is the sustained login attempts per second per client address.
	LoginRate float64 `env:"HTTP_LOGIN_RATE" envDefault:"1"`
	// LoginBurst is the number of login attempts allowed at once.
	LoginBurst int `env:"HTTP_LOGIN_BURST" envDefault:"5"`
}

// Sanitize applies guardrails to HTTP configuration values.
func (h *HTTPConfig) Sanitize() {
	h.CookieDomain = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(h.CookieDomain)), ".")
	h.BaseURL = strings.TrimRight(strings.TrimSpace(h.BaseURL), "/")
	if h.LoginRate <= 0 {
		h.LoginRate = 1
	}
	if h.LoginBurst < 1 {
		h.LoginBurst = 1
	}
}

// SecureCookies reports whether cookies should carry the Secure flag.
func (h *HTTPConfig) SecureCookies() bool {
	return strings.HasPrefix(h.BaseURL, "https://")
}

// Validate rejects a base URL that does not parse and a cookie domain that is
// a public suffix, since browsers would share the session with unrelated sites.
func (h *HTTPConfig) Validate() error {
	u, err := url.Parse(h.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid APP_BASE_URL %q", h.BaseURL)
	}
	if h.CookieDomain == "" {
		return nil
	}
	if suffix, _ := publicsuffix.PublicSuffix(h.CookieDomain); suffix == h.CookieDomain {
		return fmt.Errorf("APP_COOKIE_DOMAIN %q is a public suffix", h.CookieDomain)
	}
	if host := u.Hostname(); host != h.CookieDomain && !strings.HasSuffix(host, "."+h.CookieDomain) {
		return fmt.Errorf("APP_COOKIE_DOMAIN %q does not cover %q", h.CookieDomain, host)
	}
	return nil
}
