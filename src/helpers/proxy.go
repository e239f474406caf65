package helpers

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// -----------------------------------------------------------------------------
// Outbound proxy for snapshot pulls. The dashboard often runs on an operator
// machine that only reaches the bot host through a bastion proxy.
// -----------------------------------------------------------------------------

// ValidateProxy checks if a proxy string is roughly valid.
func ValidateProxy(proxyStr string) bool {
	u, err := url.Parse(FormatProxy(proxyStr))
	if err != nil || u.Host == "" {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https" || u.Scheme == "socks5"
}

// -----------------------------------------------------------------------------

// FormatProxy ensures the proxy has a scheme.
func FormatProxy(proxyStr string) string {
	if !strings.Contains(proxyStr, "://") {
		return "http://" + proxyStr
	}
	return proxyStr
}

// -----------------------------------------------------------------------------

// ProxyFunc returns the proxy selector for an http.Transport. An empty
// proxyStr falls back to the HTTP_PROXY/HTTPS_PROXY environment.
func ProxyFunc(proxyStr string) (func(*http.Request) (*url.URL, error), error) {
	if proxyStr == "" {
		return http.ProxyFromEnvironment, nil
	}
	if !ValidateProxy(proxyStr) {
		return nil, fmt.Errorf("invalid proxy %q", proxyStr)
	}
	u, err := url.Parse(FormatProxy(proxyStr))
	if err != nil {
		return nil, err
	}
	return http.ProxyURL(u), nil
}
