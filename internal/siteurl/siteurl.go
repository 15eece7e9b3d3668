// internal/siteurl/siteurl.go
package siteurl

import (
	"net/url"
	"strings"
)

// DefaultHome is where a session lands when it has no saved location.
const DefaultHome = "https://steamcommunity.com/"

// LoginHome is the sign-in entry point the import walker steers new sessions to.
const LoginHome = "https://steamcommunity.com/login/home/?goto="

// siteHosts are the destination hosts a session is considered "on site" for.
// Matching is by host suffix so subdomains qualify.
var siteHosts = []string{
	"steamcommunity.com",
	"store.steampowered.com",
	"help.steampowered.com",
	"login.steampowered.com",
}

// OnSite reports whether raw points at the destination site.
func OnSite(raw string) bool {
	host := hostOf(raw)
	for _, h := range siteHosts {
		if strings.HasSuffix(host, h) {
			return true
		}
	}
	return false
}

// IsLogin reports whether raw looks like the destination's sign-in surface.
// The shape check mirrors the site's URL layout: a community host with
// "login" anywhere in the location.
func IsLogin(raw string) bool {
	if !strings.Contains(strings.ToLower(raw), "login") {
		return false
	}
	return strings.HasSuffix(hostOf(raw), "steamcommunity.com")
}

// IsBlank reports whether a session location counts as "never navigated".
func IsBlank(raw string) bool {
	return raw == "" || raw == "about:blank"
}

// Normalize turns free-form operator input into a navigable URL, defaulting
// the scheme to https.
func Normalize(input string) string {
	s := strings.TrimSpace(input)
	if s == "" {
		return s
	}
	if strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://") || strings.HasPrefix(s, "chrome://") {
		return s
	}
	return "https://" + s
}

func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}
