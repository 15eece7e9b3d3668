// internal/siteurl/siteurl_test.go
package siteurl

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOnSite(t *testing.T) {
	cases := []struct {
		url  string
		want bool
	}{
		{"https://steamcommunity.com/", true},
		{"https://steamcommunity.com/id/someone", true},
		{"https://store.steampowered.com/app/440", true},
		{"https://help.steampowered.com/en/", true},
		{"https://login.steampowered.com/jwt/refresh", true},
		{"https://checkout.store.steampowered.com/cart", true},
		{"https://example.com/steamcommunity.com", false},
		{"https://steamcommunity.com.evil.net/", false},
		{"about:blank", false},
		{"", false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, OnSite(tc.url), "url: %q", tc.url)
	}
}

func TestIsLogin(t *testing.T) {
	cases := []struct {
		url  string
		want bool
	}{
		{"https://steamcommunity.com/login/home/?goto=", true},
		{"https://steamcommunity.com/LOGIN/home/", true},
		{"https://steamcommunity.com/id/someone", false},
		// Login host on the store domain is not the community sign-in page.
		{"https://login.steampowered.com/jwt", false},
		{"https://example.com/login", false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, IsLogin(tc.url), "url: %q", tc.url)
	}
}

func TestIsBlank(t *testing.T) {
	assert.True(t, IsBlank(""))
	assert.True(t, IsBlank("about:blank"))
	assert.False(t, IsBlank("https://steamcommunity.com/"))
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "https://steamcommunity.com", Normalize("steamcommunity.com"))
	assert.Equal(t, "http://localhost:8080", Normalize("http://localhost:8080"))
	assert.Equal(t, "chrome://version", Normalize("chrome://version"))
	assert.Equal(t, "https://x.test", Normalize("  x.test  "))
	assert.Equal(t, "", Normalize(""))
}
