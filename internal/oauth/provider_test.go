package oauth

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsKnownProviders(t *testing.T) {
	for _, name := range KnownProviders() {
		cfg, ok := Defaults(name)
		require.True(t, ok, "provider %s", name)
		assert.Equal(t, name, cfg.Name)
		assert.NotEmpty(t, cfg.AuthURL)
		assert.NotEmpty(t, cfg.TokenURL)
		assert.NotEmpty(t, cfg.ProfileURL)
		assert.NotEmpty(t, cfg.Scopes)
	}
}

func TestDefaultsUnknownProvider(t *testing.T) {
	_, ok := Defaults("myspace")
	assert.False(t, ok)
}

func TestDefaultsPKCE(t *testing.T) {
	twitter, _ := Defaults("twitter")
	assert.True(t, twitter.UsePKCE)

	github, _ := Defaults("github")
	assert.False(t, github.UsePKCE)

	discord, _ := Defaults("discord")
	assert.False(t, discord.UsePKCE)
}

func TestAuthCodeURLWithPKCE(t *testing.T) {
	cfg, _ := Defaults("twitter")
	cfg.ClientID = "client-1"
	cfg.RedirectURL = "https://app.example.com/auth/twitter/callback"

	raw := cfg.AuthCodeURL("state-xyz", "challenge-abc")

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "twitter.com", u.Host)

	q := u.Query()
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Equal(t, "client-1", q.Get("client_id"))
	assert.Equal(t, "https://app.example.com/auth/twitter/callback", q.Get("redirect_uri"))
	assert.Equal(t, "tweet.read users.read offline.access", q.Get("scope"))
	assert.Equal(t, "state-xyz", q.Get("state"))
	assert.Equal(t, "challenge-abc", q.Get("code_challenge"))
	assert.Equal(t, "S256", q.Get("code_challenge_method"))
}

func TestAuthCodeURLWithoutPKCE(t *testing.T) {
	cfg, _ := Defaults("github")
	cfg.ClientID = "gh-client"
	cfg.RedirectURL = "https://app.example.com/auth/github/callback"

	raw := cfg.AuthCodeURL("state-123", "")

	u, err := url.Parse(raw)
	require.NoError(t, err)

	q := u.Query()
	assert.Equal(t, "gh-client", q.Get("client_id"))
	assert.Equal(t, "state-123", q.Get("state"))
	assert.Empty(t, q.Get("code_challenge"))
	assert.Empty(t, q.Get("code_challenge_method"))
}
