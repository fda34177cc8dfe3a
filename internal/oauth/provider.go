package oauth

import (
	"net/url"

	"golang.org/x/oauth2"
)

// Config describes one OAuth provider to the broker: application
// credentials, the provider's documented endpoints, and its protocol
// capabilities (PKCE support, token-endpoint client authentication style).
type Config struct {
	Name         string
	ClientID     string
	ClientSecret string
	RedirectURL  string

	AuthURL    string
	TokenURL   string
	ProfileURL string
	Scopes     []string

	// UsePKCE enables the verifier/challenge pair (RFC 7636). Providers
	// without PKCE support run the same flow minus the challenge.
	UsePKCE bool

	// AuthStyle is how the token endpoint authenticates the client:
	// HTTP Basic (twitter) or form parameters (github, discord).
	AuthStyle oauth2.AuthStyle

	// ProfileQuery is appended to the profile request (e.g. twitter's
	// user.fields selector).
	ProfileQuery url.Values
}

// Published endpoints for the supported providers.
const (
	twitterAuthURL    = "https://twitter.com/i/oauth2/authorize"
	twitterTokenURL   = "https://api.twitter.com/2/oauth2/token"
	twitterProfileURL = "https://api.twitter.com/2/users/me"

	discordAuthURL    = "https://discord.com/api/oauth2/authorize"
	discordTokenURL   = "https://discord.com/api/oauth2/token"
	discordProfileURL = "https://discord.com/api/users/@me"

	githubAuthURL    = "https://github.com/login/oauth/authorize"
	githubTokenURL   = "https://github.com/login/oauth/access_token"
	githubProfileURL = "https://api.github.com/user"
)

// Defaults returns the endpoint table entry for a known provider name.
// The caller fills in credentials and the redirect URL.
func Defaults(name string) (Config, bool) {
	switch name {
	case "twitter":
		return Config{
			Name:       "twitter",
			AuthURL:    twitterAuthURL,
			TokenURL:   twitterTokenURL,
			ProfileURL: twitterProfileURL,
			Scopes:     []string{"tweet.read", "users.read", "offline.access"},
			UsePKCE:    true,
			AuthStyle:  oauth2.AuthStyleInHeader,
			ProfileQuery: url.Values{
				"user.fields": {"description,profile_image_url,public_metrics,verified"},
			},
		}, true
	case "discord":
		return Config{
			Name:       "discord",
			AuthURL:    discordAuthURL,
			TokenURL:   discordTokenURL,
			ProfileURL: discordProfileURL,
			Scopes:     []string{"identify", "email"},
			AuthStyle:  oauth2.AuthStyleInParams,
		}, true
	case "github":
		return Config{
			Name:       "github",
			AuthURL:    githubAuthURL,
			TokenURL:   githubTokenURL,
			ProfileURL: githubProfileURL,
			Scopes:     []string{"read:user", "user:email"},
			AuthStyle:  oauth2.AuthStyleInParams,
		}, true
	}
	return Config{}, false
}

// KnownProviders lists the provider names Defaults understands.
func KnownProviders() []string {
	return []string{"twitter", "discord", "github"}
}

// oauth2Config maps the provider description onto an x/oauth2 client config.
func (c *Config) oauth2Config() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		RedirectURL:  c.RedirectURL,
		Scopes:       c.Scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:   c.AuthURL,
			TokenURL:  c.TokenURL,
			AuthStyle: c.AuthStyle,
		},
	}
}

// AuthCodeURL builds the provider authorization URL for a stored state.
// Pure function of its inputs: the state must already be saved before the
// URL is handed out, so an early callback can still validate.
func (c *Config) AuthCodeURL(state, codeChallenge string) string {
	var opts []oauth2.AuthCodeOption
	if c.UsePKCE && codeChallenge != "" {
		opts = append(opts,
			oauth2.SetAuthURLParam("code_challenge", codeChallenge),
			oauth2.SetAuthURLParam("code_challenge_method", "S256"),
		)
	}
	return c.oauth2Config().AuthCodeURL(state, opts...)
}
