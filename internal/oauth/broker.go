package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/oauth2"
)

var (
	// ErrExchangeFailed means the provider's token endpoint rejected the
	// authorization code. Codes are single-use, so the flow is not retried.
	ErrExchangeFailed = errors.New("token exchange failed")

	// ErrProfileFetch means the provider's current-user endpoint failed.
	// Authorization itself has already succeeded at this point.
	ErrProfileFetch = errors.New("profile fetch failed")
)

// Broker runs one OAuth authorization round trip per state token for a
// single provider. It owns no mutable state of its own; all cross-request
// coordination goes through the FlowStore.
type Broker struct {
	cfg    Config
	store  FlowStore
	client *http.Client
}

// NewBroker creates a broker for one provider configuration.
func NewBroker(cfg Config, store FlowStore) *Broker {
	return &Broker{
		cfg:   cfg,
		store: store,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Name returns the provider name this broker serves.
func (b *Broker) Name() string {
	return b.cfg.Name
}

// Config returns the provider configuration.
func (b *Broker) Config() Config {
	return b.cfg
}

// BeginAuth starts a flow: generates the state (and, for PKCE providers,
// the verifier/challenge pair), saves the pending authorization, and returns
// the provider authorization URL. The state is stored before the URL is
// returned so a callback racing the init response still validates.
func (b *Broker) BeginAuth(ctx context.Context, returnURI string) (string, error) {
	state, err := GenerateState()
	if err != nil {
		return "", fmt.Errorf("generate state: %w", err)
	}

	var verifier, challenge string
	if b.cfg.UsePKCE {
		verifier, err = GenerateCodeVerifier()
		if err != nil {
			return "", fmt.Errorf("generate code verifier: %w", err)
		}
		challenge = GenerateCodeChallenge(verifier)
	}

	flow := &FlowState{
		State:        state,
		Provider:     b.cfg.Name,
		CodeVerifier: verifier,
		ReturnURI:    returnURI,
	}
	if err := b.store.Save(ctx, flow); err != nil {
		return "", fmt.Errorf("save flow state: %w", err)
	}

	return b.cfg.AuthCodeURL(state, challenge), nil
}

// HandleCallback completes a flow: consumes the state (at most once) and
// exchanges the authorization code for an access token. Returns the token
// and the caller-supplied return URI captured at init time.
//
// A state that is unknown, expired, or replayed yields ErrStateNotFound
// without distinguishing the cause and without contacting the provider.
func (b *Broker) HandleCallback(ctx context.Context, code, state string) (string, string, error) {
	flow, err := b.store.Consume(ctx, state)
	if err != nil {
		return "", "", err
	}

	var opts []oauth2.AuthCodeOption
	if flow.CodeVerifier != "" {
		opts = append(opts, oauth2.SetAuthURLParam("code_verifier", flow.CodeVerifier))
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, b.client)
	token, err := b.cfg.oauth2Config().Exchange(ctx, code, opts...)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrExchangeFailed, err)
	}
	if token.AccessToken == "" {
		return "", "", fmt.Errorf("%w: provider returned empty access token", ErrExchangeFailed)
	}

	return token.AccessToken, flow.ReturnURI, nil
}

// FetchProfile retrieves the authenticated user's profile with a bearer
// token and returns the provider's JSON body verbatim. Best effort: no
// retries, and a failure does not invalidate the completed authorization.
func (b *Broker) FetchProfile(ctx context.Context, accessToken string) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.cfg.ProfileURL, nil)
	if err != nil {
		return nil, err
	}
	if len(b.cfg.ProfileQuery) > 0 {
		req.URL.RawQuery = b.cfg.ProfileQuery.Encode()
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProfileFetch, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrProfileFetch, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: %s returned %d", ErrProfileFetch, b.cfg.Name, resp.StatusCode)
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("%w: %s returned invalid JSON", ErrProfileFetch, b.cfg.Name)
	}

	return json.RawMessage(body), nil
}

// SetHTTPClient replaces the outbound HTTP client. Intended for tests.
func (b *Broker) SetHTTPClient(c *http.Client) {
	b.client = c
}
