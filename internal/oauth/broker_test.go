package oauth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tokenStub is a fake provider token endpoint.
type tokenStub struct {
	server *httptest.Server
	hits   int64

	lastForm      url.Values
	lastBasicUser string
	lastBasicPass string
	status        int
	body          map[string]any
}

func newTokenStub(t *testing.T) *tokenStub {
	t.Helper()
	stub := &tokenStub{
		status: http.StatusOK,
		body:   map[string]any{"access_token": "tok1", "token_type": "bearer"},
	}
	stub.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&stub.hits, 1)
		_ = r.ParseForm()
		stub.lastForm = r.PostForm
		stub.lastBasicUser, stub.lastBasicPass, _ = r.BasicAuth()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(stub.status)
		json.NewEncoder(w).Encode(stub.body)
	}))
	t.Cleanup(stub.server.Close)
	return stub
}

func (s *tokenStub) Hits() int64 {
	return atomic.LoadInt64(&s.hits)
}

func testBroker(t *testing.T, name string, store FlowStore, tokenURL string) *Broker {
	t.Helper()
	cfg, ok := Defaults(name)
	require.True(t, ok)
	cfg.ClientID = "test-client-id"
	cfg.ClientSecret = "test-client-secret"
	cfg.RedirectURL = "http://localhost:3001/auth/" + name + "/callback"
	if tokenURL != "" {
		cfg.TokenURL = tokenURL
	}
	return NewBroker(cfg, store)
}

func TestBeginAuthStoresStateBeforeReturningURL(t *testing.T) {
	store := NewMemoryStore()
	broker := testBroker(t, "twitter", store, "")

	authURL, err := broker.BeginAuth(context.Background(), "http://localhost:3000/done")
	require.NoError(t, err)

	u, err := url.Parse(authURL)
	require.NoError(t, err)
	state := u.Query().Get("state")
	require.Regexp(t, `^[0-9a-f]{32}$`, state)

	// The state must be consumable as soon as the URL exists.
	flow, err := store.Consume(context.Background(), state)
	require.NoError(t, err)
	assert.Equal(t, "twitter", flow.Provider)
	assert.Equal(t, "http://localhost:3000/done", flow.ReturnURI)

	// PKCE: verifier stored, only its challenge in the URL.
	assert.NotEmpty(t, flow.CodeVerifier)
	assert.Equal(t, GenerateCodeChallenge(flow.CodeVerifier), u.Query().Get("code_challenge"))
	assert.NotContains(t, authURL, flow.CodeVerifier)
}

func TestBeginAuthWithoutPKCE(t *testing.T) {
	store := NewMemoryStore()
	broker := testBroker(t, "github", store, "")

	authURL, err := broker.BeginAuth(context.Background(), "")
	require.NoError(t, err)

	u, err := url.Parse(authURL)
	require.NoError(t, err)

	flow, err := store.Consume(context.Background(), u.Query().Get("state"))
	require.NoError(t, err)
	assert.Empty(t, flow.CodeVerifier)
	assert.Empty(t, u.Query().Get("code_challenge"))
}

func TestHandleCallbackExchangesCode(t *testing.T) {
	stub := newTokenStub(t)
	store := NewMemoryStore()
	broker := testBroker(t, "twitter", store, stub.server.URL)

	ctx := context.Background()
	require.NoError(t, store.Save(ctx, &FlowState{
		State:        "state-1",
		Provider:     "twitter",
		CodeVerifier: "verifier-xyz",
		ReturnURI:    "http://localhost:3000/done",
	}))

	token, returnURI, err := broker.HandleCallback(ctx, "code-abc", "state-1")
	require.NoError(t, err)
	assert.Equal(t, "tok1", token)
	assert.Equal(t, "http://localhost:3000/done", returnURI)

	assert.Equal(t, int64(1), stub.Hits())
	assert.Equal(t, "authorization_code", stub.lastForm.Get("grant_type"))
	assert.Equal(t, "code-abc", stub.lastForm.Get("code"))
	assert.Equal(t, "verifier-xyz", stub.lastForm.Get("code_verifier"))
	assert.Equal(t, broker.Config().RedirectURL, stub.lastForm.Get("redirect_uri"))

	// Twitter authenticates the client with HTTP Basic auth.
	assert.Equal(t, "test-client-id", stub.lastBasicUser)
	assert.Equal(t, "test-client-secret", stub.lastBasicPass)
}

func TestHandleCallbackParamsAuthStyle(t *testing.T) {
	stub := newTokenStub(t)
	store := NewMemoryStore()
	broker := testBroker(t, "github", store, stub.server.URL)

	ctx := context.Background()
	require.NoError(t, store.Save(ctx, &FlowState{State: "gh-state", Provider: "github"}))

	token, _, err := broker.HandleCallback(ctx, "gh-code", "gh-state")
	require.NoError(t, err)
	assert.Equal(t, "tok1", token)

	// GitHub sends credentials in the form body, and no verifier.
	assert.Equal(t, "test-client-id", stub.lastForm.Get("client_id"))
	assert.Equal(t, "test-client-secret", stub.lastForm.Get("client_secret"))
	assert.Empty(t, stub.lastForm.Get("code_verifier"))
	assert.Empty(t, stub.lastBasicUser)
}

func TestHandleCallbackUnknownState(t *testing.T) {
	stub := newTokenStub(t)
	broker := testBroker(t, "twitter", NewMemoryStore(), stub.server.URL)

	_, _, err := broker.HandleCallback(context.Background(), "xyz", "doesnotexist")
	assert.ErrorIs(t, err, ErrStateNotFound)

	// An invalid state must never reach the token endpoint.
	assert.Equal(t, int64(0), stub.Hits())
}

func TestHandleCallbackReplay(t *testing.T) {
	stub := newTokenStub(t)
	store := NewMemoryStore()
	broker := testBroker(t, "github", store, stub.server.URL)

	ctx := context.Background()
	require.NoError(t, store.Save(ctx, &FlowState{State: "replayed", Provider: "github"}))

	_, _, err := broker.HandleCallback(ctx, "code-1", "replayed")
	require.NoError(t, err)

	// Second callback with the same state: rejected without a second exchange.
	_, _, err = broker.HandleCallback(ctx, "code-2", "replayed")
	assert.ErrorIs(t, err, ErrStateNotFound)
	assert.Equal(t, int64(1), stub.Hits())
}

func TestHandleCallbackExchangeRejected(t *testing.T) {
	stub := newTokenStub(t)
	stub.status = http.StatusBadRequest
	stub.body = map[string]any{"error": "invalid_grant"}

	store := NewMemoryStore()
	broker := testBroker(t, "github", store, stub.server.URL)

	ctx := context.Background()
	require.NoError(t, store.Save(ctx, &FlowState{State: "bad-code", Provider: "github"}))

	_, _, err := broker.HandleCallback(ctx, "expired-code", "bad-code")
	assert.ErrorIs(t, err, ErrExchangeFailed)

	// No retry: the code is single-use.
	assert.Equal(t, int64(1), stub.Hits())
}

func TestFetchProfile(t *testing.T) {
	var gotAuth string
	var gotQuery url.Values
	profileServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotQuery = r.URL.Query()
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":{"id":"42","username":"someone"}}`))
	}))
	defer profileServer.Close()

	cfg, _ := Defaults("twitter")
	cfg.ClientID = "id"
	cfg.ClientSecret = "secret"
	cfg.ProfileURL = profileServer.URL
	broker := NewBroker(cfg, NewMemoryStore())

	profile, err := broker.FetchProfile(context.Background(), "tok1")
	require.NoError(t, err)

	assert.Equal(t, "Bearer tok1", gotAuth)
	assert.Equal(t, "description,profile_image_url,public_metrics,verified", gotQuery.Get("user.fields"))
	assert.JSONEq(t, `{"data":{"id":"42","username":"someone"}}`, string(profile))
}

func TestFetchProfileFailure(t *testing.T) {
	profileServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "revoked", http.StatusUnauthorized)
	}))
	defer profileServer.Close()

	cfg, _ := Defaults("github")
	cfg.ProfileURL = profileServer.URL
	broker := NewBroker(cfg, NewMemoryStore())

	_, err := broker.FetchProfile(context.Background(), "revoked-token")
	assert.ErrorIs(t, err, ErrProfileFetch)
}
