// internal/server/auth_handlers.go
package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/alexc/authgate/internal/log"
	"github.com/alexc/authgate/internal/metrics"
	"github.com/alexc/authgate/internal/oauth"
)

// initRequest is the optional JSON body of POST /auth/{provider}/init.
type initRequest struct {
	SuccessURI string `json:"success_uri"`
}

// profileEnvelope is the normalized success-page response.
type profileEnvelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Token   string          `json:"token"`
	Profile json.RawMessage `json:"profile"`
}

// handleInit begins an OAuth flow.
// POST /auth/{provider}/init, optional body {"success_uri": ...}
func (s *Server) handleInit(w http.ResponseWriter, r *http.Request) {
	broker, ok := s.broker(w, r)
	if !ok {
		return
	}
	provider := broker.Name()

	var req initRequest
	if r.Body != nil {
		// Body is optional; a decode failure on an empty body is fine.
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	if req.SuccessURI != "" && !s.isRedirectURLAllowed(req.SuccessURI) {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "success_uri is not allowed",
		})
		return
	}

	authURL, err := broker.BeginAuth(r.Context(), req.SuccessURI)
	if err != nil {
		log.Error("auth init failed", "provider", provider, "error", err.Error())
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "auth initialization failed",
		})
		return
	}

	metrics.FlowsStarted.WithLabelValues(provider).Inc()
	writeJSON(w, http.StatusOK, map[string]string{"authUrl": authURL})
}

// handleCallback is the provider redirect target.
// GET /auth/{provider}/callback?code=...&state=...
//
// All failures redirect to the provider error page with the cause logged
// server-side only: the client never learns whether a state was expired,
// replayed, or unknown.
func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	broker, ok := s.broker(w, r)
	if !ok {
		return
	}
	provider := broker.Name()

	code := r.URL.Query().Get("code")
	state := r.URL.Query().Get("state")

	if errParam := r.URL.Query().Get("error"); errParam != "" {
		log.Warn("provider returned error on callback",
			"provider", provider,
			"error", errParam,
			"description", r.URL.Query().Get("error_description"))
		metrics.FlowsFailed.WithLabelValues(provider, "provider").Inc()
		s.redirectToErrorPage(w, r, provider)
		return
	}

	if code == "" || state == "" {
		log.Warn("callback missing code or state", "provider", provider)
		metrics.FlowsFailed.WithLabelValues(provider, "request").Inc()
		s.redirectToErrorPage(w, r, provider)
		return
	}

	token, returnURI, err := broker.HandleCallback(r.Context(), code, state)
	if err != nil {
		stage := "exchange"
		if errors.Is(err, oauth.ErrStateNotFound) {
			stage = "state"
		}
		log.Warn("callback failed",
			"provider", provider,
			"stage", stage,
			"error", err.Error())
		metrics.FlowsFailed.WithLabelValues(provider, stage).Inc()
		s.redirectToErrorPage(w, r, provider)
		return
	}

	metrics.FlowsCompleted.WithLabelValues(provider).Inc()
	if s.notifier != nil {
		s.notifier.AuthSucceeded(provider)
	}

	http.Redirect(w, r, s.successRedirectURL(provider, returnURI, token), http.StatusFound)
}

// handleSuccess fetches and renders the authenticated profile.
// GET /auth/{provider}/success?token=... (or ?{provider}_token=...)
func (s *Server) handleSuccess(w http.ResponseWriter, r *http.Request) {
	broker, ok := s.broker(w, r)
	if !ok {
		return
	}
	provider := broker.Name()

	token := r.URL.Query().Get("token")
	if token == "" {
		token = r.URL.Query().Get(provider + "_token")
	}
	if token == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"success": false,
			"error":   "no token provided",
		})
		return
	}

	profile, err := broker.FetchProfile(r.Context(), token)
	if err != nil {
		log.Warn("profile fetch failed", "provider", provider, "error", err.Error())
		metrics.ProfileFetches.WithLabelValues(provider, "failure").Inc()
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"success": false,
			"error":   "failed to fetch profile information",
		})
		return
	}

	metrics.ProfileFetches.WithLabelValues(provider, "success").Inc()
	writeJSON(w, http.StatusOK, profileEnvelope{
		Success: true,
		Message: displayName(provider) + " authentication successful",
		Token:   token,
		Profile: profile,
	})
}

// handleError is the terminal error page.
// GET /auth/{provider}/error
func (s *Server) handleError(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusBadRequest, map[string]any{
		"success": false,
		"error":   "authentication failed",
	})
}

// broker resolves the {provider} path parameter to a configured broker,
// writing a 404 when the provider is unknown or not configured.
func (s *Server) broker(w http.ResponseWriter, r *http.Request) (*oauth.Broker, bool) {
	name := chi.URLParam(r, "provider")
	broker, err := s.registry.Get(name)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error": "unknown provider",
		})
		return nil, false
	}
	return broker, true
}

// successRedirectURL builds the post-callback redirect: the caller-supplied
// return URI (already allow-listed at init time) or the default success page,
// with the access token appended as {provider}_token.
func (s *Server) successRedirectURL(provider, returnURI, token string) string {
	target := returnURI
	if target == "" {
		target = s.baseURL + "/auth/" + provider + "/success"
	}

	u, err := url.Parse(target)
	if err != nil {
		u = &url.URL{Path: "/auth/" + provider + "/success"}
	}
	q := u.Query()
	q.Set(provider+"_token", token)
	u.RawQuery = q.Encode()
	return u.String()
}

// redirectToErrorPage sends the caller to the provider error page. Failures
// never redirect to a caller-supplied URL.
func (s *Server) redirectToErrorPage(w http.ResponseWriter, r *http.Request, provider string) {
	http.Redirect(w, r, s.baseURL+"/auth/"+provider+"/error", http.StatusFound)
}

// isRedirectURLAllowed checks a caller-supplied URL against the allow-list.
func (s *Server) isRedirectURLAllowed(redirectURL string) bool {
	// No allow-list configured: allow all (development mode).
	if len(s.allowedRedirectURLs) == 0 {
		return true
	}

	parsed, err := url.Parse(redirectURL)
	if err != nil {
		return false
	}

	for _, allowed := range s.allowedRedirectURLs {
		allowedParsed, err := url.Parse(allowed)
		if err != nil {
			continue
		}
		if parsed.Scheme != allowedParsed.Scheme || parsed.Host != allowedParsed.Host {
			continue
		}
		if allowedParsed.Path != "" && allowedParsed.Path != "/" {
			if strings.HasPrefix(parsed.Path, allowedParsed.Path) {
				return true
			}
		} else {
			return true
		}
	}
	return false
}

// displayName maps a provider name to its branded form for user-facing text.
func displayName(provider string) string {
	switch provider {
	case "github":
		return "GitHub"
	case "twitter":
		return "Twitter"
	case "discord":
		return "Discord"
	}
	if provider == "" {
		return provider
	}
	return strings.ToUpper(provider[:1]) + provider[1:]
}
