package httphandler

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"io"
	"net/http"

	"github.com/a-h/templ"

	"github.com/ericfisherdev/credreview/internal/domain/port/driven"
)

const stateCookie = "credreview_oauth_state"

// AuthURL returns the identity provider's consent URL and pins a state
// value in a short-lived cookie.
func (h *Handler) AuthURL(w http.ResponseWriter, r *http.Request) {
	if h.identity == nil {
		writeError(w, http.StatusInternalServerError, "google client id not configured")
		return
	}

	state, err := newState()
	if err != nil {
		h.logger.Error("failed to generate oauth state", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	url, err := h.identity.AuthURL(state)
	if err != nil {
		if errors.Is(err, driven.ErrIdentityNotConfigured) {
			writeError(w, http.StatusInternalServerError, "google client id not configured")
			return
		}
		h.logger.Error("failed to build auth url", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/api/auth",
		MaxAge:   600,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, AuthURLResponse{URL: url})
}

// AuthCallback exchanges the authorization code and returns a page that
// hands the profile to the opening window, then closes itself.
func (h *Handler) AuthCallback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if code == "" {
		http.Error(w, "missing code", http.StatusBadRequest)
		return
	}

	cookie, err := r.Cookie(stateCookie)
	if err != nil || cookie.Value == "" || cookie.Value != r.URL.Query().Get("state") {
		http.Error(w, "invalid state", http.StatusBadRequest)
		return
	}
	http.SetCookie(w, &http.Cookie{Name: stateCookie, Path: "/api/auth", MaxAge: -1})

	if h.identity == nil {
		http.Error(w, "google credentials not configured", http.StatusInternalServerError)
		return
	}

	profile, err := h.identity.ExchangeProfile(r.Context(), code)
	if err != nil {
		if errors.Is(err, driven.ErrIdentityNotConfigured) {
			http.Error(w, "google credentials not configured", http.StatusInternalServerError)
			return
		}
		h.logger.Error("oauth exchange failed", "error", err)
		http.Error(w, "token exchange failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := profileHandoff(profile).Render(r.Context(), w); err != nil {
		h.logger.Error("failed to render oauth result", "error", err)
	}
}

const handoffScript = `<script>
try {
  const profile = JSON.parse(document.getElementById("oauth-profile").textContent);
  window.opener.postMessage({ type: "oauth_profile", profile }, window.location.origin);
} catch (e) {
  console.error(e);
}
window.close();
</script>
<p>Signed in. You can close this window.</p>
</body></html>`

// profileHandoff renders the popup result page. The profile is embedded as
// an escaped JSON script element, never interpolated into code.
func profileHandoff(profile map[string]any) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, `<!DOCTYPE html><html><head><meta charset="utf-8"></head><body>`); err != nil {
			return err
		}
		if err := templ.JSONScript("oauth-profile", profile).Render(ctx, w); err != nil {
			return err
		}
		_, err := io.WriteString(w, handoffScript)
		return err
	})
}

func newState() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
