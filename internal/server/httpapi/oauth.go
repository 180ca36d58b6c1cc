package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/dmitrijs2005/beyond/internal/server/models"
)

func (s *Server) handleOAuthAuthorize(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	name, provider := vars["name"], vars["provider"]

	if !s.oauth.Known(provider) {
		notFound(w, "provider", provider)
		return
	}
	if _, err := s.users.Get(r.Context(), name); err != nil {
		writeError(w, err, "user", name)
		return
	}

	url, err := s.oauth.AuthorizeURL(provider, host(r), name)
	if err != nil {
		writeError(w, err, "provider", provider)
		return
	}
	http.Redirect(w, r, url, http.StatusTemporaryRedirect)
}

// handleOAuthCallback is the provider redirect target: it exchanges the
// authorization code and links the account to the user named in state.
func (s *Server) handleOAuthCallback(w http.ResponseWriter, r *http.Request) {
	provider := mux.Vars(r)["provider"]

	if !s.oauth.Known(provider) {
		notFound(w, "provider", provider)
		return
	}
	code := r.URL.Query().Get("code")
	state := r.URL.Query().Get("state")
	if code == "" || state == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error":  "request/malformed",
			"reason": "code and state query parameters are required",
		})
		return
	}

	cred, err := s.oauth.Exchange(r.Context(), provider, host(r), code, state)
	if err != nil {
		writeError(w, err, "user", state)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"uid":          cred.UID,
		"display_name": cred.DisplayName,
	})
}

func (s *Server) handleCredentialsGet(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	name, provider := vars["name"], vars["provider"]

	if !s.oauth.Known(provider) {
		notFound(w, "provider", provider)
		return
	}

	body, ok := readBody(w, r)
	if !ok {
		return
	}
	if _, err := s.authenticateAs(r, body, name); err != nil {
		writeError(w, err, "user", name)
		return
	}

	accounts, err := s.users.Credentials(r.Context(), name, provider)
	if err != nil {
		writeError(w, err, "user", name)
		return
	}
	credentials := make([]models.Credential, 0, len(accounts))
	for _, cred := range accounts {
		credentials = append(credentials, cred)
	}
	writeJSON(w, http.StatusOK, map[string][]models.Credential{"credentials": credentials})
}

func (s *Server) handleGoogleRefresh(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	refreshToken := r.URL.Query().Get("refresh_token")
	if refreshToken == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error":  "request/malformed",
			"reason": "refresh_token query parameter is required",
		})
		return
	}

	token, err := s.oauth.RefreshGoogle(r.Context(), name, refreshToken)
	if err != nil {
		writeError(w, err, "user", name)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}
