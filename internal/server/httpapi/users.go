package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/dmitrijs2005/beyond/internal/server/models"
)

// userDocument is the externally visible shape of a user. Linked account
// credentials never leave through this document.
type userDocument struct {
	Name      string           `json:"name"`
	PublicKey models.PublicKey `json:"public_key"`
}

func (s *Server) handleUserPut(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	body, ok := readBody(w, r)
	if !ok {
		return
	}

	var doc userDocument
	if err := json.Unmarshal(body, &doc); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error":  "request/malformed",
			"reason": "body is not a valid user document",
		})
		return
	}
	if doc.Name != "" && doc.Name != name {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error":  "request/malformed",
			"reason": "body name does not match path",
		})
		return
	}
	if doc.PublicKey.RSA == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error":  "user/malformed",
			"reason": "public_key.rsa is required",
		})
		return
	}

	_, created, err := s.users.Register(r.Context(), name, doc.PublicKey)
	if err != nil {
		writeError(w, err, "user", name)
		return
	}
	if created {
		writeJSON(w, http.StatusCreated, nil)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

func (s *Server) handleUserGet(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	user, err := s.users.Get(r.Context(), name)
	if err != nil {
		writeError(w, err, "user", name)
		return
	}
	writeJSON(w, http.StatusOK, userDocument{Name: user.Name, PublicKey: user.PublicKey})
}

func (s *Server) handleUserDelete(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	body, ok := readBody(w, r)
	if !ok {
		return
	}
	if _, err := s.authenticateAs(r, body, name); err != nil {
		writeError(w, err, "user", name)
		return
	}
	if err := s.users.Delete(r.Context(), name); err != nil {
		writeError(w, err, "user", name)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

func (s *Server) handleUserNetworks(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	body, ok := readBody(w, r)
	if !ok {
		return
	}
	if _, err := s.authenticateAs(r, body, name); err != nil {
		writeError(w, err, "user", name)
		return
	}

	networks, err := s.users.Networks(r.Context(), name)
	if err != nil {
		writeError(w, err, "user", name)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"networks": networks})
}
