package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/dmitrijs2005/beyond/internal/common"
)

func (s *Server) handleNetworkPut(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	owner, name := vars["owner"], vars["name"]

	body, ok := readBody(w, r)
	if !ok {
		return
	}
	if _, err := s.authenticateAs(r, body, owner); err != nil {
		writeError(w, err, "user", owner)
		return
	}

	var descriptor json.RawMessage
	if len(body) > 0 {
		if !json.Valid(body) {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error":  "network/malformed",
				"reason": "descriptor is not valid JSON",
			})
			return
		}
		descriptor = body
	}

	if _, err := s.networks.Create(r.Context(), owner, name, descriptor); err != nil {
		writeError(w, err, "network", owner+"/"+name)
		return
	}
	writeJSON(w, http.StatusCreated, nil)
}

func (s *Server) handleNetworkGet(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	owner, name := vars["owner"], vars["name"]

	network, err := s.networks.Get(r.Context(), owner, name)
	if err != nil {
		writeError(w, err, "network", owner+"/"+name)
		return
	}
	writeJSON(w, http.StatusOK, network)
}

func (s *Server) handleNetworkDelete(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	owner, name := vars["owner"], vars["name"]

	body, ok := readBody(w, r)
	if !ok {
		return
	}
	if _, err := s.networks.Get(r.Context(), owner, name); err != nil {
		writeError(w, err, "network", owner+"/"+name)
		return
	}
	if _, err := s.authenticateAs(r, body, owner); err != nil {
		writeError(w, err, "user", owner)
		return
	}
	if err := s.networks.Delete(r.Context(), owner, name); err != nil {
		writeError(w, err, "network", owner+"/"+name)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

func (s *Server) handleNetworkUsers(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	owner, name := vars["owner"], vars["name"]

	users, err := s.networks.Users(r.Context(), owner, name)
	if err != nil {
		writeError(w, err, "network", owner+"/"+name)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"users": users})
}

func (s *Server) handleEndpointsGet(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	owner, name := vars["owner"], vars["name"]

	endpoints, err := s.networks.Endpoints(r.Context(), owner, name)
	if err != nil {
		writeError(w, err, "network", owner+"/"+name)
		return
	}
	writeJSON(w, http.StatusOK, endpoints)
}

func (s *Server) handleEndpointPut(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	owner, name, user, node := vars["owner"], vars["name"], vars["user"], vars["node"]

	body, ok := readBody(w, r)
	if !ok {
		return
	}
	// only the named user may publish its own reachability
	if _, err := s.authenticateAs(r, body, user); err != nil {
		writeError(w, err, "user", user)
		return
	}

	var descriptor json.RawMessage
	if len(body) > 0 && json.Valid(body) {
		descriptor = body
	} else {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error":  "endpoint/malformed",
			"reason": "endpoint descriptor is required",
		})
		return
	}

	if err := s.networks.PutEndpoint(r.Context(), owner, name, user, node, descriptor); err != nil {
		writeError(w, err, "network", owner+"/"+name)
		return
	}
	writeJSON(w, http.StatusCreated, nil)
}

func (s *Server) handleEndpointDelete(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	owner, name, user, node := vars["owner"], vars["name"], vars["user"], vars["node"]

	body, ok := readBody(w, r)
	if !ok {
		return
	}
	if _, err := s.authenticateAs(r, body, user); err != nil {
		writeError(w, err, "user", user)
		return
	}
	if err := s.networks.RevokeEndpoint(r.Context(), owner, name, user, node); err != nil {
		writeError(w, err, "network", owner+"/"+name)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

func (s *Server) handlePassportGet(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	owner, name, invitee := vars["owner"], vars["name"], vars["invitee"]

	if _, err := s.networks.Get(r.Context(), owner, name); err != nil {
		writeError(w, err, "network", owner+"/"+name)
		return
	}
	passport, err := s.networks.GetPassport(r.Context(), owner, name, invitee)
	if err != nil {
		writeError(w, err, "passport", invitee)
		return
	}
	writeJSON(w, http.StatusOK, passport)
}

// handlePassportPut stores a passport. The write is authorized for the
// network owner or the named invitee; owner authentication is attempted
// first and the invitee fallback only runs when the owner attempt failed
// with an authentication error, never on an internal one.
func (s *Server) handlePassportPut(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	owner, name, invitee := vars["owner"], vars["name"], vars["invitee"]

	body, ok := readBody(w, r)
	if !ok {
		return
	}
	if _, err := s.networks.Get(r.Context(), owner, name); err != nil {
		writeError(w, err, "network", owner+"/"+name)
		return
	}
	if len(body) == 0 || !json.Valid(body) {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error":  "passport/malformed",
			"reason": "passport document is required",
		})
		return
	}

	_, err := s.authenticateAs(r, body, owner)
	if err != nil && common.IsAuthFailure(err) {
		if _, inviteeErr := s.authenticateAs(r, body, invitee); inviteeErr == nil {
			err = nil
		}
	}
	if err != nil {
		writeError(w, err, "user", owner)
		return
	}

	if err := s.networks.PutPassport(r.Context(), owner, name, invitee, body); err != nil {
		writeError(w, err, "network", owner+"/"+name)
		return
	}
	writeJSON(w, http.StatusCreated, nil)
}
