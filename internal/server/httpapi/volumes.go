package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
)

func (s *Server) handleVolumePut(w http.ResponseWriter, r *http.Request) {
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
				"error":  "volume/malformed",
				"reason": "descriptor is not valid JSON",
			})
			return
		}
		descriptor = body
	}

	if _, err := s.volumes.Create(r.Context(), owner, name, descriptor); err != nil {
		writeError(w, err, "volume", owner+"/"+name)
		return
	}
	writeJSON(w, http.StatusCreated, nil)
}

func (s *Server) handleVolumeGet(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	owner, name := vars["owner"], vars["name"]

	volume, err := s.volumes.Get(r.Context(), owner, name)
	if err != nil {
		writeError(w, err, "volume", owner+"/"+name)
		return
	}
	writeJSON(w, http.StatusOK, volume)
}

func (s *Server) handleVolumeDelete(w http.ResponseWriter, r *http.Request) {
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
	if err := s.volumes.Delete(r.Context(), owner, name); err != nil {
		writeError(w, err, "volume", owner+"/"+name)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}
