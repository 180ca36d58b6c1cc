package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"
)

// Avatar bytes never pass through this server; every operation answers with
// a 307 redirect to a short-lived presigned object-storage URL.

func (s *Server) handleAvatarGet(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	if _, err := s.users.Get(r.Context(), name); err != nil {
		writeError(w, err, "user", name)
		return
	}
	url, err := s.avatars.PresignedGetURL(r.Context(), name)
	if err != nil {
		writeError(w, err, "avatar", name)
		return
	}
	http.Redirect(w, r, url, http.StatusTemporaryRedirect)
}

func (s *Server) handleAvatarPut(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	if _, err := s.users.Get(r.Context(), name); err != nil {
		writeError(w, err, "user", name)
		return
	}

	contentType := r.Header.Get("Content-Type")
	if !s.avatars.AllowedContentType(contentType) {
		writeJSON(w, http.StatusUnsupportedMediaType, map[string]string{
			"error":  "avatar/unsupported_media_type",
			"reason": "avatar must be image/png, image/jpeg or image/gif",
		})
		return
	}

	url, err := s.avatars.PresignedPutURL(r.Context(), name, contentType)
	if err != nil {
		writeError(w, err, "avatar", name)
		return
	}
	http.Redirect(w, r, url, http.StatusTemporaryRedirect)
}

func (s *Server) handleAvatarDelete(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	if _, err := s.users.Get(r.Context(), name); err != nil {
		writeError(w, err, "user", name)
		return
	}
	url, err := s.avatars.PresignedDeleteURL(r.Context(), name)
	if err != nil {
		writeError(w, err, "avatar", name)
		return
	}
	http.Redirect(w, r, url, http.StatusTemporaryRedirect)
}
