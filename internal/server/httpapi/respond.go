package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/dmitrijs2005/beyond/internal/common"
)

// maxBodySize bounds request bodies; descriptors and passports are small
// documents.
const maxBodySize = 2 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize+1))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error":  "request/malformed",
			"reason": "cannot read body",
		})
		return nil, false
	}
	if len(body) > maxBodySize {
		writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{
			"error":  "request/too_large",
			"reason": "body exceeds limit",
		})
		return nil, false
	}
	return body, true
}

func notFound(w http.ResponseWriter, kind, name string) {
	writeJSON(w, http.StatusNotFound, map[string]string{
		"error":  kind + "/not_found",
		"reason": fmt.Sprintf("%s %q does not exist", kind, name),
		"name":   name,
	})
}

func conflict(w http.ResponseWriter, kind, name string) {
	writeJSON(w, http.StatusConflict, map[string]string{
		"error":  kind + "/conflict",
		"reason": fmt.Sprintf("%s %q already exists with a different definition", kind, name),
		"name":   name,
	})
}

// writeError maps a service error for entity kind/name to its HTTP shape.
func writeError(w http.ResponseWriter, err error, kind, name string) {
	switch {
	case errors.Is(err, common.ErrorNotFound):
		notFound(w, kind, name)
	case errors.Is(err, common.ErrorAlreadyExists), errors.Is(err, common.ErrorConflict):
		conflict(w, kind, name)
	case errors.Is(err, common.ErrorMissingSignature):
		writeJSON(w, http.StatusUnauthorized, map[string]string{
			"error":  "credentials/missing",
			"reason": "signature header is required",
		})
	case errors.Is(err, common.ErrorMissingTimestamp):
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error":  "credentials/missing",
			"reason": "timestamp header is required",
		})
	case errors.Is(err, common.ErrorTimestampOutOfWindow):
		writeJSON(w, http.StatusUnauthorized, map[string]string{
			"error":  "credentials/invalid",
			"reason": "timestamp is outside the accepted window",
		})
	case errors.Is(err, common.ErrorSignatureMismatch):
		writeJSON(w, http.StatusForbidden, map[string]string{
			"error":  "credentials/invalid",
			"reason": "signature verification failed",
		})
	case errors.Is(err, common.ErrorMalformed):
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error":  "request/malformed",
			"reason": err.Error(),
		})
	case errors.Is(err, common.ErrorUnavailable):
		writeJSON(w, http.StatusNotImplemented, map[string]string{
			"error":  "service/unavailable",
			"reason": err.Error(),
		})
	default:
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error":  "server/error",
			"reason": "internal error",
		})
	}
}
