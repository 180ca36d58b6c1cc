// Package httpapi exposes the directory over HTTP: user registration and
// lookup, network and volume lifecycle, passport distribution, endpoint
// advertisement, avatar redirects, and OAuth account linking. All request
// authentication happens here; services below assume an authenticated
// identity.
package httpapi

import (
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/dmitrijs2005/beyond/internal/logging"
	"github.com/dmitrijs2005/beyond/internal/server/auth"
	"github.com/dmitrijs2005/beyond/internal/server/config"
	"github.com/dmitrijs2005/beyond/internal/server/models"
	"github.com/dmitrijs2005/beyond/internal/server/services"
)

// Version is reported by GET /.
var Version = "0.5.0"

// Server wires the route table to the services.
type Server struct {
	logger        logging.Logger
	authenticator *auth.Authenticator
	users         *services.UserService
	networks      *services.NetworkService
	volumes       *services.VolumeService
	avatars       *services.AvatarService
	oauth         *services.OAuthService
	debugUsers    map[string]struct{}
}

// NewServer builds the HTTP surface. The debug user allow-list comes from
// configuration; authenticated requests by listed users are logged at debug
// level.
func NewServer(
	logger logging.Logger,
	cfg *config.Config,
	authenticator *auth.Authenticator,
	users *services.UserService,
	networks *services.NetworkService,
	volumes *services.VolumeService,
	avatars *services.AvatarService,
	oauth *services.OAuthService,
) *Server {
	debug := make(map[string]struct{}, len(cfg.DebugUsers))
	for _, name := range cfg.DebugUsers {
		debug[name] = struct{}{}
	}
	return &Server{
		logger:        logger,
		authenticator: authenticator,
		users:         users,
		networks:      networks,
		volumes:       volumes,
		avatars:       avatars,
		oauth:         oauth,
		debugUsers:    debug,
	}
}

// Router returns the configured route table.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.requestLog)

	r.HandleFunc("/", s.handleRoot).Methods(http.MethodGet)

	r.HandleFunc("/users/{name}", s.handleUserPut).Methods(http.MethodPut)
	r.HandleFunc("/users/{name}", s.handleUserGet).Methods(http.MethodGet)
	r.HandleFunc("/users/{name}", s.handleUserDelete).Methods(http.MethodDelete)
	r.HandleFunc("/users/{name}/networks", s.handleUserNetworks).Methods(http.MethodGet)

	r.HandleFunc("/users/{name}/avatar", s.handleAvatarGet).Methods(http.MethodGet)
	r.HandleFunc("/users/{name}/avatar", s.handleAvatarPut).Methods(http.MethodPut)
	r.HandleFunc("/users/{name}/avatar", s.handleAvatarDelete).Methods(http.MethodDelete)

	// the refresh route must precede the generic credentials route
	r.HandleFunc("/users/{name}/credentials/google/refresh", s.handleGoogleRefresh).Methods(http.MethodGet)
	r.HandleFunc("/users/{name}/credentials/{provider}", s.handleCredentialsGet).Methods(http.MethodGet)
	r.HandleFunc("/users/{name}/{provider}-oauth", s.handleOAuthAuthorize).Methods(http.MethodGet)
	r.HandleFunc("/oauth/{provider}", s.handleOAuthCallback).Methods(http.MethodGet)

	r.HandleFunc("/networks/{owner}/{name}", s.handleNetworkPut).Methods(http.MethodPut)
	r.HandleFunc("/networks/{owner}/{name}", s.handleNetworkGet).Methods(http.MethodGet)
	r.HandleFunc("/networks/{owner}/{name}", s.handleNetworkDelete).Methods(http.MethodDelete)
	r.HandleFunc("/networks/{owner}/{name}/users", s.handleNetworkUsers).Methods(http.MethodGet)
	r.HandleFunc("/networks/{owner}/{name}/endpoints", s.handleEndpointsGet).Methods(http.MethodGet)
	r.HandleFunc("/networks/{owner}/{name}/endpoints/{user}/{node}", s.handleEndpointPut).Methods(http.MethodPut)
	r.HandleFunc("/networks/{owner}/{name}/endpoints/{user}/{node}", s.handleEndpointDelete).Methods(http.MethodDelete)
	r.HandleFunc("/networks/{owner}/{name}/passports/{invitee}", s.handlePassportGet).Methods(http.MethodGet)
	r.HandleFunc("/networks/{owner}/{name}/passports/{invitee}", s.handlePassportPut).Methods(http.MethodPut)

	r.HandleFunc("/volumes/{owner}/{name}", s.handleVolumePut).Methods(http.MethodPut)
	r.HandleFunc("/volumes/{owner}/{name}", s.handleVolumeGet).Methods(http.MethodGet)
	r.HandleFunc("/volumes/{owner}/{name}", s.handleVolumeDelete).Methods(http.MethodDelete)

	return r
}

func (s *Server) requestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := uuid.NewString()
		s.logger.Info(r.Context(), "request", "id", requestID, "method", r.Method, "path", r.URL.Path)
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"version": Version})
}

// authenticateAs verifies that the request is signed by the named user.
// body must be the exact signed bytes. Returns the user record on success.
func (s *Server) authenticateAs(r *http.Request, body []byte, name string) (*models.User, error) {
	user, err := s.users.Get(r.Context(), name)
	if err != nil {
		return nil, err
	}
	if err := s.authenticator.Authenticate(r, body, user); err != nil {
		return nil, err
	}
	if _, ok := s.debugUsers[name]; ok {
		s.logger.Debug(r.Context(), "authenticated request",
			"user", name, "method", r.Method, "path", r.URL.Path)
	}
	return user, nil
}

func host(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s", scheme, r.Host)
}
