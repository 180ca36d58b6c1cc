package httpapi

import (
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/beyond/internal/logging"
	"github.com/dmitrijs2005/beyond/internal/requestsig"
	"github.com/dmitrijs2005/beyond/internal/server/auth"
	"github.com/dmitrijs2005/beyond/internal/server/config"
	"github.com/dmitrijs2005/beyond/internal/server/repositories/inmemory"
	"github.com/dmitrijs2005/beyond/internal/server/services"
)

// env is a directory server over the in-memory store plus the private keys
// of its registered test users.
type env struct {
	router http.Handler
	keys   map[string]*rsa.PrivateKey
}

func newEnv(t *testing.T) *env {
	t.Helper()

	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.DebugUsers = []string{"alice"}

	rm := inmemory.NewManager()
	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))

	users := services.NewUserService(nil, rm)
	networks := services.NewNetworkService(nil, rm)
	volumes := services.NewVolumeService(nil, rm)
	avatars := services.NewAvatarService(cfg)
	oauth := services.NewOAuthService(users, cfg)

	server := NewServer(logger, cfg, auth.NewAuthenticator(), users, networks, volumes, avatars, oauth)
	return &env{router: server.Router(), keys: map[string]*rsa.PrivateKey{}}
}

// register creates a user through the public API and remembers its key.
func (e *env) register(t *testing.T, name string) {
	t.Helper()
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	e.keys[name] = priv

	encoded, err := requestsig.EncodePublicKey(&priv.PublicKey)
	require.NoError(t, err)

	body := fmt.Sprintf(`{"name":%q,"public_key":{"rsa":%q}}`, name, encoded)
	rec := e.do(t, http.MethodPut, "/users/"+name, []byte(body), "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

// do issues a request, signed as signer when non-empty.
func (e *env) do(t *testing.T, method, path string, body []byte, signer string) *httptest.ResponseRecorder {
	t.Helper()
	r := httptest.NewRequest(method, path, bytes.NewReader(body))
	if signer != "" {
		priv, ok := e.keys[signer]
		require.True(t, ok, "no key for %s", signer)
		ts := strconv.FormatInt(time.Now().UTC().Unix(), 10)
		sig, err := requestsig.Sign(priv, method, path, body, ts)
		require.NoError(t, err)
		r.Header.Set("X-Signature", sig)
		r.Header.Set("X-Timestamp", ts)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, r)
	return rec
}

func errorField(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	s, _ := body["error"].(string)
	return s
}

func TestRoot_Version(t *testing.T) {
	e := newEnv(t)
	rec := e.do(t, http.MethodGet, "/", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, Version, body["version"])
}

func TestUserRegistration_IdempotentAndConflict(t *testing.T) {
	e := newEnv(t)
	e.register(t, "alice")

	encoded, err := requestsig.EncodePublicKey(&e.keys["alice"].PublicKey)
	require.NoError(t, err)
	same := []byte(fmt.Sprintf(`{"public_key":{"rsa":%q}}`, encoded))

	rec := e.do(t, http.MethodPut, "/users/alice", same, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	other, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	otherEncoded, err := requestsig.EncodePublicKey(&other.PublicKey)
	require.NoError(t, err)
	divergent := []byte(fmt.Sprintf(`{"public_key":{"rsa":%q}}`, otherEncoded))

	rec = e.do(t, http.MethodPut, "/users/alice", divergent, "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "user/conflict", errorField(t, rec))
}

func TestUserGet(t *testing.T) {
	e := newEnv(t)
	e.register(t, "alice")

	rec := e.do(t, http.MethodGet, "/users/alice", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var doc userDocument
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	assert.Equal(t, "alice", doc.Name)
	assert.NotEmpty(t, doc.PublicKey.RSA)

	rec = e.do(t, http.MethodGet, "/users/ghost", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "user/not_found", errorField(t, rec))
}

func TestUserDelete_RequiresOwnerSignature(t *testing.T) {
	e := newEnv(t)
	e.register(t, "alice")
	e.register(t, "bob")

	rec := e.do(t, http.MethodDelete, "/users/alice", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = e.do(t, http.MethodDelete, "/users/alice", nil, "bob")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = e.do(t, http.MethodDelete, "/users/alice", nil, "alice")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = e.do(t, http.MethodGet, "/users/alice", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestNetworkCreate_AndConflict(t *testing.T) {
	e := newEnv(t)
	e.register(t, "alice")

	rec := e.do(t, http.MethodPut, "/networks/alice/net1", []byte(`{}`), "alice")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = e.do(t, http.MethodPut, "/networks/alice/net1", []byte(`{}`), "alice")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "network/conflict", errorField(t, rec))

	// unsigned create is rejected
	rec = e.do(t, http.MethodPut, "/networks/alice/net2", []byte(`{}`), "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestNetworkUsers_Listing(t *testing.T) {
	e := newEnv(t)
	e.register(t, "alice")
	e.register(t, "bob")

	rec := e.do(t, http.MethodPut, "/networks/alice/net1", []byte(`{}`), "alice")
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = e.do(t, http.MethodGet, "/networks/alice/net1/users", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var listing map[string][]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listing))
	assert.Equal(t, []string{"alice"}, listing["users"])

	rec = e.do(t, http.MethodPut, "/networks/alice/net1/passports/bob", []byte(`{"sig":"x"}`), "bob")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = e.do(t, http.MethodGet, "/networks/alice/net1/users", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listing))
	assert.Equal(t, []string{"alice", "bob"}, listing["users"])
}

func TestPassportWrite_DualAuthorization(t *testing.T) {
	e := newEnv(t)
	e.register(t, "alice")
	e.register(t, "bob")
	e.register(t, "carol")

	rec := e.do(t, http.MethodPut, "/networks/alice/net1", []byte(`{}`), "alice")
	require.Equal(t, http.StatusCreated, rec.Code)

	passport := []byte(`{"network":"alice/net1","user":"bob"}`)

	// owner-signed
	rec = e.do(t, http.MethodPut, "/networks/alice/net1/passports/bob", passport, "alice")
	assert.Equal(t, http.StatusCreated, rec.Code)

	// invitee-signed
	rec = e.do(t, http.MethodPut, "/networks/alice/net1/passports/bob", passport, "bob")
	assert.Equal(t, http.StatusCreated, rec.Code)

	// a third party is neither owner nor invitee
	rec = e.do(t, http.MethodPut, "/networks/alice/net1/passports/bob", passport, "carol")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// unsigned
	rec = e.do(t, http.MethodPut, "/networks/alice/net1/passports/bob", passport, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// absent network
	rec = e.do(t, http.MethodPut, "/networks/alice/ghost/passports/bob", passport, "alice")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "network/not_found", errorField(t, rec))
}

func TestPassportGet(t *testing.T) {
	e := newEnv(t)
	e.register(t, "alice")
	e.register(t, "bob")

	rec := e.do(t, http.MethodPut, "/networks/alice/net1", []byte(`{}`), "alice")
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = e.do(t, http.MethodGet, "/networks/alice/net1/passports/bob", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "passport/not_found", errorField(t, rec))

	rec = e.do(t, http.MethodPut, "/networks/alice/net1/passports/bob", []byte(`{"sig":"x"}`), "bob")
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = e.do(t, http.MethodGet, "/networks/alice/net1/passports/bob", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"sig":"x"}`, rec.Body.String())
}

func TestEndpointWrite_OnlyNamedUser(t *testing.T) {
	e := newEnv(t)
	e.register(t, "alice")
	e.register(t, "bob")

	rec := e.do(t, http.MethodPut, "/networks/alice/net1", []byte(`{}`), "alice")
	require.Equal(t, http.StatusCreated, rec.Code)

	endpoint := []byte(`{"addresses":["10.0.0.1:4242"]}`)

	// the network owner cannot publish another user's endpoints:
	// auth failure, not not-found
	rec = e.do(t, http.MethodPut, "/networks/alice/net1/endpoints/bob/node1", endpoint, "alice")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = e.do(t, http.MethodPut, "/networks/alice/net1/endpoints/bob/node1", endpoint, "bob")
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = e.do(t, http.MethodGet, "/networks/alice/net1/endpoints", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var endpoints map[string]map[string]struct {
		State      string          `json:"state"`
		Descriptor json.RawMessage `json:"descriptor"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &endpoints))
	assert.Equal(t, "advertised", endpoints["bob"]["node1"].State)
}

func TestEndpointDelete_RevokesAndPreservesOthers(t *testing.T) {
	e := newEnv(t)
	e.register(t, "alice")
	e.register(t, "bob")

	rec := e.do(t, http.MethodPut, "/networks/alice/net1", []byte(`{}`), "alice")
	require.Equal(t, http.StatusCreated, rec.Code)

	ep := []byte(`{"addresses":["10.0.0.1:4242"]}`)
	rec = e.do(t, http.MethodPut, "/networks/alice/net1/endpoints/alice/node1", ep, "alice")
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = e.do(t, http.MethodPut, "/networks/alice/net1/endpoints/bob/node2", ep, "bob")
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = e.do(t, http.MethodDelete, "/networks/alice/net1/endpoints/alice/node1", nil, "alice")
	assert.Equal(t, http.StatusOK, rec.Code)
	// revocation is idempotent
	rec = e.do(t, http.MethodDelete, "/networks/alice/net1/endpoints/alice/node1", nil, "alice")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = e.do(t, http.MethodGet, "/networks/alice/net1/endpoints", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var endpoints map[string]map[string]struct {
		State string `json:"state"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &endpoints))
	assert.Equal(t, "revoked", endpoints["alice"]["node1"].State)
	assert.Equal(t, "advertised", endpoints["bob"]["node2"].State)
}

func TestNetworkDelete(t *testing.T) {
	e := newEnv(t)
	e.register(t, "alice")
	e.register(t, "bob")

	rec := e.do(t, http.MethodPut, "/networks/alice/net1", []byte(`{}`), "alice")
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = e.do(t, http.MethodDelete, "/networks/alice/net1", nil, "bob")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = e.do(t, http.MethodDelete, "/networks/alice/net1", nil, "alice")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = e.do(t, http.MethodDelete, "/networks/alice/net1", nil, "alice")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "network/not_found", errorField(t, rec))
}

func TestUserNetworksListing(t *testing.T) {
	e := newEnv(t)
	e.register(t, "alice")
	e.register(t, "bob")

	rec := e.do(t, http.MethodPut, "/networks/alice/net1", []byte(`{}`), "alice")
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = e.do(t, http.MethodPut, "/networks/alice/net1/passports/bob", []byte(`{"sig":"x"}`), "alice")
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = e.do(t, http.MethodGet, "/users/bob/networks", nil, "bob")
	require.Equal(t, http.StatusOK, rec.Code)
	var listing map[string][]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listing))
	assert.Equal(t, []string{"alice/net1"}, listing["networks"])

	// only the user themselves may list
	rec = e.do(t, http.MethodGet, "/users/bob/networks", nil, "alice")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestVolumeLifecycle(t *testing.T) {
	e := newEnv(t)
	e.register(t, "alice")

	descriptor := []byte(`{"network":"alice/net1"}`)
	rec := e.do(t, http.MethodPut, "/volumes/alice/vol1", descriptor, "alice")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = e.do(t, http.MethodPut, "/volumes/alice/vol1", descriptor, "alice")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "volume/conflict", errorField(t, rec))

	rec = e.do(t, http.MethodGet, "/volumes/alice/vol1", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = e.do(t, http.MethodDelete, "/volumes/alice/vol1", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = e.do(t, http.MethodDelete, "/volumes/alice/vol1", nil, "alice")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = e.do(t, http.MethodGet, "/volumes/alice/vol1", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "volume/not_found", errorField(t, rec))
}

func TestStaleTimestampRejected(t *testing.T) {
	e := newEnv(t)
	e.register(t, "alice")

	path := "/networks/alice/net1"
	body := []byte(`{}`)
	ts := strconv.FormatInt(time.Now().UTC().Add(-301*time.Second).Unix(), 10)
	sig, err := requestsig.Sign(e.keys["alice"], http.MethodPut, path, body, ts)
	require.NoError(t, err)

	r := httptest.NewRequest(http.MethodPut, path, bytes.NewReader(body))
	r.Header.Set("X-Signature", sig)
	r.Header.Set("X-Timestamp", ts)
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, r)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMissingTimestampIs400(t *testing.T) {
	e := newEnv(t)
	e.register(t, "alice")

	r := httptest.NewRequest(http.MethodDelete, "/users/alice", nil)
	r.Header.Set("X-Signature", "c2ln")
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, r)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAvatar_DisabledStorageIs501(t *testing.T) {
	e := newEnv(t)
	e.register(t, "alice")

	rec := e.do(t, http.MethodGet, "/users/alice/avatar", nil, "")
	assert.Equal(t, http.StatusNotImplemented, rec.Code)
}

func TestAvatarPut_RejectsBadContentType(t *testing.T) {
	e := newEnv(t)
	e.register(t, "alice")

	r := httptest.NewRequest(http.MethodPut, "/users/alice/avatar", bytes.NewReader([]byte("data")))
	r.Header.Set("Content-Type", "application/octet-stream")
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, r)

	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}

func TestOAuthAuthorize_Redirects(t *testing.T) {
	e := newEnv(t)
	e.register(t, "alice")

	rec := e.do(t, http.MethodGet, "/users/alice/dropbox-oauth", nil, "")
	require.Equal(t, http.StatusTemporaryRedirect, rec.Code)
	assert.Contains(t, rec.Header().Get("Location"), "dropbox.com")
	assert.Contains(t, rec.Header().Get("Location"), "state=alice")

	rec = e.do(t, http.MethodGet, "/users/alice/icloud-oauth", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
