package requestsig

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return priv
}

func TestCanonicalString_ExactFormat(t *testing.T) {
	body := []byte(`{"name":"alice"}`)
	digest := sha256.Sum256(body)

	got := CanonicalString("PUT", "/users/alice", body, "1700000000")
	want := "PUT;users/alice;" + base64.StdEncoding.EncodeToString(digest[:]) + ";1700000000"
	assert.Equal(t, want, got)
}

func TestCanonicalString_EmptyBody(t *testing.T) {
	digest := sha256.Sum256(nil)

	got := CanonicalString("DELETE", "/users/alice", nil, "42")
	want := "DELETE;users/alice;" + base64.StdEncoding.EncodeToString(digest[:]) + ";42"
	assert.Equal(t, want, got)
}

func TestSignVerify_RoundTrip(t *testing.T) {
	priv := testKey(t)
	body := []byte(`{"passport":"blob"}`)

	sig, err := Sign(priv, "PUT", "/networks/alice/net1/passports/bob", body, "1700000000")
	require.NoError(t, err)

	err = Verify(&priv.PublicKey, sig, "PUT", "/networks/alice/net1/passports/bob", body, "1700000000")
	assert.NoError(t, err)
}

func TestVerify_RejectsTamperedRequest(t *testing.T) {
	priv := testKey(t)
	body := []byte(`{"v":1}`)

	sig, err := Sign(priv, "PUT", "/volumes/alice/v1", body, "1700000000")
	require.NoError(t, err)

	// any canonical component change must invalidate the signature
	assert.Error(t, Verify(&priv.PublicKey, sig, "DELETE", "/volumes/alice/v1", body, "1700000000"))
	assert.Error(t, Verify(&priv.PublicKey, sig, "PUT", "/volumes/alice/v2", body, "1700000000"))
	assert.Error(t, Verify(&priv.PublicKey, sig, "PUT", "/volumes/alice/v1", []byte(`{"v":2}`), "1700000000"))
	assert.Error(t, Verify(&priv.PublicKey, sig, "PUT", "/volumes/alice/v1", body, "1700000001"))
}

func TestVerify_RejectsWrongKey(t *testing.T) {
	priv := testKey(t)
	other := testKey(t)

	sig, err := Sign(priv, "GET", "/users/alice/networks", nil, "1700000000")
	require.NoError(t, err)

	assert.Error(t, Verify(&other.PublicKey, sig, "GET", "/users/alice/networks", nil, "1700000000"))
}

func TestVerify_RejectsBadBase64(t *testing.T) {
	priv := testKey(t)
	assert.Error(t, Verify(&priv.PublicKey, "%%%not-base64%%%", "GET", "/users/alice", nil, "1"))
}

func TestParsePublicKey_PKIXAndPKCS1(t *testing.T) {
	priv := testKey(t)

	pkix, err := EncodePublicKey(&priv.PublicKey)
	require.NoError(t, err)
	got, err := ParsePublicKey(pkix)
	require.NoError(t, err)
	assert.True(t, priv.PublicKey.Equal(got))

	pkcs1 := base64.StdEncoding.EncodeToString(x509.MarshalPKCS1PublicKey(&priv.PublicKey))
	got, err = ParsePublicKey(pkcs1)
	require.NoError(t, err)
	assert.True(t, priv.PublicKey.Equal(got))
}

func TestParsePublicKey_Invalid(t *testing.T) {
	_, err := ParsePublicKey("!!!")
	assert.Error(t, err)

	_, err = ParsePublicKey(base64.StdEncoding.EncodeToString([]byte("junk")))
	assert.Error(t, err)
}
