// Package requestsig implements the canonical request-signing scheme used to
// authenticate directory calls. A request is signed by hashing a canonical
// string built from the HTTP method, the request path without its leading
// slash, the base64 SHA-256 digest of the body, and the caller-declared
// timestamp, then applying RSA PKCS#1 v1.5 over SHA-256.
//
// The canonical string format is a wire contract:
//
//	METHOD ";" PATH ";" base64(sha256(BODY)) ";" TIMESTAMP
//
// Timestamps are integer seconds since epoch, UTC, carried as decimal
// strings. The replay window is enforced by the authenticator, not here;
// this package is stateless and exactly reproducible.
package requestsig

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"fmt"
	"strings"
)

// BodyDigest returns the base64 standard encoding of the SHA-256 digest of
// body. An empty body digests like any other byte string.
func BodyDigest(body []byte) string {
	h := sha256.Sum256(body)
	return base64.StdEncoding.EncodeToString(h[:])
}

// CanonicalString builds the exact byte sequence that is hashed and signed.
// The leading slash of path is stripped; the rest of the path is used as-is.
func CanonicalString(method, path string, body []byte, timestamp string) string {
	return method + ";" + strings.TrimPrefix(path, "/") + ";" + BodyDigest(body) + ";" + timestamp
}

// Sign produces the base64 signature for a request with the given private key.
func Sign(priv *rsa.PrivateKey, method, path string, body []byte, timestamp string) (string, error) {
	hashed := sha256.Sum256([]byte(CanonicalString(method, path, body, timestamp)))
	sig, err := rsa.SignPKCS1v15(rand.Reader, priv, crypto.SHA256, hashed[:])
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(sig), nil
}

// Verify checks a base64 signature against the canonical string for the
// request. A decoding failure or signature mismatch both return an error;
// callers map it to their own auth-failure taxonomy.
func Verify(pub *rsa.PublicKey, signatureB64, method, path string, body []byte, timestamp string) error {
	sig, err := base64.StdEncoding.DecodeString(signatureB64)
	if err != nil {
		return fmt.Errorf("signature is not valid base64: %w", err)
	}
	hashed := sha256.Sum256([]byte(CanonicalString(method, path, body, timestamp)))
	return rsa.VerifyPKCS1v15(pub, crypto.SHA256, hashed[:], sig)
}

// ParsePublicKey decodes a base64 DER RSA public key. Both SubjectPublicKeyInfo
// and PKCS#1 encodings are accepted, since registered identities may carry
// either form.
func ParsePublicKey(b64 string) (*rsa.PublicKey, error) {
	der, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, fmt.Errorf("public key is not valid base64: %w", err)
	}
	if key, err := x509.ParsePKIXPublicKey(der); err == nil {
		rsaKey, ok := key.(*rsa.PublicKey)
		if !ok {
			return nil, fmt.Errorf("public key is not RSA")
		}
		return rsaKey, nil
	}
	rsaKey, err := x509.ParsePKCS1PublicKey(der)
	if err != nil {
		return nil, fmt.Errorf("cannot parse public key: %w", err)
	}
	return rsaKey, nil
}

// EncodePublicKey is the inverse of ParsePublicKey, producing base64
// SubjectPublicKeyInfo DER.
func EncodePublicKey(pub *rsa.PublicKey) (string, error) {
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(der), nil
}
