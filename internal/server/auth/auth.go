// Package auth verifies signed directory requests against a user's
// registered public key and enforces the replay window on the declared
// timestamp.
package auth

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/dmitrijs2005/beyond/internal/common"
	"github.com/dmitrijs2005/beyond/internal/requestsig"
	"github.com/dmitrijs2005/beyond/internal/server/models"
)

// DefaultWindow is the maximum accepted skew between the server clock and
// the timestamp declared in a signed request, in either direction.
const DefaultWindow = 300 * time.Second

// Authenticator checks request signatures. The clock is injectable for
// window boundary tests.
type Authenticator struct {
	window time.Duration
	now    func() time.Time
}

func NewAuthenticator() *Authenticator {
	return &Authenticator{window: DefaultWindow, now: time.Now}
}

// Authenticate verifies that the request was signed by the given user within
// the replay window. body must be the exact bytes the signature covers.
//
// Failures come back as the sentinel errors in package common:
// missing headers, a timestamp outside the window, or a signature that does
// not verify. A stored key that cannot be parsed is an internal error, not
// an authentication failure.
func (a *Authenticator) Authenticate(r *http.Request, body []byte, user *models.User) error {
	signature := r.Header.Get(common.SignatureHeaderName)
	if signature == "" {
		return common.ErrorMissingSignature
	}
	timestamp := r.Header.Get(common.TimestampHeaderName)
	if timestamp == "" {
		return common.ErrorMissingTimestamp
	}

	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: timestamp %q is not an integer", common.ErrorMalformed, timestamp)
	}
	skew := a.now().UTC().Unix() - ts
	if skew < 0 {
		skew = -skew
	}
	if skew > int64(a.window/time.Second) {
		return common.ErrorTimestampOutOfWindow
	}

	pub, err := requestsig.ParsePublicKey(user.PublicKey.RSA)
	if err != nil {
		return fmt.Errorf("%w: stored key for %s: %v", common.ErrorInternal, user.Name, err)
	}
	if err := requestsig.Verify(pub, signature, r.Method, r.URL.Path, body, timestamp); err != nil {
		return common.ErrorSignatureMismatch
	}
	return nil
}
