package common

// SignatureHeaderName carries the base64 RSA signature over the canonical
// request string on authenticated calls.
const SignatureHeaderName = "X-Signature"

// TimestampHeaderName carries the caller-declared request time as integer
// seconds since epoch, UTC.
const TimestampHeaderName = "X-Timestamp"
