package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
)

var csrfSalt = []byte("paku.core.auth.csrf")

// CSRFToken derives the anti-forgery token bound to a session id.
func CSRFToken(secret, sessionID string) string {
	key := sha256.Sum256(append(append([]byte{}, csrfSalt...), secret...))
	h := hmac.New(sha256.New, key[:])
	_, _ = h.Write([]byte(sessionID))
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil))
}

// VerifyCSRFToken compares in constant time.
func VerifyCSRFToken(secret, sessionID, token string) bool {
	if sessionID == "" || token == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(CSRFToken(secret, sessionID)), []byte(token)) == 1
}
