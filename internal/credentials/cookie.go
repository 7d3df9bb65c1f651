package credentials

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// CookieName is the browser cookie carrying the signed user id.
const CookieName = "plugvox_uid"

const cookieMaxAge = 30 * 24 * time.Hour

// ErrBadCookie is returned for missing, malformed or forged cookies.
var ErrBadCookie = errors.New("credentials: invalid session cookie")

// Signer issues and verifies user-id cookies. The cookie never carries the
// credentials themselves.
type Signer struct {
	key []byte
}

// NewSigner creates a Signer. An empty secret generates a random per-process
// key, so cookies stop verifying after a restart.
func NewSigner(secret string) *Signer {
	key := []byte(secret)
	if len(key) == 0 {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			panic("credentials: reading random key: " + err.Error())
		}
	}
	return &Signer{key: key}
}

// NewUserID returns a fresh opaque user id.
func NewUserID() string {
	return uuid.NewString()
}

func (s *Signer) sign(userID string) string {
	mac := hmac.New(sha256.New, s.key)
	mac.Write([]byte(userID))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// Encode returns the cookie value for userID.
func (s *Signer) Encode(userID string) string {
	return userID + "." + s.sign(userID)
}

// Decode verifies a cookie value and returns the user id it carries.
func (s *Signer) Decode(value string) (string, error) {
	userID, tag, ok := strings.Cut(value, ".")
	if !ok || userID == "" {
		return "", ErrBadCookie
	}
	if _, err := uuid.Parse(userID); err != nil {
		return "", ErrBadCookie
	}
	if !hmac.Equal([]byte(tag), []byte(s.sign(userID))) {
		return "", ErrBadCookie
	}
	return userID, nil
}

// SetCookie writes the signed user-id cookie.
func (s *Signer) SetCookie(w http.ResponseWriter, r *http.Request, userID string) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    s.Encode(userID),
		Path:     "/",
		MaxAge:   int(cookieMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearCookie expires the user-id cookie.
func (s *Signer) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
}

// UserID extracts and verifies the user id from the request cookie.
func (s *Signer) UserID(r *http.Request) (string, error) {
	c, err := r.Cookie(CookieName)
	if err != nil {
		return "", ErrBadCookie
	}
	return s.Decode(c.Value)
}
