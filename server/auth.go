package server

import (
	"fmt"
	"time"

	"github.com/dgrijalva/jwt-go"
	log "github.com/sirupsen/logrus"

	"github.com/alfredovitale/frogger-server/common"
)

// AuthService is the credential store boundary. A nil error means the
// operation succeeded; a non-nil error carries the message shown to the
// player.
type AuthService interface {
	Register(username, password string) error
	Login(username, password string) error
}

// ScoreService is the leaderboard boundary.
type ScoreService interface {
	GetScores() (common.Scores, error)
	RecordWin(username string) error
}

// tokenLifetime is how long a session token stays valid. Long enough to
// cover a play session; a client past it simply logs in again.
const tokenLifetime = 24 * time.Hour

// TokenAuthority issues and verifies the signed session tokens returned in
// login responses. A valid token lets a reconnecting client resume its
// identity without resending credentials.
type TokenAuthority struct {
	secret []byte // HMAC secret used for signing JWTs
}

func NewTokenAuthority(secret []byte) *TokenAuthority {
	return &TokenAuthority{secret: secret}
}

// Issue creates a signed token for the given username.
func (authority *TokenAuthority) Issue(username string) (string, error) {
	t := jwt.NewWithClaims(jwt.SigningMethodHS384, jwt.MapClaims{
		"iss": common.SoftwareName,
		"sub": username,
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(tokenLifetime).Unix(),
	})

	return t.SignedString(authority.secret)
}

// Verify checks a token's signature and expiry, returning the username it
// was issued for.
func (authority *TokenAuthority) Verify(tokenStr string) (string, bool) {
	decodedToken, err := jwt.ParseWithClaims(tokenStr, &jwt.StandardClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}

		return authority.secret, nil
	})

	if err != nil {
		log.WithError(err).Warn("Failed to decode token, probably invalid signature")
		return "", false
	}

	if claims, ok := decodedToken.Claims.(*jwt.StandardClaims); ok && decodedToken.Valid {
		if time.Now().After(time.Unix(claims.ExpiresAt, 0)) {
			return "", false
		}

		return claims.Subject, true
	}

	return "", false
}
