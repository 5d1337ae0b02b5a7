package auth

import (
	"errors"
	"strconv"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

// ErrInvalidFormToken is returned when a submitted form token does not verify.
var ErrInvalidFormToken = errors.New("invalid form token")

// FormTokens issues and checks signed anti-forgery tokens embedded in HTML forms.
// A token is bound to the user it was rendered for, so it survives session id rotation.
type FormTokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewFormTokens builds a new manager.
func NewFormTokens(secret string, ttlMinutes int) *FormTokens {
	if ttlMinutes <= 0 {
		ttlMinutes = 120
	}
	return &FormTokens{secret: []byte(secret), ttl: time.Duration(ttlMinutes) * time.Minute, now: time.Now}
}

// FormClaims describes the token payload.
type FormClaims struct {
	jwt.RegisteredClaims
}

// Issue signs a token for the given user.
func (ft *FormTokens) Issue(userID int64) (string, error) {
	now := ft.now()
	claims := &FormClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			ExpiresAt: jwt.NewNumericDate(now.Add(ft.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(ft.secret)
}

// Verify checks signature, expiry and the bound user.
func (ft *FormTokens) Verify(tokenStr string, userID int64) error {
	if tokenStr == "" {
		return ErrInvalidFormToken
	}
	parsed, err := jwt.ParseWithClaims(tokenStr, &FormClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return ft.secret, nil
	}, jwt.WithTimeFunc(ft.now))
	if err != nil {
		return ErrInvalidFormToken
	}

	claims, ok := parsed.Claims.(*FormClaims)
	if !ok || !parsed.Valid {
		return ErrInvalidFormToken
	}
	if claims.Subject != strconv.FormatInt(userID, 10) {
		return ErrInvalidFormToken
	}
	return nil
}
