package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// HashPassword hashes a password using bcrypt
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), 10)
	return string(bytes), err
}

// CheckPasswordHash compares a password with a hash
func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// TokenIssuer signs and parses HS256 access tokens
type TokenIssuer struct {
	secret []byte
	now    func() time.Time
}

// NewTokenIssuer creates an issuer. now may be nil.
func NewTokenIssuer(secret string, now func() time.Time) *TokenIssuer {
	if now == nil {
		now = time.Now
	}
	return &TokenIssuer{secret: []byte(secret), now: now}
}

// Issue signs a token for p that expires at exp
func (i *TokenIssuer) Issue(p Principal, exp time.Time) (string, error) {
	claims := jwt.MapClaims{
		"jti":        p.TokenID,
		"sub":        p.UserID,
		"role":       string(p.Role),
		"name":       p.Name,
		"email":      p.Email,
		"centerId":   p.CenterID,
		"centerName": p.CenterName,
		"sid":        p.SessionID,
		"iat":        i.now().Unix(),
		"exp":        exp.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(i.secret)
}

// Parse validates a token's signature and expiry and returns its principal
func (i *TokenIssuer) Parse(tokenString string) (Principal, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return i.secret, nil
	}, jwt.WithTimeFunc(i.now), jwt.WithExpirationRequired())
	if err != nil {
		return Principal{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return Principal{}, ErrInvalidToken
	}

	str := func(k string) string {
		s, _ := claims[k].(string)
		return s
	}
	p := Principal{
		TokenID:    str("jti"),
		UserID:     str("sub"),
		Role:       Role(str("role")),
		Name:       str("name"),
		Email:      str("email"),
		CenterID:   str("centerId"),
		CenterName: str("centerName"),
		SessionID:  str("sid"),
	}
	if p.TokenID == "" {
		return Principal{}, fmt.Errorf("%w: missing jti", ErrInvalidToken)
	}
	return p, nil
}
