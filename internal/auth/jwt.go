package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"gwi.com/finance-chat/internal/store"
)

const tokenTTL = 24 * time.Hour

// GenerateJWT mints a token whose subject is the user identity.
func GenerateJWT(secret string, identity store.Identity) (string, error) {
	if identity.IsZero() {
		return "", errors.New("identity is required")
	}
	claims := jwt.MapClaims{
		"sub": string(identity),
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(tokenTTL).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ValidateJWT returns the identity carried in the token's subject.
func ValidateJWT(secret, tokenString string) (store.Identity, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return "", err
	}

	sub, err := token.Claims.GetSubject()
	if err != nil || sub == "" || !token.Valid {
		return "", fmt.Errorf("invalid token")
	}
	return store.Identity(sub), nil
}
