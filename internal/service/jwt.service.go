package service

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

const identityKey = "id"

type Claims struct {
	Identity string `json:"id"`
}

// GenerateJWT signs a token for identity. A non-positive ttl issues a token without expiry.
func (s *service) GenerateJWT(identity string, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		identityKey: identity,
	}
	if ttl > 0 {
		claims["exp"] = jwt.NewNumericDate(time.Now().Add(ttl))
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	return token.SignedString(s.secret)
}

func (s *service) ParseJWT(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, jwt.MapClaims{}, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, errors.Join(ErrInvalidToken, err)
	}

	if !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}

	identity, ok := claims[identityKey].(string)
	if !ok || identity == "" {
		return nil, ErrInvalidToken
	}

	return &Claims{
		Identity: identity,
	}, nil
}
