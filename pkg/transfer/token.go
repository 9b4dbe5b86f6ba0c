package transfer

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/largo-sh/largo/pkg/jwk"
	"github.com/largo-sh/largo/pkg/storage"
)

// ErrInvalidToken is returned when an action token is invalid.
var ErrInvalidToken = errors.New("invalid token")

// SignActionToken signs a token authorizing object storage requests for key.
// The token expires after lifetime, matching the advisory expires_in on the
// action it is attached to.
func SignActionToken(kp jwk.Pair, issuer string, key storage.ObjectKey, lifetime time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   key.String(),
		ExpiresAt: jwt.NewNumericDate(now.Add(lifetime)),
		NotBefore: jwt.NewNumericDate(now),
		IssuedAt:  jwt.NewNumericDate(now),
		Issuer:    issuer,
		Audience:  []string{key.Namespace},
	}

	token := jwt.NewWithClaims(jwk.SigningMethod, claims)
	token.Header["kid"] = kp.JWK().KeyID
	return token.SignedString(kp.PrivateKey())
}

// VerifyActionToken parses and validates a bearer action token for the given
// namespace and returns its claims.
func VerifyActionToken(kp jwk.Pair, issuer, bearer, namespace string) (*jwt.RegisteredClaims, error) {
	token, err := jwt.ParseWithClaims(bearer, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodEd25519); !ok {
			return nil, errors.New("invalid signing method")
		}

		return kp.PublicKey(), nil
	},
		jwt.WithIssuer(issuer),
		jwt.WithIssuedAt(),
		jwt.WithAudience(namespace),
	)
	if err != nil {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !token.Valid || !ok {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
