// internal/common/fcm/assertion.go
package fcm

import (
	"crypto/rsa"
	"crypto/x509"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"matchpoint-push/internal/common/errors"
)

// MessagingScope is the OAuth2 scope required to call the FCM send API.
const MessagingScope = "https://www.googleapis.com/auth/firebase.messaging"

// assertionLifetime is the validity Google expects on a JWT-bearer assertion.
const assertionLifetime = time.Hour

// BuildAssertion signs a short-lived RS256 assertion proving the service
// account's identity. The audience is the token endpoint the assertion will
// be presented to. Created fresh per exchange, never persisted.
func BuildAssertion(sa *ServiceAccount, tokenEndpoint string, now time.Time) (string, error) {
	key, err := sa.ParsePrivateKey()
	if err != nil {
		return "", err
	}

	claims := jwt.MapClaims{
		"iss":   sa.ClientEmail,
		"scope": MessagingScope,
		"aud":   tokenEndpoint,
		"iat":   now.Unix(),
		"exp":   now.Add(assertionLifetime).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	signed, err := token.SignedString(key)
	if err != nil {
		return "", errors.NewCredentialInvalidError(fmt.Errorf("signing assertion: %w", err))
	}

	return signed, nil
}

// parseRSAKey imports a DER-encoded private key, trying PKCS8 first (the
// format Google issues service-account keys in) with a PKCS1 fallback.
func parseRSAKey(der []byte) (*rsa.PrivateKey, error) {
	if key, err := x509.ParsePKCS8PrivateKey(der); err == nil {
		rsaKey, ok := key.(*rsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("private key is not an RSA key")
		}
		return rsaKey, nil
	}

	key, err := x509.ParsePKCS1PrivateKey(der)
	if err != nil {
		return nil, fmt.Errorf("private key is neither PKCS8 nor PKCS1: %w", err)
	}
	return key, nil
}
