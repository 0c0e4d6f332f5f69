// internal/common/fcm/credentials.go
package fcm

import (
	"crypto/rsa"
	"encoding/base64"
	"fmt"
	"strings"

	"matchpoint-push/internal/common/config"
	"matchpoint-push/internal/common/errors"
)

// ServiceAccount is the parsed service-account secret used to authenticate
// server-to-server against FCM. Immutable once loaded.
type ServiceAccount struct {
	ClientEmail string
	PrivateKey  string // PEM, possibly with literal \n escape sequences
	ProjectID   string
}

// LoadServiceAccount builds a ServiceAccount from process configuration.
// All three fields are required; a missing one is a configuration error and
// no network call is ever attempted with a partial credential.
func LoadServiceAccount(cfg config.FCMConfig) (*ServiceAccount, error) {
	var missing []string
	if cfg.ClientEmail == "" {
		missing = append(missing, "client_email")
	}
	if cfg.PrivateKey == "" {
		missing = append(missing, "private_key")
	}
	if cfg.ProjectID == "" {
		missing = append(missing, "project_id")
	}
	if len(missing) > 0 {
		return nil, errors.NewCredentialMissingError(fmt.Sprintf("missing fields: %s", strings.Join(missing, ", ")))
	}

	return &ServiceAccount{
		ClientEmail: cfg.ClientEmail,
		PrivateKey:  cfg.PrivateKey,
		ProjectID:   cfg.ProjectID,
	}, nil
}

// ParsePrivateKey normalizes the PEM text and imports the RSA key.
// Secrets injected through env files commonly arrive with escaped newlines,
// so literal \n sequences are converted to real newlines before the banners
// and whitespace are stripped and the body is base64-decoded.
func (sa *ServiceAccount) ParsePrivateKey() (*rsa.PrivateKey, error) {
	pemText := strings.ReplaceAll(sa.PrivateKey, `\n`, "\n")

	var body strings.Builder
	for _, line := range strings.Split(pemText, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "-----") {
			continue
		}
		body.WriteString(line)
	}

	der, err := base64.StdEncoding.DecodeString(body.String())
	if err != nil {
		return nil, errors.NewCredentialInvalidError(fmt.Errorf("private key is not valid base64: %w", err))
	}

	key, err := parseRSAKey(der)
	if err != nil {
		return nil, errors.NewCredentialInvalidError(err)
	}

	return key, nil
}
