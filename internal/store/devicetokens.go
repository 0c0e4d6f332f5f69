// internal/store/devicetokens.go
package store

import (
	"context"
	"database/sql"

	"matchpoint-push/internal/common/errors"
	"matchpoint-push/internal/common/logger"
	"matchpoint-push/internal/models"
)

// DeviceTokenRepository reads device registrations for a user. The table is
// owned by the registration flow; this service never writes to it.
type DeviceTokenRepository struct {
	db     *sql.DB
	logger logger.Logger
}

func NewDeviceTokenRepository(db *sql.DB, log logger.Logger) *DeviceTokenRepository {
	return &DeviceTokenRepository{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"component": "device-token-store"}),
	}
}

// ListTokensForUser returns every device token registered to the user,
// oldest registration first. Zero rows is a valid result, not an error.
func (r *DeviceTokenRepository) ListTokensForUser(ctx context.Context, userID string) ([]models.DeviceToken, error) {
	query := `SELECT user_id, token, platform, created_at, last_used_at FROM device_tokens WHERE user_id = $1 ORDER BY created_at`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, errors.NewStoreQueryFailedError("device tokens", err)
	}
	defer rows.Close()

	var tokens []models.DeviceToken
	for rows.Next() {
		var dt models.DeviceToken
		if err := rows.Scan(&dt.UserID, &dt.Token, &dt.Platform, &dt.CreatedAt, &dt.LastUsedAt); err != nil {
			return nil, errors.NewStoreQueryFailedError("device tokens", err)
		}
		tokens = append(tokens, dt)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewStoreQueryFailedError("device tokens", err)
	}

	return tokens, nil
}
