package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/brewlog/internal/apperror"
	"github.com/sakif/brewlog/internal/model"
	"github.com/sakif/brewlog/internal/repository"
)

// compile-time check that *DB implements repository.UserRepository
var _ repository.UserRepository = (*DB)(nil)

// UpsertExternal inserts or updates a user keyed by (Provider, ExternalID).
//
// A returning user keeps their internal ID, which is the openid every
// published record is attributed to. The provider profile only seeds the
// nickname and avatar on first login; afterwards the user's own
// saveUserProfile choices win.
func (db *DB) UpsertExternal(ctx context.Context, user *model.User) error {
	var existing model.User
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, nick_name, avatar_url, created_at FROM users
		 WHERE provider = ? AND external_id = ?`,
		user.Provider, user.ExternalID,
	).Scan(&existing.ID, &existing.NickName, &existing.AvatarURL, &existing.CreatedAt)

	if err != nil && !isNoRows(err) {
		return fmt.Errorf("sqlite: looking up user %s:%s: %w", user.Provider, user.ExternalID, err)
	}

	now := time.Now().UTC()

	if existing.ID != "" {
		user.ID = existing.ID
		user.CreatedAt = existing.CreatedAt
		user.UpdatedAt = now
		if existing.NickName != "" {
			user.NickName = existing.NickName
		}
		if existing.AvatarURL != "" {
			user.AvatarURL = existing.AvatarURL
		}
		_, err = db.conn.ExecContext(ctx,
			`UPDATE users SET nick_name = ?, avatar_url = ?, updated_at = ? WHERE id = ?`,
			user.NickName, user.AvatarURL, user.UpdatedAt, user.ID,
		)
		if err != nil {
			return fmt.Errorf("sqlite: updating user %s: %w", user.ID, err)
		}
		return nil
	}

	user.ID = xid.New().String()
	user.CreatedAt = now
	user.UpdatedAt = now

	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO users (id, provider, external_id, nick_name, avatar_url, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.Provider,
		user.ExternalID,
		user.NickName,
		user.AvatarURL,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("user", user.Provider+":"+user.ExternalID)
		}
		return fmt.Errorf("sqlite: inserting user %s:%s: %w", user.Provider, user.ExternalID, err)
	}
	return nil
}

// GetUserByID retrieves a user by their openid.
// Returns apperror.ErrNotFound if no user exists with that ID.
func (db *DB) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	var u model.User

	err := db.conn.QueryRowContext(ctx,
		`SELECT id, provider, external_id, nick_name, avatar_url, created_at, updated_at
		 FROM users WHERE id = ?`,
		id,
	).Scan(
		&u.ID,
		&u.Provider,
		&u.ExternalID,
		&u.NickName,
		&u.AvatarURL,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, apperror.NotFound("user", id)
		}
		return nil, fmt.Errorf("sqlite: getting user %s: %w", id, err)
	}

	return &u, nil
}

// UpdateProfile stores the nickname and avatar the user picked.
func (db *DB) UpdateProfile(ctx context.Context, id string, profile model.Profile) error {
	result, err := db.conn.ExecContext(ctx,
		`UPDATE users SET nick_name = ?, avatar_url = ?, updated_at = ? WHERE id = ?`,
		profile.NickName, profile.AvatarURL, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating profile of %s: %w", id, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rows == 0 {
		return apperror.NotFound("user", id)
	}
	return nil
}
