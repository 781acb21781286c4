package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/nebula-auto-parts/storefront/internal/apperror"
	"github.com/nebula-auto-parts/storefront/internal/model"
	"github.com/nebula-auto-parts/storefront/internal/repository"
)

// compile-time check that *DB implements repository.UserRepository
var _ repository.UserRepository = (*DB)(nil)

const userColumns = `id, google_id, name, email, password_hash, phone, gender, address,
	profile_picture, role, created_at, updated_at`

// translateUserWriteErr turns unique-key failures into validation errors
// naming the offending field.
func translateUserWriteErr(err error, user *model.User, op string) error {
	switch {
	case uniqueViolation(err, "users.email"):
		return apperror.Duplicate("email", user.Email)
	case uniqueViolation(err, "users.google_id"):
		return apperror.Duplicate("googleId", *user.GoogleID)
	}
	return fmt.Errorf("sqlite: %s user %s: %w", op, user.Email, err)
}

// Create inserts a new user, assigning ID and timestamps. Role defaults to
// model.RoleUser.
func (db *DB) Create(ctx context.Context, user *model.User) error {
	now := time.Now()
	user.ID = xid.New().String()
	user.CreatedAt = now
	user.UpdatedAt = now
	if user.Role == "" {
		user.Role = model.RoleUser
	}

	_, err := db.conn.NamedExecContext(ctx,
		`INSERT INTO users (id, google_id, name, email, password_hash, phone, gender, address,
		                    profile_picture, role, created_at, updated_at)
		 VALUES (:id, :google_id, :name, :email, :password_hash, :phone, :gender, :address,
		         :profile_picture, :role, :created_at, :updated_at)`,
		user,
	)
	if err != nil {
		return translateUserWriteErr(err, user, "creating")
	}
	return nil
}

func (db *DB) getUser(ctx context.Context, where string, arg any, label string) (*model.User, error) {
	var u model.User
	err := db.conn.GetContext(ctx, &u, `SELECT `+userColumns+` FROM users WHERE `+where, arg)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", fmt.Sprint(arg))
		}
		return nil, fmt.Errorf("sqlite: getting user by %s: %w", label, err)
	}
	return &u, nil
}

// GetUserByID retrieves a user by their internal ID.
// Returns apperror.ErrNotFound if no user exists with that ID.
func (db *DB) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	return db.getUser(ctx, "id = ?", id, "id")
}

// GetByEmail looks up a user by (already normalized) email.
func (db *DB) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return db.getUser(ctx, "email = ?", email, "email")
}

// GetByGoogleID looks up a user by their Google account subject.
func (db *DB) GetByGoogleID(ctx context.Context, googleID string) (*model.User, error) {
	return db.getUser(ctx, "google_id = ?", googleID, "google id")
}

// Update writes every mutable field of user. ID and CreatedAt are never
// changed; UpdatedAt is set to now.
func (db *DB) Update(ctx context.Context, user *model.User) error {
	user.UpdatedAt = time.Now()

	result, err := db.conn.NamedExecContext(ctx,
		`UPDATE users
		 SET google_id = :google_id, name = :name, email = :email, password_hash = :password_hash,
		     phone = :phone, gender = :gender, address = :address,
		     profile_picture = :profile_picture, role = :role, updated_at = :updated_at
		 WHERE id = :id`,
		user,
	)
	if err != nil {
		return translateUserWriteErr(err, user, "updating")
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("user", user.ID)
	}
	return nil
}

// Delete removes a user. Their cart lines go with them (ON DELETE CASCADE);
// orders are kept.
func (db *DB) Delete(ctx context.Context, id string) error {
	result, err := db.conn.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting user %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("user", id)
	}
	return nil
}

// List returns every user, oldest first.
func (db *DB) List(ctx context.Context) ([]model.User, error) {
	users := []model.User{}
	err := db.conn.SelectContext(ctx, &users,
		`SELECT `+userColumns+` FROM users ORDER BY created_at, rowid`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing users: %w", err)
	}
	return users, nil
}

// SetProfilePicture points userID at blobID, or clears it when blobID is nil.
func (db *DB) SetProfilePicture(ctx context.Context, userID string, blobID *string) error {
	result, err := db.conn.ExecContext(ctx,
		`UPDATE users SET profile_picture = ?, updated_at = ? WHERE id = ?`,
		blobID, time.Now(), userID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: setting profile picture for %s: %w", userID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("user", userID)
	}
	return nil
}

// ClearProfilePicture unsets blobID from every user referencing it and
// returns how many users were changed.
func (db *DB) ClearProfilePicture(ctx context.Context, blobID string) (int64, error) {
	result, err := db.conn.ExecContext(ctx,
		`UPDATE users SET profile_picture = NULL, updated_at = ? WHERE profile_picture = ?`,
		time.Now(), blobID,
	)
	if err != nil {
		return 0, fmt.Errorf("sqlite: clearing profile picture %s: %w", blobID, err)
	}
	return result.RowsAffected()
}
