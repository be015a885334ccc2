package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"

	"github.com/vitalstack/auth-service/internal/model"
	"github.com/vitalstack/auth-service/internal/utils"
)

// UserRepo is the credential store over the `users` table.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userColumns = "id,email,password_hash,external_id,name,avatar_url,role,status,fitness_metrics,created_at,updated_at"

// Create hashes the password and inserts a new user with role `user` and an
// empty metrics document. Returns ErrEmailExists on a duplicate email.
func (r *UserRepo) Create(ctx context.Context, email, password, name string, cost int) (uint64, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (email, password_hash, name, role, status, fitness_metrics) VALUES (?,?,?,?,?,?)",
		email, hash, name, model.RoleUser, model.StatusActive, "{}")
	if err != nil {
		if isDuplicate(err) {
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", email)
	return scanUser(row)
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id)
	return scanUser(row)
}

// UpdateMetrics merges a partial metrics patch into the user's JSON document
// and returns the merged result. No cross-row atomicity is needed; each user
// only ever patches their own document.
func (r *UserRepo) UpdateMetrics(ctx context.Context, id uint64, patch model.MetricsPatch) (model.FitnessMetrics, error) {
	u, err := r.GetByID(ctx, id)
	if err != nil {
		return model.FitnessMetrics{}, err
	}
	patch.Apply(&u.Metrics)
	blob, err := json.Marshal(u.Metrics)
	if err != nil {
		return model.FitnessMetrics{}, err
	}
	if _, err := r.DB.ExecContext(ctx,
		"UPDATE users SET fitness_metrics=? WHERE id=?", blob, id); err != nil {
		return model.FitnessMetrics{}, err
	}
	return u.Metrics, nil
}

// UpsertFederated syncs a federated sign-in into the credential store. The
// precedence mirrors the storefront's identity-linking rules: match on
// external id first, then link by email, then create a password-less
// account. The second return value reports whether a new row was created.
func (r *UserRepo) UpsertFederated(ctx context.Context, externalID, email, name, avatarURL string) (model.User, bool, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	u, err := r.getByExternalID(ctx, externalID)
	switch err {
	case nil:
		if err := r.syncProfile(ctx, u.ID, email, name, avatarURL, externalID); err != nil {
			return model.User{}, false, err
		}
		u, err = r.GetByID(ctx, u.ID)
		return u, false, err
	case ErrNotFound:
		// fall through to email linking
	default:
		return model.User{}, false, err
	}

	u, err = r.GetByEmail(ctx, email)
	switch err {
	case nil:
		// Existing password account: attach the federated identity.
		if err := r.syncProfile(ctx, u.ID, email, name, avatarURL, externalID); err != nil {
			return model.User{}, false, err
		}
		u, err = r.GetByID(ctx, u.ID)
		return u, false, err
	case ErrNotFound:
		// fall through to create
	default:
		return model.User{}, false, err
	}

	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (email, external_id, name, avatar_url, role, status, fitness_metrics) VALUES (?,?,?,?,?,?,?)",
		email, externalID, name, avatarURL, model.RoleUser, model.StatusActive, "{}")
	if err != nil {
		return model.User{}, false, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.User{}, false, err
	}
	u, err = r.GetByID(ctx, uint64(id))
	return u, true, err
}

func (r *UserRepo) getByExternalID(ctx context.Context, externalID string) (model.User, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE external_id=? LIMIT 1", externalID)
	return scanUser(row)
}

func (r *UserRepo) syncProfile(ctx context.Context, id uint64, email, name, avatarURL, externalID string) error {
	_, err := r.DB.ExecContext(ctx,
		`UPDATE users SET email=?, external_id=?,
		        name=IF(?='', name, ?), avatar_url=IF(?='', avatar_url, ?)
		 WHERE id=?`,
		email, externalID, name, name, avatarURL, avatarURL, id)
	return err
}

func scanUser(row *sql.Row) (model.User, error) {
	var (
		u          model.User
		pwHash     sql.NullString
		externalID sql.NullString
		avatar     sql.NullString
		metrics    []byte
	)
	err := row.Scan(&u.ID, &u.Email, &pwHash, &externalID, &u.Name, &avatar,
		&u.Role, &u.Status, &metrics, &u.CreatedAt, &u.UpdatedAt)
	if err == sql.ErrNoRows {
		return model.User{}, ErrNotFound
	}
	if err != nil {
		return model.User{}, err
	}
	u.PasswordHash = pwHash.String
	u.ExternalID = externalID.String
	u.AvatarURL = avatar.String
	if len(metrics) > 0 {
		if err := json.Unmarshal(metrics, &u.Metrics); err != nil {
			return model.User{}, err
		}
	}
	return u, nil
}

// isDuplicate detects MySQL error 1062 (duplicate entry for a unique key).
func isDuplicate(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "1062")
}
