package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// ── users ──

func (s *PostgresStore) CreateUser(ctx context.Context, user User) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, display_name, email, password_hash, is_email_verified, verification_token)
		VALUES ($1, $2, LOWER($3), $4, $5, $6)
	`, user.ID, user.DisplayName, user.Email, user.PasswordHash, user.IsEmailVerified, nullIfEmpty(user.VerificationToken))
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (User, error) {
	var user User
	var token sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT id, display_name, email, password_hash, is_email_verified, COALESCE(verification_token, ''), deactivated_at
		FROM users WHERE email = LOWER($1)
	`, email).Scan(&user.ID, &user.DisplayName, &user.Email, &user.PasswordHash, &user.IsEmailVerified, &token.String, &user.DeactivatedAt)
	if err != nil {
		return User{}, err
	}
	user.VerificationToken = token.String
	return user, nil
}

func (s *PostgresStore) GetUserByID(ctx context.Context, userID string) (User, error) {
	var user User
	err := s.db.QueryRowContext(ctx, `
		SELECT id, display_name, email, password_hash, is_email_verified, deactivated_at
		FROM users WHERE id = $1
	`, userID).Scan(&user.ID, &user.DisplayName, &user.Email, &user.PasswordHash, &user.IsEmailVerified, &user.DeactivatedAt)
	if err != nil {
		return User{}, err
	}
	return user, nil
}

func (s *PostgresStore) UpdateUserVerificationToken(ctx context.Context, userID, token string, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE users SET verification_token=$2, verification_expires_at=$3, updated_at=NOW() WHERE id=$1
	`, userID, token, expiresAt)
	if err != nil {
		return fmt.Errorf("set verification token: %w", err)
	}
	return nil
}

func (s *PostgresStore) VerifyUserEmail(ctx context.Context, token string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE users
		SET is_email_verified=TRUE, verification_token=NULL, verification_expires_at=NULL, updated_at=NOW()
		WHERE verification_token=$1 AND verification_expires_at > NOW()
	`, token)
	if err != nil {
		return fmt.Errorf("verify email: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("verify email rows: %w", err)
	}
	if affected == 0 {
		return errors.New("invalid or expired verification token")
	}
	return nil
}

func (s *PostgresStore) UpdateUserPassword(ctx context.Context, userID, passwordHash string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE users SET password_hash=$2, updated_at=NOW() WHERE id=$1`, userID, passwordHash)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

func (s *PostgresStore) CreatePasswordReset(ctx context.Context, userID, token string, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO password_resets (token, user_id, expires_at) VALUES ($1, $2, $3)
	`, token, userID, expiresAt)
	if err != nil {
		return fmt.Errorf("create password reset: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetPasswordReset(ctx context.Context, token string) (string, error) {
	var userID string
	err := s.db.QueryRowContext(ctx, `
		SELECT user_id FROM password_resets WHERE token=$1 AND expires_at > NOW() AND used_at IS NULL
	`, token).Scan(&userID)
	if err != nil {
		return "", err
	}
	return userID, nil
}

func (s *PostgresStore) MarkPasswordResetUsed(ctx context.Context, token string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE password_resets SET used_at=NOW() WHERE token=$1`, token)
	if err != nil {
		return fmt.Errorf("mark reset used: %w", err)
	}
	return nil
}

// ── refresh sessions / revoked tokens ──

func (s *PostgresStore) SaveRefreshSession(ctx context.Context, tokenHash, userID string, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO refresh_sessions (token_hash, user_id, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (token_hash) DO UPDATE SET user_id=EXCLUDED.user_id, expires_at=EXCLUDED.expires_at, revoked_at=NULL
	`, tokenHash, userID, expiresAt)
	if err != nil {
		return fmt.Errorf("save refresh session: %w", err)
	}
	return nil
}

func (s *PostgresStore) LookupRefreshSession(ctx context.Context, tokenHash string) (User, error) {
	const query = `
		SELECT u.id, u.display_name, u.email
		FROM refresh_sessions rs
		JOIN users u ON u.id = rs.user_id
		WHERE rs.token_hash = $1
			AND rs.revoked_at IS NULL
			AND rs.expires_at > NOW()
	`
	var user User
	err := s.db.QueryRowContext(ctx, query, tokenHash).Scan(&user.ID, &user.DisplayName, &user.Email)
	if err != nil {
		return User{}, err
	}
	return user, nil
}

func (s *PostgresStore) RevokeRefreshSession(ctx context.Context, tokenHash string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE refresh_sessions SET revoked_at=NOW() WHERE token_hash=$1`, tokenHash)
	if err != nil {
		return fmt.Errorf("revoke refresh session: %w", err)
	}
	return nil
}

func (s *PostgresStore) RevokeAccessToken(ctx context.Context, jti string, exp time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO revoked_access_tokens (jti, expires_at)
		VALUES ($1, $2)
		ON CONFLICT (jti) DO NOTHING
	`, jti, exp)
	if err != nil {
		return fmt.Errorf("revoke access token: %w", err)
	}
	return nil
}

func (s *PostgresStore) IsAccessTokenRevoked(ctx context.Context, jti string) (bool, error) {
	var revoked bool
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM revoked_access_tokens WHERE jti=$1)`, jti).Scan(&revoked)
	if err != nil {
		return false, fmt.Errorf("check revoked token: %w", err)
	}
	return revoked, nil
}

// ── orgs / memberships ──

func (s *PostgresStore) InsertOrg(ctx context.Context, org Org) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO orgs (id, name, created_by) VALUES ($1, $2, $3)
	`, org.ID, org.Name, org.CreatedBy)
	if err != nil {
		return fmt.Errorf("insert org: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetOrg(ctx context.Context, orgID string) (Org, error) {
	var org Org
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, created_by, created_at, updated_at FROM orgs WHERE id=$1
	`, orgID).Scan(&org.ID, &org.Name, &org.CreatedBy, &org.CreatedAt, &org.UpdatedAt)
	if err != nil {
		return Org{}, err
	}
	return org, nil
}

func (s *PostgresStore) ListOrgsForUser(ctx context.Context, userID string) ([]Org, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT o.id, o.name, o.created_by, o.created_at, o.updated_at
		FROM orgs o
		JOIN org_memberships m ON m.org_id = o.id
		WHERE m.user_id = $1
		ORDER BY o.name
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list orgs: %w", err)
	}
	defer rows.Close()

	items := make([]Org, 0)
	for rows.Next() {
		var org Org
		if err := rows.Scan(&org.ID, &org.Name, &org.CreatedBy, &org.CreatedAt, &org.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan org: %w", err)
		}
		items = append(items, org)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate orgs: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) UpsertMembership(ctx context.Context, m Membership) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO org_memberships (org_id, user_id, role, notify_enabled)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (org_id, user_id) DO UPDATE SET role=EXCLUDED.role
	`, m.OrgID, m.UserID, m.Role, m.NotifyEnabled)
	if err != nil {
		return fmt.Errorf("upsert membership: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetMembership(ctx context.Context, orgID, userID string) (Membership, error) {
	var m Membership
	err := s.db.QueryRowContext(ctx, `
		SELECT m.org_id, m.user_id, m.role, m.notify_enabled, u.display_name, u.email, m.created_at
		FROM org_memberships m
		JOIN users u ON u.id = m.user_id
		WHERE m.org_id=$1 AND m.user_id=$2
	`, orgID, userID).Scan(&m.OrgID, &m.UserID, &m.Role, &m.NotifyEnabled, &m.DisplayName, &m.Email, &m.CreatedAt)
	if err != nil {
		return Membership{}, err
	}
	return m, nil
}

func (s *PostgresStore) ListMemberships(ctx context.Context, orgID string) ([]Membership, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT m.org_id, m.user_id, m.role, m.notify_enabled, u.display_name, u.email, m.created_at
		FROM org_memberships m
		JOIN users u ON u.id = m.user_id
		WHERE m.org_id=$1
		ORDER BY u.display_name
	`, orgID)
	if err != nil {
		return nil, fmt.Errorf("list memberships: %w", err)
	}
	defer rows.Close()

	items := make([]Membership, 0)
	for rows.Next() {
		var m Membership
		if err := rows.Scan(&m.OrgID, &m.UserID, &m.Role, &m.NotifyEnabled, &m.DisplayName, &m.Email, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan membership: %w", err)
		}
		items = append(items, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate memberships: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) UpdateMembershipRole(ctx context.Context, orgID, userID, role string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE org_memberships SET role=$3 WHERE org_id=$1 AND user_id=$2
	`, orgID, userID, role)
	if err != nil {
		return false, fmt.Errorf("update membership role: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update membership rows: %w", err)
	}
	return affected > 0, nil
}

func (s *PostgresStore) SetMembershipNotify(ctx context.Context, orgID, userID string, enabled bool) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE org_memberships SET notify_enabled=$3 WHERE org_id=$1 AND user_id=$2
	`, orgID, userID, enabled)
	if err != nil {
		return false, fmt.Errorf("set membership notify: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("set membership notify rows: %w", err)
	}
	return affected > 0, nil
}

func (s *PostgresStore) DeleteMembership(ctx context.Context, orgID, userID string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM org_memberships WHERE org_id=$1 AND user_id=$2`, orgID, userID)
	if err != nil {
		return false, fmt.Errorf("delete membership: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete membership rows: %w", err)
	}
	return affected > 0, nil
}

func nullIfEmpty(value string) any {
	if value == "" {
		return nil
	}
	return value
}
