package repositories

import (
	"context"
	"fmt"
	"strings"

	intdb "busticket/internal/db"
	"busticket/internal/domain/models"
)

type UserRepository struct {
	DB intdb.DBTX
}

func (r UserRepository) db() intdb.DBTX { return conn(r.DB) }

// Create inserts a user. A taken email surfaces as MySQL 1062.
func (r UserRepository) Create(ctx context.Context, u models.User) (int64, error) {
	res, err := r.db().ExecContext(ctx, `
		INSERT INTO users (name, email, phone, password_hash, role) VALUES (?, ?, ?, ?, ?)
	`, u.Name, strings.ToLower(strings.TrimSpace(u.Email)), u.Phone, u.PasswordHash, u.Role)
	if err != nil {
		return 0, fmt.Errorf("insert user: %w", err)
	}
	return res.LastInsertId()
}

// GetByEmail returns sql.ErrNoRows for unknown emails.
func (r UserRepository) GetByEmail(ctx context.Context, email string) (models.User, error) {
	var u models.User
	err := r.db().QueryRowContext(ctx, `
		SELECT id, name, email, phone, role, password_hash FROM users WHERE email = ? LIMIT 1
	`, strings.ToLower(strings.TrimSpace(email))).Scan(&u.ID, &u.Name, &u.Email, &u.Phone, &u.Role, &u.PasswordHash)
	if err != nil {
		return models.User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}
