package users

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/subhub/telecom-subscriptions/pkg/db/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository persists subscriber accounts.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to tx.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

func (r *Repository) table(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.User{})
}

func (r *Repository) first(q *gorm.DB, conds ...any) (*models.User, error) {
	var user models.User
	if err := q.First(&user, conds...).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *Repository) setColumns(ctx context.Context, id uuid.UUID, cols map[string]any) error {
	if len(cols) == 0 {
		return nil
	}
	return r.table(ctx).Where("id = ?", id).UpdateColumns(cols).Error
}

func (r *Repository) Create(ctx context.Context, dto CreateUserDTO) (*models.User, error) {
	user := dto.ToModel()
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return r.first(r.db.WithContext(ctx), "id = ?", id)
}

// FindByEmail matches case-insensitively.
func (r *Repository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.first(r.db.WithContext(ctx).Where("lower(email) = ?", fold(email)))
}

// FindByLogin accepts either the username or the email.
func (r *Repository) FindByLogin(ctx context.Context, identifier string) (*models.User, error) {
	handle := fold(identifier)
	return r.first(r.db.WithContext(ctx).Where("lower(username) = ? OR lower(email) = ?", handle, handle))
}

// LockByID takes a row lock on the user for the rest of the surrounding
// transaction. SQLite ignores the locking clause.
func (r *Repository) LockByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return r.first(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), "id = ?", id)
}

// Exists reports which of username and email are already registered.
func (r *Repository) Exists(ctx context.Context, username, email string) (usernameTaken, emailTaken bool, err error) {
	wantUser, wantEmail := fold(username), fold(email)
	var taken []struct {
		Username string
		Email    string
	}
	err = r.table(ctx).
		Select("username", "email").
		Where("lower(username) = ? OR lower(email) = ?", wantUser, wantEmail).
		Scan(&taken).Error
	if err != nil {
		return false, false, err
	}
	for _, row := range taken {
		usernameTaken = usernameTaken || fold(row.Username) == wantUser
		emailTaken = emailTaken || fold(row.Email) == wantEmail
	}
	return usernameTaken, emailTaken, nil
}

func (r *Repository) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.setColumns(ctx, id, map[string]any{"last_login_at": at})
}

// UpdateProfile writes the non-nil fields of patch.
func (r *Repository) UpdateProfile(ctx context.Context, id uuid.UUID, patch ProfilePatch) error {
	return r.setColumns(ctx, id, patch.columns())
}

func (r *Repository) UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error {
	return r.setColumns(ctx, id, map[string]any{"password_hash": hash, "updated_at": time.Now().UTC()})
}

func (r *Repository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	return r.setColumns(ctx, id, map[string]any{"is_active": active, "updated_at": time.Now().UTC()})
}

func (r *Repository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.table(ctx).Count(&n).Error
	return n, err
}

func fold(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}
