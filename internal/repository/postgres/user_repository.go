package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmehra2102/prod-golang-projects/pharmacare/internal/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, u *domain.User) error {
	if err := conn(ctx, r.db).Create(u).Error; err != nil {
		if isUniqueViolation(err) {
			return domain.ErrEmailTaken
		}
		return fmt.Errorf("inserting user: %w", err)
	}
	return nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	var u domain.User
	err := conn(ctx, r.db).Where("email = ? AND deleted_at IS NULL", email).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying user by email: %w", err)
	}
	return &u, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	var u domain.User
	err := conn(ctx, r.db).Where("id = ? AND deleted_at IS NULL", id).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying user by id: %w", err)
	}
	return &u, nil
}

// UpdateLoginAttempt resets the counter on success, or increments it and
// locks the account once the threshold is reached.
func (r *UserRepository) UpdateLoginAttempt(ctx context.Context, id uuid.UUID, success bool) error {
	q := conn(ctx, r.db).Model(&domain.User{}).Where("id = ?", id)
	if success {
		now := time.Now()
		return q.Updates(map[string]any{
			"failed_login_count": 0,
			"locked_until":       nil,
			"last_login_at":      now,
		}).Error
	}
	return q.Updates(map[string]any{
		"failed_login_count": gorm.Expr("failed_login_count + 1"),
		"locked_until": gorm.Expr(
			"CASE WHEN failed_login_count + 1 >= ? THEN ?::timestamptz ELSE locked_until END",
			domain.MaxFailedLogins, time.Now().Add(domain.LoginLockoutTime),
		),
	}).Error
}

func (r *UserRepository) UpdateMFA(ctx context.Context, id uuid.UUID, secret string, enabled bool) error {
	return conn(ctx, r.db).Model(&domain.User{}).Where("id = ?", id).Updates(map[string]any{
		"mfa_secret":  secret,
		"mfa_enabled": enabled,
	}).Error
}

func (r *UserRepository) List(ctx context.Context) ([]*domain.User, error) {
	var users []*domain.User
	if err := conn(ctx, r.db).Where("deleted_at IS NULL").Order("created_at ASC").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	return users, nil
}

type AuditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

func (r *AuditRepository) Create(ctx context.Context, entry *domain.AuditLog) error {
	return conn(ctx, r.db).Create(entry).Error
}
