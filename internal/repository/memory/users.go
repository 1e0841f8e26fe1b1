package memory

import (
	"context"
	"strings"
	"time"

	"github.com/dmehra2102/prod-golang-projects/pharmacare/internal/domain"
	"github.com/google/uuid"
)

type UserRepository struct{ store *Store }

func NewUserRepository(store *Store) *UserRepository { return &UserRepository{store: store} }

func (r *UserRepository) Create(ctx context.Context, u *domain.User) error {
	r.store.wlock(ctx)
	defer r.store.wunlock(ctx)
	s := r.store.s
	for _, existing := range s.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return domain.ErrEmailTaken
		}
	}
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	now := time.Now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now
	u.IsActive = true
	s.users[u.ID] = *u
	s.userOrder = append(s.userOrder, u.ID)
	return nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	r.store.rlock(ctx)
	defer r.store.runlock(ctx)
	for _, u := range r.store.s.users {
		if u.DeletedAt == nil && strings.EqualFold(u.Email, email) {
			cp := u
			return &cp, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	r.store.rlock(ctx)
	defer r.store.runlock(ctx)
	u, ok := r.store.s.users[id]
	if !ok || u.DeletedAt != nil {
		return nil, domain.ErrUserNotFound
	}
	return &u, nil
}

func (r *UserRepository) UpdateLoginAttempt(ctx context.Context, id uuid.UUID, success bool) error {
	r.store.wlock(ctx)
	defer r.store.wunlock(ctx)
	u, ok := r.store.s.users[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	now := time.Now().UTC()
	if success {
		u.FailedLoginCount = 0
		u.LockedUntil = nil
		u.LastLoginAt = &now
	} else {
		u.FailedLoginCount++
		if u.FailedLoginCount >= domain.MaxFailedLogins {
			until := now.Add(domain.LoginLockoutTime)
			u.LockedUntil = &until
		}
	}
	u.UpdatedAt = now
	r.store.s.users[id] = u
	return nil
}

func (r *UserRepository) UpdateMFA(ctx context.Context, id uuid.UUID, secret string, enabled bool) error {
	r.store.wlock(ctx)
	defer r.store.wunlock(ctx)
	u, ok := r.store.s.users[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.MFASecret = secret
	u.MFAEnabled = enabled
	r.store.s.users[id] = u
	return nil
}

// List returns users oldest first.
func (r *UserRepository) List(ctx context.Context) ([]*domain.User, error) {
	r.store.rlock(ctx)
	defer r.store.runlock(ctx)
	out := make([]*domain.User, 0, len(r.store.s.userOrder))
	for _, id := range r.store.s.userOrder {
		if u, ok := r.store.s.users[id]; ok && u.DeletedAt == nil {
			out = append(out, &u)
		}
	}
	return out, nil
}

type AuditRepository struct{ store *Store }

func NewAuditRepository(store *Store) *AuditRepository { return &AuditRepository{store: store} }

func (r *AuditRepository) Create(ctx context.Context, entry *domain.AuditLog) error {
	r.store.wlock(ctx)
	defer r.store.wunlock(ctx)
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	entry.OccurredAt = time.Now().UTC()
	r.store.s.audits = append(r.store.s.audits, *entry)
	return nil
}

// Entries returns a copy of everything written so far.
func (r *AuditRepository) Entries() []domain.AuditLog {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	return append([]domain.AuditLog(nil), r.store.s.audits...)
}
