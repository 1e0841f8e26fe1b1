package service

import (
	"errors"
	"strings"

	"github.com/dmehra2102/prod-golang-projects/pharmacare/internal/domain"
	"github.com/google/uuid"
)

var (
	ErrForbidden    = errors.New("forbidden: insufficient permissions")
	ErrUnauthorized = errors.New("authentication required")
)

type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Fields, "; ")
}

func validationFailed(fields []string) error {
	if len(fields) == 0 {
		return nil
	}
	return &ValidationError{Fields: fields}
}

type AuditEntry struct {
	UserID       uuid.UUID
	UserRole     domain.Role
	Action       domain.AuditAction
	ResourceType string
	ResourceID   string
	Changes      map[string]any
}

// requireRole returns ErrForbidden unless id holds one of roles. Admin is
// accepted wherever pharmacist is.
func requireRole(id *domain.Identity, roles ...domain.Role) error {
	if id == nil {
		return ErrUnauthorized
	}
	for _, r := range roles {
		if id.Role == r || (r == domain.RolePharmacist && id.Role == domain.RoleAdmin) {
			return nil
		}
	}
	return ErrForbidden
}

func requirePatient(id *domain.Identity) error {
	if err := requireRole(id, domain.RolePatient); err != nil {
		return err
	}
	if id.NationalID == "" {
		return domain.ErrMissingProfile
	}
	return nil
}
