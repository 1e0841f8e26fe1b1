package domain

import (
	"errors"
	"regexp"
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RolePatient    Role = "patient"
	RoleDoctor     Role = "doctor"
	RolePharmacist Role = "pharmacist"
	RoleAdmin      Role = "admin"
)

func (r Role) IsValid() bool {
	switch r {
	case RolePatient, RoleDoctor, RolePharmacist, RoleAdmin:
		return true
	}
	return false
}

// IsStaff reports whether the role may manage the catalog and see pharmacy-wide data.
func (r Role) IsStaff() bool {
	return r == RolePharmacist || r == RoleAdmin
}

var (
	ErrUnknownRole    = errors.New("unknown role")
	ErrMissingProfile = errors.New("caller profile is incomplete")
	ErrUserNotFound   = errors.New("user not found")
	ErrEmailTaken     = errors.New("email is already registered")
)

var (
	nationalIDPattern   = regexp.MustCompile(`^\d{10}$`)
	practiceCodePattern = regexp.MustCompile(`^A-\d{6}$`)
)

// ValidNationalID reports whether s is a 10-digit patient national ID.
func ValidNationalID(s string) bool {
	return nationalIDPattern.MatchString(s)
}

// ValidPracticeCode reports whether s is a staff practice code such as A-123456.
func ValidPracticeCode(s string) bool {
	return practiceCodePattern.MatchString(s)
}

type User struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CreatedAt time.Time  `gorm:"autoCreateTime"`
	UpdatedAt time.Time  `gorm:"autoUpdateTime"`
	DeletedAt *time.Time `gorm:"index"`

	Email        string `gorm:"column:email;type:varchar(255);uniqueIndex;not null"`
	PasswordHash string `gorm:"column:password_hash;type:varchar(255);not null"`
	Name         string `gorm:"column:name;type:varchar(150);not null"`
	Role         Role   `gorm:"column:role;type:varchar(30);not null;index"`

	// Patients are addressed by national ID, staff by practice code.
	NationalID   string `gorm:"column:national_id;type:varchar(20);index"`
	PracticeCode string `gorm:"column:practice_code;type:varchar(20)"`

	IsActive         bool       `gorm:"column:is_active;default:true;index"`
	FailedLoginCount int        `gorm:"column:failed_login_count;default:0"`
	LockedUntil      *time.Time `gorm:"column:locked_until"`
	LastLoginAt      *time.Time `gorm:"column:last_login_at"`

	MFAEnabled bool   `gorm:"column:mfa_enabled;default:false"`
	MFASecret  string `gorm:"column:mfa_secret;type:varchar(100)"`
}

func (User) TableName() string {
	return "auth.users"
}

const (
	MaxFailedLogins  = 5
	LoginLockoutTime = 15 * time.Minute
)

// IsLocked returns true if the account is temporarily locked due to failed logins.
func (u *User) IsLocked() bool {
	return u.LockedUntil != nil && time.Now().Before(*u.LockedUntil)
}

// Identity is the authenticated caller, resolved once per request.
type Identity struct {
	UserID       uuid.UUID
	Role         Role
	NationalID   string
	PracticeCode string
}

// NewIdentity builds an Identity from token claims. Unknown roles and patients
// without a national ID are rejected rather than defaulted.
func NewIdentity(c *Claims) (*Identity, error) {
	if !c.Role.IsValid() {
		return nil, ErrUnknownRole
	}
	if c.Role == RolePatient && c.NationalID == "" {
		return nil, ErrMissingProfile
	}
	return &Identity{
		UserID:       c.UserID,
		Role:         c.Role,
		NationalID:   c.NationalID,
		PracticeCode: c.PracticeCode,
	}, nil
}

type AuditAction string

const (
	ActionCreate AuditAction = "create"
	ActionRead   AuditAction = "read"
	ActionUpdate AuditAction = "update"
	ActionDelete AuditAction = "delete"
	ActionLogin  AuditAction = "login"
)

type AuditLog struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	OccurredAt time.Time `gorm:"autoCreateTime;index"`

	// Who
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;not null;index"`
	UserRole  Role      `gorm:"column:user_role;type:varchar(30);not null"`
	IPAddress string    `gorm:"column:ip_address;type:varchar(45)"` // Supports IPv6

	// What
	Action       AuditAction `gorm:"column:action;type:varchar(20);not null;index"`
	ResourceType string      `gorm:"column:resource_type;type:varchar(50);not null;index"`
	ResourceID   string      `gorm:"column:resource_id;type:varchar(50);index"`

	RequestID string `gorm:"column:request_id;type:varchar(50);index"`
	Changes   string `gorm:"column:changes;type:jsonb"`
}

func (AuditLog) TableName() string {
	return "audit.logs"
}

type TokenPair struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	TokenType    string    `json:"token_type"` // Always "Bearer"
}

type Claims struct {
	UserID       uuid.UUID `json:"sub"`
	Email        string    `json:"email"`
	Role         Role      `json:"role"`
	NationalID   string    `json:"national_id,omitempty"`
	PracticeCode string    `json:"practice_code,omitempty"`
}
