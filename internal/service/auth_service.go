package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/dmehra2102/prod-golang-projects/pharmacare/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/pharmacare/pkg/auth"
	"github.com/google/uuid"
	"github.com/pquerna/otp/totp"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAccountLocked      = errors.New("account is temporarily locked due to multiple failed login attempts")
	ErrAccountInactive    = errors.New("account is inactive")
	ErrOTPRequired        = errors.New("one-time code required")
	ErrInvalidOTP         = errors.New("invalid one-time code")
	ErrMFANotEnrolled     = errors.New("mfa enrollment has not been started")
)

const minPasswordLength = 8

// passwordCost is lowered by tests.
var passwordCost = bcrypt.DefaultCost

type UserRepository interface {
	Create(ctx context.Context, u *domain.User) error
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	UpdateLoginAttempt(ctx context.Context, id uuid.UUID, success bool) error
	UpdateMFA(ctx context.Context, id uuid.UUID, secret string, enabled bool) error
	List(ctx context.Context) ([]*domain.User, error)
}

type AuthService struct {
	userRepo   UserRepository
	jwtManager *auth.JWTManager
	auditSvc   *AuditService
	issuer     string
	log        *zap.Logger
}

func NewAuthService(userRepo UserRepository, jwtManager *auth.JWTManager, auditSvc *AuditService, issuer string, log *zap.Logger) *AuthService {
	return &AuthService{userRepo: userRepo, jwtManager: jwtManager, auditSvc: auditSvc, issuer: issuer, log: log}
}

type SignupCommand struct {
	Name         string
	Email        string
	Password     string
	Role         domain.Role
	NationalID   string
	PracticeCode string
}

type LoginResult struct {
	Tokens *domain.TokenPair
	User   *domain.User
}

type MFAEnrollment struct {
	Secret string
	URL    string
}

func (s *AuthService) Signup(ctx context.Context, cmd *SignupCommand) (*domain.User, error) {
	cmd.Email = strings.ToLower(strings.TrimSpace(cmd.Email))
	cmd.Name = strings.TrimSpace(cmd.Name)
	cmd.NationalID = strings.TrimSpace(cmd.NationalID)
	cmd.PracticeCode = strings.TrimSpace(cmd.PracticeCode)

	if err := validateSignup(cmd); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cmd.Password), passwordCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	u := &domain.User{
		Email:        cmd.Email,
		PasswordHash: string(hash),
		Name:         cmd.Name,
		Role:         cmd.Role,
		IsActive:     true,
	}
	if cmd.Role == domain.RolePatient {
		u.NationalID = cmd.NationalID
	} else {
		u.PracticeCode = cmd.PracticeCode
	}

	if err := s.userRepo.Create(ctx, u); err != nil {
		if errors.Is(err, domain.ErrEmailTaken) {
			return nil, err
		}
		s.log.Error("failed to create user", zap.Error(err))
		return nil, fmt.Errorf("creating user: %w", err)
	}

	s.auditSvc.LogAsync(ctx, AuditEntry{
		UserID:       u.ID,
		UserRole:     u.Role,
		Action:       domain.ActionCreate,
		ResourceType: "user",
		ResourceID:   u.ID.String(),
	})

	s.log.Info("user signed up", zap.String("user_id", u.ID.String()), zap.String("role", string(u.Role)))
	return u, nil
}

func validateSignup(cmd *SignupCommand) error {
	var errs []string
	if cmd.Name == "" {
		errs = append(errs, "name is required")
	}
	if _, err := mail.ParseAddress(cmd.Email); err != nil || cmd.Email == "" {
		errs = append(errs, "email must be a valid address")
	}
	if len(cmd.Password) < minPasswordLength {
		errs = append(errs, fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}

	switch cmd.Role {
	case domain.RolePatient:
		if !domain.ValidNationalID(cmd.NationalID) {
			errs = append(errs, "national_id must be exactly 10 digits")
		}
	case domain.RoleDoctor, domain.RolePharmacist:
		if !domain.ValidPracticeCode(cmd.PracticeCode) {
			errs = append(errs, "practice_code must look like A-123456")
		}
	default:
		errs = append(errs, "role must be one of patient, doctor, pharmacist")
	}
	return validationFailed(errs)
}

func (s *AuthService) Login(ctx context.Context, email, password, otpCode string) (*LoginResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, domain.ErrUserNotFound) {
			return nil, fmt.Errorf("looking up user: %w", err)
		}
		// Spend the same time as a real comparison so response time does not
		// reveal whether the email is registered.
		_, _ = bcrypt.GenerateFromPassword([]byte(password), passwordCost)
		return nil, ErrInvalidCredentials
	}

	if !user.IsActive {
		return nil, ErrAccountInactive
	}
	if user.IsLocked() {
		return nil, ErrAccountLocked
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		_ = s.userRepo.UpdateLoginAttempt(ctx, user.ID, false)
		s.log.Warn("failed login attempt",
			zap.String("user_id", user.ID.String()),
			zap.String("ip", requestMetaFrom(ctx).IPAddress),
		)
		return nil, ErrInvalidCredentials
	}

	if user.MFAEnabled {
		if otpCode == "" {
			return nil, ErrOTPRequired
		}
		if !totp.Validate(otpCode, user.MFASecret) {
			_ = s.userRepo.UpdateLoginAttempt(ctx, user.ID, false)
			return nil, ErrInvalidOTP
		}
	}

	_ = s.userRepo.UpdateLoginAttempt(ctx, user.ID, true)

	pair, err := s.jwtManager.GenerateTokenPair(claimsFor(user))
	if err != nil {
		s.log.Error("failed to generate token pair", zap.Error(err))
		return nil, fmt.Errorf("generating tokens: %w", err)
	}

	s.auditSvc.LogAsync(ctx, AuditEntry{
		UserID:       user.ID,
		UserRole:     user.Role,
		Action:       domain.ActionLogin,
		ResourceType: "session",
		ResourceID:   user.ID.String(),
	})

	s.log.Info("user logged in", zap.String("user_id", user.ID.String()))
	return &LoginResult{Tokens: pair, User: user}, nil
}

// Refresh issues a new token pair given a valid refresh token. The user is
// re-read so deactivated accounts cannot keep refreshing.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*domain.TokenPair, error) {
	claims, err := s.jwtManager.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, ErrUnauthorized
	}

	user, err := s.userRepo.GetByID(ctx, claims.UserID)
	if err != nil || !user.IsActive {
		return nil, ErrUnauthorized
	}

	return s.jwtManager.GenerateTokenPair(claimsFor(user))
}

// EnrollMFA generates a TOTP secret for a staff account. The factor is not
// enforced until ConfirmMFA succeeds with a code from it.
func (s *AuthService) EnrollMFA(ctx context.Context, id *domain.Identity) (*MFAEnrollment, error) {
	if err := requireRole(id, domain.RoleDoctor, domain.RolePharmacist); err != nil {
		return nil, err
	}
	user, err := s.userRepo.GetByID(ctx, id.UserID)
	if err != nil {
		return nil, err
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      s.issuer,
		AccountName: user.Email,
	})
	if err != nil {
		return nil, fmt.Errorf("generating totp secret: %w", err)
	}

	if err := s.userRepo.UpdateMFA(ctx, user.ID, key.Secret(), false); err != nil {
		return nil, fmt.Errorf("storing totp secret: %w", err)
	}

	return &MFAEnrollment{Secret: key.Secret(), URL: key.URL()}, nil
}

func (s *AuthService) ConfirmMFA(ctx context.Context, id *domain.Identity, code string) error {
	if err := requireRole(id, domain.RoleDoctor, domain.RolePharmacist); err != nil {
		return err
	}
	user, err := s.userRepo.GetByID(ctx, id.UserID)
	if err != nil {
		return err
	}
	if user.MFASecret == "" {
		return ErrMFANotEnrolled
	}
	if !totp.Validate(code, user.MFASecret) {
		return ErrInvalidOTP
	}

	if err := s.userRepo.UpdateMFA(ctx, user.ID, user.MFASecret, true); err != nil {
		return fmt.Errorf("enabling mfa: %w", err)
	}

	s.auditSvc.LogAsync(ctx, AuditEntry{
		UserID:       user.ID,
		UserRole:     user.Role,
		Action:       domain.ActionUpdate,
		ResourceType: "user",
		ResourceID:   user.ID.String(),
		Changes:      map[string]any{"mfa_enabled": true},
	})
	return nil
}

func (s *AuthService) ListUsers(ctx context.Context, id *domain.Identity) ([]*domain.User, error) {
	if err := requireRole(id, domain.RolePharmacist); err != nil {
		return nil, err
	}
	return s.userRepo.List(ctx)
}

func claimsFor(u *domain.User) *domain.Claims {
	return &domain.Claims{
		UserID:       u.ID,
		Email:        u.Email,
		Role:         u.Role,
		NationalID:   u.NationalID,
		PracticeCode: u.PracticeCode,
	}
}
