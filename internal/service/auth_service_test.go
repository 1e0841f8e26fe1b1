package service

import (
	"context"
	"testing"
	"time"

	"github.com/dmehra2102/prod-golang-projects/pharmacare/config"
	"github.com/dmehra2102/prod-golang-projects/pharmacare/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/pharmacare/pkg/auth"
	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newAuthService(t *testing.T, h *harness) (*AuthService, *auth.JWTManager) {
	t.Helper()
	jwt := auth.NewJWTManager(config.JWTConfig{
		Secret:          "service-test-secret-service-test-secret",
		AccessTokenTTL:  time.Minute,
		RefreshTokenTTL: time.Hour,
		Issuer:          "pharmacare-test",
	})
	return NewAuthService(h.users, jwt, h.audit, "PharmaCare", zap.NewNop()), jwt
}

func signupPatient(t *testing.T, svc *AuthService, email string) *domain.User {
	t.Helper()
	u, err := svc.Signup(context.Background(), &SignupCommand{
		Name:       "Pat Doe",
		Email:      email,
		Password:   "correct-horse",
		Role:       domain.RolePatient,
		NationalID: "1234567890",
	})
	require.NoError(t, err)
	return u
}

func TestSignup_Validation(t *testing.T) {
	h := setup(t)
	svc, _ := newAuthService(t, h)

	tests := []struct {
		name string
		cmd  SignupCommand
	}{
		{"bad email", SignupCommand{Name: "A", Email: "nope", Password: "12345678", Role: domain.RolePatient, NationalID: "1234567890"}},
		{"short password", SignupCommand{Name: "A", Email: "a@x.io", Password: "short", Role: domain.RolePatient, NationalID: "1234567890"}},
		{"patient without national id", SignupCommand{Name: "A", Email: "a@x.io", Password: "12345678", Role: domain.RolePatient, NationalID: "123"}},
		{"doctor with bad practice code", SignupCommand{Name: "A", Email: "a@x.io", Password: "12345678", Role: domain.RoleDoctor, PracticeCode: "123456"}},
		{"admin self-signup", SignupCommand{Name: "A", Email: "a@x.io", Password: "12345678", Role: domain.RoleAdmin}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := tt.cmd
			_, err := svc.Signup(context.Background(), &cmd)
			var verr *ValidationError
			assert.ErrorAs(t, err, &verr)
		})
	}
}

func TestSignupAndLogin(t *testing.T) {
	ctx := context.Background()
	h := setup(t)
	svc, jwt := newAuthService(t, h)

	u := signupPatient(t, svc, "  Pat@Example.com ")
	assert.Equal(t, "pat@example.com", u.Email)
	assert.NotEqual(t, "correct-horse", u.PasswordHash)

	_, err := svc.Signup(ctx, &SignupCommand{Name: "Again", Email: "PAT@example.com", Password: "12345678", Role: domain.RolePatient, NationalID: "1234567890"})
	assert.ErrorIs(t, err, domain.ErrEmailTaken)

	res, err := svc.Login(ctx, "pat@example.com", "correct-horse", "")
	require.NoError(t, err)
	claims, err := jwt.ValidateAccessToken(res.Tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, u.ID, claims.UserID)
	assert.Equal(t, domain.RolePatient, claims.Role)
	assert.Equal(t, "1234567890", claims.NationalID)

	refreshed, err := svc.Refresh(ctx, res.Tokens.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, refreshed.AccessToken)

	_, err = svc.Refresh(ctx, res.Tokens.AccessToken)
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = svc.Login(ctx, "nobody@example.com", "correct-horse", "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLogin_LocksAfterRepeatedFailures(t *testing.T) {
	ctx := context.Background()
	h := setup(t)
	svc, _ := newAuthService(t, h)
	signupPatient(t, svc, "pat@example.com")

	for i := 0; i < domain.MaxFailedLogins; i++ {
		_, err := svc.Login(ctx, "pat@example.com", "wrong-password", "")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	}

	_, err := svc.Login(ctx, "pat@example.com", "correct-horse", "")
	assert.ErrorIs(t, err, ErrAccountLocked)
}

func TestMFA_EnrollConfirmAndLogin(t *testing.T) {
	ctx := context.Background()
	h := setup(t)
	svc, _ := newAuthService(t, h)

	u, err := svc.Signup(ctx, &SignupCommand{
		Name:         "Dr Who",
		Email:        "doc@example.com",
		Password:     "tardis-blue",
		Role:         domain.RoleDoctor,
		PracticeCode: "A-123456",
	})
	require.NoError(t, err)
	id := &domain.Identity{UserID: u.ID, Role: domain.RoleDoctor, PracticeCode: "A-123456"}

	assert.ErrorIs(t, svc.ConfirmMFA(ctx, id, "000000"), ErrMFANotEnrolled)

	_, err = svc.EnrollMFA(ctx, h.patient)
	assert.ErrorIs(t, err, ErrForbidden)

	enrollment, err := svc.EnrollMFA(ctx, id)
	require.NoError(t, err)
	assert.Contains(t, enrollment.URL, "otpauth://totp/")

	// Enrollment alone does not enforce the factor.
	_, err = svc.Login(ctx, "doc@example.com", "tardis-blue", "")
	require.NoError(t, err)

	code, err := totp.GenerateCode(enrollment.Secret, time.Now())
	require.NoError(t, err)
	require.NoError(t, svc.ConfirmMFA(ctx, id, code))

	_, err = svc.Login(ctx, "doc@example.com", "tardis-blue", "")
	assert.ErrorIs(t, err, ErrOTPRequired)

	_, err = svc.Login(ctx, "doc@example.com", "tardis-blue", "not-a-code")
	assert.ErrorIs(t, err, ErrInvalidOTP)

	code, err = totp.GenerateCode(enrollment.Secret, time.Now())
	require.NoError(t, err)
	_, err = svc.Login(ctx, "doc@example.com", "tardis-blue", code)
	assert.NoError(t, err)
}

func TestListUsers_StaffOnly(t *testing.T) {
	ctx := context.Background()
	h := setup(t)
	svc, _ := newAuthService(t, h)
	signupPatient(t, svc, "pat@example.com")

	users, err := svc.ListUsers(ctx, h.pharmacist)
	require.NoError(t, err)
	require.Len(t, users, 2)
	emails := []string{users[0].Email, users[1].Email}
	assert.ElementsMatch(t, []string{"pat@example.com", "house@clinic.test"}, emails)

	_, err = svc.ListUsers(ctx, h.patient)
	assert.ErrorIs(t, err, ErrForbidden)
}
