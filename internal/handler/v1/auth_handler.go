package v1

import (
	"net/http"
	"time"

	"github.com/dmehra2102/prod-golang-projects/pharmacare/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/pharmacare/internal/service"
	"github.com/gin-gonic/gin"
)

type signupRequest struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	Password     string `json:"password"`
	Role         string `json:"role"`
	NationalID   string `json:"national_id"`
	PracticeCode string `json:"practice_code"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	OTPCode  string `json:"otp_code"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type mfaConfirmRequest struct {
	Code string `json:"code" binding:"required"`
}

type userResponse struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	Role         string    `json:"role"`
	NationalID   string    `json:"national_id,omitempty"`
	PracticeCode string    `json:"practice_code,omitempty"`
	IsActive     bool      `json:"is_active"`
	MFAEnabled   bool      `json:"mfa_enabled"`
	CreatedAt    time.Time `json:"created_at"`
}

func toUserResponse(u *domain.User) userResponse {
	return userResponse{
		ID:           u.ID.String(),
		Email:        u.Email,
		Name:         u.Name,
		Role:         string(u.Role),
		NationalID:   u.NationalID,
		PracticeCode: u.PracticeCode,
		IsActive:     u.IsActive,
		MFAEnabled:   u.MFAEnabled,
		CreatedAt:    u.CreatedAt,
	}
}

type loginResponse struct {
	*domain.TokenPair
	User userResponse `json:"user"`
}

func (h *Handler) Signup(c *gin.Context) {
	var req signupRequest
	if !bindJSON(c, &req) {
		return
	}

	u, err := h.svc.Auth.Signup(c.Request.Context(), &service.SignupCommand{
		Name:         req.Name,
		Email:        req.Email,
		Password:     req.Password,
		Role:         domain.Role(req.Role),
		NationalID:   req.NationalID,
		PracticeCode: req.PracticeCode,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"ok": true, "user": toUserResponse(u)})
}

func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if !bindJSON(c, &req) {
		return
	}

	res, err := h.svc.Auth.Login(c.Request.Context(), req.Email, req.Password, req.OTPCode)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, loginResponse{TokenPair: res.Tokens, User: toUserResponse(res.User)})
}

func (h *Handler) Refresh(c *gin.Context) {
	var req refreshRequest
	if !bindJSON(c, &req) {
		return
	}

	pair, err := h.svc.Auth.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, pair)
}

func (h *Handler) EnrollMFA(c *gin.Context) {
	enrollment, err := h.svc.Auth.EnrollMFA(c.Request.Context(), identityFrom(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"secret": enrollment.Secret, "otpauth_url": enrollment.URL})
}

func (h *Handler) ConfirmMFA(c *gin.Context) {
	var req mfaConfirmRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.svc.Auth.ConfirmMFA(c.Request.Context(), identityFrom(c), req.Code); err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "mfa_enabled": true})
}

func (h *Handler) ListUsers(c *gin.Context) {
	users, err := h.svc.Auth.ListUsers(c.Request.Context(), identityFrom(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	out := make([]userResponse, 0, len(users))
	for _, u := range users {
		out = append(out, toUserResponse(u))
	}
	c.JSON(http.StatusOK, out)
}
