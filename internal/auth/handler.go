package auth

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/walletwise/walletwise/internal/apperr"
	"github.com/walletwise/walletwise/internal/httputil"
)

type Handler struct {
	service *Service
	log     *zap.Logger
}

func NewHandler(service *Service, log *zap.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log,
	}
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

type loginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

type resetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"newPassword"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

type updateProfileRequest struct {
	Name  *string `json:"name"`
	Email *string `json:"email"`
	Phone *string `json:"phone"`
}

type tokenResponse struct {
	Token string        `json:"token"`
	User  *userResponse `json:"user"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// userResponse is the user JSON shape; the password hash and lockout
// internals never leave the server.
type userResponse struct {
	ID                    uint       `json:"id"`
	Name                  string     `json:"name"`
	Email                 string     `json:"email"`
	Phone                 string     `json:"phone"`
	Role                  string     `json:"role"`
	Status                string     `json:"status"`
	SubscriptionStatus    string     `json:"subscriptionStatus"`
	SubscriptionPeriodEnd *time.Time `json:"subscriptionPeriodEnd,omitempty"`
	LastLoginAt           *time.Time `json:"lastLoginAt,omitempty"`
	CreatedAt             time.Time  `json:"createdAt"`
}

func newUserResponse(user *User) *userResponse {
	return &userResponse{
		ID:                    user.ID,
		Name:                  user.Name,
		Email:                 user.Email,
		Phone:                 user.Phone,
		Role:                  user.Role,
		Status:                user.Status,
		SubscriptionStatus:    user.SubscriptionStatus,
		SubscriptionPeriodEnd: user.SubscriptionPeriodEnd,
		LastLoginAt:           user.LastLoginAt,
		CreatedAt:             user.CreatedAt,
	}
}

// Register handles POST /auth/register.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.ErrorKind(w, apperr.KindValidation, "invalid request body")
		return
	}

	user, token, err := h.service.Register(req.Name, req.Email, req.Phone, req.Password)
	if err != nil {
		h.respondError(w, "register", err)
		return
	}

	httputil.JSON(w, http.StatusCreated, tokenResponse{Token: token, User: newUserResponse(user)})
}

// Login handles POST /auth/login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.ErrorKind(w, apperr.KindValidation, "invalid request body")
		return
	}

	user, token, err := h.service.Login(req.Identifier, req.Password)
	if err != nil {
		h.respondError(w, "login", err)
		return
	}

	httputil.JSON(w, http.StatusOK, tokenResponse{Token: token, User: newUserResponse(user)})
}

// Profile handles GET /auth/profile.
func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	claims, err := ClaimsFromContext(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}

	user, err := h.service.Profile(claims.UserID)
	if err != nil {
		h.respondError(w, "profile", err)
		return
	}

	httputil.JSON(w, http.StatusOK, newUserResponse(user))
}

// UpdateProfile handles PUT /auth/profile.
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	claims, err := ClaimsFromContext(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}

	var req updateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.ErrorKind(w, apperr.KindValidation, "invalid request body")
		return
	}

	user, err := h.service.UpdateProfile(claims.UserID, ProfileUpdate{
		Name:  req.Name,
		Email: req.Email,
		Phone: req.Phone,
	})
	if err != nil {
		h.respondError(w, "update profile", err)
		return
	}

	httputil.JSON(w, http.StatusOK, newUserResponse(user))
}

// ChangePassword handles POST /auth/change-password.
func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	claims, err := ClaimsFromContext(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}

	var req changePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.ErrorKind(w, apperr.KindValidation, "invalid request body")
		return
	}

	if err := h.service.ChangePassword(claims.UserID, req.CurrentPassword, req.NewPassword); err != nil {
		h.respondError(w, "change password", err)
		return
	}

	httputil.JSON(w, http.StatusOK, messageResponse{Message: "password changed"})
}

// ForgotPassword handles POST /auth/forgot-password. The response body is
// byte-identical for known and unknown emails.
func (h *Handler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.ErrorKind(w, apperr.KindValidation, "invalid request body")
		return
	}

	if err := h.service.ForgotPassword(req.Email); err != nil {
		h.respondError(w, "forgot password", err)
		return
	}

	httputil.JSON(w, http.StatusOK, messageResponse{Message: ResetMessage})
}

// ResetPassword handles POST /auth/reset-password.
func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.ErrorKind(w, apperr.KindValidation, "invalid request body")
		return
	}

	if err := h.service.ResetPassword(req.Token, req.NewPassword); err != nil {
		h.respondError(w, "reset password", err)
		return
	}

	httputil.JSON(w, http.StatusOK, messageResponse{Message: "password reset successful"})
}

// Unblock handles POST /auth/unblock/{userID}.
func (h *Handler) Unblock(w http.ResponseWriter, r *http.Request) {
	claims, err := ClaimsFromContext(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}

	userID, err := strconv.ParseUint(chi.URLParam(r, "userID"), 10, 32)
	if err != nil {
		httputil.ErrorKind(w, apperr.KindValidation, "invalid user id")
		return
	}

	if err := h.service.Unblock(claims, uint(userID)); err != nil {
		h.respondError(w, "unblock", err)
		return
	}

	httputil.JSON(w, http.StatusOK, messageResponse{Message: "account unblocked"})
}

// DeleteAccount handles DELETE /auth/profile.
func (h *Handler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	claims, err := ClaimsFromContext(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}

	if err := h.service.DeleteAccount(claims.UserID); err != nil {
		h.respondError(w, "delete account", err)
		return
	}

	httputil.JSON(w, http.StatusOK, messageResponse{Message: "account deleted"})
}

func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	if apperr.KindOf(err) == apperr.KindInternal {
		h.log.Error("operation failed", zap.String("op", op), zap.Error(err))
	}
	httputil.Error(w, err)
}
