package handlers

import (
	"encoding/json"
	"net/http"

	"rentledger-backend/internal/auth"
	"rentledger-backend/internal/models"
	"rentledger-backend/internal/services"
	"rentledger-backend/pkg/utils"
)

type AuthHandler struct {
	Users      *services.UserService
	TOTP       *services.TOTPService
	JWTManager *auth.JWTManager
}

func NewAuthHandler(users *services.UserService, totp *services.TOTPService, jwtManager *auth.JWTManager) *AuthHandler {
	return &AuthHandler{Users: users, TOTP: totp, JWTManager: jwtManager}
}

// Signup registers a staff account. The first account becomes the admin.
// POST /auth/signup
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req models.SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ErrorWithStatus(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	resp, err := h.Users.Signup(r.Context(), &req)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusCreated, resp)
}

// Login verifies credentials. Accounts with 2FA enabled get a short-lived
// temp token instead of a session and must call VerifyTOTP to finish.
// POST /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ErrorWithStatus(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	resp, step1, err := h.Users.Login(r.Context(), &req)
	if err != nil {
		utils.Error(w, err)
		return
	}
	if step1 != nil {
		utils.JSON(w, http.StatusOK, step1)
		return
	}
	utils.JSON(w, http.StatusOK, resp)
}

// VerifyTOTP completes a 2FA login with an authenticator or backup code
// POST /auth/verify-2fa
func (h *AuthHandler) VerifyTOTP(w http.ResponseWriter, r *http.Request) {
	var req models.TOTPVerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ErrorWithStatus(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	claims, err := h.JWTManager.ValidateTempToken(req.TempToken)
	if err != nil {
		utils.ErrorWithStatus(w, http.StatusUnauthorized, "Invalid or expired login session, please log in again")
		return
	}

	if err := h.TOTP.Verify(r.Context(), claims.UserID, req.Code); err != nil {
		utils.Error(w, err)
		return
	}

	resp, err := h.Users.CompleteTOTPLogin(r.Context(), claims.UserID)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, resp)
}
