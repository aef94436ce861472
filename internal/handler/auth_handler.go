package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"neomate-go/internal/middleware"
	"neomate-go/internal/service"
	"neomate-go/pkg/log"
)

// AuthHandler 负责处理认证相关的 API 请求。
type AuthHandler struct {
	authService service.AuthService
}

// NewAuthHandler 创建一个新的 AuthHandler 实例。
func NewAuthHandler(authService service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// RegisterRequest 定义了注册 API 的请求体结构。
type RegisterRequest struct {
	Email    string  `json:"email" binding:"required,email"`
	Password string  `json:"password" binding:"required,min=6"`
	FullName *string `json:"full_name"`
}

// Register 处理注册请求。注册成功不代表可登录，需要先完成邮箱确认。
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "A valid email and a password of at least 6 characters are required.")
		return
	}

	user, err := h.authService.Register(c.Request.Context(), req.Email, req.Password, req.FullName)
	if err != nil {
		if errors.Is(err, service.ErrEmailTaken) {
			respondError(c, http.StatusConflict, "This email is already registered. Try signing in instead.")
			return
		}
		log.Errorf("Register: failed, email: %s, error: %v", req.Email, err)
		respondError(c, http.StatusInternalServerError, "Something went wrong. Please try again.")
		return
	}

	respondOK(c, gin.H{
		"user":                  user,
		"confirmation_required": true,
	})
}

// ConfirmRequest 定义了邮箱确认 API 的请求体结构。
type ConfirmRequest struct {
	Token string `json:"token" binding:"required"`
}

// Confirm 处理邮箱确认请求。
func (h *AuthHandler) Confirm(c *gin.Context) {
	var req ConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "A confirmation token is required.")
		return
	}

	if err := h.authService.Confirm(c.Request.Context(), req.Token); err != nil {
		if errors.Is(err, service.ErrInvalidConfirmToken) {
			respondError(c, http.StatusBadRequest, "This confirmation link is invalid or has expired.")
			return
		}
		log.Errorf("Confirm: failed, error: %v", err)
		respondError(c, http.StatusInternalServerError, "Something went wrong. Please try again.")
		return
	}

	respondOK(c, gin.H{"confirmed": true})
}

// LoginRequest 定义了登录 API 的请求体结构。
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Login 处理登录请求。错误文案对用户友好，且不泄露账号是否存在。
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Email and password are required.")
		return
	}

	session, pair, err := h.authService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmailNotConfirmed):
			respondError(c, http.StatusForbidden, "Please confirm your email address before signing in.")
		case errors.Is(err, service.ErrInvalidCredentials):
			respondError(c, http.StatusUnauthorized, "Invalid email or password.")
		default:
			log.Errorf("Login: failed, email: %s, error: %v", req.Email, err)
			respondError(c, http.StatusInternalServerError, "Something went wrong. Please try again.")
		}
		return
	}

	respondOK(c, gin.H{
		"session":       session,
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
	})
}

// Session 处理会话恢复请求。恢复失败不是错误，返回 data 为 null 表示未登录。
func (h *AuthHandler) Session(c *gin.Context) {
	tokenString := c.GetString("token")
	session, err := h.authService.RestoreSession(c.Request.Context(), tokenString)
	if err != nil || session == nil {
		respondOK(c, nil)
		return
	}
	respondOK(c, session)
}

// Logout 处理登出请求。无论 token 状态如何都返回成功。
func (h *AuthHandler) Logout(c *gin.Context) {
	tokenString := c.GetString("token")
	if err := h.authService.Logout(c.Request.Context(), tokenString); err != nil {
		log.Warnf("Logout: blacklist failed, error: %v", err)
	}
	respondOK(c, gin.H{"logged_out": true})
}

// UpdateProfileRequest 定义了更新资料 API 的请求体结构。
// 指针字段区分"未传"和"传了空值"。
type UpdateProfileRequest struct {
	FullName *string `json:"full_name"`
}

// UpdateProfile 处理资料更新请求。
func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request payload.")
		return
	}

	profile, err := h.authService.UpdateProfile(c.Request.Context(), middleware.CurrentUserID(c), req.FullName)
	if err != nil {
		if errors.Is(err, service.ErrNotLoggedIn) {
			respondError(c, http.StatusUnauthorized, "You need to be signed in to update your profile.")
			return
		}
		log.Errorf("UpdateProfile: failed, error: %v", err)
		respondError(c, http.StatusInternalServerError, "Could not save your profile. Please try again.")
		return
	}

	respondOK(c, profile)
}

// RefreshTokenRequest 定义了刷新 token API 的请求体结构。
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// RefreshToken 处理刷新 token 的请求。
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req RefreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "A refresh token is required.")
		return
	}

	pair, err := h.authService.RefreshToken(c.Request.Context(), req.RefreshToken)
	if err != nil {
		log.Warnf("RefreshToken: failed, error: %v", err)
		respondError(c, http.StatusUnauthorized, "Your session has expired. Please sign in again.")
		return
	}

	respondOK(c, pair)
}
