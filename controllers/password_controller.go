package controllers

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/mydayiart/dayart/config"
	"github.com/mydayiart/dayart/models"
	"github.com/mydayiart/dayart/utils"
)

const resetTokenLifetime = time.Hour

// PasswordController issues and consumes password reset tokens.
type PasswordController struct {
	db       *gorm.DB
	sendMail func(to, subject, body string) error
}

// NewPasswordController creates a PasswordController using the SMTP mailer.
func NewPasswordController(db *gorm.DB) *PasswordController {
	return &PasswordController{db: db, sendMail: utils.SendMail}
}

// RequestReset issues a single-use reset token valid for one hour and mails a
// reset link to the account address.
func (p *PasswordController) RequestReset(ctx *gin.Context) {
	type request struct {
		Email string `json:"email"`
	}
	var req request
	if err := ctx.ShouldBindJSON(&req); err != nil || req.Email == "" {
		utils.Error(ctx, http.StatusBadRequest, 40030, "email address is required")
		return
	}

	var user models.User
	if err := p.db.Where("email = ?", req.Email).First(&user).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.Error(ctx, http.StatusNotFound, 40406, "email address not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50030, "failed to load user")
		return
	}

	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50031, "failed to generate token")
		return
	}
	token := hex.EncodeToString(buf)
	expiresAt := time.Now().Add(resetTokenLifetime)

	if err := p.db.Model(&user).Updates(map[string]interface{}{
		"reset_token":            token,
		"reset_token_expires_at": expiresAt,
	}).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50032, "failed to save token")
		return
	}

	resetURL := config.Get().ResetURLBase + token
	body := "Please click on the following link to reset your password: " + resetURL
	if err := p.sendMail(user.Email, "Your password reset request", body); err != nil {
		utils.Sugar.Errorf("reset mail to %s failed: %v", user.Email, err)
		utils.Error(ctx, http.StatusBadGateway, 50203, "failed to send reset email")
		return
	}

	utils.SuccessMessage(ctx, "password reset email sent")
}

// ResetPassword consumes a reset token and stores the new credential. The token
// is cleared on success so it cannot be replayed.
func (p *PasswordController) ResetPassword(ctx *gin.Context) {
	token := ctx.Param("token")
	if token == "" {
		utils.Error(ctx, http.StatusBadRequest, 40031, "invalid or expired token")
		return
	}

	var user models.User
	if err := p.db.Where("reset_token = ?", token).First(&user).Error; err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40031, "invalid or expired token")
		return
	}
	if user.ResetTokenExpiresAt == nil || user.ResetTokenExpiresAt.Before(time.Now()) {
		utils.Error(ctx, http.StatusBadRequest, 40031, "invalid or expired token")
		return
	}

	type request struct {
		Password string `json:"password"`
	}
	var req request
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40032, "invalid request payload")
		return
	}
	if err := utils.ValidatePasswordPolicy(req.Password); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40033, err.Error())
		return
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50033, "failed to hash password")
		return
	}

	if err := p.db.Model(&user).Updates(map[string]interface{}{
		"password_hash":          hash,
		"reset_token":            nil,
		"reset_token_expires_at": nil,
	}).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50034, "failed to reset password")
		return
	}

	utils.SuccessMessage(ctx, "password reset successfully")
}
