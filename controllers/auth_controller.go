package controllers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mydayiart/dayart/middleware"
	"github.com/mydayiart/dayart/models"
	"github.com/mydayiart/dayart/utils"
)

const tokenLifetime = 24 * time.Hour

// AuthController handles registration, login and account deletion.
type AuthController struct {
	db *gorm.DB
}

// NewAuthController creates an AuthController.
func NewAuthController(db *gorm.DB) *AuthController {
	return &AuthController{db: db}
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// isDuplicateKey reports whether err is a unique index violation. The MySQL
// driver says "Duplicate entry" (error 1062), SQLite "UNIQUE constraint failed".
func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "Duplicate entry") ||
		strings.Contains(msg, "UNIQUE constraint failed")
}

// Register creates an account with bcrypt hashing and returns an access token.
func (a *AuthController) Register(ctx *gin.Context) {
	var req credentialsRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40020, "invalid request payload")
		return
	}

	if !utils.ValidateEmail(req.Email) {
		utils.Error(ctx, http.StatusBadRequest, 40021, "invalid email address")
		return
	}
	if err := utils.ValidatePasswordPolicy(req.Password); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40022, err.Error())
		return
	}

	var existing models.User
	if err := a.db.Where("email = ?", req.Email).First(&existing).Error; err == nil {
		utils.Error(ctx, http.StatusConflict, 40902, "email already used")
		return
	} else if err != gorm.ErrRecordNotFound {
		utils.Error(ctx, http.StatusInternalServerError, 50020, "failed to check email")
		return
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50021, "failed to hash password")
		return
	}

	user := models.User{
		Email:        req.Email,
		PasswordHash: hash,
		RegisterDate: utcToday(),
	}
	user.SetRoles([]string{models.RoleUser})

	if err := a.db.Create(&user).Error; err != nil {
		// Losing the unique-index race on email is still a conflict.
		if isDuplicateKey(err) {
			utils.Error(ctx, http.StatusConflict, 40902, "email already used")
			return
		}
		utils.Sugar.Errorf("register failed for %s: %v", req.Email, err)
		utils.Error(ctx, http.StatusInternalServerError, 50025, "failed to create user")
		return
	}

	token, err := utils.GenerateToken(user.ID, user.Email, user.RoleList(), tokenLifetime)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50022, "failed to issue token")
		return
	}

	utils.Success(ctx, gin.H{"token": token})
}

// Login exchanges email/password credentials for an access token.
func (a *AuthController) Login(ctx *gin.Context) {
	var req credentialsRequest
	if err := ctx.ShouldBindJSON(&req); err != nil || req.Email == "" || req.Password == "" {
		utils.Error(ctx, http.StatusBadRequest, 40023, "email and password are required")
		return
	}

	var user models.User
	if err := a.db.Where("email = ?", req.Email).First(&user).Error; err != nil {
		utils.Error(ctx, http.StatusUnauthorized, 40105, "invalid credentials")
		return
	}
	if !utils.CheckPassword(user.PasswordHash, req.Password) {
		utils.Error(ctx, http.StatusUnauthorized, 40105, "invalid credentials")
		return
	}

	token, err := utils.GenerateToken(user.ID, user.Email, user.RoleList(), tokenLifetime)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50022, "failed to issue token")
		return
	}

	utils.Success(ctx, gin.H{"token": token})
}

// DeleteUser removes an account. Allowed for the account owner or an admin.
func (a *AuthController) DeleteUser(ctx *gin.Context) {
	type request struct {
		ID uint `json:"id"`
	}
	var req request
	if err := ctx.ShouldBindJSON(&req); err != nil || req.ID == 0 {
		utils.Error(ctx, http.StatusBadRequest, 40024, "user id is required")
		return
	}

	var target models.User
	if err := a.db.First(&target, req.ID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.Error(ctx, http.StatusNotFound, 40405, "user not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50023, "failed to load user")
		return
	}

	callerID, _ := middleware.CurrentUserID(ctx)
	roles, _ := middleware.CurrentRoles(ctx)
	isAdmin := false
	for _, r := range roles {
		if r == models.RoleAdmin {
			isAdmin = true
		}
	}
	if callerID != target.ID && !isAdmin {
		utils.Error(ctx, http.StatusForbidden, 40303, "you are not allowed to delete this user")
		return
	}

	// Select(Associations) also removes the user's rows in the vote join table.
	if err := a.db.Select(clause.Associations).Delete(&target).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50024, "failed to delete user")
		return
	}

	utils.SuccessMessage(ctx, "user deleted successfully")
}
