package controllers

import (
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/mydayiart/dayart/models"
	"github.com/mydayiart/dayart/utils"
)

type sentMail struct {
	to      string
	subject string
	body    string
}

type recordingMailer struct {
	sent []sentMail
	err  error
}

func (m *recordingMailer) send(to, subject, body string) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentMail{to: to, subject: subject, body: body})
	return nil
}

func newPasswordEngine(db *gorm.DB, mailer *recordingMailer) *gin.Engine {
	pc := NewPasswordController(db)
	pc.sendMail = mailer.send
	r := gin.New()
	r.POST("/password/reset/request", pc.RequestReset)
	r.POST("/password/reset/:token", pc.ResetPassword)
	return r
}

func TestRequestResetIssuesTokenAndMail(t *testing.T) {
	db := setupTest(t)
	user := seedUser(t, db, "user@mydayiart.com", "Password1")
	mailer := &recordingMailer{}
	r := newPasswordEngine(db, mailer)

	w, _ := doJSON(t, r, "POST", "/password/reset/request",
		gin.H{"email": user.Email}, "")
	require.Equal(t, http.StatusOK, w.Code)

	var fresh models.User
	require.NoError(t, db.First(&fresh, user.ID).Error)
	require.NotNil(t, fresh.ResetToken)
	assert.Len(t, *fresh.ResetToken, 64, "token is 32 random bytes hex encoded")
	require.NotNil(t, fresh.ResetTokenExpiresAt)
	assert.WithinDuration(t, time.Now().Add(time.Hour), *fresh.ResetTokenExpiresAt, time.Minute)

	require.Len(t, mailer.sent, 1)
	assert.Equal(t, user.Email, mailer.sent[0].to)
	assert.True(t, strings.HasSuffix(mailer.sent[0].body, *fresh.ResetToken),
		"mail carries the reset link ending in the token")
}

func TestRequestResetErrors(t *testing.T) {
	db := setupTest(t)
	mailer := &recordingMailer{}
	r := newPasswordEngine(db, mailer)

	w, _ := doJSON(t, r, "POST", "/password/reset/request", gin.H{}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = doJSON(t, r, "POST", "/password/reset/request", gin.H{"email": "ghost@x.com"}, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Empty(t, mailer.sent)
}

func TestRequestResetMailFailure(t *testing.T) {
	db := setupTest(t)
	user := seedUser(t, db, "user@mydayiart.com", "Password1")
	mailer := &recordingMailer{err: fmt.Errorf("smtp down")}
	r := newPasswordEngine(db, mailer)

	w, _ := doJSON(t, r, "POST", "/password/reset/request", gin.H{"email": user.Email}, "")
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestResetPasswordConsumesToken(t *testing.T) {
	db := setupTest(t)
	user := seedUser(t, db, "user@mydayiart.com", "Password1")
	mailer := &recordingMailer{}
	r := newPasswordEngine(db, mailer)

	w, _ := doJSON(t, r, "POST", "/password/reset/request", gin.H{"email": user.Email}, "")
	require.Equal(t, http.StatusOK, w.Code)

	var withToken models.User
	require.NoError(t, db.First(&withToken, user.ID).Error)
	token := *withToken.ResetToken

	w, _ = doJSON(t, r, "POST", "/password/reset/"+token, gin.H{"password": "NewPassword2"}, "")
	require.Equal(t, http.StatusOK, w.Code)

	var fresh models.User
	require.NoError(t, db.First(&fresh, user.ID).Error)
	assert.Nil(t, fresh.ResetToken)
	assert.Nil(t, fresh.ResetTokenExpiresAt)
	assert.True(t, utils.CheckPassword(fresh.PasswordHash, "NewPassword2"))
	assert.False(t, utils.CheckPassword(fresh.PasswordHash, "Password1"))

	// the token is single use
	w, _ = doJSON(t, r, "POST", "/password/reset/"+token, gin.H{"password": "OtherPass3"}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestResetPasswordExpiredToken(t *testing.T) {
	db := setupTest(t)
	user := seedUser(t, db, "user@mydayiart.com", "Password1")
	token := strings.Repeat("ab", 32)
	expired := time.Now().Add(-time.Minute)
	require.NoError(t, db.Model(&user).Updates(map[string]interface{}{
		"reset_token":            token,
		"reset_token_expires_at": expired,
	}).Error)
	mailer := &recordingMailer{}
	r := newPasswordEngine(db, mailer)

	w, body := doJSON(t, r, "POST", "/password/reset/"+token, gin.H{"password": "NewPassword2"}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, body["error"], "invalid or expired")
}

func TestResetPasswordUnknownToken(t *testing.T) {
	db := setupTest(t)
	mailer := &recordingMailer{}
	r := newPasswordEngine(db, mailer)

	w, _ := doJSON(t, r, "POST", "/password/reset/"+strings.Repeat("cd", 32),
		gin.H{"password": "NewPassword2"}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestResetPasswordEnforcesPolicy(t *testing.T) {
	db := setupTest(t)
	user := seedUser(t, db, "user@mydayiart.com", "Password1")
	token := strings.Repeat("ef", 32)
	require.NoError(t, db.Model(&user).Updates(map[string]interface{}{
		"reset_token":            token,
		"reset_token_expires_at": time.Now().Add(time.Hour),
	}).Error)
	mailer := &recordingMailer{}
	r := newPasswordEngine(db, mailer)

	w, _ := doJSON(t, r, "POST", "/password/reset/"+token, gin.H{"password": "weak"}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// token survives a rejected attempt
	var fresh models.User
	require.NoError(t, db.First(&fresh, user.ID).Error)
	require.NotNil(t, fresh.ResetToken)
	assert.Equal(t, token, *fresh.ResetToken)
}
