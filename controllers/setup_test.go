package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/mydayiart/dayart/config"
	"github.com/mydayiart/dayart/models"
	"github.com/mydayiart/dayart/utils"
)

// setupTest wires an in-memory SQLite database plus a test configuration.
// Redis points at a closed port so cache reads miss and the generation lock
// takes its in-memory fallback.
func setupTest(t *testing.T) *gorm.DB {
	t.Helper()

	config.SetForTesting(config.AppConfig{
		AppPort:         "8080",
		JWTSecret:       "test-secret-key",
		GinMode:         "test",
		ImagesDir:       t.TempDir(),
		ResetURLBase:    "https://mydayiart.test/password/reset/",
		OpenAIModel:     "dall-e-3",
		OpenAIImageSize: "1024x1024",
		OpenAIBaseURL:   "http://127.0.0.1:1",
		RedisHost:       "127.0.0.1",
		RedisPort:       6399,
		LogLevel:        "error",
	})
	if utils.Sugar == nil {
		require.NoError(t, utils.InitLogger(config.Get()))
	}
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Day{}, &models.Theme{}))
	return db
}

// seedDay creates a Day at the given date carrying themes with the given vote counts.
func seedDay(t *testing.T, db *gorm.DB, date time.Time, votes ...int) models.Day {
	t.Helper()
	day := models.Day{DayDate: date}
	for i, v := range votes {
		day.Themes = append(day.Themes, models.Theme{
			Title:  "theme " + string(rune('a'+i)),
			NbVote: v,
		})
	}
	require.NoError(t, db.Create(&day).Error)
	return day
}

// seedUser creates an account with a bcrypt hashed password.
func seedUser(t *testing.T, db *gorm.DB, email, password string, roles ...string) models.User {
	t.Helper()
	hash, err := utils.HashPassword(password)
	require.NoError(t, err)
	user := models.User{
		Email:        email,
		PasswordHash: hash,
		RegisterDate: utcToday(),
	}
	if len(roles) > 0 {
		user.SetRoles(roles)
	}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func bearerFor(t *testing.T, user models.User) string {
	t.Helper()
	token, err := utils.GenerateToken(user.ID, user.Email, user.RoleList(), time.Hour)
	require.NoError(t, err)
	return "Bearer " + token
}

// doJSON performs a request against the engine with an optional JSON body and
// Authorization header and decodes the response body into a generic map.
func doJSON(t *testing.T, r *gin.Engine, method, path string, body interface{}, auth string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var decoded map[string]interface{}
	if len(w.Body.Bytes()) > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &decoded))
	}
	return w, decoded
}

// fakeImageGenerator records prompts and returns a canned URL or error.
type fakeImageGenerator struct {
	url     string
	err     error
	calls   int
	prompts []string
}

func (f *fakeImageGenerator) GenerateImage(ctx context.Context, prompt string) (string, error) {
	f.calls++
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return "", f.err
	}
	return f.url, nil
}

// imageHost serves fake PNG bytes for the download step of day resolution.
func imageHost(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte("png-bytes"))
	}))
	t.Cleanup(srv.Close)
	return srv
}
