package user

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/adjeibohyen/ripple-server/cmd/models"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestRouter(t *testing.T) (*mux.Router, *gorm.DB) {
	t.Helper()
	t.Setenv("SECRET_KEY", "test-secret")

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Follow{}, &models.Post{}, &models.Comment{}))

	router := mux.NewRouter()
	NewHandler(db).RegisterRoutes(router)
	return router, db
}

func postJSON(t *testing.T, router *mux.Router, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest("POST", path, bytes.NewReader(payload))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func registerAndLogin(t *testing.T, router *mux.Router, handle string) (uint, string) {
	t.Helper()

	rec := postJSON(t, router, "/register", "", map[string]string{
		"handle":       handle,
		"display_name": handle,
		"email":        handle + "@example.com",
		"password":     "hunter22",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = postJSON(t, router, "/login", "", map[string]string{
		"email":    handle + "@example.com",
		"password": "hunter22",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var env struct {
		Data struct {
			AccessToken string `json:"access_token"`
			UserID      uint   `json:"user_id"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env.Data.UserID, env.Data.AccessToken
}

func TestRegisterLoginAndDuplicateHandle(t *testing.T) {
	router, _ := newTestRouter(t)

	userID, token := registerAndLogin(t, router, "ada")
	assert.NotZero(t, userID)
	assert.NotEmpty(t, token)

	rec := postJSON(t, router, "/register", "", map[string]string{
		"handle":       "ada",
		"display_name": "Someone Else",
		"email":        "other@example.com",
		"password":     "hunter22",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = postJSON(t, router, "/login", "", map[string]string{
		"email":    "ada@example.com",
		"password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestProfileEditIsTagged(t *testing.T) {
	router, db := newTestRouter(t)

	userID, token := registerAndLogin(t, router, "ada")

	req := httptest.NewRequest("PUT", "/users/me", bytes.NewReader([]byte(`{"op":"set_bio","value":"I write compilers"}`)))
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var user models.User
	require.NoError(t, db.First(&user, userID).Error)
	assert.Equal(t, "I write compilers", user.Bio)

	// Free-form field updates are not a thing.
	req = httptest.NewRequest("PUT", "/users/me", bytes.NewReader([]byte(`{"op":"password_hash","value":"pwned"}`)))
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestFollowToggle(t *testing.T) {
	router, db := newTestRouter(t)

	_, tokenA := registerAndLogin(t, router, "ada")
	userB, _ := registerAndLogin(t, router, "babbage")

	path := "/users/" + strconv.FormatUint(uint64(userB), 10) + "/follow"

	rec := postJSON(t, router, path, tokenA, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var count int64
	db.Model(&models.Follow{}).Count(&count)
	assert.EqualValues(t, 1, count)

	rec = postJSON(t, router, path, tokenA, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	db.Model(&models.Follow{}).Count(&count)
	assert.EqualValues(t, 0, count)
}
