package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestRouter(t *testing.T) (*mux.Router, *Service, *gorm.DB) {
	t.Helper()
	t.Setenv("SECRET_KEY", "test-secret")

	svc, db := newTestService(t)
	router := mux.NewRouter()
	handler := &Handler{svc: svc}
	handler.RegisterRoutes(router)
	return router, svc, db
}

func bearerToken(t *testing.T, userID uint) string {
	t.Helper()

	claims := &jwt.RegisteredClaims{
		Subject:   fmt.Sprint(userID),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return "Bearer " + token
}

type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func doRequest(t *testing.T, router *mux.Router, method, path, token string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return rec, env
}

func TestGetFeedAnonymous(t *testing.T) {
	router, svc, db := newTestRouter(t)

	author := seedUser(t, db, "author")
	seedPost(t, svc, author.ID, "public post")

	rec, env := doRequest(t, router, "GET", "/posts", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "success", env.Status)

	var data struct {
		Posts []PostResponse `json:"posts"`
		Total int64          `json:"total"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.Len(t, data.Posts, 1)
	assert.Equal(t, "public post", data.Posts[0].Content)
	assert.Equal(t, "author", data.Posts[0].Author.Handle)
	assert.False(t, data.Posts[0].IsLiked)
	assert.False(t, data.Posts[0].IsRetweeted)
}

func TestLikeEndpointAnnotatesResponse(t *testing.T) {
	router, svc, db := newTestRouter(t)

	author := seedUser(t, db, "author")
	liker := seedUser(t, db, "liker")
	post := seedPost(t, svc, author.ID, "like me")

	rec, _ := doRequest(t, router, "POST", "/posts/"+post.PostedAt+"/like", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	token := bearerToken(t, liker.ID)
	rec, env := doRequest(t, router, "POST", "/posts/"+post.PostedAt+"/like", token)
	require.Equal(t, http.StatusOK, rec.Code)

	var state LikeState
	require.NoError(t, json.Unmarshal(env.Data, &state))
	assert.Equal(t, LikeState{LikeCount: 1, IsLiked: true}, state)

	rec, env = doRequest(t, router, "GET", "/posts/"+post.PostedAt, token)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp PostResponse
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	assert.True(t, resp.IsLiked)
	assert.Equal(t, 1, resp.LikeCount)
}

func TestRetweetEndpointStatusMapping(t *testing.T) {
	router, svc, db := newTestRouter(t)
	ctx := context.Background()

	author := seedUser(t, db, "author")
	u1 := seedUser(t, db, "u1")
	u2 := seedUser(t, db, "u2")

	original := seedPost(t, svc, author.ID, "status mapping")
	copyPost, err := svc.Retweet(ctx, u1.ID, original.PostedAt)
	require.NoError(t, err)

	// Retweeting a copy directly is rejected.
	rec, env := doRequest(t, router, "POST", "/posts/"+copyPost.PostedAt+"/retweet", bearerToken(t, u2.ID))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "error", env.Status)

	// Unretweeting something never retweeted is a 404.
	rec, _ = doRequest(t, router, "POST", "/posts/"+original.PostedAt+"/unretweet", bearerToken(t, u2.ID))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// A missing post is a 404 as well.
	rec, _ = doRequest(t, router, "GET", "/posts/424242424242", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCopyReflectsOriginalInResponses(t *testing.T) {
	router, svc, db := newTestRouter(t)
	ctx := context.Background()

	author := seedUser(t, db, "author")
	retweeter := seedUser(t, db, "retweeter")
	commenter := seedUser(t, db, "commenter")

	original := seedPost(t, svc, author.ID, "hello")
	copyPost, err := svc.Retweet(ctx, retweeter.ID, original.PostedAt)
	require.NoError(t, err)

	_, err = svc.EditPost(ctx, author.ID, original.PostedAt, "hello world")
	require.NoError(t, err)
	_, err = svc.AddComment(ctx, commenter.ID, original.PostedAt, "nice edit")
	require.NoError(t, err)

	rec, env := doRequest(t, router, "GET", "/posts/"+copyPost.PostedAt, bearerToken(t, retweeter.ID))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp PostResponse
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	assert.Equal(t, "hello world", resp.Content)
	assert.True(t, resp.IsEdited)
	assert.True(t, resp.IsRetweeted)
	assert.Equal(t, 1, resp.RetweetCount)
	require.Len(t, resp.Comments, 1)
	assert.Equal(t, "nice edit", resp.Comments[0].Content)
	assert.Equal(t, "commenter", resp.Comments[0].Author.Handle)
}
