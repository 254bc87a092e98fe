package feed

import (
	"context"
	"fmt"
	"testing"

	"github.com/adjeibohyen/ripple-server/cmd/models"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Follow{}, &models.Post{}, &models.Comment{}))

	return NewService(NewStore(db)), db
}

func seedUser(t *testing.T, db *gorm.DB, handle string) models.User {
	t.Helper()

	user := models.User{
		Handle:       handle,
		DisplayName:  handle,
		Email:        fmt.Sprintf("%s@example.com", handle),
		PasswordHash: "x",
	}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func seedPost(t *testing.T, svc *Service, ownerID uint, content string) *models.Post {
	t.Helper()

	post, err := svc.CreatePost(context.Background(), ownerID, content, "", "")
	require.NoError(t, err)
	return post
}
