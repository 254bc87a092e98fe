package models

import (
	"time"

	"gorm.io/gorm"
)

type User struct {
	gorm.Model
	Handle                string    `gorm:"column:handle;size:50;uniqueIndex;not null" json:"handle"`
	DisplayName           string    `gorm:"column:display_name;size:255;not null" json:"display_name"`
	Email                 string    `gorm:"column:email;size:255;uniqueIndex;not null" json:"email"`
	PasswordHash          string    `gorm:"column:password_hash;size:255;not null" json:"-"`
	Bio                   string    `gorm:"column:bio;type:text" json:"bio,omitempty"`
	AvatarPath            string    `gorm:"column:avatar_path;size:255" json:"avatar_path,omitempty"`
	BannerPath            string    `gorm:"column:banner_path;size:255" json:"banner_path,omitempty"`
	Refresh               string    `gorm:"column:refresh_token;size:255" json:"-"`
	RefreshTokenExpiredAt time.Time `gorm:"column:refresh_token_expired_at" json:"-"`
}

// Follow records that FollowerID follows FolloweeID. The pair is unique so
// a repeated follow is a no-op at the constraint level.
type Follow struct {
	gorm.Model
	FollowerID uint  `gorm:"column:follower_id;not null;uniqueIndex:idx_follow_pair" json:"follower_id"`
	FolloweeID uint  `gorm:"column:followee_id;not null;uniqueIndex:idx_follow_pair" json:"followee_id"`
	Follower   *User `gorm:"foreignKey:FollowerID" json:"follower,omitempty"`
	Followee   *User `gorm:"foreignKey:FolloweeID" json:"followee,omitempty"`
}

// UserSummary is the author shape embedded in post and comment responses.
type UserSummary struct {
	ID          uint   `json:"id"`
	Handle      string `json:"handle"`
	DisplayName string `json:"display_name"`
	AvatarPath  string `json:"avatar_path,omitempty"`
}

func (u *User) Summary() UserSummary {
	return UserSummary{
		ID:          u.ID,
		Handle:      u.Handle,
		DisplayName: u.DisplayName,
		AvatarPath:  u.AvatarPath,
	}
}
