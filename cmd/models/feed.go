package models

import (
	"gorm.io/gorm"
)

// UserIDSet is a set of user ids persisted as a JSON array column.
// Membership order is irrelevant; duplicates are never stored.
type UserIDSet []uint

func (s UserIDSet) Has(userID uint) bool {
	for _, id := range s {
		if id == userID {
			return true
		}
	}
	return false
}

// Add returns the set with userID present.
func (s UserIDSet) Add(userID uint) UserIDSet {
	if s.Has(userID) {
		return s
	}
	return append(s, userID)
}

// Remove returns the set with userID absent.
func (s UserIDSet) Remove(userID uint) UserIDSet {
	out := make(UserIDSet, 0, len(s))
	for _, id := range s {
		if id != userID {
			out = append(out, id)
		}
	}
	return out
}

// KeyList is an ordered list of posted-at keys persisted as a JSON array
// column. Posts keep their comments here, newest first.
type KeyList []string

func (l KeyList) Has(key string) bool {
	for _, k := range l {
		if k == key {
			return true
		}
	}
	return false
}

// Prepend returns the list with key at the front.
func (l KeyList) Prepend(key string) KeyList {
	return append(KeyList{key}, l...)
}

// Remove returns the list with key absent, preserving order.
func (l KeyList) Remove(key string) KeyList {
	out := make(KeyList, 0, len(l))
	for _, k := range l {
		if k != key {
			out = append(out, k)
		}
	}
	return out
}

// Post is either an original or a retweet copy of an original. A copy
// duplicates the original's content, likes and comment list; those fields
// are overwritten on every copy whenever the original changes. PostedAt is
// the public id used in URLs, assigned once at creation.
type Post struct {
	gorm.Model
	PostedAt         string    `gorm:"column:posted_at;size:32;uniqueIndex;not null" json:"posted_at"`
	OwnerID          uint      `gorm:"column:owner_id;not null;index" json:"owner_id"`
	AuthorID         uint      `gorm:"column:author_id;not null" json:"author_id"`
	Content          string    `gorm:"column:content;type:text;not null" json:"content"`
	Tag              string    `gorm:"column:tag;size:100" json:"tag,omitempty"`
	ImageURL         string    `gorm:"column:image_url;size:255" json:"image_url,omitempty"`
	IsEdited         bool      `gorm:"column:is_edited;default:false" json:"is_edited"`
	Likes            UserIDSet `gorm:"column:likes;serializer:json" json:"likes"`
	CommentIDs       KeyList   `gorm:"column:comment_ids;serializer:json" json:"comment_ids"`
	RetweetUserIDs   UserIDSet `gorm:"column:retweet_user_ids;serializer:json" json:"retweet_user_ids"`
	IsRetweet        bool      `gorm:"column:is_retweet;default:false;index" json:"is_retweet"`
	OriginalPostedAt string    `gorm:"column:original_posted_at;size:32;index" json:"original_posted_at,omitempty"`
	Owner            *User     `gorm:"foreignKey:OwnerID" json:"owner,omitempty"`
	Author           *User     `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
}

// Comment belongs to exactly one original post through that post's
// CommentIDs list. It carries no back-reference of its own.
type Comment struct {
	gorm.Model
	PostedAt string    `gorm:"column:posted_at;size:32;uniqueIndex;not null" json:"posted_at"`
	AuthorID uint      `gorm:"column:author_id;not null" json:"author_id"`
	Content  string    `gorm:"column:content;type:text;not null" json:"content"`
	IsEdited bool      `gorm:"column:is_edited;default:false" json:"is_edited"`
	Likes    UserIDSet `gorm:"column:likes;serializer:json" json:"likes"`
	Author   *User     `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
}
