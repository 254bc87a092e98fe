package feed

import (
	"context"
	"errors"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/adjeibohyen/ripple-server/cmd/models"
	"gorm.io/gorm"
)

// Store is the only component that touches durable storage for posts and
// comments. Everything above it works in terms of posted-at keys, the
// public correlation ids assigned at creation.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

var lastPostedAt int64

// NewPostedAt mints a correlation key for a new post or comment. Keys are
// the creation instant in nanoseconds, bumped past the previous key when
// two creations land on the same tick, which keeps them unique, sortable
// and URL-safe.
func NewPostedAt() string {
	now := time.Now().UnixNano()
	for {
		last := atomic.LoadInt64(&lastPostedAt)
		if now <= last {
			now = last + 1
		}
		if atomic.CompareAndSwapInt64(&lastPostedAt, last, now) {
			return strconv.FormatInt(now, 10)
		}
	}
}

func (s *Store) PostByKey(ctx context.Context, key string) (*models.Post, error) {
	var post models.Post
	err := s.db.WithContext(ctx).Where("posted_at = ?", key).First(&post).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &post, nil
}

func (s *Store) CommentByKey(ctx context.Context, key string) (*models.Comment, error) {
	var comment models.Comment
	err := s.db.WithContext(ctx).Where("posted_at = ?", key).First(&comment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &comment, nil
}

// PostsByKeys loads posts by their public keys, unordered.
func (s *Store) PostsByKeys(ctx context.Context, keys []string) (map[string]models.Post, error) {
	if len(keys) == 0 {
		return map[string]models.Post{}, nil
	}

	var posts []models.Post
	if err := s.db.WithContext(ctx).Where("posted_at IN ?", keys).Find(&posts).Error; err != nil {
		return nil, err
	}

	byKey := make(map[string]models.Post, len(posts))
	for _, p := range posts {
		byKey[p.PostedAt] = p
	}
	return byKey, nil
}

// CommentsByKeys loads the comments named by keys, preserving the order of
// keys. Keys that no longer resolve are skipped.
func (s *Store) CommentsByKeys(ctx context.Context, keys models.KeyList) ([]models.Comment, error) {
	if len(keys) == 0 {
		return nil, nil
	}

	var comments []models.Comment
	if err := s.db.WithContext(ctx).Where("posted_at IN ?", []string(keys)).Find(&comments).Error; err != nil {
		return nil, err
	}

	byKey := make(map[string]models.Comment, len(comments))
	for _, c := range comments {
		byKey[c.PostedAt] = c
	}

	ordered := make([]models.Comment, 0, len(keys))
	for _, key := range keys {
		if c, ok := byKey[key]; ok {
			ordered = append(ordered, c)
		}
	}
	return ordered, nil
}

func (s *Store) CreatePost(ctx context.Context, post *models.Post) error {
	return s.db.WithContext(ctx).Create(post).Error
}

func (s *Store) CreateComment(ctx context.Context, comment *models.Comment) error {
	return s.db.WithContext(ctx).Create(comment).Error
}

// DeletePost removes a single post row by its key.
func (s *Store) DeletePost(ctx context.Context, key string) error {
	return s.db.WithContext(ctx).Where("posted_at = ?", key).Delete(&models.Post{}).Error
}

// DeleteCopiesOf removes every retweet copy referencing the original at
// key. Invoked when an original is deleted so copies never dangle.
func (s *Store) DeleteCopiesOf(ctx context.Context, key string) error {
	return s.db.WithContext(ctx).Where("original_posted_at = ?", key).Delete(&models.Post{}).Error
}

func (s *Store) DeleteComment(ctx context.Context, key string) error {
	return s.db.WithContext(ctx).Where("posted_at = ?", key).Delete(&models.Comment{}).Error
}

// CopyOwnedBy finds the retweet copy of originalKey in userID's post list.
func (s *Store) CopyOwnedBy(ctx context.Context, userID uint, originalKey string) (*models.Post, error) {
	var post models.Post
	err := s.db.WithContext(ctx).
		Where("owner_id = ? AND original_posted_at = ?", userID, originalKey).
		First(&post).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &post, nil
}

// UpdateRetweetUsers overwrites the canonical retweet-user set on the
// original row alone. Copies keep the snapshot they were born with.
func (s *Store) UpdateRetweetUsers(ctx context.Context, key string, set models.UserIDSet) error {
	return s.db.WithContext(ctx).Model(&models.Post{}).
		Where("posted_at = ?", key).
		Select("retweet_user_ids").
		Updates(models.Post{RetweetUserIDs: set}).Error
}

func (s *Store) UpdateCommentContent(ctx context.Context, key, content string) error {
	return s.db.WithContext(ctx).Model(&models.Comment{}).
		Where("posted_at = ?", key).
		Select("content", "is_edited").
		Updates(models.Comment{Content: content, IsEdited: true}).Error
}

func (s *Store) UpdateCommentLikes(ctx context.Context, key string, likes models.UserIDSet) error {
	return s.db.WithContext(ctx).Model(&models.Comment{}).
		Where("posted_at = ?", key).
		Select("likes").
		Updates(models.Comment{Likes: likes}).Error
}

// ListFeed returns the global feed: originals only, newest first,
// optionally filtered by tag.
func (s *Store) ListFeed(ctx context.Context, page, pageSize int, tag string) ([]models.Post, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Post{}).Where("is_retweet = ?", false)
	if tag != "" {
		query = query.Where("tag = ?", tag)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var posts []models.Post
	err := query.Order("created_at DESC").
		Offset((page - 1) * pageSize).Limit(pageSize).
		Find(&posts).Error
	if err != nil {
		return nil, 0, err
	}
	return posts, total, nil
}

// ListUserPosts returns a user's own post list, retweet copies included.
func (s *Store) ListUserPosts(ctx context.Context, ownerID uint, page, pageSize int) ([]models.Post, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Post{}).Where("owner_id = ?", ownerID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var posts []models.Post
	err := query.Order("created_at DESC").
		Offset((page - 1) * pageSize).Limit(pageSize).
		Find(&posts).Error
	if err != nil {
		return nil, 0, err
	}
	return posts, total, nil
}

// CountUserPosts is used for profile summaries.
func (s *Store) CountUserPosts(ctx context.Context, ownerID uint) (int64, error) {
	var total int64
	err := s.db.WithContext(ctx).Model(&models.Post{}).Where("owner_id = ?", ownerID).Count(&total).Error
	return total, err
}

// UsersByIDs loads author records for response hydration.
func (s *Store) UsersByIDs(ctx context.Context, ids []uint) (map[uint]models.User, error) {
	if len(ids) == 0 {
		return map[uint]models.User{}, nil
	}

	var users []models.User
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, err
	}

	byID := make(map[uint]models.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}
	return byID, nil
}
