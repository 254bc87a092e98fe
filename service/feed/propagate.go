package feed

import (
	"context"

	"github.com/adjeibohyen/ripple-server/cmd/models"
)

// Propagation keeps retweet copies identical to their original. Each call
// writes the whole canonical value of one field group to the original and
// every copy in a single statement, matching on
// posted_at == key OR original_posted_at == key. Writes are last-writer-wins
// and idempotent given the final canonical value, so copies converge no
// matter how concurrent calls for the same field interleave.

// PropagateContent applies an edit to the canonical post and every copy.
func (s *Store) PropagateContent(ctx context.Context, key, content string, isEdited bool) error {
	return s.db.WithContext(ctx).Model(&models.Post{}).
		Where("posted_at = ? OR original_posted_at = ?", key, key).
		Select("content", "is_edited").
		Updates(models.Post{Content: content, IsEdited: isEdited}).Error
}

// PropagateLikes overwrites the like set on the canonical post and every copy.
func (s *Store) PropagateLikes(ctx context.Context, key string, likes models.UserIDSet) error {
	return s.db.WithContext(ctx).Model(&models.Post{}).
		Where("posted_at = ? OR original_posted_at = ?", key, key).
		Select("likes").
		Updates(models.Post{Likes: likes}).Error
}

// PropagateComments overwrites the comment list on the canonical post and
// every copy.
func (s *Store) PropagateComments(ctx context.Context, key string, commentIDs models.KeyList) error {
	return s.db.WithContext(ctx).Model(&models.Post{}).
		Where("posted_at = ? OR original_posted_at = ?", key, key).
		Select("comment_ids").
		Updates(models.Post{CommentIDs: commentIDs}).Error
}
