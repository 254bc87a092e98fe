package feed

import (
	"context"

	"github.com/adjeibohyen/ripple-server/cmd/models"
)

// ResolveOriginal returns the canonical post for any post: the post itself
// when it is an original, otherwise the post its copy points at. Every
// mutation path goes through this first so likes, comments and edits are
// always recorded against the canonical record, never a retweet shadow.
func (s *Store) ResolveOriginal(ctx context.Context, post *models.Post) (*models.Post, error) {
	if !post.IsRetweet {
		return post, nil
	}
	return s.PostByKey(ctx, post.OriginalPostedAt)
}

// ResolveOriginalByKey looks the post up by its public key first, then
// resolves it to the canonical original.
func (s *Store) ResolveOriginalByKey(ctx context.Context, key string) (*models.Post, error) {
	post, err := s.PostByKey(ctx, key)
	if err != nil {
		return nil, err
	}
	return s.ResolveOriginal(ctx, post)
}
