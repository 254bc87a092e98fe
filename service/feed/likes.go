package feed

import (
	"context"

	"github.com/adjeibohyen/ripple-server/cmd/models"
)

// LikeState is returned from like toggles.
type LikeState struct {
	LikeCount int  `json:"like_count"`
	IsLiked   bool `json:"is_liked"`
}

// toggleLike flips userID's membership in the like set.
func toggleLike(likes models.UserIDSet, userID uint) (models.UserIDSet, LikeState) {
	if likes.Has(userID) {
		updated := likes.Remove(userID)
		return updated, LikeState{LikeCount: len(updated), IsLiked: false}
	}
	updated := likes.Add(userID)
	return updated, LikeState{LikeCount: len(updated), IsLiked: true}
}

// TogglePostLike flips userID's like on the canonical post behind key and
// propagates the whole like set to every retweet copy.
func (svc *Service) TogglePostLike(ctx context.Context, userID uint, key string) (LikeState, error) {
	original, err := svc.store.ResolveOriginalByKey(ctx, key)
	if err != nil {
		return LikeState{}, err
	}

	updated, state := toggleLike(original.Likes, userID)
	if err := svc.store.PropagateLikes(ctx, original.PostedAt, updated); err != nil {
		return LikeState{}, err
	}
	return state, nil
}

// ToggleCommentLike flips userID's like on a comment. Comments have a
// single canonical owner, so no propagation is involved.
func (svc *Service) ToggleCommentLike(ctx context.Context, userID uint, commentKey string) (LikeState, error) {
	comment, err := svc.store.CommentByKey(ctx, commentKey)
	if err != nil {
		return LikeState{}, err
	}

	updated, state := toggleLike(comment.Likes, userID)
	if err := svc.store.UpdateCommentLikes(ctx, commentKey, updated); err != nil {
		return LikeState{}, err
	}
	return state, nil
}
