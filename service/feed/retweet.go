package feed

import (
	"context"

	"github.com/adjeibohyen/ripple-server/cmd/models"
)

// Retweet creates userID's copy of the original post at key. The copy
// snapshots the original's content, likes and comment list at creation
// time, so it is born consistent and needs no propagation of its own.
// Retweeting a post that is itself a copy is rejected outright; retweeting
// the same original twice is rejected rather than toggled.
func (svc *Service) Retweet(ctx context.Context, userID uint, key string) (*models.Post, error) {
	original, err := svc.store.PostByKey(ctx, key)
	if err != nil {
		return nil, err
	}
	if original.IsRetweet {
		return nil, ErrCannotRetweetRetweet
	}
	if original.RetweetUserIDs.Has(userID) {
		return nil, ErrAlreadyRetweeted
	}

	retweeters := original.RetweetUserIDs.Add(userID)

	copyPost := &models.Post{
		PostedAt:         NewPostedAt(),
		OwnerID:          userID,
		AuthorID:         original.AuthorID,
		Content:          original.Content,
		Tag:              original.Tag,
		ImageURL:         original.ImageURL,
		IsEdited:         original.IsEdited,
		Likes:            original.Likes,
		CommentIDs:       original.CommentIDs,
		RetweetUserIDs:   retweeters,
		IsRetweet:        true,
		OriginalPostedAt: original.PostedAt,
	}
	if err := svc.store.CreatePost(ctx, copyPost); err != nil {
		return nil, err
	}

	if err := svc.store.UpdateRetweetUsers(ctx, original.PostedAt, retweeters); err != nil {
		return nil, err
	}
	return copyPost, nil
}

// Unretweet removes userID's copy of the original behind key and takes the
// user out of the original's retweet set. Works from either the original's
// key or the copy's own key. Fails with ErrNotFound when the caller has no
// copy of this original.
func (svc *Service) Unretweet(ctx context.Context, userID uint, key string) error {
	original, err := svc.store.ResolveOriginalByKey(ctx, key)
	if err != nil {
		return err
	}

	copyPost, err := svc.store.CopyOwnedBy(ctx, userID, original.PostedAt)
	if err != nil {
		return err
	}

	if err := svc.store.DeletePost(ctx, copyPost.PostedAt); err != nil {
		return err
	}
	return svc.store.UpdateRetweetUsers(ctx, original.PostedAt, original.RetweetUserIDs.Remove(userID))
}
