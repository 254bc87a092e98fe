package feed

import (
	"context"
	"strings"

	"github.com/adjeibohyen/ripple-server/cmd/models"
)

// Service orchestrates feed mutations: resolve the canonical original,
// mutate it in the store, then fan the result out to retweet copies. The
// steps are not transactional; a failure between them leaves copies stale
// until the next mutation of the same field rewrites the canonical value.
type Service struct {
	store *Store
}

func NewService(store *Store) *Service {
	return &Service{store: store}
}

func (svc *Service) Store() *Store {
	return svc.store
}

// CreatePost stores a new original post for userID.
func (svc *Service) CreatePost(ctx context.Context, userID uint, content, tag, imageURL string) (*models.Post, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyContent
	}

	post := &models.Post{
		PostedAt:       NewPostedAt(),
		OwnerID:        userID,
		AuthorID:       userID,
		Content:        content,
		Tag:            tag,
		ImageURL:       imageURL,
		Likes:          models.UserIDSet{},
		CommentIDs:     models.KeyList{},
		RetweetUserIDs: models.UserIDSet{},
	}
	if err := svc.store.CreatePost(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

// EditPost updates the content of the canonical post behind key and
// propagates the edit to every retweet copy. Only the original's owner may
// edit.
func (svc *Service) EditPost(ctx context.Context, userID uint, key, content string) (*models.Post, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyContent
	}

	original, err := svc.store.ResolveOriginalByKey(ctx, key)
	if err != nil {
		return nil, err
	}
	if original.OwnerID != userID {
		return nil, ErrForbidden
	}

	if err := svc.store.PropagateContent(ctx, original.PostedAt, content, true); err != nil {
		return nil, err
	}
	original.Content = content
	original.IsEdited = true
	return original, nil
}

// DeletePost removes a post from its owner's list. Deleting an original
// cascade-deletes its retweet copies and its comments so no copy is left
// pointing at a missing canonical record. Deleting a retweet copy directly
// is the same transition as unretweeting the original.
func (svc *Service) DeletePost(ctx context.Context, userID uint, key string) error {
	post, err := svc.store.PostByKey(ctx, key)
	if err != nil {
		return err
	}
	if post.OwnerID != userID {
		return ErrForbidden
	}

	if post.IsRetweet {
		return svc.Unretweet(ctx, userID, post.OriginalPostedAt)
	}

	for _, commentKey := range post.CommentIDs {
		if err := svc.store.DeleteComment(ctx, commentKey); err != nil {
			return err
		}
	}
	if err := svc.store.DeleteCopiesOf(ctx, post.PostedAt); err != nil {
		return err
	}
	return svc.store.DeletePost(ctx, post.PostedAt)
}

// AddComment attaches a new comment to the canonical post behind postKey,
// newest first, and propagates the updated comment list to every copy.
func (svc *Service) AddComment(ctx context.Context, userID uint, postKey, content string) (*models.Comment, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyContent
	}

	original, err := svc.store.ResolveOriginalByKey(ctx, postKey)
	if err != nil {
		return nil, err
	}

	comment := &models.Comment{
		PostedAt: NewPostedAt(),
		AuthorID: userID,
		Content:  content,
		Likes:    models.UserIDSet{},
	}
	if err := svc.store.CreateComment(ctx, comment); err != nil {
		return nil, err
	}

	updated := original.CommentIDs.Prepend(comment.PostedAt)
	if err := svc.store.PropagateComments(ctx, original.PostedAt, updated); err != nil {
		return nil, err
	}
	return comment, nil
}

// EditComment updates a comment's content. Only its author may edit.
// Comment content is not denormalized onto posts, so no propagation is
// needed; copies render the change through comment hydration.
func (svc *Service) EditComment(ctx context.Context, userID uint, commentKey, content string) (*models.Comment, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyContent
	}

	comment, err := svc.store.CommentByKey(ctx, commentKey)
	if err != nil {
		return nil, err
	}
	if comment.AuthorID != userID {
		return nil, ErrForbidden
	}

	if err := svc.store.UpdateCommentContent(ctx, commentKey, content); err != nil {
		return nil, err
	}
	comment.Content = content
	comment.IsEdited = true
	return comment, nil
}

// DeleteComment detaches a comment from the canonical post behind postKey,
// deletes it, and propagates the shortened comment list.
func (svc *Service) DeleteComment(ctx context.Context, userID uint, postKey, commentKey string) error {
	original, err := svc.store.ResolveOriginalByKey(ctx, postKey)
	if err != nil {
		return err
	}
	if !original.CommentIDs.Has(commentKey) {
		return ErrNotFound
	}

	comment, err := svc.store.CommentByKey(ctx, commentKey)
	if err != nil {
		return err
	}
	if comment.AuthorID != userID && original.OwnerID != userID {
		return ErrForbidden
	}

	if err := svc.store.DeleteComment(ctx, commentKey); err != nil {
		return err
	}
	return svc.store.PropagateComments(ctx, original.PostedAt, original.CommentIDs.Remove(commentKey))
}
