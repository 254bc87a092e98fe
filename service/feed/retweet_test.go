package feed

import (
	"context"
	"testing"

	"github.com/adjeibohyen/ripple-server/cmd/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetweetCreatesSnapshotCopy(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	author := seedUser(t, db, "author")
	retweeter := seedUser(t, db, "retweeter")

	original := seedPost(t, svc, author.ID, "worth sharing")
	_, err := svc.TogglePostLike(ctx, author.ID, original.PostedAt)
	require.NoError(t, err)

	copyPost, err := svc.Retweet(ctx, retweeter.ID, original.PostedAt)
	require.NoError(t, err)

	assert.True(t, copyPost.IsRetweet)
	assert.Equal(t, original.PostedAt, copyPost.OriginalPostedAt)
	assert.Equal(t, retweeter.ID, copyPost.OwnerID)
	assert.Equal(t, author.ID, copyPost.AuthorID)
	assert.Equal(t, "worth sharing", copyPost.Content)
	assert.True(t, copyPost.Likes.Has(author.ID))

	got, err := svc.Store().PostByKey(ctx, original.PostedAt)
	require.NoError(t, err)
	assert.True(t, got.RetweetUserIDs.Has(retweeter.ID))

	posts, total, err := svc.Store().ListUserPosts(ctx, retweeter.ID, 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, copyPost.PostedAt, posts[0].PostedAt)
}

func TestRetweetOfRetweetFails(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	author := seedUser(t, db, "author")
	u1 := seedUser(t, db, "u1")
	u2 := seedUser(t, db, "u2")

	original := seedPost(t, svc, author.ID, "chain start")
	copyPost, err := svc.Retweet(ctx, u1.ID, original.PostedAt)
	require.NoError(t, err)

	_, err = svc.Retweet(ctx, u2.ID, copyPost.PostedAt)
	assert.ErrorIs(t, err, ErrInvalidOperation)
}

func TestRetweetTwiceFails(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	author := seedUser(t, db, "author")
	retweeter := seedUser(t, db, "retweeter")

	original := seedPost(t, svc, author.ID, "once only")
	_, err := svc.Retweet(ctx, retweeter.ID, original.PostedAt)
	require.NoError(t, err)

	_, err = svc.Retweet(ctx, retweeter.ID, original.PostedAt)
	assert.ErrorIs(t, err, ErrAlreadyRetweeted)
}

func TestRetweetUnretweetPairRestoresState(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	author := seedUser(t, db, "author")
	retweeter := seedUser(t, db, "retweeter")

	original := seedPost(t, svc, author.ID, "round trip")

	before, err := svc.Store().PostByKey(ctx, original.PostedAt)
	require.NoError(t, err)
	_, beforeCount, err := svc.Store().ListUserPosts(ctx, retweeter.ID, 1, 10)
	require.NoError(t, err)

	_, err = svc.Retweet(ctx, retweeter.ID, original.PostedAt)
	require.NoError(t, err)
	require.NoError(t, svc.Unretweet(ctx, retweeter.ID, original.PostedAt))

	after, err := svc.Store().PostByKey(ctx, original.PostedAt)
	require.NoError(t, err)
	assert.Equal(t, before.RetweetUserIDs, after.RetweetUserIDs)

	_, afterCount, err := svc.Store().ListUserPosts(ctx, retweeter.ID, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, beforeCount, afterCount)
}

func TestTwoUsersRetweetAndOneLeaves(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	author := seedUser(t, db, "author")
	u := seedUser(t, db, "u")
	v := seedUser(t, db, "v")

	original := seedPost(t, svc, author.ID, "popular")

	_, err := svc.Retweet(ctx, u.ID, original.PostedAt)
	require.NoError(t, err)
	got, err := svc.Store().PostByKey(ctx, original.PostedAt)
	require.NoError(t, err)
	assert.Len(t, got.RetweetUserIDs, 1)

	_, err = svc.Retweet(ctx, v.ID, original.PostedAt)
	require.NoError(t, err)
	got, err = svc.Store().PostByKey(ctx, original.PostedAt)
	require.NoError(t, err)
	assert.Len(t, got.RetweetUserIDs, 2)

	require.NoError(t, svc.Unretweet(ctx, u.ID, original.PostedAt))

	got, err = svc.Store().PostByKey(ctx, original.PostedAt)
	require.NoError(t, err)
	assert.Equal(t, models.UserIDSet{v.ID}, got.RetweetUserIDs)

	// V's copy is untouched.
	_, err = svc.Store().CopyOwnedBy(ctx, v.ID, original.PostedAt)
	assert.NoError(t, err)
	_, err = svc.Store().CopyOwnedBy(ctx, u.ID, original.PostedAt)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUnretweetWithoutCopyFails(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	author := seedUser(t, db, "author")
	stranger := seedUser(t, db, "stranger")

	original := seedPost(t, svc, author.ID, "never shared")

	err := svc.Unretweet(ctx, stranger.ID, original.PostedAt)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUnretweetViaCopyKey(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	author := seedUser(t, db, "author")
	retweeter := seedUser(t, db, "retweeter")

	original := seedPost(t, svc, author.ID, "either key works")
	copyPost, err := svc.Retweet(ctx, retweeter.ID, original.PostedAt)
	require.NoError(t, err)

	require.NoError(t, svc.Unretweet(ctx, retweeter.ID, copyPost.PostedAt))

	got, err := svc.Store().PostByKey(ctx, original.PostedAt)
	require.NoError(t, err)
	assert.False(t, got.RetweetUserIDs.Has(retweeter.ID))
}

func TestDeleteOriginalCascadesToCopies(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	author := seedUser(t, db, "author")
	u1 := seedUser(t, db, "u1")
	u2 := seedUser(t, db, "u2")

	original := seedPost(t, svc, author.ID, "short lived")
	c1, err := svc.Retweet(ctx, u1.ID, original.PostedAt)
	require.NoError(t, err)
	c2, err := svc.Retweet(ctx, u2.ID, original.PostedAt)
	require.NoError(t, err)

	comment, err := svc.AddComment(ctx, u1.ID, original.PostedAt, "gone with the post")
	require.NoError(t, err)

	require.NoError(t, svc.DeletePost(ctx, author.ID, original.PostedAt))

	for _, key := range []string{original.PostedAt, c1.PostedAt, c2.PostedAt} {
		_, err := svc.Store().PostByKey(ctx, key)
		assert.ErrorIs(t, err, ErrNotFound)
	}
	_, err = svc.Store().CommentByKey(ctx, comment.PostedAt)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteCopyActsAsUnretweet(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	author := seedUser(t, db, "author")
	retweeter := seedUser(t, db, "retweeter")

	original := seedPost(t, svc, author.ID, "delete the copy")
	copyPost, err := svc.Retweet(ctx, retweeter.ID, original.PostedAt)
	require.NoError(t, err)

	require.NoError(t, svc.DeletePost(ctx, retweeter.ID, copyPost.PostedAt))

	got, err := svc.Store().PostByKey(ctx, original.PostedAt)
	require.NoError(t, err)
	assert.False(t, got.RetweetUserIDs.Has(retweeter.ID))
}
