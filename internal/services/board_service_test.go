package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wisemarket1122/wisemarket/internal/models"
)

func TestListPosts_PaginatesNewestFirst(t *testing.T) {
	gdb := newTestDB(t)
	svc := NewBoardService(gdb)
	author := seedUser(t, gdb, "author@dongguk.ac.kr", "author", "secret123", true)
	board := seedBoard(t, gdb, "Free board")

	base := time.Now().Add(-time.Hour)
	for i := 0; i < PostsPerPage+2; i++ {
		post := &models.BoardPost{BoardID: board.ID, AuthorID: author.ID, Title: fmt.Sprintf("Post %02d", i), Content: "body"}
		require.NoError(t, gdb.Create(post).Error)
		require.NoError(t, gdb.Model(&models.BoardPost{}).Where("id = ?", post.ID).
			Update("created_at", base.Add(time.Duration(i)*time.Minute)).Error)
	}

	page1, err := svc.ListPosts(context.Background(), board.ID, "", 1)
	require.NoError(t, err)
	assert.Len(t, page1.Posts, PostsPerPage)
	assert.Equal(t, int64(PostsPerPage+2), page1.TotalPosts)
	assert.Equal(t, 2, page1.TotalPages)
	assert.Equal(t, "Post 16", page1.Posts[0].Title)
	assert.Equal(t, "author", page1.Posts[0].AuthorNickname)

	page2, err := svc.ListPosts(context.Background(), board.ID, "", 2)
	require.NoError(t, err)
	assert.Len(t, page2.Posts, 2)
}

func TestListPosts_SearchAndUnknownBoard(t *testing.T) {
	gdb := newTestDB(t)
	svc := NewBoardService(gdb)
	author := seedUser(t, gdb, "author@dongguk.ac.kr", "author", "secret123", true)
	board := seedBoard(t, gdb, "Free board")

	_, err := svc.CreatePost(context.Background(), board.ID, author.ID, "Lost umbrella", "Near the library", nil)
	require.NoError(t, err)
	_, err = svc.CreatePost(context.Background(), board.ID, author.ID, "Study group", "Wednesdays", nil)
	require.NoError(t, err)

	page, err := svc.ListPosts(context.Background(), board.ID, "UMBRELLA", 1)
	require.NoError(t, err)
	require.Len(t, page.Posts, 1)
	assert.Equal(t, "Lost umbrella", page.Posts[0].Title)

	_, err = svc.ListPosts(context.Background(), 4242, "", 1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreatePost_Validation(t *testing.T) {
	gdb := newTestDB(t)
	svc := NewBoardService(gdb)
	author := seedUser(t, gdb, "author@dongguk.ac.kr", "author", "secret123", true)
	board := seedBoard(t, gdb, "Free board")

	_, err := svc.CreatePost(context.Background(), board.ID, author.ID, "  ", "body", nil)
	_, ok := AsValidation(err)
	assert.True(t, ok)

	_, err = svc.CreatePost(context.Background(), 4242, author.ID, "title", "body", nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFindPost_CommentsOldestFirst(t *testing.T) {
	gdb := newTestDB(t)
	svc := NewBoardService(gdb)
	author := seedUser(t, gdb, "author@dongguk.ac.kr", "author", "secret123", true)
	commenter := seedUser(t, gdb, "commenter@dongguk.ac.kr", "commenter", "secret123", true)
	board := seedBoard(t, gdb, "Free board")

	post, err := svc.CreatePost(context.Background(), board.ID, author.ID, "Hello", "World", nil)
	require.NoError(t, err)

	first, err := svc.AddComment(context.Background(), post.ID, commenter.ID, "First")
	require.NoError(t, err)
	second, err := svc.AddComment(context.Background(), post.ID, author.ID, "Second")
	require.NoError(t, err)

	detail, err := svc.FindPost(context.Background(), board.ID, post.ID)
	require.NoError(t, err)
	assert.Equal(t, "author", detail.AuthorNickname)
	require.Len(t, detail.Comments, 2)
	assert.Equal(t, first.ID, detail.Comments[0].ID)
	assert.Equal(t, "commenter", detail.Comments[0].AuthorNickname)
	assert.Equal(t, second.ID, detail.Comments[1].ID)
}

func TestFindPost_WrongBoard(t *testing.T) {
	gdb := newTestDB(t)
	svc := NewBoardService(gdb)
	author := seedUser(t, gdb, "author@dongguk.ac.kr", "author", "secret123", true)
	board := seedBoard(t, gdb, "Free board")
	otherBoard := seedBoard(t, gdb, "Market talk")

	post, err := svc.CreatePost(context.Background(), board.ID, author.ID, "Hello", "World", nil)
	require.NoError(t, err)

	_, err = svc.FindPost(context.Background(), otherBoard.ID, post.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdatePost_AuthorOnly(t *testing.T) {
	gdb := newTestDB(t)
	svc := NewBoardService(gdb)
	author := seedUser(t, gdb, "author@dongguk.ac.kr", "author", "secret123", true)
	other := seedUser(t, gdb, "other@dongguk.ac.kr", "other", "secret123", true)
	board := seedBoard(t, gdb, "Free board")

	post, err := svc.CreatePost(context.Background(), board.ID, author.ID, "Hello", "World", nil)
	require.NoError(t, err)

	err = svc.UpdatePost(context.Background(), board.ID, post.ID, other.ID, "Hijacked", "Nope", nil)
	assert.ErrorIs(t, err, ErrForbidden)

	require.NoError(t, svc.UpdatePost(context.Background(), board.ID, post.ID, author.ID, "Edited", "New body", nil))
	detail, err := svc.FindPost(context.Background(), board.ID, post.ID)
	require.NoError(t, err)
	assert.Equal(t, "Edited", detail.Post.Title)
}

func TestDeletePost_RemovesComments(t *testing.T) {
	gdb := newTestDB(t)
	svc := NewBoardService(gdb)
	author := seedUser(t, gdb, "author@dongguk.ac.kr", "author", "secret123", true)
	other := seedUser(t, gdb, "other@dongguk.ac.kr", "other", "secret123", true)
	board := seedBoard(t, gdb, "Free board")

	post, err := svc.CreatePost(context.Background(), board.ID, author.ID, "Hello", "World", nil)
	require.NoError(t, err)
	_, err = svc.AddComment(context.Background(), post.ID, other.ID, "Comment")
	require.NoError(t, err)

	assert.ErrorIs(t, svc.DeletePost(context.Background(), board.ID, post.ID, other.ID), ErrForbidden)
	require.NoError(t, svc.DeletePost(context.Background(), board.ID, post.ID, author.ID))

	var comments int64
	require.NoError(t, gdb.Model(&models.Comment{}).Count(&comments).Error)
	assert.Zero(t, comments)
}

func TestDeleteComment_AuthorOnly(t *testing.T) {
	gdb := newTestDB(t)
	svc := NewBoardService(gdb)
	author := seedUser(t, gdb, "author@dongguk.ac.kr", "author", "secret123", true)
	commenter := seedUser(t, gdb, "commenter@dongguk.ac.kr", "commenter", "secret123", true)
	board := seedBoard(t, gdb, "Free board")

	post, err := svc.CreatePost(context.Background(), board.ID, author.ID, "Hello", "World", nil)
	require.NoError(t, err)
	comment, err := svc.AddComment(context.Background(), post.ID, commenter.ID, "Mine")
	require.NoError(t, err)

	// The post author cannot delete someone else's comment.
	assert.ErrorIs(t, svc.DeleteComment(context.Background(), comment.ID, post.ID, author.ID), ErrForbidden)
	require.NoError(t, svc.DeleteComment(context.Background(), comment.ID, post.ID, commenter.ID))
}

func TestListPostsByAuthor_CarriesBoardNames(t *testing.T) {
	gdb := newTestDB(t)
	svc := NewBoardService(gdb)
	author := seedUser(t, gdb, "author@dongguk.ac.kr", "author", "secret123", true)
	free := seedBoard(t, gdb, "Free board")
	talk := seedBoard(t, gdb, "Market talk")

	_, err := svc.CreatePost(context.Background(), free.ID, author.ID, "On free", "body", nil)
	require.NoError(t, err)
	_, err = svc.CreatePost(context.Background(), talk.ID, author.ID, "On talk", "body", nil)
	require.NoError(t, err)

	posts, err := svc.ListPostsByAuthor(context.Background(), author.ID)
	require.NoError(t, err)
	require.Len(t, posts, 2)

	names := map[string]string{}
	for _, post := range posts {
		names[post.Title] = post.BoardName
	}
	assert.Equal(t, "Free board", names["On free"])
	assert.Equal(t, "Market talk", names["On talk"])
}
