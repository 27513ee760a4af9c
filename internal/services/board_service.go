package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/wisemarket1122/wisemarket/internal/models"
)

// PostsPerPage is the fixed page size of a board's post list.
const PostsPerPage = 15

// PostSummary is one row of a board's post list.
type PostSummary struct {
	models.BoardPost
	AuthorNickname string `json:"author_nickname"`
}

// PostPage is one page of board posts.
type PostPage struct {
	Board      models.Board
	Posts      []PostSummary
	Page       int
	TotalPosts int64
	TotalPages int
}

// CommentView is a comment with its author's nickname.
type CommentView struct {
	models.Comment
	AuthorNickname string `json:"author_nickname"`
}

// PostDetail is the full view of one post with its comments, oldest first.
type PostDetail struct {
	Board          models.Board
	Post           models.BoardPost
	AuthorNickname string
	Comments       []CommentView
}

// AuthoredPost is a post annotated with the name of the board it is on,
// used by the my-page view.
type AuthoredPost struct {
	models.BoardPost
	BoardName string `json:"board_name"`
}

// IBoardService defines the interface for community board operations.
type IBoardService interface {
	ListBoards(ctx context.Context) ([]models.Board, error)
	FindBoard(ctx context.Context, boardID uint) (*models.Board, error)
	ListPosts(ctx context.Context, boardID uint, query string, page int) (*PostPage, error)
	CreatePost(ctx context.Context, boardID, authorID uint, title, content string, imagePath *string) (*models.BoardPost, error)
	FindPost(ctx context.Context, boardID, postID uint) (*PostDetail, error)
	UpdatePost(ctx context.Context, boardID, postID, authorID uint, title, content string, imagePath *string) error
	DeletePost(ctx context.Context, boardID, postID, authorID uint) error
	AddComment(ctx context.Context, postID, authorID uint, content string) (*models.Comment, error)
	DeleteComment(ctx context.Context, commentID, postID, authorID uint) error
	ListPostsByAuthor(ctx context.Context, authorID uint) ([]AuthoredPost, error)
}

// boardService implements IBoardService.
type boardService struct {
	db *gorm.DB
}

// NewBoardService creates a new BoardService.
func NewBoardService(db *gorm.DB) IBoardService {
	return &boardService{db: db}
}

// ListBoards returns all boards in creation order.
func (s *boardService) ListBoards(ctx context.Context) ([]models.Board, error) {
	var boards []models.Board
	if err := s.db.WithContext(ctx).Order("id ASC").Find(&boards).Error; err != nil {
		return nil, fmt.Errorf("failed to list boards: %w", err)
	}
	return boards, nil
}

// FindBoard finds a board by its ID.
func (s *boardService) FindBoard(ctx context.Context, boardID uint) (*models.Board, error) {
	var board models.Board
	err := s.db.WithContext(ctx).First(&board, boardID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("error finding board %d: %w", boardID, err)
	}
	return &board, nil
}

// ListPosts returns one page of a board's posts, newest first, optionally
// filtered by a case-insensitive substring of title+content.
func (s *boardService) ListPosts(ctx context.Context, boardID uint, query string, page int) (*PostPage, error) {
	board, err := s.FindBoard(ctx, boardID)
	if err != nil {
		return nil, err
	}
	if page < 1 {
		page = 1
	}

	base := s.db.WithContext(ctx).Model(&models.BoardPost{}).Where("board_id = ?", boardID)
	if q := strings.TrimSpace(query); q != "" {
		pattern := "%" + strings.ToLower(q) + "%"
		base = base.Where("LOWER(title) LIKE ? OR LOWER(content) LIKE ?", pattern, pattern)
	}

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count posts of board %d: %w", boardID, err)
	}

	var posts []models.BoardPost
	err = base.Session(&gorm.Session{}).
		Order("created_at DESC, id DESC").
		Limit(PostsPerPage).
		Offset((page - 1) * PostsPerPage).
		Find(&posts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list posts of board %d: %w", boardID, err)
	}

	summaries := make([]PostSummary, 0, len(posts))
	if len(posts) > 0 {
		authorIDs := make([]uint, 0, len(posts))
		for _, post := range posts {
			authorIDs = append(authorIDs, post.AuthorID)
		}
		var authors []models.User
		if err := s.db.WithContext(ctx).Where("id IN ?", authorIDs).Find(&authors).Error; err != nil {
			return nil, fmt.Errorf("failed to load post authors: %w", err)
		}
		nicknames := make(map[uint]string, len(authors))
		for _, author := range authors {
			nicknames[author.ID] = author.Nickname
		}
		for _, post := range posts {
			summaries = append(summaries, PostSummary{BoardPost: post, AuthorNickname: nicknames[post.AuthorID]})
		}
	}

	totalPages := int((total + PostsPerPage - 1) / PostsPerPage)
	return &PostPage{
		Board:      *board,
		Posts:      summaries,
		Page:       page,
		TotalPosts: total,
		TotalPages: totalPages,
	}, nil
}

// CreatePost inserts a new post on a board.
func (s *boardService) CreatePost(ctx context.Context, boardID, authorID uint, title, content string, imagePath *string) (*models.BoardPost, error) {
	title = strings.TrimSpace(title)
	content = strings.TrimSpace(content)
	if title == "" || content == "" {
		return nil, NewValidationError("Please fill in both the title and the content.")
	}
	if _, err := s.FindBoard(ctx, boardID); err != nil {
		return nil, err
	}

	post := &models.BoardPost{
		BoardID:   boardID,
		AuthorID:  authorID,
		Title:     title,
		Content:   content,
		ImagePath: imagePath,
	}
	if err := s.db.WithContext(ctx).Create(post).Error; err != nil {
		return nil, fmt.Errorf("failed to create post on board %d: %w", boardID, err)
	}
	return post, nil
}

// FindPost loads the detail view of a post with its comments, oldest first.
func (s *boardService) FindPost(ctx context.Context, boardID, postID uint) (*PostDetail, error) {
	board, err := s.FindBoard(ctx, boardID)
	if err != nil {
		return nil, err
	}

	var post models.BoardPost
	err = s.db.WithContext(ctx).Where("id = ? AND board_id = ?", postID, boardID).First(&post).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("error finding post %d: %w", postID, err)
	}

	var author models.User
	if err := s.db.WithContext(ctx).First(&author, post.AuthorID).Error; err != nil {
		return nil, fmt.Errorf("error loading author of post %d: %w", postID, err)
	}

	var comments []models.Comment
	err = s.db.WithContext(ctx).
		Where("post_id = ?", postID).
		Order("created_at ASC, id ASC").
		Find(&comments).Error
	if err != nil {
		return nil, fmt.Errorf("error loading comments of post %d: %w", postID, err)
	}

	views := make([]CommentView, 0, len(comments))
	if len(comments) > 0 {
		authorIDs := make([]uint, 0, len(comments))
		for _, comment := range comments {
			authorIDs = append(authorIDs, comment.AuthorID)
		}
		var commenters []models.User
		if err := s.db.WithContext(ctx).Where("id IN ?", authorIDs).Find(&commenters).Error; err != nil {
			return nil, fmt.Errorf("failed to load comment authors: %w", err)
		}
		nicknames := make(map[uint]string, len(commenters))
		for _, commenter := range commenters {
			nicknames[commenter.ID] = commenter.Nickname
		}
		for _, comment := range comments {
			views = append(views, CommentView{Comment: comment, AuthorNickname: nicknames[comment.AuthorID]})
		}
	}

	return &PostDetail{
		Board:          *board,
		Post:           post,
		AuthorNickname: author.Nickname,
		Comments:       views,
	}, nil
}

// UpdatePost edits a post's title, content and (when given) image. Only the
// author may edit.
func (s *boardService) UpdatePost(ctx context.Context, boardID, postID, authorID uint, title, content string, imagePath *string) error {
	title = strings.TrimSpace(title)
	content = strings.TrimSpace(content)
	if title == "" || content == "" {
		return NewValidationError("Please fill in both the title and the content.")
	}

	var post models.BoardPost
	err := s.db.WithContext(ctx).Where("id = ? AND board_id = ?", postID, boardID).First(&post).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("error finding post %d: %w", postID, err)
	}
	if post.AuthorID != authorID {
		return ErrForbidden
	}

	changes := map[string]interface{}{"title": title, "content": content}
	if imagePath != nil {
		changes["image_path"] = *imagePath
	}
	if err := s.db.WithContext(ctx).Model(&post).Updates(changes).Error; err != nil {
		return fmt.Errorf("failed to update post %d: %w", postID, err)
	}
	return nil
}

// DeletePost removes an author's post and its comments as one transaction.
func (s *boardService) DeletePost(ctx context.Context, boardID, postID, authorID uint) error {
	var post models.BoardPost
	err := s.db.WithContext(ctx).Where("id = ? AND board_id = ?", postID, boardID).First(&post).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("error finding post %d: %w", postID, err)
	}
	if post.AuthorID != authorID {
		return ErrForbidden
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ?", postID).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.BoardPost{}, postID).Error
	})
	if err != nil {
		return fmt.Errorf("failed to delete post %d: %w", postID, err)
	}
	return nil
}

// AddComment appends a comment to a post.
func (s *boardService) AddComment(ctx context.Context, postID, authorID uint, content string) (*models.Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, NewValidationError("Comment content is required.")
	}

	var post models.BoardPost
	err := s.db.WithContext(ctx).First(&post, postID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("error finding post %d: %w", postID, err)
	}

	comment := &models.Comment{PostID: postID, AuthorID: authorID, Content: content}
	if err := s.db.WithContext(ctx).Create(comment).Error; err != nil {
		return nil, fmt.Errorf("failed to add comment to post %d: %w", postID, err)
	}
	return comment, nil
}

// DeleteComment removes an author's own comment.
func (s *boardService) DeleteComment(ctx context.Context, commentID, postID, authorID uint) error {
	var comment models.Comment
	err := s.db.WithContext(ctx).Where("id = ? AND post_id = ?", commentID, postID).First(&comment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("error finding comment %d: %w", commentID, err)
	}
	if comment.AuthorID != authorID {
		return ErrForbidden
	}

	if err := s.db.WithContext(ctx).Delete(&models.Comment{}, commentID).Error; err != nil {
		return fmt.Errorf("failed to delete comment %d: %w", commentID, err)
	}
	return nil
}

// ListPostsByAuthor returns all posts by one author with their board names,
// newest first. Used by the my-page view.
func (s *boardService) ListPostsByAuthor(ctx context.Context, authorID uint) ([]AuthoredPost, error) {
	var posts []models.BoardPost
	err := s.db.WithContext(ctx).
		Where("author_id = ?", authorID).
		Order("created_at DESC, id DESC").
		Find(&posts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list posts of author %d: %w", authorID, err)
	}

	result := make([]AuthoredPost, 0, len(posts))
	if len(posts) == 0 {
		return result, nil
	}

	boardIDs := make([]uint, 0, len(posts))
	for _, post := range posts {
		boardIDs = append(boardIDs, post.BoardID)
	}
	var boards []models.Board
	if err := s.db.WithContext(ctx).Where("id IN ?", boardIDs).Find(&boards).Error; err != nil {
		return nil, fmt.Errorf("failed to load boards: %w", err)
	}
	names := make(map[uint]string, len(boards))
	for _, board := range boards {
		names[board.ID] = board.Name
	}
	for _, post := range posts {
		result = append(result, AuthoredPost{BoardPost: post, BoardName: names[post.BoardID]})
	}
	return result, nil
}
