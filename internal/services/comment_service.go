package services

import (
	"errors"
	"fmt"
	"strings"
	"writeboard/internal/models"

	"gorm.io/gorm"
)

type CommentService struct {
	db *gorm.DB
}

func NewCommentService(db *gorm.DB) *CommentService {
	return &CommentService{db: db}
}

// Add appends a comment by author to the post with postID.
func (s *CommentService) Add(author *models.User, postID uint, text string) (*models.Comment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyComment
	}

	var count int64
	if err := s.db.Model(&models.Post{}).Where("id = ?", postID).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("find post: %w", err)
	}
	if count == 0 {
		return nil, ErrNotFound
	}

	comment := models.Comment{
		Text:     text,
		AuthorID: author.ID,
		PostID:   postID,
	}
	if err := s.db.Omit("Author").Create(&comment).Error; err != nil {
		if errors.Is(err, gorm.ErrForeignKeyViolated) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("create comment: %w", err)
	}
	comment.Author = *author
	return &comment, nil
}

// ListForPost returns the comments of one post, oldest first.
func (s *CommentService) ListForPost(postID uint) ([]models.Comment, error) {
	var comments []models.Comment
	err := s.db.Preload("Author").
		Where("post_id = ?", postID).
		Order("id ASC").
		Find(&comments).Error
	if err != nil {
		return nil, err
	}
	return comments, nil
}
