package services

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"writeboard/internal/models"

	"gorm.io/gorm"
)

// PostInput carries the mutable fields of a post. Author is a username and
// is only honoured by Update; empty keeps the current author.
type PostInput struct {
	Title    string
	Subtitle string
	Body     string
	ImgURL   string
	Author   string
}

func (in PostInput) trimmed() PostInput {
	return PostInput{
		Title:    strings.TrimSpace(in.Title),
		Subtitle: strings.TrimSpace(in.Subtitle),
		Body:     in.Body,
		ImgURL:   strings.TrimSpace(in.ImgURL),
		Author:   strings.TrimSpace(in.Author),
	}
}

// validate rejects required fields that are blank once trimmed.
func (in PostInput) validate() error {
	switch {
	case in.Title == "":
		return &BlankFieldError{Field: "Title"}
	case in.Subtitle == "":
		return &BlankFieldError{Field: "Subtitle"}
	case strings.TrimSpace(in.Body) == "":
		return &BlankFieldError{Field: "Body"}
	case in.ImgURL == "":
		return &BlankFieldError{Field: "ImgURL"}
	}
	return nil
}

type PostService struct {
	db  *gorm.DB
	now func() time.Time
}

func NewPostService(db *gorm.DB) *PostService {
	return &PostService{db: db, now: time.Now}
}

// List returns every post in storage order.
func (s *PostService) List() ([]models.Post, error) {
	var posts []models.Post
	if err := s.db.Preload("Author").Order("id ASC").Find(&posts).Error; err != nil {
		return nil, err
	}
	return posts, nil
}

// Recent returns up to limit posts, newest first.
func (s *PostService) Recent(limit int) ([]models.Post, error) {
	var posts []models.Post
	if err := s.db.Preload("Author").Order("created_at DESC, id DESC").Limit(limit).Find(&posts).Error; err != nil {
		return nil, err
	}
	return posts, nil
}

func (s *PostService) Get(id uint) (*models.Post, error) {
	var post models.Post
	if err := s.db.Preload("Author").First(&post, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &post, nil
}

// Create stores a new post owned by author, stamped with today's date.
func (s *PostService) Create(author *models.User, in PostInput) (*models.Post, error) {
	in = in.trimmed()
	if err := in.validate(); err != nil {
		return nil, err
	}

	taken, err := s.titleTaken(in.Title, 0)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrDuplicateTitle
	}

	post := models.Post{
		AuthorID: author.ID,
		Title:    in.Title,
		Subtitle: in.Subtitle,
		Date:     s.now().Format(models.DateLayout),
		Body:     in.Body,
		ImgURL:   in.ImgURL,
	}
	if err := s.db.Omit("Author", "Comments").Create(&post).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateTitle
		}
		return nil, fmt.Errorf("create post: %w", err)
	}
	post.Author = *author
	return &post, nil
}

// Update overwrites the mutable fields of a post in place. The display
// date is left as it was at creation.
func (s *PostService) Update(id uint, in PostInput) (*models.Post, error) {
	in = in.trimmed()

	post, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	taken, err := s.titleTaken(in.Title, post.ID)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrDuplicateTitle
	}

	author := post.Author
	if in.Author != "" && in.Author != post.Author.Username {
		var u models.User
		if err := s.db.Where("username = ?", in.Author).First(&u).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrUnknownAuthor
			}
			return nil, fmt.Errorf("find author: %w", err)
		}
		author = u
	}

	updates := map[string]interface{}{
		"title":     in.Title,
		"subtitle":  in.Subtitle,
		"body":      in.Body,
		"img_url":   in.ImgURL,
		"author_id": author.ID,
	}
	if err := s.db.Model(&models.Post{}).Where("id = ?", post.ID).Updates(updates).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateTitle
		}
		return nil, fmt.Errorf("update post: %w", err)
	}

	post.Title = in.Title
	post.Subtitle = in.Subtitle
	post.Body = in.Body
	post.ImgURL = in.ImgURL
	post.AuthorID = author.ID
	post.Author = author
	return post, nil
}

// Delete removes a post together with its comments.
func (s *PostService) Delete(id uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var post models.Post
		if err := tx.First(&post, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		if err := tx.Where("post_id = ?", post.ID).Delete(&models.Comment{}).Error; err != nil {
			return fmt.Errorf("delete comments: %w", err)
		}
		if err := tx.Delete(&post).Error; err != nil {
			return fmt.Errorf("delete post: %w", err)
		}
		return nil
	})
}

// titleTaken reports whether another post (not exceptID) already uses title.
func (s *PostService) titleTaken(title string, exceptID uint) (bool, error) {
	var count int64
	q := s.db.Model(&models.Post{}).Where("title = ?", title)
	if exceptID != 0 {
		q = q.Where("id <> ?", exceptID)
	}
	if err := q.Count(&count).Error; err != nil {
		return false, fmt.Errorf("check title: %w", err)
	}
	return count > 0, nil
}
