package models

import (
	"time"
)

// DateLayout is how a post's display date is stamped at creation.
const DateLayout = "January 02, 2006"

type Post struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	AuthorID  uint      `gorm:"not null;index" json:"author_id"`
	Author    User      `gorm:"foreignKey:AuthorID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;" json:"author"`
	Title     string    `gorm:"size:250;uniqueIndex;not null" json:"title"`
	Subtitle  string    `gorm:"size:250;not null" json:"subtitle"`
	Date      string    `gorm:"size:250;not null" json:"date"` // display string, never updated on edit
	Body      string    `gorm:"type:text;not null" json:"body"`
	ImgURL    string    `gorm:"column:img_url;size:250;not null" json:"img_url"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Comments []Comment `gorm:"foreignKey:PostID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
}

func (Post) TableName() string {
	return "blog_posts"
}
