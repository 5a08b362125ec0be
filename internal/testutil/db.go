// Package testutil holds helpers shared by package tests. Nothing outside
// _test.go files should import it.
package testutil

import (
	"strings"
	"testing"
	"writeboard/internal/db"
	"writeboard/internal/models"
	"writeboard/internal/utils"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// NewDB returns a migrated in-memory SQLite database private to t.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	gdb, err := db.Open(sqlite.Open("file::memory:?_foreign_keys=on"))
	if err != nil {
		t.Fatalf("could not open database: %v", err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		t.Fatalf("could not get sql.DB: %v", err)
	}
	// every new connection to :memory: is a fresh empty database
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := db.Migrate(gdb); err != nil {
		t.Fatalf("could not run migrations: %v", err)
	}
	return gdb
}

// CreateUser inserts a user with a hashed password and returns it.
func CreateUser(t *testing.T, gdb *gorm.DB, username, email, password, role string) *models.User {
	t.Helper()

	hash, err := utils.HashPassword(password)
	if err != nil {
		t.Fatalf("could not hash password: %v", err)
	}
	user := &models.User{Username: username, Email: email, Password: hash, Role: role}
	if err := gdb.Create(user).Error; err != nil {
		t.Fatalf("could not create user %s: %v", username, err)
	}
	return user
}

// CreatePost inserts a post owned by author and returns it.
func CreatePost(t *testing.T, gdb *gorm.DB, author *models.User, title string) *models.Post {
	t.Helper()

	post := &models.Post{
		AuthorID: author.ID,
		Title:    title,
		Subtitle: title + " subtitle",
		Date:     "October 14, 2026",
		Body:     "Body of " + title,
		ImgURL:   "https://example.com/" + strings.ReplaceAll(strings.ToLower(title), " ", "-") + ".jpg",
	}
	if err := gdb.Create(post).Error; err != nil {
		t.Fatalf("could not create post %s: %v", title, err)
	}
	return post
}
