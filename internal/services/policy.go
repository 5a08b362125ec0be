package services

import "writeboard/internal/models"

// Policy decides who may author, edit and delete posts.
type Policy interface {
	CanManagePosts(user *models.User) bool
}

// RolePolicy grants post management to users with the admin role.
type RolePolicy struct{}

func (RolePolicy) CanManagePosts(user *models.User) bool {
	return user.IsAdmin()
}
