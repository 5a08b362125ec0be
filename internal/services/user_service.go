package services

import (
	"errors"
	"fmt"
	"strings"
	"writeboard/internal/models"
	"writeboard/internal/utils"

	"gorm.io/gorm"
)

type UserService struct {
	db *gorm.DB
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{db: db}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates a regular user. The email is checked up front; the
// username is left to the unique index and translated on conflict.
func (s *UserService) Register(username, email, password string) (*models.User, error) {
	email = normalizeEmail(email)
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, &BlankFieldError{Field: "Username"}
	}

	exists, err := s.emailExists(email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrDuplicateUser
	}

	hash, err := utils.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := models.User{
		Username: username,
		Email:    email,
		Password: hash,
		Role:     models.RoleUser,
	}
	if err := s.db.Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// lost a race on the email, or the username is taken
			if exists, _ := s.emailExists(email); exists {
				return nil, ErrDuplicateUser
			}
			return nil, ErrDuplicateUsername
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return &user, nil
}

// Authenticate checks an email/password pair.
func (s *UserService) Authenticate(email, password string) (*models.User, error) {
	var user models.User
	if err := s.db.Where("email = ?", normalizeEmail(email)).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUnknownEmail
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	ok, err := utils.CheckPasswordHash(password, user.Password)
	if err != nil {
		return nil, fmt.Errorf("check password: %w", err)
	}
	if !ok {
		return nil, ErrWrongPassword
	}
	return &user, nil
}

func (s *UserService) FindByID(id uint) (*models.User, error) {
	var user models.User
	if err := s.db.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (s *UserService) FindByUsername(username string) (*models.User, error) {
	var user models.User
	if err := s.db.Where("username = ?", strings.TrimSpace(username)).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (s *UserService) HasAdmin() (bool, error) {
	var count int64
	if err := s.db.Model(&models.User{}).Where("role = ?", models.RoleAdmin).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// ProvisionAdmin makes sure an admin exists, using an operator supplied
// credential. It does nothing when an admin is already present. An
// existing account with the same email is promoted instead of duplicated,
// and its password is replaced by the operator's, so whoever registered
// that email first cannot keep access. The returned bool reports whether
// anything changed.
func (s *UserService) ProvisionAdmin(email, username, password string) (*models.User, bool, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, false, errors.New("admin email and password are required")
	}

	hasAdmin, err := s.HasAdmin()
	if err != nil {
		return nil, false, err
	}
	if hasAdmin {
		return nil, false, nil
	}

	hash, err := utils.HashPassword(password)
	if err != nil {
		return nil, false, fmt.Errorf("hash password: %w", err)
	}

	var user models.User
	err = s.db.Where("email = ?", email).First(&user).Error
	switch {
	case err == nil:
		updates := map[string]interface{}{"role": models.RoleAdmin, "password": hash}
		if err := s.db.Model(&user).Updates(updates).Error; err != nil {
			return nil, false, fmt.Errorf("promote admin: %w", err)
		}
		user.Role = models.RoleAdmin
		user.Password = hash
		return &user, true, nil
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, false, fmt.Errorf("find admin: %w", err)
	}

	user = models.User{
		Username: strings.TrimSpace(username),
		Email:    email,
		Password: hash,
		Role:     models.RoleAdmin,
	}
	if err := s.db.Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, false, ErrDuplicateUsername
		}
		return nil, false, fmt.Errorf("create admin: %w", err)
	}
	return &user, true, nil
}

func (s *UserService) emailExists(email string) (bool, error) {
	var count int64
	if err := s.db.Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return false, fmt.Errorf("check email: %w", err)
	}
	return count > 0, nil
}
