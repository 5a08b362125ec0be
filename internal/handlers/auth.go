package handlers

import (
	"errors"
	"log"
	"net/http"
	"writeboard/internal/middleware"
	"writeboard/internal/services"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	users *services.UserService
}

func NewAuthHandler(users *services.UserService) *AuthHandler {
	return &AuthHandler{users: users}
}

func (h *AuthHandler) ShowRegister(c *gin.Context) {
	Render(c, http.StatusOK, "auth/register.html", gin.H{"Title": "Register"})
}

func (h *AuthHandler) Register(c *gin.Context) {
	var form registerForm
	if err := c.ShouldBind(&form); err != nil {
		Render(c, http.StatusBadRequest, "auth/register.html", gin.H{
			"Title":  "Register",
			"Errors": formErrors(err),
			"Form":   form,
		})
		return
	}

	user, err := h.users.Register(form.Username, form.Email, form.Password)
	if errs, ok := blankFieldErrors(err); ok {
		Render(c, http.StatusBadRequest, "auth/register.html", gin.H{
			"Title":  "Register",
			"Errors": errs,
			"Form":   form,
		})
		return
	}
	switch {
	case errors.Is(err, services.ErrDuplicateUser):
		Flash(c, "User already exists. Log in instead.")
		c.Redirect(http.StatusFound, "/login")
		return
	case errors.Is(err, services.ErrDuplicateUsername):
		Render(c, http.StatusConflict, "auth/register.html", gin.H{
			"Title":  "Register",
			"Errors": map[string]string{"Username": "That username is already taken"},
			"Form":   form,
		})
		return
	case err != nil:
		ServerError(c, err)
		return
	}

	if err := startSession(c, user.ID); err != nil {
		ServerError(c, err)
		return
	}
	log.Printf("Registered user %q (id %d)", user.Username, user.ID)
	c.Redirect(http.StatusFound, "/")
}

func (h *AuthHandler) ShowLogin(c *gin.Context) {
	Render(c, http.StatusOK, "auth/login.html", gin.H{"Title": "Log In"})
}

func (h *AuthHandler) Login(c *gin.Context) {
	var form loginForm
	if err := c.ShouldBind(&form); err != nil {
		Render(c, http.StatusBadRequest, "auth/login.html", gin.H{
			"Title":  "Log In",
			"Errors": formErrors(err),
			"Form":   form,
		})
		return
	}

	user, err := h.users.Authenticate(form.Email, form.Password)
	if err != nil {
		var message string
		switch {
		case errors.Is(err, services.ErrUnknownEmail):
			message = "Incorrect email."
		case errors.Is(err, services.ErrWrongPassword):
			message = "Incorrect password. Try again!"
		default:
			ServerError(c, err)
			return
		}
		Render(c, http.StatusUnauthorized, "auth/login.html", gin.H{
			"Title": "Log In",
			"Error": message,
			"Form":  loginForm{Email: form.Email},
		})
		return
	}

	if err := startSession(c, user.ID); err != nil {
		ServerError(c, err)
		return
	}
	Flash(c, "Logged in")
	c.Redirect(http.StatusFound, "/")
}

func (h *AuthHandler) Logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	if err := session.Save(); err != nil {
		log.Printf("Failed to clear session: %v", err)
	}
	c.Redirect(http.StatusFound, "/")
}

// startSession replaces whatever was in the session with the given user.
func startSession(c *gin.Context, userID uint) error {
	session := sessions.Default(c)
	session.Clear()
	session.Set(middleware.SessionUserKey, userID)
	return session.Save()
}
