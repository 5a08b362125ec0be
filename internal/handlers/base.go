package handlers

import (
	"log"
	"net/http"
	"writeboard/internal/middleware"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

// Render helper to inject common variables like the current user and
// pending flash messages.
func Render(c *gin.Context, code int, name string, obj gin.H) {
	if obj == nil {
		obj = gin.H{}
	}

	if user := middleware.CurrentUser(c); user != nil {
		obj["CurrentUser"] = user
	}

	// Flashes are consumed on read, so the session has to be saved
	// before the body is written.
	session := sessions.Default(c)
	if flashes := session.Flashes(); len(flashes) > 0 {
		obj["Flashes"] = flashes
		if err := session.Save(); err != nil {
			log.Printf("Failed to save session: %v", err)
		}
	}

	obj["CurrentPath"] = c.Request.URL.Path

	c.HTML(code, name, obj)
}

// Error helper
func RenderError(c *gin.Context, code int, message string) {
	Render(c, code, "error.html", gin.H{"Title": http.StatusText(code), "Error": message})
}

// ServerError logs err and renders a generic 500 page.
func ServerError(c *gin.Context, err error) {
	log.Printf("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	RenderError(c, http.StatusInternalServerError, "Something went wrong. Please try again later.")
}

// Unauthorized is the response for anonymous requests to routes that need a login.
func Unauthorized(c *gin.Context) {
	RenderError(c, http.StatusUnauthorized, "Please log in to continue.")
}

func NotFound(c *gin.Context) {
	RenderError(c, http.StatusNotFound, "The page you were looking for does not exist.")
}

// Flash queues a one-shot message for the next rendered page.
func Flash(c *gin.Context, message string) {
	session := sessions.Default(c)
	session.AddFlash(message)
	if err := session.Save(); err != nil {
		log.Printf("Failed to save session: %v", err)
	}
}
