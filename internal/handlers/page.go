package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type PageHandler struct{}

func NewPageHandler() *PageHandler {
	return &PageHandler{}
}

func (h *PageHandler) About(c *gin.Context) {
	Render(c, http.StatusOK, "pages/about.html", gin.H{"Title": "About"})
}

func (h *PageHandler) Contact(c *gin.Context) {
	Render(c, http.StatusOK, "pages/contact.html", gin.H{"Title": "Contact"})
}
