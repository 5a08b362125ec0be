package handlers

import (
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"writeboard/internal/middleware"
	"writeboard/internal/models"
	"writeboard/internal/services"
	"writeboard/internal/utils"

	"github.com/gin-gonic/gin"
)

type PostHandler struct {
	posts    *services.PostService
	comments *services.CommentService
}

func NewPostHandler(posts *services.PostService, comments *services.CommentService) *PostHandler {
	return &PostHandler{posts: posts, comments: comments}
}

type commentView struct {
	models.Comment
	TextHTML template.HTML
}

// loadPost resolves the :id path parameter. It writes the 404 or 500
// response itself and returns nil in that case.
func (h *PostHandler) loadPost(c *gin.Context) *models.Post {
	id, ok := utils.ParseID(c.Param("id"))
	if !ok {
		NotFound(c)
		return nil
	}
	post, err := h.posts.Get(id)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			NotFound(c)
		} else {
			ServerError(c, err)
		}
		return nil
	}
	return post
}

func (h *PostHandler) List(c *gin.Context) {
	posts, err := h.posts.List()
	if err != nil {
		ServerError(c, err)
		return
	}
	Render(c, http.StatusOK, "post/index.html", gin.H{
		"Title": "Home",
		"Posts": posts,
	})
}

func (h *PostHandler) Show(c *gin.Context) {
	post := h.loadPost(c)
	if post == nil {
		return
	}
	h.renderShow(c, http.StatusOK, post, nil)
}

func (h *PostHandler) renderShow(c *gin.Context, code int, post *models.Post, errs map[string]string) {
	comments, err := h.comments.ListForPost(post.ID)
	if err != nil {
		ServerError(c, err)
		return
	}

	views := make([]commentView, len(comments))
	for i, com := range comments {
		views[i] = commentView{Comment: com, TextHTML: utils.RenderComment(com.Text)}
	}

	Render(c, code, "post/show.html", gin.H{
		"Title":    post.Title,
		"Post":     post,
		"PostBody": utils.RenderMarkdown(post.Body),
		"Comments": views,
		"Errors":   errs,
	})
}

// CreateComment appends a comment by the current user. Routed behind AuthRequired.
func (h *PostHandler) CreateComment(c *gin.Context) {
	post := h.loadPost(c)
	if post == nil {
		return
	}
	user := middleware.CurrentUser(c)

	var form commentForm
	if err := c.ShouldBind(&form); err != nil {
		h.renderShow(c, http.StatusBadRequest, post, formErrors(err))
		return
	}

	if _, err := h.comments.Add(user, post.ID, form.Text); err != nil {
		switch {
		case errors.Is(err, services.ErrEmptyComment):
			h.renderShow(c, http.StatusBadRequest, post, map[string]string{"Text": "Please write a comment"})
		case errors.Is(err, services.ErrNotFound):
			NotFound(c)
		default:
			ServerError(c, err)
		}
		return
	}

	c.Redirect(http.StatusSeeOther, postPath(post.ID))
}

func (h *PostHandler) ShowCreate(c *gin.Context) {
	renderPostForm(c, http.StatusOK, "/new-post", postForm{}, nil)
}

func (h *PostHandler) Create(c *gin.Context) {
	var form postForm
	if err := c.ShouldBind(&form); err != nil {
		renderPostForm(c, http.StatusBadRequest, "/new-post", form, formErrors(err))
		return
	}

	_, err := h.posts.Create(middleware.CurrentUser(c), services.PostInput{
		Title:    form.Title,
		Subtitle: form.Subtitle,
		Body:     form.Body,
		ImgURL:   form.ImgURL,
	})
	if errs, ok := blankFieldErrors(err); ok {
		renderPostForm(c, http.StatusBadRequest, "/new-post", form, errs)
		return
	}
	if err != nil {
		if errors.Is(err, services.ErrDuplicateTitle) {
			renderPostForm(c, http.StatusConflict, "/new-post", form, map[string]string{"Title": "A post with this title already exists"})
			return
		}
		ServerError(c, err)
		return
	}

	c.Redirect(http.StatusFound, "/")
}

func (h *PostHandler) ShowEdit(c *gin.Context) {
	post := h.loadPost(c)
	if post == nil {
		return
	}

	form := postForm{
		Title:    post.Title,
		Subtitle: post.Subtitle,
		ImgURL:   post.ImgURL,
		Body:     post.Body,
		Author:   post.Author.Username,
	}
	renderPostForm(c, http.StatusOK, editPath(post.ID), form, nil)
}

func (h *PostHandler) Update(c *gin.Context) {
	post := h.loadPost(c)
	if post == nil {
		return
	}
	action := editPath(post.ID)

	var form postForm
	if err := c.ShouldBind(&form); err != nil {
		renderPostForm(c, http.StatusBadRequest, action, form, formErrors(err))
		return
	}

	_, err := h.posts.Update(post.ID, services.PostInput{
		Title:    form.Title,
		Subtitle: form.Subtitle,
		Body:     form.Body,
		ImgURL:   form.ImgURL,
		Author:   form.Author,
	})
	if errs, ok := blankFieldErrors(err); ok {
		renderPostForm(c, http.StatusBadRequest, action, form, errs)
		return
	}
	switch {
	case errors.Is(err, services.ErrNotFound):
		NotFound(c)
		return
	case errors.Is(err, services.ErrDuplicateTitle):
		renderPostForm(c, http.StatusConflict, action, form, map[string]string{"Title": "A post with this title already exists"})
		return
	case errors.Is(err, services.ErrUnknownAuthor):
		renderPostForm(c, http.StatusBadRequest, action, form, map[string]string{"Author": "No user with that username"})
		return
	case err != nil:
		ServerError(c, err)
		return
	}

	c.Redirect(http.StatusFound, postPath(post.ID))
}

// ConfirmDelete shows the confirmation step; the deletion itself is a POST.
func (h *PostHandler) ConfirmDelete(c *gin.Context) {
	post := h.loadPost(c)
	if post == nil {
		return
	}
	Render(c, http.StatusOK, "post/delete.html", gin.H{
		"Title": "Delete " + post.Title,
		"Post":  post,
	})
}

func (h *PostHandler) Delete(c *gin.Context) {
	id, ok := utils.ParseID(c.Param("id"))
	if !ok {
		NotFound(c)
		return
	}

	if c.PostForm("confirm") != "yes" {
		c.Redirect(http.StatusFound, deletePath(id))
		return
	}

	if err := h.posts.Delete(id); err != nil {
		if errors.Is(err, services.ErrNotFound) {
			NotFound(c)
			return
		}
		ServerError(c, err)
		return
	}

	Flash(c, "Post deleted")
	c.Redirect(http.StatusFound, "/")
}

func renderPostForm(c *gin.Context, code int, action string, form postForm, errs map[string]string) {
	title := "New Post"
	if action != "/new-post" {
		title = "Edit Post"
	}
	Render(c, code, "post/form.html", gin.H{
		"Title":  title,
		"Action": action,
		"IsEdit": action != "/new-post",
		"Form":   form,
		"Errors": errs,
	})
}

func postPath(id uint) string {
	return fmt.Sprintf("/post/%d", id)
}

func editPath(id uint) string {
	return fmt.Sprintf("/edit-post/%d", id)
}

func deletePath(id uint) string {
	return fmt.Sprintf("/delete/%d", id)
}
