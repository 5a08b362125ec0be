package handlers

import (
	"errors"
	"writeboard/internal/services"

	"github.com/go-playground/validator/v10"
)

type registerForm struct {
	Username string `form:"username" binding:"required,max=250"`
	Email    string `form:"email" binding:"required,email,max=250"`
	Password string `form:"password" binding:"required"`
}

type loginForm struct {
	Email    string `form:"email" binding:"required"`
	Password string `form:"password" binding:"required"`
}

type postForm struct {
	Title    string `form:"title" binding:"required,max=250"`
	Subtitle string `form:"subtitle" binding:"required,max=250"`
	ImgURL   string `form:"img_url" binding:"required,url,max=250"`
	Body     string `form:"body" binding:"required"`
	Author   string `form:"author" binding:"max=250"`
}

type commentForm struct {
	Text string `form:"comment_text" binding:"required"`
}

var fieldMessages = map[string]map[string]string{
	"Username": {"required": "Please enter a username"},
	"Email":    {"required": "Please enter an email address", "email": "Please enter a valid email address"},
	"Password": {"required": "Please enter a password"},
	"Title":    {"required": "Please enter a title"},
	"Subtitle": {"required": "Please enter a subtitle"},
	"ImgURL":   {"required": "Please enter an image URL", "url": "Please enter a valid URL"},
	"Body":     {"required": "Please write the post body"},
	"Text":     {"required": "Please write a comment"},
}

// formErrors maps binding failures to a message per form field. Errors
// that are not validation errors (a malformed body) land under "form".
func formErrors(err error) map[string]string {
	out := make(map[string]string)

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		out["form"] = "The form could not be read."
		return out
	}

	for _, fe := range verrs {
		msg := fieldMessages[fe.Field()][fe.Tag()]
		if msg == "" {
			switch fe.Tag() {
			case "max":
				msg = "Must be at most " + fe.Param() + " characters"
			default:
				msg = "Invalid value"
			}
		}
		if _, ok := out[fe.Field()]; !ok {
			out[fe.Field()] = msg
		}
	}
	return out
}

// blankFieldErrors reports a field that was only whitespace, in the same
// shape as formErrors.
func blankFieldErrors(err error) (map[string]string, bool) {
	var blank *services.BlankFieldError
	if !errors.As(err, &blank) {
		return nil, false
	}
	return map[string]string{blank.Field: fieldMessages[blank.Field]["required"]}, true
}
