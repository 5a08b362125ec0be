// Package web embeds the HTML templates and static assets.
package web

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"path"
	"time"
	"writeboard/internal/utils"

	"github.com/gin-contrib/multitemplate"
)

//go:embed templates static
var content embed.FS

// StaticFS serves the files under static/.
func StaticFS() http.FileSystem {
	sub, err := fs.Sub(content, "static")
	if err != nil {
		panic(err)
	}
	return http.FS(sub)
}

// Views maps the name handlers render to its file under templates/views.
var Views = []string{
	"post/index.html",
	"post/show.html",
	"post/form.html",
	"post/delete.html",
	"auth/login.html",
	"auth/register.html",
	"pages/about.html",
	"pages/contact.html",
	"error.html",
}

func FuncMap() template.FuncMap {
	return template.FuncMap{
		"dict": func(values ...interface{}) (map[string]interface{}, error) {
			if len(values)%2 != 0 {
				return nil, fmt.Errorf("invalid dict call")
			}
			dict := make(map[string]interface{}, len(values)/2)
			for i := 0; i < len(values); i += 2 {
				key, ok := values[i].(string)
				if !ok {
					return nil, fmt.Errorf("dict keys must be strings")
				}
				dict[key] = values[i+1]
			}
			return dict, nil
		},
		"gravatar": utils.GravatarURL,
		"year": func() int {
			return time.Now().Year()
		},
	}
}

// LoadTemplates builds one template set per view: the base layout, every
// include, then the view itself.
func LoadTemplates() (multitemplate.Render, error) {
	r := multitemplate.New()

	layouts, err := fs.Glob(content, "templates/layouts/*.html")
	if err != nil {
		return nil, err
	}
	includes, err := fs.Glob(content, "templates/includes/*.html")
	if err != nil {
		return nil, err
	}

	funcMap := FuncMap()
	for _, view := range Views {
		files := make([]string, 0, len(layouts)+len(includes)+1)
		files = append(files, layouts...)
		files = append(files, includes...)
		files = append(files, "templates/views/"+view)

		tmpl, err := template.New(path.Base(files[0])).Funcs(funcMap).ParseFS(content, files...)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", view, err)
		}
		r.Add(view, tmpl)
	}
	return r, nil
}
