package utils

import (
	"bytes"
	"html/template"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
)

var (
	postMarkdown = goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithParserOptions(parser.WithAutoHeadingID()),
		goldmark.WithRendererOptions(html.WithXHTML()),
	)
	// comments are short replies: line breaks are kept as typed
	commentMarkdown = goldmark.New(
		goldmark.WithExtensions(extension.Strikethrough, extension.Linkify),
		goldmark.WithRendererOptions(html.WithHardWraps(), html.WithXHTML()),
	)

	postPolicy    = newPostPolicy()
	commentPolicy = newCommentPolicy()
)

// newPostPolicy allows what an author needs for a full article: headings,
// tables and images.
func newPostPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowImages()
	p.AddTargetBlankToFullyQualifiedLinks(true)
	p.RequireNoReferrerOnLinks(true)
	return p
}

// newCommentPolicy allows inline formatting, lists, quotes, code and links.
// No images or headings, and every link is nofollow.
func newCommentPolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements("p", "br", "strong", "em", "del", "code", "pre", "blockquote", "ul", "ol", "li")
	p.AllowStandardURLs()
	p.AllowAttrs("href").OnElements("a")
	p.RequireNoFollowOnLinks(true)
	p.RequireNoReferrerOnLinks(true)
	p.AddTargetBlankToFullyQualifiedLinks(true)
	return p
}

// RenderMarkdown turns a post body into sanitized HTML with hardened images.
func RenderMarkdown(source string) template.HTML {
	out, ok := render(postMarkdown, postPolicy, source)
	if !ok {
		return out
	}
	return EnhanceHTMLContent(string(out))
}

// RenderComment turns comment text into sanitized HTML.
func RenderComment(source string) template.HTML {
	out, _ := render(commentMarkdown, commentPolicy, source)
	return out
}

// render reports false when markdown conversion failed and the escaped
// source was returned instead.
func render(md goldmark.Markdown, policy *bluemonday.Policy, source string) (template.HTML, bool) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(source), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(source)), false
	}
	return template.HTML(policy.SanitizeBytes(buf.Bytes())), true
}
