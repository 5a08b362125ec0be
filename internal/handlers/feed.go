package handlers

import (
	"encoding/xml"
	"fmt"
	"net/http"
	"strings"
	"time"
	"writeboard/internal/services"
	"writeboard/internal/utils"

	"github.com/gin-gonic/gin"
)

const feedSize = 20

// FeedHandler serves the machine-readable views of the blog: an RSS 2.0
// feed, a sitemap and robots.txt. Links are absolute, built from siteURL.
type FeedHandler struct {
	posts   *services.PostService
	siteURL string
}

func NewFeedHandler(posts *services.PostService, siteURL string) *FeedHandler {
	return &FeedHandler{posts: posts, siteURL: strings.TrimRight(siteURL, "/")}
}

const dublinCoreNS = "http://purl.org/dc/elements/1.1/"

type rssDoc struct {
	XMLName xml.Name   `xml:"rss"`
	Version string     `xml:"version,attr"`
	XMLNSDC string     `xml:"xmlns:dc,attr"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title         string    `xml:"title"`
	Link          string    `xml:"link"`
	Description   string    `xml:"description"`
	LastBuildDate string    `xml:"lastBuildDate"`
	Items         []rssItem `xml:"item"`
}

type rssItem struct {
	Title       string  `xml:"title"`
	Link        string  `xml:"link"`
	Description cdata   `xml:"description"`
	Creator     string  `xml:"dc:creator"`
	PubDate     string  `xml:"pubDate"`
	GUID        rssGUID `xml:"guid"`
}

type rssGUID struct {
	IsPermaLink bool   `xml:"isPermaLink,attr"`
	Value       string `xml:",chardata"`
}

type cdata struct {
	Value string `xml:",cdata"`
}

// RSSFeed renders the newest posts as RSS 2.0, bodies as sanitized HTML.
// RSS <author> must be an email, so the username goes in dc:creator.
func (h *FeedHandler) RSSFeed(c *gin.Context) {
	posts, err := h.posts.Recent(feedSize)
	if err != nil {
		ServerError(c, err)
		return
	}

	doc := rssDoc{
		Version: "2.0",
		XMLNSDC: dublinCoreNS,
		Channel: rssChannel{
			Title:         "Writeboard",
			Link:          h.siteURL + "/",
			Description:   "Posts from Writeboard",
			LastBuildDate: time.Now().Format(time.RFC1123Z),
		},
	}
	for _, post := range posts {
		link := h.siteURL + postPath(post.ID)
		doc.Channel.Items = append(doc.Channel.Items, rssItem{
			Title:       post.Title,
			Link:        link,
			Description: cdata{Value: string(utils.RenderMarkdown(post.Body))},
			Creator:     post.Author.Username,
			PubDate:     post.CreatedAt.Format(time.RFC1123Z),
			GUID:        rssGUID{IsPermaLink: true, Value: link},
		})
	}

	h.writeXML(c, "application/rss+xml; charset=utf-8", doc)
}

type urlSet struct {
	XMLName xml.Name     `xml:"urlset"`
	XMLNS   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

type sitemapURL struct {
	Loc        string `xml:"loc"`
	LastMod    string `xml:"lastmod,omitempty"`
	ChangeFreq string `xml:"changefreq"`
	Priority   string `xml:"priority"`
}

// SitemapXML lists the public pages and every post.
func (h *FeedHandler) SitemapXML(c *gin.Context) {
	posts, err := h.posts.List()
	if err != nil {
		ServerError(c, err)
		return
	}

	set := urlSet{XMLNS: "http://www.sitemaps.org/schemas/sitemap/0.9"}
	set.URLs = append(set.URLs,
		sitemapURL{Loc: h.siteURL + "/", ChangeFreq: "daily", Priority: "1.0"},
		sitemapURL{Loc: h.siteURL + "/about", ChangeFreq: "monthly", Priority: "0.3"},
		sitemapURL{Loc: h.siteURL + "/contact", ChangeFreq: "monthly", Priority: "0.3"},
	)
	for _, post := range posts {
		set.URLs = append(set.URLs, sitemapURL{
			Loc:        h.siteURL + postPath(post.ID),
			LastMod:    post.UpdatedAt.Format("2006-01-02"),
			ChangeFreq: "weekly",
			Priority:   "0.7",
		})
	}

	h.writeXML(c, "application/xml; charset=utf-8", set)
}

func (h *FeedHandler) RobotsTxt(c *gin.Context) {
	content := fmt.Sprintf(`User-agent: *
Allow: /

Disallow: /login
Disallow: /register
Disallow: /logout
Disallow: /new-post
Disallow: /edit-post/
Disallow: /delete/

Sitemap: %s/sitemap.xml
`, h.siteURL)

	c.Header("Content-Type", "text/plain; charset=utf-8")
	c.String(http.StatusOK, content)
}

func (h *FeedHandler) writeXML(c *gin.Context, contentType string, v interface{}) {
	out, err := xml.MarshalIndent(v, "", "  ")
	if err != nil {
		ServerError(c, err)
		return
	}
	c.Data(http.StatusOK, contentType, append([]byte(xml.Header), out...))
}
