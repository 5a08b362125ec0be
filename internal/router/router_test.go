package router

import (
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"
	"writeboard/internal/models"
	"writeboard/internal/testutil"

	"github.com/gin-gonic/gin"
	"github.com/mmcdole/gofeed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type testApp struct {
	server *httptest.Server
	db     *gorm.DB
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)

	gdb := testutil.NewDB(t)
	r, err := New(gdb, Options{
		SessionSecret: "test-secret",
		SessionMaxAge: time.Hour,
		SiteURL:       "https://blog.example.com/",
	})
	require.NoError(t, err)

	ts := httptest.NewServer(r)
	t.Cleanup(ts.Close)

	return &testApp{server: ts, db: gdb}
}

// browser is an HTTP client that keeps cookies and does not follow redirects.
type browser struct {
	t      *testing.T
	app    *testApp
	client *http.Client
}

func (a *testApp) browser(t *testing.T) *browser {
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &browser{
		t:   t,
		app: a,
		client: &http.Client{
			Jar: jar,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

func (b *browser) get(path string) (*http.Response, string) {
	b.t.Helper()
	resp, err := b.client.Get(b.app.server.URL + path)
	require.NoError(b.t, err)
	return resp, readBody(b.t, resp)
}

func (b *browser) post(path string, form url.Values) (*http.Response, string) {
	b.t.Helper()
	resp, err := b.client.PostForm(b.app.server.URL+path, form)
	require.NoError(b.t, err)
	return resp, readBody(b.t, resp)
}

func (b *browser) login(email, password string) {
	b.t.Helper()
	resp, _ := b.post("/login", url.Values{"email": {email}, "password": {password}})
	require.Equal(b.t, http.StatusFound, resp.StatusCode)
	require.Equal(b.t, "/", resp.Header.Get("Location"))
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(b)
}

func countRows(t *testing.T, gdb *gorm.DB, model interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, gdb.Model(model).Count(&n).Error)
	return n
}

func postPath(id uint) string   { return fmt.Sprintf("/post/%d", id) }
func editPath(id uint) string   { return fmt.Sprintf("/edit-post/%d", id) }
func deletePath(id uint) string { return fmt.Sprintf("/delete/%d", id) }

func postValues(title string) url.Values {
	return url.Values{
		"title":    {title},
		"subtitle": {"a subtitle"},
		"img_url":  {"https://example.com/img.jpg"},
		"body":     {"Some **markdown** body"},
	}
}

func TestRegisterLoginLogout(t *testing.T) {
	app := newTestApp(t)
	b := app.browser(t)

	resp, _ := b.post("/register", url.Values{"username": {"alice"}, "email": {"a@x.com"}, "password": {"pw1"}})
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get("Location"))

	_, body := b.get("/")
	assert.Contains(t, body, `<li class="whoami">alice</li>`, "registration starts a session")

	resp, _ = b.get("/logout")
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	_, body = b.get("/")
	assert.NotContains(t, body, "whoami")

	b.login("a@x.com", "pw1")
	_, body = b.get("/")
	assert.Contains(t, body, `<li class="whoami">alice</li>`)
	assert.Contains(t, body, "Logged in", "login flash is shown once")

	_, body = b.get("/")
	assert.NotContains(t, body, "Logged in")
}

func TestRegisterDuplicates(t *testing.T) {
	app := newTestApp(t)
	first := testutil.CreateUser(t, app.db, "alice", "a@x.com", "pw1", models.RoleUser)

	t.Run("email", func(t *testing.T) {
		b := app.browser(t)
		resp, _ := b.post("/register", url.Values{"username": {"alice2"}, "email": {"a@x.com"}, "password": {"other"}})
		require.Equal(t, http.StatusFound, resp.StatusCode)
		assert.Equal(t, "/login", resp.Header.Get("Location"))

		_, body := b.get("/login")
		assert.Contains(t, body, "User already exists")
		_, body = b.get("/")
		assert.NotContains(t, body, "whoami")

		var stored models.User
		require.NoError(t, app.db.First(&stored, first.ID).Error)
		assert.Equal(t, first.Password, stored.Password)
		assert.Equal(t, int64(1), countRows(t, app.db, &models.User{}))
	})

	t.Run("username", func(t *testing.T) {
		b := app.browser(t)
		resp, body := b.post("/register", url.Values{"username": {"alice"}, "email": {"new@x.com"}, "password": {"pw"}})
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
		assert.Contains(t, body, "That username is already taken")
		assert.Equal(t, int64(1), countRows(t, app.db, &models.User{}))
	})

	t.Run("whitespace username", func(t *testing.T) {
		b := app.browser(t)
		resp, body := b.post("/register", url.Values{"username": {"   "}, "email": {"blank@x.com"}, "password": {"pw"}})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Contains(t, body, "Please enter a username")
		assert.Equal(t, int64(1), countRows(t, app.db, &models.User{}))

		_, body = b.get("/")
		assert.NotContains(t, body, "whoami")
	})

	t.Run("missing fields", func(t *testing.T) {
		b := app.browser(t)
		resp, body := b.post("/register", url.Values{"username": {""}, "email": {"not-an-email"}})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Contains(t, body, "Please enter a username")
		assert.Contains(t, body, "Please enter a valid email address")
		assert.Contains(t, body, "Please enter a password")
	})
}

func TestLoginFailures(t *testing.T) {
	app := newTestApp(t)
	testutil.CreateUser(t, app.db, "alice", "a@x.com", "pw1", models.RoleUser)

	testCases := []struct {
		name     string
		email    string
		password string
		wantBody string
	}{
		{name: "wrong password", email: "a@x.com", password: "nope", wantBody: "Incorrect password. Try again!"},
		{name: "unknown email", email: "b@x.com", password: "pw1", wantBody: "Incorrect email."},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			b := app.browser(t)
			resp, body := b.post("/login", url.Values{"email": {tc.email}, "password": {tc.password}})
			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
			assert.Contains(t, body, tc.wantBody)

			_, body = b.get("/")
			assert.NotContains(t, body, "whoami", "no session after a failed login")
		})
	}
}

func TestNonAdminIsForbidden(t *testing.T) {
	app := newTestApp(t)
	admin := testutil.CreateUser(t, app.db, "Admin", "admin@x.com", "admin-pw", models.RoleAdmin)
	testutil.CreateUser(t, app.db, "alice", "a@x.com", "pw1", models.RoleUser)
	post := testutil.CreatePost(t, app.db, admin, "Hello")
	id := fmt.Sprint(post.ID)

	b := app.browser(t)
	b.login("a@x.com", "pw1")

	requests := []struct {
		method string
		path   string
		form   url.Values
	}{
		{http.MethodGet, "/new-post", nil},
		{http.MethodPost, "/new-post", postValues("Sneaky")},
		{http.MethodGet, "/edit-post/" + id, nil},
		{http.MethodPost, "/edit-post/" + id, postValues("Hijacked")},
		{http.MethodGet, "/delete/" + id, nil},
		{http.MethodPost, "/delete/" + id, url.Values{"confirm": {"yes"}}},
	}

	for _, r := range requests {
		var resp *http.Response
		var body string
		if r.method == http.MethodGet {
			resp, body = b.get(r.path)
		} else {
			resp, body = b.post(r.path, r.form)
		}
		assert.Equal(t, http.StatusForbidden, resp.StatusCode, r.method+" "+r.path)
		assert.Empty(t, body, r.method+" "+r.path)
	}

	var stored models.Post
	require.NoError(t, app.db.First(&stored, post.ID).Error)
	assert.Equal(t, "Hello", stored.Title)
	assert.Equal(t, int64(1), countRows(t, app.db, &models.Post{}))

	t.Run("anonymous", func(t *testing.T) {
		anon := app.browser(t)
		resp, _ := anon.get("/new-post")
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})
}

func TestCreatePost(t *testing.T) {
	app := newTestApp(t)
	testutil.CreateUser(t, app.db, "Admin", "admin@x.com", "admin-pw", models.RoleAdmin)
	b := app.browser(t)
	b.login("admin@x.com", "admin-pw")

	resp, body := b.get("/new-post")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `action="/new-post"`)

	resp, _ = b.post("/new-post", postValues("Hello"))
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get("Location"))

	var post models.Post
	require.NoError(t, app.db.Where("title = ?", "Hello").First(&post).Error)
	assert.Equal(t, time.Now().Format(models.DateLayout), post.Date)

	_, body = b.get("/")
	assert.Contains(t, body, "Hello")
	assert.Contains(t, body, "Posted by Admin")

	t.Run("duplicate title", func(t *testing.T) {
		resp, body := b.post("/new-post", postValues("Hello"))
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
		assert.Contains(t, body, "A post with this title already exists")
		assert.Equal(t, int64(1), countRows(t, app.db, &models.Post{}))
	})

	t.Run("whitespace title and subtitle", func(t *testing.T) {
		form := postValues("   ")
		resp, body := b.post("/new-post", form)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Contains(t, body, "Please enter a title")

		form = postValues("Has a title")
		form.Set("subtitle", " \t ")
		resp, body = b.post("/new-post", form)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Contains(t, body, "Please enter a subtitle")
		assert.Equal(t, int64(1), countRows(t, app.db, &models.Post{}))
	})

	t.Run("invalid image url", func(t *testing.T) {
		form := postValues("Broken")
		form.Set("img_url", "not a url")
		resp, body := b.post("/new-post", form)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Contains(t, body, "Please enter a valid URL")
		assert.Equal(t, int64(1), countRows(t, app.db, &models.Post{}))
	})
}

func TestCommentFlow(t *testing.T) {
	app := newTestApp(t)
	testutil.CreateUser(t, app.db, "Admin", "admin@x.com", "admin-pw", models.RoleAdmin)

	alice := app.browser(t)
	resp, _ := alice.post("/register", url.Values{"username": {"alice"}, "email": {"a@x.com"}, "password": {"pw1"}})
	require.Equal(t, http.StatusFound, resp.StatusCode)
	alice.get("/logout")
	alice.login("a@x.com", "pw1")

	admin := app.browser(t)
	admin.login("admin@x.com", "admin-pw")
	resp, _ = admin.post("/new-post", postValues("Hello"))
	require.Equal(t, http.StatusFound, resp.StatusCode)
	resp, _ = admin.post("/new-post", postValues("Elsewhere"))
	require.Equal(t, http.StatusFound, resp.StatusCode)

	var hello, elsewhere models.Post
	require.NoError(t, app.db.Where("title = ?", "Hello").First(&hello).Error)
	require.NoError(t, app.db.Where("title = ?", "Elsewhere").First(&elsewhere).Error)

	t.Run("anonymous comment is rejected", func(t *testing.T) {
		anon := app.browser(t)
		resp, _ := anon.post(postPath(hello.ID), url.Values{"comment_text": {"drive-by"}})
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Zero(t, countRows(t, app.db, &models.Comment{}))
	})

	resp, body := alice.get(postPath(hello.ID))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `name="comment_text"`)

	resp, _ = alice.post(postPath(hello.ID), url.Values{"comment_text": {"nice post"}})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, postPath(hello.ID), resp.Header.Get("Location"))

	var comments []models.Comment
	require.NoError(t, app.db.Preload("Author").Find(&comments).Error)
	require.Len(t, comments, 1)
	assert.Equal(t, "nice post", comments[0].Text)
	assert.Equal(t, "alice", comments[0].Author.Username)
	assert.Equal(t, hello.ID, comments[0].PostID)

	_, body = alice.get(postPath(hello.ID))
	assert.Contains(t, body, "nice post")

	_, body = alice.get(postPath(elsewhere.ID))
	assert.NotContains(t, body, "nice post", "comments do not leak across posts")

	t.Run("empty comment", func(t *testing.T) {
		resp, body := alice.post(postPath(hello.ID), url.Values{"comment_text": {""}})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Contains(t, body, "Please write a comment")
		assert.Equal(t, int64(1), countRows(t, app.db, &models.Comment{}))
	})

	t.Run("comment on missing post", func(t *testing.T) {
		resp, _ := alice.post("/post/9999", url.Values{"comment_text": {"hello?"}})
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestEditPost(t *testing.T) {
	app := newTestApp(t)
	admin := testutil.CreateUser(t, app.db, "Admin", "admin@x.com", "admin-pw", models.RoleAdmin)
	testutil.CreateUser(t, app.db, "bob", "bob@x.com", "pw", models.RoleUser)
	post := testutil.CreatePost(t, app.db, admin, "Hello")
	b := app.browser(t)
	b.login("admin@x.com", "admin-pw")

	resp, body := b.get(editPath(post.ID))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `value="Hello"`, "form is pre-filled")
	assert.Contains(t, body, `value="Admin"`)

	form := postValues("Hello, edited")
	form.Set("author", "bob")
	resp, _ = b.post(editPath(post.ID), form)
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, postPath(post.ID), resp.Header.Get("Location"))

	var stored models.Post
	require.NoError(t, app.db.Preload("Author").First(&stored, post.ID).Error)
	assert.Equal(t, "Hello, edited", stored.Title)
	assert.Equal(t, "bob", stored.Author.Username)
	assert.Equal(t, post.Date, stored.Date)

	t.Run("unknown author", func(t *testing.T) {
		form := postValues("Hello, edited")
		form.Set("author", "ghost")
		resp, body := b.post(editPath(post.ID), form)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Contains(t, body, "No user with that username")
	})

	t.Run("missing post", func(t *testing.T) {
		resp, _ := b.get("/edit-post/9999")
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		resp, _ = b.post("/edit-post/9999", postValues("Nope"))
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestDeletePost(t *testing.T) {
	app := newTestApp(t)
	admin := testutil.CreateUser(t, app.db, "Admin", "admin@x.com", "admin-pw", models.RoleAdmin)
	alice := testutil.CreateUser(t, app.db, "alice", "a@x.com", "pw1", models.RoleUser)
	doomed := testutil.CreatePost(t, app.db, admin, "Doomed")
	kept := testutil.CreatePost(t, app.db, admin, "Kept")
	require.NoError(t, app.db.Create(&models.Comment{Text: "bye", AuthorID: alice.ID, PostID: doomed.ID}).Error)
	require.NoError(t, app.db.Create(&models.Comment{Text: "stay", AuthorID: alice.ID, PostID: kept.ID}).Error)

	b := app.browser(t)
	b.login("admin@x.com", "admin-pw")

	resp, body := b.get(deletePath(doomed.ID))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `name="confirm"`)
	assert.Equal(t, int64(2), countRows(t, app.db, &models.Post{}), "GET never deletes")

	resp, _ = b.post(deletePath(doomed.ID), url.Values{})
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, deletePath(doomed.ID), resp.Header.Get("Location"), "unconfirmed delete goes back to the confirmation")
	assert.Equal(t, int64(2), countRows(t, app.db, &models.Post{}))

	resp, _ = b.post(deletePath(doomed.ID), url.Values{"confirm": {"yes"}})
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get("Location"))

	_, body = b.get("/")
	assert.NotContains(t, body, "Doomed")
	assert.Contains(t, body, "Kept")
	assert.Contains(t, body, "Post deleted")

	var left []models.Comment
	require.NoError(t, app.db.Find(&left).Error)
	require.Len(t, left, 1)
	assert.Equal(t, kept.ID, left[0].PostID)

	resp, _ = b.post(deletePath(doomed.ID), url.Values{"confirm": {"yes"}})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp, _ = b.get(deletePath(doomed.ID))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestPublicPages(t *testing.T) {
	app := newTestApp(t)
	b := app.browser(t)

	testCases := []struct {
		path       string
		wantStatus int
		wantBody   string
	}{
		{"/", http.StatusOK, "No posts yet."},
		{"/about", http.StatusOK, "<h1>About</h1>"},
		{"/contact", http.StatusOK, "<h1>Contact</h1>"},
		{"/register", http.StatusOK, `action="/register"`},
		{"/login", http.StatusOK, `action="/login"`},
		{"/post/1", http.StatusNotFound, "does not exist"},
		{"/post/abc", http.StatusNotFound, "does not exist"},
		{"/no/such/page", http.StatusNotFound, "does not exist"},
		{"/static/css/styles.css", http.StatusOK, "--accent"},
	}

	for _, tc := range testCases {
		t.Run(tc.path, func(t *testing.T) {
			resp, body := b.get(tc.path)
			assert.Equal(t, tc.wantStatus, resp.StatusCode)
			assert.Contains(t, body, tc.wantBody)
		})
	}
}

func TestSessionOfDeletedUserIsAnonymous(t *testing.T) {
	app := newTestApp(t)
	alice := testutil.CreateUser(t, app.db, "alice", "a@x.com", "pw1", models.RoleUser)
	b := app.browser(t)
	b.login("a@x.com", "pw1")

	require.NoError(t, app.db.Delete(&models.User{}, alice.ID).Error)

	_, body := b.get("/")
	assert.NotContains(t, body, "whoami")
}

func TestResponsesAreCompressed(t *testing.T) {
	app := newTestApp(t)
	b := app.browser(t)

	resp, body := b.get("/")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, resp.Uncompressed, "transport saw a gzip body")
	assert.Contains(t, body, "Writeboard")
}

func TestFeeds(t *testing.T) {
	app := newTestApp(t)
	admin := testutil.CreateUser(t, app.db, "Admin", "admin@x.com", "admin-pw", models.RoleAdmin)
	older := testutil.CreatePost(t, app.db, admin, "Older")
	newer := testutil.CreatePost(t, app.db, admin, "Newer")
	require.NoError(t, app.db.Model(older).Update("created_at", time.Now().Add(-48*time.Hour)).Error)
	require.NoError(t, app.db.Model(newer).Update("body", "Hello <script>alert(1)</script> **world**").Error)

	b := app.browser(t)

	t.Run("rss", func(t *testing.T) {
		resp, body := b.get("/feed.xml")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, resp.Header.Get("Content-Type"), "application/rss+xml")

		feed, err := gofeed.NewParser().ParseString(body)
		require.NoError(t, err)
		assert.Equal(t, "rss", feed.FeedType)
		assert.Equal(t, "Writeboard", feed.Title)
		require.Len(t, feed.Items, 2)

		first := feed.Items[0]
		assert.Equal(t, "Newer", first.Title)
		assert.Equal(t, "https://blog.example.com"+postPath(newer.ID), first.Link)
		assert.Contains(t, first.Description, "<strong>world</strong>")
		assert.NotContains(t, first.Description, "<script>")
		require.NotNil(t, first.Author)
		assert.Equal(t, "Admin", first.Author.Name)
		assert.NotContains(t, body, "<author>", "usernames never go in the email-only author element")
		assert.Contains(t, body, `xmlns:dc="http://purl.org/dc/elements/1.1/"`)
		assert.Equal(t, "Older", feed.Items[1].Title)
		require.NotNil(t, feed.Items[1].PublishedParsed)
		assert.True(t, feed.Items[1].PublishedParsed.Before(*first.PublishedParsed))
	})

	t.Run("sitemap", func(t *testing.T) {
		resp, body := b.get("/sitemap.xml")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, body, "<loc>https://blog.example.com/</loc>")
		assert.Contains(t, body, "<loc>https://blog.example.com"+postPath(older.ID)+"</loc>")
		assert.Contains(t, body, "<loc>https://blog.example.com"+postPath(newer.ID)+"</loc>")
	})

	t.Run("robots", func(t *testing.T) {
		resp, body := b.get("/robots.txt")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, body, "Disallow: /new-post")
		assert.Contains(t, body, "Sitemap: https://blog.example.com/sitemap.xml")
	})
}
