package router

import (
	"net/http"
	"time"
	"writeboard/internal/handlers"
	"writeboard/internal/middleware"
	"writeboard/internal/services"
	"writeboard/web"

	"github.com/gin-contrib/gzip"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const sessionName = "writeboard_session"

type Options struct {
	SessionSecret string
	SessionMaxAge time.Duration

	// SecureCookie marks the session cookie HTTPS-only.
	SecureCookie bool

	// SiteURL prefixes the absolute links of the feed and sitemap.
	SiteURL string

	// Policy decides who may manage posts; defaults to services.RolePolicy.
	Policy services.Policy
}

// New builds the gin engine with sessions, templates and every route.
func New(gdb *gorm.DB, opts Options) (*gin.Engine, error) {
	renderer, err := web.LoadTemplates()
	if err != nil {
		return nil, err
	}
	if opts.Policy == nil {
		opts.Policy = services.RolePolicy{}
	}

	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	r.Use(gzip.Gzip(gzip.DefaultCompression))

	store := cookie.NewStore([]byte(opts.SessionSecret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   int(opts.SessionMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   opts.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	r.Use(sessions.Sessions(sessionName, store))

	r.HTMLRender = renderer
	r.StaticFS("/static", web.StaticFS())

	users := services.NewUserService(gdb)
	r.Use(middleware.LoadUser(users))

	RegisterRoutes(r, gdb, users, opts)
	return r, nil
}

func RegisterRoutes(r *gin.Engine, gdb *gorm.DB, users *services.UserService, opts Options) {
	posts := services.NewPostService(gdb)
	authHandler := handlers.NewAuthHandler(users)
	postHandler := handlers.NewPostHandler(posts, services.NewCommentService(gdb))
	pageHandler := handlers.NewPageHandler()
	feedHandler := handlers.NewFeedHandler(posts, opts.SiteURL)

	// Public Routes
	r.GET("/", postHandler.List)
	r.GET("/post/:id", postHandler.Show)
	r.GET("/about", pageHandler.About)
	r.GET("/contact", pageHandler.Contact)

	// SEO
	r.GET("/feed.xml", feedHandler.RSSFeed)
	r.GET("/sitemap.xml", feedHandler.SitemapXML)
	r.GET("/robots.txt", feedHandler.RobotsTxt)

	r.GET("/register", authHandler.ShowRegister)
	r.POST("/register", authHandler.Register)
	r.GET("/login", authHandler.ShowLogin)
	r.POST("/login", authHandler.Login)
	r.GET("/logout", authHandler.Logout)

	// Protected Routes
	authorized := r.Group("/")
	authorized.Use(middleware.AuthRequired(handlers.Unauthorized))
	{
		authorized.POST("/post/:id", postHandler.CreateComment)
	}

	// Admin Routes
	admin := r.Group("/")
	admin.Use(middleware.AuthRequired(handlers.Unauthorized), middleware.AdminRequired(opts.Policy))
	{
		admin.GET("/new-post", postHandler.ShowCreate)
		admin.POST("/new-post", postHandler.Create)
		admin.GET("/edit-post/:id", postHandler.ShowEdit)
		admin.POST("/edit-post/:id", postHandler.Update)
		admin.GET("/delete/:id", postHandler.ConfirmDelete)
		admin.POST("/delete/:id", postHandler.Delete)
	}

	r.NoRoute(handlers.NotFound)
}
