package middleware

import (
	"errors"
	"log"
	"net/http"
	"writeboard/internal/models"
	"writeboard/internal/services"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

const CheckUserKey = "user"
const SessionUserKey = "user_id"

// UserFinder resolves the id stored in the session.
type UserFinder interface {
	FindByID(id uint) (*models.User, error)
}

// LoadUser retrieves user from session and sets it on the request context.
// A session pointing at a user that no longer exists is dropped; other
// lookup failures leave the session alone and the request anonymous.
func LoadUser(users UserFinder) gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		if id, ok := session.Get(SessionUserKey).(uint); ok {
			user, err := users.FindByID(id)
			switch {
			case err == nil:
				c.Set(CheckUserKey, user)
			case errors.Is(err, services.ErrNotFound):
				session.Delete(SessionUserKey)
				if err := session.Save(); err != nil {
					log.Printf("Failed to drop stale session: %v", err)
				}
			default:
				log.Printf("Failed to load session user %d: %v", id, err)
			}
		}
		c.Next()
	}
}

// CurrentUser returns the authenticated user of this request, or nil.
func CurrentUser(c *gin.Context) *models.User {
	if u, exists := c.Get(CheckUserKey); exists {
		if user, ok := u.(*models.User); ok {
			return user
		}
	}
	return nil
}

// AuthRequired ensures a user is logged in. Anonymous requests get a 401.
// onUnauthorized renders the response body; nil sends the bare status.
func AuthRequired(onUnauthorized gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentUser(c) == nil {
			if onUnauthorized != nil {
				onUnauthorized(c)
			} else {
				c.Status(http.StatusUnauthorized)
			}
			c.Abort()
			return
		}
		c.Next()
	}
}

// AdminRequired rejects authenticated users the policy does not accept
// with a bodiless 403. It must run after AuthRequired.
func AdminRequired(policy services.Policy) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !policy.CanManagePosts(CurrentUser(c)) {
			c.AbortWithStatus(http.StatusForbidden)
			return
		}
		c.Next()
	}
}
