package auth

import (
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"lavka/internal/domain"
)

// SessionCookie имя куки с токеном сессии
const SessionCookie = "session"

const userKey = "auth.user"

// Middleware подхватывает сессию из куки и кладёт пользователя в контекст
// запроса. Запросы без валидной сессии проходят дальше анонимно.
func Middleware(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(SessionCookie)
		if err != nil || token == "" {
			c.Next()
			return
		}
		u, err := svc.Resolve(c.Request.Context(), token)
		if err != nil {
			c.Next()
			return
		}
		c.Set(userKey, u)
		c.Next()
	}
}

// RequireLogin редиректит анонимные запросы на форму входа вместо ошибки
func RequireLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := CurrentUser(c); !ok {
			next := url.QueryEscape(c.Request.URL.RequestURI())
			c.Redirect(http.StatusFound, "/login/?next="+next)
			c.Abort()
			return
		}
		c.Next()
	}
}

// CurrentUser достаёт пользователя, положенного Middleware
func CurrentUser(c *gin.Context) (*domain.User, bool) {
	v, ok := c.Get(userKey)
	if !ok {
		return nil, false
	}
	u, ok := v.(*domain.User)
	return u, ok
}
