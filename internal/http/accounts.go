package httpapi

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	"lavka/internal/auth"
	"lavka/internal/forms"
)

// Account handlers: вход, регистрация, выход.

func (s *Server) loginForm(c *gin.Context) {
	s.render(c, http.StatusOK, "login.html", gin.H{
		"Form":   forms.LoginForm{},
		"Errors": forms.Errors{},
		"Next":   safeNext(c.Query("next")),
	})
}

func (s *Server) login(c *gin.Context) {
	var f forms.LoginForm
	_ = c.ShouldBind(&f)
	next := safeNext(c.PostForm("next"))

	errs := forms.Validate(s.v, f)
	if len(errs) == 0 {
		_, token, err := s.authSvc.Login(c.Request.Context(), f.Username, f.Password)
		switch {
		case errors.Is(err, auth.ErrBadCredentials):
			errs["__all__"] = "Please enter a correct username and password."
		case err != nil:
			s.serviceError(c, err)
			return
		default:
			c.SetCookie(auth.SessionCookie, token, 0, "/", "", false, true)
			c.Redirect(http.StatusSeeOther, next)
			return
		}
	}
	// пароль в форму не возвращаем
	f.Password = ""
	s.render(c, http.StatusOK, "login.html", gin.H{"Form": f, "Errors": errs, "Next": next})
}

func (s *Server) registerForm(c *gin.Context) {
	s.render(c, http.StatusOK, "register.html", gin.H{
		"Form":   forms.RegisterForm{},
		"Errors": forms.Errors{},
	})
}

func (s *Server) register(c *gin.Context) {
	var f forms.RegisterForm
	_ = c.ShouldBind(&f)

	errs := forms.Validate(s.v, f)
	if len(errs) == 0 {
		_, token, err := s.authSvc.Register(c.Request.Context(), f.Username, f.Password)
		switch {
		case errors.Is(err, auth.ErrUsernameTaken):
			errs["username"] = "A user with that username already exists."
		case err != nil:
			s.serviceError(c, err)
			return
		default:
			c.SetCookie(auth.SessionCookie, token, 0, "/", "", false, true)
			setFlash(c, "Welcome!")
			c.Redirect(http.StatusSeeOther, "/products/")
			return
		}
	}
	f.Password = ""
	s.render(c, http.StatusOK, "register.html", gin.H{"Form": f, "Errors": errs})
}

func (s *Server) logout(c *gin.Context) {
	if token, err := c.Cookie(auth.SessionCookie); err == nil && token != "" {
		_ = s.authSvc.Logout(c.Request.Context(), token)
	}
	c.SetCookie(auth.SessionCookie, "", -1, "/", "", false, true)
	c.Redirect(http.StatusSeeOther, "/products/")
}

// safeNext допускает только локальные пути, чтобы не стать open redirect
func safeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") {
		return "/products/"
	}
	if u, err := url.Parse(next); err != nil || u.IsAbs() || u.Host != "" {
		return "/products/"
	}
	return next
}
