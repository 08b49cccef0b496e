package httpapi

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	validatorv10 "github.com/go-playground/validator/v10"

	"lavka/internal/auth"
	"lavka/internal/forms"
	"lavka/internal/repository"
	"lavka/internal/service"
)

// Server собирает gin-движок и раздаёт HTML-интерфейс магазина.
// Поверхность — формы: GET рендерит форму, POST валидирует и либо
// сохраняет с редиректом, либо перерисовывает форму с ошибками.
type Server struct {
	engine  *gin.Engine
	catalog *service.CatalogService
	ledger  *service.LedgerService
	authSvc *auth.Service
	v       *validatorv10.Validate
}

// Config параметры сервера
type Config struct {
	// TemplatesGlob путь до HTML-шаблонов, например "web/templates/*.html"
	TemplatesGlob string
}

func NewServer(catalog *service.CatalogService, ledger *service.LedgerService, authSvc *auth.Service, cfg Config) *Server {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	r.LoadHTMLGlob(cfg.TemplatesGlob)
	r.Use(auth.Middleware(authSvc))

	s := &Server{
		engine:  r,
		catalog: catalog,
		ledger:  ledger,
		authSvc: authSvc,
		v:       forms.New(),
	}
	s.registerRoutes()
	return s
}

func (s *Server) Engine() *gin.Engine { return s.engine }

func (s *Server) registerRoutes() {
	r := s.engine

	r.GET("/", func(c *gin.Context) {
		c.Redirect(http.StatusFound, "/products/")
	})

	// каталог виден без входа
	r.GET("/products/", s.productList)
	r.GET("/products/:id/", s.productDetail)

	// аккаунты
	r.GET("/login/", s.loginForm)
	r.POST("/login/", s.login)
	r.GET("/register/", s.registerForm)
	r.POST("/register/", s.register)
	r.POST("/logout/", s.logout)

	// всё мутирующее — только после входа
	priv := r.Group("/", auth.RequireLogin())

	priv.GET("/products/new/", s.productCreateForm)
	priv.POST("/products/new/", s.productCreate)
	priv.GET("/products/:id/edit/", s.productUpdateForm)
	priv.POST("/products/:id/edit/", s.productUpdate)
	priv.GET("/products/:id/delete/", s.productDeleteConfirm)
	priv.POST("/products/:id/delete/", s.productDelete)

	priv.GET("/orders/", s.orderList)
	priv.GET("/orders/:id/", s.orderDetail)
	priv.GET("/orders/new/", s.orderCreateForm)
	priv.POST("/orders/new/", s.orderCreate)
	priv.GET("/orders/:id/edit/", s.orderUpdateForm)
	priv.POST("/orders/:id/edit/", s.orderUpdate)
	priv.GET("/orders/:id/delete/", s.orderDeleteConfirm)
	priv.POST("/orders/:id/delete/", s.orderDelete)

	priv.GET("/orders/:id/add-item/", s.itemAddForm)
	priv.POST("/orders/:id/add-item/", s.itemAdd)
	priv.GET("/order-items/:id/edit/", s.itemUpdateForm)
	priv.POST("/order-items/:id/edit/", s.itemUpdate)
	priv.GET("/order-items/:id/delete/", s.itemDeleteConfirm)
	priv.POST("/order-items/:id/delete/", s.itemDelete)
}

// render добавляет к данным страницы текущего пользователя и flash-сообщение
func (s *Server) render(c *gin.Context, code int, name string, data gin.H) {
	if data == nil {
		data = gin.H{}
	}
	if u, ok := auth.CurrentUser(c); ok {
		data["User"] = u
	}
	if msg := takeFlash(c); msg != "" {
		data["Flash"] = msg
	}
	c.HTML(code, name, data)
}

func (s *Server) notFound(c *gin.Context) {
	s.render(c, http.StatusNotFound, "not_found.html", nil)
}

// serviceError единая развязка ошибок сервисного слоя вне контекста формы.
// "Не найдено" и "не твоё" уже схлопнуты репозиторием в ErrNotFound.
func (s *Server) serviceError(c *gin.Context, err error) {
	if errors.Is(err, repository.ErrNotFound) {
		s.notFound(c)
		return
	}
	c.String(http.StatusInternalServerError, "internal error")
}

func parseID(s string) (int64, error) {
	return strconv.ParseInt(s, 10, 64)
}

// mustUser достаёт пользователя; за RequireLogin он всегда есть
func mustUser(c *gin.Context) int64 {
	u, _ := auth.CurrentUser(c)
	return u.ID
}
