package httpapi

import (
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"lavka/internal/auth"
	"lavka/internal/repository"
	"lavka/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func setupServer(t *testing.T) *Server {
	t.Helper()
	store := repository.NewMemoryStore()
	orders := repository.NewMemoryOrders(store)
	items := repository.NewMemoryItems(store)
	tx := repository.NewMemoryTx(store)
	ledger := service.NewLedgerService(store, orders, items, tx)
	catalog := service.NewCatalogService(store, ledger, tx)
	authSvc := auth.NewService(repository.NewMemoryUsers(store), repository.NewMemorySessions(store), time.Hour)
	return NewServer(catalog, ledger, authSvc, Config{TemplatesGlob: "../../web/templates/*.html"})
}

// client гоняет запросы через движок и таскает куки между ними
type client struct {
	t       *testing.T
	s       *Server
	cookies map[string]*http.Cookie
}

func newClient(t *testing.T, s *Server) *client {
	return &client{t: t, s: s, cookies: make(map[string]*http.Cookie)}
}

func (c *client) do(method, path string, form url.Values) *httptest.ResponseRecorder {
	c.t.Helper()
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req := httptest.NewRequest(method, path, body)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	for _, ck := range c.cookies {
		req.AddCookie(ck)
	}
	w := httptest.NewRecorder()
	c.s.Engine().ServeHTTP(w, req)
	for _, ck := range w.Result().Cookies() {
		if ck.MaxAge < 0 {
			delete(c.cookies, ck.Name)
		} else {
			c.cookies[ck.Name] = ck
		}
	}
	return w
}

func (c *client) register(username string) {
	c.t.Helper()
	w := c.do(http.MethodPost, "/register/", url.Values{
		"username": {username},
		"password": {"s3cret-pass"},
	})
	if w.Code != http.StatusSeeOther {
		c.t.Fatalf("register %s: code %v body %s", username, w.Code, w.Body.String())
	}
	if _, ok := c.cookies[auth.SessionCookie]; !ok {
		c.t.Fatalf("no session cookie after register")
	}
}

func TestPublicCatalogPages(t *testing.T) {
	s := setupServer(t)
	c := newClient(t, s)

	w := c.do(http.MethodGet, "/products/", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list code %v", w.Code)
	}

	w = c.do(http.MethodGet, "/products/999/", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("missing product expected 404, got %v", w.Code)
	}
}

func TestUnauthenticatedRedirectsToLogin(t *testing.T) {
	s := setupServer(t)
	c := newClient(t, s)

	for _, path := range []string{"/products/new/", "/orders/", "/orders/new/"} {
		w := c.do(http.MethodGet, path, nil)
		if w.Code != http.StatusFound {
			t.Fatalf("%s: expected redirect, got %v", path, w.Code)
		}
		if loc := w.Header().Get("Location"); !strings.HasPrefix(loc, "/login/") {
			t.Fatalf("%s: expected login redirect, got %q", path, loc)
		}
	}
}

func TestProductFormFlow(t *testing.T) {
	s := setupServer(t)
	c := newClient(t, s)
	c.register("alice")

	// пустое имя — перерисовка формы с ошибкой, ничего не сохранено
	w := c.do(http.MethodPost, "/products/new/", url.Values{
		"name": {""}, "price": {"9.99"}, "stock": {"10"},
	})
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "This field is required.") {
		t.Fatalf("expected field error, code %v", w.Code)
	}

	// валидная форма — редирект на деталь
	w = c.do(http.MethodPost, "/products/new/", url.Values{
		"name": {"Widget"}, "description": {"a widget"}, "price": {"9.99"}, "stock": {"10"},
	})
	if w.Code != http.StatusSeeOther {
		t.Fatalf("create code %v body %s", w.Code, w.Body.String())
	}
	loc := w.Header().Get("Location")
	if loc != "/products/1/" {
		t.Fatalf("unexpected redirect %q", loc)
	}

	// flash показывается один раз
	w = c.do(http.MethodGet, loc, nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "Product created successfully.") {
		t.Fatalf("expected flash on detail page")
	}
	w = c.do(http.MethodGet, loc, nil)
	if strings.Contains(w.Body.String(), "Product created successfully.") {
		t.Fatalf("flash must not repeat")
	}

	// редактирование
	w = c.do(http.MethodPost, "/products/1/edit/", url.Values{
		"name": {"Widget v2"}, "price": {"19.99"}, "stock": {"5"},
	})
	if w.Code != http.StatusSeeOther {
		t.Fatalf("edit code %v", w.Code)
	}
	w = c.do(http.MethodGet, "/products/1/", nil)
	if !strings.Contains(w.Body.String(), "Widget v2") || !strings.Contains(w.Body.String(), "19.99") {
		t.Fatalf("edit not applied")
	}

	// удаление через страницу подтверждения
	w = c.do(http.MethodGet, "/products/1/delete/", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("confirm page code %v", w.Code)
	}
	w = c.do(http.MethodPost, "/products/1/delete/", nil)
	if w.Code != http.StatusSeeOther || w.Header().Get("Location") != "/products/" {
		t.Fatalf("delete redirect %v %q", w.Code, w.Header().Get("Location"))
	}
	w = c.do(http.MethodGet, "/products/1/", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("deleted product expected 404, got %v", w.Code)
	}
}

func TestOrderFlowWithItems(t *testing.T) {
	s := setupServer(t)
	c := newClient(t, s)
	c.register("alice")

	w := c.do(http.MethodPost, "/products/new/", url.Values{
		"name": {"Widget"}, "price": {"9.99"}, "stock": {"10"},
	})
	if w.Code != http.StatusSeeOther {
		t.Fatalf("product create %v", w.Code)
	}

	w = c.do(http.MethodPost, "/orders/new/", url.Values{"status": {"pending"}})
	if w.Code != http.StatusSeeOther || w.Header().Get("Location") != "/orders/1/" {
		t.Fatalf("order create %v %q", w.Code, w.Header().Get("Location"))
	}

	w = c.do(http.MethodPost, "/orders/1/add-item/", url.Values{
		"product": {"1"}, "quantity": {"3"},
	})
	if w.Code != http.StatusSeeOther {
		t.Fatalf("add item %v body %s", w.Code, w.Body.String())
	}

	w = c.do(http.MethodGet, "/orders/1/", nil)
	body := w.Body.String()
	if !strings.Contains(body, "29.97") {
		t.Fatalf("expected total 29.97 in page")
	}
	if !strings.Contains(body, "Widget") {
		t.Fatalf("expected product name in page")
	}

	// неизвестный товар — ошибка поля, позиция не добавлена
	w = c.do(http.MethodPost, "/orders/1/add-item/", url.Values{
		"product": {"999"}, "quantity": {"1"},
	})
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "Select a valid choice.") {
		t.Fatalf("expected choice error, code %v", w.Code)
	}

	// редактирование позиции: количество меняется, снимок цены нет
	w = c.do(http.MethodPost, "/order-items/1/edit/", url.Values{
		"product": {"1"}, "quantity": {"2"},
	})
	if w.Code != http.StatusSeeOther {
		t.Fatalf("item edit %v", w.Code)
	}
	w = c.do(http.MethodGet, "/orders/1/", nil)
	if !strings.Contains(w.Body.String(), "19.98") {
		t.Fatalf("expected total 19.98 after quantity change")
	}

	// удаление позиции
	w = c.do(http.MethodPost, "/order-items/1/delete/", nil)
	if w.Code != http.StatusSeeOther || w.Header().Get("Location") != "/orders/1/" {
		t.Fatalf("item delete %v", w.Code)
	}
	w = c.do(http.MethodGet, "/orders/1/", nil)
	if !strings.Contains(w.Body.String(), "0.00") {
		t.Fatalf("expected empty order total 0.00")
	}
}

func TestOrderOwnershipOverHTTP(t *testing.T) {
	s := setupServer(t)

	owner := newClient(t, s)
	owner.register("victor")
	w := owner.do(http.MethodPost, "/orders/new/", url.Values{"status": {"pending"}})
	if w.Code != http.StatusSeeOther {
		t.Fatalf("order create %v", w.Code)
	}

	intruder := newClient(t, s)
	intruder.register("uma")
	for _, probe := range []struct{ method, path string }{
		{http.MethodGet, "/orders/1/"},
		{http.MethodGet, "/orders/1/edit/"},
		{http.MethodPost, "/orders/1/delete/"},
		{http.MethodGet, "/orders/1/add-item/"},
	} {
		w := intruder.do(probe.method, probe.path, url.Values{"status": {"pending"}})
		if w.Code != http.StatusNotFound {
			t.Fatalf("%s %s: foreign order expected 404, got %v", probe.method, probe.path, w.Code)
		}
	}

	// заказ владельца цел
	w = owner.do(http.MethodGet, "/orders/1/", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("owner lost access: %v", w.Code)
	}
}

func TestLoginLogout(t *testing.T) {
	s := setupServer(t)
	c := newClient(t, s)
	c.register("alice")

	w := c.do(http.MethodPost, "/logout/", nil)
	if w.Code != http.StatusSeeOther {
		t.Fatalf("logout %v", w.Code)
	}
	if _, ok := c.cookies[auth.SessionCookie]; ok {
		t.Fatalf("session cookie must be dropped")
	}

	// неверный пароль
	w = c.do(http.MethodPost, "/login/", url.Values{
		"username": {"alice"}, "password": {"wrong"},
	})
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "correct username and password") {
		t.Fatalf("expected login error page, got %v", w.Code)
	}

	// верный пароль с next
	w = c.do(http.MethodPost, "/login/", url.Values{
		"username": {"alice"}, "password": {"s3cret-pass"}, "next": {"/orders/"},
	})
	if w.Code != http.StatusSeeOther || w.Header().Get("Location") != "/orders/" {
		t.Fatalf("login redirect %v %q", w.Code, w.Header().Get("Location"))
	}
	w = c.do(http.MethodGet, "/orders/", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("orders after login %v", w.Code)
	}
}

func TestNextParameterSanitized(t *testing.T) {
	s := setupServer(t)
	c := newClient(t, s)
	c.do(http.MethodPost, "/register/", url.Values{
		"username": {"alice"}, "password": {"s3cret-pass"},
	})
	c.do(http.MethodPost, "/logout/", nil)

	w := c.do(http.MethodPost, "/login/", url.Values{
		"username": {"alice"}, "password": {"s3cret-pass"}, "next": {"https://evil.example/"},
	})
	if w.Code != http.StatusSeeOther || w.Header().Get("Location") != "/products/" {
		t.Fatalf("open redirect not sanitized: %q", w.Header().Get("Location"))
	}
}
