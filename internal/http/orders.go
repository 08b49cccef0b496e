package httpapi

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"lavka/internal/domain"
	"lavka/internal/forms"
)

// Order handlers. Личность передаётся в сервис явным параметром,
// чужие заказы сервис отдаёт как "не найдено".

func (s *Server) orderList(c *gin.Context) {
	orders, err := s.ledger.ListOrders(c.Request.Context(), mustUser(c))
	if err != nil {
		s.serviceError(c, err)
		return
	}
	s.render(c, http.StatusOK, "order_list.html", gin.H{"Orders": orders})
}

func (s *Server) orderDetail(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		s.notFound(c)
		return
	}
	view, err := s.ledger.GetOrder(c.Request.Context(), id, mustUser(c))
	if err != nil {
		s.serviceError(c, err)
		return
	}
	s.render(c, http.StatusOK, "order_detail.html", gin.H{"Order": view})
}

func (s *Server) orderCreateForm(c *gin.Context) {
	s.render(c, http.StatusOK, "order_form.html", gin.H{
		"Form":     forms.OrderForm{Status: string(domain.OrderStatusPending)},
		"Errors":   forms.Errors{},
		"Statuses": domain.Statuses,
	})
}

func (s *Server) orderCreate(c *gin.Context) {
	var f forms.OrderForm
	_ = c.ShouldBind(&f)
	if errs := forms.Validate(s.v, f); len(errs) > 0 {
		s.render(c, http.StatusOK, "order_form.html", gin.H{"Form": f, "Errors": errs, "Statuses": domain.Statuses})
		return
	}
	o, err := s.ledger.CreateOrder(c.Request.Context(), mustUser(c), f.StatusValue())
	if err != nil {
		s.serviceError(c, err)
		return
	}
	setFlash(c, "Order created successfully.")
	c.Redirect(http.StatusSeeOther, fmt.Sprintf("/orders/%d/", o.ID))
}

func (s *Server) orderUpdateForm(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		s.notFound(c)
		return
	}
	view, err := s.ledger.GetOrder(c.Request.Context(), id, mustUser(c))
	if err != nil {
		s.serviceError(c, err)
		return
	}
	f := forms.OrderForm{Status: string(view.Order.Status)}
	s.render(c, http.StatusOK, "order_form.html", gin.H{"Form": f, "Errors": forms.Errors{}, "Statuses": domain.Statuses, "Order": view})
}

func (s *Server) orderUpdate(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		s.notFound(c)
		return
	}
	var f forms.OrderForm
	_ = c.ShouldBind(&f)
	errs := forms.Validate(s.v, f)
	if f.Status == "" {
		// при редактировании статус обязателен; дефолт действует только при создании
		errs["status"] = "This field is required."
	}
	if len(errs) > 0 {
		s.render(c, http.StatusOK, "order_form.html", gin.H{"Form": f, "Errors": errs, "Statuses": domain.Statuses})
		return
	}
	o, err := s.ledger.UpdateOrderStatus(c.Request.Context(), id, mustUser(c), f.StatusValue())
	if err != nil {
		s.serviceError(c, err)
		return
	}
	setFlash(c, "Order updated successfully.")
	c.Redirect(http.StatusSeeOther, fmt.Sprintf("/orders/%d/", o.ID))
}

func (s *Server) orderDeleteConfirm(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		s.notFound(c)
		return
	}
	view, err := s.ledger.GetOrder(c.Request.Context(), id, mustUser(c))
	if err != nil {
		s.serviceError(c, err)
		return
	}
	s.render(c, http.StatusOK, "order_confirm_delete.html", gin.H{"Order": view})
}

func (s *Server) orderDelete(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		s.notFound(c)
		return
	}
	if err := s.ledger.DeleteOrder(c.Request.Context(), id, mustUser(c)); err != nil {
		s.serviceError(c, err)
		return
	}
	setFlash(c, "Order deleted successfully.")
	c.Redirect(http.StatusSeeOther, "/orders/")
}
