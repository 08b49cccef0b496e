package httpapi

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"lavka/internal/forms"
	"lavka/internal/service"
)

// Order item handlers. Владение проверяется транзитивно через
// родительский заказ.

func (s *Server) itemAddForm(c *gin.Context) {
	orderID, err := parseID(c.Param("id"))
	if err != nil {
		s.notFound(c)
		return
	}
	view, err := s.ledger.GetOrder(c.Request.Context(), orderID, mustUser(c))
	if err != nil {
		s.serviceError(c, err)
		return
	}
	products, err := s.catalog.List(c.Request.Context())
	if err != nil {
		s.serviceError(c, err)
		return
	}
	s.render(c, http.StatusOK, "add_to_order.html", gin.H{
		"Order":    view,
		"Products": products,
		"Form":     forms.OrderItemForm{Quantity: "1"},
		"Errors":   forms.Errors{},
	})
}

func (s *Server) itemAdd(c *gin.Context) {
	orderID, err := parseID(c.Param("id"))
	if err != nil {
		s.notFound(c)
		return
	}
	ctx := c.Request.Context()
	userID := mustUser(c)

	var f forms.OrderItemForm
	_ = c.ShouldBind(&f)
	errs := forms.Validate(s.v, f)
	if len(errs) == 0 {
		_, err := s.ledger.AddItem(ctx, orderID, userID, f.ProductIDValue(), f.QuantityValue())
		if errors.Is(err, service.ErrUnknownProduct) {
			errs["product"] = "Select a valid choice."
		} else if err != nil {
			s.serviceError(c, err)
			return
		}
	}
	if len(errs) > 0 {
		view, verr := s.ledger.GetOrder(ctx, orderID, userID)
		if verr != nil {
			s.serviceError(c, verr)
			return
		}
		products, perr := s.catalog.List(ctx)
		if perr != nil {
			s.serviceError(c, perr)
			return
		}
		s.render(c, http.StatusOK, "add_to_order.html", gin.H{
			"Order": view, "Products": products, "Form": f, "Errors": errs,
		})
		return
	}

	if p, err := s.catalog.Get(ctx, f.ProductIDValue()); err == nil {
		setFlash(c, fmt.Sprintf("%s added to your order.", p.Name))
	} else {
		setFlash(c, "Item added to your order.")
	}
	c.Redirect(http.StatusSeeOther, fmt.Sprintf("/orders/%d/", orderID))
}

func (s *Server) itemUpdateForm(c *gin.Context) {
	itemID, err := parseID(c.Param("id"))
	if err != nil {
		s.notFound(c)
		return
	}
	it, err := s.ledger.GetItem(c.Request.Context(), itemID, mustUser(c))
	if err != nil {
		s.serviceError(c, err)
		return
	}
	products, err := s.catalog.List(c.Request.Context())
	if err != nil {
		s.serviceError(c, err)
		return
	}
	f := forms.OrderItemForm{
		ProductID: fmt.Sprintf("%d", it.ProductID),
		Quantity:  fmt.Sprintf("%d", it.Quantity),
	}
	s.render(c, http.StatusOK, "update_order_item.html", gin.H{
		"Item": it, "Products": products, "Form": f, "Errors": forms.Errors{},
	})
}

func (s *Server) itemUpdate(c *gin.Context) {
	itemID, err := parseID(c.Param("id"))
	if err != nil {
		s.notFound(c)
		return
	}
	ctx := c.Request.Context()
	userID := mustUser(c)

	var f forms.OrderItemForm
	_ = c.ShouldBind(&f)
	errs := forms.Validate(s.v, f)
	var orderID int64
	if len(errs) == 0 {
		it, err := s.ledger.UpdateItem(ctx, itemID, userID, f.ProductIDValue(), f.QuantityValue())
		if errors.Is(err, service.ErrUnknownProduct) {
			errs["product"] = "Select a valid choice."
		} else if err != nil {
			s.serviceError(c, err)
			return
		} else {
			orderID = it.OrderID
		}
	}
	if len(errs) > 0 {
		it, ierr := s.ledger.GetItem(ctx, itemID, userID)
		if ierr != nil {
			s.serviceError(c, ierr)
			return
		}
		products, perr := s.catalog.List(ctx)
		if perr != nil {
			s.serviceError(c, perr)
			return
		}
		s.render(c, http.StatusOK, "update_order_item.html", gin.H{
			"Item": it, "Products": products, "Form": f, "Errors": errs,
		})
		return
	}
	setFlash(c, "Order item updated successfully.")
	c.Redirect(http.StatusSeeOther, fmt.Sprintf("/orders/%d/", orderID))
}

func (s *Server) itemDeleteConfirm(c *gin.Context) {
	itemID, err := parseID(c.Param("id"))
	if err != nil {
		s.notFound(c)
		return
	}
	it, err := s.ledger.GetItem(c.Request.Context(), itemID, mustUser(c))
	if err != nil {
		s.serviceError(c, err)
		return
	}
	s.render(c, http.StatusOK, "delete_order_item.html", gin.H{"Item": it})
}

func (s *Server) itemDelete(c *gin.Context) {
	itemID, err := parseID(c.Param("id"))
	if err != nil {
		s.notFound(c)
		return
	}
	orderID, err := s.ledger.DeleteItem(c.Request.Context(), itemID, mustUser(c))
	if err != nil {
		s.serviceError(c, err)
		return
	}
	setFlash(c, "Item removed from order.")
	c.Redirect(http.StatusSeeOther, fmt.Sprintf("/orders/%d/", orderID))
}
