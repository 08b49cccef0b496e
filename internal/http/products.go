package httpapi

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"lavka/internal/domain"
	"lavka/internal/forms"
)

// Product handlers

func (s *Server) productList(c *gin.Context) {
	products, err := s.catalog.List(c.Request.Context())
	if err != nil {
		s.serviceError(c, err)
		return
	}
	s.render(c, http.StatusOK, "product_list.html", gin.H{"Products": products})
}

func (s *Server) productDetail(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		s.notFound(c)
		return
	}
	p, err := s.catalog.Get(c.Request.Context(), id)
	if err != nil {
		s.serviceError(c, err)
		return
	}
	s.render(c, http.StatusOK, "product_detail.html", gin.H{"Product": p})
}

func (s *Server) productCreateForm(c *gin.Context) {
	s.render(c, http.StatusOK, "product_form.html", gin.H{
		"Form":   forms.ProductForm{},
		"Errors": forms.Errors{},
	})
}

func (s *Server) productCreate(c *gin.Context) {
	var f forms.ProductForm
	_ = c.ShouldBind(&f)
	if errs := forms.Validate(s.v, f); len(errs) > 0 {
		s.render(c, http.StatusOK, "product_form.html", gin.H{"Form": f, "Errors": errs})
		return
	}
	p, err := s.catalog.Create(c.Request.Context(), domain.Product{
		Name:        f.Name,
		Description: f.Description,
		Price:       f.PriceValue(),
		Stock:       f.StockValue(),
	})
	if err != nil {
		s.serviceError(c, err)
		return
	}
	setFlash(c, "Product created successfully.")
	c.Redirect(http.StatusSeeOther, fmt.Sprintf("/products/%d/", p.ID))
}

func (s *Server) productUpdateForm(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		s.notFound(c)
		return
	}
	p, err := s.catalog.Get(c.Request.Context(), id)
	if err != nil {
		s.serviceError(c, err)
		return
	}
	// префилл формы текущими значениями
	f := forms.ProductForm{
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price.StringFixed(2),
		Stock:       fmt.Sprintf("%d", p.Stock),
	}
	s.render(c, http.StatusOK, "product_form.html", gin.H{"Form": f, "Errors": forms.Errors{}, "Product": p})
}

func (s *Server) productUpdate(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		s.notFound(c)
		return
	}
	var f forms.ProductForm
	_ = c.ShouldBind(&f)
	if errs := forms.Validate(s.v, f); len(errs) > 0 {
		s.render(c, http.StatusOK, "product_form.html", gin.H{"Form": f, "Errors": errs})
		return
	}
	p, err := s.catalog.Update(c.Request.Context(), domain.Product{
		ID:          id,
		Name:        f.Name,
		Description: f.Description,
		Price:       f.PriceValue(),
		Stock:       f.StockValue(),
	})
	if err != nil {
		s.serviceError(c, err)
		return
	}
	setFlash(c, "Product updated successfully.")
	c.Redirect(http.StatusSeeOther, fmt.Sprintf("/products/%d/", p.ID))
}

func (s *Server) productDeleteConfirm(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		s.notFound(c)
		return
	}
	p, err := s.catalog.Get(c.Request.Context(), id)
	if err != nil {
		s.serviceError(c, err)
		return
	}
	s.render(c, http.StatusOK, "product_confirm_delete.html", gin.H{"Product": p})
}

func (s *Server) productDelete(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		s.notFound(c)
		return
	}
	if err := s.catalog.Delete(c.Request.Context(), id); err != nil {
		s.serviceError(c, err)
		return
	}
	setFlash(c, "Product deleted successfully.")
	c.Redirect(http.StatusSeeOther, "/products/")
}
