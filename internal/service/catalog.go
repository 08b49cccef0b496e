package service

import (
	"context"
	"errors"

	"lavka/internal/domain"
	"lavka/internal/repository"
)

// ItemPurger явный каскад: удаление позиций заказов, ссылающихся на товар.
// Реализуется леджером, чтобы правило каскада жило в одном месте.
type ItemPurger interface {
	RemoveProductItems(ctx context.Context, productID int64) error
}

// CatalogService инкапсулирует бизнес-логику вокруг товаров
type CatalogService struct {
	products repository.ProductRepository
	purger   ItemPurger
	tx       repository.TxManager
}

func NewCatalogService(products repository.ProductRepository, purger ItemPurger, tx repository.TxManager) *CatalogService {
	return &CatalogService{products: products, purger: purger, tx: tx}
}

var ErrInvalidInput = errors.New("invalid input")

func (s *CatalogService) List(ctx context.Context) ([]domain.Product, error) {
	return s.products.List(ctx)
}

func (s *CatalogService) Get(ctx context.Context, id int64) (*domain.Product, error) {
	if id <= 0 {
		return nil, repository.ErrNotFound
	}
	return s.products.GetByID(ctx, id)
}

func (s *CatalogService) Create(ctx context.Context, p domain.Product) (*domain.Product, error) {
	if p.Name == "" || p.Price.IsNegative() || p.Stock < 0 {
		return nil, ErrInvalidInput
	}
	cp := p
	if err := s.products.Create(ctx, &cp); err != nil {
		return nil, err
	}
	return &cp, nil
}

func (s *CatalogService) Update(ctx context.Context, p domain.Product) (*domain.Product, error) {
	if p.ID <= 0 || p.Name == "" || p.Price.IsNegative() || p.Stock < 0 {
		return nil, ErrInvalidInput
	}
	cp := p
	if err := s.products.Update(ctx, &cp); err != nil {
		return nil, err
	}
	return &cp, nil
}

// Delete удаляет товар и каскадом все позиции заказов, которые на него
// ссылаются. Позиции удаляются первыми: внешние ключи в схеме без
// ON DELETE CASCADE.
func (s *CatalogService) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return repository.ErrNotFound
	}
	return s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.products.GetByID(ctx, id); err != nil {
			return err
		}
		if err := s.purger.RemoveProductItems(ctx, id); err != nil {
			return err
		}
		return s.products.Delete(ctx, id)
	})
}
