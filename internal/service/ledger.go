package service

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"lavka/internal/domain"
	"lavka/internal/repository"
)

// LedgerService реализует логику заказов и их позиций. Все операции, кроме
// каскада для каталога, принимают userID явно и работают только с заказами
// этого пользователя; чужой заказ из этого слоя выглядит как отсутствующий.
type LedgerService struct {
	products repository.ProductRepository
	orders   repository.OrderRepository
	items    repository.OrderItemRepository
	tx       repository.TxManager
}

func NewLedgerService(products repository.ProductRepository, orders repository.OrderRepository, items repository.OrderItemRepository, tx repository.TxManager) *LedgerService {
	return &LedgerService{products: products, orders: orders, items: items, tx: tx}
}

var (
	ErrUnknownProduct = errors.New("unknown product")
	ErrInvalidStatus  = errors.New("invalid status")
)

// OrderItemView позиция заказа вместе с именем товара для отображения
type OrderItemView struct {
	domain.OrderItem
	ProductName string
}

// OrderView заказ с материализованными позициями. TotalPrice всегда
// считается по текущим позициям и нигде не хранится.
type OrderView struct {
	Order      domain.Order
	Items      []OrderItemView
	TotalPrice decimal.Decimal
}

func (s *LedgerService) view(ctx context.Context, o domain.Order) (*OrderView, error) {
	items, err := s.items.ListByOrder(ctx, o.ID)
	if err != nil {
		return nil, err
	}
	v := &OrderView{Order: o, Items: make([]OrderItemView, 0, len(items)), TotalPrice: decimal.Zero}
	for _, it := range items {
		p, err := s.products.GetByID(ctx, it.ProductID)
		if err != nil {
			return nil, err
		}
		v.Items = append(v.Items, OrderItemView{OrderItem: it, ProductName: p.Name})
		v.TotalPrice = v.TotalPrice.Add(it.Subtotal())
	}
	return v, nil
}

// ListOrders возвращает заказы пользователя с подсчитанными суммами
func (s *LedgerService) ListOrders(ctx context.Context, userID int64) ([]OrderView, error) {
	orders, err := s.orders.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]OrderView, 0, len(orders))
	for _, o := range orders {
		v, err := s.view(ctx, o)
		if err != nil {
			return nil, err
		}
		out = append(out, *v)
	}
	return out, nil
}

// GetOrder возвращает заказ, только если он принадлежит пользователю
func (s *LedgerService) GetOrder(ctx context.Context, id, userID int64) (*OrderView, error) {
	if id <= 0 {
		return nil, repository.ErrNotFound
	}
	o, err := s.orders.GetByIDForUser(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, *o)
}

// CreateOrder создаёт заказ. Владелец берётся из аутентифицированной
// личности, никогда из пользовательского ввода. Пустой статус -> pending.
func (s *LedgerService) CreateOrder(ctx context.Context, userID int64, status domain.OrderStatus) (*domain.Order, error) {
	if status == "" {
		status = domain.OrderStatusPending
	}
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}
	o := domain.Order{UserID: userID, Status: status}
	if err := s.orders.Create(ctx, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

// UpdateOrderStatus меняет только статус. Переходы не ограничены:
// cancelled -> pending тоже допустим.
func (s *LedgerService) UpdateOrderStatus(ctx context.Context, id, userID int64, status domain.OrderStatus) (*domain.Order, error) {
	if id <= 0 {
		return nil, repository.ErrNotFound
	}
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}
	if err := s.orders.UpdateStatus(ctx, id, userID, status); err != nil {
		return nil, err
	}
	return s.orders.GetByIDForUser(ctx, id, userID)
}

// DeleteOrder удаляет заказ и каскадом его позиции (позиции первыми)
func (s *LedgerService) DeleteOrder(ctx context.Context, id, userID int64) error {
	if id <= 0 {
		return repository.ErrNotFound
	}
	return s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.orders.GetByIDForUser(ctx, id, userID); err != nil {
			return err
		}
		if err := s.items.DeleteByOrder(ctx, id); err != nil {
			return err
		}
		return s.orders.Delete(ctx, id, userID)
	})
}

// AddItem добавляет позицию в заказ пользователя. Цена товара снимается
// в момент добавления и дальше не пересчитывается.
func (s *LedgerService) AddItem(ctx context.Context, orderID, userID, productID, quantity int64) (*domain.OrderItem, error) {
	if quantity <= 0 {
		return nil, ErrInvalidInput
	}
	var created *domain.OrderItem
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.orders.GetByIDForUser(ctx, orderID, userID); err != nil {
			return err
		}
		p, err := s.products.GetByID(ctx, productID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrUnknownProduct
			}
			return err
		}
		it := domain.OrderItem{
			OrderID:   orderID,
			ProductID: productID,
			Quantity:  quantity,
			Price:     p.Price, // снимок
		}
		if err := s.items.Create(ctx, &it); err != nil {
			return err
		}
		created = &it
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// UpdateItem меняет товар и/или количество позиции. Владение проверяется
// транзитивно через родительский заказ. Снимок цены сознательно НЕ
// пересчитывается даже при смене товара — поведение исходного приложения.
func (s *LedgerService) UpdateItem(ctx context.Context, itemID, userID, productID, quantity int64) (*domain.OrderItem, error) {
	if itemID <= 0 {
		return nil, repository.ErrNotFound
	}
	if quantity <= 0 {
		return nil, ErrInvalidInput
	}
	var updated *domain.OrderItem
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		it, err := s.items.GetByID(ctx, itemID)
		if err != nil {
			return err
		}
		if _, err := s.orders.GetByIDForUser(ctx, it.OrderID, userID); err != nil {
			return err
		}
		if _, err := s.products.GetByID(ctx, productID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrUnknownProduct
			}
			return err
		}
		it.ProductID = productID
		it.Quantity = quantity
		if err := s.items.Update(ctx, it); err != nil {
			return err
		}
		updated = it
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteItem удаляет одну позицию, заказ остаётся
func (s *LedgerService) DeleteItem(ctx context.Context, itemID, userID int64) (int64, error) {
	if itemID <= 0 {
		return 0, repository.ErrNotFound
	}
	var orderID int64
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		it, err := s.items.GetByID(ctx, itemID)
		if err != nil {
			return err
		}
		if _, err := s.orders.GetByIDForUser(ctx, it.OrderID, userID); err != nil {
			return err
		}
		orderID = it.OrderID
		return s.items.Delete(ctx, itemID)
	})
	if err != nil {
		return 0, err
	}
	return orderID, nil
}

// GetItem возвращает позицию с транзитивной проверкой владельца
// (нужен для префилла формы редактирования)
func (s *LedgerService) GetItem(ctx context.Context, itemID, userID int64) (*domain.OrderItem, error) {
	if itemID <= 0 {
		return nil, repository.ErrNotFound
	}
	it, err := s.items.GetByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if _, err := s.orders.GetByIDForUser(ctx, it.OrderID, userID); err != nil {
		return nil, err
	}
	return it, nil
}

// RemoveProductItems явный каскад для каталога: удаляет все позиции,
// ссылающиеся на товар. Вызывается внутри транзакции каталога.
func (s *LedgerService) RemoveProductItems(ctx context.Context, productID int64) error {
	return s.items.DeleteByProduct(ctx, productID)
}
