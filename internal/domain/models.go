package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product представляет товар каталога. Каталог общий: товары видны всем
// и редактируются любым авторизованным пользователем.
type Product struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Stock       int64           `json:"stock"`
	CreatedAt   time.Time       `json:"created_at"`
}

// OrderStatus тип статуса заказа
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// Statuses перечень допустимых статусов в порядке отображения в формах
var Statuses = []OrderStatus{OrderStatusPending, OrderStatusCompleted, OrderStatusCancelled}

// Valid проверяет, что значение входит в перечисление статусов.
// Граф переходов не ограничен: владелец может выставить любой статус.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusCompleted, OrderStatusCancelled:
		return true
	}
	return false
}

// Order сущность заказа. Владелец фиксируется при создании и не меняется.
type Order struct {
	ID        int64       `json:"id"`
	UserID    int64       `json:"user_id"`
	Status    OrderStatus `json:"status"`
	CreatedAt time.Time   `json:"created_at"`
}

// OrderItem позиция в заказе. Price — снимок цены товара на момент
// добавления; последующие изменения цены товара его не трогают.
type OrderItem struct {
	ID        int64           `json:"id"`
	OrderID   int64           `json:"order_id"`
	ProductID int64           `json:"product_id"`
	Quantity  int64           `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

// Subtotal стоимость позиции: снимок цены * количество
func (it OrderItem) Subtotal() decimal.Decimal {
	return it.Price.Mul(decimal.NewFromInt(it.Quantity))
}

// User минимальная учётная запись для сессионного слоя
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Session связка токен -> пользователь с ограниченным сроком жизни
type Session struct {
	Token     string    `json:"token"`
	UserID    int64     `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
}
