package repository

import (
	"context"
	"errors"

	"lavka/internal/domain"
)

// ErrNotFound возвращается, когда сущность не найдена. Сюда же схлопывается
// случай "чужой заказ": наружу это неотличимо от отсутствия записи.
var ErrNotFound = errors.New("not found")

// ErrConflict возвращается при нарушении уникальности (имя пользователя)
var ErrConflict = errors.New("already exists")

// ProductRepository интерфейс репозитория товаров
type ProductRepository interface {
	Create(ctx context.Context, p *domain.Product) error
	GetByID(ctx context.Context, id int64) (*domain.Product, error)
	Update(ctx context.Context, p *domain.Product) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context) ([]domain.Product, error)
}

// OrderRepository интерфейс репозитория заказов. Все выборки, кроме Create,
// фильтруются по владельцу: чужих заказов из этого слоя не достать.
type OrderRepository interface {
	Create(ctx context.Context, o *domain.Order) error
	GetByIDForUser(ctx context.Context, id, userID int64) (*domain.Order, error)
	UpdateStatus(ctx context.Context, id, userID int64, status domain.OrderStatus) error
	Delete(ctx context.Context, id, userID int64) error
	ListByUser(ctx context.Context, userID int64) ([]domain.Order, error)
}

// OrderItemRepository интерфейс репозитория позиций заказа.
// DeleteByOrder и DeleteByProduct — явные каскады; движок БД каскадов
// не делает, удалением зависимых записей управляет сервисный слой.
type OrderItemRepository interface {
	Create(ctx context.Context, it *domain.OrderItem) error
	GetByID(ctx context.Context, id int64) (*domain.OrderItem, error)
	Update(ctx context.Context, it *domain.OrderItem) error
	Delete(ctx context.Context, id int64) error
	ListByOrder(ctx context.Context, orderID int64) ([]domain.OrderItem, error)
	DeleteByOrder(ctx context.Context, orderID int64) error
	DeleteByProduct(ctx context.Context, productID int64) error
}

// UserRepository интерфейс репозитория пользователей
type UserRepository interface {
	Create(ctx context.Context, u *domain.User) error
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
}

// SessionRepository хранит активные сессии
type SessionRepository interface {
	Create(ctx context.Context, s *domain.Session) error
	GetByToken(ctx context.Context, token string) (*domain.Session, error)
	Delete(ctx context.Context, token string) error
}

// TxManager абстракция транзакции. Для in-memory — глобальная блокировка
// записи, для postgres — настоящая транзакция pgx.
type TxManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
