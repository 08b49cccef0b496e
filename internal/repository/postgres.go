package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"lavka/internal/domain"
)

// PostgresStore хранилище поверх пула pgx. Схема без ON DELETE CASCADE:
// каскадным удалением зависимых записей явно управляет сервисный слой.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Close() { s.pool.Close() }

// EnsureSchema создаёт таблицы, если их ещё нет
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id            BIGSERIAL PRIMARY KEY,
			username      TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS products (
			id          BIGSERIAL PRIMARY KEY,
			name        TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			price       NUMERIC(10,2) NOT NULL,
			stock       BIGINT NOT NULL DEFAULT 0,
			created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS orders (
			id         BIGSERIAL PRIMARY KEY,
			user_id    BIGINT NOT NULL REFERENCES users(id),
			status     TEXT NOT NULL DEFAULT 'pending',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS order_items (
			id         BIGSERIAL PRIMARY KEY,
			order_id   BIGINT NOT NULL REFERENCES orders(id),
			product_id BIGINT NOT NULL REFERENCES products(id),
			quantity   BIGINT NOT NULL DEFAULT 1,
			price      NUMERIC(10,2) NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS sessions (
			token      TEXT PRIMARY KEY,
			user_id    BIGINT NOT NULL REFERENCES users(id),
			expires_at TIMESTAMPTZ NOT NULL
		)`,
	}
	for _, stmt := range ddl {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// querier — пул либо транзакция из контекста
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type pgTxKey struct{}

func (s *PostgresStore) q(ctx context.Context) querier {
	if tx, ok := ctx.Value(pgTxKey{}).(pgx.Tx); ok {
		return tx
	}
	return s.pool
}

func mapPgErr(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrConflict
	}
	return err
}

// ProductRepository implementation on wrapper type
type PostgresProducts struct{ store *PostgresStore }

func NewPostgresProducts(store *PostgresStore) *PostgresProducts {
	return &PostgresProducts{store: store}
}

var _ ProductRepository = (*PostgresProducts)(nil)

func (pp *PostgresProducts) Create(ctx context.Context, p *domain.Product) error {
	row := pp.store.q(ctx).QueryRow(ctx,
		`INSERT INTO products (name, description, price, stock)
		 VALUES ($1, $2, $3::numeric, $4)
		 RETURNING id, created_at`,
		p.Name, p.Description, p.Price.StringFixed(2), p.Stock)
	if err := row.Scan(&p.ID, &p.CreatedAt); err != nil {
		return mapPgErr(err)
	}
	return nil
}

func scanProduct(row pgx.Row, p *domain.Product) error {
	var price string
	if err := row.Scan(&p.ID, &p.Name, &p.Description, &price, &p.Stock, &p.CreatedAt); err != nil {
		return err
	}
	d, err := decimal.NewFromString(price)
	if err != nil {
		return fmt.Errorf("parse price %q: %w", price, err)
	}
	p.Price = d
	return nil
}

func (pp *PostgresProducts) GetByID(ctx context.Context, id int64) (*domain.Product, error) {
	row := pp.store.q(ctx).QueryRow(ctx,
		`SELECT id, name, description, price::text, stock, created_at
		 FROM products WHERE id = $1`, id)
	var p domain.Product
	if err := scanProduct(row, &p); err != nil {
		return nil, mapPgErr(err)
	}
	return &p, nil
}

func (pp *PostgresProducts) Update(ctx context.Context, p *domain.Product) error {
	tag, err := pp.store.q(ctx).Exec(ctx,
		`UPDATE products SET name = $2, description = $3, price = $4::numeric, stock = $5
		 WHERE id = $1`,
		p.ID, p.Name, p.Description, p.Price.StringFixed(2), p.Stock)
	if err != nil {
		return mapPgErr(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (pp *PostgresProducts) Delete(ctx context.Context, id int64) error {
	tag, err := pp.store.q(ctx).Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return mapPgErr(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (pp *PostgresProducts) List(ctx context.Context) ([]domain.Product, error) {
	rows, err := pp.store.q(ctx).Query(ctx,
		`SELECT id, name, description, price::text, stock, created_at
		 FROM products ORDER BY id`)
	if err != nil {
		return nil, mapPgErr(err)
	}
	defer rows.Close()
	out := make([]domain.Product, 0)
	for rows.Next() {
		var p domain.Product
		if err := scanProduct(rows, &p); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// OrderRepository implementation on wrapper type
type PostgresOrders struct{ store *PostgresStore }

func NewPostgresOrders(store *PostgresStore) *PostgresOrders { return &PostgresOrders{store: store} }

var _ OrderRepository = (*PostgresOrders)(nil)

func (po *PostgresOrders) Create(ctx context.Context, o *domain.Order) error {
	row := po.store.q(ctx).QueryRow(ctx,
		`INSERT INTO orders (user_id, status) VALUES ($1, $2)
		 RETURNING id, created_at`,
		o.UserID, string(o.Status))
	if err := row.Scan(&o.ID, &o.CreatedAt); err != nil {
		return mapPgErr(err)
	}
	return nil
}

func (po *PostgresOrders) GetByIDForUser(ctx context.Context, id, userID int64) (*domain.Order, error) {
	// фильтр по владельцу прямо в запросе: чужой заказ == нет строки
	row := po.store.q(ctx).QueryRow(ctx,
		`SELECT id, user_id, status, created_at
		 FROM orders WHERE id = $1 AND user_id = $2`, id, userID)
	var o domain.Order
	if err := row.Scan(&o.ID, &o.UserID, &o.Status, &o.CreatedAt); err != nil {
		return nil, mapPgErr(err)
	}
	return &o, nil
}

func (po *PostgresOrders) UpdateStatus(ctx context.Context, id, userID int64, status domain.OrderStatus) error {
	tag, err := po.store.q(ctx).Exec(ctx,
		`UPDATE orders SET status = $3 WHERE id = $1 AND user_id = $2`,
		id, userID, string(status))
	if err != nil {
		return mapPgErr(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (po *PostgresOrders) Delete(ctx context.Context, id, userID int64) error {
	tag, err := po.store.q(ctx).Exec(ctx,
		`DELETE FROM orders WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return mapPgErr(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (po *PostgresOrders) ListByUser(ctx context.Context, userID int64) ([]domain.Order, error) {
	rows, err := po.store.q(ctx).Query(ctx,
		`SELECT id, user_id, status, created_at
		 FROM orders WHERE user_id = $1 ORDER BY id`, userID)
	if err != nil {
		return nil, mapPgErr(err)
	}
	defer rows.Close()
	out := make([]domain.Order, 0)
	for rows.Next() {
		var o domain.Order
		if err := rows.Scan(&o.ID, &o.UserID, &o.Status, &o.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// OrderItemRepository implementation on wrapper type
type PostgresItems struct{ store *PostgresStore }

func NewPostgresItems(store *PostgresStore) *PostgresItems { return &PostgresItems{store: store} }

var _ OrderItemRepository = (*PostgresItems)(nil)

func (pi *PostgresItems) Create(ctx context.Context, it *domain.OrderItem) error {
	row := pi.store.q(ctx).QueryRow(ctx,
		`INSERT INTO order_items (order_id, product_id, quantity, price)
		 VALUES ($1, $2, $3, $4::numeric)
		 RETURNING id`,
		it.OrderID, it.ProductID, it.Quantity, it.Price.StringFixed(2))
	if err := row.Scan(&it.ID); err != nil {
		return mapPgErr(err)
	}
	return nil
}

func scanItem(row pgx.Row, it *domain.OrderItem) error {
	var price string
	if err := row.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Quantity, &price); err != nil {
		return err
	}
	d, err := decimal.NewFromString(price)
	if err != nil {
		return fmt.Errorf("parse price %q: %w", price, err)
	}
	it.Price = d
	return nil
}

func (pi *PostgresItems) GetByID(ctx context.Context, id int64) (*domain.OrderItem, error) {
	row := pi.store.q(ctx).QueryRow(ctx,
		`SELECT id, order_id, product_id, quantity, price::text
		 FROM order_items WHERE id = $1`, id)
	var it domain.OrderItem
	if err := scanItem(row, &it); err != nil {
		return nil, mapPgErr(err)
	}
	return &it, nil
}

func (pi *PostgresItems) Update(ctx context.Context, it *domain.OrderItem) error {
	// price и order_id не трогаем: снимок цены и привязка к заказу неизменяемы
	tag, err := pi.store.q(ctx).Exec(ctx,
		`UPDATE order_items SET product_id = $2, quantity = $3 WHERE id = $1`,
		it.ID, it.ProductID, it.Quantity)
	if err != nil {
		return mapPgErr(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (pi *PostgresItems) Delete(ctx context.Context, id int64) error {
	tag, err := pi.store.q(ctx).Exec(ctx, `DELETE FROM order_items WHERE id = $1`, id)
	if err != nil {
		return mapPgErr(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (pi *PostgresItems) ListByOrder(ctx context.Context, orderID int64) ([]domain.OrderItem, error) {
	rows, err := pi.store.q(ctx).Query(ctx,
		`SELECT id, order_id, product_id, quantity, price::text
		 FROM order_items WHERE order_id = $1 ORDER BY id`, orderID)
	if err != nil {
		return nil, mapPgErr(err)
	}
	defer rows.Close()
	out := make([]domain.OrderItem, 0)
	for rows.Next() {
		var it domain.OrderItem
		if err := scanItem(rows, &it); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (pi *PostgresItems) DeleteByOrder(ctx context.Context, orderID int64) error {
	_, err := pi.store.q(ctx).Exec(ctx,
		`DELETE FROM order_items WHERE order_id = $1`, orderID)
	return mapPgErrNil(err)
}

func (pi *PostgresItems) DeleteByProduct(ctx context.Context, productID int64) error {
	_, err := pi.store.q(ctx).Exec(ctx,
		`DELETE FROM order_items WHERE product_id = $1`, productID)
	return mapPgErrNil(err)
}

func mapPgErrNil(err error) error {
	if err == nil {
		return nil
	}
	return mapPgErr(err)
}

// UserRepository implementation on wrapper type
type PostgresUsers struct{ store *PostgresStore }

func NewPostgresUsers(store *PostgresStore) *PostgresUsers { return &PostgresUsers{store: store} }

var _ UserRepository = (*PostgresUsers)(nil)

func (pu *PostgresUsers) Create(ctx context.Context, u *domain.User) error {
	row := pu.store.q(ctx).QueryRow(ctx,
		`INSERT INTO users (username, password_hash) VALUES ($1, $2)
		 RETURNING id, created_at`,
		u.Username, u.PasswordHash)
	if err := row.Scan(&u.ID, &u.CreatedAt); err != nil {
		return mapPgErr(err)
	}
	return nil
}

func (pu *PostgresUsers) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	row := pu.store.q(ctx).QueryRow(ctx,
		`SELECT id, username, password_hash, created_at FROM users WHERE id = $1`, id)
	var u domain.User
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.CreatedAt); err != nil {
		return nil, mapPgErr(err)
	}
	return &u, nil
}

func (pu *PostgresUsers) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	row := pu.store.q(ctx).QueryRow(ctx,
		`SELECT id, username, password_hash, created_at FROM users WHERE username = $1`, username)
	var u domain.User
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.CreatedAt); err != nil {
		return nil, mapPgErr(err)
	}
	return &u, nil
}

// SessionRepository implementation on wrapper type
type PostgresSessions struct{ store *PostgresStore }

func NewPostgresSessions(store *PostgresStore) *PostgresSessions {
	return &PostgresSessions{store: store}
}

var _ SessionRepository = (*PostgresSessions)(nil)

func (ps *PostgresSessions) Create(ctx context.Context, s *domain.Session) error {
	_, err := ps.store.q(ctx).Exec(ctx,
		`INSERT INTO sessions (token, user_id, expires_at) VALUES ($1, $2, $3)`,
		s.Token, s.UserID, s.ExpiresAt)
	return mapPgErrNil(err)
}

func (ps *PostgresSessions) GetByToken(ctx context.Context, token string) (*domain.Session, error) {
	row := ps.store.q(ctx).QueryRow(ctx,
		`SELECT token, user_id, expires_at FROM sessions
		 WHERE token = $1 AND expires_at > now()`, token)
	var s domain.Session
	if err := row.Scan(&s.Token, &s.UserID, &s.ExpiresAt); err != nil {
		return nil, mapPgErr(err)
	}
	return &s, nil
}

func (ps *PostgresSessions) Delete(ctx context.Context, token string) error {
	_, err := ps.store.q(ctx).Exec(ctx, `DELETE FROM sessions WHERE token = $1`, token)
	return mapPgErrNil(err)
}

// Tx manager поверх транзакции pgx; транзакция передаётся через контекст
type PostgresTx struct{ store *PostgresStore }

func NewPostgresTx(store *PostgresStore) *PostgresTx { return &PostgresTx{store: store} }

var _ TxManager = (*PostgresTx)(nil)

func (t *PostgresTx) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	tx, err := t.store.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	ctx = context.WithValue(ctx, pgTxKey{}, tx)
	if err := fn(ctx); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			return errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
