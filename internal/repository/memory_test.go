package repository

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"lavka/internal/domain"
)

func TestMemoryStore_ProductCRUD(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	p := domain.Product{Name: "Aspirin", Description: "painkiller", Price: decimal.RequireFromString("9.99"), Stock: 5}
	if err := store.Create(ctx, &p); err != nil {
		t.Fatalf("create: %v", err)
	}
	if p.ID == 0 {
		t.Fatalf("no id")
	}
	if p.CreatedAt.IsZero() {
		t.Fatalf("no created_at")
	}

	got, err := store.GetByID(ctx, p.ID)
	if err != nil || got.ID != p.ID {
		t.Fatalf("get: %v", err)
	}
	if !got.Price.Equal(p.Price) {
		t.Fatalf("price mismatch: %v", got.Price)
	}

	created := p.CreatedAt
	p.Price = decimal.RequireFromString("12.00")
	p.CreatedAt = time.Time{} // попытка затереть
	if err := store.Update(ctx, &p); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, _ = store.GetByID(ctx, p.ID)
	if !got.CreatedAt.Equal(created) {
		t.Fatalf("created_at must be immutable")
	}

	if err := store.Delete(ctx, p.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.GetByID(ctx, p.ID); err == nil {
		t.Fatalf("expected not found")
	}
}

func TestMemoryOrders_OwnerFilter(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	orders := NewMemoryOrders(store)

	o := domain.Order{UserID: 1, Status: domain.OrderStatusPending}
	if err := orders.Create(ctx, &o); err != nil {
		t.Fatal(err)
	}

	if _, err := orders.GetByIDForUser(ctx, o.ID, 1); err != nil {
		t.Fatalf("owner get: %v", err)
	}
	// чужой заказ неотличим от отсутствующего
	if _, err := orders.GetByIDForUser(ctx, o.ID, 2); err != ErrNotFound {
		t.Fatalf("expected not found for foreign user, got %v", err)
	}
	if err := orders.UpdateStatus(ctx, o.ID, 2, domain.OrderStatusCancelled); err != ErrNotFound {
		t.Fatalf("foreign update must be not found, got %v", err)
	}
	if err := orders.Delete(ctx, o.ID, 2); err != ErrNotFound {
		t.Fatalf("foreign delete must be not found, got %v", err)
	}

	list1, _ := orders.ListByUser(ctx, 1)
	list2, _ := orders.ListByUser(ctx, 2)
	if len(list1) != 1 || len(list2) != 0 {
		t.Fatalf("owner listing broken: %d %d", len(list1), len(list2))
	}
}

func TestMemoryItems_CascadeQueries(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	items := NewMemoryItems(store)

	price := decimal.RequireFromString("5.00")
	for _, it := range []domain.OrderItem{
		{OrderID: 1, ProductID: 10, Quantity: 1, Price: price},
		{OrderID: 1, ProductID: 11, Quantity: 2, Price: price},
		{OrderID: 2, ProductID: 10, Quantity: 3, Price: price},
	} {
		cp := it
		if err := items.Create(ctx, &cp); err != nil {
			t.Fatal(err)
		}
	}

	if err := items.DeleteByOrder(ctx, 1); err != nil {
		t.Fatal(err)
	}
	left, _ := items.ListByOrder(ctx, 1)
	if len(left) != 0 {
		t.Fatalf("order 1 items not purged")
	}
	left, _ = items.ListByOrder(ctx, 2)
	if len(left) != 1 {
		t.Fatalf("order 2 items must survive, got %d", len(left))
	}

	if err := items.DeleteByProduct(ctx, 10); err != nil {
		t.Fatal(err)
	}
	left, _ = items.ListByOrder(ctx, 2)
	if len(left) != 0 {
		t.Fatalf("product 10 items not purged")
	}
}

func TestMemoryItems_UpdateKeepsPriceAndOrder(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	items := NewMemoryItems(store)

	it := domain.OrderItem{OrderID: 1, ProductID: 10, Quantity: 1, Price: decimal.RequireFromString("9.99")}
	if err := items.Create(ctx, &it); err != nil {
		t.Fatal(err)
	}

	upd := it
	upd.ProductID = 11
	upd.Quantity = 4
	upd.OrderID = 99
	upd.Price = decimal.RequireFromString("0.01")
	if err := items.Update(ctx, &upd); err != nil {
		t.Fatal(err)
	}

	got, _ := items.GetByID(ctx, it.ID)
	if got.ProductID != 11 || got.Quantity != 4 {
		t.Fatalf("mutable fields not updated: %+v", got)
	}
	if got.OrderID != 1 {
		t.Fatalf("order binding must be immutable")
	}
	if !got.Price.Equal(decimal.RequireFromString("9.99")) {
		t.Fatalf("price snapshot must be immutable, got %v", got.Price)
	}
}

func TestMemorySessions_Expiry(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	sessions := NewMemorySessions(store)

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	store.nowFunc = func() time.Time { return now }

	s := domain.Session{Token: "tok", UserID: 1, ExpiresAt: now.Add(time.Hour)}
	if err := sessions.Create(ctx, &s); err != nil {
		t.Fatal(err)
	}
	if _, err := sessions.GetByToken(ctx, "tok"); err != nil {
		t.Fatalf("live session: %v", err)
	}

	now = now.Add(2 * time.Hour)
	if _, err := sessions.GetByToken(ctx, "tok"); err != ErrNotFound {
		t.Fatalf("expired session must look absent, got %v", err)
	}

	if err := sessions.Delete(ctx, "tok"); err != nil {
		t.Fatalf("delete: %v", err)
	}
}

func TestMemoryUsers_UniqueUsername(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	users := NewMemoryUsers(store)

	u := domain.User{Username: "alice", PasswordHash: "x"}
	if err := users.Create(ctx, &u); err != nil {
		t.Fatal(err)
	}
	dup := domain.User{Username: "alice", PasswordHash: "y"}
	if err := users.Create(ctx, &dup); err != ErrConflict {
		t.Fatalf("expected conflict, got %v", err)
	}

	got, err := users.GetByUsername(ctx, "alice")
	if err != nil || got.ID != u.ID {
		t.Fatalf("get by username: %v", err)
	}
}

func TestMemoryTx_SkipsInnerLocks(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	tx := NewMemoryTx(store)
	items := NewMemoryItems(store)

	err := tx.WithTransaction(ctx, func(ctx context.Context) error {
		it := domain.OrderItem{OrderID: 1, ProductID: 1, Quantity: 1, Price: decimal.Zero}
		if err := items.Create(ctx, &it); err != nil {
			return err
		}
		return items.DeleteByOrder(ctx, 1)
	})
	if err != nil {
		t.Fatalf("tx: %v", err)
	}
}
