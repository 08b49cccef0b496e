package service

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"lavka/internal/domain"
	"lavka/internal/repository"
)

func TestCatalogCreateAndGet(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	p := mustProduct(t, f, "Widget", "9.99", 10)
	if p.ID == 0 || p.CreatedAt.IsZero() {
		t.Fatalf("id/created_at not assigned: %+v", p)
	}

	got, err := f.catalog.Get(ctx, p.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Name != "Widget" || !got.Price.Equal(decimal.RequireFromString("9.99")) || got.Stock != 10 {
		t.Fatalf("round trip mismatch: %+v", got)
	}
}

func TestCatalogValidation(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	cases := []domain.Product{
		{Name: "", Price: decimal.NewFromInt(1), Stock: 1},
		{Name: "A", Price: decimal.RequireFromString("-0.01"), Stock: 1},
		{Name: "A", Price: decimal.NewFromInt(1), Stock: -1},
	}
	for i, p := range cases {
		if _, err := f.catalog.Create(ctx, p); err != ErrInvalidInput {
			t.Fatalf("case %d: expected invalid input, got %v", i, err)
		}
	}

	// список пуст: ничего не сохранилось
	list, _ := f.catalog.List(ctx)
	if len(list) != 0 {
		t.Fatalf("invalid input must not persist, got %d products", len(list))
	}
}

func TestCatalogUpdate_NotFound(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	_, err := f.catalog.Update(ctx, domain.Product{ID: 42, Name: "X", Price: decimal.NewFromInt(1)})
	if !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := f.catalog.Delete(ctx, 42); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestCatalogDelete_CascadesAcrossOrders(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	doomed := mustProduct(t, f, "Doomed", "2.00", 5)
	keeper := mustProduct(t, f, "Keeper", "3.00", 5)

	// позиции в заказах разных пользователей
	o1, _ := f.ledger.CreateOrder(ctx, userU, "")
	o2, _ := f.ledger.CreateOrder(ctx, userV, "")
	if _, err := f.ledger.AddItem(ctx, o1.ID, userU, doomed.ID, 1); err != nil {
		t.Fatal(err)
	}
	if _, err := f.ledger.AddItem(ctx, o1.ID, userU, keeper.ID, 1); err != nil {
		t.Fatal(err)
	}
	if _, err := f.ledger.AddItem(ctx, o2.ID, userV, doomed.ID, 2); err != nil {
		t.Fatal(err)
	}

	if err := f.catalog.Delete(ctx, doomed.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := f.catalog.Get(ctx, doomed.ID); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("product must be gone: %v", err)
	}

	// каскад прошёл по обоим заказам, чужие позиции не тронуты
	v1, _ := f.ledger.GetOrder(ctx, o1.ID, userU)
	if len(v1.Items) != 1 || v1.Items[0].ProductID != keeper.ID {
		t.Fatalf("order 1 items wrong: %+v", v1.Items)
	}
	if !v1.TotalPrice.Equal(decimal.RequireFromString("3.00")) {
		t.Fatalf("order 1 total: %v", v1.TotalPrice)
	}
	v2, _ := f.ledger.GetOrder(ctx, o2.ID, userV)
	if len(v2.Items) != 0 || !v2.TotalPrice.Equal(decimal.Zero) {
		t.Fatalf("order 2 must be emptied: %+v", v2)
	}
}
