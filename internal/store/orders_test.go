package store

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/safar/neokart/internal/database"
	"github.com/safar/neokart/internal/models"
	"github.com/shopspring/decimal"
)

func TestCreateOrder(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	user := mustCreateUser(t, db, "test@example.com")
	product1 := mustCreateProduct(t, db, "TEST-ORD-001", 100, 50)
	product2 := mustCreateProduct(t, db, "TEST-ORD-002", 200, 30)

	if _, err := AddToCart(ctx, db, user.ID, product1.ID, 5); err != nil {
		t.Fatalf("Add to cart: %v", err)
	}

	order, err := CreateOrder(ctx, db, user.ID, models.OrderRequest{
		Items: []models.OrderLine{
			{ProductID: product1.ID, Quantity: 5},
			{ProductID: product2.ID, Quantity: 3},
		},
		ShippingAddress: models.ShippingAddress{Name: "Test", City: "Kathmandu"},
	})
	if err != nil {
		t.Fatalf("Create order: %v", err)
	}

	if order.ID == 0 {
		t.Error("Order ID should not be 0")
	}
	if order.Status != models.OrderStatusProcessing {
		t.Errorf("Expected status PROCESSING, got %s", order.Status)
	}
	if len(order.Items) != 2 {
		t.Errorf("Expected 2 order items, got %d", len(order.Items))
	}
	if order.ShippingAddress.City != "Kathmandu" {
		t.Errorf("Expected shipping city to round-trip, got %q", order.ShippingAddress.City)
	}

	expectedTotal := decimal.NewFromInt(100).Mul(decimal.NewFromInt(5)).
		Add(decimal.NewFromInt(200).Mul(decimal.NewFromInt(3)))

	if !order.TotalPrice.Equal(expectedTotal) {
		t.Errorf("Expected total %s, got %s", expectedTotal, order.TotalPrice)
	}

	product1After, err := GetProduct(ctx, db, product1.ID)
	if err != nil {
		t.Fatalf("Get product 1: %v", err)
	}
	if product1After.Stock != 45 {
		t.Errorf("Expected product 1 stock 45, got %d", product1After.Stock)
	}

	product2After, err := GetProduct(ctx, db, product2.ID)
	if err != nil {
		t.Fatalf("Get product 2: %v", err)
	}
	if product2After.Stock != 27 {
		t.Errorf("Expected product 2 stock 27, got %d", product2After.Stock)
	}

	cart, err := GetCart(ctx, db, user.ID)
	if err != nil {
		t.Fatalf("Get cart: %v", err)
	}
	if len(cart.Items) != 0 {
		t.Errorf("Ordered items should leave the cart, %d remain", len(cart.Items))
	}
}

func TestCreateOrderInsufficientStock(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	user := mustCreateUser(t, db, "test2@example.com")
	product := mustCreateProduct(t, db, "TEST-ORD-003", 100, 5)

	_, err := CreateOrder(ctx, db, user.ID, models.OrderRequest{
		Items: []models.OrderLine{{ProductID: product.ID, Quantity: 10}},
	})
	if !errors.Is(err, database.ErrInsufficientStock) {
		t.Fatalf("Expected insufficient stock, got: %v", err)
	}

	productAfter, err := GetProduct(ctx, db, product.ID)
	if err != nil {
		t.Fatalf("Get product: %v", err)
	}
	if productAfter.Stock != 5 {
		t.Errorf("Stock should remain unchanged at 5, got %d", productAfter.Stock)
	}
}

func TestCreateOrderWithCoupon(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	user := mustCreateUser(t, db, "coupon@example.com")
	product := mustCreateProduct(t, db, "TEST-ORD-CPN", 100, 10)
	coupon, err := CreateCoupon(ctx, db, activeCoupon("save10", models.DiscountPercentage, 10))
	if err != nil {
		t.Fatalf("Create coupon: %v", err)
	}

	order, err := CreateOrder(ctx, db, user.ID, models.OrderRequest{
		Items:      []models.OrderLine{{ProductID: product.ID, Quantity: 2}},
		CouponCode: "SAVE10",
	})
	if err != nil {
		t.Fatalf("Create order: %v", err)
	}
	if !order.TotalPrice.Equal(decimal.NewFromInt(180)) {
		t.Errorf("Expected discounted total 180, got %s", order.TotalPrice)
	}

	coupons, err := ListCoupons(ctx, db)
	if err != nil {
		t.Fatalf("List coupons: %v", err)
	}
	if coupons[0].ID != coupon.ID || coupons[0].TimesUsed != 1 {
		t.Errorf("Expected coupon used once, got %+v", coupons[0])
	}
}

func TestConcurrentOrderCreation(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	user := mustCreateUser(t, db, "test3@example.com")
	product := mustCreateProduct(t, db, "TEST-ORD-004", 100, 10)

	concurrency := 10
	var wg sync.WaitGroup
	results := make(chan error, concurrency)

	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			_, err := CreateOrder(ctx, db, user.ID, models.OrderRequest{
				Items: []models.OrderLine{{ProductID: product.ID, Quantity: 2}},
			})

			results <- err
		}()
	}

	wg.Wait()
	close(results)

	successCount := 0
	for err := range results {
		switch {
		case err == nil:
			successCount++
		case errors.Is(err, database.ErrInsufficientStock), errors.Is(err, database.ErrLockTimeout):
		default:
			t.Logf("Unexpected error: %v", err)
		}
	}

	if successCount == 0 || successCount > 5 {
		t.Errorf("Expected between 1 and 5 successful orders, got %d", successCount)
	}

	productAfter, err := GetProduct(ctx, db, product.ID)
	if err != nil {
		t.Fatalf("Get product: %v", err)
	}

	expectedStock := 10 - (successCount * 2)
	if productAfter.Stock != expectedStock {
		t.Errorf("Expected final stock %d, got %d", expectedStock, productAfter.Stock)
	}
}

func TestCancelOrder(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	owner := mustCreateUser(t, db, "owner@example.com")
	other := mustCreateUser(t, db, "other@example.com")
	product := mustCreateProduct(t, db, "TEST-CANCEL", 50, 10)

	order, err := CreateOrder(ctx, db, owner.ID, models.OrderRequest{
		Items: []models.OrderLine{{ProductID: product.ID, Quantity: 4}},
	})
	if err != nil {
		t.Fatalf("Create order: %v", err)
	}

	if _, err := CancelOrder(ctx, db, other.ID, order.ID); !errors.Is(err, database.ErrOrderNotFound) {
		t.Errorf("Another user must not cancel the order, got: %v", err)
	}

	cancelled, err := CancelOrder(ctx, db, owner.ID, order.ID)
	if err != nil {
		t.Fatalf("Cancel order: %v", err)
	}
	if cancelled.Status != models.OrderStatusCancelled {
		t.Errorf("Expected CANCELLED, got %s", cancelled.Status)
	}

	productAfter, err := GetProduct(ctx, db, product.ID)
	if err != nil {
		t.Fatalf("Get product: %v", err)
	}
	if productAfter.Stock != 10 {
		t.Errorf("Expected stock restored to 10, got %d", productAfter.Stock)
	}

	if _, err := CancelOrder(ctx, db, owner.ID, order.ID); err != nil {
		t.Errorf("Cancelling twice should be a no-op, got: %v", err)
	}
}

func TestCancelDeliveredOrder(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	user := mustCreateUser(t, db, "delivered@example.com")
	product := mustCreateProduct(t, db, "TEST-DELIVERED", 50, 10)

	order, err := CreateOrder(ctx, db, user.ID, models.OrderRequest{
		Items: []models.OrderLine{{ProductID: product.ID, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("Create order: %v", err)
	}

	if _, err := UpdateOrderStatus(ctx, db, order.ID, models.OrderStatusDelivered, order.Version); err != nil {
		t.Fatalf("Update status: %v", err)
	}

	if _, err := CancelOrder(ctx, db, user.ID, order.ID); !errors.Is(err, database.ErrOrderNotCancellable) {
		t.Errorf("Expected delivered order to be non-cancellable, got: %v", err)
	}

	if _, err := UpdateOrderStatus(ctx, db, order.ID, models.OrderStatusShipped, order.Version); !errors.Is(err, database.ErrOptimisticLockFailed) {
		t.Errorf("Expected optimistic lock failure on stale version, got: %v", err)
	}
}

func TestShipNextOrder(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	user := mustCreateUser(t, db, "ship@example.com")
	product := mustCreateProduct(t, db, "TEST-SHIP", 10, 10)

	var first *models.Order
	for i := 0; i < 2; i++ {
		order, err := CreateOrder(ctx, db, user.ID, models.OrderRequest{
			Items: []models.OrderLine{{ProductID: product.ID, Quantity: 1}},
		})
		if err != nil {
			t.Fatalf("Create order %d: %v", i, err)
		}
		if first == nil {
			first = order
		}
	}

	shipped, err := ShipNextOrder(ctx, db)
	if err != nil {
		t.Fatalf("Ship next order: %v", err)
	}
	if shipped.ID != first.ID || shipped.Status != models.OrderStatusShipped {
		t.Errorf("Expected oldest order %d shipped, got %d (%s)", first.ID, shipped.ID, shipped.Status)
	}
}

func TestListOrdersCursor(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	user := mustCreateUser(t, db, "test4@example.com")
	product := mustCreateProduct(t, db, "TEST-ORD-005", 100, 100)

	for i := 0; i < 15; i++ {
		_, err := CreateOrder(ctx, db, user.ID, models.OrderRequest{
			Items: []models.OrderLine{{ProductID: product.ID, Quantity: 1}},
		})
		if err != nil {
			t.Fatalf("Create order %d: %v", i, err)
		}
	}

	page1, err := ListOrdersCursor(ctx, db, user.ID, "", 10)
	if err != nil {
		t.Fatalf("List orders page 1: %v", err)
	}

	if !page1.HasMore {
		t.Error("Page 1 should have more results")
	}

	if page1.NextCursor == "" {
		t.Error("Page 1 should have a next cursor")
	}

	page2, err := ListOrdersCursor(ctx, db, 0, page1.NextCursor, 10)
	if err != nil {
		t.Fatalf("List orders page 2: %v", err)
	}

	if page2.HasMore {
		t.Error("Page 2 should not have more results")
	}
	if n := len(page2.Items.([]models.Order)); n != 5 {
		t.Errorf("Expected 5 orders on page 2, got %d", n)
	}
}
