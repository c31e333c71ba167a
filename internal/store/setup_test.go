package store

import (
	"context"
	"database/sql"
	"testing"

	"github.com/safar/neokart/internal/database/dbtest"
	"github.com/safar/neokart/internal/models"
	"github.com/shopspring/decimal"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	return dbtest.New(t)
}

func mustCreateUser(t *testing.T, db *sql.DB, email string) *models.User {
	t.Helper()
	user, err := CreateUser(context.Background(), db, NewUser{
		Name:         "Test " + email,
		Email:        email,
		PasswordHash: "x",
	})
	if err != nil {
		t.Fatalf("Create user: %v", err)
	}
	return user
}

func mustCreateProduct(t *testing.T, db *sql.DB, sku string, price int64, stock int) *models.Product {
	t.Helper()
	product, err := CreateProduct(context.Background(), db, models.ProductInput{
		Name:     "Product " + sku,
		SKU:      sku,
		Price:    decimal.NewFromInt(price),
		Stock:    stock,
		Category: "test",
	}, nil)
	if err != nil {
		t.Fatalf("Create product: %v", err)
	}
	return product
}
