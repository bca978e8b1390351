package api

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"

	ordersdomain "github.com/Apurer/go-gin-storefront/internal/domains/orders/domain"
	ordersports "github.com/Apurer/go-gin-storefront/internal/domains/orders/ports"
)

type catalogVariant struct {
	ID       uuid.UUID `json:"id"`
	Size     string    `json:"size"`
	Color    string    `json:"color"`
	ColorHex string    `json:"colorHex"`
	Stock    int       `json:"stock"`
}

type catalogProduct struct {
	ID       uuid.UUID        `json:"id"`
	Name     string           `json:"name"`
	Stock    int              `json:"stock"`
	Variants []catalogVariant `json:"variants"`
}

// SeedCatalogFile upserts the products and variants listed in a JSON file.
// Ids are required so reseeding updates rows in place.
func SeedCatalogFile(ctx context.Context, seeder ordersports.CatalogSeeder, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read catalog seed: %w", err)
	}
	var products []catalogProduct
	if err := json.Unmarshal(raw, &products); err != nil {
		return fmt.Errorf("parse catalog seed %s: %w", path, err)
	}
	for i, product := range products {
		if product.ID == uuid.Nil {
			return fmt.Errorf("catalog seed product %d: id is required", i)
		}
		if product.Stock < 0 {
			return fmt.Errorf("catalog seed product %s: stock must not be negative", product.ID)
		}
		variants := make([]ordersdomain.VariantStock, 0, len(product.Variants))
		for _, v := range product.Variants {
			if v.ID == uuid.Nil {
				return fmt.Errorf("catalog seed product %s variant %s/%s: id is required", product.ID, v.Size, v.Color)
			}
			if v.Stock < 0 {
				return fmt.Errorf("catalog seed product %s variant %s/%s: stock must not be negative", product.ID, v.Size, v.Color)
			}
			variants = append(variants, ordersdomain.VariantStock{
				ID:        v.ID,
				ProductID: product.ID,
				Size:      v.Size,
				Color:     v.Color,
				ColorHex:  v.ColorHex,
				Available: v.Stock,
			})
		}
		stock := ordersdomain.ProductStock{ID: product.ID, Name: product.Name, Available: product.Stock}
		if err := seeder.SeedProduct(ctx, stock, variants...); err != nil {
			return fmt.Errorf("seed product %s: %w", product.ID, err)
		}
	}
	return nil
}
