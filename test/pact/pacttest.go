//go:build pact
// +build pact

package pacttest

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

const (
	ProviderName = "storefront-api"
	ConsumerName = "storefront-web"

	StateCatalogInStock    = "catalog has product with size M red in stock"
	StateCatalogOutOfStock = "catalog has product with one unit of size M red"
	StateOrderExists       = "order orden-00001 exists"
	StateNoOrders          = "no orders exist"
)

const (
	ProductID      = "3f6c2a44-5e0b-4b2a-9d7e-0a1b2c3d4e5f"
	VariantID      = "7d1e9b20-4c55-4f0e-8a61-2b3c4d5e6f70"
	ProductName    = "Camiseta Pact"
	VariantSize    = "M"
	VariantColor   = "Rojo"
	VariantHex     = "#FF0000"
	ExistingNumber = "orden-00001"
	MissingNumber  = "orden-99999"

	UUIDPattern        = `^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`
	OrderNumberPattern = `^orden-\d{5,6}$`
)

// PactDir returns the workspace-level directory for generated pact files.
func PactDir(t testing.TB) string {
	t.Helper()
	dir := filepath.Join(projectRoot(t), "pacts")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("create pact dir: %v", err)
	}
	return dir
}

// PactFile returns the canonical pact file path for the storefront consumer.
func PactFile(t testing.TB) string {
	t.Helper()
	return filepath.Join(PactDir(t), ConsumerName+"-"+ProviderName+".json")
}

// LogDir returns the log output directory for pact-go.
func LogDir(t testing.TB) string {
	t.Helper()
	dir := filepath.Join(projectRoot(t), "bin", "pact-logs")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("create pact log dir: %v", err)
	}
	return dir
}

// ExampleCart is the checkout payload the storefront submits.
func ExampleCart(quantity int) map[string]any {
	return map[string]any{
		"items": []map[string]any{{
			"productId": ProductID,
			"quantity":  quantity,
			"size":      VariantSize,
			"color":     VariantColor,
			"unitPrice": "19.90",
		}},
		"customer": map[string]any{
			"name":    "Lucía Pérez",
			"email":   "lucia@example.com",
			"phone":   "+5491100000000",
			"address": "Av. Siempre Viva 742",
		},
		"totals": map[string]any{
			"subtotal": "39.80",
			"shipping": "5.00",
			"discount": "0",
			"total":    "44.80",
		},
		"paymentMethod": "transfer",
	}
}

// projectRoot walks up from this file to the workspace root.
func projectRoot(t testing.TB) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("cannot determine caller for pact paths")
	}
	return filepath.Clean(filepath.Join(filepath.Dir(file), "..", ".."))
}
