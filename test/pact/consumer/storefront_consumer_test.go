//go:build pact
// +build pact

package consumer_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	pacttest "github.com/Apurer/go-gin-storefront/test/pact"

	pactconsumer "github.com/pact-foundation/pact-go/v2/consumer"
	pactlog "github.com/pact-foundation/pact-go/v2/log"
	"github.com/pact-foundation/pact-go/v2/matchers"
	"github.com/stretchr/testify/require"
)

type placedOrder struct {
	OrderID     string `json:"orderId"`
	OrderNumber string `json:"orderNumber"`
}

type order struct {
	ID          string `json:"id"`
	OrderNumber string `json:"orderNumber"`
	Status      string `json:"status"`
}

type problemDetail struct {
	Type       string         `json:"type"`
	Title      string         `json:"title"`
	Status     int            `json:"status"`
	Detail     string         `json:"detail"`
	Extensions map[string]any `json:"extensions"`
}

type apiError struct {
	status  int
	problem problemDetail
}

func (e apiError) Error() string {
	msg := e.problem.Title
	if msg == "" {
		msg = "api error"
	}
	if e.problem.Detail != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.problem.Detail)
	}
	return fmt.Sprintf("%s (status %d)", msg, e.status)
}

func TestCheckoutContract(t *testing.T) {
	t.Helper()
	pactlog.SetLogLevel("INFO")

	pact, err := pactconsumer.NewV2Pact(pactconsumer.MockHTTPProviderConfig{
		Consumer: pacttest.ConsumerName,
		Provider: pacttest.ProviderName,
		PactDir:  pacttest.PactDir(t),
		LogDir:   pacttest.LogDir(t),
	})
	require.NoError(t, err)

	jsonContentType := matchers.Regex("application/json; charset=utf-8", "application\\/json(?:;\\s?charset=utf-8)?")
	problemContentType := matchers.S("application/problem+json")

	pact.AddInteraction().
		Given(pacttest.StateCatalogInStock).
		UponReceiving("a checkout for two units of an in-stock variant").
		WithRequest("POST", "/api/orders", func(b *pactconsumer.V2RequestBuilder) {
			b.Header("Content-Type", matchers.S("application/json"))
			b.Header("Idempotency-Key", matchers.Like("checkout-7f3a"))
			b.JSONBody(pacttest.ExampleCart(2))
		}).
		WillRespondWith(http.StatusCreated, func(b *pactconsumer.V2ResponseBuilder) {
			b.Header("Content-Type", jsonContentType)
			b.JSONBody(matchers.Map{
				"orderId":     matchers.Regex("0b6f3c7e-2d4a-4e8b-9c1d-5f6a7b8c9d0e", pacttest.UUIDPattern),
				"orderNumber": matchers.Regex(pacttest.ExistingNumber, pacttest.OrderNumberPattern),
			})
		})

	pact.AddInteraction().
		Given(pacttest.StateCatalogOutOfStock).
		UponReceiving("a checkout asking for more units than the variant has").
		WithRequest("POST", "/api/orders", func(b *pactconsumer.V2RequestBuilder) {
			b.Header("Content-Type", matchers.S("application/json"))
			b.JSONBody(pacttest.ExampleCart(5))
		}).
		WillRespondWith(http.StatusConflict, func(b *pactconsumer.V2ResponseBuilder) {
			b.Header("Content-Type", problemContentType)
			b.JSONBody(matchers.Map{
				"type":   matchers.S("/problems/out-of-stock"),
				"title":  matchers.S("Out Of Stock"),
				"status": matchers.Like(http.StatusConflict),
				"extensions": matchers.Map{
					"productId": matchers.S(pacttest.ProductID),
					"size":      matchers.S(pacttest.VariantSize),
					"color":     matchers.S(pacttest.VariantColor),
					"requested": matchers.Like(5),
					"available": matchers.Like(1),
					"level":     matchers.Term("variant", "variant|product"),
				},
			})
		})

	pact.AddInteraction().
		Given(pacttest.StateOrderExists).
		UponReceiving("a request for an existing order by number").
		WithRequest("GET", "/api/orders/by-number/"+pacttest.ExistingNumber).
		WillRespondWith(http.StatusOK, func(b *pactconsumer.V2ResponseBuilder) {
			b.Header("Content-Type", jsonContentType)
			b.JSONBody(matchers.Map{
				"id":          matchers.Regex("0b6f3c7e-2d4a-4e8b-9c1d-5f6a7b8c9d0e", pacttest.UUIDPattern),
				"orderNumber": matchers.S(pacttest.ExistingNumber),
				"status":      matchers.Term("pending", "pending|paid|processing|shipped|delivered|cancelled"),
			})
		})

	pact.AddInteraction().
		Given(pacttest.StateNoOrders).
		UponReceiving("a request for a missing order by number").
		WithRequest("GET", "/api/orders/by-number/"+pacttest.MissingNumber).
		WillRespondWith(http.StatusNotFound, func(b *pactconsumer.V2ResponseBuilder) {
			b.Header("Content-Type", problemContentType)
			b.JSONBody(matchers.Map{
				"type":   matchers.S("/problems/not-found"),
				"title":  matchers.S("Resource Not Found"),
				"status": matchers.Like(http.StatusNotFound),
			})
		})

	err = pact.ExecuteTest(t, func(config pactconsumer.MockServerConfig) error {
		client := newStorefrontClient(config)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		placed, err := client.PlaceOrder(ctx, pacttest.ExampleCart(2), "checkout-7f3a")
		if err != nil {
			return fmt.Errorf("place order: %w", err)
		}
		if placed.OrderNumber == "" || placed.OrderID == "" {
			return fmt.Errorf("expected order id and number, got %+v", placed)
		}

		_, err = client.PlaceOrder(ctx, pacttest.ExampleCart(5), "")
		apiErr, ok := err.(apiError)
		if !ok || apiErr.status != http.StatusConflict {
			return fmt.Errorf("expected 409 out of stock, got %v", err)
		}
		if apiErr.problem.Extensions["level"] != "variant" {
			return fmt.Errorf("expected variant level shortfall, got %+v", apiErr.problem.Extensions)
		}

		fetched, err := client.GetOrderByNumber(ctx, pacttest.ExistingNumber)
		if err != nil {
			return fmt.Errorf("get order: %w", err)
		}
		if fetched.OrderNumber != pacttest.ExistingNumber {
			return fmt.Errorf("expected order %s, got %+v", pacttest.ExistingNumber, fetched)
		}

		if _, err := client.GetOrderByNumber(ctx, pacttest.MissingNumber); err == nil {
			return fmt.Errorf("expected 404 for order %s", pacttest.MissingNumber)
		} else if apiErr, ok := err.(apiError); ok && apiErr.status != http.StatusNotFound {
			return fmt.Errorf("expected 404, got %d", apiErr.status)
		}
		return nil
	})
	require.NoError(t, err)
}

type storefrontClient struct {
	baseURL    string
	httpClient *http.Client
}

func newStorefrontClient(config pactconsumer.MockServerConfig) *storefrontClient {
	host := config.Host
	if host == "" {
		host = "localhost"
	}
	transport := &http.Transport{TLSClientConfig: config.TLSConfig}
	client := &http.Client{Transport: transport, Timeout: 10 * time.Second}
	return &storefrontClient{
		baseURL:    fmt.Sprintf("http://%s:%d", host, config.Port),
		httpClient: client,
	}
}

func (c *storefrontClient) PlaceOrder(ctx context.Context, cart map[string]any, idempotencyKey string) (*placedOrder, error) {
	body, err := json.Marshal(cart)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/orders", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}
	var placed placedOrder
	if err := c.do(req, &placed); err != nil {
		return nil, err
	}
	return &placed, nil
}

func (c *storefrontClient) GetOrderByNumber(ctx context.Context, number string) (*order, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/orders/by-number/"+number, nil)
	if err != nil {
		return nil, err
	}
	var fetched order
	if err := c.do(req, &fetched); err != nil {
		return nil, err
	}
	return &fetched, nil
}

func (c *storefrontClient) do(req *http.Request, out any) error {
	res, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode >= http.StatusBadRequest {
		var problem problemDetail
		_ = json.NewDecoder(res.Body).Decode(&problem)
		status := problem.Status
		if status == 0 {
			status = res.StatusCode
		}
		return apiError{status: status, problem: problem}
	}
	return json.NewDecoder(res.Body).Decode(out)
}
