package errors

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
)

var errSoldOut = errors.New("sold out")

func serve(t *testing.T, ctx context.Context, handle func(c *gin.Context)) (*httptest.ResponseRecorder, ProblemDetail) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/api/orders", nil).WithContext(ctx)
	handle(c)

	require.Equal(t, ContentTypeProblemJSON, rec.Header().Get("Content-Type"))
	var problem ProblemDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	return rec, problem
}

func TestResponder_MapsThroughMappersFirst(t *testing.T) {
	r := NewResponder(WithBaseURI("https://storefront.example/"), WithMappers(func(err error) (ProblemDetail, bool) {
		if errors.Is(err, errSoldOut) {
			return ErrOutOfStock.WithDetail(err.Error()), true
		}
		return ProblemDetail{}, false
	}))

	rec, problem := serve(t, context.Background(), func(c *gin.Context) {
		r.RespondError(c, fmt.Errorf("line 1: %w", errSoldOut))
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "https://storefront.example/problems/out-of-stock", problem.Type)
	assert.Equal(t, "/api/orders", problem.Instance)
	assert.Equal(t, "line 1: sold out", problem.Detail)
}

func TestResponder_Fallbacks(t *testing.T) {
	r := NewResponder()

	rec, problem := serve(t, context.Background(), func(c *gin.Context) {
		r.RespondError(c, ErrConflict.WithDetail("already shipped"))
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "already shipped", problem.Detail)

	rec, problem = serve(t, context.Background(), func(c *gin.Context) {
		r.RespondError(c, fmt.Errorf("lock wait: %w", context.DeadlineExceeded))
	})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
	assert.Equal(t, true, problem.Extensions["retryable"])

	rec, problem = serve(t, context.Background(), func(c *gin.Context) {
		r.RespondError(c, errors.New("boom"))
	})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, TypeInternal, problem.Type)
}

func TestResponder_AddsTraceID(t *testing.T) {
	traceID := trace.TraceID{0x0a, 0x0b, 0x0c}
	sc := trace.NewSpanContext(trace.SpanContextConfig{TraceID: traceID, SpanID: trace.SpanID{0x01}})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	_, problem := serve(t, ctx, func(c *gin.Context) {
		NewResponder().Respond(c, ErrNotFound)
	})
	assert.Equal(t, traceID.String(), problem.Extensions["traceId"])
}

func TestResponder_RetryAfterRoundsUp(t *testing.T) {
	r := NewResponder()
	rec, _ := serve(t, context.Background(), func(c *gin.Context) {
		r.Respond(c, ErrServiceUnavailable.Retryable(1500*time.Millisecond))
	})
	assert.Equal(t, "2", rec.Header().Get("Retry-After"))
}

func TestResponder_BindingErrors(t *testing.T) {
	UseJSONFieldNames()
	gin.SetMode(gin.TestMode)
	type statusUpdate struct {
		Status string `json:"status" binding:"required"`
	}
	r := NewResponder()

	for name, tc := range map[string]struct {
		body      string
		wantType  string
		wantField bool
	}{
		"missing field": {body: `{}`, wantType: TypeValidation, wantField: true},
		"malformed":     {body: `{`, wantType: TypeBadRequest},
	} {
		t.Run(name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(rec)
			c.Request = httptest.NewRequest(http.MethodPatch, "/api/admin/orders/x/status", strings.NewReader(tc.body))
			c.Request.Header.Set("Content-Type", "application/json")
			var payload statusUpdate
			r.RespondBindingError(c, c.ShouldBindJSON(&payload))

			require.Equal(t, http.StatusBadRequest, rec.Code)
			var problem ProblemDetail
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
			assert.Equal(t, tc.wantType, problem.Type)
			if tc.wantField {
				assert.Equal(t, map[string]any{"status": "required"}, problem.Extensions["fields"])
			}
		})
	}
}

func TestProblemDetail_ExtensionsDoNotMutateTemplates(t *testing.T) {
	first := ErrConflict.WithExtension("orderId", "a")
	second := ErrConflict.WithExtensions(map[string]any{"orderId": "b", "status": "paid"})

	assert.Nil(t, ErrConflict.Extensions)
	assert.Equal(t, "a", first.Extensions["orderId"])
	assert.Equal(t, "b", second.Extensions["orderId"])
	assert.Equal(t, "Conflict: already paid", ErrConflict.WithDetail("already paid").Error())
}
