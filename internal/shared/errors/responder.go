package errors

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel/trace"
)

// ContentTypeProblemJSON is the media type for problem details responses.
const ContentTypeProblemJSON = "application/problem+json"

// ErrorMapper translates an application error into a problem. It reports false for
// errors it does not recognise.
type ErrorMapper func(err error) (ProblemDetail, bool)

// Responder writes problem details, consulting its mappers before the generic fallbacks.
type Responder struct {
	baseURI string
	logger  *slog.Logger
	mappers []ErrorMapper
}

type ResponderOption func(*Responder)

// WithBaseURI prefixes relative problem type URIs.
func WithBaseURI(uri string) ResponderOption {
	return func(r *Responder) {
		r.baseURI = strings.TrimRight(uri, "/")
	}
}

// WithLogger logs every 5xx problem written by the responder. Without it the process
// default logger is used.
func WithLogger(logger *slog.Logger) ResponderOption {
	return func(r *Responder) {
		if logger != nil {
			r.logger = logger
		}
	}
}

func WithMappers(mappers ...ErrorMapper) ResponderOption {
	return func(r *Responder) {
		r.mappers = append(r.mappers, mappers...)
	}
}

func NewResponder(opts ...ResponderOption) *Responder {
	r := &Responder{}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Respond writes problem with the problem+json media type. The request path becomes the
// instance and the active trace id, if any, is added as the traceId extension.
func (r *Responder) Respond(c *gin.Context, problem ProblemDetail) {
	if r.baseURI != "" && strings.HasPrefix(problem.Type, "/") {
		problem.Type = r.baseURI + problem.Type
	}
	if problem.Instance == "" {
		problem.Instance = c.Request.URL.Path
	}
	ctx := c.Request.Context()
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		problem = problem.WithExtension("traceId", sc.TraceID().String())
	}
	if problem.RetryAfter > 0 {
		c.Header("Retry-After", strconv.Itoa(int(math.Ceil(problem.RetryAfter.Seconds()))))
	}
	if problem.Status >= 500 {
		logger := r.logger
		if logger == nil {
			logger = slog.Default()
		}
		logger.LogAttrs(ctx, slog.LevelError, "request failed",
			slog.Int("status", problem.Status),
			slog.String("problem.type", problem.Type),
			slog.String("detail", problem.Detail),
			slog.String("path", c.Request.URL.Path))
	}
	c.Header("Content-Type", ContentTypeProblemJSON)
	c.JSON(problem.Status, problem)
}

// RespondError maps err through the configured mappers. Unmapped errors that already are
// problems are written as-is, context expiry becomes a retryable 503 and anything else a 500.
func (r *Responder) RespondError(c *gin.Context, err error) {
	for _, mapper := range r.mappers {
		if problem, ok := mapper(err); ok {
			r.Respond(c, problem)
			return
		}
	}
	var problem ProblemDetail
	switch {
	case errors.As(err, &problem):
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		problem = ErrServiceUnavailable.WithDetail(err.Error()).Retryable(time.Second)
	default:
		problem = ErrInternal.WithDetail(err.Error())
	}
	r.Respond(c, problem)
}

// RespondBindingError reports a request gin could not bind. Validator failures list the
// offending JSON fields and their failed rule under the fields extension.
func (r *Responder) RespondBindingError(c *gin.Context, err error) {
	var invalid validator.ValidationErrors
	if !errors.As(err, &invalid) {
		r.Respond(c, ErrBadRequest.WithDetail(err.Error()))
		return
	}
	fields := make(map[string]string, len(invalid))
	for _, fe := range invalid {
		fields[fe.Field()] = fe.Tag()
	}
	r.Respond(c, ErrValidation.WithDetail("request body failed validation").WithExtension("fields", fields))
}

var jsonFieldNames sync.Once

// UseJSONFieldNames makes gin's validator report fields by their JSON names.
func UseJSONFieldNames() {
	jsonFieldNames.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(field reflect.StructField) string {
			name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
			if name == "" || name == "-" {
				return field.Name
			}
			return name
		})
	})
}
