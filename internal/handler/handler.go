package handler

import (
	"context"
	"errors"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/cartoway/router-demo/internal/modes"
	"github.com/cartoway/router-demo/internal/routing"
	"github.com/cartoway/router-demo/internal/session"
)

// Handler holds the domain dependencies for all HTTP handlers.
// A single Handler is shared across all route groups; individual methods are
// registered as gin handler functions.
type Handler struct {
	registry   *modes.Holder
	calculator session.Calculator
	sessions   *session.Store
	locale     string
	logger     *zap.Logger
}

// New creates a Handler with the given dependencies. locale is the default
// for labels; requests may override it with ?lang=.
func New(
	registry *modes.Holder,
	calculator session.Calculator,
	sessions *session.Store,
	locale string,
	logger *zap.Logger,
) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	registerJSONFieldNames()
	return &Handler{
		registry:   registry,
		calculator: calculator,
		sessions:   sessions,
		locale:     locale,
		logger:     logger,
	}
}

// Health handles GET /health
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// localeFor returns the request locale.
func (h *Handler) localeFor(c *gin.Context) string {
	switch lang := strings.ToLower(c.Query("lang")); lang {
	case "en", "fr":
		return lang
	}
	return h.locale
}

// requestContext carries the request locale so routing errors are
// reported in the caller's language.
func (h *Handler) requestContext(c *gin.Context) context.Context {
	return routing.WithLocale(c.Request.Context(), h.localeFor(c))
}

// checkModes splits ids into enabled and rejected ones.
func (h *Handler) checkModes(ids []routing.TransportMode) (ok, rejected []routing.TransportMode) {
	reg := h.registry.Load()
	ok = make([]routing.TransportMode, 0, len(ids))
	for _, id := range ids {
		if reg.Contains(id) {
			ok = append(ok, id)
		} else {
			rejected = append(rejected, id)
		}
	}
	return ok, rejected
}

// defaultModes returns session.DefaultModes restricted to the enabled set,
// or the first enabled mode if none of them is enabled.
func (h *Handler) defaultModes() []routing.TransportMode {
	reg := h.registry.Load()
	if m := reg.Filter(session.DefaultModes); len(m) > 0 {
		return m
	}
	if ids := reg.IDs(); len(ids) > 0 {
		return ids[:1]
	}
	return []routing.TransportMode{}
}

func unknownModesError(c *gin.Context, rejected []routing.TransportMode) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error":  "unknown or disabled transport mode",
		"fields": gin.H{"modes": "not enabled: " + modes.Join(rejected)},
	})
}

var registerOnce sync.Once

// registerJSONFieldNames makes validation errors report JSON field names.
func registerJSONFieldNames() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			if name == "" {
				return f.Name
			}
			return name
		})
	})
}

// bindError writes a 400 describing why the request body was rejected.
func bindError(c *gin.Context, err error) {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	fields := make(gin.H, len(ve))
	for _, fe := range ve {
		fields[fieldPath(fe)] = describe(fe)
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": "validation failed", "fields": fields})
}

// fieldPath drops the root struct name from the namespace: "origin.lat".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return ns
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min", "gte":
		return "must be at least " + fe.Param()
	case "max", "lte":
		return "must be at most " + fe.Param()
	default:
		return "failed " + fe.Tag() + " validation"
	}
}
