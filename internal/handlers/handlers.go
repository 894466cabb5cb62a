package handlers

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/SignpostApp/landing/internal/apperr"
	"github.com/SignpostApp/landing/internal/services"
	"github.com/SignpostApp/landing/internal/stats"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// checkErrorMessage is what /check answers when the store fails.
const checkErrorMessage = "Something went wrong"

// maxTimestamp keeps client timestamps inside the range time.UnixMilli handles.
const maxTimestamp = 1e15

type Waitlist interface {
	Join(ctx context.Context, req services.JoinRequest) (services.JoinResult, error)
	Check(ctx context.Context, email string) (services.CheckResult, error)
}

type Options struct {
	Logger *zap.Logger
	// Health backs GET /healthz. Nil means always healthy.
	Health func(ctx context.Context) error
	// Stats enables GET /api/waitlist/stats when set.
	Stats stats.Reader
	// Lookup throttles /check per client IP when set.
	Lookup *LookupThrottle
}

type WaitlistHandler struct {
	svc    Waitlist
	logger *zap.Logger
	health func(ctx context.Context) error
	stats  stats.Reader
}

func RegisterRoutes(e *echo.Echo, api *echo.Group, svc Waitlist, opts Options) {
	h := &WaitlistHandler{
		svc:    svc,
		logger: opts.Logger,
		health: opts.Health,
		stats:  opts.Stats,
	}
	if h.logger == nil {
		h.logger = zap.NewNop()
	}

	e.GET("/healthz", h.Healthz)

	api.POST("/waitlist/join", h.Join)

	var checkMiddleware []echo.MiddlewareFunc
	if opts.Lookup != nil {
		checkMiddleware = append(checkMiddleware, opts.Lookup.Middleware())
	}
	api.POST("/waitlist/check", h.Check, checkMiddleware...)

	if h.stats != nil {
		api.GET("/waitlist/stats", h.Stats)
	}
}

// joinRequest keeps every field raw: bots fill fields with arbitrary types and
// the honeypot must be checked before any of them is interpreted.
type joinRequest struct {
	Email   json.RawMessage `json:"email"`
	Website json.RawMessage `json:"website"`
	// epoch milliseconds from the client clock
	Timestamp json.RawMessage `json:"timestamp"`
}

type joinResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *WaitlistHandler) Join(c echo.Context) error {
	var req joinRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: apperr.InvalidEmailMessage})
	}

	// A non-string email reaches the validator as "" and a non-number
	// timestamp as the zero time, so they fail as invalid and expired.
	res, err := h.svc.Join(c.Request().Context(), services.JoinRequest{
		Email:     rawString(req.Email),
		Website:   honeypotValue(req.Website),
		Timestamp: clientTime(rawNumber(req.Timestamp)),
	})
	if err != nil {
		var rlErr *apperr.RateLimitError
		if errors.As(err, &rlErr) {
			c.Response().Header().Set("Retry-After", retryAfterSeconds(rlErr.RetryAfter))
		}
		msg := apperr.SafeMessage(err)
		if !apperr.IsSafeMessage(msg) {
			msg = apperr.GenericMessage
		}
		return c.JSON(apperr.StatusCode(err), errorResponse{Error: msg})
	}

	return c.JSON(http.StatusOK, joinResponse{Success: true, Message: res.Message})
}

type checkRequest struct {
	Email string `json:"email"`
}

type checkResponse struct {
	Found    bool  `json:"found"`
	Position int64 `json:"position,omitempty"`
	Total    int64 `json:"total,omitempty"`
	JoinedAt int64 `json:"joinedAt,omitempty"`
}

func (h *WaitlistHandler) Check(c echo.Context) error {
	var req checkRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusOK, checkResponse{Found: false})
	}

	res, err := h.svc.Check(c.Request().Context(), req.Email)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: checkErrorMessage})
	}
	if !res.Found {
		return c.JSON(http.StatusOK, checkResponse{Found: false})
	}

	return c.JSON(http.StatusOK, checkResponse{
		Found:    true,
		Position: res.Position,
		Total:    res.Total,
		JoinedAt: res.JoinedAt,
	})
}

func (h *WaitlistHandler) Healthz(c echo.Context) error {
	if h.health != nil {
		if err := h.health(c.Request().Context()); err != nil {
			h.logger.Error("health check failed", zap.Error(err))
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		}
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (h *WaitlistHandler) Stats(c echo.Context) error {
	totals, err := h.stats.Totals(c.Request().Context())
	if err != nil {
		h.logger.Error("read stats", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: apperr.GenericMessage})
	}
	return c.JSON(http.StatusOK, map[string]any{"totals": totals})
}

// honeypotValue returns "" unless the field holds a truthy JSON value: a
// non-empty string, a non-zero number, true, an object or an array.
func honeypotValue(raw json.RawMessage) string {
	var v any
	if len(raw) == 0 || json.Unmarshal(raw, &v) != nil {
		return ""
	}
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		if !x {
			return ""
		}
	case float64:
		if x == 0 {
			return ""
		}
	}
	return string(raw)
}

func rawString(raw json.RawMessage) string {
	var v any
	if len(raw) == 0 || json.Unmarshal(raw, &v) != nil {
		return ""
	}
	s, _ := v.(string)
	return s
}

func rawNumber(raw json.RawMessage) *float64 {
	var v any
	if len(raw) == 0 || json.Unmarshal(raw, &v) != nil {
		return nil
	}
	f, ok := v.(float64)
	if !ok {
		return nil
	}
	return &f
}

// clientTime converts an epoch-ms JSON number. Missing or absurd values map to
// the zero time, which the validator treats as expired.
func clientTime(ms *float64) time.Time {
	if ms == nil || math.IsNaN(*ms) || math.Abs(*ms) > maxTimestamp {
		return time.Time{}
	}
	return time.UnixMilli(int64(*ms))
}

func retryAfterSeconds(d time.Duration) string {
	secs := int64(math.Ceil(d.Seconds()))
	if secs < 1 {
		secs = 1
	}
	return strconv.FormatInt(secs, 10)
}
