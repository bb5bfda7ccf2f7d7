package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"walley/internal/auth"
	"walley/internal/ledger"
	"walley/internal/models"
	"walley/internal/storage"

	"github.com/gin-gonic/gin"
)

const (
	// identityKey is the gin context key for the authenticated identity.
	identityKey = "identity"
	// tokenKey is the gin context key for the bearer token of the request.
	tokenKey = "token"
)

// Handlers holds dependencies for HTTP handlers.
type Handlers struct {
	db         *storage.DB
	gateway    *auth.Gateway
	reconciler *ledger.Reconciler
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(db *storage.DB, gateway *auth.Gateway, reconciler *ledger.Reconciler) *Handlers {
	return &Handlers{db: db, gateway: gateway, reconciler: reconciler}
}

// Routes registers every endpoint on r.
func (h *Handlers) Routes(r gin.IRouter) {
	r.GET("/healthz", h.Health)
	r.POST("/register", h.Register)
	r.POST("/login", h.Login)

	authGroup := r.Group("")
	authGroup.Use(h.AuthMiddleware())
	authGroup.POST("/logout", h.Logout)
	authGroup.GET("/session/user", h.SessionUser)
	authGroup.GET("/user", h.GetUser)
	authGroup.GET("/user/get_by_id", h.GetUserByID)
	authGroup.POST("/user/update", h.UpdateUser)
	authGroup.POST("/user/delete", h.DeleteUser)
	authGroup.POST("/transaction/add", h.AddTransaction)
	authGroup.GET("/transaction/history", h.TransactionHistory)
	authGroup.GET("/transaction/get", h.GetTransaction)
	authGroup.POST("/transaction/update", h.UpdateTransaction)
	authGroup.POST("/transaction/delete", h.DeleteTransaction)
	authGroup.GET("/summary", h.Summary)
	authGroup.GET("/summary/categories", h.CategoryBreakdown)
}

// bearerToken extracts the token of an "Authorization: Bearer <token>" header.
func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return ""
	}
	return strings.TrimSpace(token)
}

// AuthMiddleware rejects requests that do not carry a live session token.
// Missing, unknown, revoked and expired tokens all get the same response.
func (h *Handlers) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		identity, ok := h.gateway.Resolve(token)
		if !ok {
			writeError(c, models.ErrNotLoggedIn)
			c.Abort()
			return
		}
		c.Set(identityKey, identity)
		c.Set(tokenKey, token)
		c.Next()
	}
}

// currentIdentity returns the identity stored by AuthMiddleware.
func currentIdentity(c *gin.Context) models.Identity {
	identity, _ := c.MustGet(identityKey).(models.Identity)
	return identity
}

// writeError maps err to a status code and a stable kind.
func writeError(c *gin.Context, err error) {
	kind := models.Kind(err)
	status := http.StatusInternalServerError
	switch kind {
	case "validation":
		status = http.StatusBadRequest
	case "authentication":
		status = http.StatusUnauthorized
	case "not_found":
		status = http.StatusNotFound
	case "conflict":
		status = http.StatusConflict
	}

	msg := err.Error()
	if status == http.StatusInternalServerError {
		log.Printf("%s %s error: %v", c.Request.Method, c.FullPath(), err)
		msg = "internal server error"
		kind = "infrastructure"
	}
	c.JSON(status, gin.H{"error": msg, "kind": kind})
}

// decodeStrict decodes the JSON body into dst and rejects fields dst does not declare.
func decodeStrict(c *gin.Context, dst any) error {
	dec := json.NewDecoder(c.Request.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return models.ErrMissingFields
		}
		return models.ValidationError{Field: "body", Message: err.Error()}
	}
	return nil
}

// bindJSON decodes the JSON body into dst, ignoring unknown fields.
func bindJSON(c *gin.Context, dst any) error {
	if err := c.ShouldBindJSON(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return models.ErrMissingFields
		}
		return models.ValidationError{Field: "body", Message: err.Error()}
	}
	return nil
}

// queryID parses an integer id query parameter. A missing parameter is reported as missing.
func queryID(c *gin.Context, name string, missing error) (int64, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, missing
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, models.ValidationError{Field: name, Message: "must be an integer"}
	}
	return id, nil
}

// queryPeriod reads the optional year and month query parameters. With neither
// the period is unbounded, a year alone covers that year and a month without a
// year falls in the current year.
func queryPeriod(c *gin.Context) (time.Time, time.Time, error) {
	yearStr, monthStr := c.Query("year"), c.Query("month")
	if yearStr == "" && monthStr == "" {
		return time.Time{}, time.Time{}, nil
	}

	year := time.Now().UTC().Year()
	if yearStr != "" {
		y, err := strconv.Atoi(yearStr)
		if err != nil {
			return time.Time{}, time.Time{}, models.ValidationError{Field: "year", Message: "must be an integer"}
		}
		year = y
	}
	if monthStr == "" {
		from, _, err := ledger.MonthRange(year, 1)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		return from, from.AddDate(1, 0, 0), nil
	}

	month, err := strconv.Atoi(monthStr)
	if err != nil {
		return time.Time{}, time.Time{}, models.ValidationError{Field: "month", Message: "must be an integer"}
	}
	return ledger.MonthRange(year, month)
}

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02",
}

// parseDate accepts RFC 3339 timestamps as well as the zoneless ISO-8601
// forms, which are read as UTC.
func parseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, models.ValidationError{Field: "date", Message: "must be an ISO-8601 timestamp"}
}

func parseOptionalDate(s *string) (*time.Time, error) {
	if s == nil {
		return nil, nil
	}
	t, err := parseDate(*s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Health reports whether the store is reachable.
func (h *Handlers) Health(c *gin.Context) {
	if err := h.db.Ping(c.Request.Context()); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
