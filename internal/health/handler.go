package health

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5"
	"golang.org/x/sync/errgroup"

	"github.com/Lelo88/nova-catalog-golang/internal/httpx"
)

const (
	readyTimeout     = 2 * time.Second
	componentTimeout = 4 * time.Second
)

// Pinger es lo mínimo que necesitamos de la base para readiness.
type Pinger interface {
	Ping(ctx context.Context) error
}

// BucketChecker verifica que el bucket de assets sea accesible.
type BucketChecker interface {
	CheckBucket(ctx context.Context) error
}

// rowQuerier permite leer metadata de la base si el pool lo soporta.
type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Handler encapsula endpoints de health.
type Handler struct {
	database  Pinger
	bucket    BucketChecker
	version   string
	startedAt time.Time
	timeout   time.Duration
	now       func() time.Time
}

// Option configura el handler.
type Option func(*Handler)

// WithBucket agrega el chequeo de S3. Sin bucket, el componente s3 se reporta como skipped.
func WithBucket(bucket BucketChecker) Option {
	return func(handler *Handler) {
		handler.bucket = bucket
	}
}

// WithVersion fija la versión que se reporta en /health/components.
func WithVersion(version string) Option {
	return func(handler *Handler) {
		handler.version = version
	}
}

// WithStartedAt fija el inicio del proceso para calcular uptime.
func WithStartedAt(startedAt time.Time) Option {
	return func(handler *Handler) {
		handler.startedAt = startedAt
	}
}

// WithComponentTimeout cambia el timeout de cada chequeo de componente.
func WithComponentTimeout(timeout time.Duration) Option {
	return func(handler *Handler) {
		handler.timeout = timeout
	}
}

// New crea un handler de health. database puede ser nil.
func New(database Pinger, opts ...Option) *Handler {
	handler := &Handler{
		database:  database,
		version:   "dev",
		startedAt: time.Now(),
		timeout:   componentTimeout,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(handler)
	}
	return handler
}

// Health indica si el proceso está vivo.
// NO chequea base de datos. Eso va en /ready.
func (handler *Handler) Health(w http.ResponseWriter, r *http.Request) {
	httpx.OK(w, r, http.StatusOK, map[string]any{
		"status": "ok",
		"time":   handler.now().UTC().Format(time.RFC3339),
	})
}

// Ready indica si la app puede atender tráfico (base alcanzable).
func (handler *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if handler.database == nil {
		httpx.Fail(w, r, http.StatusServiceUnavailable, "not_ready", "database pool not configured")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	if err := handler.database.Ping(ctx); err != nil {
		httpx.Fail(w, r, http.StatusServiceUnavailable, "not_ready", "database is not reachable")
		return
	}

	httpx.OK(w, r, http.StatusOK, map[string]any{
		"status": "ready",
		"time":   handler.now().UTC().Format(time.RFC3339),
	})
}

// ComponentStatus es el resultado del chequeo de una dependencia.
type ComponentStatus struct {
	OK         bool   `json:"ok"`
	Skipped    bool   `json:"skipped,omitempty"`
	DBName     string `json:"dbName,omitempty"`
	ServerTime string `json:"serverTime,omitempty"`
	Code       string `json:"code,omitempty"`
	Message    string `json:"message,omitempty"`
}

// ComponentsReport es el cuerpo de GET /health/components.
type ComponentsReport struct {
	OK            bool                       `json:"ok"`
	Status        string                     `json:"status"`
	Components    map[string]ComponentStatus `json:"components"`
	Version       string                     `json:"version"`
	UptimeSeconds int64                      `json:"uptimeSeconds"`
	Timestamp     string                     `json:"timestamp"`
	Message       string                     `json:"message"`
}

// Components chequea base y S3 en paralelo y siempre responde 200;
// el estado real va en el cuerpo para que el home page lo muestre.
func (handler *Handler) Components(w http.ResponseWriter, r *http.Request) {
	var database, bucket ComponentStatus

	group, ctx := errgroup.WithContext(r.Context())
	group.Go(func() error {
		database = handler.checkDatabase(ctx)
		return nil
	})
	group.Go(func() error {
		bucket = handler.checkBucket(ctx)
		return nil
	})
	_ = group.Wait()

	ok := database.OK && bucket.OK
	report := ComponentsReport{
		OK:     ok,
		Status: "ok",
		Components: map[string]ComponentStatus{
			"db": database,
			"s3": bucket,
		},
		Version:       handler.version,
		UptimeSeconds: int64(handler.now().Sub(handler.startedAt) / time.Second),
		Timestamp:     handler.now().UTC().Format(time.RFC3339Nano),
		Message:       "AWS connection successful",
	}
	if !ok {
		report.Status = "error"
		report.Message = "Health check failed"
	}

	httpx.NoStore(w)
	httpx.JSON(w, http.StatusOK, report)
}

func (handler *Handler) checkDatabase(parent context.Context) ComponentStatus {
	if handler.database == nil {
		return ComponentStatus{Code: "NOT_CONFIGURED", Message: "database pool not configured"}
	}

	ctx, cancel := context.WithTimeout(parent, handler.timeout)
	defer cancel()

	if err := handler.database.Ping(ctx); err != nil {
		return failure(ctx, "UNAVAILABLE", err)
	}

	status := ComponentStatus{OK: true}
	if querier, ok := handler.database.(rowQuerier); ok {
		var (
			name       string
			serverTime time.Time
		)
		if err := querier.QueryRow(ctx, "SELECT current_database(), now()").Scan(&name, &serverTime); err != nil {
			return failure(ctx, "QUERY_FAILED", err)
		}
		status.DBName = name
		status.ServerTime = serverTime.UTC().Format(time.RFC3339Nano)
	}
	return status
}

func (handler *Handler) checkBucket(parent context.Context) ComponentStatus {
	if handler.bucket == nil {
		return ComponentStatus{OK: true, Skipped: true}
	}

	ctx, cancel := context.WithTimeout(parent, handler.timeout)
	defer cancel()

	if err := handler.bucket.CheckBucket(ctx); err != nil {
		return failure(ctx, bucketErrorCode(err), err)
	}
	return ComponentStatus{OK: true}
}

func failure(ctx context.Context, code string, err error) ComponentStatus {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return ComponentStatus{Code: "TIMEOUT", Message: "Health check timed out"}
	}
	return ComponentStatus{Code: code, Message: err.Error()}
}
