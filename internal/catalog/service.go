package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Errores de dominio (no HTTP). El handler los traduce a status codes.
var (
	ErrorNotFound      = errors.New("catalog item not found")
	ErrorCorruptedData = errors.New("catalog item has corrupted data")
)

const searchFailedMessage = "Unable to retrieve catalog items. Please try again later."

// DefaultPrimaryTimeout acota la consulta a la base para que quede tiempo para el upstream.
const DefaultPrimaryTimeout = 3 * time.Second

// Store es la fuente primaria (base de datos).
type Store interface {
	Search(ctx context.Context, query Query) ([]Item, int, error)
	GetByID(ctx context.Context, id int64) (Item, error)
}

// Fallback es la fuente secundaria (upstream HTTP).
type Fallback interface {
	Search(ctx context.Context, query Query) (UpstreamResponse, error)
}

// Service resuelve consultas del catálogo: primero la base, después el upstream.
type Service struct {
	options        Options
	store          Store
	fallback       Fallback
	logger         logrus.FieldLogger
	exposeDetails  bool
	primaryTimeout time.Duration
}

// ServiceOption configura un Service.
type ServiceOption func(*Service)

// WithErrorDetails agrega el error interno en las respuestas. Solo para desarrollo.
func WithErrorDetails(enabled bool) ServiceOption {
	return func(service *Service) {
		service.exposeDetails = enabled
	}
}

// WithPrimaryTimeout cambia el límite de la consulta primaria. 0 lo desactiva.
func WithPrimaryTimeout(timeout time.Duration) ServiceOption {
	return func(service *Service) {
		service.primaryTimeout = timeout
	}
}

// NewService crea el service. fallback puede ser nil.
func NewService(options Options, store Store, fallback Fallback, logger logrus.FieldLogger, opts ...ServiceOption) *Service {
	service := &Service{
		options:        options,
		store:          store,
		fallback:       fallback,
		logger:         logger,
		primaryTimeout: DefaultPrimaryTimeout,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

// ParseQuery valida los parámetros con la configuración del service.
func (service *Service) ParseQuery(values url.Values) Query {
	return service.options.ParseQuery(values)
}

// ExposesDetails indica si las respuestas de error pueden llevar el detalle interno.
func (service *Service) ExposesDetails() bool {
	return service.exposeDetails
}

// Search ejecuta TryPrimary → (ok: Done) | (falla: TryFallback → Done).
// Nunca devuelve error: las fallas se expresan en el Result.
func (service *Service) Search(ctx context.Context, query Query) Result {
	items, total, err := service.searchPrimary(ctx, query)
	if err == nil {
		return OK(newPage(items, total, query.Limit, query.Offset))
	}

	log := service.logger.WithFields(logrus.Fields{
		"limit":         query.Limit,
		"offset":        query.Offset,
		"categories":    len(query.Categories),
		"price_buckets": len(query.PriceBuckets),
	})
	log.WithError(err).Warn("catalog database query failed, trying upstream")

	if service.fallback == nil {
		return service.failed(http.StatusInternalServerError, query, errors.Join(err, ErrorUpstreamNotConfigured))
	}

	fallbackCtx, cancel := detachedFromDeadline(ctx)
	defer cancel()

	response, fallbackErr := service.fallback.Search(fallbackCtx, query)
	if fallbackErr != nil {
		status := http.StatusBadGateway
		if errors.Is(fallbackErr, ErrorUpstreamNotConfigured) {
			status = http.StatusInternalServerError
		}
		log.WithError(fallbackErr).Error("catalog upstream fallback failed")
		return service.failed(status, query, fmt.Errorf("database: %w; upstream: %w", err, fallbackErr))
	}

	if response.Raw != nil {
		log.WithField("status", response.Raw.Status).Warn("catalog served raw upstream response")
		return DegradedRaw(SourceUpstream, *response.Raw)
	}

	log.WithField("count", response.Page.Count).Info("catalog served from upstream")
	return Degraded(SourceUpstream, *response.Page)
}

func (service *Service) searchPrimary(ctx context.Context, query Query) ([]Item, int, error) {
	if service.primaryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, service.primaryTimeout)
		defer cancel()
	}
	return service.store.Search(ctx, query)
}

// detachedFromDeadline devuelve un contexto para el upstream que ignora el deadline
// del request (la base pudo haberlo consumido) pero se cancela si el cliente se desconecta.
// El upstream tiene su propio timeout.
func detachedFromDeadline(ctx context.Context) (context.Context, context.CancelFunc) {
	detached, cancel := context.WithCancel(context.WithoutCancel(ctx))
	if errors.Is(ctx.Err(), context.Canceled) {
		cancel()
	}
	stop := context.AfterFunc(ctx, func() {
		if errors.Is(ctx.Err(), context.Canceled) {
			cancel()
		}
	})
	return detached, func() {
		stop()
		cancel()
	}
}

func (service *Service) failed(status int, query Query, err error) Result {
	details := ""
	if service.exposeDetails {
		details = err.Error()
	}
	return Failed(status, failedPage(query.Limit, query.Offset, searchFailedMessage, details), err)
}

// Get obtiene un item y verifica que tenga los datos mínimos para mostrarse.
func (service *Service) Get(ctx context.Context, id int64) (Item, error) {
	item, err := service.store.GetByID(ctx, id)
	if err != nil {
		return Item{}, err
	}

	if missing := item.MissingRequired(); len(missing) > 0 {
		service.logger.WithFields(logrus.Fields{
			"item_id": id,
			"missing": missing,
		}).Warn("catalog item has corrupted data")
		return Item{}, fmt.Errorf("%w: missing %s", ErrorCorruptedData, strings.Join(missing, ", "))
	}

	return item, nil
}
