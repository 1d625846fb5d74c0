package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/Lelo88/nova-catalog-golang/internal/httpx"
)

// ServiceAPI define lo que el handler necesita.
// Permite testear handlers con stubs sin tocar DB ni upstream.
type ServiceAPI interface {
	ParseQuery(values url.Values) Query
	Search(ctx context.Context, query Query) Result
	Get(ctx context.Context, id int64) (Item, error)
	ExposesDetails() bool
}

// Handler HTTP del catálogo público.
type Handler struct {
	service ServiceAPI
}

// NewHandler crea un handler de catálogo.
func NewHandler(service ServiceAPI) *Handler {
	return &Handler{service: service}
}

// List maneja GET /catalog.
// Responde siempre el contrato {success, data, count, totalCount, limit, offset}.
func (handler *Handler) List(writer http.ResponseWriter, request *http.Request) {
	query := handler.service.ParseQuery(request.URL.Query())
	result := handler.service.Search(request.Context(), query)

	httpx.NoStore(writer)
	if result.Source != "" {
		writer.Header().Set("X-Catalog-Source", string(result.Source))
	}

	// Respuesta del upstream que no es JSON: se devuelve sin tocar.
	if result.Raw != nil {
		writer.Header().Set("Content-Type", result.Raw.ContentType)
		writer.WriteHeader(result.Raw.Status)
		_, _ = writer.Write(result.Raw.Body)
		return
	}

	httpx.JSON(writer, result.Status, result.Page)
}

// GetByID maneja GET /catalog/{id}.
func (handler *Handler) GetByID(writer http.ResponseWriter, request *http.Request) {
	httpx.NoStore(writer)

	id, err := strconv.ParseInt(chi.URLParam(request, "id"), 10, 64)
	if err != nil || id < 1 {
		httpx.Fail(writer, request, http.StatusBadRequest, "invalid_id", "Invalid item ID. ID must be a number.")
		return
	}

	item, err := handler.service.Get(request.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, ErrorNotFound):
			httpx.Fail(writer, request, http.StatusNotFound, "not_found", fmt.Sprintf("Catalog item with ID %d not found.", id))
		case errors.Is(err, ErrorCorruptedData):
			httpx.Fail(writer, request, http.StatusUnprocessableEntity, "corrupted_data", "Catalog item data is incomplete.")
		default:
			details := ""
			if handler.service.ExposesDetails() {
				details = err.Error()
			}
			httpx.FailWithDetails(writer, request, http.StatusInternalServerError, "internal_error",
				"Unable to retrieve catalog item. Please try again later.", details)
		}
		return
	}

	httpx.OK(writer, request, http.StatusOK, item)
}
