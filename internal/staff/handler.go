package staff

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Lelo88/nova-catalog-golang/internal/catalog"
	"github.com/Lelo88/nova-catalog-golang/internal/httpx"
)

// ServiceAPI define lo que el handler necesita.
// Permite testear handlers con stubs sin tocar DB.
type ServiceAPI interface {
	List(ctx context.Context, filter ListFilter) ([]catalog.Item, int, error)
	Count(ctx context.Context, filter ListFilter) (int, error)
	Subcategories(ctx context.Context, category string) ([]string, error)
	Types(ctx context.Context, category, subcategory string) ([]string, error)
	Get(ctx context.Context, id int64) (catalog.Item, error)
	Create(ctx context.Context, input ItemInput) (catalog.Item, error)
	Update(ctx context.Context, id int64, input UpdateItemInput) (catalog.Item, error)
	Delete(ctx context.Context, id int64) error
}

// Handler HTTP de las herramientas de staff.
// Solo traduce HTTP <-> dominio (service).
type Handler struct {
	service ServiceAPI
}

// NewHandler crea un handler de staff.
func NewHandler(service ServiceAPI) *Handler {
	return &Handler{service: service}
}

type pagination struct {
	PageSize int `json:"pageSize"`
	Offset   int `json:"offset"`
	Total    int `json:"total"`
}

// List maneja GET /staff/items.
func (handler *Handler) List(writer http.ResponseWriter, request *http.Request) {
	filter := parseFilter(request)
	filter.Limit, filter.Offset = parsePagination(request)

	items, total, err := handler.service.List(request.Context(), filter)
	if err != nil {
		handler.fail(writer, request, err)
		return
	}

	httpx.NoStore(writer)
	httpx.OK(writer, request, http.StatusOK, map[string]any{
		"items": items,
		"pagination": pagination{
			PageSize: filter.Limit,
			Offset:   filter.Offset,
			Total:    total,
		},
	})
}

// Count maneja GET /staff/items/count.
func (handler *Handler) Count(writer http.ResponseWriter, request *http.Request) {
	count, err := handler.service.Count(request.Context(), parseFilter(request))
	if err != nil {
		handler.fail(writer, request, err)
		return
	}

	httpx.NoStore(writer)
	httpx.OK(writer, request, http.StatusOK, map[string]int{"count": count})
}

// Subcategories maneja GET /staff/subcategories?category=.
func (handler *Handler) Subcategories(writer http.ResponseWriter, request *http.Request) {
	subcategories, err := handler.service.Subcategories(request.Context(), request.URL.Query().Get("category"))
	if err != nil {
		handler.fail(writer, request, err)
		return
	}

	httpx.OK(writer, request, http.StatusOK, map[string][]string{"subcategories": subcategories})
}

// Types maneja GET /staff/types?category=&subcategory=.
func (handler *Handler) Types(writer http.ResponseWriter, request *http.Request) {
	query := request.URL.Query()
	types, err := handler.service.Types(request.Context(), query.Get("category"), query.Get("subcategory"))
	if err != nil {
		handler.fail(writer, request, err)
		return
	}

	httpx.OK(writer, request, http.StatusOK, map[string][]string{"types": types})
}

// GetByID maneja GET /staff/items/{id}.
func (handler *Handler) GetByID(writer http.ResponseWriter, request *http.Request) {
	id, ok := parseID(writer, request)
	if !ok {
		return
	}

	item, err := handler.service.Get(request.Context(), id)
	if err != nil {
		handler.fail(writer, request, err)
		return
	}

	httpx.NoStore(writer)
	httpx.OK(writer, request, http.StatusOK, item)
}

// Create maneja POST /staff/items.
func (handler *Handler) Create(writer http.ResponseWriter, request *http.Request) {
	var input ItemInput
	if err := json.NewDecoder(request.Body).Decode(&input); err != nil {
		httpx.Fail(writer, request, http.StatusBadRequest, "invalid_json", "invalid JSON body")
		return
	}

	item, err := handler.service.Create(request.Context(), input)
	if err != nil {
		handler.fail(writer, request, err)
		return
	}

	httpx.OK(writer, request, http.StatusCreated, item)
}

// Patch maneja PATCH /staff/items/{id}.
func (handler *Handler) Patch(writer http.ResponseWriter, request *http.Request) {
	id, ok := parseID(writer, request)
	if !ok {
		return
	}

	// Primero leemos raw para saber qué campos vinieron.
	var raw map[string]json.RawMessage
	if err := json.NewDecoder(request.Body).Decode(&raw); err != nil {
		httpx.Fail(writer, request, http.StatusBadRequest, "invalid_json", "invalid JSON body")
		return
	}

	present := make(map[string]bool, len(raw))
	for field := range raw {
		if !IsEditable(field) {
			httpx.Fail(writer, request, http.StatusBadRequest, "invalid_input", "unknown field: "+field)
			return
		}
		present[field] = true
	}

	// Re-encode y decode al struct para reutilizar tags y tipos.
	encoded, _ := json.Marshal(raw)

	var input UpdateItemInput
	if err := json.Unmarshal(encoded, &input); err != nil {
		httpx.Fail(writer, request, http.StatusBadRequest, "invalid_json", "invalid JSON body")
		return
	}
	input.Present = present

	item, err := handler.service.Update(request.Context(), id, input)
	if err != nil {
		handler.fail(writer, request, err)
		return
	}

	httpx.OK(writer, request, http.StatusOK, item)
}

// Delete maneja DELETE /staff/items/{id}.
func (handler *Handler) Delete(writer http.ResponseWriter, request *http.Request) {
	id, ok := parseID(writer, request)
	if !ok {
		return
	}

	if err := handler.service.Delete(request.Context(), id); err != nil {
		handler.fail(writer, request, err)
		return
	}

	// 204 No Content: respuesta vacía.
	writer.WriteHeader(http.StatusNoContent)
}

func (handler *Handler) fail(writer http.ResponseWriter, request *http.Request, err error) {
	switch {
	case errors.Is(err, ErrorInvalidInput):
		httpx.Fail(writer, request, http.StatusBadRequest, "invalid_input", err.Error())
	case errors.Is(err, ErrorNotFound):
		httpx.Fail(writer, request, http.StatusNotFound, "not_found", "item not found")
	case errors.Is(err, ErrorDuplicateSKU):
		httpx.Fail(writer, request, http.StatusConflict, "conflict", "item sku already exists")
	default:
		// No filtramos detalles internos.
		httpx.Fail(writer, request, http.StatusInternalServerError, "internal_error", "unexpected error")
	}
}

func parseID(writer http.ResponseWriter, request *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(request, "id"), 10, 64)
	if err != nil || id < 1 {
		httpx.Fail(writer, request, http.StatusBadRequest, "invalid_id", "id must be a positive integer")
		return 0, false
	}
	return id, true
}

func parseFilter(request *http.Request) ListFilter {
	query := request.URL.Query()
	return ListFilter{
		Category:    query.Get("category"),
		Subcategory: query.Get("subcategory"),
		Type:        query.Get("type"),
		Query:       query.Get("q"),
		Sort:        query.Get("sort"),
	}
}

// parsePagination es permisivo: valores inválidos caen al default y pageSize se recorta al máximo.
func parsePagination(request *http.Request) (int, int) {
	query := request.URL.Query()

	pageSize := DefaultPageSize
	if value, err := strconv.Atoi(strings.TrimSpace(query.Get("pageSize"))); err == nil && value > 0 {
		pageSize = min(value, MaxPageSize)
	}

	offset := 0
	if value, err := strconv.Atoi(strings.TrimSpace(query.Get("offset"))); err == nil && value > 0 {
		offset = value
	}

	return pageSize, offset
}
