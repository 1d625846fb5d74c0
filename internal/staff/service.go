package staff

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/Lelo88/nova-catalog-golang/internal/catalog"
)

// Errores de dominio (no HTTP). El handler los traduce a status codes.
var (
	ErrorInvalidInput = errors.New("invalid input")
	ErrorDuplicateSKU = errors.New("duplicate item sku")
	ErrorNotFound     = errors.New("item not found")
)

// Límites de paginación del listado de staff.
const (
	DefaultPageSize = 20
	MaxPageSize     = 1000
)

// RepositoryAPI es lo que el service necesita de la persistencia.
type RepositoryAPI interface {
	List(ctx context.Context, filter ListFilter) ([]catalog.Item, error)
	Count(ctx context.Context, filter ListFilter) (int, error)
	Subcategories(ctx context.Context, category string) ([]string, error)
	Types(ctx context.Context, category, subcategory string) ([]string, error)
	GetByID(ctx context.Context, id int64) (catalog.Item, error)
	Insert(ctx context.Context, input ItemInput) (catalog.Item, error)
	Update(ctx context.Context, id int64, input UpdateItemInput) (catalog.Item, error)
	Delete(ctx context.Context, id int64) error
}

// Service contiene las reglas de negocio del inventario.
type Service struct {
	repository RepositoryAPI
	logger     logrus.FieldLogger
}

// NewService crea un service de inventario.
func NewService(repository RepositoryAPI, logger logrus.FieldLogger) *Service {
	return &Service{repository: repository, logger: logger}
}

// List devuelve la página pedida y el total que cumple el filtro.
func (service *Service) List(ctx context.Context, filter ListFilter) ([]catalog.Item, int, error) {
	if filter.Limit < 1 || filter.Limit > MaxPageSize || filter.Offset < 0 {
		return nil, 0, ErrorInvalidInput
	}
	filter = normalizeFilter(filter)

	items, err := service.repository.List(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	total, err := service.repository.Count(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	return items, total, nil
}

// Count cuenta los items que cumplen el filtro (sin paginar).
func (service *Service) Count(ctx context.Context, filter ListFilter) (int, error) {
	return service.repository.Count(ctx, normalizeFilter(filter))
}

// Subcategories devuelve las subcategorías de una categoría. Sin categoría, lista vacía.
func (service *Service) Subcategories(ctx context.Context, category string) ([]string, error) {
	category = strings.TrimSpace(category)
	if category == "" {
		return []string{}, nil
	}
	return service.repository.Subcategories(ctx, category)
}

// Types devuelve los tipos de una categoría y subcategoría. Si falta alguna, lista vacía.
func (service *Service) Types(ctx context.Context, category, subcategory string) ([]string, error) {
	category = strings.TrimSpace(category)
	subcategory = strings.TrimSpace(subcategory)
	if category == "" || subcategory == "" {
		return []string{}, nil
	}
	return service.repository.Types(ctx, category, subcategory)
}

// Get obtiene un item por id.
func (service *Service) Get(ctx context.Context, id int64) (catalog.Item, error) {
	return service.repository.GetByID(ctx, id)
}

// Create valida reglas y crea el item en DB.
func (service *Service) Create(ctx context.Context, input ItemInput) (catalog.Item, error) {
	// Normalización mínima.
	input.ItemName = strings.TrimSpace(input.ItemName)
	input.SKU = strings.TrimSpace(input.SKU)

	// Validaciones de negocio (refuerzan constraints DB).
	if input.ItemName == "" || input.SKU == "" {
		return catalog.Item{}, fmt.Errorf("%w: itemName and sku are required", ErrorInvalidInput)
	}
	if err := validateAmounts(input.Price, input.UnitCost, input.QuantityInStock, input.ReorderLevel); err != nil {
		return catalog.Item{}, err
	}
	input.Price = roundMoney(input.Price)
	input.UnitCost = roundMoney(input.UnitCost)

	item, err := service.repository.Insert(ctx, input)
	if err != nil {
		return catalog.Item{}, err
	}

	service.logger.WithFields(logrus.Fields{"item_id": item.ID, "sku": input.SKU}).Info("inventory item created")
	return item, nil
}

// Update valida reglas y actualiza parcialmente un item.
func (service *Service) Update(ctx context.Context, id int64, input UpdateItemInput) (catalog.Item, error) {
	// Debe venir al menos un campo.
	if len(input.Present) == 0 {
		return catalog.Item{}, fmt.Errorf("%w: no fields to update", ErrorInvalidInput)
	}

	// itemName y sku se pueden cambiar pero no vaciar.
	if input.Has("itemName") {
		if input.ItemName == nil || strings.TrimSpace(*input.ItemName) == "" {
			return catalog.Item{}, fmt.Errorf("%w: itemName cannot be empty", ErrorInvalidInput)
		}
		name := strings.TrimSpace(*input.ItemName)
		input.ItemName = &name
	}
	if input.Has("sku") {
		if input.SKU == nil || strings.TrimSpace(*input.SKU) == "" {
			return catalog.Item{}, fmt.Errorf("%w: sku cannot be empty", ErrorInvalidInput)
		}
		sku := strings.TrimSpace(*input.SKU)
		input.SKU = &sku
	}

	if err := validateAmounts(input.Price, input.UnitCost, input.QuantityInStock, input.ReorderLevel); err != nil {
		return catalog.Item{}, err
	}
	input.Price = roundMoney(input.Price)
	input.UnitCost = roundMoney(input.UnitCost)

	item, err := service.repository.Update(ctx, id, input)
	if err != nil {
		return catalog.Item{}, err
	}

	service.logger.WithFields(logrus.Fields{"item_id": id, "fields": len(input.Present)}).Info("inventory item updated")
	return item, nil
}

// Delete elimina un item por id.
func (service *Service) Delete(ctx context.Context, id int64) error {
	if err := service.repository.Delete(ctx, id); err != nil {
		return err
	}
	service.logger.WithField("item_id", id).Info("inventory item deleted")
	return nil
}

func normalizeFilter(filter ListFilter) ListFilter {
	filter.Category = strings.TrimSpace(filter.Category)
	filter.Subcategory = strings.TrimSpace(filter.Subcategory)
	filter.Type = strings.TrimSpace(filter.Type)
	filter.Query = strings.TrimSpace(filter.Query)
	filter.Sort = strings.TrimSpace(filter.Sort)
	return filter
}

func validateAmounts(price, unitCost *catalog.Money, quantities ...*int) error {
	if price != nil && price.IsNegative() {
		return fmt.Errorf("%w: price must not be negative", ErrorInvalidInput)
	}
	if unitCost != nil && unitCost.IsNegative() {
		return fmt.Errorf("%w: unitCost must not be negative", ErrorInvalidInput)
	}
	for _, quantity := range quantities {
		if quantity != nil && *quantity < 0 {
			return fmt.Errorf("%w: quantities must not be negative", ErrorInvalidInput)
		}
	}
	return nil
}

// roundMoney deja los montos en 2 decimales, como numeric(10,2).
func roundMoney(money *catalog.Money) *catalog.Money {
	if money == nil {
		return nil
	}
	rounded := catalog.Money{Decimal: money.Round(2)}
	return &rounded
}
