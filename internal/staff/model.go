package staff

import (
	"github.com/Lelo88/nova-catalog-golang/internal/catalog"
)

// ItemInput es el payload de alta de un item de inventario.
// Los campos opcionales son punteros: ausente y null se guardan como NULL.
type ItemInput struct {
	SKU               string         `json:"sku"`
	ItemName          string         `json:"itemName"`
	Price             *catalog.Money `json:"price"`
	Category1         *string        `json:"category1"`
	Category2         *string        `json:"category2"`
	Category3         *string        `json:"category3"`
	Description       *string        `json:"description"`
	QuantityInStock   *int           `json:"quantityInStock"`
	UnitOfMeasure     *string        `json:"unitOfMeasure"`
	ImageURL          *string        `json:"imageUrl"`
	StorageLocation   *string        `json:"storageLocation"`
	StorageConditions *string        `json:"storageConditions"`
	ExpirationDate    *catalog.Date  `json:"expirationDate"`
	DateAcquired      *catalog.Date  `json:"dateAcquired"`
	ReorderLevel      *int           `json:"reorderLevel"`
	UnitCost          *catalog.Money `json:"unitCost"`
}

// UpdateItemInput es un PATCH parcial.
// Present dice qué campos mandó el cliente: un campo presente con valor nil se limpia (NULL),
// uno ausente no se toca.
type UpdateItemInput struct {
	SKU               *string        `json:"sku"`
	ItemName          *string        `json:"itemName"`
	Price             *catalog.Money `json:"price"`
	Category1         *string        `json:"category1"`
	Category2         *string        `json:"category2"`
	Category3         *string        `json:"category3"`
	Description       *string        `json:"description"`
	QuantityInStock   *int           `json:"quantityInStock"`
	UnitOfMeasure     *string        `json:"unitOfMeasure"`
	ImageURL          *string        `json:"imageUrl"`
	StorageLocation   *string        `json:"storageLocation"`
	StorageConditions *string        `json:"storageConditions"`
	ExpirationDate    *catalog.Date  `json:"expirationDate"`
	DateAcquired      *catalog.Date  `json:"dateAcquired"`
	ReorderLevel      *int           `json:"reorderLevel"`
	UnitCost          *catalog.Money `json:"unitCost"`

	Present map[string]bool `json:"-"`
}

// Has indica si el cliente mandó el campo (por nombre JSON).
func (input UpdateItemInput) Has(field string) bool {
	return input.Present[field]
}

// ListFilter son los filtros del listado de staff.
// Category, Subcategory y Type corresponden a category3, category2 y category1.
type ListFilter struct {
	Category    string
	Subcategory string
	Type        string
	Query       string
	Sort        string
	Limit       int
	Offset      int
}

// assignment es una columna a escribir con su valor ya convertido para pgx.
type assignment struct {
	column string
	value  any
}

// editableFields mapea el nombre JSON de cada campo editable a su columna.
var editableFields = []struct {
	field  string
	column string
	cast   string
}{
	{"sku", "sku", ""},
	{"itemName", "item_name", ""},
	{"price", "price", "::numeric"},
	{"category1", "category1", ""},
	{"category2", "category2", ""},
	{"category3", "category3", ""},
	{"description", "description", ""},
	{"quantityInStock", "quantity_in_stock", ""},
	{"unitOfMeasure", "unit_of_measure", ""},
	{"imageUrl", "image_url", ""},
	{"storageLocation", "storage_location", ""},
	{"storageConditions", "storage_conditions", ""},
	{"expirationDate", "expiration_date", "::date"},
	{"dateAcquired", "date_acquired", "::date"},
	{"reorderLevel", "reorder_level", ""},
	{"unitCost", "unit_cost", "::numeric"},
}

// IsEditable indica si field es un campo que se puede mandar en un PATCH.
func IsEditable(field string) bool {
	for _, editable := range editableFields {
		if editable.field == field {
			return true
		}
	}
	return false
}

// values devuelve el valor de cada campo editable del alta, en el orden de editableFields.
func (input ItemInput) values() map[string]any {
	return map[string]any{
		"sku":               input.SKU,
		"itemName":          input.ItemName,
		"price":             moneyArg(input.Price),
		"category1":         input.Category1,
		"category2":         input.Category2,
		"category3":         input.Category3,
		"description":       input.Description,
		"quantityInStock":   input.QuantityInStock,
		"unitOfMeasure":     input.UnitOfMeasure,
		"imageUrl":          input.ImageURL,
		"storageLocation":   input.StorageLocation,
		"storageConditions": input.StorageConditions,
		"expirationDate":    dateArg(input.ExpirationDate),
		"dateAcquired":      dateArg(input.DateAcquired),
		"reorderLevel":      input.ReorderLevel,
		"unitCost":          moneyArg(input.UnitCost),
	}
}

func (input UpdateItemInput) values() map[string]any {
	return map[string]any{
		"sku":               input.SKU,
		"itemName":          input.ItemName,
		"price":             moneyArg(input.Price),
		"category1":         input.Category1,
		"category2":         input.Category2,
		"category3":         input.Category3,
		"description":       input.Description,
		"quantityInStock":   input.QuantityInStock,
		"unitOfMeasure":     input.UnitOfMeasure,
		"imageUrl":          input.ImageURL,
		"storageLocation":   input.StorageLocation,
		"storageConditions": input.StorageConditions,
		"expirationDate":    dateArg(input.ExpirationDate),
		"dateAcquired":      dateArg(input.DateAcquired),
		"reorderLevel":      input.ReorderLevel,
		"unitCost":          moneyArg(input.UnitCost),
	}
}

// assignments arma la lista de columnas presentes en el PATCH.
func (input UpdateItemInput) assignments() []assignment {
	values := input.values()
	var out []assignment
	for _, editable := range editableFields {
		if !input.Has(editable.field) {
			continue
		}
		out = append(out, assignment{column: editable.column, value: values[editable.field]})
	}
	return out
}

// Los montos viajan como texto y las fechas como YYYY-MM-DD; Postgres castea.
func moneyArg(money *catalog.Money) *string {
	if money == nil {
		return nil
	}
	value := money.StringFixed(2)
	return &value
}

func dateArg(date *catalog.Date) *string {
	if date == nil {
		return nil
	}
	value := date.Format("2006-01-02")
	return &value
}
