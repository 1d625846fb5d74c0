package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Item representa un registro de catalog_items tal como lo consume el storefront.
// Las columnas que pueden venir NULL se modelan como punteros: NULL no es lo mismo que 0.
type Item struct {
	ID                int64   `json:"id"`
	SKU               *string `json:"sku"`
	ItemName          string  `json:"itemName"`
	Price             *Money  `json:"price"`
	Category1         *string `json:"category1"`
	Category2         *string `json:"category2"`
	Category3         *string `json:"category3"`
	Description       *string `json:"description"`
	QuantityInStock   *int    `json:"quantityInStock"`
	UnitOfMeasure     *string `json:"unitOfMeasure"`
	ImageURL          *string `json:"imageUrl"`
	StorageLocation   *string `json:"storageLocation"`
	StorageConditions *string `json:"storageConditions"`
	ExpirationDate    *Date   `json:"expirationDate"`
	DateAcquired      *Date   `json:"dateAcquired"`
	ReorderLevel      *int    `json:"reorderLevel"`
	UnitCost          *Money  `json:"unitCost"`
}

// MissingRequired devuelve los campos obligatorios para mostrar el item que vinieron vacíos.
func (item Item) MissingRequired() []string {
	var missing []string
	if strings.TrimSpace(item.ItemName) == "" {
		missing = append(missing, "itemName")
	}
	if item.SKU == nil || strings.TrimSpace(*item.SKU) == "" {
		missing = append(missing, "sku")
	}
	return missing
}

// Money es un monto monetario con precisión decimal.
// Se serializa siempre como string con 2 decimales ("18.50"), igual que numeric(10,2).
type Money struct {
	decimal.Decimal
}

// NewMoney parsea un monto en formato decimal ("18.5", "18.50").
func NewMoney(value string) (Money, error) {
	parsed, err := decimal.NewFromString(strings.TrimSpace(value))
	if err != nil {
		return Money{}, err
	}
	return Money{Decimal: parsed}, nil
}

// MarshalJSON fija la representación a 2 decimales.
func (money Money) MarshalJSON() ([]byte, error) {
	return []byte(`"` + money.StringFixed(2) + `"`), nil
}

// Date es una fecha de calendario (sin hora), serializada como "2006-01-02".
type Date struct {
	time.Time
}

const dateLayout = "2006-01-02"

// MarshalJSON serializa solo la parte de fecha.
func (date Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + date.Format(dateLayout) + `"`), nil
}

// UnmarshalJSON acepta "2006-01-02" o un timestamp RFC 3339 (lo que devuelve el upstream).
func (date *Date) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}

	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("date must be a string: %w", err)
	}

	raw = strings.TrimSpace(raw)
	for _, layout := range []string{dateLayout, time.RFC3339Nano, time.RFC3339} {
		if parsed, err := time.Parse(layout, raw); err == nil {
			date.Time = parsed.UTC().Truncate(24 * time.Hour)
			return nil
		}
	}
	return fmt.Errorf("invalid date %q", raw)
}

// Page es el contrato uniforme de GET /catalog, sin importar la fuente de datos.
type Page struct {
	Success    bool   `json:"success"`
	Data       []Item `json:"data"`
	Count      int    `json:"count"`
	TotalCount int    `json:"totalCount"`
	Limit      int    `json:"limit"`
	Offset     int    `json:"offset"`
	Error      string `json:"error,omitempty"`
	Details    string `json:"details,omitempty"`
}

// newPage arma una página exitosa; count siempre refleja len(data).
func newPage(items []Item, totalCount, limit, offset int) Page {
	if items == nil {
		items = []Item{}
	}
	return Page{
		Success:    true,
		Data:       items,
		Count:      len(items),
		TotalCount: totalCount,
		Limit:      limit,
		Offset:     offset,
	}
}

// failedPage arma la forma de error: data vacía y contadores en cero.
func failedPage(limit, offset int, message, details string) Page {
	return Page{
		Success:    false,
		Data:       []Item{},
		Count:      0,
		TotalCount: 0,
		Limit:      limit,
		Offset:     offset,
		Error:      message,
		Details:    details,
	}
}
