package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
)

// DB es lo que el repositorio necesita de pgxpool.Pool.
type DB interface {
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository lee la tabla catalog_items. Nunca escribe.
type Repository struct {
	database DB
}

// NewRepository crea un repositorio de catálogo.
func NewRepository(database DB) *Repository {
	return &Repository{database: database}
}

// ItemColumns es la proyección de catalog_items en el orden que espera ScanItem.
// Los montos salen como texto para no perder precisión en el camino.
const ItemColumns = `id, sku, item_name, price::text, category1, category2, category3, description,
	quantity_in_stock, unit_of_measure, image_url, storage_location, storage_conditions,
	expiration_date, date_acquired, reorder_level, unit_cost::text`

// snapshot: count y página ven exactamente los mismos datos aunque haya escrituras concurrentes.
var snapshot = pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly}

// Search devuelve la página pedida y el total de filas que cumplen el filtro.
// Orden estable por id para que la paginación no salte filas.
func (repository *Repository) Search(ctx context.Context, query Query) ([]Item, int, error) {
	where, args := buildFilter(query)

	tx, err := repository.database.BeginTx(ctx, snapshot)
	if err != nil {
		return nil, 0, fmt.Errorf("begin catalog snapshot: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var total int
	if err := tx.QueryRow(ctx, "SELECT COUNT(*) FROM catalog_items"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count catalog items: %w", err)
	}

	items := []Item{}
	if total > query.Offset {
		pageArgs := append(append([]any{}, args...), query.Limit, query.Offset)
		pageSQL := fmt.Sprintf("SELECT %s FROM catalog_items%s ORDER BY id ASC LIMIT $%d OFFSET $%d",
			ItemColumns, where, len(args)+1, len(args)+2)

		rows, err := tx.Query(ctx, pageSQL, pageArgs...)
		if err != nil {
			return nil, 0, fmt.Errorf("list catalog items: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			item, err := ScanItem(rows)
			if err != nil {
				return nil, 0, fmt.Errorf("scan catalog item: %w", err)
			}
			items = append(items, item)
		}
		if err := rows.Err(); err != nil {
			return nil, 0, fmt.Errorf("iterate catalog items: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, 0, fmt.Errorf("commit catalog snapshot: %w", err)
	}

	return items, total, nil
}

// GetByID obtiene un item. Devuelve ErrorNotFound si no existe.
func (repository *Repository) GetByID(ctx context.Context, id int64) (Item, error) {
	row := repository.database.QueryRow(ctx, "SELECT "+ItemColumns+" FROM catalog_items WHERE id = $1", id)

	item, err := ScanItem(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Item{}, ErrorNotFound
		}
		return Item{}, err
	}
	return item, nil
}

// ScanItem mapea una fila con ItemColumns a Item.
func ScanItem(row pgx.Row) (Item, error) {
	var (
		item           Item
		price          *string
		unitCost       *string
		expirationDate *time.Time
		dateAcquired   *time.Time
	)

	err := row.Scan(
		&item.ID, &item.SKU, &item.ItemName, &price,
		&item.Category1, &item.Category2, &item.Category3, &item.Description,
		&item.QuantityInStock, &item.UnitOfMeasure, &item.ImageURL,
		&item.StorageLocation, &item.StorageConditions,
		&expirationDate, &dateAcquired, &item.ReorderLevel, &unitCost,
	)
	if err != nil {
		return Item{}, err
	}

	if item.Price, err = moneyFromText(price); err != nil {
		return Item{}, fmt.Errorf("price: %w", err)
	}
	if item.UnitCost, err = moneyFromText(unitCost); err != nil {
		return Item{}, fmt.Errorf("unit cost: %w", err)
	}
	item.ExpirationDate = dateFromTime(expirationDate)
	item.DateAcquired = dateFromTime(dateAcquired)

	return item, nil
}

func moneyFromText(value *string) (*Money, error) {
	if value == nil {
		return nil, nil
	}
	money, err := NewMoney(*value)
	if err != nil {
		return nil, err
	}
	return &money, nil
}

func dateFromTime(value *time.Time) *Date {
	if value == nil {
		return nil
	}
	return &Date{Time: *value}
}

// buildFilter arma el WHERE. Texto, categorías y precio se combinan con AND;
// dentro de categorías y de rangos de precio se combinan con OR.
func buildFilter(query Query) (string, []any) {
	var (
		clauses []string
		args    []any
	)

	nextArg := func(value any) string {
		args = append(args, value)
		return fmt.Sprintf("$%d", len(args))
	}

	if query.Text != "" {
		p := nextArg(ContainsPattern(query.Text))
		clauses = append(clauses, fmt.Sprintf(
			`(item_name ILIKE %s ESCAPE '\' OR sku ILIKE %s ESCAPE '\' OR description ILIKE %s ESCAPE '\')`,
			p, p, p))
	}

	if len(query.Categories) > 0 {
		p := nextArg(query.Categories)
		clauses = append(clauses, fmt.Sprintf(
			"(category1 = ANY(%s) OR category2 = ANY(%s) OR category3 = ANY(%s))", p, p, p))
	}

	if len(query.PriceBuckets) > 0 {
		ranges := make([]string, 0, len(query.PriceBuckets))
		for _, bucket := range query.PriceBuckets {
			var bounds []string
			if bucket.Min != nil {
				bounds = append(bounds, "price >= "+nextArg(bucket.Min.String())+"::numeric")
			}
			if bucket.Max != nil {
				bounds = append(bounds, "price <= "+nextArg(bucket.Max.String())+"::numeric")
			}
			ranges = append(ranges, "("+strings.Join(bounds, " AND ")+")")
		}
		clauses = append(clauses, "("+strings.Join(ranges, " OR ")+")")
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}
