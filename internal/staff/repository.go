package staff

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/Lelo88/nova-catalog-golang/internal/catalog"
)

// DB abstrae el pool de pgx para poder testear el repositorio sin base.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Repository accede a catalog_items para las herramientas de staff.
// Contiene SQL y mapeo DB → modelo.
type Repository struct {
	database DB
}

// NewRepository crea un repositorio de inventario.
func NewRepository(database DB) *Repository {
	return &Repository{database: database}
}

// Códigos de Postgres que mapeamos a errores de dominio.
const (
	uniqueViolation  = "23505"
	checkViolation   = "23514"
	notNullViolation = "23502"
)

// sortColumns es la lista blanca de ordenamientos administrativos (nombre JSON → columna).
var sortColumns = map[string]string{
	"id":              "id",
	"sku":             "sku",
	"itemName":        "item_name",
	"price":           "price",
	"category1":       "category1",
	"category2":       "category2",
	"category3":       "category3",
	"quantityInStock": "quantity_in_stock",
	"expirationDate":  "expiration_date",
	"dateAcquired":    "date_acquired",
	"reorderLevel":    "reorder_level",
	"unitCost":        "unit_cost",
}

// orderBy traduce "campo" o "-campo" a un ORDER BY seguro. Siempre desempata por id.
func orderBy(sort string) (string, error) {
	sort = strings.TrimSpace(sort)
	if sort == "" {
		return "id ASC", nil
	}

	direction := "ASC"
	if strings.HasPrefix(sort, "-") {
		direction = "DESC"
		sort = sort[1:]
	}

	column, ok := sortColumns[sort]
	if !ok {
		return "", fmt.Errorf("%w: unknown sort field %q", ErrorInvalidInput, sort)
	}
	if column == "id" {
		return "id " + direction, nil
	}
	return fmt.Sprintf("%s %s NULLS LAST, id ASC", column, direction), nil
}

// buildFilter arma el WHERE del listado. Todos los filtros se combinan con AND.
func buildFilter(filter ListFilter) (string, []any) {
	var (
		clauses []string
		args    []any
	)

	add := func(format string, value any) {
		args = append(args, value)
		clauses = append(clauses, strings.ReplaceAll(format, "?", fmt.Sprintf("$%d", len(args))))
	}

	if filter.Category != "" {
		add("category3 = ?", filter.Category)
	}
	if filter.Subcategory != "" {
		add("category2 = ?", filter.Subcategory)
	}
	if filter.Type != "" {
		add("category1 = ?", filter.Type)
	}
	if filter.Query != "" {
		add(`(item_name ILIKE ? ESCAPE '\' OR sku ILIKE ? ESCAPE '\')`, catalog.ContainsPattern(filter.Query))
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// List devuelve una página del inventario.
func (repository *Repository) List(ctx context.Context, filter ListFilter) ([]catalog.Item, error) {
	order, err := orderBy(filter.Sort)
	if err != nil {
		return nil, err
	}

	where, args := buildFilter(filter)
	args = append(args, filter.Limit, filter.Offset)
	query := fmt.Sprintf("SELECT %s FROM catalog_items%s ORDER BY %s LIMIT $%d OFFSET $%d",
		catalog.ItemColumns, where, order, len(args)-1, len(args))

	rows, err := repository.database.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]catalog.Item, 0)
	for rows.Next() {
		item, err := catalog.ScanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return items, nil
}

// Count devuelve cuántos items cumplen el filtro.
func (repository *Repository) Count(ctx context.Context, filter ListFilter) (int, error) {
	where, args := buildFilter(filter)

	var total int
	if err := repository.database.QueryRow(ctx, "SELECT COUNT(*) FROM catalog_items"+where, args...).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

// Subcategories lista los category2 distintos de una categoría (category3), ordenados.
func (repository *Repository) Subcategories(ctx context.Context, category string) ([]string, error) {
	const query = `
		SELECT DISTINCT category2
		FROM catalog_items
		WHERE category3 = $1 AND category2 IS NOT NULL AND category2 <> ''
		ORDER BY category2 ASC;
	`
	return repository.distinct(ctx, query, category)
}

// Types lista los category1 distintos de una categoría y subcategoría, ordenados.
func (repository *Repository) Types(ctx context.Context, category, subcategory string) ([]string, error) {
	const query = `
		SELECT DISTINCT category1
		FROM catalog_items
		WHERE category3 = $1 AND category2 = $2 AND category1 IS NOT NULL AND category1 <> ''
		ORDER BY category1 ASC;
	`
	return repository.distinct(ctx, query, category, subcategory)
}

func (repository *Repository) distinct(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := repository.database.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	values := make([]string, 0)
	for rows.Next() {
		var value string
		if err := rows.Scan(&value); err != nil {
			return nil, err
		}
		values = append(values, value)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return values, nil
}

// GetByID obtiene un item por id.
func (repository *Repository) GetByID(ctx context.Context, id int64) (catalog.Item, error) {
	row := repository.database.QueryRow(ctx, "SELECT "+catalog.ItemColumns+" FROM catalog_items WHERE id = $1", id)

	item, err := catalog.ScanItem(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return catalog.Item{}, ErrorNotFound
		}
		return catalog.Item{}, err
	}
	return item, nil
}

// Insert crea un item y devuelve el registro persistido.
// Usamos RETURNING para obtener id y los valores ya normalizados por la DB.
func (repository *Repository) Insert(ctx context.Context, input ItemInput) (catalog.Item, error) {
	values := input.values()

	columns := make([]string, 0, len(editableFields))
	placeholders := make([]string, 0, len(editableFields))
	args := make([]any, 0, len(editableFields))
	for _, editable := range editableFields {
		args = append(args, values[editable.field])
		columns = append(columns, editable.column)
		placeholders = append(placeholders, fmt.Sprintf("$%d%s", len(args), editable.cast))
	}

	query := fmt.Sprintf("INSERT INTO catalog_items (%s) VALUES (%s) RETURNING %s",
		strings.Join(columns, ", "), strings.Join(placeholders, ", "), catalog.ItemColumns)

	item, err := catalog.ScanItem(repository.database.QueryRow(ctx, query, args...))
	if err != nil {
		return catalog.Item{}, mapWriteError(err)
	}
	return item, nil
}

// Update aplica un PATCH: solo se escriben las columnas presentes.
func (repository *Repository) Update(ctx context.Context, id int64, input UpdateItemInput) (catalog.Item, error) {
	assignments := input.assignments()
	if len(assignments) == 0 {
		return catalog.Item{}, ErrorInvalidInput
	}

	sets := make([]string, 0, len(assignments)+1)
	args := make([]any, 0, len(assignments)+1)
	for _, assignment := range assignments {
		args = append(args, assignment.value)
		sets = append(sets, fmt.Sprintf("%s = $%d%s", assignment.column, len(args), castFor(assignment.column)))
	}
	sets = append(sets, "updated_at = now()")
	args = append(args, id)

	query := fmt.Sprintf("UPDATE catalog_items SET %s WHERE id = $%d RETURNING %s",
		strings.Join(sets, ", "), len(args), catalog.ItemColumns)

	item, err := catalog.ScanItem(repository.database.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return catalog.Item{}, ErrorNotFound
		}
		return catalog.Item{}, mapWriteError(err)
	}
	return item, nil
}

// Delete elimina un item. ErrorNotFound si no existía.
func (repository *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := repository.database.Exec(ctx, "DELETE FROM catalog_items WHERE id = $1", id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrorNotFound
	}
	return nil
}

func castFor(column string) string {
	for _, editable := range editableFields {
		if editable.column == column {
			return editable.cast
		}
	}
	return ""
}

// mapWriteError traduce violaciones de constraints a errores de dominio.
func mapWriteError(err error) error {
	var postgresError *pgconn.PgError
	if !errors.As(err, &postgresError) {
		return err
	}
	switch postgresError.Code {
	case uniqueViolation:
		return ErrorDuplicateSKU
	case checkViolation, notNullViolation:
		return fmt.Errorf("%w: %s", ErrorInvalidInput, postgresError.Message)
	default:
		return err
	}
}
