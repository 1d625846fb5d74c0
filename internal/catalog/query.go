package catalog

import (
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// maxOffset evita overflow al multiplicar page × limit con entradas absurdas.
const maxOffset = math.MaxInt32

var offsetLimit = decimal.NewFromInt(maxOffset)

// Query es una consulta ya validada. Vive lo que dura un request.
type Query struct {
	Limit        int
	Offset       int
	Text         string
	Categories   []string
	PriceBuckets []PriceBucket
}

// BucketKeys devuelve las claves de los rangos reconocidos, en orden.
func (query Query) BucketKeys() []string {
	keys := make([]string, 0, len(query.PriceBuckets))
	for _, bucket := range query.PriceBuckets {
		keys = append(keys, bucket.Key)
	}
	return keys
}

// Values vuelve a expresar la consulta como query string (para el upstream).
func (query Query) Values() url.Values {
	values := url.Values{}
	values.Set("limit", strconv.Itoa(query.Limit))
	values.Set("offset", strconv.Itoa(query.Offset))
	if query.Text != "" {
		values.Set("q", query.Text)
	}
	if len(query.Categories) > 0 {
		values.Set("categories", strings.Join(query.Categories, ","))
	}
	if len(query.PriceBuckets) > 0 {
		values.Set("priceBuckets", strings.Join(query.BucketKeys(), ","))
	}
	return values
}

// ParseQuery traduce parámetros sueltos a una Query válida.
// Nunca falla: cualquier valor inválido cae al default.
//   - limit: solo valores permitidos; si no, DefaultLimit.
//   - offset: >= 0; si falta, se deriva de page (1-based); si tampoco está, 0.
//   - q: trim; vacío = sin filtro.
//   - categories / priceBuckets: CSV, trim, sin vacíos ni duplicados. Rangos desconocidos se ignoran.
func (options Options) ParseQuery(values url.Values) Query {
	query := Query{
		Limit: options.defaultLimit,
		Text:  strings.TrimSpace(values.Get("q")),
	}

	if limit, ok := parseNumber(values.Get("limit")); ok && options.IsAllowedLimit(limit) {
		query.Limit = limit
	}

	if offset, ok := parseNumber(values.Get("offset")); ok {
		query.Offset = clampOffset(offset)
	} else if page, ok := parseNumber(values.Get("page")); ok && page > 1 {
		query.Offset = clampOffset((page - 1) * query.Limit)
	}

	query.Categories = parseCSV(values["categories"])

	for _, key := range parseCSV(values["priceBuckets"]) {
		if bucket, ok := options.Bucket(key); ok {
			query.PriceBuckets = append(query.PriceBuckets, bucket)
		}
	}

	return query
}

// parseNumber acepta enteros o decimales finitos y trunca hacia cero.
func parseNumber(raw string) (int, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	// NaN, Infinity y texto no numérico no parsean como decimal.
	parsed, err := decimal.NewFromString(raw)
	if err != nil {
		return 0, false
	}
	parsed = parsed.Truncate(0)
	if parsed.GreaterThan(offsetLimit) {
		return maxOffset, true
	}
	if parsed.LessThan(offsetLimit.Neg()) {
		return -maxOffset, true
	}
	return int(parsed.IntPart()), true
}

func clampOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	if offset > maxOffset {
		return maxOffset
	}
	return offset
}

func parseCSV(raw []string) []string {
	var out []string
	seen := map[string]bool{}
	for _, value := range raw {
		for _, entry := range strings.Split(value, ",") {
			entry = strings.TrimSpace(entry)
			if entry == "" || seen[entry] {
				continue
			}
			seen[entry] = true
			out = append(out, entry)
		}
	}
	return out
}

// likeEscaper neutraliza los comodines de LIKE en texto del usuario (ESCAPE '\').
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// ContainsPattern arma el patrón ILIKE "contiene" para texto libre.
func ContainsPattern(text string) string {
	return "%" + likeEscaper.Replace(text) + "%"
}
