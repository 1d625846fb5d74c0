package catalog

import "net/http"

// Kind distingue cómo terminó una búsqueda.
type Kind int

const (
	// KindOK: respondió la base de datos.
	KindOK Kind = iota
	// KindDegraded: la base falló y respondió el upstream.
	KindDegraded
	// KindFailed: no respondió ninguna fuente.
	KindFailed
)

func (kind Kind) String() string {
	switch kind {
	case KindOK:
		return "ok"
	case KindDegraded:
		return "degraded"
	case KindFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Source identifica la fuente que produjo los datos.
type Source string

const (
	SourceDatabase Source = "database"
	SourceUpstream Source = "upstream"
)

// RawBody es una respuesta del upstream que no es JSON: se devuelve tal cual.
type RawBody struct {
	Status      int
	ContentType string
	Body        []byte
}

// Result es el resultado etiquetado de Service.Search:
// OK(page) | Degraded(source, page o raw) | Failed(status, reason).
type Result struct {
	Kind   Kind
	Source Source
	Page   Page
	Raw    *RawBody
	Status int
	Err    error
}

// OK arma un resultado sano de la fuente primaria.
func OK(page Page) Result {
	return Result{Kind: KindOK, Source: SourceDatabase, Page: page, Status: http.StatusOK}
}

// Degraded arma un resultado servido por una fuente secundaria.
func Degraded(source Source, page Page) Result {
	return Result{Kind: KindDegraded, Source: source, Page: page, Status: http.StatusOK}
}

// DegradedRaw arma un resultado secundario que no se pudo normalizar.
func DegradedRaw(source Source, raw RawBody) Result {
	return Result{Kind: KindDegraded, Source: source, Raw: &raw, Status: raw.Status}
}

// Failed arma un resultado fallido; page ya trae la forma de error.
func Failed(status int, page Page, err error) Result {
	return Result{Kind: KindFailed, Page: page, Status: status, Err: err}
}
