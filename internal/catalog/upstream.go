package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

// Errores de la fuente secundaria.
var (
	ErrorUpstreamNotConfigured = errors.New("catalog upstream is not configured")
	ErrorUpstreamUnavailable   = errors.New("catalog upstream request failed")
	ErrorUpstreamStatus        = errors.New("catalog upstream returned an error status")
	ErrorUpstreamMalformed     = errors.New("catalog upstream returned an unexpected response format")
)

// maxUpstreamBody acota lo que se lee del upstream.
const maxUpstreamBody = 8 << 20

// UpstreamResponse es lo que devolvió el upstream: una página normalizada o el texto crudo.
type UpstreamResponse struct {
	Page *Page
	Raw  *RawBody
}

// UpstreamClient consulta el endpoint /catalog del API Gateway (Lambda).
// Solo se usa cuando la base de datos falla; no reintenta.
type UpstreamClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewUpstreamClient crea el cliente. baseURL vacío deja el fallback deshabilitado.
// baseURL ya incluye el stage (ej: https://xxx.execute-api.us-east-1.amazonaws.com/prod).
func NewUpstreamClient(baseURL string, timeout time.Duration) *UpstreamClient {
	return &UpstreamClient{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Configured indica si hay upstream.
func (client *UpstreamClient) Configured() bool {
	return client != nil && client.baseURL != ""
}

// Search reenvía la misma consulta lógica a <base>/catalog y normaliza la respuesta.
func (client *UpstreamClient) Search(ctx context.Context, query Query) (UpstreamResponse, error) {
	if !client.Configured() {
		return UpstreamResponse{}, ErrorUpstreamNotConfigured
	}

	endpoint := client.baseURL + "/catalog?" + query.Values().Encode()
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return UpstreamResponse{}, fmt.Errorf("%w: %v", ErrorUpstreamUnavailable, err)
	}
	request.Header.Set("Accept", "application/json")
	request.Header.Set("Cache-Control", "no-store")
	request.Header.Set("X-Request-Id", requestIDFor(ctx))

	response, err := client.httpClient.Do(request)
	if err != nil {
		return UpstreamResponse{}, fmt.Errorf("%w: %v", ErrorUpstreamUnavailable, err)
	}
	defer response.Body.Close()

	body, err := io.ReadAll(io.LimitReader(response.Body, maxUpstreamBody))
	if err != nil {
		return UpstreamResponse{}, fmt.Errorf("%w: read body: %v", ErrorUpstreamUnavailable, err)
	}

	ok := response.StatusCode >= 200 && response.StatusCode < 300

	page, err := Normalize(body, query.Limit, query.Offset)
	switch {
	case errors.Is(err, errNotJSON):
		if !ok {
			return UpstreamResponse{}, fmt.Errorf("%w: %d", ErrorUpstreamStatus, response.StatusCode)
		}
		contentType := response.Header.Get("Content-Type")
		if contentType == "" {
			contentType = "application/json"
		}
		return UpstreamResponse{Raw: &RawBody{
			Status:      response.StatusCode,
			ContentType: contentType,
			Body:        body,
		}}, nil
	case err != nil:
		if !ok {
			return UpstreamResponse{}, fmt.Errorf("%w: %d", ErrorUpstreamStatus, response.StatusCode)
		}
		return UpstreamResponse{}, err
	case !ok || !page.Success:
		message := page.Error
		if message == "" {
			message = http.StatusText(response.StatusCode)
		}
		return UpstreamResponse{}, fmt.Errorf("%w: %d %s", ErrorUpstreamStatus, response.StatusCode, message)
	}

	return UpstreamResponse{Page: &page}, nil
}

// requestIDFor propaga el request id de chi; si no hay, genera uno para correlacionar en CloudWatch.
func requestIDFor(ctx context.Context) string {
	if id := middleware.GetReqID(ctx); id != "" {
		return id
	}
	return uuid.NewString()
}

var errNotJSON = errors.New("body is not JSON")

// gatewayEnvelope es la forma de un proxy de API Gateway: el payload real va JSON-encodeado en body.
type gatewayEnvelope struct {
	Body            *string `json:"body"`
	StatusCode      int     `json:"statusCode"`
	IsBase64Encoded bool    `json:"isBase64Encoded"`
}

// contractPayload es la forma del contrato; los campos opcionales se distinguen de los ausentes.
type contractPayload struct {
	Success    *bool           `json:"success"`
	Data       json.RawMessage `json:"data"`
	TotalCount *int            `json:"totalCount"`
	Limit      *int            `json:"limit"`
	Offset     *int            `json:"offset"`
	Error      string          `json:"error"`
	Details    string          `json:"details"`
}

// Normalize lleva cualquiera de las tres formas conocidas del upstream al contrato Page:
//  1. sobre de API Gateway {"body": "<json>"}: se decodifica el body primero;
//  2. array de items: totalCount = max(offset+len, len);
//  3. objeto {success, data, ...}: se revalida y se completan los campos faltantes.
//
// Devuelve errNotJSON si el cuerpo no es JSON y ErrorUpstreamMalformed si es JSON con otra forma.
func Normalize(body []byte, limit, offset int) (Page, error) {
	return normalize(body, limit, offset, true)
}

func normalize(body []byte, limit, offset int, allowEnvelope bool) (Page, error) {
	trimmed := bytes.TrimSpace(body)
	if !json.Valid(trimmed) {
		return Page{}, errNotJSON
	}

	switch {
	case bytes.HasPrefix(trimmed, []byte("[")):
		var items []Item
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return Page{}, fmt.Errorf("%w: %v", ErrorUpstreamMalformed, err)
		}
		return newPage(items, max(offset+len(items), len(items)), limit, offset), nil

	case bytes.HasPrefix(trimmed, []byte("{")):
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &fields); err != nil {
			return Page{}, fmt.Errorf("%w: %v", ErrorUpstreamMalformed, err)
		}

		if _, hasSuccess := fields["success"]; !hasSuccess && allowEnvelope {
			var envelope gatewayEnvelope
			if err := json.Unmarshal(trimmed, &envelope); err == nil && envelope.Body != nil {
				return normalizeEnvelope(envelope, limit, offset)
			}
		}
		return normalizeContract(trimmed, limit, offset)
	}

	return Page{}, ErrorUpstreamMalformed
}

func normalizeEnvelope(envelope gatewayEnvelope, limit, offset int) (Page, error) {
	if envelope.IsBase64Encoded {
		return Page{}, fmt.Errorf("%w: base64 encoded body", ErrorUpstreamMalformed)
	}
	page, err := normalize([]byte(*envelope.Body), limit, offset, false)
	if errors.Is(err, errNotJSON) {
		return Page{}, fmt.Errorf("%w: envelope body is not JSON", ErrorUpstreamMalformed)
	}
	return page, err
}

func normalizeContract(body []byte, limit, offset int) (Page, error) {
	var payload contractPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return Page{}, fmt.Errorf("%w: %v", ErrorUpstreamMalformed, err)
	}
	if payload.Success == nil {
		return Page{}, fmt.Errorf("%w: missing success", ErrorUpstreamMalformed)
	}

	if payload.Limit != nil && *payload.Limit > 0 {
		limit = *payload.Limit
	}
	if payload.Offset != nil && *payload.Offset >= 0 {
		offset = *payload.Offset
	}

	if !*payload.Success {
		message := payload.Error
		if message == "" {
			message = "catalog upstream reported a failure"
		}
		return failedPage(limit, offset, message, payload.Details), nil
	}

	items := []Item{}
	data := bytes.TrimSpace(payload.Data)
	if len(data) == 0 || !bytes.HasPrefix(data, []byte("[")) {
		return Page{}, fmt.Errorf("%w: data must be an array", ErrorUpstreamMalformed)
	}
	if err := json.Unmarshal(data, &items); err != nil {
		return Page{}, fmt.Errorf("%w: %v", ErrorUpstreamMalformed, err)
	}

	total := max(offset+len(items), len(items))
	if payload.TotalCount != nil && *payload.TotalCount >= len(items) {
		total = *payload.TotalCount
	}

	return newPage(items, total, limit, offset), nil
}
