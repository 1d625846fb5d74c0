// Package docs sirve la documentación OpenAPI embebida en el binario.
package docs

import (
	"embed"
	"net/http"
)

//go:embed openapi.yaml swagger.html
var assets embed.FS

// OpenAPIHandler sirve la especificación OpenAPI del catálogo.
func OpenAPIHandler() http.HandlerFunc {
	return assetHandler("openapi.yaml", "application/yaml; charset=utf-8")
}

// SwaggerUIHandler sirve la UI que consume /docs/openapi.yaml.
func SwaggerUIHandler() http.HandlerFunc {
	return assetHandler("swagger.html", "text/html; charset=utf-8")
}

func assetHandler(name, contentType string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := assets.ReadFile(name)
		if err != nil {
			http.Error(w, name+" not found", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", contentType)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(body)
	}
}
