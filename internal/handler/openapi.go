package handler

import (
	_ "embed"
	"net/http"
)

// OpenAPIDocument is the API description served at /openapi.yaml.
//
//go:embed api/openapi.yaml
var OpenAPIDocument []byte

// OpenAPI handles GET /openapi.yaml.
func OpenAPI(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	_, _ = w.Write(OpenAPIDocument)
}
