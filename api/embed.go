// Package api holds the OpenAPI description of the HTTP API.
package api

import _ "embed"

// OpenAPI is the raw api/openapi.yaml document.
//
//go:embed openapi.yaml
var OpenAPI []byte

// DocsPage is a Swagger UI page that loads /docs/openapi.yaml.
//
//go:embed docs.html
var DocsPage []byte
