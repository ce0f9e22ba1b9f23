// Package api holds the OpenAPI document of the HTTP surface.
package api

import _ "embed"

// OpenAPI is the OpenAPI 3 document requests are validated against.
//
//go:embed haplea.openapi.yaml
var OpenAPI []byte
