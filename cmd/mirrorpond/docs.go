package main

// General API documentation for swaggo. Regenerate with
// swag init -g cmd/mirrorpond/docs.go -o internal/httpapi/apidocs.
//
// @title           mirrorpond API
// @version         1.0
// @description     Reflection assistant over a single local GGUF model.
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
