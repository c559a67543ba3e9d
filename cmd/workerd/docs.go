package main

// General API documentation for swaggo. Regenerate internal/httpapi/docs with
// `swag init -g cmd/workerd/docs.go -o internal/httpapi/docs`.
//
// @title           workerd API
// @version         1.0
// @description     Diagnostics API for the inference worker manager: device capabilities, pool usage and execution reports.
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
