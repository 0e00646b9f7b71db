package main

// General API documentation for swaggo. The served document lives in
// internal/httpapi/swagger.go.
//
// @title           gemmad API
// @version         1.0
// @description     HTTP API for text generation with a pretrained causal language model.
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
