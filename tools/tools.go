//go:build tools

// Package tools lists the development tools used with this module. They are
// run with `go run pkg@version` or installed with `go install` and are not
// tracked in go.mod.
package tools

// mockgen - regenerates internal/mocks
//   Run: go generate ./internal/mocks
//   Version: go.uber.org/mock/mockgen@v0.6.0 (matches the go.mod runtime)
//
// air - live reload while editing templates and handlers
//   Install: go install github.com/air-verse/air@v1.63.0
//   Run: air -- with SERVICES=http AUTH_MODE=mock
