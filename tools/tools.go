//go:build tools

// Package tools records the developer tools the repository expects. They run
// through `go run <module>@<version>` or `go install`, so none of them appear
// in go.mod.
package tools

// mockgen regenerates internal/mocks from the internal/core ports:
//
//	go generate ./internal/mocks
//
// The version is pinned in internal/mocks/generate.go (go.uber.org/mock v0.6.0)
// and must match the go.uber.org/mock runtime required by go.mod.
//
// golangci-lint enforces the nolint annotations used across the tree:
//
//	go install github.com/golangci/golangci-lint/v2/cmd/golangci-lint@latest
