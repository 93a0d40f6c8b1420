//go:build tools
// +build tools

package tools

import (
	// Document tool dependencies for version control
	_ "github.com/alecthomas/kong"
	_ "github.com/golangci/golangci-lint/cmd/golangci-lint"
	_ "golang.org/x/vuln/cmd/govulncheck"
	_ "gotest.tools/gotestsum"
	_ "honnef.co/go/tools/cmd/staticcheck"
)
