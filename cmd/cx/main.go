// Package main is the entry point for the cx CLI tool.
package main

import (
	"github.com/cmmlang/cx/internal/cmd"
)

func main() {
	cmd.Execute()
}
