// Package main provides the tablemeta CLI.
package main

import "github.com/mesh-intelligence/tablemeta/internal/cli"

func main() {
	cli.Execute()
}
