// Package grepper provides the command-line interface for the Grepper tool.
// It configures subcommands (search, files, folders, image, ci, etc.), parses
// flags, and executes the selected command.
//
// Typical usage from a main package:
//
//	package main
//	import "github.com/atifafzal786/grepper/cmd/grepper"
//	func main() { grepper.Execute() }
package grepper
