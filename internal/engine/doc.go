// Package engine contains the core search logic for Grepper. It walks a
// directory tree, applies ignore rules and filters, and streams matches
// back to the caller. This package is internal; external consumers should
// use the stable facade in pkg/core.
package engine
