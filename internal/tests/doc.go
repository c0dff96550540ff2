// Package tests holds the integration tests for the docflow module.
//
// The package lives under internal/ so it cannot be imported from
// outside this module. It exercises the public docflow API end to end:
// building definitions, attaching workflows to plain structs and map
// documents, executing direct and interactive transitions, inheritance
// and the host binding registry.
//
// Run in the repository root:
//
//	go test ./internal/tests/...
package tests
