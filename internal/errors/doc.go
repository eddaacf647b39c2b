// Package errors provides coded, actionable errors for the draftform CLI and
// its configuration layer.
//
// Each error has a unique code (e.g., "E103") that maps to a category, a
// short message and a longer explanation. Errors can point into a config file
// and carry a hint and an example:
//
//	err := errors.New("E103").
//	    WithLocation("draftform.yaml", 4, 12).
//	    WithExample("drafts:\n  backend: sqlite")
//
//	fmt.Println(err.Format())
//
// Fprint renders any error in one of three styles: pretty (colored, with
// file context), compact (one line) or json (one object per line).
//
// Categories:
//   - config: config file discovery, parsing and validation
//   - store: durable draft backends
//   - submit: offline draft validation
//   - api: entity creation API wiring
//   - cli: command execution
package errors
