// Package errors provides coded, actionable errors for the routekit CLI.
//
// Each error carries a code (e.g., "E001") that maps to a registered
// template with a short message, a longer explanation and an optional hint.
// Errors may point at a source location, in which case Format prints the
// surrounding lines:
//
//	err := errors.New("E060").
//	    WithLocation("routekit.toml", 7, 11).
//	    Wrap(parseErr)
//
//	fmt.Println(err.Format())
//	// Output:
//	// ERROR E060: Invalid config file
//	//
//	//   routekit.toml:7:11
//	//
//	//      5 │ [ssr]
//	//      6 │ enabled = true
//	//   →  7 │ timeout = 10s
//	//        │           ^
//	//
//	//   Cause: toml: expected value but found "1"
//
// Problems that come in groups, such as an invalid route tree, are listed
// with WithItems so they are reported together.
package errors
