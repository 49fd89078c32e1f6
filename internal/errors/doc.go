// Package errors provides the coded, actionable errors reported by the
// imago command and the application bootstrap.
//
// Each code (e.g. "E100") maps to a category, a short message, a detailed
// explanation and a documentation URL. Errors in configuration files carry
// the file location and the surrounding lines:
//
//	err := errors.New("E102").
//	    WithLocation("environment.yaml", 4, 3).
//	    WithEnvironment("prod").
//	    WithSuggestion("Indent the keys of each environment by two spaces")
//
//	fmt.Println(err.Format())
//	// Output:
//	//   config E102  Invalid environment configuration
//	//
//	//   setting  environment prod
//	//   at       environment.yaml:4:3
//	//
//	//     2 | prod:
//	//     3 |   $Server:
//	//   > 4 |   port: 3001
//	//       |   ^
//	//
//	//   environment.yaml could not be read or is not valid YAML. ...
//	//
//	//   fix      Indent the keys of each environment by two spaces
//	//   docs     https://imago.dev/docs/errors/E102
//
// Settings of environment.yaml are named by WithKey ("$Cache.ttl"), and
// FormatCompact renders the same error on one line for logs.
//
// Page lifecycle errors are not coded: they are imaerr.GenericError values
// routed to the error page.
package errors
