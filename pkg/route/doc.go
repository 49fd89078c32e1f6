// Package route compiles path expressions into matchers.
//
// A path expression is a slash separated pattern. A segment is either a
// literal, a whole-segment parameter or a mix of literals and parameters
// joined by "-" or "_":
//
//	/articles/:id           required parameter
//	/:?lang/home            optional parameter, may be absent with its slash
//	/range/:from-:to        sub-parameters inside one segment
//	/photo/:id-:?size       optional sub-parameter, absent with its separator
//
// A mixed segment that declares a required parameter after an optional one
// compiles to a pattern that never matches; route table construction does
// not fail on it.
//
// Matching ignores the query string. Extracted parameters are percent
// decoded and query values override path values of the same name.
package route
