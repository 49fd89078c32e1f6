// Package container implements the object container: a registry that
// resolves aliases, classes, interfaces and constants to shared or fresh
// instances.
//
// A Class replaces a constructor function carrying static dependency
// metadata. It names the Go type it produces, the function building it and
// the keys of its default dependencies:
//
//	var HomeController = container.NewClass("HomeController",
//	    func(deps []any) (*Home, error) {
//	        return &Home{api: deps[0].(*API)}, nil
//	    },
//	    "$API",
//	)
//
// Classes that are not bound explicitly can be registered in a Namespace,
// the explicit table handed to the container at startup, and looked up by
// their dotted path.
//
// # Binding states
//
// Bootstrap binds in three one-directional phases: the framework ("ima"),
// each plugin ("plugin") and the application ("app"). While a plugin binds,
// new string aliases and constants cannot be created; plugins register
// classes with Inject and Provide instead.
package container
