// Package resource provides asynchronous values for page loading.
//
// A controller's Load returns a map of named values. Each value is either a
// plain Go value, available immediately, or a *Resource that settles later
// on its own goroutine. The server renderer waits for every resource before
// rendering; the client renderer paints plain values first and patches each
// resource into the page state as it settles.
//
//	func (c *Home) Load() (state.State, error) {
//	    return state.State{
//	        "title":    "Home",
//	        "articles": resource.New(func(ctx context.Context) (any, error) {
//	            return c.api.Articles(ctx)
//	        }),
//	    }, nil
//	}
package resource
