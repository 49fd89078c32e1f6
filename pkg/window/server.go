package window

import "github.com/imago-dev/imago/pkg/view"

// ServerWindow is the window used while rendering on the server. It has no
// location, document or history and ignores every mutation.
type ServerWindow struct{}

var _ Window = ServerWindow{}

func (ServerWindow) IsClient() bool                           { return false }
func (ServerWindow) Title() string                            { return "" }
func (ServerWindow) SetTitle(string)                          {}
func (ServerWindow) Scroll() (int, int)                       { return 0, 0 }
func (ServerWindow) ScrollTo(int, int)                        {}
func (ServerWindow) Domain() string                           { return "" }
func (ServerWindow) Host() string                             { return "" }
func (ServerWindow) Path() string                             { return "" }
func (ServerWindow) URL() string                              { return "" }
func (ServerWindow) ElementByID(string) *view.Node            { return nil }
func (ServerWindow) Redirect(string)                          {}
func (ServerWindow) PushState(any, string, string)            {}
func (ServerWindow) ReplaceState(any, string, string)         {}
func (ServerWindow) AddEventListener(string, Listener) func() { return func() {} }
