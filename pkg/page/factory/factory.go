// Package factory builds the pieces of a managed page: controller and
// extension instances, the view, the decorated controller and the scoped
// state managers handed to extensions.
package factory

import (
	"fmt"

	"github.com/imago-dev/imago/pkg/container"
	"github.com/imago-dev/imago/pkg/controller"
	"github.com/imago-dev/imago/pkg/imaerr"
	"github.com/imago-dev/imago/pkg/meta"
	"github.com/imago-dev/imago/pkg/state"
	"github.com/imago-dev/imago/pkg/view"
)

// ExtensionDeclarer is implemented by controllers that declare the
// container keys of their extensions. PageFactory creates and attaches
// them to every new instance.
type ExtensionDeclarer interface {
	ExtensionKeys() []container.Key
}

// Config holds the collaborators passed to every decorated controller.
type Config struct {
	Meta       *meta.Manager
	Router     controller.Linker
	Dictionary controller.Dictionary
	Settings   map[string]any
	Debug      bool
}

// PageFactory creates page components from container keys.
type PageFactory struct {
	oc  *container.Container
	cfg Config
}

// New creates a PageFactory resolving keys through oc.
func New(oc *container.Container, cfg Config) *PageFactory {
	if cfg.Meta == nil {
		cfg.Meta = meta.NewManager()
	}
	return &PageFactory{oc: oc, cfg: cfg}
}

// CreateController creates a fresh controller and its declared extensions.
func (f *PageFactory) CreateController(key container.Key) (controller.Controller, error) {
	c, err := container.Make[controller.Controller](f.oc, key)
	if err != nil {
		return nil, imaerr.New("factory: cannot create controller", map[string]any{
			"controller": fmt.Sprint(key),
		}).Wrap(err)
	}

	if d, ok := c.(ExtensionDeclarer); ok {
		for _, extKey := range d.ExtensionKeys() {
			ext, err := container.Make[controller.Extension](f.oc, extKey)
			if err != nil {
				return nil, imaerr.New("factory: cannot create extension", map[string]any{
					"controller": fmt.Sprint(key),
					"extension":  fmt.Sprint(extKey),
				}).Wrap(err)
			}
			c.AddExtension(ext)
		}
	}
	return c, nil
}

// CreateView resolves the view registered under key.
func (f *PageFactory) CreateView(key container.Key) (view.View, error) {
	if key == nil {
		return nil, nil
	}
	v, err := container.Resolve[view.View](f.oc, key)
	if err != nil {
		return nil, imaerr.New("factory: cannot resolve view", map[string]any{
			"view": fmt.Sprint(key),
		}).Wrap(err)
	}
	return v, nil
}

// CreateDocument resolves the document view registered under key, or the
// default document when key is nil.
func (f *PageFactory) CreateDocument(key container.Key) (view.Document, error) {
	if key == nil {
		return view.DefaultDocument, nil
	}
	d, err := container.Resolve[view.Document](f.oc, key)
	if err != nil {
		return nil, imaerr.New("factory: cannot resolve document view", map[string]any{
			"view": fmt.Sprint(key),
		}).Wrap(err)
	}
	return d, nil
}

// DecorateController wraps c with the metadata collaborators.
func (f *PageFactory) DecorateController(c controller.Controller) *ControllerDecorator {
	return &ControllerDecorator{
		controller: c,
		meta:       f.cfg.Meta,
		router:     f.cfg.Router,
		dictionary: f.cfg.Dictionary,
		settings:   f.cfg.Settings,
	}
}

// DecoratePageStateManager returns the state manager an extension may
// write through: it rejects keys outside allowed in debug mode.
func (f *PageFactory) DecoratePageStateManager(m state.Manager, allowed []string) *state.Scoped {
	return state.Restrict(m, allowed, f.cfg.Debug)
}

// Meta returns the shared meta manager.
func (f *PageFactory) Meta() *meta.Manager {
	return f.cfg.Meta
}

// SetRouter sets the linker handed to controllers. The router is usually
// built after the factory.
func (f *PageFactory) SetRouter(r controller.Linker) {
	f.cfg.Router = r
}
