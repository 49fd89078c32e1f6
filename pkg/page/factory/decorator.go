package factory

import (
	"github.com/imago-dev/imago/pkg/controller"
	"github.com/imago-dev/imago/pkg/meta"
	"github.com/imago-dev/imago/pkg/state"
)

// ControllerDecorator pairs a controller with the collaborators it needs
// to produce page metadata. The page manager and the renderer talk to it
// instead of the bare controller where metadata is involved.
type ControllerDecorator struct {
	controller controller.Controller
	meta       *meta.Manager
	router     controller.Linker
	dictionary controller.Dictionary
	settings   map[string]any
}

// Controller returns the wrapped controller.
func (d *ControllerDecorator) Controller() controller.Controller {
	return d.controller
}

// MetaManager returns the meta manager filled by SetMetaParams.
func (d *ControllerDecorator) MetaManager() *meta.Manager {
	return d.meta
}

// SetMetaParams clears the metadata and lets the controller fill it from
// the loaded resources.
func (d *ControllerDecorator) SetMetaParams(resources map[string]any) {
	d.meta.Clear()
	d.controller.SetMetaParams(resources, controller.MetaParams{
		Meta:       d.meta,
		Router:     d.router,
		Dictionary: d.dictionary,
		Settings:   d.settings,
	})
}

// HTTPStatus returns the controller's response status.
func (d *ControllerDecorator) HTTPStatus() int {
	return d.controller.HTTPStatus()
}

// State returns the current page state.
func (d *ControllerDecorator) State() state.State {
	return d.controller.State()
}
