// Package event provides the two publish/subscribe primitives of the page
// lifecycle.
//
// Dispatcher is the framework-level bus keyed by event name. The router,
// page state manager and renderers fire on it; application code listens.
//
// EventBus carries application events fired from views toward the active
// controller. Subscriptions are bound to a target and come in two kinds:
// one named event, or every event. An event fired on a target also reaches
// the targets returned by its EventParent chain.
package event
