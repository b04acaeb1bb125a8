package main

import (
	"github.com/go-gl/glfw/v3.3/glfw"

	"github.com/irfansharif/scenery/internal/app"
	"github.com/irfansharif/scenery/internal/render"
)

// keys maps GLFW keys to the application's window-system independent keys.
var keys = map[glfw.Key]app.Key{
	glfw.KeyTab:       app.KeyTab,
	glfw.KeyEscape:    app.KeyEscape,
	glfw.KeyDelete:    app.KeyDelete,
	glfw.KeyBackspace: app.KeyDelete,
	glfw.KeyA:         app.KeyA,
	glfw.KeyF:         app.KeyF,
	glfw.KeyG:         app.KeyG,
	glfw.KeyH:         app.KeyH,
	glfw.KeyN:         app.KeyN,
	glfw.KeyP:         app.KeyP,
	glfw.KeyS:         app.KeyS,
	glfw.KeyT:         app.KeyT,
	glfw.KeyV:         app.KeyV,
	glfw.KeyEqual:     app.KeyEqual,
	glfw.KeyMinus:     app.KeyMinus,
	glfw.KeyLeft:      app.KeyLeft,
	glfw.KeyRight:     app.KeyRight,
	glfw.KeyUp:        app.KeyUp,
	glfw.KeyDown:      app.KeyDown,
}

// EventHandlers translates GLFW callbacks into application events.
type EventHandlers struct {
	application *app.App
	renderer    *render.Renderer
}

// NewEventHandlers creates a new event handlers manager and installs its
// callbacks on window.
func NewEventHandlers(window *glfw.Window, application *app.App, renderer *render.Renderer) *EventHandlers {
	eh := &EventHandlers{application: application, renderer: renderer}
	eh.SetupCallbacks(window)
	return eh
}

// SetupCallbacks configures all GLFW event callbacks.
func (eh *EventHandlers) SetupCallbacks(window *glfw.Window) {
	window.SetKeyCallback(func(wnd *glfw.Window, key glfw.Key, _ int, action glfw.Action, mods glfw.ModifierKey) {
		eh.handleKey(key, action, mods)
	})
	window.SetMouseButtonCallback(func(wnd *glfw.Window, button glfw.MouseButton, action glfw.Action, mods glfw.ModifierKey) {
		eh.handleMouseButton(button, action) // for orbiting
	})
	window.SetCursorPosCallback(func(wnd *glfw.Window, xpos, ypos float64) {
		eh.application.HandleEvent(app.Event{Kind: app.EventCursor, X: xpos, Y: ypos})
	})
	window.SetScrollCallback(func(wnd *glfw.Window, _, zoomDelta float64) {
		eh.application.HandleEvent(app.Event{Kind: app.EventScroll, Scroll: zoomDelta})
	})
	window.SetFramebufferSizeCallback(func(wnd *glfw.Window, newW, newH int) {
		eh.handleFramebufferSize(newW, newH)
	})
}

// handleKey forwards presses and repeats of mapped keys.
func (eh *EventHandlers) handleKey(key glfw.Key, action glfw.Action, mods glfw.ModifierKey) {
	if action == glfw.Release {
		return
	}
	k, ok := keys[key]
	if !ok {
		return
	}
	eh.application.HandleEvent(app.Event{
		Kind:  app.EventKey,
		Key:   k,
		Shift: (mods & glfw.ModShift) != 0,
	})
}

// handleMouseButton starts and stops left-button drags.
func (eh *EventHandlers) handleMouseButton(button glfw.MouseButton, action glfw.Action) {
	if button != glfw.MouseButtonLeft {
		return // nothing to do
	}

	switch action {
	case glfw.Press:
		eh.application.HandleEvent(app.Event{Kind: app.EventMouseDown})
	case glfw.Release:
		eh.application.HandleEvent(app.Event{Kind: app.EventMouseUp})
	}
}

// handleFramebufferSize handles window resize events.
func (eh *EventHandlers) handleFramebufferSize(newW, newH int) {
	eh.renderer.SetViewport(newW, newH)
	eh.application.HandleEvent(app.Event{Kind: app.EventResize, Width: newW, Height: newH})
}
