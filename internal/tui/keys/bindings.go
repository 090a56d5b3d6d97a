// Package keys maps key presses to actions, per page.
package keys

import "github.com/gdamore/tcell/v2"

// Global is the scope of bindings active on every page.
const Global = ""

// Action is one key binding.
type Action struct {
	Key     tcell.Key
	Rune    rune
	Handler func()
}

// Matches reports whether ev triggers the action.
func (a Action) Matches(ev *tcell.EventKey) bool {
	if a.Key != tcell.KeyRune {
		return ev.Key() == a.Key
	}
	return ev.Key() == tcell.KeyRune && ev.Rune() == a.Rune
}

type binding struct {
	scope  string
	action Action
}

// Registry holds bindings in registration order. Page bindings shadow
// global ones; within a scope the first registered match wins.
type Registry struct {
	bindings []binding
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Rune binds r on the given page, or on every page for Global.
func (r *Registry) Rune(scope string, ch rune, fn func()) {
	r.Bind(scope, Action{Key: tcell.KeyRune, Rune: ch, Handler: fn})
}

// Bind registers an action.
func (r *Registry) Bind(scope string, a Action) {
	r.bindings = append(r.bindings, binding{scope: scope, action: a})
}

// Lookup returns the action ev triggers on page.
func (r *Registry) Lookup(page string, ev *tcell.EventKey) (Action, bool) {
	if page != Global {
		for _, b := range r.bindings {
			if b.scope == page && b.action.Matches(ev) {
				return b.action, true
			}
		}
	}
	for _, b := range r.bindings {
		if b.scope == Global && b.action.Matches(ev) {
			return b.action, true
		}
	}
	return Action{}, false
}

// HandleEvent runs the action ev triggers on page and reports whether
// one did.
func (r *Registry) HandleEvent(page string, ev *tcell.EventKey) bool {
	a, ok := r.Lookup(page, ev)
	if !ok || a.Handler == nil {
		return false
	}
	a.Handler()
	return true
}
