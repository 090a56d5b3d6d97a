package ui

import "github.com/rivo/tview"

// MenuHint is one shortcut shown in the menu column.
type MenuHint struct {
	Key         string
	Description string
	Numeric     bool
}

// Component is a page that can be pushed on the page stack.
type Component interface {
	tview.Primitive
	Name() string
	Hints() []MenuHint
}
