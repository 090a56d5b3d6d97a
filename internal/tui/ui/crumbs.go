package ui

import (
	"fmt"
	"strings"

	"github.com/rivo/tview"
)

// Crumbs shows the page stack as a breadcrumb trail.
type Crumbs struct {
	*tview.TextView
	theme *Theme
}

// NewCrumbs creates the breadcrumb bar.
func NewCrumbs(theme *Theme) *Crumbs {
	tv := tview.NewTextView().SetDynamicColors(true)
	tv.SetBackgroundColor(theme.BgColor)
	return &Crumbs{TextView: tv, theme: theme}
}

// Update renders names, highlighting the last one.
func (c *Crumbs) Update(names []string) {
	c.Clear()
	active := fmt.Sprintf("[%s:%s:b]", ColorName(c.theme.CrumbActiveFg), ColorName(c.theme.CrumbActiveBg))
	inactive := fmt.Sprintf("[%s:%s:]", ColorName(c.theme.CrumbInactiveFg), ColorName(c.theme.CrumbInactiveBg))

	parts := make([]string, len(names))
	for i, name := range names {
		style := inactive
		if i == len(names)-1 {
			style = active
		}
		parts[i] = style + " " + tview.Escape(name) + " [-:-:-]"
	}
	_, _ = fmt.Fprint(c, strings.Join(parts, " "))
}
