package ui

import (
	"fmt"
	"strings"

	"github.com/rivo/tview"
)

// menuRows is how many hints fit in one column of the header.
const menuRows = 6

// Menu lists the shortcuts of the current page in columns.
type Menu struct {
	*tview.TextView
	theme *Theme
}

// NewMenu creates the shortcut column.
func NewMenu(theme *Theme) *Menu {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignLeft)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetBorderPadding(0, 0, 2, 0)
	return &Menu{TextView: tv, theme: theme}
}

// Update renders hints top to bottom, then left to right.
func (m *Menu) Update(hints []MenuHint) {
	m.Clear()
	keyColor := ColorName(m.theme.MenuKeyColor)
	numColor := ColorName(m.theme.NumericKeyColor)

	rows := make([][]string, min(len(hints), menuRows))
	for i, h := range hints {
		kc := keyColor
		if h.Numeric {
			kc = numColor
		}
		key := fmt.Sprintf("<%s>", h.Key)
		cell := fmt.Sprintf("[%s::b]%-8s[-:-:-] %-14s", kc, tview.Escape(key), h.Description)
		rows[i%menuRows] = append(rows[i%menuRows], cell)
	}
	for _, r := range rows {
		_, _ = fmt.Fprintln(m, strings.Join(r, " "))
	}
}
