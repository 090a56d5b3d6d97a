package views

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/matheus3301/crmlive/internal/crm"
	"github.com/matheus3301/crmlive/internal/tui/ui"
	"github.com/rivo/tview"
)

// NotificationList shows unread inbound messages, oldest first.
type NotificationList struct {
	*tview.Table
	theme *ui.Theme
	items []crm.Notification
}

// NewNotificationList creates the notifications table.
func NewNotificationList(theme *ui.Theme) *NotificationList {
	table := tview.NewTable().
		SetSelectable(true, false).
		SetBorders(false).
		SetFixed(1, 0)
	table.SetBorder(true)
	table.SetBorderColor(theme.BorderColor)
	table.SetBackgroundColor(theme.BgColor)
	table.SetSelectedStyle(tcell.StyleDefault.
		Foreground(theme.TableCursorFg).
		Background(theme.TableCursorBg))
	table.SetTitle(" Notifications ")
	table.SetTitleColor(theme.TitleColor)

	return &NotificationList{Table: table, theme: theme}
}

// Name implements Component.
func (nl *NotificationList) Name() string { return "Notifications" }

// Hints implements Component.
func (nl *NotificationList) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "Enter", Description: "Open"},
		{Key: "d", Description: "Dismiss"},
		{Key: "C", Description: "Clear all"},
		{Key: "Esc", Description: "Back"},
		{Key: "?", Description: "Help"},
	}
}

// Update replaces the rows.
func (nl *NotificationList) Update(items []crm.Notification) {
	nl.items = items
	nl.Clear()

	headers := []struct {
		text string
		exp  int
	}{
		{" TIME", 0},
		{" CLIENT", 1},
		{" MESSAGE", 3},
	}
	for col, h := range headers {
		nl.SetCell(0, col, tview.NewTableCell(h.text).
			SetSelectable(false).
			SetTextColor(nl.theme.TableHeaderFg).
			SetBackgroundColor(nl.theme.TableHeaderBg).
			SetAttributes(tcell.AttrBold).
			SetExpansion(h.exp))
	}

	for i, n := range items {
		row := i + 1
		nl.SetCell(row, 0, tview.NewTableCell(" "+formatTime(n.Timestamp)).SetTextColor(nl.theme.FgColor))
		nl.SetCell(row, 1, tview.NewTableCell(" "+cellText(n.ClientName)).SetExpansion(1).SetTextColor(nl.theme.FgColor))
		nl.SetCell(row, 2, tview.NewTableCell(" "+cellText(n.Message)).SetExpansion(3).SetTextColor(nl.theme.FgColor))
	}
	nl.SetTitle(fmt.Sprintf(" Notifications (%d) ", len(items)))
}

// Selected returns the highlighted notification.
func (nl *NotificationList) Selected() (crm.Notification, bool) {
	row, _ := nl.GetSelection()
	idx := row - 1
	if idx < 0 || idx >= len(nl.items) {
		return crm.Notification{}, false
	}
	return nl.items[idx], true
}
