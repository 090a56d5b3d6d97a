package views

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/matheus3301/crmlive/internal/crm"
	"github.com/matheus3301/crmlive/internal/tui/ui"
	"github.com/rivo/tview"
)

// ClientList is the client directory table.
type ClientList struct {
	*tview.Table
	theme   *ui.Theme
	clients []crm.Client
	filter  string
}

// NewClientList creates a new client table.
func NewClientList(theme *ui.Theme) *ClientList {
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
	table.SetTitle(" Clients ")
	table.SetTitleColor(theme.TitleColor)

	return &ClientList{
		Table: table,
		theme: theme,
	}
}

// Name implements Component.
func (cl *ClientList) Name() string { return "Clients" }

// Hints implements Component.
func (cl *ClientList) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "Enter", Description: "Open"},
		{Key: "m", Description: "Mail"},
		{Key: "n", Description: "Notifications"},
		{Key: "/", Description: "Filter"},
		{Key: ":", Description: "Command"},
		{Key: "?", Description: "Help"},
		{Key: "q", Description: "Quit"},
		{Key: "1-9", Description: "Jump", Numeric: true},
	}
}

// Update replaces the client list.
func (cl *ClientList) Update(clients []crm.Client) {
	cl.clients = clients
	cl.render()
}

// SetFilter sets the active filter text and re-renders.
func (cl *ClientList) SetFilter(filter string) {
	cl.filter = filter
	cl.render()
}

// ClearFilter clears the active filter.
func (cl *ClientList) ClearFilter() {
	cl.filter = ""
	cl.render()
}

func (cl *ClientList) visible() []crm.Client {
	if cl.filter == "" {
		return cl.clients
	}
	var out []crm.Client
	for _, c := range cl.clients {
		if containsFold(c.DisplayName(), cl.filter) ||
			containsFold(c.PrimaryPhone, cl.filter) ||
			containsFold(c.Email(), cl.filter) {
			out = append(out, c)
		}
	}
	return out
}

func (cl *ClientList) render() {
	cl.Clear()

	headers := []struct {
		text string
		exp  int
	}{
		{" NAME", 2},
		{" PHONE", 1},
		{" EMAIL", 2},
		{" ID", 0},
	}
	for col, h := range headers {
		cell := tview.NewTableCell(h.text).
			SetSelectable(false).
			SetTextColor(cl.theme.TableHeaderFg).
			SetBackgroundColor(cl.theme.TableHeaderBg).
			SetAttributes(tcell.AttrBold).
			SetExpansion(h.exp)
		cl.SetCell(0, col, cell)
	}

	rows := cl.visible()
	for i, c := range rows {
		row := i + 1
		name := c.DisplayName()
		if name == "" {
			name = crm.UnknownClientName
		}
		cl.SetCell(row, 0, tview.NewTableCell(" "+cellText(name)).SetExpansion(2).SetTextColor(cl.theme.FgColor))
		cl.SetCell(row, 1, tview.NewTableCell(" "+tview.Escape(c.PrimaryPhone)).SetExpansion(1).SetTextColor(cl.theme.FgColor))
		cl.SetCell(row, 2, tview.NewTableCell(" "+tview.Escape(c.Email())).SetExpansion(2).SetTextColor(cl.theme.FgColor))
		cl.SetCell(row, 3, tview.NewTableCell(string(c.ID)).SetTextColor(cl.theme.FgColor).SetAlign(tview.AlignRight))
	}

	if cl.filter != "" {
		cl.SetTitle(fmt.Sprintf(" Clients (%d/%d) filter: %s ", len(rows), len(cl.clients), tview.Escape(cl.filter)))
	} else {
		cl.SetTitle(fmt.Sprintf(" Clients (%d) ", len(cl.clients)))
	}
}

// SelectedClient returns the highlighted client.
func (cl *ClientList) SelectedClient() (crm.Client, bool) {
	row, _ := cl.GetSelection()
	return cl.ClientByIndex(row)
}

// ClientByIndex returns the Nth visible client (1-based).
func (cl *ClientList) ClientByIndex(n int) (crm.Client, bool) {
	rows := cl.visible()
	if n < 1 || n > len(rows) {
		return crm.Client{}, false
	}
	return rows[n-1], true
}
