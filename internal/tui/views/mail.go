package views

import (
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/matheus3301/crmlive/internal/api"
	"github.com/matheus3301/crmlive/internal/crm"
	"github.com/matheus3301/crmlive/internal/tui/ui"
	"github.com/rivo/tview"
)

// MailThreads lists a client's mail threads and shows the selected chain
// with a reply box underneath.
type MailThreads struct {
	*tview.Flex
	theme   *ui.Theme
	list    *tview.Table
	chain   *tview.TextView
	reply   *tview.InputField
	client  crm.ID
	threads []api.ThreadView
	onReply func(threadID, body string)
}

// NewMailThreads creates the mail view.
func NewMailThreads(theme *ui.Theme) *MailThreads {
	list := tview.NewTable().
		SetSelectable(true, false).
		SetBorders(false).
		SetFixed(1, 0)
	list.SetBorder(true)
	list.SetBorderColor(theme.BorderColor)
	list.SetBackgroundColor(theme.BgColor)
	list.SetSelectedStyle(tcell.StyleDefault.
		Foreground(theme.TableCursorFg).
		Background(theme.TableCursorBg))
	list.SetTitle(" Threads ")
	list.SetTitleColor(theme.TitleColor)

	chain := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetWordWrap(true)
	chain.SetBorder(true)
	chain.SetBorderColor(theme.BorderColor)
	chain.SetBackgroundColor(theme.BgColor)
	chain.SetTextColor(theme.FgColor)
	chain.SetTitleColor(theme.TitleColor)

	reply := tview.NewInputField().
		SetLabel(" > ").
		SetFieldWidth(0)
	reply.SetBorder(true)
	reply.SetBorderColor(theme.BorderColor)
	reply.SetBackgroundColor(theme.BgColor)
	reply.SetFieldBackgroundColor(theme.BgColor)
	reply.SetFieldTextColor(theme.FgColor)
	reply.SetLabelColor(theme.MenuKeyColor)
	reply.SetTitle(" Reply (r to focus) ")
	reply.SetTitleColor(theme.TitleColor)

	right := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(chain, 0, 1, false).
		AddItem(reply, 3, 0, false)

	flex := tview.NewFlex().
		AddItem(list, 0, 2, true).
		AddItem(right, 0, 3, false)

	mv := &MailThreads{
		Flex:  flex,
		theme: theme,
		list:  list,
		chain: chain,
		reply: reply,
	}

	list.SetSelectionChangedFunc(func(row, _ int) {
		mv.showChain(row - 1)
	})
	reply.SetDoneFunc(func(key tcell.Key) {
		if key != tcell.KeyEnter || mv.onReply == nil {
			return
		}
		t, ok := mv.Selected()
		if text := reply.GetText(); ok && text != "" {
			mv.onReply(t.ThreadID, text)
		}
	})

	return mv
}

// Name implements Component.
func (mv *MailThreads) Name() string { return "Mail" }

// Hints implements Component.
func (mv *MailThreads) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "r", Description: "Reply"},
		{Key: "R", Description: "Refresh"},
		{Key: ":compose", Description: "New thread"},
		{Key: "Esc", Description: "Back"},
		{Key: "?", Description: "Help"},
	}
}

// SetOnReply sets the callback for Enter in the reply box.
func (mv *MailThreads) SetOnReply(fn func(threadID, body string)) {
	mv.onReply = fn
}

// ClientID returns the client whose threads are shown.
func (mv *MailThreads) ClientID() crm.ID {
	return mv.client
}

// ClearReply empties the reply box.
func (mv *MailThreads) ClearReply() {
	mv.reply.SetText("")
}

// Update replaces the thread list, keeping the selection on the same
// thread when it is still present.
func (mv *MailThreads) Update(client crm.ID, name string, threads []api.ThreadView) {
	prev, hadPrev := mv.Selected()
	mv.client = client
	mv.threads = threads
	mv.list.Clear()

	headers := []struct {
		text string
		exp  int
	}{
		{" SUBJECT", 1},
		{" LAST", 0},
		{" MSGS", 0},
	}
	for col, h := range headers {
		mv.list.SetCell(0, col, tview.NewTableCell(h.text).
			SetSelectable(false).
			SetTextColor(mv.theme.TableHeaderFg).
			SetBackgroundColor(mv.theme.TableHeaderBg).
			SetAttributes(tcell.AttrBold).
			SetExpansion(h.exp))
	}
	selected := 0
	for i, t := range threads {
		row := i + 1
		mv.list.SetCell(row, 0, tview.NewTableCell(" "+cellText(t.Subject)).SetExpansion(1).SetTextColor(mv.theme.FgColor))
		mv.list.SetCell(row, 1, tview.NewTableCell(" "+formatTime(t.LastActivity)).SetTextColor(mv.theme.FgColor))
		mv.list.SetCell(row, 2, tview.NewTableCell(fmt.Sprintf("%d", len(t.Chain))).SetTextColor(mv.theme.FgColor).SetAlign(tview.AlignRight))
		if hadPrev && t.ThreadID == prev.ThreadID {
			selected = i
		}
	}
	mv.list.SetTitle(fmt.Sprintf(" %s threads (%d) ", tview.Escape(name), len(threads)))
	if len(threads) > 0 {
		mv.list.Select(selected+1, 0)
	}
	mv.showChain(selected)
}

// Selected returns the highlighted thread.
func (mv *MailThreads) Selected() (api.ThreadView, bool) {
	row, _ := mv.list.GetSelection()
	idx := row - 1
	if idx < 0 || idx >= len(mv.threads) {
		return api.ThreadView{}, false
	}
	return mv.threads[idx], true
}

func (mv *MailThreads) showChain(idx int) {
	mv.chain.Clear()
	if idx < 0 || idx >= len(mv.threads) {
		mv.chain.SetTitle(" ")
		return
	}
	t := mv.threads[idx]
	mv.chain.SetTitle(fmt.Sprintf(" %s ", tview.Escape(t.Subject)))
	for _, m := range t.Chain {
		from := m.FromAddress
		if from == "" {
			from = strings.Join(m.ToAddress, ", ")
		}
		_, _ = fmt.Fprintf(mv.chain, "[::b]%s[-:-:-] [::d]%s %s[-:-:-]\n%s\n\n",
			tview.Escape(from), m.Direction, formatTime(m.Time()),
			displayText(m.Body))
	}
	mv.chain.ScrollToBeginning()
}

// List returns the thread table (for focus management).
func (mv *MailThreads) List() *tview.Table {
	return mv.list
}

// Reply returns the reply input (for focus management).
func (mv *MailThreads) Reply() *tview.InputField {
	return mv.reply
}
