package views

import (
	"fmt"

	"github.com/matheus3301/crmlive/internal/tui/ui"
	"github.com/rivo/tview"
)

// HelpView displays key binding reference.
type HelpView struct {
	*tview.TextView
	theme *ui.Theme
}

// NewHelpView creates a new help view.
func NewHelpView(theme *ui.Theme) *HelpView {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true)
	tv.SetBorder(true)
	tv.SetBorderColor(theme.BorderColor)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetTextColor(theme.FgColor)
	tv.SetTitle(" Help ")
	tv.SetTitleColor(theme.TitleColor)

	hv := &HelpView{
		TextView: tv,
		theme:    theme,
	}
	hv.render()
	return hv
}

// Name implements Component.
func (hv *HelpView) Name() string { return "Help" }

// Hints implements Component.
func (hv *HelpView) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "Esc", Description: "Back"},
	}
}

func (hv *HelpView) render() {
	keyColor := ui.DefaultTheme().MenuKeyColor
	kc := fmt.Sprintf("#%06x", keyColor.Hex())

	help := fmt.Sprintf(`
  [::b]Global Keys[-:-:-]

  [%[1]s]:[-:-:-]      Command mode        [%[1]s]Esc[-:-:-]    Cancel / Go back
  [%[1]s]/[-:-:-]      Filter clients      [%[1]s]?[-:-:-]      Help
  [%[1]s]n[-:-:-]      Notifications       [%[1]s]q[-:-:-]      Quit

  [::b]Clients[-:-:-]

  [%[1]s]Enter[-:-:-]  Open conversation   [%[1]s]m[-:-:-]      Mail threads
  [%[1]s]1-9[-:-:-]    Jump to Nth client  [%[1]s]0[-:-:-]      Clear filter

  [::b]Conversation[-:-:-]

  [%[1]s]i[-:-:-]      Focus composer      [%[1]s]Enter[-:-:-]  Send (in composer)
  [%[1]s]m[-:-:-]      Mail threads        [%[1]s]Esc[-:-:-]    Close conversation

  [::b]Notifications[-:-:-]

  [%[1]s]Enter[-:-:-]  Open conversation   [%[1]s]d[-:-:-]      Dismiss
  [%[1]s]C[-:-:-]      Clear all

  [::b]Mail[-:-:-]

  [%[1]s]r[-:-:-]      Focus reply         [%[1]s]R[-:-:-]      Refresh from server

  [::b]Commands (: mode)[-:-:-]

  [%[1]s]:open <client id>[-:-:-]           Open a conversation
  [%[1]s]:compose <subject> | <body>[-:-:-] Start a mail thread
  [%[1]s]:clear[-:-:-]                      Clear notifications
  [%[1]s]:reconnect[-:-:-]                  Re-subscribe the notification feed
  [%[1]s]:help[-:-:-] / [%[1]s]:h[-:-:-]                 Show this help
  [%[1]s]:quit[-:-:-] / [%[1]s]:q[-:-:-]                 Quit application
`, kc)

	_, _ = fmt.Fprint(hv, help)
}
