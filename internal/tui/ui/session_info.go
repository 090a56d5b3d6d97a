package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/rivo/tview"
)

// SessionData holds session information for display.
type SessionData struct {
	Session       string
	Operator      string
	Phone         string
	Status        string
	Feed          string
	Notifications int
	Clients       int
	Uptime        time.Duration
}

// SessionInfo displays session metadata in the header.
type SessionInfo struct {
	*tview.TextView
	theme *Theme
}

// NewSessionInfo creates a new session info panel.
func NewSessionInfo(theme *Theme) *SessionInfo {
	tv := tview.NewTextView().
		SetDynamicColors(true)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetBorderPadding(0, 0, 1, 1)

	return &SessionInfo{
		TextView: tv,
		theme:    theme,
	}
}

// Update renders the session info.
func (si *SessionInfo) Update(data *SessionData) {
	si.Clear()
	if data == nil {
		return
	}

	fgColor := ColorName(si.theme.FgColor)
	counterColor := ColorName(si.theme.CounterColor)

	phone := data.Phone
	if phone == "" {
		phone = "-"
	}
	operator := data.Operator
	if operator == "" {
		operator = "-"
	}

	uptime := formatDuration(data.Uptime)

	statusColor := counterColor
	switch {
	case strings.HasPrefix(data.Status, "READY"):
		statusColor = ColorName(si.theme.ReadyColor)
	case strings.HasPrefix(data.Status, "DEGRADED"), strings.HasPrefix(data.Status, "ERROR"):
		statusColor = ColorName(si.theme.DegradedColor)
	}

	text := fmt.Sprintf(
		"[%s::b]Session:[-:-:-]  [%s]%s[-]\n"+
			"[%s::b]Operator:[-:-:-] [%s]%s[-] [%s]%s[-]\n"+
			"[%s::b]Status:[-:-:-]   [%s]%s[-] (%s)\n"+
			"[%s::b]Inbox:[-:-:-]    [%s]%d[-]\n"+
			"[%s::b]Clients:[-:-:-]  [%s]%d[-]\n"+
			"[%s::b]Uptime:[-:-:-]   [%s]%s[-]",
		fgColor, counterColor, tview.Escape(data.Session),
		fgColor, counterColor, tview.Escape(operator), counterColor, tview.Escape(phone),
		fgColor, statusColor, tview.Escape(data.Status), tview.Escape(data.Feed),
		fgColor, counterColor, data.Notifications,
		fgColor, counterColor, data.Clients,
		fgColor, counterColor, uptime,
	)

	_, _ = fmt.Fprint(si, text)
}

func formatDuration(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	if h > 0 {
		return fmt.Sprintf("%dh%dm", h, m)
	}
	return fmt.Sprintf("%dm", m)
}
