package views

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/matheus3301/crmlive/internal/api"
	"github.com/matheus3301/crmlive/internal/crm"
	"github.com/matheus3301/crmlive/internal/tui/ui"
	"github.com/rivo/tview"
)

// Conversation displays the open SMS conversation and its composer.
type Conversation struct {
	*tview.Flex
	theme    *ui.Theme
	messages *tview.TextView
	composer *tview.InputField
	view     api.ConversationView
	onSend   func(text string)
}

// NewConversation creates a new conversation view.
func NewConversation(theme *ui.Theme) *Conversation {
	messages := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetWordWrap(true)
	messages.SetBorder(true)
	messages.SetBorderColor(theme.BorderColor)
	messages.SetBackgroundColor(theme.BgColor)
	messages.SetTextColor(theme.FgColor)
	messages.SetTitle(" Messages ")
	messages.SetTitleColor(theme.TitleColor)

	composer := tview.NewInputField().
		SetLabel(" > ").
		SetFieldWidth(0)
	composer.SetBorder(true)
	composer.SetBorderColor(theme.BorderColor)
	composer.SetBackgroundColor(theme.BgColor)
	composer.SetFieldBackgroundColor(theme.BgColor)
	composer.SetFieldTextColor(theme.FgColor)
	composer.SetLabelColor(theme.MenuKeyColor)
	composer.SetTitleColor(theme.TitleColor)

	flex := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(messages, 0, 1, true).
		AddItem(composer, 3, 0, false)

	cv := &Conversation{
		Flex:     flex,
		theme:    theme,
		messages: messages,
		composer: composer,
	}
	cv.setComposeTitle("IDLE")

	composer.SetDoneFunc(func(key tcell.Key) {
		if key == tcell.KeyEnter && cv.onSend != nil {
			if text := composer.GetText(); text != "" {
				cv.onSend(text)
			}
		}
	})

	return cv
}

// Name implements Component.
func (cv *Conversation) Name() string {
	if cv.view.ClientName != "" {
		return cv.view.ClientName
	}
	return "Conversation"
}

// Hints implements Component.
func (cv *Conversation) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "i", Description: "Compose"},
		{Key: "m", Description: "Mail"},
		{Key: "Esc", Description: "Back"},
		{Key: ":", Description: "Command"},
		{Key: "?", Description: "Help"},
	}
}

// SetOnSend sets the callback for Enter in the composer.
func (cv *Conversation) SetOnSend(fn func(text string)) {
	cv.onSend = fn
}

// ClientID returns the client of the rendered conversation.
func (cv *Conversation) ClientID() crm.ID {
	return cv.view.ClientID
}

// ClearComposer empties the input after a successful send.
func (cv *Conversation) ClearComposer() {
	cv.composer.SetText("")
}

func (cv *Conversation) setComposeTitle(state string) {
	cv.composer.SetTitle(fmt.Sprintf(" Compose [%s] (i to focus) ", state))
}

// Update renders a conversation, oldest message first.
func (cv *Conversation) Update(v api.ConversationView) {
	cv.view = v
	cv.messages.Clear()

	title := v.ClientName
	if title == "" {
		title = string(v.ClientID)
	}
	if v.ClientPhone != "" {
		title += " " + v.ClientPhone
	}
	cv.messages.SetTitle(fmt.Sprintf(" %s ", tview.Escape(title)))
	cv.setComposeTitle(v.ComposeState)

	errColor := ui.ColorName(cv.theme.FlashErrColor)
	if v.LoadError != "" {
		_, _ = fmt.Fprintf(cv.messages, "[%s]history unavailable: %s[-]\n\n", errColor, tview.Escape(v.LoadError))
	}
	if v.FeedError != "" {
		_, _ = fmt.Fprintf(cv.messages, "[%s]live updates stopped: %s[-]\n\n", errColor, tview.Escape(v.FeedError))
	}

	inColor := ui.ColorName(cv.theme.InboundColor)
	outColor := ui.ColorName(cv.theme.OutboundColor)
	for _, m := range v.Messages {
		sender, color := title, inColor
		if m.Direction == crm.Outbound {
			sender, color = "You", outColor
		}
		status := ""
		if m.Direction == crm.Outbound && m.Status != "" {
			status = " " + string(m.Status)
		}
		line := fmt.Sprintf("[%s::b]%s[-:-:-] [::d]%s%s[-:-:-]\n%s\n\n",
			color, displayText(sender), formatTime(m.Time()), status, displayText(m.Content))
		_, _ = fmt.Fprint(cv.messages, line)
	}

	cv.messages.ScrollToEnd()
}

// Messages returns the messages text view (for focus management).
func (cv *Conversation) Messages() *tview.TextView {
	return cv.messages
}

// Composer returns the composer input field (for focus management).
func (cv *Conversation) Composer() *tview.InputField {
	return cv.composer
}
