package tui

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/matheus3301/crmlive/internal/api"
	"github.com/matheus3301/crmlive/internal/bus"
	"github.com/matheus3301/crmlive/internal/crm"
	"github.com/matheus3301/crmlive/internal/tui/client"
	"github.com/matheus3301/crmlive/internal/tui/keys"
	"github.com/matheus3301/crmlive/internal/tui/model"
	"github.com/matheus3301/crmlive/internal/tui/ui"
	"github.com/matheus3301/crmlive/internal/tui/views"
	"github.com/rivo/tview"
)

const (
	pageClients       = "clients"
	pageConversation  = "conversation"
	pageNotifications = "notifications"
	pageMail          = "mail"
	pageHelp          = "help"
)

const requestTimeout = 10 * time.Second

// App is the main TUI application shell.
type App struct {
	app      *tview.Application
	root     *tview.Flex
	pages    *ui.Pages
	vm       *model.ViewModel
	grpc     *client.Client
	registry *keys.Registry
	theme    *ui.Theme
	session  string

	info       *ui.SessionInfo
	menu       *ui.Menu
	crumbs     *ui.Crumbs
	flash      *ui.FlashBar
	prompt     *ui.Prompt
	components map[string]ui.Component

	clients       *views.ClientList
	conversation  *views.Conversation
	notifications *views.NotificationList
	mail          *views.MailThreads
	help          *views.HelpView

	ctx    context.Context
	cancel context.CancelFunc
}

// NewApp creates the TUI application.
func NewApp(c *client.Client, sessionName string) *App {
	ctx, cancel := context.WithCancel(context.Background())
	theme := ui.DefaultTheme()

	a := &App{
		app:           tview.NewApplication(),
		pages:         ui.NewPages(),
		vm:            model.NewViewModel(c),
		grpc:          c,
		registry:      keys.NewRegistry(),
		theme:         theme,
		session:       sessionName,
		info:          ui.NewSessionInfo(theme),
		menu:          ui.NewMenu(theme),
		crumbs:        ui.NewCrumbs(theme),
		flash:         ui.NewFlashBar(theme),
		prompt:        ui.NewPrompt(theme),
		clients:       views.NewClientList(theme),
		conversation:  views.NewConversation(theme),
		notifications: views.NewNotificationList(theme),
		mail:          views.NewMailThreads(theme),
		help:          views.NewHelpView(theme),
		ctx:           ctx,
		cancel:        cancel,
	}
	a.components = map[string]ui.Component{
		pageClients:       a.clients,
		pageConversation:  a.conversation,
		pageNotifications: a.notifications,
		pageMail:          a.mail,
		pageHelp:          a.help,
	}

	a.setupBindings()
	a.setupCallbacks()
	a.setupLayout()

	return a
}

func (a *App) setupBindings() {
	a.registry.Rune(keys.Global, 'q', a.Stop)
	a.registry.Rune(keys.Global, '?', func() { a.push(pageHelp) })
	a.registry.Rune(keys.Global, 'n', func() { a.push(pageNotifications) })
	a.registry.Bind(keys.Global, keys.Action{Key: tcell.KeyCtrlR, Handler: a.refresh})

	a.registry.Rune(pageClients, 'm', func() {
		if c, ok := a.clients.SelectedClient(); ok {
			a.openMail(c.ID, false)
		}
	})

	a.registry.Rune(pageConversation, 'i', func() { a.app.SetFocus(a.conversation.Composer()) })
	a.registry.Rune(pageConversation, 'm', func() {
		if id := a.conversation.ClientID(); id != "" {
			a.openMail(id, false)
		}
	})

	a.registry.Rune(pageNotifications, 'd', func() {
		if n, ok := a.notifications.Selected(); ok {
			a.do(func(ctx context.Context) error { return a.vm.DismissNotification(ctx, n.ID) }, a.drawNotifications)
		}
	})
	a.registry.Rune(pageNotifications, 'C', func() { a.do(a.vm.ClearNotifications, a.drawNotifications) })

	a.registry.Rune(pageMail, 'r', func() { a.app.SetFocus(a.mail.Reply()) })
	a.registry.Rune(pageMail, 'R', func() { a.openMail(a.mail.ClientID(), true) })
}

func (a *App) setupCallbacks() {
	a.clients.SetSelectedFunc(func(row, _ int) {
		if c, ok := a.clients.ClientByIndex(row); ok {
			a.openConversation(c.ID)
		}
	})

	a.notifications.SetSelectedFunc(func(_, _ int) {
		n, ok := a.notifications.Selected()
		if !ok {
			return
		}
		a.do(func(ctx context.Context) error { return a.vm.OpenNotification(ctx, n.ID) }, func() {
			a.drawNotifications()
			if a.vm.Conversation().Active {
				a.drawConversation()
				a.push(pageConversation)
			}
		})
	})

	a.conversation.SetOnSend(func(text string) {
		a.do(func(ctx context.Context) error { return a.vm.Send(ctx, text) }, func() {
			a.conversation.ClearComposer()
		})
	})

	a.mail.SetOnReply(func(threadID, body string) {
		a.do(func(ctx context.Context) error { return a.vm.Reply(ctx, threadID, body) }, func() {
			a.mail.ClearReply()
			a.drawMail()
			a.app.SetFocus(a.mail.List())
		})
	})

	a.prompt.SetOnSubmit(func(mode ui.PromptMode, text string) {
		a.hidePrompt()
		switch mode {
		case ui.PromptCommand:
			a.runCommand(ParseCommand(text))
		case ui.PromptFilter:
			a.clients.SetFilter(text)
		}
	})
	a.prompt.SetOnCancel(a.hidePrompt)

	a.pages.SetOnChange(func(stack []string) {
		names := make([]string, len(stack))
		for i, p := range stack {
			names[i] = a.components[p].Name()
		}
		a.crumbs.Update(names)
		if len(stack) > 0 {
			a.menu.Update(a.components[stack[len(stack)-1]].Hints())
		}
	})
}

func (a *App) setupLayout() {
	for name, c := range a.components {
		a.pages.AddPage(name, c, true, false)
	}

	header := tview.NewFlex().
		AddItem(a.info, 0, 2, false).
		AddItem(a.menu, 0, 2, false).
		AddItem(ui.NewLogo(a.theme), 18, 0, false)

	a.root = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(header, 7, 0, false).
		AddItem(a.prompt, 0, 0, false).
		AddItem(a.pages, 0, 1, true).
		AddItem(a.crumbs, 1, 0, false).
		AddItem(a.flash, 1, 0, false)

	a.app.SetRoot(a.root, true)
	a.pages.Reset(pageClients)

	a.app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		current := a.pages.Current()
		focused := a.app.GetFocus()

		if focused == a.prompt.InputField {
			return event
		}
		if _, ok := focused.(*tview.InputField); ok {
			if event.Key() == tcell.KeyEscape {
				a.focusPage()
				return nil
			}
			return event
		}

		switch {
		case event.Key() == tcell.KeyEscape:
			a.pop()
			return nil
		case event.Key() == tcell.KeyRune && event.Rune() == ':':
			a.showPrompt(ui.PromptCommand)
			return nil
		case event.Key() == tcell.KeyRune && event.Rune() == '/' && current == pageClients:
			a.showPrompt(ui.PromptFilter)
			return nil
		case event.Key() == tcell.KeyRune && current == pageClients && event.Rune() >= '0' && event.Rune() <= '9':
			if event.Rune() == '0' {
				a.clients.ClearFilter()
			} else if c, ok := a.clients.ClientByIndex(int(event.Rune() - '0')); ok {
				a.openConversation(c.ID)
			}
			return nil
		}

		if a.registry.HandleEvent(current, event) {
			return nil
		}
		return event
	})
}

func (a *App) push(name string) {
	if a.pages.Current() == name {
		return
	}
	a.pages.Push(name)
	a.focusPage()
}

func (a *App) pop() {
	if a.pages.Depth() <= 1 {
		return
	}
	if a.pages.Pop() == pageConversation {
		a.do(a.vm.CloseConversation, nil)
	}
	a.focusPage()
}

func (a *App) focusPage() {
	switch a.pages.Current() {
	case pageConversation:
		a.app.SetFocus(a.conversation.Messages())
	case pageMail:
		a.app.SetFocus(a.mail.List())
	default:
		if c, ok := a.components[a.pages.Current()]; ok {
			a.app.SetFocus(c)
		}
	}
}

func (a *App) showPrompt(mode ui.PromptMode) {
	a.prompt.Activate(mode)
	a.root.ResizeItem(a.prompt, 3, 0)
	a.app.SetFocus(a.prompt)
}

func (a *App) hidePrompt() {
	a.root.ResizeItem(a.prompt, 0, 0)
	a.focusPage()
}

// do runs fn off the UI goroutine and then applies onDone on it. Errors
// go to the flash bar.
func (a *App) do(fn func(ctx context.Context) error, onDone func()) {
	go func() {
		ctx, cancel := context.WithTimeout(a.ctx, requestTimeout)
		defer cancel()
		err := fn(ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			a.vm.Flash.Err(err)
		}
		a.app.QueueUpdateDraw(func() {
			if err == nil && onDone != nil {
				onDone()
			}
			a.flash.Update(a.vm.Flash.GetMessage())
		})
	}()
}

func (a *App) openConversation(id crm.ID) {
	a.do(func(ctx context.Context) error { return a.vm.OpenConversation(ctx, id) }, func() {
		a.drawConversation()
		a.push(pageConversation)
	})
}

func (a *App) openMail(id crm.ID, refresh bool) {
	if id == "" {
		return
	}
	a.do(func(ctx context.Context) error { return a.vm.LoadThreads(ctx, id, refresh) }, func() {
		a.drawMail()
		a.push(pageMail)
	})
}

func (a *App) runCommand(cmd Command) {
	switch cmd.Name {
	case "quit":
		a.Stop()
	case "help":
		a.push(pageHelp)
	case "clients":
		if slices.Contains(a.pages.Stack(), pageConversation) {
			a.do(a.vm.CloseConversation, nil)
		}
		a.pages.Reset(pageClients)
		a.focusPage()
	case "notifications":
		a.push(pageNotifications)
	case "open":
		if cmd.Args == "" {
			a.vm.Flash.Warn("usage: :open <client id>")
			break
		}
		a.openConversation(crm.ID(cmd.Args))
	case "mail":
		id := crm.ID(cmd.Args)
		if id == "" {
			id = a.conversation.ClientID()
		}
		a.openMail(id, false)
	case "compose":
		subject, body, ok := SplitCompose(cmd.Args)
		if !ok || a.vm.ThreadsClient() == "" {
			a.vm.Flash.Warn("usage: :compose <subject> | <body> (from the mail view)")
			break
		}
		a.do(func(ctx context.Context) error { return a.vm.Compose(ctx, subject, body) }, a.drawMail)
	case "clear":
		a.do(a.vm.ClearNotifications, a.drawNotifications)
	case "reconnect":
		a.do(a.vm.Reconnect, a.drawStatus)
	default:
		a.vm.Flash.Warn(fmt.Sprintf("unknown command: %s", cmd.Name))
	}
	a.flash.Update(a.vm.Flash.GetMessage())
}

func (a *App) drawStatus() {
	st := a.vm.Status()
	if st == nil {
		return
	}
	status := st.Status
	if st.Reason != "" {
		status += ": " + st.Reason
	}
	a.info.Update(&ui.SessionData{
		Session:       st.Session,
		Operator:      st.Operator.Name,
		Phone:         st.Operator.PhoneNumber,
		Status:        status,
		Feed:          st.FeedDriver,
		Notifications: st.Notifications,
		Clients:       st.Clients,
		Uptime:        time.Duration(st.UptimeMs) * time.Millisecond,
	})
}

func (a *App) drawNotifications() {
	a.notifications.Update(a.vm.Notifications())
}

func (a *App) drawConversation() {
	a.conversation.Update(a.vm.Conversation())
}

func (a *App) drawMail() {
	id := a.vm.ThreadsClient()
	name := string(id)
	if c, ok := a.vm.Client(id); ok && c.DisplayName() != "" {
		name = c.DisplayName()
	}
	a.mail.Update(id, name, a.vm.Threads())
}

// Run starts the TUI application.
func (a *App) Run() error {
	go func() {
		ctx, cancel := context.WithTimeout(a.ctx, requestTimeout)
		defer cancel()
		for _, load := range []func(context.Context) error{a.vm.LoadStatus, a.vm.LoadClients, a.vm.LoadNotifications} {
			if err := load(ctx); err != nil {
				a.vm.Flash.Err(err)
			}
		}
		a.app.QueueUpdateDraw(func() {
			a.clients.Update(a.vm.Clients())
			a.drawNotifications()
			a.drawStatus()
			a.flash.Update(a.vm.Flash.GetMessage())
		})

		go a.watch(api.NotificationsService, a.onNotificationEvent)
		go a.watch(api.ConversationsService, a.onConversationEvent)
		a.startRefreshLoop()
	}()

	return a.app.Run()
}

// watch follows a daemon event stream, reconnecting until the app stops.
func (a *App) watch(service string, handle func(api.WatchEvent)) {
	for a.ctx.Err() == nil {
		stream, err := a.grpc.Watch(a.ctx, service, "")
		if err == nil {
			for {
				evt, recvErr := stream.Recv()
				if recvErr != nil {
					break
				}
				handle(evt)
			}
		}
		select {
		case <-a.ctx.Done():
			return
		case <-time.After(2 * time.Second):
		}
	}
}

func (a *App) onNotificationEvent(evt api.WatchEvent) {
	ctx, cancel := context.WithTimeout(a.ctx, requestTimeout)
	defer cancel()
	if err := a.vm.LoadNotifications(ctx); err != nil {
		return
	}
	if evt.Kind == bus.NotificationAdded {
		if p, ok := evt.Payload.(map[string]any); ok {
			a.vm.Flash.Info(fmt.Sprintf("New message from %v", p["client_name"]))
		}
	}
	a.app.QueueUpdateDraw(func() {
		a.drawNotifications()
		a.flash.Update(a.vm.Flash.GetMessage())
	})
}

func (a *App) onConversationEvent(evt api.WatchEvent) {
	ctx, cancel := context.WithTimeout(a.ctx, requestTimeout)
	defer cancel()
	if err := a.vm.LoadConversation(ctx); err != nil {
		return
	}
	a.app.QueueUpdateDraw(func() {
		if a.pages.Current() == pageConversation {
			a.drawConversation()
		}
	})
}

func (a *App) startRefreshLoop() {
	ticker := time.NewTicker(5 * time.Second)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				a.reload()
			case <-a.ctx.Done():
				return
			}
		}
	}()
}

// refresh reloads status and the client list off the UI goroutine.
func (a *App) refresh() {
	go a.reload()
}

func (a *App) reload() {
	ctx, cancel := context.WithTimeout(a.ctx, requestTimeout)
	_ = a.vm.LoadStatus(ctx)
	_ = a.vm.LoadClients(ctx)
	cancel()
	a.app.QueueUpdateDraw(func() {
		a.drawStatus()
		a.clients.Update(a.vm.Clients())
		a.flash.Update(a.vm.Flash.GetMessage())
	})
}

// Stop gracefully shuts down the TUI.
func (a *App) Stop() {
	a.cancel()
	a.app.Stop()
}
