package model

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/matheus3301/crmlive/internal/api"
	"github.com/matheus3301/crmlive/internal/crm"
	"github.com/matheus3301/crmlive/internal/tui/client"
	"github.com/matheus3301/crmlive/internal/tui/ui"
)

// ViewModel caches daemon state for the views.
type ViewModel struct {
	mu sync.RWMutex

	client        *client.Client
	status        *api.DaemonStatus
	clients       []crm.Client
	notifications []crm.Notification
	conversation  api.ConversationView
	threads       []api.ThreadView
	threadsOf     crm.ID
	Flash         *ui.FlashModel
}

// NewViewModel creates a new view model connected to the daemon client.
func NewViewModel(c *client.Client) *ViewModel {
	return &ViewModel{
		client: c,
		Flash:  ui.NewFlashModel(),
	}
}

// LoadStatus fetches the daemon status.
func (vm *ViewModel) LoadStatus(ctx context.Context) error {
	st, err := vm.client.Status(ctx)
	if err != nil {
		return err
	}
	vm.mu.Lock()
	vm.status = &st
	vm.mu.Unlock()
	return nil
}

// LoadClients fetches the client directory.
func (vm *ViewModel) LoadClients(ctx context.Context) error {
	clients, err := vm.client.Clients(ctx)
	if err != nil {
		return err
	}
	vm.mu.Lock()
	vm.clients = clients
	vm.mu.Unlock()
	return nil
}

// LoadNotifications fetches pending notifications.
func (vm *ViewModel) LoadNotifications(ctx context.Context) error {
	items, err := vm.client.Notifications(ctx)
	if err != nil {
		return err
	}
	vm.mu.Lock()
	vm.notifications = items
	vm.mu.Unlock()
	return nil
}

// OpenConversation makes id the daemon's live conversation.
func (vm *ViewModel) OpenConversation(ctx context.Context, id crm.ID) error {
	v, err := vm.client.OpenConversation(ctx, id)
	if err != nil {
		return err
	}
	vm.setConversation(v)
	if v.LoadError != "" {
		vm.Flash.Warn("History unavailable: " + v.LoadError)
	}
	return nil
}

// LoadConversation re-reads the open conversation.
func (vm *ViewModel) LoadConversation(ctx context.Context) error {
	v, err := vm.client.Conversation(ctx)
	if err != nil {
		return err
	}
	vm.setConversation(v)
	return nil
}

// CloseConversation ends the live conversation.
func (vm *ViewModel) CloseConversation(ctx context.Context) error {
	if err := vm.client.CloseConversation(ctx); err != nil {
		return err
	}
	vm.setConversation(api.ConversationView{})
	return nil
}

func (vm *ViewModel) setConversation(v api.ConversationView) {
	vm.mu.Lock()
	vm.conversation = v
	vm.mu.Unlock()
}

// Send sends an SMS in the open conversation. The message itself arrives
// through the live feed.
func (vm *ViewModel) Send(ctx context.Context, text string) error {
	if _, err := vm.client.Send(ctx, text); err != nil {
		return err
	}
	vm.Flash.Set("Message sent", 3*time.Second)
	return nil
}

// DismissNotification removes one notification.
func (vm *ViewModel) DismissNotification(ctx context.Context, id string) error {
	if _, err := vm.client.Dismiss(ctx, id); err != nil {
		return err
	}
	return vm.LoadNotifications(ctx)
}

// OpenNotification dismisses a notification and opens its conversation.
func (vm *ViewModel) OpenNotification(ctx context.Context, id string) error {
	clientID, found, err := vm.client.OpenNotification(ctx, id)
	if err != nil {
		return err
	}
	if err := vm.LoadNotifications(ctx); err != nil {
		return err
	}
	if !found || clientID == "" {
		vm.Flash.Warn("Notification already dismissed")
		return nil
	}
	return vm.OpenConversation(ctx, clientID)
}

// ClearNotifications removes every notification.
func (vm *ViewModel) ClearNotifications(ctx context.Context) error {
	if err := vm.client.ClearNotifications(ctx); err != nil {
		return err
	}
	vm.mu.Lock()
	vm.notifications = nil
	vm.mu.Unlock()
	return nil
}

// Reconnect asks the daemon to re-subscribe its notification feed.
func (vm *ViewModel) Reconnect(ctx context.Context) error {
	if err := vm.client.Reactivate(ctx); err != nil {
		return err
	}
	return vm.LoadStatus(ctx)
}

// LoadThreads fetches a client's mail threads.
func (vm *ViewModel) LoadThreads(ctx context.Context, id crm.ID, refresh bool) error {
	threads, err := vm.client.Threads(ctx, id, refresh)
	if err != nil {
		return err
	}
	vm.mu.Lock()
	vm.threads = threads
	vm.threadsOf = id
	vm.mu.Unlock()
	return nil
}

// Reply answers a thread of the client whose threads are loaded.
func (vm *ViewModel) Reply(ctx context.Context, threadID, body string) error {
	id := vm.ThreadsClient()
	if _, err := vm.client.Reply(ctx, id, threadID, body); err != nil {
		return err
	}
	vm.Flash.Set("Reply sent", 3*time.Second)
	return vm.LoadThreads(ctx, id, false)
}

// Compose starts a thread with the client whose threads are loaded.
func (vm *ViewModel) Compose(ctx context.Context, subject, body string) error {
	id := vm.ThreadsClient()
	if _, err := vm.client.Compose(ctx, id, subject, body); err != nil {
		return err
	}
	vm.Flash.Set("Mail sent", 3*time.Second)
	return vm.LoadThreads(ctx, id, false)
}

// Status returns a snapshot of the daemon status, or nil before the
// first load.
func (vm *ViewModel) Status() *api.DaemonStatus {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.status
}

// Clients returns a snapshot of the client directory.
func (vm *ViewModel) Clients() []crm.Client {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return slices.Clone(vm.clients)
}

// Client returns a cached client.
func (vm *ViewModel) Client(id crm.ID) (crm.Client, bool) {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	for _, c := range vm.clients {
		if c.ID == id {
			return c, true
		}
	}
	return crm.Client{}, false
}

// Notifications returns a snapshot of pending notifications.
func (vm *ViewModel) Notifications() []crm.Notification {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return slices.Clone(vm.notifications)
}

// Conversation returns the open conversation.
func (vm *ViewModel) Conversation() api.ConversationView {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.conversation
}

// Threads returns the loaded mail threads.
func (vm *ViewModel) Threads() []api.ThreadView {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return slices.Clone(vm.threads)
}

// ThreadsClient returns the client whose threads are loaded.
func (vm *ViewModel) ThreadsClient() crm.ID {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.threadsOf
}
