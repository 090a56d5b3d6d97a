package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/matheus3301/crmlive/internal/api"
	"github.com/matheus3301/crmlive/internal/crm"
)

type printer struct {
	json bool
}

func (p printer) maybeJSON(v any) bool {
	if !p.json {
		return false
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
	return true
}

func (p printer) status(st api.DaemonStatus) {
	if p.maybeJSON(st) {
		return
	}
	fmt.Printf("Session:       %s\n", st.Session)
	fmt.Printf("Status:        %s\n", st.Status)
	if st.Reason != "" {
		fmt.Printf("Reason:        %s\n", st.Reason)
	}
	fmt.Printf("Operator:      %s <%s> %s\n", st.Operator.Name, st.Operator.Email, st.Operator.PhoneNumber)
	fmt.Printf("Feed:          %s\n", st.FeedDriver)
	fmt.Printf("Scope:         %s\n", st.Scope)
	if st.FeedError != "" {
		fmt.Printf("Feed error:    %s\n", st.FeedError)
	}
	fmt.Printf("Notifications: %d\n", st.Notifications)
	fmt.Printf("Clients:       %d\n", st.Clients)
	fmt.Printf("Uptime:        %s\n", time.Duration(st.UptimeMs)*time.Millisecond)
}

func (p printer) clients(clients []crm.Client) {
	if p.maybeJSON(clients) {
		return
	}
	for _, c := range clients {
		fmt.Printf("%-8s %-28s %-16s %s\n", c.ID, c.DisplayName(), c.PrimaryPhone, c.Email())
	}
}

func (p printer) notifications(items []crm.Notification) {
	if p.maybeJSON(items) {
		return
	}
	if len(items) == 0 {
		fmt.Println("No notifications.")
		return
	}
	for _, n := range items {
		fmt.Printf("%s  %s  %-20s %s\n", n.ID, n.Timestamp.Local().Format("Jan 02 15:04"), n.ClientName, oneLine(n.Message))
	}
}

func (p printer) conversation(v api.ConversationView) {
	if p.maybeJSON(v) {
		return
	}
	fmt.Printf("%s (%s)\n", v.ClientName, v.ClientPhone)
	if v.LoadError != "" {
		fmt.Printf("load error: %s\n", v.LoadError)
	}
	for _, m := range v.Messages {
		p.messageLine(m)
	}
}

func (p printer) message(m crm.Message) {
	if p.maybeJSON(m) {
		return
	}
	p.messageLine(m)
}

func (p printer) messageLine(m crm.Message) {
	who := "them"
	if m.Direction == crm.Outbound {
		who = "you"
	}
	ts := "?"
	if t := m.Time(); !t.IsZero() {
		ts = t.Local().Format("Jan 02 15:04")
	}
	fmt.Printf("[%s] %-4s %s (%s)\n", ts, who, oneLine(m.Content), m.Status)
}

func (p printer) threads(threads []api.ThreadView) {
	if p.maybeJSON(threads) {
		return
	}
	if len(threads) == 0 {
		fmt.Println("No mail threads.")
		return
	}
	for _, t := range threads {
		fmt.Printf("%s  %-40s %d message(s)\n", t.ThreadID, t.Subject, len(t.Chain))
	}
}

func (p printer) chain(chain []api.MailView) {
	if p.maybeJSON(chain) {
		return
	}
	for _, m := range chain {
		fmt.Printf("--- %s  %s -> %s\n", m.Subject, m.FromAddress, strings.Join(m.ToAddress, ", "))
		fmt.Println(m.Body)
	}
}

func oneLine(s string) string {
	return strings.ReplaceAll(s, "\n", " ")
}
