package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/matheus3301/crmlive/internal/api"
	"github.com/matheus3301/crmlive/internal/config"
	"github.com/matheus3301/crmlive/internal/crm"
	"github.com/matheus3301/crmlive/internal/feed"
	"github.com/matheus3301/crmlive/internal/feed/amqpfeed"
	"github.com/matheus3301/crmlive/internal/session"
	"github.com/matheus3301/crmlive/internal/tui/client"
)

func main() {
	sessionFlag := flag.String("session", "", "session name (overrides config default)")
	jsonFlag := flag.Bool("json", false, "output in JSON format")
	flag.Parse()

	sessionName := session.Resolve(*sessionFlag)
	if err := session.ValidateName(sessionName); err != nil {
		fatal(err)
	}

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	// Commands that do not talk to the daemon.
	switch args[0] {
	case "config":
		if len(args) < 2 || args[1] != "init" {
			usage("crmctl config init")
		}
		cmdConfigInit(sessionName)
		return
	case "publish-test":
		if len(args) < 4 {
			usage("crmctl publish-test <client id> <phone> <text>")
		}
		cmdPublishTest(sessionName, crm.ID(args[1]), args[2], strings.Join(args[3:], " "))
		return
	}

	socketPath := session.SocketPath(sessionName)
	c, err := client.New(socketPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: cannot connect to daemon for session %q: %v\n", sessionName, err)
		os.Exit(1)
	}
	defer func() { _ = c.Close() }()

	if args[0] == "watch" {
		service := api.NotificationsService
		if len(args) > 1 && args[1] == "conversation" {
			service = api.ConversationsService
		}
		cmdWatch(c, service)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	out := printer{json: *jsonFlag}

	switch args[0] {
	case "status":
		st, err := c.Status(ctx)
		check(err)
		out.status(st)
	case "clients":
		clients, err := c.Clients(ctx)
		check(err)
		out.clients(clients)
	case "notifications":
		items, err := c.Notifications(ctx)
		check(err)
		out.notifications(items)
	case "dismiss":
		if len(args) < 2 {
			usage("crmctl dismiss <notification id>")
		}
		removed, err := c.Dismiss(ctx, args[1])
		check(err)
		if !removed {
			fmt.Fprintf(os.Stderr, "no notification %s\n", args[1])
			os.Exit(1)
		}
	case "clear":
		check(c.ClearNotifications(ctx))
	case "conversation":
		if len(args) < 2 {
			usage("crmctl conversation <client id>")
		}
		view, err := c.OpenConversation(ctx, crm.ID(args[1]))
		check(err)
		out.conversation(view)
	case "send":
		if len(args) < 3 {
			usage("crmctl send <client id> <text>")
		}
		_, err := c.OpenConversation(ctx, crm.ID(args[1]))
		check(err)
		msg, err := c.Send(ctx, strings.Join(args[2:], " "))
		check(err)
		out.message(msg)
	case "threads":
		if len(args) < 2 {
			usage("crmctl threads <client id> [refresh]")
		}
		threads, err := c.Threads(ctx, crm.ID(args[1]), len(args) > 2 && args[2] == "refresh")
		check(err)
		out.threads(threads)
	case "reply":
		if len(args) < 4 {
			usage("crmctl reply <client id> <thread id> <body>")
		}
		chain, err := c.Reply(ctx, crm.ID(args[1]), args[2], strings.Join(args[3:], " "))
		check(err)
		out.chain(chain)
	case "compose":
		if len(args) < 4 {
			usage("crmctl compose <client id> <subject> <body>")
		}
		msg, err := c.Compose(ctx, crm.ID(args[1]), args[2], strings.Join(args[3:], " "))
		check(err)
		out.chain([]api.MailView{msg})
	case "reconnect":
		check(c.Reactivate(ctx))
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", args[0])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "usage: crmctl [--session <name>] [--json] <command>")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "commands:")
	fmt.Fprintln(os.Stderr, "  status                          Show daemon status")
	fmt.Fprintln(os.Stderr, "  clients                         List known clients")
	fmt.Fprintln(os.Stderr, "  notifications                   List unread inbound messages")
	fmt.Fprintln(os.Stderr, "  dismiss <id>                    Dismiss a notification")
	fmt.Fprintln(os.Stderr, "  clear                           Dismiss all notifications")
	fmt.Fprintln(os.Stderr, "  conversation <client>           Open and print a conversation")
	fmt.Fprintln(os.Stderr, "  send <client> <text>            Send an SMS")
	fmt.Fprintln(os.Stderr, "  threads <client> [refresh]      List mail threads")
	fmt.Fprintln(os.Stderr, "  reply <client> <thread> <body>  Reply to a mail thread")
	fmt.Fprintln(os.Stderr, "  compose <client> <subj> <body>  Start a new mail thread")
	fmt.Fprintln(os.Stderr, "  watch [conversation]            Stream daemon events")
	fmt.Fprintln(os.Stderr, "  reconnect                       Re-activate the global feed")
	fmt.Fprintln(os.Stderr, "  publish-test <client> <phone> <text>")
	fmt.Fprintln(os.Stderr, "                                  Inject an inbound message on the AMQP feed")
	fmt.Fprintln(os.Stderr, "  config init                     Write a default session config")
}

func usage(line string) {
	fmt.Fprintln(os.Stderr, "usage: "+line)
	os.Exit(1)
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}

func check(err error) {
	if err != nil {
		fatal(err)
	}
}

func cmdWatch(c *client.Client, service string) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stream, err := c.Watch(ctx, service, "")
	check(err)
	enc := json.NewEncoder(os.Stdout)
	for {
		evt, err := stream.Recv()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			fatal(err)
		}
		_ = enc.Encode(evt)
	}
}

func cmdConfigInit(sessionName string) {
	path := session.SessionConfigPath(sessionName)
	if _, err := os.Stat(path); err == nil {
		fatal(fmt.Errorf("%s already exists", path))
	}
	check(session.EnsureDir(sessionName))
	check(config.SaveSession(path, config.DefaultSession()))
	fmt.Println("Wrote", path)
}

func cmdPublishTest(sessionName string, clientID crm.ID, phone, text string) {
	cfg, err := session.LoadConfig(sessionName)
	check(err)
	if cfg.Feed.AMQP.URL == "" {
		fatal(fmt.Errorf("feed.amqp.url is not configured for session %q", sessionName))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	evt := feed.Event{Kind: feed.Insert, New: crm.Message{
		ID:          uuid.New().String(),
		ClientID:    clientID,
		PhoneNumber: phone,
		FromNumber:  phone,
		ToNumber:    cfg.Operator.PhoneNumber,
		Content:     text,
		Direction:   crm.Inbound,
		Status:      crm.StatusReceived,
		CreatedAt:   time.Now().UTC().Format(time.RFC3339Nano),
	}}
	check(amqpfeed.Publish(ctx, cfg.Feed.AMQP.URL, cfg.Feed.AMQP.Exchange, evt))
	fmt.Println("Published", evt.New.ID)
}
