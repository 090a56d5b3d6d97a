package tui

import "strings"

// Command is a parsed ":" prompt entry.
type Command struct {
	Name string
	Args string
}

var commandAliases = map[string]string{
	"q":      "quit",
	"h":      "help",
	"n":      "notifications",
	"c":      "clients",
	"o":      "open",
	"reload": "reconnect",
}

// ParseCommand splits input (without the leading ':') into a lower-cased
// command name and its trimmed arguments. Short aliases are expanded.
func ParseCommand(input string) Command {
	name, args, _ := strings.Cut(strings.TrimSpace(input), " ")
	name = strings.ToLower(name)
	if full, ok := commandAliases[name]; ok {
		name = full
	}
	return Command{Name: name, Args: strings.TrimSpace(args)}
}

// SplitCompose splits ":compose" arguments into subject and body at the
// first '|'.
func SplitCompose(args string) (subject, body string, ok bool) {
	subject, body, ok = strings.Cut(args, "|")
	subject, body = strings.TrimSpace(subject), strings.TrimSpace(body)
	return subject, body, ok && subject != "" && body != ""
}
