package commands

import "strings"

// SlashCommand is one parsed `/name args --flag=v` invocation.
type SlashCommand struct {
	Name       string
	Positional []string
	Flags      map[string]string
}

// SlashResult is returned by a SlashHandler. ContinueProcessing false
// short-circuits the turn (Message, if set, is shown to the user directly);
// true asks the runtime to continue processing with Message substituted in
// as the (possibly expanded) prompt.
type SlashResult struct {
	ContinueProcessing bool
	Message            string
}

// SlashHandler executes a parsed slash command.
type SlashHandler func(cmd SlashCommand) (SlashResult, error)

// ParseSlash parses raw user input: input must
// start with `/` (leading whitespace trimmed) or it is not a command at
// all. Tokens split on ASCII whitespace, no shell quoting. `--flag` becomes
// flag=true, `--key=value` becomes key=value, `-x` (exactly one character)
// becomes x=true, anything else is positional.
func ParseSlash(input string) (SlashCommand, bool) {
	trimmed := strings.TrimLeft(input, " \t\r\n")
	if !strings.HasPrefix(trimmed, "/") {
		return SlashCommand{}, false
	}
	trimmed = trimmed[1:]
	if trimmed == "" {
		return SlashCommand{}, false
	}

	tokens := strings.Fields(trimmed)
	if len(tokens) == 0 {
		return SlashCommand{}, false
	}

	cmd := SlashCommand{
		Name:  tokens[0],
		Flags: make(map[string]string),
	}

	for _, tok := range tokens[1:] {
		switch {
		case strings.HasPrefix(tok, "--"):
			body := tok[2:]
			if eq := strings.IndexByte(body, '='); eq >= 0 {
				cmd.Flags[body[:eq]] = body[eq+1:]
			} else if body != "" {
				cmd.Flags[body] = "true"
			}
		case strings.HasPrefix(tok, "-") && len(tok) == 2:
			cmd.Flags[tok[1:]] = "true"
		default:
			cmd.Positional = append(cmd.Positional, tok)
		}
	}

	return cmd, true
}

// SlashDispatcher routes parsed commands to registered handlers, running in
// the same thread as the turn runtime.
type SlashDispatcher struct {
	handlers map[string]SlashHandler
}

// NewSlashDispatcher creates an empty dispatcher.
func NewSlashDispatcher() *SlashDispatcher {
	return &SlashDispatcher{handlers: make(map[string]SlashHandler)}
}

// Register adds or replaces the handler for name.
func (d *SlashDispatcher) Register(name string, handler SlashHandler) {
	d.handlers[name] = handler
}

// Dispatch parses input and, if it names a registered command, invokes its
// handler. ok is false when input is not a slash command at all (the
// runtime should treat it as a normal user message) or when it is one but
// no handler is registered for it.
func (d *SlashDispatcher) Dispatch(input string) (result SlashResult, ok bool, err error) {
	cmd, isSlash := ParseSlash(input)
	if !isSlash {
		return SlashResult{}, false, nil
	}
	handler, registered := d.handlers[cmd.Name]
	if !registered {
		return SlashResult{}, false, nil
	}
	result, err = handler(cmd)
	return result, true, err
}
