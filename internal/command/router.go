package command

import (
	"context"
	"strings"
	"sync"

	"github.com/google/shlex"
)

// Message is an inbound chat message that may carry a command.
type Message struct {
	GuildID   string
	ChannelID string
	AuthorID  string
	AuthorBot bool
	Content   string
}

// Request is a parsed command invocation.
type Request struct {
	Message
	Name string
	Args []string
}

// Handler produces the reply text for a command.
type Handler func(ctx context.Context, req Request) (string, error)

// ReplyFunc posts text back to the channel the message came from.
type ReplyFunc func(ctx context.Context, channelID, text string) error

// Router matches prefixed messages against registered commands.
type Router struct {
	prefix   string
	commands map[string]Handler
	mu       sync.RWMutex
}

func NewRouter(prefix string) *Router {
	if prefix == "" {
		prefix = "!"
	}
	return &Router{
		prefix:   prefix,
		commands: make(map[string]Handler),
	}
}

func (r *Router) Prefix() string {
	return r.prefix
}

func (r *Router) Register(name string, handler Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands[strings.ToLower(name)] = handler
}

// Parse splits a prefixed message into a request. ok is false for messages that are
// not commands or do not tokenize.
func (r *Router) Parse(msg Message) (Request, bool) {
	content := strings.TrimSpace(msg.Content)
	if !strings.HasPrefix(content, r.prefix) {
		return Request{}, false
	}

	parts, err := shlex.Split(strings.TrimPrefix(content, r.prefix))
	if err != nil || len(parts) == 0 {
		return Request{}, false
	}

	return Request{
		Message: msg,
		Name:    strings.ToLower(parts[0]),
		Args:    parts[1:],
	}, true
}

// Dispatch runs the command carried by msg, if any, and sends its reply. Bot authors,
// unknown commands, handler errors and reply errors are all dropped without a trace.
// It reports whether a reply was sent.
func (r *Router) Dispatch(ctx context.Context, msg Message, reply ReplyFunc) bool {
	if msg.AuthorBot || reply == nil {
		return false
	}

	req, ok := r.Parse(msg)
	if !ok {
		return false
	}

	r.mu.RLock()
	handler, exists := r.commands[req.Name]
	r.mu.RUnlock()
	if !exists {
		return false
	}

	text, err := handler(ctx, req)
	if err != nil || text == "" {
		return false
	}
	return reply(ctx, msg.ChannelID, text) == nil
}
