package events

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"goensight/internal/logging"
	"goensight/internal/pylit"
)

// Callback receives the full event URL, including the query section
// with any macro expansions applied by the engine.
type Callback func(eventURL string)

// Commander issues Python commands against the engine on behalf of
// the registry. Eval returns the repr of the command result, Exec
// discards it.
type Commander interface {
	Eval(ctx context.Context, command string) (string, error)
	Exec(ctx context.Context, command string) error
}

// ActivateFunc starts event delivery, installing sink as the receiver
// for incoming event URLs. The registry calls it at most once, when
// the first callback is registered.
type ActivateFunc func(ctx context.Context, sink func(eventURL string)) error

// Options configures a Registry.
type Options struct {
	Commander Commander
	Prefix    string
	Activate  ActivateFunc
	Log       *slog.Logger
}

// Registry tracks armed callbacks by short tag and dispatches event
// URLs to them.
type Registry struct {
	commander Commander
	prefix    string
	activate  ActivateFunc
	log       *slog.Logger

	mu      sync.Mutex
	active  bool
	entries map[string]*entry
	order   []string
}

type entry struct {
	callbackID int64
	fn         Callback
}

// New builds a registry. The prefix should be the session event
// prefix so that armed tags round-trip through the engine unchanged.
func New(opts Options) *Registry {
	log := opts.Log
	if log == nil {
		log = logging.NewNop()
	}
	return &Registry{
		commander: opts.Commander,
		prefix:    opts.Prefix,
		activate:  opts.Activate,
		log:       log,
		entries:   make(map[string]*entry),
	}
}

// shortTag reduces a registration tag to the portion before the first
// "?". Macros are only legal in the query section, so the short tag is
// the stable prefix events are matched on.
func shortTag(tag string) string {
	if idx := strings.Index(tag, "?"); idx >= 0 {
		return tag[:idx]
	}
	return tag
}

// Register arms fn against the target object or class. The engine
// fires the callback whenever one of the attributes in attrs changes,
// delivering a URL of the form {prefix}{tag}?enum={attr}&uid={id}.
// With compress set, bursts of identical events collapse into a
// single delivery. Registering the first callback also starts the
// event stream.
func (r *Registry) Register(ctx context.Context, target, tag string, attrs []any, fn Callback, compress bool) error {
	short := shortTag(tag)

	attrList, err := pylit.Format(attrs)
	if err != nil {
		return fmt.Errorf("events: format attribute list: %w", err)
	}
	flags := ""
	if compress {
		flags = ",flags=ensight.objs.EVENTMAP_FLAG_COMP_GLOBAL"
	}
	command := fmt.Sprintf("ensight.objs.addcallback(%s,None,'%s%s',attrs=%s%s)",
		target, r.prefix, tag, attrList, flags)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.entries[short]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateTag, short)
	}

	reply, err := r.commander.Eval(ctx, command)
	if err != nil {
		return err
	}
	callbackID, err := strconv.ParseInt(strings.TrimSpace(reply), 10, 64)
	if err != nil {
		return fmt.Errorf("events: parse callback id %q: %w", reply, err)
	}

	if !r.active {
		if err := r.activate(ctx, r.Dispatch); err != nil {
			return err
		}
		r.active = true
	}

	r.entries[short] = &entry{callbackID: callbackID, fn: fn}
	r.order = append(r.order, short)
	r.log.Debug("registered event callback",
		logging.FieldTag, short, logging.FieldTarget, target, "callback_id", callbackID)
	return nil
}

// Unregister removes a callback registered with Register and disarms
// it inside the engine. The tag is reduced to its short form the same
// way Register reduces it.
func (r *Registry) Unregister(ctx context.Context, tag string) error {
	short := shortTag(tag)

	r.mu.Lock()
	defer r.mu.Unlock()

	ent, ok := r.entries[short]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownTag, short)
	}
	delete(r.entries, short)
	for i, key := range r.order {
		if key == short {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}

	command := fmt.Sprintf("ensight.objs.removecallback(%d)", ent.callbackID)
	if err := r.commander.Exec(ctx, command); err != nil {
		return err
	}
	r.log.Debug("unregistered event callback", logging.FieldTag, short, "callback_id", ent.callbackID)
	return nil
}

// Len reports the number of registered callbacks.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// NormalizeURL repairs the query separators of an event URL. The
// engine appends "?enum=" to the tag it was armed with, so a tag that
// already carries a query section produces a URL with two "?"
// separators, which no URL parser accepts. When an earlier "?" is
// present the "?enum=" separator is rewritten to "&enum=".
func NormalizeURL(eventURL string) string {
	if qIdx := strings.Index(eventURL, "?"); qIdx >= 0 {
		if enumIdx := strings.Index(eventURL, "?enum="); enumIdx > qIdx {
			return strings.ReplaceAll(eventURL, "?enum=", "&enum=")
		}
	}
	return eventURL
}

// Dispatch routes one event URL to the first callback whose short tag
// is a prefix of the URL path. It is installed as the event stream
// sink once the first callback is registered.
func (r *Registry) Dispatch(eventURL string) {
	eventURL = NormalizeURL(eventURL)
	parsed, err := url.Parse(eventURL)
	if err != nil {
		r.log.Debug("discarding unparsable event", "url", eventURL, logging.Error(err))
		return
	}
	tag := strings.TrimPrefix(parsed.Path, "/")

	r.mu.Lock()
	var fn Callback
	for _, key := range r.order {
		if strings.HasPrefix(tag, key) {
			fn = r.entries[key].fn
			break
		}
	}
	r.mu.Unlock()

	if fn == nil {
		r.log.Debug("unhandled event", logging.FieldTag, tag, "url", eventURL)
		return
	}
	fn(eventURL)
}
