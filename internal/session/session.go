package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"goensight/internal/config"
	"goensight/internal/ensobj"
	"goensight/internal/events"
	"goensight/internal/logging"
	"goensight/internal/rpc"
)

// RenderOptions selects the size and quality of a rendered image.
type RenderOptions = rpc.RenderOptions

// Callback receives event URLs for a registered tag.
type Callback = events.Callback

// Session drives one remote engine. Create it with New, bring it up
// with Connect and tear it down with Close. All methods are safe for
// concurrent use.
type Session struct {
	cfg    *config.Config
	log    *slog.Logger
	client *rpc.Client
	cache  *ensobj.Cache
	objs   *ensobj.Marshaller
	events *events.Registry

	connectMu sync.Mutex

	mu            sync.RWMutex
	connected     bool
	ceiHome       string
	suffix        string
	core          *ensobj.Handle
	pythonVersion []string
	enums         map[string]int64
}

// commandAdapter exposes the client's execute modes behind the small
// interfaces the marshaller and the event registry consume.
type commandAdapter struct {
	client *rpc.Client
}

func (a commandAdapter) Eval(ctx context.Context, command string) (string, error) {
	return a.client.Execute(ctx, command, rpc.ExecEvaluated)
}

func (a commandAdapter) Exec(ctx context.Context, command string) error {
	_, err := a.client.Execute(ctx, command, rpc.ExecNoResult)
	return err
}

// New assembles a session from configuration. No connection is made
// until Connect.
func New(cfg *config.Config, logger *slog.Logger) *Session {
	log := logging.NewComponentLogger(logger, "session")
	client := rpc.NewClient(rpc.Options{
		Host:           cfg.Engine.Host,
		Port:           cfg.Engine.GRPCPort,
		Secret:         cfg.Engine.SecretKey,
		ConnectTimeout: cfg.ConnectTimeout(),
		Logger:         logger,
	})
	adapter := commandAdapter{client: client}
	cache := ensobj.NewCache()
	s := &Session{
		cfg:    cfg,
		log:    log,
		client: client,
		cache:  cache,
		objs:   ensobj.NewMarshaller(cache, adapter, logger),
	}
	s.events = events.New(events.Options{
		Commander: adapter,
		Prefix:    client.Prefix(),
		Activate: func(ctx context.Context, sink func(string)) error {
			client.SetEventSink(sink)
			return client.EventStreamEnable(ctx)
		},
		Log: logging.NewComponentLogger(logger, "events"),
	})
	return s
}

// Connect brings the session up. It polls the engine until the
// connection validates or the session timeout elapses, then runs the
// bootstrap queries that prime the enum table, the core handle and
// the remote interpreter version. Connect returns nil immediately if
// the session is already up.
func (s *Session) Connect(ctx context.Context) error {
	s.connectMu.Lock()
	defer s.connectMu.Unlock()

	if s.Connected() {
		return nil
	}

	start := time.Now()
	for time.Since(start) < s.cfg.SessionTimeout() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if s.client.IsConnected() {
			err := s.validate(ctx)
			if err == nil {
				return s.bootstrap(ctx)
			}
			// The engine answered but refused the command, so
			// retrying will not help.
			if errors.Is(err, rpc.ErrRemoteExecution) {
				return err
			}
		}
		s.client.Connect(ctx)
	}
	return fmt.Errorf("%w: %s", ErrEngineUnreachable, s.client.Target())
}

// validate proves the link is usable by fetching the installation
// identity of the remote engine.
func (s *Session) validate(ctx context.Context) error {
	home, err := s.cmdString(ctx, "ensight.version('CEI_HOME')")
	if err != nil {
		return err
	}
	suffix, err := s.cmdString(ctx, "ensight.version('suffix')")
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.ceiHome = home
	s.suffix = suffix
	s.mu.Unlock()
	return nil
}

// Cmd evaluates Python source in the engine and returns the
// marshalled result. Object references in the reply come back as
// proxy handles, bracketed replies as handle lists.
func (s *Session) Cmd(ctx context.Context, command string) (any, error) {
	raw, err := s.client.Execute(ctx, command, rpc.ExecEvaluated)
	if err != nil {
		return nil, err
	}
	return s.objs.Unmarshal(ctx, raw)
}

// CmdExec runs Python source in the engine without computing a
// result.
func (s *Session) CmdExec(ctx context.Context, command string) error {
	_, err := s.client.Execute(ctx, command, rpc.ExecNoResult)
	return err
}

// CmdJSON evaluates Python source and decodes the engine's JSON
// rendering of the result.
func (s *Session) CmdJSON(ctx context.Context, command string) (any, error) {
	raw, err := s.client.Execute(ctx, command, rpc.ExecJSON)
	if err != nil {
		return nil, err
	}
	var value any
	if err := json.Unmarshal([]byte(raw), &value); err != nil {
		return nil, fmt.Errorf("%w: decode json result: %v", ErrUnexpectedReply, err)
	}
	return value, nil
}

// cmdString evaluates a command whose result must be a string.
func (s *Session) cmdString(ctx context.Context, command string) (string, error) {
	value, err := s.Cmd(ctx, command)
	if err != nil {
		return "", err
	}
	str, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("%w: want string, got %T", ErrUnexpectedReply, value)
	}
	return str, nil
}

// Render rasterizes the current scene and returns the image bytes,
// PNG encoded unless the options ask for raw pixels.
func (s *Session) Render(ctx context.Context, opts RenderOptions) ([]byte, error) {
	return s.client.Render(ctx, opts)
}

// Geometry exports the current scene as a glTF binary payload.
func (s *Session) Geometry(ctx context.Context) ([]byte, error) {
	return s.client.Geometry(ctx)
}

// AddCallback arms fn against a target object or class so the engine
// fires an event URL whenever one of the listed attributes changes.
// The first registration starts the event stream.
func (s *Session) AddCallback(ctx context.Context, target, tag string, attrs []any, fn Callback, compress bool) error {
	return s.events.Register(ctx, target, tag, attrs, fn, compress)
}

// RemoveCallback disarms a callback registered with AddCallback.
func (s *Session) RemoveCallback(ctx context.Context, tag string) error {
	return s.events.Unregister(ctx, tag)
}

// EnableEvents starts the event stream without installing a dispatch
// sink. Incoming events queue up for retrieval with GetEvent.
func (s *Session) EnableEvents(ctx context.Context) error {
	return s.client.EventStreamEnable(ctx)
}

// GetEvent pops the oldest queued event URL. ok is false when the
// queue is empty.
func (s *Session) GetEvent() (url string, ok bool) {
	return s.client.GetEvent()
}

// EventStreamState reports the lifecycle state of the event stream.
func (s *Session) EventStreamState() rpc.StreamState {
	return s.client.EventStreamState()
}

// Close shuts the session down. With stopEngine set the remote engine
// is told to exit before the connection drops.
func (s *Session) Close(ctx context.Context, stopEngine bool) error {
	s.connectMu.Lock()
	defer s.connectMu.Unlock()

	err := s.client.Shutdown(ctx, stopEngine)
	s.mu.Lock()
	s.connected = false
	s.mu.Unlock()
	return err
}

// Connected reports whether Connect has completed against the engine.
func (s *Session) Connected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connected
}

// Target returns the host:port of the engine endpoint.
func (s *Session) Target() string {
	return s.client.Target()
}

// EventPrefix returns the URL prefix carried by events from this
// session.
func (s *Session) EventPrefix() string {
	return s.client.Prefix()
}

// CEIHome returns the installation directory reported by the engine.
func (s *Session) CEIHome() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ceiHome
}

// Suffix returns the version suffix reported by the engine, "251"
// for example.
func (s *Session) Suffix() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.suffix
}

// Core returns the proxy handle for the engine's global state object.
func (s *Session) Core() *ensobj.Handle {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.core
}

// RemotePythonVersion returns the interpreter version tuple of the
// engine's embedded Python, for example ["3", "10", "11"].
func (s *Session) RemotePythonVersion() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	version := make([]string, len(s.pythonVersion))
	copy(version, s.pythonVersion)
	return version
}

// EnumValue looks up a name in the engine's enum snapshot taken at
// connect time.
func (s *Session) EnumValue(name string) (int64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.enums[name]
	return value, ok
}
