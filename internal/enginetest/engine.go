package enginetest

import (
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"google.golang.org/grpc"

	"goensight/internal/rpc"
)

// Reply is one scripted RunPython answer. Error carries the engine
// side error code, negative for failures.
type Reply struct {
	Value string
	Error int32
}

// FallbackFunc answers commands missing from the script table. The
// second return reports whether the fallback handled the command.
type FallbackFunc func(command string) (Reply, bool)

// Option customizes a test engine before it starts serving.
type Option func(*Engine)

// WithSecret requires clients to present the given shared secret in
// call metadata.
func WithSecret(secret string) Option {
	return func(e *Engine) {
		e.secret = secret
	}
}

// Engine is an in-process fake engine.
type Engine struct {
	server   *grpc.Server
	listener net.Listener
	secret   string

	mu        sync.Mutex
	replies   map[string]Reply
	fallback  FallbackFunc
	commands  []string
	renders   []rpc.RenderRequest
	geometry  []rpc.GeometryRequest
	streams   map[chan string]string
	imageData []byte
	glbData   []byte
	exited    bool
}

// Start launches the engine on a fresh loopback port and registers
// shutdown with the test cleanup list.
func Start(t testing.TB, opts ...Option) *Engine {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	e := &Engine{
		listener:  listener,
		replies:   make(map[string]Reply),
		streams:   make(map[chan string]string),
		imageData: []byte("png-image-bytes"),
		glbData:   []byte("glb-geometry-bytes"),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.server = grpc.NewServer(grpc.ForceServerCodec(rpc.Codec{}))
	e.server.RegisterService(serviceDesc(), e)
	go func() {
		_ = e.server.Serve(listener)
	}()
	t.Cleanup(e.Stop)
	return e
}

// Stop tears the engine down, breaking any open streams.
func (e *Engine) Stop() {
	e.server.Stop()
}

// Host returns the loopback address the engine listens on.
func (e *Engine) Host() string {
	host, _, _ := net.SplitHostPort(e.listener.Addr().String())
	return host
}

// Port returns the engine's listen port.
func (e *Engine) Port() int {
	return e.listener.Addr().(*net.TCPAddr).Port
}

// Script installs a successful reply for the exact command text.
func (e *Engine) Script(command, value string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.replies[command] = Reply{Value: value}
}

// ScriptError installs a failing reply for the exact command text.
func (e *Engine) ScriptError(command string, code int32) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.replies[command] = Reply{Error: code}
}

// SetFallback installs a handler for commands the script table does
// not cover.
func (e *Engine) SetFallback(fn FallbackFunc) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.fallback = fn
}

// Commands returns a copy of every RunPython command received, in
// arrival order.
func (e *Engine) Commands() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, len(e.commands))
	copy(out, e.commands)
	return out
}

// CommandCount reports how many times the exact command arrived.
func (e *Engine) CommandCount(command string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	count := 0
	for _, c := range e.commands {
		if c == command {
			count++
		}
	}
	return count
}

// SetImage overrides the payload returned for render requests.
func (e *Engine) SetImage(data []byte) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.imageData = data
}

// SetGeometry overrides the payload returned for geometry requests.
func (e *Engine) SetGeometry(data []byte) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.glbData = data
}

// Renders returns the render requests received so far.
func (e *Engine) Renders() []rpc.RenderRequest {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]rpc.RenderRequest, len(e.renders))
	copy(out, e.renders)
	return out
}

// GeometryRequests returns the geometry requests received so far.
func (e *Engine) GeometryRequests() []rpc.GeometryRequest {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]rpc.GeometryRequest, len(e.geometry))
	copy(out, e.geometry)
	return out
}

// ExitCalled reports whether a client asked the engine to exit.
func (e *Engine) ExitCalled() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.exited
}

// Emit delivers an event URL to every connected stream whose prefix
// filter matches.
func (e *Engine) Emit(url string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for ch, prefix := range e.streams {
		if prefix != "" && !strings.HasPrefix(url, prefix) {
			continue
		}
		select {
		case ch <- url:
		default:
		}
	}
}

// Broadcast appends tail to each connected stream's own prefix and
// delivers the result, the way the engine fires a callback name it was
// given at registration time. tail is the tag plus any query string.
func (e *Engine) Broadcast(tail string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for ch, prefix := range e.streams {
		select {
		case ch <- prefix + tail:
		default:
		}
	}
}

// StreamCount reports how many event streams are connected.
func (e *Engine) StreamCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.streams)
}

// WaitForStreams blocks until n event streams are connected or the
// wait times out.
func (e *Engine) WaitForStreams(t testing.TB, n int) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if e.StreamCount() >= n {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("event streams = %d, want %d", e.StreamCount(), n)
}

func (e *Engine) addStream(prefix string) chan string {
	ch := make(chan string, 64)
	e.mu.Lock()
	e.streams[ch] = prefix
	e.mu.Unlock()
	return ch
}

func (e *Engine) removeStream(ch chan string) {
	e.mu.Lock()
	delete(e.streams, ch)
	e.mu.Unlock()
}

func (e *Engine) lookup(command string) Reply {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.commands = append(e.commands, command)
	if reply, ok := e.replies[command]; ok {
		return reply
	}
	if e.fallback != nil {
		if reply, ok := e.fallback(command); ok {
			return reply
		}
	}
	return Reply{Value: "None"}
}
