package rpc_test

import (
	"bytes"
	"context"
	"errors"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"goensight/internal/enginetest"
	"goensight/internal/rpc"
)

func newClient(t *testing.T, engine *enginetest.Engine, secret string) *rpc.Client {
	t.Helper()
	client := rpc.NewClient(rpc.Options{
		Host:           engine.Host(),
		Port:           engine.Port(),
		Secret:         secret,
		ConnectTimeout: 2 * time.Second,
	})
	t.Cleanup(func() {
		_ = client.Shutdown(context.Background(), false)
	})
	return client
}

// unusedPort reserves a loopback port and releases it so a dial there
// is refused.
func unusedPort(t *testing.T) int {
	t.Helper()
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	port := listener.Addr().(*net.TCPAddr).Port
	_ = listener.Close()
	return port
}

func TestExecuteEvaluated(t *testing.T) {
	engine := enginetest.Start(t)
	engine.Script("10+4", "14")
	client := newClient(t, engine, "")

	value, err := client.Execute(context.Background(), "10+4", rpc.ExecEvaluated)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if value != "14" {
		t.Fatalf("Execute() = %q, want %q", value, "14")
	}
	if engine.CommandCount("10+4") != 1 {
		t.Fatalf("engine saw commands %q", engine.Commands())
	}
}

func TestExecuteNoResultReturnsEmpty(t *testing.T) {
	engine := enginetest.Start(t)
	client := newClient(t, engine, "")

	value, err := client.Execute(context.Background(), "import platform", rpc.ExecNoResult)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if value != "" {
		t.Fatalf("no-result value = %q, want empty", value)
	}
}

func TestExecuteRemoteError(t *testing.T) {
	engine := enginetest.Start(t)
	engine.ScriptError("1/0", -1)
	client := newClient(t, engine, "")

	_, err := client.Execute(context.Background(), "1/0", rpc.ExecEvaluated)
	if !errors.Is(err, rpc.ErrRemoteExecution) {
		t.Fatalf("Execute() error = %v, want ErrRemoteExecution", err)
	}
}

func TestExecuteUnreachableEngine(t *testing.T) {
	client := rpc.NewClient(rpc.Options{
		Host:           "127.0.0.1",
		Port:           unusedPort(t),
		ConnectTimeout: 200 * time.Millisecond,
	})
	_, err := client.Execute(context.Background(), "10+4", rpc.ExecEvaluated)
	if !errors.Is(err, rpc.ErrConnection) {
		t.Fatalf("Execute() error = %v, want ErrConnection", err)
	}
}

func TestConnectIsSilent(t *testing.T) {
	client := rpc.NewClient(rpc.Options{
		Host:           "127.0.0.1",
		Port:           unusedPort(t),
		ConnectTimeout: 200 * time.Millisecond,
	})
	client.Connect(context.Background())
	if client.IsConnected() {
		t.Fatal("client claims a channel to a dead port")
	}

	engine := enginetest.Start(t)
	live := newClient(t, engine, "")
	live.Connect(context.Background())
	if !live.IsConnected() {
		t.Fatal("client did not connect to a live engine")
	}
}

func TestSharedSecretEnforced(t *testing.T) {
	engine := enginetest.Start(t, enginetest.WithSecret("s3cret"))
	engine.Script("10+4", "14")

	wrong := newClient(t, engine, "wrong")
	if _, err := wrong.Execute(context.Background(), "10+4", rpc.ExecEvaluated); !errors.Is(err, rpc.ErrConnection) {
		t.Fatalf("wrong secret error = %v, want ErrConnection", err)
	}

	right := newClient(t, engine, "s3cret")
	value, err := right.Execute(context.Background(), "10+4", rpc.ExecEvaluated)
	if err != nil {
		t.Fatalf("Execute() with secret error = %v", err)
	}
	if value != "14" {
		t.Fatalf("Execute() = %q, want %q", value, "14")
	}
}

func TestRenderPassesOptions(t *testing.T) {
	engine := enginetest.Start(t)
	engine.SetImage([]byte{0x89, 'P', 'N', 'G'})
	client := newClient(t, engine, "")

	data, err := client.Render(context.Background(), rpc.RenderOptions{
		Width:        1920,
		Height:       1080,
		AAPasses:     4,
		Highlighting: true,
	})
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if !bytes.Equal(data, []byte{0x89, 'P', 'N', 'G'}) {
		t.Fatalf("Render() = %v", data)
	}
	renders := engine.Renders()
	if len(renders) != 1 {
		t.Fatalf("engine saw %d render requests", len(renders))
	}
	req := renders[0]
	if req.Format != rpc.RenderFormatPNG || req.Width != 1920 || req.Height != 1080 ||
		req.AAPasses != 4 || !req.Highlighting {
		t.Fatalf("render request = %+v", req)
	}

	if _, err := client.Render(context.Background(), rpc.RenderOptions{Width: 8, Height: 8, Raw: true}); err != nil {
		t.Fatalf("raw Render() error = %v", err)
	}
	renders = engine.Renders()
	if renders[1].Format != rpc.RenderFormatRaw {
		t.Fatalf("raw render request format = %q", renders[1].Format)
	}
}

func TestGeometryRequestsGLB(t *testing.T) {
	engine := enginetest.Start(t)
	engine.SetGeometry([]byte("glTF-binary"))
	client := newClient(t, engine, "")

	data, err := client.Geometry(context.Background())
	if err != nil {
		t.Fatalf("Geometry() error = %v", err)
	}
	if string(data) != "glTF-binary" {
		t.Fatalf("Geometry() = %q", data)
	}
	requests := engine.GeometryRequests()
	if len(requests) != 1 || requests[0].Format != rpc.GeometryFormatGLB {
		t.Fatalf("geometry requests = %+v", requests)
	}
}

func TestPrefixIsStable(t *testing.T) {
	client := rpc.NewClient(rpc.Options{Host: "127.0.0.1", Port: 1})
	prefix := client.Prefix()
	if !strings.HasPrefix(prefix, "grpc://") || !strings.HasSuffix(prefix, "/") {
		t.Fatalf("prefix = %q", prefix)
	}
	if client.Prefix() != prefix {
		t.Fatal("prefix changed between calls")
	}
}

func waitForEvent(t *testing.T, client *rpc.Client) string {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if url, ok := client.GetEvent(); ok {
			return url
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("no event arrived")
	return ""
}

func TestEventStreamQueuesEvents(t *testing.T) {
	engine := enginetest.Start(t)
	client := newClient(t, engine, "")

	if err := client.EventStreamEnable(context.Background()); err != nil {
		t.Fatalf("EventStreamEnable() error = %v", err)
	}
	if state := client.EventStreamState(); state != rpc.StreamActive {
		t.Fatalf("stream state = %v, want active", state)
	}
	engine.WaitForStreams(t, 1)

	eventURL := client.Prefix() + "partlist?enum=PARTS&uid=221"
	engine.Emit(eventURL)
	if got := waitForEvent(t, client); got != eventURL {
		t.Fatalf("GetEvent() = %q, want %q", got, eventURL)
	}
	if _, ok := client.GetEvent(); ok {
		t.Fatal("queue should be empty")
	}
}

func TestEventStreamFiltersByPrefix(t *testing.T) {
	engine := enginetest.Start(t)
	client := newClient(t, engine, "")

	if err := client.EventStreamEnable(context.Background()); err != nil {
		t.Fatalf("EventStreamEnable() error = %v", err)
	}
	engine.WaitForStreams(t, 1)

	engine.Emit("grpc://someone-else/partlist?enum=PARTS&uid=1")
	mine := client.Prefix() + "partlist?enum=PARTS&uid=2"
	engine.Emit(mine)

	if got := waitForEvent(t, client); got != mine {
		t.Fatalf("GetEvent() = %q, want %q", got, mine)
	}
	if url, ok := client.GetEvent(); ok {
		t.Fatalf("foreign event leaked through: %q", url)
	}
}

func TestEventSinkBypassesQueue(t *testing.T) {
	engine := enginetest.Start(t)
	client := newClient(t, engine, "")

	var mu sync.Mutex
	var got []string
	client.SetEventSink(func(url string) {
		mu.Lock()
		got = append(got, url)
		mu.Unlock()
	})

	if err := client.EventStreamEnable(context.Background()); err != nil {
		t.Fatalf("EventStreamEnable() error = %v", err)
	}
	engine.WaitForStreams(t, 1)

	eventURL := client.Prefix() + "partlist?enum=PARTS&uid=221"
	engine.Emit(eventURL)

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		count := len(got)
		mu.Unlock()
		if count > 0 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(got) != 1 || got[0] != eventURL {
		t.Fatalf("sink received %q, want [%q]", got, eventURL)
	}
	if _, ok := client.GetEvent(); ok {
		t.Fatal("event also landed in the queue")
	}
}

func TestEventStreamEnableIsIdempotent(t *testing.T) {
	engine := enginetest.Start(t)
	client := newClient(t, engine, "")

	if err := client.EventStreamEnable(context.Background()); err != nil {
		t.Fatalf("first EventStreamEnable() error = %v", err)
	}
	if err := client.EventStreamEnable(context.Background()); err != nil {
		t.Fatalf("second EventStreamEnable() error = %v", err)
	}
	engine.WaitForStreams(t, 1)
	time.Sleep(20 * time.Millisecond)
	if count := engine.StreamCount(); count != 1 {
		t.Fatalf("stream count = %d, want 1", count)
	}
}

func TestShutdownClosesStreamForGood(t *testing.T) {
	engine := enginetest.Start(t)
	client := newClient(t, engine, "")

	if err := client.EventStreamEnable(context.Background()); err != nil {
		t.Fatalf("EventStreamEnable() error = %v", err)
	}
	engine.WaitForStreams(t, 1)

	if err := client.Shutdown(context.Background(), false); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	if state := client.EventStreamState(); state != rpc.StreamClosed {
		t.Fatalf("stream state = %v, want closed", state)
	}
	if engine.ExitCalled() {
		t.Fatal("plain shutdown told the engine to exit")
	}
	if err := client.EventStreamEnable(context.Background()); !errors.Is(err, rpc.ErrConnection) {
		t.Fatalf("enable after shutdown error = %v, want ErrConnection", err)
	}
}

func TestShutdownCanStopEngine(t *testing.T) {
	engine := enginetest.Start(t)
	client := newClient(t, engine, "")
	client.Connect(context.Background())

	if err := client.Shutdown(context.Background(), true); err != nil {
		t.Fatalf("Shutdown(stop) error = %v", err)
	}
	if !engine.ExitCalled() {
		t.Fatal("engine never saw the exit request")
	}
}

func TestStreamBreaksWhenEngineDies(t *testing.T) {
	engine := enginetest.Start(t)
	client := newClient(t, engine, "")

	if err := client.EventStreamEnable(context.Background()); err != nil {
		t.Fatalf("EventStreamEnable() error = %v", err)
	}
	engine.WaitForStreams(t, 1)
	engine.Stop()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if client.EventStreamState() == rpc.StreamBroken {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if state := client.EventStreamState(); state != rpc.StreamBroken {
		t.Fatalf("stream state = %v, want broken", state)
	}
	if err := client.EventStreamEnable(context.Background()); !errors.Is(err, rpc.ErrConnection) {
		t.Fatalf("enable after break error = %v, want ErrConnection", err)
	}
}
