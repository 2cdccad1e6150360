package session_test

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"testing"
	"time"

	"goensight/internal/enginetest"
	"goensight/internal/ensobj"
	"goensight/internal/logging"
	"goensight/internal/rpc"
	"goensight/internal/session"
	"goensight/internal/testsupport"
)

func startSession(t *testing.T) (*enginetest.Engine, *session.Session) {
	t.Helper()
	engine := enginetest.Start(t)
	engine.ScriptBootstrap()
	cfg := testsupport.NewConfig(t,
		testsupport.WithEngineEndpoint(engine.Host(), engine.Port()),
		testsupport.WithTimeouts(2, 10))
	sess := session.New(cfg, logging.NewNop())
	if err := sess.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	t.Cleanup(func() {
		_ = sess.Close(context.Background(), false)
	})
	return engine, sess
}

func TestConnectBootstrapsSession(t *testing.T) {
	_, sess := startSession(t)

	if !sess.Connected() {
		t.Fatal("session not connected")
	}
	if got := sess.CEIHome(); got != enginetest.BootstrapCEIHome {
		t.Fatalf("CEIHome() = %q", got)
	}
	if got := sess.Suffix(); got != enginetest.BootstrapSuffix {
		t.Fatalf("Suffix() = %q", got)
	}
	core := sess.Core()
	if core == nil || core.Class != "ENS_GLOBALS" || core.ID != enginetest.BootstrapCoreID {
		t.Fatalf("Core() = %v", core)
	}
	version := sess.RemotePythonVersion()
	if len(version) != 3 || version[0] != "3" || version[1] != "10" || version[2] != "11" {
		t.Fatalf("RemotePythonVersion() = %v", version)
	}
	if value, ok := sess.EnumValue("PARTTYPE"); !ok || value != enginetest.BootstrapPartTypeAttr {
		t.Fatalf("EnumValue(PARTTYPE) = %d, %v", value, ok)
	}
	if value, ok := sess.EnumValue("__OBJID__"); !ok || value != 1610612737 {
		t.Fatalf("EnumValue(__OBJID__) = %d, %v", value, ok)
	}
	if _, ok := sess.EnumValue("__doc__"); ok {
		t.Fatal("dunder name survived the enum filter")
	}

	// Second Connect is a no-op.
	if err := sess.Connect(context.Background()); err != nil {
		t.Fatalf("repeat Connect() error = %v", err)
	}
}

func TestConnectTimesOut(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	port := listener.Addr().(*net.TCPAddr).Port
	_ = listener.Close()

	cfg := testsupport.NewConfig(t,
		testsupport.WithEngineEndpoint("127.0.0.1", port),
		testsupport.WithTimeouts(1, 1))
	sess := session.New(cfg, logging.NewNop())
	if err := sess.Connect(context.Background()); !errors.Is(err, session.ErrEngineUnreachable) {
		t.Fatalf("Connect() error = %v, want ErrEngineUnreachable", err)
	}
	if sess.Connected() {
		t.Fatal("session claims to be connected")
	}
}

func TestConnectSendsSharedSecret(t *testing.T) {
	engine := enginetest.Start(t, enginetest.WithSecret("s3cret"))
	engine.ScriptBootstrap()

	cfg := testsupport.NewConfig(t,
		testsupport.WithEngineEndpoint(engine.Host(), engine.Port()),
		testsupport.WithSecretKey("s3cret"),
		testsupport.WithTimeouts(2, 10))
	sess := session.New(cfg, logging.NewNop())
	if err := sess.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	t.Cleanup(func() {
		_ = sess.Close(context.Background(), false)
	})
	if !sess.Connected() {
		t.Fatal("session not connected")
	}
}

func TestConnectStopsOnRemoteRejection(t *testing.T) {
	engine := enginetest.Start(t)
	engine.ScriptBootstrap()
	engine.ScriptError("ensight.version('CEI_HOME')", -1)

	cfg := testsupport.NewConfig(t,
		testsupport.WithEngineEndpoint(engine.Host(), engine.Port()),
		testsupport.WithTimeouts(2, 30))
	sess := session.New(cfg, logging.NewNop())

	start := time.Now()
	err := sess.Connect(context.Background())
	if !errors.Is(err, rpc.ErrRemoteExecution) {
		t.Fatalf("Connect() error = %v, want ErrRemoteExecution", err)
	}
	if elapsed := time.Since(start); elapsed > 10*time.Second {
		t.Fatalf("Connect() kept polling for %v after a rejection", elapsed)
	}
}

func TestCmdMarshalsObjectReplies(t *testing.T) {
	engine, sess := startSession(t)
	engine.Script("ensight.objs.core.PARTS", "[Class: ENS_PART, CvfObjID: 1078, cached:no]")
	discriminator := fmt.Sprintf("ensight.objs.wrap_id(1078).getattr(%d)", enginetest.BootstrapPartTypeAttr)
	engine.Script(discriminator, "0")

	value, err := sess.Cmd(context.Background(), "ensight.objs.core.PARTS")
	if err != nil {
		t.Fatalf("Cmd() error = %v", err)
	}
	parts, ok := value.(ensobj.ObjList)
	if !ok {
		t.Fatalf("Cmd() = %T, want ObjList", value)
	}
	handles := parts.Handles()
	if len(handles) != 1 {
		t.Fatalf("parts = %v", parts)
	}
	first := handles[0]
	if first.Class != "ENS_PART_MODEL" || first.ID != 1078 {
		t.Fatalf("handle = %+v", first)
	}
	if engine.CommandCount(discriminator) != 1 {
		t.Fatalf("discriminator fetched %d times", engine.CommandCount(discriminator))
	}

	// The same object in a later reply reuses the interned handle
	// without another discriminator query.
	value, err = sess.Cmd(context.Background(), "ensight.objs.core.PARTS")
	if err != nil {
		t.Fatalf("repeat Cmd() error = %v", err)
	}
	again := value.(ensobj.ObjList).Handles()
	if len(again) != 1 || again[0] != first {
		t.Fatalf("handle identity lost: %p vs %p", again[0], first)
	}
	if engine.CommandCount(discriminator) != 1 {
		t.Fatalf("discriminator fetched %d times after reuse", engine.CommandCount(discriminator))
	}
}

func TestCmdExecAndCmdJSON(t *testing.T) {
	engine, sess := startSession(t)
	ctx := context.Background()

	if err := sess.CmdExec(ctx, "ensight.view_transf.rotate(1, 2, 0)"); err != nil {
		t.Fatalf("CmdExec() error = %v", err)
	}
	if engine.CommandCount("ensight.view_transf.rotate(1, 2, 0)") != 1 {
		t.Fatal("exec command never reached the engine")
	}

	engine.Script("ensight.objs.core.VPORTS[0].BOUNDS", `{"min": [0, 0], "max": [10, 5]}`)
	value, err := sess.CmdJSON(ctx, "ensight.objs.core.VPORTS[0].BOUNDS")
	if err != nil {
		t.Fatalf("CmdJSON() error = %v", err)
	}
	dict, ok := value.(map[string]any)
	if !ok {
		t.Fatalf("CmdJSON() = %T, want map", value)
	}
	if _, ok := dict["min"]; !ok {
		t.Fatalf("decoded JSON = %v", dict)
	}
}

func TestRenderAndGeometry(t *testing.T) {
	engine, sess := startSession(t)
	engine.SetImage([]byte("image-payload"))
	engine.SetGeometry([]byte("geometry-payload"))

	image, err := sess.Render(context.Background(), session.RenderOptions{Width: 800, Height: 600, AAPasses: 2})
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if string(image) != "image-payload" {
		t.Fatalf("Render() = %q", image)
	}
	geometry, err := sess.Geometry(context.Background())
	if err != nil {
		t.Fatalf("Geometry() error = %v", err)
	}
	if string(geometry) != "geometry-payload" {
		t.Fatalf("Geometry() = %q", geometry)
	}
	renders := engine.Renders()
	if len(renders) != 1 || renders[0].Width != 800 || renders[0].Height != 600 || renders[0].AAPasses != 2 {
		t.Fatalf("render requests = %+v", renders)
	}
}

func TestCallbackRoundTrip(t *testing.T) {
	engine, sess := startSession(t)
	ctx := context.Background()

	armCmd := "ensight.objs.addcallback(ensight.objs.core,None,'" + sess.EventPrefix() +
		"partlist',attrs=['PARTS'],flags=ensight.objs.EVENTMAP_FLAG_COMP_GLOBAL)"
	engine.Script(armCmd, "294")

	received := make(chan string, 4)
	err := sess.AddCallback(ctx, "ensight.objs.core", "partlist", []any{"PARTS"},
		func(url string) { received <- url }, true)
	if err != nil {
		t.Fatalf("AddCallback() error = %v", err)
	}
	if engine.CommandCount(armCmd) != 1 {
		t.Fatalf("arm command missing; engine saw %q", engine.Commands())
	}
	engine.WaitForStreams(t, 1)

	eventURL := sess.EventPrefix() + "partlist?enum=PARTS&uid=221"
	engine.Emit(eventURL)
	select {
	case got := <-received:
		if got != eventURL {
			t.Fatalf("callback got %q, want %q", got, eventURL)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("callback never fired")
	}

	if err := sess.RemoveCallback(ctx, "partlist"); err != nil {
		t.Fatalf("RemoveCallback() error = %v", err)
	}
	if engine.CommandCount("ensight.objs.removecallback(294)") != 1 {
		t.Fatal("disarm command missing")
	}
	engine.Emit(eventURL)
	select {
	case got := <-received:
		t.Fatalf("removed callback still fired: %q", got)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestEnableEventsQueuesWithoutCallbacks(t *testing.T) {
	engine, sess := startSession(t)

	if err := sess.EnableEvents(context.Background()); err != nil {
		t.Fatalf("EnableEvents() error = %v", err)
	}
	engine.WaitForStreams(t, 1)

	eventURL := sess.EventPrefix() + "anything?enum=PARTS&uid=1"
	engine.Emit(eventURL)

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if url, ok := sess.GetEvent(); ok {
			if url != eventURL {
				t.Fatalf("GetEvent() = %q, want %q", url, eventURL)
			}
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("queued event never arrived")
}

func TestLoadDataIssuesCommandSequence(t *testing.T) {
	engine, sess := startSession(t)
	engine.Script("ensight.version('product').lower()", "'ensight'")
	engine.Script("ensight.objs.core.CURRENTCASE[0].DESCRIPTION", "'Case 1'")
	engine.Script(`ensight.objs.core.CURRENTCASE[0].queryfileformat(r"""/data/coil.res""")["reader"]`, "'CFX'")
	engine.SetFallback(func(command string) (enginetest.Reply, bool) {
		return enginetest.Reply{Value: "0"}, true
	})

	err := sess.LoadData(context.Background(), session.LoadDataOptions{
		DataFile:      "/data/coil.res",
		ResultFile:    "/data/coil.trn",
		ReaderOptions: map[string]any{"Long names": int64(1)},
	})
	if err != nil {
		t.Fatalf("LoadData() error = %v", err)
	}

	commands := engine.Commands()
	wantOrder := []string{
		`ensight.case.link_modelparts_byname("OFF")`,
		`ensight.case.replace("Case 1", "Case 1")`,
		`ensight.case.select("Case 1")`,
		"ensight.part.select_default()",
		`ensight.part.elt_representation("3D_feature_2D_full")`,
		`ensight.data.format("CFX")`,
		`ensight.data.reader_option("'Long names' 1")`,
		`ensight.data.result(r"""/data/coil.trn""")`,
		"ensight.data.shift_time(1.000000, 0.000000, 0.000000)",
		`ensight.data.replace(r"""/data/coil.res""")`,
	}
	last := -1
	for _, want := range wantOrder {
		idx := indexOf(commands, want, last+1)
		if idx < 0 {
			t.Fatalf("command %q missing after index %d; engine saw:\n%s",
				want, last, strings.Join(commands, "\n"))
		}
		last = idx
	}
}

func TestLoadDataNewCaseClaimsInactiveSlot(t *testing.T) {
	engine, sess := startSession(t)
	engine.Script("ensight.version('product').lower()", "'ensight'")
	engine.Script("[c.DESCRIPTION for c in ensight.objs.core.CASES if c.ACTIVE == 0]",
		"['Case 2', 'Case 3']")
	engine.SetFallback(func(command string) (enginetest.Reply, bool) {
		return enginetest.Reply{Value: "0"}, true
	})

	err := sess.LoadData(context.Background(), session.LoadDataOptions{
		DataFile:   "/data/coil.res",
		FileFormat: "CFX",
		NewCase:    true,
	})
	if err != nil {
		t.Fatalf("LoadData() error = %v", err)
	}
	if engine.CommandCount(`ensight.case.add("Case 2")`) != 1 {
		t.Fatal("first inactive case never added")
	}
	if engine.CommandCount(`ensight.case.select("Case 2")`) != 1 {
		t.Fatal("new case never selected")
	}
	if engine.CommandCount(`ensight.case.replace("Case 2", "Case 2")`) != 0 {
		t.Fatal("new case load must not replace an existing case")
	}
}

func TestLoadDataNewCaseFailsWhenNoSlotFree(t *testing.T) {
	engine, sess := startSession(t)
	engine.Script("ensight.version('product').lower()", "'ensight'")
	engine.Script("[c.DESCRIPTION for c in ensight.objs.core.CASES if c.ACTIVE == 0]", "[]")
	engine.SetFallback(func(command string) (enginetest.Reply, bool) {
		return enginetest.Reply{Value: "0"}, true
	})

	err := sess.LoadData(context.Background(), session.LoadDataOptions{
		DataFile:   "/data/coil.res",
		FileFormat: "CFX",
		NewCase:    true,
	})
	if !errors.Is(err, session.ErrNoAvailableCase) {
		t.Fatalf("LoadData() error = %v, want ErrNoAvailableCase", err)
	}
}

func TestLoadDataReportsEngineRejection(t *testing.T) {
	engine, sess := startSession(t)
	engine.Script("ensight.version('product').lower()", "'ensight'")
	engine.Script("ensight.objs.core.CURRENTCASE[0].DESCRIPTION", "'Case 1'")
	engine.SetFallback(func(command string) (enginetest.Reply, bool) {
		return enginetest.Reply{Value: "0"}, true
	})
	engine.Script(`ensight.data.replace(r"""/data/missing.res""")`, "-1")

	err := sess.LoadData(context.Background(), session.LoadDataOptions{
		DataFile:   "/data/missing.res",
		FileFormat: "CFX",
	})
	if !errors.Is(err, session.ErrLoadFailed) {
		t.Fatalf("LoadData() error = %v, want ErrLoadFailed", err)
	}
}

func TestLoadDataEnVisionShortCircuit(t *testing.T) {
	engine, sess := startSession(t)
	engine.Script("ensight.version('product').lower()", "'envision'")
	engine.Script(`ensight.data.replace(r"""/data/scene.evsn""")`, "0")

	if err := sess.LoadData(context.Background(), session.LoadDataOptions{DataFile: "/data/scene.evsn"}); err != nil {
		t.Fatalf("LoadData() error = %v", err)
	}
	for _, command := range engine.Commands() {
		if strings.HasPrefix(command, "ensight.case.") {
			t.Fatalf("case handling ran for envision: %q", command)
		}
	}
}

func TestCloseCanStopEngine(t *testing.T) {
	engine, sess := startSession(t)

	if err := sess.Close(context.Background(), true); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if !engine.ExitCalled() {
		t.Fatal("engine never saw the exit request")
	}
	if sess.Connected() {
		t.Fatal("session still marked connected")
	}
}

func indexOf(commands []string, want string, from int) int {
	for i := from; i < len(commands); i++ {
		if commands[i] == want {
			return i
		}
	}
	return -1
}
