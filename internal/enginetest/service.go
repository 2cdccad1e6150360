package enginetest

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"goensight/internal/rpc"
)

// Bootstrap values installed by ScriptBootstrap, exported so tests can
// assert against them.
const (
	BootstrapCEIHome      = "/opt/ansys/v251/CEI"
	BootstrapSuffix       = "251"
	BootstrapCoreID       = 220
	BootstrapPartTypeAttr = 1610612792
	BootstrapAnnotAttr    = 1610613030
	BootstrapToolAttr     = 1610613036
)

// ScriptBootstrap installs replies for the queries a session issues
// while connecting: installation identity, the enum snapshot, the core
// object and the interpreter version.
func (e *Engine) ScriptBootstrap() {
	e.Script("ensight.version('CEI_HOME')", "'"+BootstrapCEIHome+"'")
	e.Script("ensight.version('suffix')", "'"+BootstrapSuffix+"'")
	e.Script(
		"{key: getattr(ensight.objs.enums, key) for key in dir(ensight.objs.enums)}",
		fmt.Sprintf("{'ANNOTTYPE': %d, 'PARTTYPE': %d, 'TOOLTYPE': %d, '__OBJID__': 1610612737, '__doc__': None}",
			BootstrapAnnotAttr, BootstrapPartTypeAttr, BootstrapToolAttr))
	e.Script("ensight.objs.core",
		fmt.Sprintf("Class: ENS_GLOBALS, CvfObjID: %d, cached:no", BootstrapCoreID))
	e.Script("platform.python_version_tuple()", "('3', '10', '11')")
}

type engineService interface{}

func serviceDesc() *grpc.ServiceDesc {
	return &grpc.ServiceDesc{
		ServiceName: rpc.ServiceName,
		HandlerType: (*engineService)(nil),
		Methods: []grpc.MethodDesc{
			{MethodName: "RunPython", Handler: runPythonHandler},
			{MethodName: "RenderImage", Handler: renderImageHandler},
			{MethodName: "GetGeometry", Handler: getGeometryHandler},
			{MethodName: "Exit", Handler: exitHandler},
		},
		Streams: []grpc.StreamDesc{
			{StreamName: "GetEventStream", Handler: eventStreamHandler, ServerStreams: true},
		},
		Metadata: "ensight.proto",
	}
}

func (e *Engine) authorize(ctx context.Context) error {
	if e.secret == "" {
		return nil
	}
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return status.Error(codes.Unauthenticated, "missing call metadata")
	}
	for _, value := range md.Get(rpc.MetadataSecretKey) {
		if value == e.secret {
			return nil
		}
	}
	return status.Error(codes.Unauthenticated, "shared secret mismatch")
}

func (e *Engine) runPython(ctx context.Context, req *rpc.ExecRequest) (*rpc.ExecReply, error) {
	if err := e.authorize(ctx); err != nil {
		return nil, err
	}
	reply := e.lookup(req.Command)
	if reply.Error != 0 {
		return &rpc.ExecReply{Error: reply.Error}, nil
	}
	if req.Mode == int32(rpc.ExecNoResult) {
		return &rpc.ExecReply{}, nil
	}
	return &rpc.ExecReply{Value: reply.Value}, nil
}

func (e *Engine) renderImage(ctx context.Context, req *rpc.RenderRequest) (*rpc.BinaryReply, error) {
	if err := e.authorize(ctx); err != nil {
		return nil, err
	}
	e.mu.Lock()
	e.renders = append(e.renders, *req)
	data := e.imageData
	e.mu.Unlock()
	return &rpc.BinaryReply{Value: data}, nil
}

func (e *Engine) getGeometry(ctx context.Context, req *rpc.GeometryRequest) (*rpc.BinaryReply, error) {
	if err := e.authorize(ctx); err != nil {
		return nil, err
	}
	e.mu.Lock()
	e.geometry = append(e.geometry, *req)
	data := e.glbData
	e.mu.Unlock()
	return &rpc.BinaryReply{Value: data}, nil
}

func (e *Engine) exit(ctx context.Context, _ *rpc.ExitRequest) (*rpc.ExitReply, error) {
	if err := e.authorize(ctx); err != nil {
		return nil, err
	}
	e.mu.Lock()
	e.exited = true
	e.mu.Unlock()
	return &rpc.ExitReply{}, nil
}

func (e *Engine) eventStream(stream grpc.ServerStream) error {
	if err := e.authorize(stream.Context()); err != nil {
		return err
	}
	req := new(rpc.EventStreamRequest)
	if err := stream.RecvMsg(req); err != nil {
		return err
	}
	ch := e.addStream(req.Prefix)
	defer e.removeStream(ch)

	ctx := stream.Context()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case url := <-ch:
			if err := stream.SendMsg(&rpc.EventReply{Tag: url}); err != nil {
				return err
			}
		}
	}
}

func runPythonHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(rpc.ExecRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(*Engine).runPython(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: rpc.MethodRunPython}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(*Engine).runPython(ctx, req.(*rpc.ExecRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func renderImageHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(rpc.RenderRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(*Engine).renderImage(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: rpc.MethodRenderImage}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(*Engine).renderImage(ctx, req.(*rpc.RenderRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func getGeometryHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(rpc.GeometryRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(*Engine).getGeometry(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: rpc.MethodGetGeometry}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(*Engine).getGeometry(ctx, req.(*rpc.GeometryRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func exitHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(rpc.ExitRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(*Engine).exit(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: rpc.MethodExit}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(*Engine).exit(ctx, req.(*rpc.ExitRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func eventStreamHandler(srv any, stream grpc.ServerStream) error {
	return srv.(*Engine).eventStream(stream)
}
