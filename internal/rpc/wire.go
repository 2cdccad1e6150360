package rpc

// Service and method paths of the engine's gRPC surface. The engine side is
// implemented in the EnSight process itself; internal/enginetest carries a
// matching in-process double for tests.
const (
	ServiceName = "ensightservice.EnSightService"

	MethodRunPython      = "/ensightservice.EnSightService/RunPython"
	MethodRenderImage    = "/ensightservice.EnSightService/RenderImage"
	MethodGetGeometry    = "/ensightservice.EnSightService/GetGeometry"
	MethodExit           = "/ensightservice.EnSightService/Exit"
	MethodGetEventStream = "/ensightservice.EnSightService/GetEventStream"
)

// MetadataSecretKey is the metadata key carrying the shared secret. The
// engine rejects calls whose secret does not match the one it was started
// with.
const MetadataSecretKey = "shared_secret"

// ExecMode selects how RunPython treats the command and its result.
type ExecMode int32

const (
	// ExecNoResult runs the command as a statement and discards any value.
	ExecNoResult ExecMode = iota
	// ExecEvaluated evaluates the command and returns the interpreter's
	// repr() of the value.
	ExecEvaluated
	// ExecJSON evaluates the command and returns the value encoded as JSON.
	ExecJSON
)

// ExecRequest asks the engine to run one Python command.
type ExecRequest struct {
	Mode    int32  `cbor:"mode"`
	Command string `cbor:"command"`
}

// ExecReply carries the command outcome. Error below zero means the
// interpreter raised; Value is empty in that case and in no-result mode.
type ExecReply struct {
	Error int32  `cbor:"error"`
	Value string `cbor:"value"`
}

// Image formats accepted by RenderImage.
const (
	RenderFormatRaw = "raw"
	RenderFormatPNG = "png"
)

// RenderRequest asks the engine to render the current viewport.
type RenderRequest struct {
	Format       string `cbor:"format"`
	Width        int32  `cbor:"width"`
	Height       int32  `cbor:"height"`
	AAPasses     int32  `cbor:"aa_passes"`
	Highlighting bool   `cbor:"highlighting"`
}

// GeometryFormatGLB is the only geometry export format the engine offers.
const GeometryFormatGLB = "glb"

// GeometryRequest asks the engine to export the current scene geometry.
type GeometryRequest struct {
	Format string `cbor:"format"`
}

// BinaryReply carries rendered image bytes or exported geometry bytes.
type BinaryReply struct {
	Value []byte `cbor:"value"`
}

// ExitRequest asks the engine process to terminate.
type ExitRequest struct{}

// ExitReply acknowledges an ExitRequest.
type ExitReply struct{}

// EventStreamRequest opens the notification stream. Prefix is the
// session-unique URL prefix the engine stamps on every notification.
type EventStreamRequest struct {
	Prefix string `cbor:"prefix"`
}

// EventReply carries one notification URL.
type EventReply struct {
	Tag string `cbor:"tag"`
}
