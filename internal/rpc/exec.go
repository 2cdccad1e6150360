package rpc

import (
	"context"
)

// Execute runs one Python command on the engine in the given mode and
// returns the textual result (empty in no-result mode). The channel is
// established on demand. A transport failure surfaces as ErrConnection; a
// command the interpreter rejected surfaces as ErrRemoteExecution.
func (c *Client) Execute(ctx context.Context, command string, mode ExecMode) (string, error) {
	conn, err := c.ensureConn(ctx)
	if err != nil {
		return "", err
	}

	req := &ExecRequest{Mode: int32(mode), Command: command}
	reply := &ExecReply{}
	if err := conn.Invoke(c.withAuth(ctx), MethodRunPython, req, reply); err != nil {
		return "", wrapConnection("run python", err)
	}
	if reply.Error < 0 {
		return "", ErrRemoteExecution
	}
	return reply.Value, nil
}

// RenderOptions shape one viewport render request.
type RenderOptions struct {
	Width        int
	Height       int
	AAPasses     int
	Raw          bool
	Highlighting bool
}

// Render asks the engine for an image of the current viewport. The reply is
// PNG-encoded unless Raw is set, in which case it is the bare pixel buffer.
func (c *Client) Render(ctx context.Context, opts RenderOptions) ([]byte, error) {
	conn, err := c.ensureConn(ctx)
	if err != nil {
		return nil, err
	}

	format := RenderFormatPNG
	if opts.Raw {
		format = RenderFormatRaw
	}
	req := &RenderRequest{
		Format:       format,
		Width:        int32(opts.Width),
		Height:       int32(opts.Height),
		AAPasses:     int32(opts.AAPasses),
		Highlighting: opts.Highlighting,
	}
	reply := &BinaryReply{}
	if err := conn.Invoke(c.withAuth(ctx), MethodRenderImage, req, reply); err != nil {
		return nil, wrapConnection("render image", err)
	}
	return reply.Value, nil
}

// Geometry asks the engine for the current scene geometry as glTF binary.
func (c *Client) Geometry(ctx context.Context) ([]byte, error) {
	conn, err := c.ensureConn(ctx)
	if err != nil {
		return nil, err
	}

	req := &GeometryRequest{Format: GeometryFormatGLB}
	reply := &BinaryReply{}
	if err := conn.Invoke(c.withAuth(ctx), MethodGetGeometry, req, reply); err != nil {
		return nil, wrapConnection("get geometry", err)
	}
	return reply.Value, nil
}
