package rpc

import (
	"context"
	"log/slog"
	"math"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"

	"goensight/internal/logging"
)

const defaultConnectTimeout = 15 * time.Second

// Options configures a Client.
type Options struct {
	Host   string
	Port   int
	Secret string
	// ConnectTimeout bounds each channel establishment attempt. Zero means
	// the 15 second default.
	ConnectTimeout time.Duration
	Logger         *slog.Logger
}

// Client is the channel manager for one engine instance. It owns at most
// one gRPC channel plus the event stream pump, and hands out the
// session-unique event prefix.
type Client struct {
	host           string
	port           int
	secret         string
	connectTimeout time.Duration
	log            *slog.Logger

	mu     sync.Mutex
	conn   *grpc.ClientConn
	prefix string

	events eventPump
}

// NewClient builds a disconnected Client. Nothing is dialed until Connect
// or the first call.
func NewClient(opts Options) *Client {
	host := opts.Host
	if host == "" {
		host = "127.0.0.1"
	}
	timeout := opts.ConnectTimeout
	if timeout <= 0 {
		timeout = defaultConnectTimeout
	}
	return &Client{
		host:           host,
		port:           opts.Port,
		secret:         opts.Secret,
		connectTimeout: timeout,
		log:            logging.NewComponentLogger(opts.Logger, "rpc"),
	}
}

// Target returns the host:port the client dials.
func (c *Client) Target() string {
	return net.JoinHostPort(c.host, strconv.Itoa(c.port))
}

// Prefix returns the session-unique event URL prefix, generating it on
// first use. Every notification the engine emits for this client starts
// with this string.
func (c *Client) Prefix() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.prefix == "" {
		c.prefix = "grpc://" + uuid.NewString() + "/"
	}
	return c.prefix
}

// Connect establishes the channel unless one is already live. The attempt
// blocks until the channel is ready or the connect timeout passes. A
// timeout leaves the client disconnected without reporting an error; the
// engine is routinely still starting on the first attempts, and callers
// poll IsConnected instead.
func (c *Client) Connect(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connectLocked(ctx)
}

func (c *Client) connectLocked(ctx context.Context) {
	if c.conn != nil {
		return
	}

	dialCtx, cancel := context.WithTimeout(ctx, c.connectTimeout)
	defer cancel()

	conn, err := grpc.DialContext(
		dialCtx,
		c.Target(),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithBlock(),
		grpc.WithDefaultCallOptions(
			grpc.ForceCodec(Codec{}),
			grpc.MaxCallRecvMsgSize(math.MaxInt32),
		),
	)
	if err != nil {
		c.log.Debug("engine dial failed",
			logging.String(logging.FieldTarget, c.Target()),
			logging.Error(err))
		return
	}
	c.conn = conn
	c.log.Debug("engine channel established",
		logging.String(logging.FieldTarget, c.Target()))
}

// IsConnected reports whether a live channel is held.
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

// ensureConn dials on demand and returns the channel, or ErrConnection when
// the engine stays unreachable.
func (c *Client) ensureConn(ctx context.Context) (*grpc.ClientConn, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connectLocked(ctx)
	if c.conn == nil {
		return nil, wrapConnection("dial "+c.Target(), nil)
	}
	return c.conn, nil
}

// withAuth attaches the shared-secret metadata pair when a secret is
// configured.
func (c *Client) withAuth(ctx context.Context) context.Context {
	if c.secret == "" {
		return ctx
	}
	return metadata.AppendToOutgoingContext(ctx, MetadataSecretKey, c.secret)
}

// Shutdown tears the channel down. With stopEngine set and a live channel,
// the engine is asked to exit first; the request error is returned but the
// local teardown always completes. Safe to call repeatedly and while
// disconnected.
func (c *Client) Shutdown(ctx context.Context, stopEngine bool) error {
	c.stopEventStream()

	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	if conn == nil {
		return nil
	}

	var exitErr error
	if stopEngine {
		reply := &ExitReply{}
		if err := conn.Invoke(c.withAuth(ctx), MethodExit, &ExitRequest{}, reply); err != nil {
			exitErr = wrapConnection("exit engine", err)
		}
	}
	if err := conn.Close(); err != nil && exitErr == nil {
		exitErr = wrapConnection("close channel", err)
	}
	c.log.Debug("engine channel closed",
		logging.String(logging.FieldTarget, c.Target()),
		logging.Bool("stop_engine", stopEngine))
	return exitErr
}
