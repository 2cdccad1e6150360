package rpc

import (
	"context"
	"sync"

	"google.golang.org/grpc"

	"goensight/internal/logging"
)

// StreamState describes the event stream lifecycle. Closed and Broken are
// terminal: a torn-down or failed stream is never restarted on the same
// Client.
type StreamState int

const (
	StreamIdle StreamState = iota
	StreamStarting
	StreamActive
	StreamClosed
	StreamBroken
)

func (s StreamState) String() string {
	switch s {
	case StreamIdle:
		return "idle"
	case StreamStarting:
		return "starting"
	case StreamActive:
		return "active"
	case StreamClosed:
		return "closed"
	case StreamBroken:
		return "broken"
	default:
		return "unknown"
	}
}

// Sink consumes notification URLs as the pump receives them. A sink runs on
// the pump goroutine and must not block for long.
type Sink func(url string)

type eventPump struct {
	mu     sync.Mutex
	state  StreamState
	queue  []string
	sink   Sink
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

var eventStreamDesc = &grpc.StreamDesc{
	StreamName:    "GetEventStream",
	ServerStreams: true,
}

// EventStreamEnable opens the notification stream and starts the single
// pump goroutine. Calling it while the stream is starting or active is a
// no-op. The stream subscribes with the client's Prefix, so only this
// session's notifications arrive.
func (c *Client) EventStreamEnable(ctx context.Context) error {
	c.events.mu.Lock()
	switch c.events.state {
	case StreamStarting, StreamActive:
		c.events.mu.Unlock()
		return nil
	case StreamClosed, StreamBroken:
		state := c.events.state
		c.events.mu.Unlock()
		return wrapConnection("enable event stream: stream "+state.String(), nil)
	}
	c.events.state = StreamStarting
	c.events.mu.Unlock()

	conn, err := c.ensureConn(ctx)
	if err != nil {
		c.resetEventStream()
		return err
	}

	// The stream outlives ctx; its own cancel func is the teardown handle.
	streamCtx, cancel := context.WithCancel(context.Background())
	stream, err := conn.NewStream(c.withAuth(streamCtx), eventStreamDesc, MethodGetEventStream)
	if err != nil {
		cancel()
		c.resetEventStream()
		return wrapConnection("open event stream", err)
	}
	if err := stream.SendMsg(&EventStreamRequest{Prefix: c.Prefix()}); err != nil {
		cancel()
		c.resetEventStream()
		return wrapConnection("subscribe event stream", err)
	}
	if err := stream.CloseSend(); err != nil {
		cancel()
		c.resetEventStream()
		return wrapConnection("subscribe event stream", err)
	}

	c.events.mu.Lock()
	c.events.cancel = cancel
	c.events.state = StreamActive
	c.events.wg.Add(1)
	c.events.mu.Unlock()

	go c.pumpEvents(stream)

	c.log.Debug("event stream enabled", logging.String("prefix", c.Prefix()))
	return nil
}

// EventStreamState reports the pump lifecycle state.
func (c *Client) EventStreamState() StreamState {
	c.events.mu.Lock()
	defer c.events.mu.Unlock()
	return c.events.state
}

// SetEventSink routes subsequent notifications to fn instead of the queue.
// Notifications already queued stay queued for GetEvent. A nil fn restores
// queueing.
func (c *Client) SetEventSink(fn Sink) {
	c.events.mu.Lock()
	c.events.sink = fn
	c.events.mu.Unlock()
}

// GetEvent pops the oldest queued notification URL. ok is false when the
// queue is empty.
func (c *Client) GetEvent() (url string, ok bool) {
	c.events.mu.Lock()
	defer c.events.mu.Unlock()
	if len(c.events.queue) == 0 {
		return "", false
	}
	url = c.events.queue[0]
	c.events.queue = c.events.queue[1:]
	return url, true
}

func (c *Client) pumpEvents(stream grpc.ClientStream) {
	defer c.events.wg.Done()
	for {
		reply := &EventReply{}
		if err := stream.RecvMsg(reply); err != nil {
			c.events.mu.Lock()
			interrupted := c.events.state == StreamActive
			if interrupted {
				c.events.state = StreamBroken
				c.events.cancel = nil
			}
			c.events.mu.Unlock()
			if interrupted {
				c.log.Debug("event stream broke", logging.Error(err))
			}
			return
		}
		c.deliverEvent(reply.Tag)
	}
}

// deliverEvent hands one notification to the sink, or queues it when no
// sink is installed. The sink runs outside the pump lock so it may call
// back into the client.
func (c *Client) deliverEvent(url string) {
	c.events.mu.Lock()
	sink := c.events.sink
	if sink == nil {
		c.events.queue = append(c.events.queue, url)
	}
	c.events.mu.Unlock()
	if sink != nil {
		sink(url)
	}
}

func (c *Client) resetEventStream() {
	c.events.mu.Lock()
	if c.events.state == StreamStarting {
		c.events.state = StreamIdle
	}
	c.events.mu.Unlock()
}

// stopEventStream cancels the stream context so the pump's blocking read
// unblocks, then joins the pump. Runs as part of Shutdown.
func (c *Client) stopEventStream() {
	c.events.mu.Lock()
	cancel := c.events.cancel
	c.events.cancel = nil
	switch c.events.state {
	case StreamStarting, StreamActive:
		c.events.state = StreamClosed
	}
	c.events.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	c.events.wg.Wait()
}
