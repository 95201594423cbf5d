package live

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/poly4/fpl-analsyer-sub000/internal/domain"
	"github.com/poly4/fpl-analsyer-sub000/internal/metrics"
	"github.com/poly4/fpl-analsyer-sub000/internal/platform/retry"
)

const (
	defaultInitialBackoff = time.Second
	defaultMaxBackoff     = 30 * time.Second
	defaultMaxAttempts    = 10
	dialTimeout           = 10 * time.Second
)

// Listener receives the payload of one inbound frame plus transport-level
// metadata. The payload must not be mutated.
type Listener func(payload json.RawMessage, meta domain.Meta)

// StateListener is notified on every connection state transition.
type StateListener func(state ConnectionState)

// FailureHandler is invoked once the reconnection budget is exhausted.
type FailureHandler func(err error)

// subscribeFrame is the outbound subscription protocol.
type subscribeFrame struct {
	Action string           `json:"action"`
	Room   string           `json:"room"`
	Kind   domain.TopicKind `json:"kind"`
}

// inboundFrame is the inbound wire envelope. Data stays raw: its shape is
// implied by Type and only listeners interpret it.
type inboundFrame struct {
	Type domain.MessageType `json:"type"`
	Data json.RawMessage    `json:"data"`
}

// --- Command types ---

type clientCmd interface{ clientCmd() }

type baseClientCmd struct{}

func (baseClientCmd) clientCmd() {}

type subscribeCmd struct {
	baseClientCmd
	topic string
	kind  domain.TopicKind
}

type unsubscribeCmd struct {
	baseClientCmd
	topic string
}

type addListenerCmd struct {
	baseClientCmd
	msgType domain.MessageType
	fn      Listener
	replyCh chan int
}

type removeListenerCmd struct {
	baseClientCmd
	msgType domain.MessageType
	id      int
}

type addStateListenerCmd struct {
	baseClientCmd
	fn StateListener
}

type dialResultCmd struct {
	baseClientCmd
	epoch int
	conn  Conn
	err   error
}

type frameCmd struct {
	baseClientCmd
	epoch      int
	data       []byte
	receivedAt time.Time
}

type readErrorCmd struct {
	baseClientCmd
	epoch int
	err   error
}

type retryCmd struct {
	baseClientCmd
}

type startCmd struct {
	baseClientCmd
}

type getStateCmd struct {
	baseClientCmd
	replyCh chan ConnectionState
}

type stopCmd struct {
	baseClientCmd
	doneCh chan struct{}
}

// --- Client ---

type topicRef struct {
	kind domain.TopicKind
	refs int
}

type listenerEntry struct {
	id int
	fn Listener
}

// Client multiplexes one persistent live feed connection into many topic
// subscriptions. All state lives in the run goroutine and is driven through
// the command channel; callers never share memory with it.
type Client struct {
	url       string
	transport Transport
	clock     clockwork.Clock

	backoffPolicy retry.Policy
	maxAttempts   int
	onFailure     FailureHandler

	cmdCh chan clientCmd

	// Actor-owned state. Touched only inside run().
	started        bool
	state          ConnectionState
	conn           Conn
	epoch          int
	attempt        int
	topics         map[string]*topicRef
	listeners      map[domain.MessageType][]listenerEntry
	nextListenerID int
	stateListeners []StateListener
}

// Option configures a Client.
type Option func(*Client)

// WithBackoff overrides the reconnect backoff schedule.
func WithBackoff(initial, max time.Duration) Option {
	return func(c *Client) {
		c.backoffPolicy = retry.Policy{InitialBackoff: initial, MaxBackoff: max}
	}
}

// WithMaxAttempts bounds consecutive failed reconnection attempts before
// the failure handler fires.
func WithMaxAttempts(n int) Option {
	return func(c *Client) { c.maxAttempts = n }
}

// WithFailureHandler installs the persistent-failure signal callback.
func WithFailureHandler(fn FailureHandler) Option {
	return func(c *Client) { c.onFailure = fn }
}

// NewClient creates a client for the given feed URL. The actor goroutine
// runs from construction, so listeners and subscriptions can be registered
// before Start; no connection is attempted until Start is called.
func NewClient(url string, transport Transport, clock clockwork.Clock, opts ...Option) *Client {
	c := &Client{
		url:           url,
		transport:     transport,
		clock:         clock,
		backoffPolicy: retry.Policy{InitialBackoff: defaultInitialBackoff, MaxBackoff: defaultMaxBackoff},
		maxAttempts:   defaultMaxAttempts,
		cmdCh:         make(chan clientCmd, 256),
		state:         StateConnecting,
		topics:        make(map[string]*topicRef),
		listeners:     make(map[domain.MessageType][]listenerEntry),
	}
	for _, opt := range opts {
		opt(c)
	}
	go c.run()
	return c
}

// Start begins the first connection attempt. Calling it again, or after
// Close, is a no-op.
func (c *Client) Start() {
	c.cmdCh <- startCmd{}
}

func (c *Client) run() {
	for cmd := range c.cmdCh {
		switch cm := cmd.(type) {
		case startCmd:
			if c.started || c.state == StateClosed {
				break
			}
			c.started = true
			c.setState(StateConnecting)
			c.dial()
		case subscribeCmd:
			c.handleSubscribe(cm)
		case unsubscribeCmd:
			c.handleUnsubscribe(cm)
		case addListenerCmd:
			id := c.nextListenerID
			c.nextListenerID++
			c.listeners[cm.msgType] = append(c.listeners[cm.msgType], listenerEntry{id: id, fn: cm.fn})
			cm.replyCh <- id
		case removeListenerCmd:
			entries := c.listeners[cm.msgType]
			for i, e := range entries {
				if e.id == cm.id {
					c.listeners[cm.msgType] = append(entries[:i], entries[i+1:]...)
					break
				}
			}
		case addStateListenerCmd:
			c.stateListeners = append(c.stateListeners, cm.fn)
		case dialResultCmd:
			c.handleDialResult(cm)
		case frameCmd:
			c.handleFrame(cm)
		case readErrorCmd:
			c.handleReadError(cm)
		case retryCmd:
			if c.state == StateReconnecting {
				c.setState(StateConnecting)
				c.dial()
			}
		case getStateCmd:
			cm.replyCh <- c.state
		case stopCmd:
			c.handleStop()
			close(cm.doneCh)
			// Keep draining commands so late callers still get state
			// replies; closed is terminal and everything else is a no-op.
		}
	}
}

// dial starts a connection attempt off the actor goroutine and reports the
// result back as a command. The epoch guards against results from attempts
// that were superseded by a later reconnect or Close.
func (c *Client) dial() {
	c.epoch++
	epoch := c.epoch

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
		defer cancel()
		conn, err := c.transport.Dial(ctx, c.url)
		c.cmdCh <- dialResultCmd{epoch: epoch, conn: conn, err: err}
	}()
}

func (c *Client) handleDialResult(cm dialResultCmd) {
	if cm.epoch != c.epoch || c.state == StateClosed {
		if cm.conn != nil {
			cm.conn.Close()
		}
		return
	}

	if cm.err != nil {
		slog.Warn("Live feed connection failed", "error", cm.err, "attempt", c.attempt+1)
		c.scheduleRetry(cm.err)
		return
	}

	c.conn = cm.conn
	c.attempt = 0
	c.setState(StateConnected)
	slog.Info("Live feed connected", "topics", len(c.topics))

	// Replay every topic that still has at least one listener.
	for topic, ref := range c.topics {
		if err := c.sendSubscribe("subscribe", topic, ref.kind); err != nil {
			c.transportLost(err)
			return
		}
	}

	go c.readLoop(cm.conn, c.epoch)
}

func (c *Client) readLoop(conn Conn, epoch int) {
	for {
		data, err := conn.ReadMessage()
		if err != nil {
			c.cmdCh <- readErrorCmd{epoch: epoch, err: err}
			return
		}
		c.cmdCh <- frameCmd{epoch: epoch, data: data, receivedAt: c.clock.Now()}
	}
}

func (c *Client) handleFrame(cm frameCmd) {
	if cm.epoch != c.epoch || c.state != StateConnected {
		return
	}

	var frame inboundFrame
	if err := json.Unmarshal(cm.data, &frame); err != nil {
		slog.Warn("Dropping malformed live frame", "error", err, "size", len(cm.data))
		return
	}

	metrics.LiveFramesReceived.WithLabelValues(string(frame.Type)).Inc()

	meta := domain.Meta{ReceivedAt: cm.receivedAt, FrameSize: len(cm.data)}
	for _, entry := range c.listeners[frame.Type] {
		c.dispatch(entry.fn, frame.Data, meta)
	}
}

// dispatch invokes one listener, isolating its panic so the remaining
// listeners for the frame still run.
func (c *Client) dispatch(fn Listener, payload json.RawMessage, meta domain.Meta) {
	defer func() {
		if r := recover(); r != nil {
			metrics.LiveDispatchErrors.Inc()
			slog.Error("Live listener panicked", "panic", r)
		}
	}()
	fn(payload, meta)
}

func (c *Client) handleReadError(cm readErrorCmd) {
	if cm.epoch != c.epoch || c.state != StateConnected {
		return
	}
	slog.Warn("Live feed transport error", "error", cm.err)
	c.transportLost(cm.err)
}

// transportLost tears down the current connection and enters the
// reconnection path. Connected never silently degrades: the state always
// moves to reconnecting so callers can observe the drop.
func (c *Client) transportLost(err error) {
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.scheduleRetry(err)
}

func (c *Client) scheduleRetry(err error) {
	c.setState(StateReconnecting)
	c.attempt++

	if c.attempt >= c.maxAttempts {
		slog.Error("Live feed reconnection budget exhausted",
			"attempts", c.attempt,
			"error", err,
		)
		if c.onFailure != nil {
			go c.onFailure(err)
		}
		return
	}

	backoff := c.backoffPolicy.Backoff(c.attempt)

	metrics.LiveReconnectionsTotal.Inc()
	slog.Info("Scheduling live feed reconnect", "attempt", c.attempt, "backoff", backoff)

	timer := c.clock.NewTimer(backoff)
	go func() {
		defer timer.Stop()
		<-timer.Chan()
		c.cmdCh <- retryCmd{}
	}()
}

func (c *Client) handleSubscribe(cm subscribeCmd) {
	if c.state == StateClosed {
		return
	}

	ref, ok := c.topics[cm.topic]
	if ok {
		ref.refs++
		return
	}

	c.topics[cm.topic] = &topicRef{kind: cm.kind, refs: 1}
	metrics.LiveActiveTopics.Set(float64(len(c.topics)))

	// Only the 0 -> 1 transition reaches the transport.
	if c.state == StateConnected {
		if err := c.sendSubscribe("subscribe", cm.topic, cm.kind); err != nil {
			c.transportLost(err)
		}
	}
}

func (c *Client) handleUnsubscribe(cm unsubscribeCmd) {
	ref, ok := c.topics[cm.topic]
	if !ok {
		return
	}

	ref.refs--
	if ref.refs > 0 {
		return
	}

	delete(c.topics, cm.topic)
	metrics.LiveActiveTopics.Set(float64(len(c.topics)))

	// Only the 1 -> 0 transition reaches the transport.
	if c.state == StateConnected {
		if err := c.sendSubscribe("unsubscribe", cm.topic, ref.kind); err != nil {
			c.transportLost(err)
		}
	}
}

func (c *Client) sendSubscribe(action, topic string, kind domain.TopicKind) error {
	return c.conn.WriteJSON(subscribeFrame{Action: action, Room: topic, Kind: kind})
}

func (c *Client) handleStop() {
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.epoch++
	c.topics = make(map[string]*topicRef)
	c.listeners = make(map[domain.MessageType][]listenerEntry)
	metrics.LiveActiveTopics.Set(0)
	c.setState(StateClosed)
}

func (c *Client) setState(s ConnectionState) {
	if c.state == s && s != StateConnecting {
		return
	}
	c.state = s
	metrics.LiveConnectionState.Set(float64(s))
	for _, fn := range c.stateListeners {
		fn(s)
	}
}

// --- Public API ---

// Subscribe registers interest in a topic. N overlapping subscribers cause
// exactly one subscribe frame on the transport.
func (c *Client) Subscribe(topic string, kind domain.TopicKind) {
	c.cmdCh <- subscribeCmd{topic: topic, kind: kind}
}

// Unsubscribe releases one subscriber's interest; the unsubscribe frame is
// only sent when the last subscriber for the topic is gone.
func (c *Client) Unsubscribe(topic string) {
	c.cmdCh <- unsubscribeCmd{topic: topic}
}

// On registers a listener for a message type and returns a handle for Off.
// Listeners for a type run in registration order; registration takes effect
// for future frames only.
func (c *Client) On(msgType domain.MessageType, fn Listener) int {
	replyCh := make(chan int, 1)
	c.cmdCh <- addListenerCmd{msgType: msgType, fn: fn, replyCh: replyCh}
	return <-replyCh
}

// Off removes a listener previously registered with On.
func (c *Client) Off(msgType domain.MessageType, id int) {
	c.cmdCh <- removeListenerCmd{msgType: msgType, id: id}
}

// OnStateChange registers a callback for connection state transitions.
func (c *Client) OnStateChange(fn StateListener) {
	c.cmdCh <- addStateListenerCmd{fn: fn}
}

// State returns the current connection state.
func (c *Client) State() ConnectionState {
	replyCh := make(chan ConnectionState, 1)
	c.cmdCh <- getStateCmd{replyCh: replyCh}
	return <-replyCh
}

// Close shuts the client down. All subscriptions are dropped and no further
// reconnection is attempted. The closed state is terminal.
func (c *Client) Close() {
	doneCh := make(chan struct{})
	c.cmdCh <- stopCmd{doneCh: doneCh}
	<-doneCh
}
