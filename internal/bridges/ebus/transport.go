package ebus

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/ebushome/ebus2mqtt/internal/decode"
	"github.com/ebushome/ebus2mqtt/internal/schema"
)

// Transport connection constants.
const (
	// connectTimeout bounds a single dial attempt.
	connectTimeout = 10 * time.Second

	// readTimeout is the per-read deadline. The bus idles as a SYN stream,
	// so a healthy adapter delivers bytes well within it.
	readTimeout = 60 * time.Second

	// writeTimeout bounds a probe transmission.
	writeTimeout = 5 * time.Second

	// readBuffer is the read chunk size.
	readBuffer = 256

	// reconnectDelayMin and reconnectDelayMax bound the backoff between
	// reconnect attempts.
	reconnectDelayMin = time.Second
	reconnectDelayMax = 30 * time.Second

	// defaultSourceAddress is the master address probes are sent from when
	// the request pattern leaves the source wildcarded.
	defaultSourceAddress byte = 0xFF
)

// Transport owns the TCP connection to the ebus interface adapter.
//
// It reads the adapter stream into a Framer, delivers completed exchanges to
// the handler, reconnects with backoff when the connection drops, and can
// inject a single probe frame onto the bus for presence checks.
//
// All methods are safe for concurrent use.
type Transport struct {
	addr    string
	handler func(Exchange)
	logger  Logger

	framer *Framer

	done chan struct{}
	wg   sync.WaitGroup

	mu      sync.RWMutex
	conn    net.Conn
	running bool

	probeMu sync.Mutex
	probe   *probeWaiter
}

// probeWaiter is one in-flight presence probe awaiting its echoed exchange.
type probeWaiter struct {
	frame Frame
	reply chan decode.Telegram
}

// NewTransport creates a transport for the given adapter address
// (host:port). Completed exchanges are delivered to handler from the
// transport's read goroutine.
func NewTransport(addr string, handler func(Exchange)) *Transport {
	t := &Transport{
		addr:    addr,
		handler: handler,
		done:    make(chan struct{}),
	}
	t.framer = NewFramer(t.dispatch)
	return t
}

// SetLogger sets the logger for the transport and its framer.
func (t *Transport) SetLogger(logger Logger) {
	t.logger = logger
	t.framer.SetLogger(logger)
}

// Start connects to the adapter and begins reading. The first connection
// attempt is synchronous so that a bad address fails fast; later drops are
// handled by the reconnect loop.
func (t *Transport) Start(ctx context.Context) error {
	t.mu.Lock()
	if t.running {
		t.mu.Unlock()
		return fmt.Errorf("transport already running")
	}
	t.running = true
	t.mu.Unlock()

	conn, err := t.connect(ctx)
	if err != nil {
		t.mu.Lock()
		t.running = false
		t.mu.Unlock()
		return fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}
	t.setConn(conn)

	t.wg.Add(1)
	go t.readLoop()

	return nil
}

// Stop closes the connection and waits for the read loop to exit.
func (t *Transport) Stop() {
	t.mu.Lock()
	if !t.running {
		t.mu.Unlock()
		return
	}
	t.running = false
	t.mu.Unlock()

	close(t.done)

	t.mu.Lock()
	if t.conn != nil {
		t.conn.Close()
	}
	t.mu.Unlock()

	t.wg.Wait()
	t.log("transport stopped")
}

// Connected reports whether a connection to the adapter is up.
func (t *Transport) Connected() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.conn != nil
}

// connect dials the adapter and performs the enhanced-protocol init
// handshake.
func (t *Transport) connect(ctx context.Context) (net.Conn, error) {
	dialCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	var dialer net.Dialer
	conn, err := dialer.DialContext(dialCtx, "tcp", t.addr)
	if err != nil {
		return nil, err
	}

	// Ask the adapter to (re)initialise in enhanced mode.
	b1, b2 := encodeEscape(enhInit, 0)
	if err := conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		conn.Close()
		return nil, err
	}
	if _, err := conn.Write([]byte{b1, b2}); err != nil {
		conn.Close()
		return nil, fmt.Errorf("init handshake: %w", err)
	}

	t.log("connected to ebus adapter", "addr", t.addr)
	return conn, nil
}

// setConn swaps in a new connection.
func (t *Transport) setConn(conn net.Conn) {
	t.mu.Lock()
	t.conn = conn
	t.mu.Unlock()
}

// readLoop reads the adapter stream into the framer and reconnects with
// backoff when the connection drops.
func (t *Transport) readLoop() {
	defer t.wg.Done()

	buf := make([]byte, readBuffer)

	for {
		select {
		case <-t.done:
			return
		default:
		}

		t.mu.RLock()
		conn := t.conn
		t.mu.RUnlock()
		if conn == nil {
			if !t.reconnect() {
				return
			}
			continue
		}

		if err := conn.SetReadDeadline(time.Now().Add(readTimeout)); err != nil {
			t.dropConn(conn, err)
			continue
		}

		n, err := conn.Read(buf)
		if n > 0 {
			t.framer.Feed(buf[:n])
		}
		if err != nil {
			if t.isClosed() {
				return
			}
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				// A silent adapter is a dead adapter: the bus never
				// stops sending SYNs.
				t.logError("adapter silent past read deadline", err)
			}
			t.dropConn(conn, err)
		}
	}
}

// dropConn closes a failed connection and resets framer state so the next
// connection starts clean at a SYN boundary.
func (t *Transport) dropConn(conn net.Conn, err error) {
	if !t.isClosed() {
		t.logError("connection lost", err)
	}
	conn.Close()
	t.setConn(nil)
	t.framer.reset()
	t.framer.hasPending = false
}

// reconnect re-dials with exponential backoff until it succeeds or the
// transport stops. Returns false when stopping.
func (t *Transport) reconnect() bool {
	delay := reconnectDelayMin
	for {
		select {
		case <-t.done:
			return false
		case <-time.After(delay):
		}

		conn, err := t.connect(context.Background())
		if err == nil {
			t.setConn(conn)
			return true
		}
		t.logError("reconnect failed", err)

		delay *= 2
		if delay > reconnectDelayMax {
			delay = reconnectDelayMax
		}
	}
}

// dispatch routes a completed exchange to a pending probe waiter, if it is
// the probe's echo, and always to the handler.
func (t *Transport) dispatch(ex Exchange) {
	t.probeMu.Lock()
	if w := t.probe; w != nil &&
		ex.Request.Source == w.frame.Source &&
		ex.Request.Dest == w.frame.Dest &&
		ex.Request.Command == w.frame.Command {
		select {
		case w.reply <- ex.Telegram():
		default:
		}
		t.probe = nil
	}
	t.probeMu.Unlock()

	if t.handler != nil {
		t.handler(ex)
	}
}

// Probe injects one request frame described by the pattern and waits for the
// exchange it produces to come back around on the bus. The adapter echoes our
// own transmission together with any slave response, so the echo carries the
// answer.
//
// Wildcarded pattern positions fall back to concrete addresses: the source to
// the transport's own master address, the destination to Broadcast. The
// command identifier is required. At most one probe may be in flight.
func (t *Transport) Probe(ctx context.Context, request schema.PatternSpec) (decode.Telegram, error) {
	t.mu.RLock()
	conn := t.conn
	t.mu.RUnlock()
	if conn == nil {
		return decode.Telegram{}, ErrNotConnected
	}
	if request.Command == nil {
		return decode.Telegram{}, fmt.Errorf("ebus: probe request needs a command identifier")
	}

	frame := Frame{
		Source:  defaultSourceAddress,
		Dest:    Broadcast,
		Command: *request.Command,
	}
	if !request.Source.Any {
		frame.Source = request.Source.Value
	}
	if !request.Dest.Any {
		frame.Dest = request.Dest.Value
	}
	if request.Data != nil {
		frame.Data = request.Data.Bytes
	}

	waiter := &probeWaiter{frame: frame, reply: make(chan decode.Telegram, 1)}
	t.probeMu.Lock()
	if t.probe != nil {
		t.probeMu.Unlock()
		return decode.Telegram{}, ErrProbePending
	}
	t.probe = waiter
	t.probeMu.Unlock()

	defer func() {
		t.probeMu.Lock()
		if t.probe == waiter {
			t.probe = nil
		}
		t.probeMu.Unlock()
	}()

	if err := t.send(conn, frame); err != nil {
		return decode.Telegram{}, err
	}

	select {
	case reply := <-waiter.reply:
		return reply, nil
	case <-ctx.Done():
		return decode.Telegram{}, fmt.Errorf("%w: %v", ErrProbeTimeout, ctx.Err())
	case <-t.done:
		return decode.Telegram{}, ErrNotConnected
	}
}

// send writes one frame to the adapter, each byte wrapped in a
// host-to-adapter send escape.
func (t *Transport) send(conn net.Conn, frame Frame) error {
	raw, err := frame.Encode()
	if err != nil {
		return err
	}

	wire := make([]byte, 0, 2*len(raw))
	for _, b := range raw {
		b1, b2 := encodeEscape(enhSend, b)
		wire = append(wire, b1, b2)
	}

	if err := conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}
	if _, err := conn.Write(wire); err != nil {
		return fmt.Errorf("writing probe frame: %w", err)
	}
	t.log("probe sent", "frame", frame.String())
	return nil
}

// isClosed returns true once Stop has been called.
func (t *Transport) isClosed() bool {
	select {
	case <-t.done:
		return true
	default:
		return false
	}
}

// log logs an info message if a logger is set.
func (t *Transport) log(msg string, keysAndValues ...any) {
	if t.logger != nil {
		t.logger.Info(msg, keysAndValues...)
	}
}

// logError logs an error if a logger is set.
func (t *Transport) logError(msg string, err error) {
	if t.logger != nil {
		t.logger.Error(msg, "error", err)
	}
}
