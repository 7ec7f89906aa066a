// Package feed streams live pool prices over WebSocket and pushes them to a
// handler. The dashboard uses it to refresh position prices without polling
// the REST API.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// PriceUpdate is one pushed price tick for a pool.
type PriceUpdate struct {
	Pool  string  `json:"pool"`
	Price float64 `json:"price"`
	TsMs  int64   `json:"ts_ms"`
}

// Handler receives price updates. Calls are serialized.
type Handler func(PriceUpdate)

// Config configures feed client behavior.
type Config struct {
	// ReconnectDelay is initial delay before reconnect attempt.
	ReconnectDelay time.Duration
	// MaxReconnectDelay is maximum delay between reconnect attempts.
	MaxReconnectDelay time.Duration
	// PingInterval is interval for sending ping frames.
	PingInterval time.Duration
	// ReadTimeout is timeout for reading messages.
	ReadTimeout time.Duration
	// WriteTimeout is timeout for writing messages.
	WriteTimeout time.Duration
	// OnReconnect, when set, is called after each successful reconnect,
	// before resubscription.
	OnReconnect func()
}

// DefaultConfig returns default feed configuration.
func DefaultConfig() Config {
	return Config{
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		PingInterval:      30 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
	}
}

// Client maintains a WebSocket subscription to pool price updates with
// automatic reconnect and resubscribe.
type Client struct {
	endpoint string
	config   Config
	handler  Handler
	logger   *log.Logger

	conn   *websocket.Conn
	connMu sync.Mutex
	closed atomic.Bool

	// pools stores subscribed pool IDs for resubscription after reconnect
	pools   map[string]struct{}
	poolsMu sync.RWMutex

	done chan struct{}
	wg   sync.WaitGroup

	reconnecting atomic.Bool
}

// NewClient creates a feed client and connects to the endpoint.
func NewClient(ctx context.Context, endpoint string, handler Handler, config *Config, logger *log.Logger) (*Client, error) {
	if handler == nil {
		return nil, fmt.Errorf("handler is required")
	}

	cfg := DefaultConfig()
	if config != nil {
		cfg = *config
	}
	if logger == nil {
		logger = log.New(os.Stdout, "[feed] ", log.LstdFlags|log.Lshortfile)
	}

	c := &Client{
		endpoint: endpoint,
		config:   cfg,
		handler:  handler,
		logger:   logger,
		pools:    make(map[string]struct{}),
		done:     make(chan struct{}),
	}

	if err := c.connect(ctx); err != nil {
		return nil, err
	}

	c.wg.Add(1)
	go c.readLoop()

	c.wg.Add(1)
	go c.pingLoop()

	return c, nil
}

// connect establishes the WebSocket connection.
func (c *Client) connect(ctx context.Context) error {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, c.endpoint, nil)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}

	c.conn = conn
	return nil
}

// subscribeMsg is the wire format for subscribe requests.
type subscribeMsg struct {
	Op    string   `json:"op"`
	Pools []string `json:"pools"`
}

// Subscribe adds pools to the subscription. Already-subscribed pools are
// resent, which the upstream treats as a no-op.
func (c *Client) Subscribe(pools ...string) error {
	if c.closed.Load() {
		return fmt.Errorf("client closed")
	}
	if len(pools) == 0 {
		return nil
	}

	c.poolsMu.Lock()
	for _, p := range pools {
		c.pools[p] = struct{}{}
	}
	c.poolsMu.Unlock()

	return c.writeJSON(subscribeMsg{Op: "subscribe", Pools: pools})
}

// Unsubscribe removes pools from the subscription.
func (c *Client) Unsubscribe(pools ...string) error {
	if c.closed.Load() {
		return fmt.Errorf("client closed")
	}
	if len(pools) == 0 {
		return nil
	}

	c.poolsMu.Lock()
	for _, p := range pools {
		delete(c.pools, p)
	}
	c.poolsMu.Unlock()

	return c.writeJSON(subscribeMsg{Op: "unsubscribe", Pools: pools})
}

// writeJSON writes one message under the connection lock.
func (c *Client) writeJSON(v interface{}) error {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	if c.conn == nil {
		return fmt.Errorf("not connected")
	}
	c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
	return c.conn.WriteJSON(v)
}

// readLoop reads messages until shutdown, reconnecting on errors with
// exponential backoff.
func (c *Client) readLoop() {
	defer c.wg.Done()

	reconnectDelay := c.config.ReconnectDelay

	for {
		select {
		case <-c.done:
			return
		default:
		}

		c.connMu.Lock()
		conn := c.conn
		c.connMu.Unlock()

		if conn == nil {
			select {
			case <-c.done:
				return
			case <-time.After(100 * time.Millisecond):
				continue
			}
		}

		conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))

		_, message, err := conn.ReadMessage()
		if err != nil {
			if c.closed.Load() {
				return
			}

			if !c.reconnecting.Swap(true) {
				go c.reconnect(reconnectDelay)
			}

			reconnectDelay = reconnectDelay * 2
			if reconnectDelay > c.config.MaxReconnectDelay {
				reconnectDelay = c.config.MaxReconnectDelay
			}

			select {
			case <-c.done:
				return
			case <-time.After(100 * time.Millisecond):
				continue
			}
		}

		// Reset delay on successful read
		reconnectDelay = c.config.ReconnectDelay

		c.handleMessage(message)
	}
}

// handleMessage decodes one price update and hands it to the handler.
// Unknown or malformed messages are dropped.
func (c *Client) handleMessage(message []byte) {
	var update PriceUpdate
	if err := json.Unmarshal(message, &update); err != nil {
		c.logger.Printf("drop malformed feed message: %v", err)
		return
	}
	if update.Pool == "" || update.Price <= 0 {
		return
	}
	c.handler(update)
}

// reconnect attempts to reconnect and resubscribe.
func (c *Client) reconnect(delay time.Duration) {
	defer c.reconnecting.Store(false)

	if c.closed.Load() {
		return
	}

	select {
	case <-c.done:
		return
	case <-time.After(delay):
	}

	c.connMu.Lock()
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.connMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := c.connect(ctx); err != nil {
		c.logger.Printf("reconnect failed: %v", err)
		return
	}

	if c.config.OnReconnect != nil {
		c.config.OnReconnect()
	}
	c.resubscribe()
}

// resubscribe resends the full pool set after reconnect.
func (c *Client) resubscribe() {
	c.poolsMu.RLock()
	pools := make([]string, 0, len(c.pools))
	for p := range c.pools {
		pools = append(pools, p)
	}
	c.poolsMu.RUnlock()

	if len(pools) == 0 {
		return
	}
	if err := c.writeJSON(subscribeMsg{Op: "subscribe", Pools: pools}); err != nil {
		c.logger.Printf("resubscribe failed: %v", err)
	}
}

// pingLoop sends ping frames to keep the connection alive.
func (c *Client) pingLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.connMu.Lock()
			if c.conn != nil {
				c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
				if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					c.logger.Printf("ping failed: %v", err)
				}
			}
			c.connMu.Unlock()
		}
	}
}

// Close shuts down the client and waits for its goroutines.
func (c *Client) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	close(c.done)

	c.connMu.Lock()
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.connMu.Unlock()

	c.wg.Wait()
	return nil
}
