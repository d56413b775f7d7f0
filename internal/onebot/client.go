// Package onebot is a minimal OneBot v11 forward WebSocket client: it issues
// echo-correlated actions and delivers inbound message events.
package onebot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
)

// Client defaults.
const (
	DefaultTimeout           = 8 * time.Second
	DefaultReconnectInterval = 5 * time.Second
	DefaultEventBuffer       = 64
	handshakeTimeout         = 10 * time.Second
)

// Errors returned by Client.
var (
	ErrNotConnected = errors.New("onebot websocket not connected")
	ErrClosed       = errors.New("onebot client closed")
	ErrNoURL        = errors.New("onebot ws_url not configured")
)

// Options configures a Client.
type Options struct {
	URL               string
	AccessToken       string
	Timeout           time.Duration
	ReconnectInterval time.Duration
	EventBuffer       int
	Logger            zerolog.Logger
}

// Client is safe for concurrent use once started.
type Client struct {
	opts Options
	log  zerolog.Logger

	mu   sync.Mutex
	conn *websocket.Conn

	writeMu sync.Mutex
	echoSeq atomic.Int64

	waitMu  sync.Mutex
	waiters map[string]chan gjson.Result

	events    chan MessageEvent
	closeOnce sync.Once

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New returns an unstarted client.
func New(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.ReconnectInterval <= 0 {
		opts.ReconnectInterval = DefaultReconnectInterval
	}
	if opts.EventBuffer <= 0 {
		opts.EventBuffer = DefaultEventBuffer
	}

	return &Client{
		opts:    opts,
		log:     opts.Logger.With().Str("component", "onebot").Logger(),
		waiters: make(map[string]chan gjson.Result),
		events:  make(chan MessageEvent, opts.EventBuffer),
	}
}

// Start dials the endpoint and keeps the connection alive until ctx ends or
// Close is called. The first dial must succeed.
func (c *Client) Start(ctx context.Context) error {
	if c.opts.URL == "" {
		return ErrNoURL
	}
	c.ctx, c.cancel = context.WithCancel(ctx)

	if err := c.connect(); err != nil {
		c.cancel()
		return fmt.Errorf("connecting to %s: %w", c.opts.URL, err)
	}

	c.wg.Add(2)
	go c.listen()
	go c.reconnectLoop()

	c.log.Info().Str("ws_url", c.opts.URL).Msg("onebot connected")
	return nil
}

// Events delivers inbound message events. It is closed by Close.
func (c *Client) Events() <-chan MessageEvent {
	return c.events
}

// Close stops background goroutines and drops the connection.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		if c.cancel != nil {
			c.cancel()
		}
		c.dropConn()
		c.wg.Wait()
		close(c.events)
	})
	return nil
}

func (c *Client) connect() error {
	dialer := *websocket.DefaultDialer
	dialer.HandshakeTimeout = handshakeTimeout

	header := http.Header{}
	if c.opts.AccessToken != "" {
		header.Set("Authorization", "Bearer "+c.opts.AccessToken)
	}

	conn, resp, err := dialer.DialContext(c.ctx, c.opts.URL, header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	return nil
}

func (c *Client) currentConn() *websocket.Conn {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn
}

func (c *Client) dropConn() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
}

func (c *Client) reconnectLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.opts.ReconnectInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			if c.currentConn() != nil {
				continue
			}
			if err := c.connect(); err != nil {
				c.log.Warn().Err(err).Msg("reconnect failed")
				continue
			}
			c.log.Info().Msg("onebot reconnected")
			c.wg.Add(1)
			go c.listen()
		}
	}
}

func (c *Client) listen() {
	defer c.wg.Done()

	for {
		conn := c.currentConn()
		if conn == nil {
			return
		}

		_, payload, err := conn.ReadMessage()
		if err != nil {
			if c.ctx.Err() == nil {
				c.log.Warn().Err(err).Msg("websocket read failed")
			}
			c.dropConn()
			return
		}

		if echo := gjson.GetBytes(payload, "echo"); echo.Exists() && echo.String() != "" {
			c.dispatch(echo.String(), payload)
			continue
		}

		evt, ok := parseMessageEvent(payload)
		if !ok {
			continue
		}

		select {
		case c.events <- evt:
		case <-c.ctx.Done():
			return
		default:
			c.log.Warn().Int64("message_id", evt.MessageID).Msg("event buffer full, dropping message")
		}
	}
}

func (c *Client) dispatch(echo string, payload []byte) {
	c.waitMu.Lock()
	waiter := c.waiters[echo]
	c.waitMu.Unlock()
	if waiter == nil {
		return
	}

	select {
	case waiter <- gjson.ParseBytes(payload):
	default:
	}
}

type request struct {
	Action string `json:"action"`
	Params any    `json:"params"`
	Echo   string `json:"echo"`
}

// Call performs action and returns the response's data field.
func (c *Client) Call(ctx context.Context, action string, params any) (gjson.Result, error) {
	conn := c.currentConn()
	if conn == nil {
		return gjson.Result{}, ErrNotConnected
	}

	echo := action + ":" + strconv.FormatInt(c.echoSeq.Add(1), 10)
	waiter := make(chan gjson.Result, 1)

	c.waitMu.Lock()
	c.waiters[echo] = waiter
	c.waitMu.Unlock()
	defer func() {
		c.waitMu.Lock()
		delete(c.waiters, echo)
		c.waitMu.Unlock()
	}()

	payload, err := json.Marshal(request{Action: action, Params: params, Echo: echo})
	if err != nil {
		return gjson.Result{}, fmt.Errorf("encoding %s: %w", action, err)
	}

	c.writeMu.Lock()
	err = conn.WriteMessage(websocket.TextMessage, payload)
	c.writeMu.Unlock()
	if err != nil {
		return gjson.Result{}, fmt.Errorf("writing %s: %w", action, err)
	}

	timer := time.NewTimer(c.opts.Timeout)
	defer timer.Stop()

	select {
	case resp := <-waiter:
		return checkResponse(action, resp)
	case <-timer.C:
		return gjson.Result{}, fmt.Errorf("onebot %s: %w", action, context.DeadlineExceeded)
	case <-ctx.Done():
		return gjson.Result{}, ctx.Err()
	case <-c.ctx.Done():
		return gjson.Result{}, ErrClosed
	}
}

func checkResponse(action string, resp gjson.Result) (gjson.Result, error) {
	status := resp.Get("status").String()
	retcode := resp.Get("retcode").Int()
	if status == "failed" || retcode != 0 {
		msg := resp.Get("wording").String()
		if msg == "" {
			msg = resp.Get("msg").String()
		}
		return gjson.Result{}, &ActionError{Action: action, RetCode: retcode, Message: msg}
	}
	return resp.Get("data"), nil
}
