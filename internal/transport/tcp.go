package transport

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

var (
	errClientNotActive = errors.New("tcp client not active")
	errClientStopped   = errors.New("tcp client stopped")
	errNoConnection    = errors.New("tcp connection not established")
)

// pendingResponse is what the reader goroutine delivers back to a
// waiting SendRequest: exactly one of result or rpcErr is set.
type pendingResponse struct {
	result json.RawMessage
	rpcErr *RPCError
}

type tcpClient struct {
	config ClientConfig
	conn   net.Conn

	mu     sync.RWMutex
	active int32

	requests  map[string]chan pendingResponse
	requestMu sync.RWMutex
	nextID    int64

	reader *bufio.Reader
	writer *bufio.Writer

	ctx    context.Context
	cancel context.CancelFunc

	dialTimeout  time.Duration
	writeTimeout time.Duration
}

func newTCPClient(config ClientConfig) (*tcpClient, error) {
	if config.Address == "" {
		return nil, fmt.Errorf("asset service address not specified")
	}

	dialTimeout := config.DialTimeout
	if dialTimeout <= 0 {
		dialTimeout = 10 * time.Second
	}

	return &tcpClient{
		config:       config,
		requests:     make(map[string]chan pendingResponse),
		dialTimeout:  dialTimeout,
		writeTimeout: 10 * time.Second,
	}, nil
}

func (c *tcpClient) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if atomic.LoadInt32(&c.active) != 0 {
		return fmt.Errorf("tcp client already active")
	}

	c.ctx, c.cancel = context.WithCancel(ctx)

	address, err := c.parseAddress()
	if err != nil {
		return fmt.Errorf("failed to parse asset service address: %w", err)
	}

	conn, err := net.DialTimeout("tcp", address, c.dialTimeout)
	if err != nil {
		return fmt.Errorf("failed to connect to asset service at %s: %w", address, err)
	}

	c.conn = conn
	c.reader = bufio.NewReader(conn)
	c.writer = bufio.NewWriter(conn)

	atomic.StoreInt32(&c.active, 1)

	go c.handleMessages()

	return nil
}

func (c *tcpClient) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if atomic.LoadInt32(&c.active) == 0 {
		return nil
	}

	if c.cancel != nil {
		c.cancel()
	}

	if c.conn != nil {
		_ = c.conn.Close()
	}

	c.requestMu.Lock()
	for id, ch := range c.requests {
		close(ch)
		delete(c.requests, id)
	}
	c.requestMu.Unlock()

	atomic.StoreInt32(&c.active, 0)

	return nil
}

func (c *tcpClient) SendRequest(ctx context.Context, method string, params interface{}) (json.RawMessage, error) {
	if atomic.LoadInt32(&c.active) == 0 {
		return nil, errClientNotActive
	}

	id := c.generateRequestID()

	respCh := make(chan pendingResponse, 1)

	c.requestMu.Lock()
	c.requests[id] = respCh
	c.requestMu.Unlock()

	defer func() {
		c.requestMu.Lock()
		delete(c.requests, id)
		c.requestMu.Unlock()
	}()

	request := JSONRPCMessage{
		JSONRPC: JSONRPCVersion,
		ID:      id,
		Method:  method,
		Params:  params,
	}

	if err := c.sendMessage(request); err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	select {
	case response, ok := <-respCh:
		if !ok {
			return nil, errClientStopped
		}
		if response.rpcErr != nil {
			return nil, response.rpcErr
		}
		return response.result, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-c.ctx.Done():
		return nil, errClientStopped
	}
}

func (c *tcpClient) SendNotification(ctx context.Context, method string, params interface{}) error {
	if atomic.LoadInt32(&c.active) == 0 {
		return errClientNotActive
	}

	notification := JSONRPCMessage{
		JSONRPC: JSONRPCVersion,
		Method:  method,
		Params:  params,
	}

	if err := c.sendMessage(notification); err != nil {
		return fmt.Errorf("failed to send notification: %w", err)
	}

	return nil
}

func (c *tcpClient) IsActive() bool {
	return atomic.LoadInt32(&c.active) != 0
}

func (c *tcpClient) parseAddress() (string, error) {
	address := c.config.Address

	if _, err := strconv.Atoi(address); err == nil {
		address = "localhost:" + address
	}

	if !strings.Contains(address, ":") {
		return "", fmt.Errorf("invalid address format: %s (expected host:port)", address)
	}

	return address, nil
}

func (c *tcpClient) generateRequestID() string {
	id := atomic.AddInt64(&c.nextID, 1)
	return strconv.FormatInt(id, 10)
}

func (c *tcpClient) sendMessage(msg JSONRPCMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.writer == nil {
		return errNoConnection
	}

	if c.conn != nil {
		if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
			return fmt.Errorf("failed to set write deadline: %w", err)
		}
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	message := fmt.Sprintf(protocolHeaderFormat, len(data), string(data))

	if _, err := c.writer.WriteString(message); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}

	if err := c.writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush message: %w", err)
	}

	return nil
}

func (c *tcpClient) handleMessages() {
	defer func() {
		atomic.StoreInt32(&c.active, 0)
		if c.cancel != nil {
			c.cancel()
		}
	}()

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
			msg, err := c.readMessage()
			if err != nil {
				// EOF and post-Stop read errors both end the
				// connection; pending requests fail via c.ctx.
				return
			}

			c.handleMessage(msg)
		}
	}
}

func (c *tcpClient) readMessage() (*JSONRPCMessage, error) {
	c.mu.RLock()
	reader := c.reader
	c.mu.RUnlock()

	if reader == nil {
		return nil, errNoConnection
	}

	contentLength := 0
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			return nil, fmt.Errorf("failed to read header: %w", err)
		}

		line = strings.TrimSpace(line)
		if line == "" {
			break
		}

		if strings.HasPrefix(line, protocolContentLength) {
			lengthStr := strings.TrimSpace(strings.TrimPrefix(line, protocolContentLength))
			contentLength, err = strconv.Atoi(lengthStr)
			if err != nil {
				return nil, fmt.Errorf("invalid Content-Length: %s", lengthStr)
			}
		}
	}

	if contentLength == 0 {
		return nil, fmt.Errorf("missing Content-Length header")
	}

	body := make([]byte, contentLength)
	if _, err := io.ReadFull(reader, body); err != nil {
		return nil, fmt.Errorf("failed to read message body: %w", err)
	}

	var msg JSONRPCMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return nil, fmt.Errorf("failed to parse JSON-RPC message: %w", err)
	}

	return &msg, nil
}

func (c *tcpClient) handleMessage(msg *JSONRPCMessage) {
	if msg.ID == nil {
		return
	}

	idStr := fmt.Sprintf("%v", msg.ID)

	// Holding the read lock across the send keeps Stop's close of the
	// channel (done under the write lock) from racing with it.
	c.requestMu.RLock()
	defer c.requestMu.RUnlock()

	respCh, exists := c.requests[idStr]
	if !exists {
		return
	}

	select {
	case respCh <- pendingResponse{result: msg.Result, rpcErr: msg.Error}:
	default:
	}
}
