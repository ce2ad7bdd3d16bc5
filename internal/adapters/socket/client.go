package socket

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"time"
)

// Client connects to the botica daemon over a Unix socket.
type Client struct {
	sockPath string
	timeout  time.Duration
}

// NewClient creates a client that will connect to the given socket path.
func NewClient(sockPath string) *Client {
	return &Client{sockPath: sockPath, timeout: 30 * time.Second}
}

// Find sends a find request. The daemon may call the classification
// service, so the deadline is longer than for the other methods.
func (c *Client) Find(query string, keywords ...string) (*FindResult, error) {
	var result FindResult
	err := c.do(Request{ID: "1", Method: MethodFind, Params: FindParams{Query: query, Keywords: keywords}}, c.timeout, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// Catalog lists catalog rows matching params.
func (c *Client) Catalog(params CatalogParams) (*CatalogResult, error) {
	var result CatalogResult
	if err := c.do(Request{ID: "1", Method: MethodCatalog, Params: params}, 5*time.Second, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// History returns the query log.
func (c *Client) History() (*HistoryResult, error) {
	var result HistoryResult
	if err := c.do(Request{ID: "1", Method: MethodHistory}, 5*time.Second, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Truncate keeps only the newest keep history records.
func (c *Client) Truncate(keep int) (*TruncateResult, error) {
	var result TruncateResult
	if err := c.do(Request{ID: "1", Method: MethodTruncate, Params: TruncateParams{Keep: keep}}, 5*time.Second, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Health sends a health check request.
func (c *Client) Health() (*HealthResult, error) {
	var result HealthResult
	if err := c.do(Request{ID: "1", Method: MethodHealth}, 5*time.Second, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Shutdown sends a shutdown request to the daemon.
func (c *Client) Shutdown() error {
	_, err := c.callWithTimeout(Request{ID: "1", Method: MethodShutdown}, 5*time.Second)
	return err
}

// Ping checks if the daemon is reachable.
func (c *Client) Ping() bool {
	conn, err := net.DialTimeout("unix", c.sockPath, 500*time.Millisecond)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

func (c *Client) do(req Request, timeout time.Duration, out interface{}) error {
	resp, err := c.callWithTimeout(req, timeout)
	if err != nil {
		return err
	}
	if err := decodeInto(resp.Result, out); err != nil {
		return fmt.Errorf("unmarshal result: %w", err)
	}
	return nil
}

func (c *Client) callWithTimeout(req Request, timeout time.Duration) (*Response, error) {
	conn, err := net.DialTimeout("unix", c.sockPath, 2*time.Second)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	defer conn.Close()

	// Set deadline for the whole request/response
	conn.SetDeadline(time.Now().Add(timeout))

	data, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	data = append(data, '\n')
	if _, err := conn.Write(data); err != nil {
		return nil, fmt.Errorf("write: %w", err)
	}

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("read: %w", err)
		}
		return nil, fmt.Errorf("empty response")
	}

	var resp Response
	if err := json.Unmarshal(scanner.Bytes(), &resp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("server error: %s", resp.Error)
	}
	return &resp, nil
}
