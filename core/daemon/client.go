package daemon

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/yantra-mind/memoryd/core/apperr"
)

// Client is the thin connection the CLI front-end uses to talk to a
// running daemon: one socket, sequential request ids, newline framing.
type Client struct {
	conn net.Conn
	r    *bufio.Reader
	seq  int64
}

// Dial connects to the daemon socket for the given store path (or an
// explicit socket path when non-empty).
func Dial(storePath, socket string, timeout time.Duration) (*Client, error) {
	if socket == "" {
		socket = SocketPath(storePath)
	}
	conn, err := net.DialTimeout("unix", socket, timeout)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindTransport, err, "dial %s", socket)
	}
	return &Client{conn: conn, r: bufio.NewReaderSize(conn, 64<<10)}, nil
}

// Close closes the connection.
func (c *Client) Close() error { return c.conn.Close() }

// Call sends one request and decodes the matching response's result into
// out (skipped when out is nil).
func (c *Client) Call(method string, params any, out any) error {
	c.seq++
	id := json.RawMessage(fmt.Sprintf("%d", c.seq))

	var rawParams json.RawMessage
	if params != nil {
		data, err := json.Marshal(params)
		if err != nil {
			return apperr.Wrap(apperr.KindTransport, err, "encode params")
		}
		rawParams = data
	}
	frame, err := json.Marshal(request{JSONRPC: "2.0", ID: id, Method: method, Params: rawParams})
	if err != nil {
		return apperr.Wrap(apperr.KindTransport, err, "encode request")
	}
	frame = append(frame, '\n')
	if _, err := c.conn.Write(frame); err != nil {
		return apperr.Wrap(apperr.KindTransport, err, "write request")
	}

	line, err := c.r.ReadBytes('\n')
	if err != nil {
		return apperr.Wrap(apperr.KindTransport, err, "read response")
	}
	var resp struct {
		Result json.RawMessage `json:"result"`
		Error  *rpcError       `json:"error"`
	}
	if err := json.Unmarshal(line, &resp); err != nil {
		return apperr.Wrap(apperr.KindTransport, err, "decode response")
	}
	if resp.Error != nil {
		return apperr.New(apperr.KindStore, "%s (code %d)", resp.Error.Message, resp.Error.Code)
	}
	if out != nil && len(resp.Result) > 0 {
		if err := json.Unmarshal(resp.Result, out); err != nil {
			return apperr.Wrap(apperr.KindTransport, err, "decode result")
		}
	}
	return nil
}

// CallTool wraps Call for the tools/call method.
func (c *Client) CallTool(name string, args map[string]any, out any) error {
	return c.Call("tools/call", map[string]any{"name": name, "arguments": args}, out)
}
