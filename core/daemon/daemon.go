// Package daemon serves the memory engine over a local Unix-domain
// stream socket speaking newline-delimited JSON-RPC 2.0. One daemon owns
// one store, enforced by an exclusive lock file next to the store.
package daemon

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/dgryski/go-rendezvous"
	"github.com/rs/zerolog"
	"github.com/zeebo/xxh3"

	"github.com/yantra-mind/memoryd/core/engine"
	"github.com/yantra-mind/memoryd/core/logging"
)

// maxFrameBytes bounds one request line; anything longer is a transport
// error and closes the connection.
const maxFrameBytes = 4 << 20

// workerCount is the size of the I/O worker pool. Each connection is
// pinned to one worker, so requests from a single client execute in the
// order they arrived while separate clients proceed in parallel.
const workerCount = 4

// Options configures a Daemon.
type Options struct {
	// Socket overrides the derived socket path.
	Socket string
	// MaxWait is the soft upper bound on work per request.
	MaxWait time.Duration
}

// Daemon accepts connections and dispatches JSON-RPC requests to engine
// operations.
type Daemon struct {
	engine   *engine.Engine
	registry *registry
	log      zerolog.Logger

	socketPath string
	maxWait    time.Duration

	lock     *fileLock
	listener net.Listener

	hash    *rendezvous.Rendezvous
	workers map[string]chan func()

	mu       sync.Mutex
	shutdown chan struct{}
	closed   bool
}

// New builds a Daemon over an already-constructed engine. The socket path
// defaults to the deterministic derivation from the store path.
func New(e *engine.Engine, opts Options) *Daemon {
	socketPath := opts.Socket
	if socketPath == "" {
		socketPath = SocketPath(e.Store().Path())
	}

	names := make([]string, workerCount)
	workers := make(map[string]chan func(), workerCount)
	for i := range names {
		name := "w" + strconv.Itoa(i)
		names[i] = name
		workers[name] = make(chan func(), 64)
	}

	return &Daemon{
		engine:     e,
		registry:   newRegistry(),
		log:        logging.For("daemon"),
		socketPath: socketPath,
		maxWait:    opts.MaxWait,
		hash:       rendezvous.New(names, xxh3.HashString),
		workers:    workers,
		shutdown:   make(chan struct{}),
	}
}

// SocketPathInUse returns the socket path this daemon listens on.
func (d *Daemon) SocketPathInUse() string {
	return d.socketPath
}

// Serve acquires the store lock, binds the socket, starts the engine's
// background dynamics, and blocks in the accept loop until ctx is
// cancelled or a shutdown request arrives. On return the engine has been
// checkpointed and closed.
func (d *Daemon) Serve(ctx context.Context) error {
	lock, err := acquireLock(d.engine.Store().Path() + ".lock")
	if err != nil {
		return err
	}
	d.lock = lock

	_ = os.Remove(d.socketPath)
	listener, err := net.Listen("unix", d.socketPath)
	if err != nil {
		_ = lock.Close()
		return fmt.Errorf("listen %s: %w", d.socketPath, err)
	}
	if err := os.Chmod(d.socketPath, 0o600); err != nil {
		listener.Close()
		_ = lock.Close()
		return fmt.Errorf("chmod %s: %w", d.socketPath, err)
	}
	d.listener = listener

	d.registerDefaultTools()
	d.engine.Start(ctx)

	serveCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	for _, ch := range d.workers {
		wg.Add(1)
		go func(jobs chan func()) {
			defer wg.Done()
			for {
				select {
				case <-serveCtx.Done():
					return
				case job := <-jobs:
					job()
				}
			}
		}(ch)
	}

	go func() {
		select {
		case <-ctx.Done():
		case <-d.shutdown:
		}
		cancel()
		d.listener.Close()
	}()

	d.log.Info().Str("socket", d.socketPath).Msg("daemon listening")

	connSeq := 0
	for {
		conn, err := listener.Accept()
		if err != nil {
			break // listener closed by shutdown path
		}
		if !peerAllowed(conn) {
			d.log.Warn().Msg("rejecting connection from another user")
			conn.Close()
			continue
		}
		connSeq++
		worker := d.workers[d.hash.Lookup("conn-"+strconv.Itoa(connSeq))]
		go d.handleConn(serveCtx, conn, worker)
	}

	cancel()
	wg.Wait()
	_ = os.Remove(d.socketPath)

	err = d.engine.Stop()
	_ = d.lock.Close()
	d.log.Info().Msg("daemon stopped")
	return err
}

// RequestShutdown asks the serve loop to stop; idempotent.
func (d *Daemon) RequestShutdown() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.closed {
		d.closed = true
		close(d.shutdown)
	}
}

// handleConn reads newline-delimited request frames and submits each to
// the connection's worker. Submission order equals execution order, so a
// client's own operations stay causally ordered.
func (d *Daemon) handleConn(ctx context.Context, conn net.Conn, worker chan func()) {
	defer conn.Close()

	var writeMu sync.Mutex
	write := func(resp response) {
		writeMu.Lock()
		defer writeMu.Unlock()
		data, err := json.Marshal(resp)
		if err != nil {
			return
		}
		data = append(data, '\n')
		_, _ = conn.Write(data)
	}

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 64<<10), maxFrameBytes)
	for scanner.Scan() {
		line := make([]byte, len(scanner.Bytes()))
		copy(line, scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var req request
		if err := json.Unmarshal(line, &req); err != nil {
			write(errResponse(nil, codeParseError, "parse error", nil))
			return // malformed frame: reply and close
		}
		if req.JSONRPC != "2.0" || req.Method == "" {
			write(errResponse(req.ID, codeInvalidRequest, "invalid request", nil))
			return
		}

		done := make(chan struct{})
		job := func() {
			defer close(done)
			write(d.dispatch(ctx, req))
			if req.Method == "shutdown" {
				// Reply first, then stop the serve loop.
				d.RequestShutdown()
			}
		}
		select {
		case <-ctx.Done():
			return
		case worker <- job:
		}
		select {
		case <-ctx.Done():
			return
		case <-done:
		}
	}
}

// dispatch routes one request frame to its method handler.
func (d *Daemon) dispatch(ctx context.Context, req request) response {
	switch req.Method {
	case "initialize":
		return okResponse(req.ID, map[string]any{
			"server":  "memoryd",
			"version": "1",
			"store":   d.engine.Store().Path(),
		})

	case "tools/list":
		return okResponse(req.ID, map[string]any{"tools": d.registry.list()})

	case "tools/call":
		var params struct {
			Name      string         `json:"name"`
			Arguments map[string]any `json:"arguments"`
		}
		if len(req.Params) > 0 {
			if err := json.Unmarshal(req.Params, &params); err != nil {
				return errResponse(req.ID, codeInvalidParams, "invalid params", nil)
			}
		}
		if params.Name == "" {
			return errResponse(req.ID, codeInvalidParams, "tool name is required", nil)
		}
		if _, ok := d.registry.handler(params.Name); !ok {
			return errResponse(req.ID, codeMethodNotFound, "unknown tool "+params.Name,
				map[string]any{"code": toolErrNotFound})
		}
		result, err := d.callTool(ctx, params.Name, params.Arguments)
		if err != nil {
			return errResponse(req.ID, codeInternalError, err.Error(),
				map[string]any{"code": toolErrorCode(err)})
		}
		return okResponse(req.ID, result)

	case "shutdown":
		return okResponse(req.ID, map[string]any{"stopping": true})

	default:
		return errResponse(req.ID, codeMethodNotFound, "unknown method "+req.Method, nil)
	}
}
