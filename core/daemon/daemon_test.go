package daemon

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yantra-mind/memoryd/core/config"
	"github.com/yantra-mind/memoryd/core/engine"
)

func TestSocketPathIsDeterministic(t *testing.T) {
	a := SocketPath("/var/lib/memoryd/store")
	b := SocketPath("/var/lib/memoryd/store")
	assert.Equal(t, a, b)
	assert.Contains(t, a, "memoryd-")
	assert.Contains(t, a, ".sock")

	other := SocketPath("/var/lib/memoryd/other-store")
	assert.NotEqual(t, a, other)
}

func TestDJB2KnownValues(t *testing.T) {
	// h = 5381, then h = h*33 + c per byte.
	assert.Equal(t, uint32(5381), djb2(""))
	assert.Equal(t, uint32(5381*33+'a'), djb2("a"))
}

func TestDaemonServesJSONRPCOverSocket(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Defaults()
	cfg.StorePath = filepath.Join(dir, "memoryd")

	eng, err := engine.New(cfg, engine.Options{})
	require.NoError(t, err)

	socket := filepath.Join(dir, "d.sock")
	d := New(eng, Options{Socket: socket, MaxWait: 5 * time.Second})

	served := make(chan error, 1)
	go func() { served <- d.Serve(context.Background()) }()

	// Wait for the listener to come up.
	var client *Client
	require.Eventually(t, func() bool {
		c, err := Dial(cfg.StorePath, socket, time.Second)
		if err != nil {
			return false
		}
		client = c
		return true
	}, 5*time.Second, 20*time.Millisecond)
	defer client.Close()

	var init map[string]any
	require.NoError(t, client.Call("initialize", nil, &init))
	assert.Equal(t, "memoryd", init["server"])

	var listing struct {
		Tools []map[string]any `json:"tools"`
	}
	require.NoError(t, client.Call("tools/list", nil, &listing))
	assert.NotEmpty(t, listing.Tools)

	var node map[string]any
	require.NoError(t, client.CallTool("observe", map[string]any{
		"text": "sockets carry frames",
		"tags": []string{"transport"},
	}, &node))
	require.NotEmpty(t, node["id"])

	var results []map[string]any
	require.NoError(t, client.CallTool("recall", map[string]any{
		"query": "sockets", "mode": "sparse",
	}, &results))
	require.NotEmpty(t, results)
	assert.Equal(t, node["id"], results[0]["id"])

	// Unknown tool surfaces the tool_not_found code, not a dead
	// connection.
	err = client.CallTool("no_such_tool", nil, nil)
	require.Error(t, err)

	require.NoError(t, client.Call("shutdown", nil, nil))

	select {
	case err := <-served:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("daemon did not stop after shutdown request")
	}
}

func TestSecondDaemonOnSameStoreIsRejected(t *testing.T) {
	dir := t.TempDir()
	lockPath := filepath.Join(dir, "memoryd.lock")

	first, err := acquireLock(lockPath)
	require.NoError(t, err)
	defer first.Close()

	_, err = acquireLock(lockPath)
	assert.Error(t, err)
}
