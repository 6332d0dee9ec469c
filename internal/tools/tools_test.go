package tools

import (
	"context"
	"errors"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leonardcser/web-offline/internal/logger"
	"github.com/leonardcser/web-offline/internal/push"
	"github.com/leonardcser/web-offline/internal/queue"
	"github.com/leonardcser/web-offline/internal/worker"
)

func TestMain(m *testing.M) {
	logger.UseNop()
	m.Run()
}

func call(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func text(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	tc, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return tc.Text
}

type fakeSyncer struct {
	res queue.ReplayResult
	err error
	tag string
}

func (f *fakeSyncer) Sync(_ context.Context, tag string, _ queue.Deliverer) (queue.ReplayResult, error) {
	f.tag = tag
	return f.res, f.err
}

func TestSyncHandler(t *testing.T) {
	s := &fakeSyncer{res: queue.ReplayResult{Queue: queue.Contact, Delivered: 2, Failed: 1}}
	h := SyncHandler(s, queue.DeliverFunc(func(context.Context, queue.Submission) error { return nil }))

	res, err := h(context.Background(), call(map[string]any{"tag": "contact-form-sync"}))
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.Equal(t, "Queue contact: 2 delivered, 1 still queued.", text(t, res))
	assert.Equal(t, "contact-form-sync", s.tag)
}

func TestSyncHandler_Errors(t *testing.T) {
	s := &fakeSyncer{err: errors.New("queue: unknown sync tag: x")}
	h := SyncHandler(s, nil)

	res, err := h(context.Background(), call(map[string]any{}))
	require.NoError(t, err)
	assert.True(t, res.IsError)

	res, err = h(context.Background(), call(map[string]any{"tag": "x"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, text(t, res), "unknown sync tag")
}

func TestFormatReplay_Empty(t *testing.T) {
	assert.Equal(t, "Queue registration is empty.", formatReplay(queue.ReplayResult{Queue: queue.Registration}))
}

func TestPushAndClickHandlers(t *testing.T) {
	center := push.NewCenter("Excellence Academy Ghana", "New update from Excellence Academy")

	res, err := PushHandler(center)(context.Background(), call(map[string]any{"payload": "Open day on Saturday"}))
	require.NoError(t, err)
	assert.Equal(t, "Excellence Academy Ghana\nOpen day on Saturday\nActions: [View] [Dismiss]", text(t, res))

	res, err = NotificationClickHandler(center)(context.Background(), call(map[string]any{"action": "view"}))
	require.NoError(t, err)
	assert.Equal(t, "Notification closed. Open /", text(t, res))

	res, err = NotificationClickHandler(center)(context.Background(), call(map[string]any{"action": "dismiss"}))
	require.NoError(t, err)
	assert.Equal(t, "Notification closed.", text(t, res))
}

func TestCacheStatusHandler_Uncontrolled(t *testing.T) {
	res, err := CacheStatusHandler(&worker.Registration{})(context.Background(), call(nil))
	require.NoError(t, err)
	assert.Equal(t, "State: uncontrolled", text(t, res))
}

func TestFormatStatus(t *testing.T) {
	got := formatStatus(worker.Status{
		State:      "activated",
		Static:     "excellence-academy-static-v1",
		Dynamic:    "excellence-academy-dynamic-v1",
		Partitions: []string{"excellence-academy-dynamic-v1", "excellence-academy-static-v1"},
		Entries:    map[string]int{"excellence-academy-dynamic-v1": 3, "excellence-academy-static-v1": 9},
	})
	assert.Equal(t, "State: activated\nStatic: excellence-academy-static-v1\nDynamic: excellence-academy-dynamic-v1\nPartitions:\n- excellence-academy-dynamic-v1 (3 entries)\n- excellence-academy-static-v1 (9 entries)", got)
}
