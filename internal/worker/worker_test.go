package worker

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aescanero/dago-node-template/internal/config"
	"github.com/aescanero/dago-node-template/internal/edit"
	"github.com/aescanero/dago-node-template/internal/markup"
	"github.com/aescanero/dago-node-template/internal/store"
)

const infobox = `{"title":"Infobox","params":[
	{"name":"1","index":true,"value":"x"},
	{"name":"name","value":"old"}
]}`

func testConfig() *config.Config {
	return &config.Config{
		WorkerID:        "test-1",
		StreamKey:       "template.edit",
		ConsumerGroup:   "template-workers",
		ResultStream:    "template.rebuilt",
		BlockTime:       50 * time.Millisecond,
		MaxNestingDepth: 8,
	}
}

type fixture struct {
	worker *Worker
	client *redis.Client
	store  *store.RedisStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	logger := zap.NewNop()
	templates := store.NewRedisStore(client, logger)
	w := NewWorker(testConfig(), client, edit.NewEditor(logger), templates, logger)
	require.NoError(t, w.ensureConsumerGroup())

	return &fixture{worker: w, client: client, store: templates}
}

func message(t *testing.T, id string, request map[string]interface{}) redis.XMessage {
	t.Helper()
	data, err := json.Marshal(request)
	require.NoError(t, err)
	return redis.XMessage{ID: id, Values: map[string]interface{}{"data": string(data)}}
}

func lastEvent(t *testing.T, client *redis.Client, stream string) map[string]interface{} {
	t.Helper()
	entries, err := client.XRange(context.Background(), stream, "-", "+").Result()
	require.NoError(t, err)
	require.NotEmpty(t, entries)

	var event map[string]interface{}
	raw, ok := entries[len(entries)-1].Values["data"].(string)
	require.True(t, ok)
	require.NoError(t, json.Unmarshal([]byte(raw), &event))
	return event
}

// deepTemplate nests depth templates through a single index parameter
func deepTemplate(depth int) string {
	if depth <= 1 {
		return `{"title":"leaf"}`
	}
	return `{"title":"t","params":[{"name":"1","index":true,"value":[` + deepTemplate(depth-1) + `]}]}`
}

func setNamePlan() map[string]interface{} {
	return map[string]interface{}{
		"steps": []map[string]interface{}{
			{"op": "set", "name": "name", "value": "new"},
			{"op": "add", "name": "width", "value": "100px"},
		},
	}
}

func TestHandleInlineTemplate(t *testing.T) {
	f := newFixture(t)

	f.worker.handleMessage(context.Background(), message(t, "1-0", map[string]interface{}{
		"request_id": "req-1",
		"template":   json.RawMessage(infobox),
		"plan":       setNamePlan(),
	}))

	event := lastEvent(t, f.client, "template.rebuilt")
	assert.Equal(t, "req-1", event["request_id"])
	assert.Equal(t, "{{Infobox|x|name=new|width=100px}}", event["rebuilt"])
	assert.Equal(t, "strict", event["mode"])
	assert.EqualValues(t, 2, event["applied"])
	assert.Equal(t, Stats{Processed: 1}, f.worker.Stats())
}

func TestHandleStoredTemplate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tmpl, err := markup.Decode([]byte(infobox), 0)
	require.NoError(t, err)
	require.NoError(t, f.store.Save(ctx, "page-9", tmpl))

	f.worker.handleMessage(ctx, message(t, "1-0", map[string]interface{}{
		"request_id":  "req-2",
		"template_id": "page-9",
		"plan":        setNamePlan(),
		"persist":     true,
	}))

	event := lastEvent(t, f.client, "template.rebuilt")
	assert.Equal(t, "page-9", event["template_id"])

	saved, err := f.store.Load(ctx, "page-9")
	require.NoError(t, err)
	assert.Equal(t, "{{Infobox|x|name=new|width=100px}}", saved.Rebuild())
}

func TestHandleFailuresPublishErrors(t *testing.T) {
	tests := []struct {
		name    string
		message redis.XMessage
	}{
		{
			name:    "missing data",
			message: redis.XMessage{ID: "1-0", Values: map[string]interface{}{}},
		},
		{
			name:    "no template",
			message: message(t, "1-0", map[string]interface{}{"request_id": "r", "plan": setNamePlan()}),
		},
		{
			name: "persist without id",
			message: message(t, "1-0", map[string]interface{}{
				"request_id": "r",
				"template":   json.RawMessage(infobox),
				"plan":       setNamePlan(),
				"persist":    true,
			}),
		},
		{
			name: "unknown template id",
			message: message(t, "1-0", map[string]interface{}{
				"request_id":  "r",
				"template_id": "missing",
				"plan":        setNamePlan(),
			}),
		},
		{
			name: "strict step failure",
			message: message(t, "1-0", map[string]interface{}{
				"request_id": "r",
				"template":   json.RawMessage(infobox),
				"plan": map[string]interface{}{
					"steps": []map[string]interface{}{{"op": "str_replace", "search": "x", "replace": "y"}},
				},
			}),
		},
		{
			name: "too deep",
			message: message(t, "1-0", map[string]interface{}{
				"request_id": "r",
				"template":   json.RawMessage(deepTemplate(9)),
				"plan":       setNamePlan(),
			}),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.worker.handleMessage(context.Background(), tt.message)

			event := lastEvent(t, f.client, "template.rebuilt.errors")
			assert.Equal(t, "1-0", event["message_id"])
			assert.NotEmpty(t, event["error"])
			assert.Equal(t, Stats{Failed: 1}, f.worker.Stats())

			n, err := f.client.XLen(context.Background(), "template.rebuilt").Result()
			require.NoError(t, err)
			assert.Zero(t, n)
		})
	}
}

func TestLenientPlanPublishesOutcomes(t *testing.T) {
	f := newFixture(t)

	f.worker.handleMessage(context.Background(), message(t, "1-0", map[string]interface{}{
		"request_id": "req-3",
		"template":   json.RawMessage(infobox),
		"plan": map[string]interface{}{
			"mode": "lenient",
			"steps": []map[string]interface{}{
				{"op": "str_replace", "search": "x", "replace": "y"},
				{"op": "set_title", "title": "Box"},
			},
		},
	}))

	event := lastEvent(t, f.client, "template.rebuilt")
	assert.Equal(t, "{{Box|x|name=old}}", event["rebuilt"])
	assert.EqualValues(t, 1, event["failed"])
	assert.EqualValues(t, 1, event["applied"])

	steps, ok := event["steps"].([]interface{})
	require.True(t, ok)
	require.Len(t, steps, 2)
	assert.Equal(t, "failed", steps[0].(map[string]interface{})["status"])
}

func TestStartStopConsumesStream(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.Error(t, f.worker.Probe(ctx))
	require.NoError(t, f.worker.Start())
	require.NoError(t, f.worker.Probe(ctx))

	data, err := json.Marshal(map[string]interface{}{
		"request_id": "req-4",
		"template":   json.RawMessage(infobox),
		"plan":       setNamePlan(),
	})
	require.NoError(t, err)
	require.NoError(t, f.client.XAdd(ctx, &redis.XAddArgs{
		Stream: "template.edit",
		Values: map[string]interface{}{"data": string(data)},
	}).Err())

	assert.Eventually(t, func() bool {
		return f.worker.Stats().Processed == 1
	}, 2*time.Second, 20*time.Millisecond)

	stopCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	require.NoError(t, f.worker.Stop(stopCtx))
	assert.Error(t, f.worker.Probe(ctx))

	pending, err := f.client.XPending(ctx, "template.edit", "template-workers").Result()
	require.NoError(t, err)
	assert.Zero(t, pending.Count)
}

func TestEnsureConsumerGroupIsIdempotent(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.worker.ensureConsumerGroup())
}
