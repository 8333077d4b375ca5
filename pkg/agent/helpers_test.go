package agent

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/harun/aphelion/pkg/gateway"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockGateway struct {
	mock.Mock
}

func (m *mockGateway) SearchTools(ctx context.Context, query string) (*gateway.SearchResult, error) {
	args := m.Called(ctx, query)
	result, _ := args.Get(0).(*gateway.SearchResult)
	return result, args.Error(1)
}

func (m *mockGateway) RunTool(ctx context.Context, name string, params map[string]interface{}) (map[string]interface{}, error) {
	args := m.Called(ctx, name, params)
	result, _ := args.Get(0).(map[string]interface{})
	return result, args.Error(1)
}

func (m *mockGateway) SaveMemory(ctx context.Context, summary string, content map[string]interface{}) error {
	args := m.Called(ctx, summary, content)
	return args.Error(0)
}

type fakeClock struct {
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

// logEntries decodes zerolog JSON lines captured in buf
func logEntries(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var entries []map[string]interface{}
	scanner := bufio.NewScanner(bytes.NewReader(buf.Bytes()))
	for scanner.Scan() {
		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &entry))
		entries = append(entries, entry)
	}
	require.NoError(t, scanner.Err())
	return entries
}

func countEntries(entries []map[string]interface{}, key, value string) int {
	n := 0
	for _, e := range entries {
		if v, ok := e[key].(string); ok && v == value {
			n++
		}
	}
	return n
}
