package websocket

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingConn captures written frames in place of a live connection.
type recordingConn struct {
	mu       sync.Mutex
	messages [][]byte
}

func (c *recordingConn) WriteMessage(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, append([]byte(nil), data...))
	return nil
}

func (c *recordingConn) Close() error { return nil }

func (c *recordingConn) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.messages)
}

func (c *recordingConn) message(i int) []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.messages[i]
}

func TestPublishNeverBlocks(t *testing.T) {
	h := NewHub()

	// Nobody is draining the hub; publishing past the buffer must
	// drop events instead of hanging the request handler.
	for i := 0; i < cap(h.Broadcast)*2; i++ {
		h.Publish(Event{Type: "task.updated", TaskID: i, UserID: 1})
	}

	assert.Equal(t, cap(h.Broadcast), len(h.Broadcast))
}

// Events must only reach connections owned by the event's user.
func TestRunRoutesEventsPerUser(t *testing.T) {
	h := NewHub()
	go h.Run()

	connA := &recordingConn{}
	connB := &recordingConn{}
	h.Register <- &Client{Conn: connA, UserID: 1}
	h.Register <- &Client{Conn: connB, UserID: 2}

	h.Publish(Event{Type: "task.updated", TaskID: 5, UserID: 1})
	h.Publish(Event{Type: "task.created", TaskID: 9, UserID: 2})

	// Events are processed in order, so once B has its event the first
	// one has been fully fanned out.
	require.Eventually(t, func() bool { return connB.count() == 1 }, time.Second, 10*time.Millisecond)

	require.Equal(t, 1, connA.count())

	var event Event
	require.NoError(t, json.Unmarshal(connA.message(0), &event))
	assert.Equal(t, "task.updated", event.Type)
	assert.Equal(t, 5, event.TaskID)

	require.NoError(t, json.Unmarshal(connB.message(0), &event))
	assert.Equal(t, "task.created", event.Type)
	assert.Equal(t, 9, event.TaskID)
}

func TestEventWireFormat(t *testing.T) {
	payload, err := json.Marshal(Event{Type: "task.created", TaskID: 12, UserID: 3})
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(payload, &decoded))

	assert.Equal(t, "task.created", decoded["type"])
	assert.Equal(t, float64(12), decoded["task_id"])

	// Routing metadata stays off the wire, zero IDs are omitted
	assert.NotContains(t, decoded, "user_id")
	assert.NotContains(t, decoded, "category_id")
}
