package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/shoplive/backend/config"
	"github.com/shoplive/backend/internal/models"
)

// memStreamStore is an in-memory StreamStore. Like the real store it hands
// out copies, so coordinator mutations only become visible via Update*.
type memStreamStore struct {
	mu      sync.Mutex
	streams map[string]*models.Stream

	failGet      error
	failPresence error
	failStatus   error

	presenceWrites int
	statusWrites   int
}

func newMemStreamStore() *memStreamStore {
	return &memStreamStore{streams: make(map[string]*models.Stream)}
}

func cloneStream(s *models.Stream) *models.Stream {
	c := *s
	c.Viewers = append([]models.Viewer(nil), s.Viewers...)
	if s.StartedAt != nil {
		t := *s.StartedAt
		c.StartedAt = &t
	}
	if s.EndedAt != nil {
		t := *s.EndedAt
		c.EndedAt = &t
	}
	return &c
}

func (st *memStreamStore) put(s *models.Stream) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.streams[s.StreamID] = cloneStream(s)
}

func (st *memStreamStore) get(streamID string) *models.Stream {
	st.mu.Lock()
	defer st.mu.Unlock()
	if s, ok := st.streams[streamID]; ok {
		return cloneStream(s)
	}
	return nil
}

func (st *memStreamStore) GetByID(_ context.Context, streamID string) (*models.Stream, error) {
	if st.failGet != nil {
		return nil, st.failGet
	}
	return st.get(streamID), nil
}

func (st *memStreamStore) UpdatePresence(_ context.Context, s *models.Stream) error {
	if st.failPresence != nil {
		return st.failPresence
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	st.presenceWrites++
	st.streams[s.StreamID] = cloneStream(s)
	return nil
}

func (st *memStreamStore) UpdateStatus(_ context.Context, s *models.Stream) error {
	if st.failStatus != nil {
		return st.failStatus
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	st.statusWrites++
	st.streams[s.StreamID] = cloneStream(s)
	return nil
}

// memChatStore is an in-memory ChatStore with failure injection.
type memChatStore struct {
	mu          sync.Mutex
	messages    []models.ChatMessage
	failInsert  error
	insertCalls int
}

func newMemChatStore() *memChatStore {
	return &memChatStore{}
}

func (st *memChatStore) Insert(_ context.Context, m *models.ChatMessage) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.insertCalls++
	if st.failInsert != nil {
		return st.failInsert
	}
	st.messages = append(st.messages, *m)
	return nil
}

func (st *memChatStore) count() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.insertCalls
}

func (st *memChatStore) last() *models.ChatMessage {
	st.mu.Lock()
	defer st.mu.Unlock()
	if len(st.messages) == 0 {
		return nil
	}
	m := st.messages[len(st.messages)-1]
	return &m
}

type testEnv struct {
	hub     *Hub
	coord   *Coordinator
	streams *memStreamStore
	chat    *memChatStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := zap.NewNop()
	hub := NewHub(logger, nil, nil)
	streams := newMemStreamStore()
	chat := newMemChatStore()
	return &testEnv{
		hub:     hub,
		coord:   NewCoordinator(hub, streams, chat, logger),
		streams: streams,
		chat:    chat,
	}
}

// waitingStream seeds a WAITING stream with chat enabled.
func (e *testEnv) waitingStream(streamID, streamerID string) *models.Stream {
	s := &models.Stream{
		StreamID:    streamID,
		Streamer:    models.Streamer{UserID: streamerID, Username: "streamer-" + streamerID, Role: "streamer"},
		Status:      models.StreamWaiting,
		Viewers:     []models.Viewer{},
		ChatEnabled: true,
		RoomID:      "room-" + streamID,
	}
	e.streams.put(s)
	return s
}

func (e *testEnv) newClient(userID, username, role string) *Client {
	return &Client{
		session: NewSession("conn-"+userID+"-"+fmt.Sprint(time.Now().UnixNano()), userID, username, role),
		send:    make(chan WSMessage, 64),
		coord:   e.coord,
		cfg:     config.RealtimeConfig{SendBufferSize: 64},
		logger:  zap.NewNop(),
	}
}

// join issues a join-stream event and fails the test if it did not succeed.
func (e *testEnv) join(t *testing.T, c *Client, streamID string) {
	t.Helper()
	e.coord.HandleEvent(c, EventJoinStream, rawJSON(t, map[string]any{"streamId": streamID}))
	if c.session.StreamID() != streamID {
		t.Fatalf("join failed: %+v", drain(c))
	}
	drain(c)
}

func rawJSON(t *testing.T, v any) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return data
}

// drain empties a client's send queue. Handlers run synchronously on the
// room actor, so everything a handler emitted is already queued on return.
func drain(c *Client) []WSMessage {
	var out []WSMessage
	for {
		select {
		case msg := <-c.send:
			out = append(out, msg)
		default:
			return out
		}
	}
}

func eventNames(msgs []WSMessage) []string {
	names := make([]string, len(msgs))
	for i, m := range msgs {
		names[i] = m.Event
	}
	return names
}

func findEvent(msgs []WSMessage, event string) *WSMessage {
	for i := range msgs {
		if msgs[i].Event == event {
			return &msgs[i]
		}
	}
	return nil
}
