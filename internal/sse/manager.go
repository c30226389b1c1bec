package sse

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/heysmata/strava-for-books/internal/id"
)

const (
	// queueSize buffers emitted events ahead of the broadcast loop. Narration
	// highlights are the chattiest producer at a couple of events per second.
	queueSize = 1000
	// clientBuffer is the per-client send buffer. A client that falls this far
	// behind starts losing events rather than stalling the broadcaster.
	clientBuffer = 100
)

// Client is one connected event stream consumer.
type Client struct {
	ConnectedAt time.Time
	EventChan   chan Event
	Done        chan struct{}
	ID          string
}

// Manager fans emitted events out to all connected clients.
type Manager struct {
	clients           map[string]*Client
	events            chan Event
	logger            *slog.Logger
	wg                sync.WaitGroup
	heartbeatInterval time.Duration
	mu                sync.RWMutex

	// shutdownMu guards the events channel close against concurrent Emit.
	shutdownMu sync.RWMutex
	shutdown   bool
}

func NewManager(logger *slog.Logger) *Manager {
	return &Manager{
		clients:           make(map[string]*Client),
		events:            make(chan Event, queueSize),
		logger:            logger,
		heartbeatInterval: heartbeatInterval,
	}
}

// Start runs the broadcast loop until ctx is canceled. Call once, in its own
// goroutine, at server startup.
func (m *Manager) Start(ctx context.Context) {
	m.wg.Add(1)
	defer m.wg.Done()

	m.logger.Info("event manager starting")

	ticker := time.NewTicker(m.heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case event := <-m.events:
			m.broadcast(event)
		case <-ticker.C:
			m.broadcast(NewHeartbeatEvent())
		case <-ctx.Done():
			m.logger.Info("event manager stopping")
			m.closeAllClients()
			return
		}
	}
}

// Shutdown stops accepting events, drains what is already queued (bounded by
// ctx), and waits for the broadcast loop to exit.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.logger.Info("event manager shutdown initiated")

	// Flag and close under the write lock so an in-flight Emit can never send
	// on a closed channel.
	m.shutdownMu.Lock()
	m.shutdown = true
	close(m.events)
	m.shutdownMu.Unlock()

	drained := make(chan struct{})
	go func() {
		for event := range m.events {
			m.broadcast(event)
		}
		close(drained)
	}()

	select {
	case <-drained:
		m.logger.Info("queued events drained")
	case <-ctx.Done():
		m.logger.Warn("event drain timed out, remaining events dropped")
	}

	m.wg.Wait()
	m.logger.Info("event manager shutdown complete")
	return nil
}

func (m *Manager) broadcast(event Event) {
	var delivered, dropped int

	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, client := range m.clients {
		select {
		case client.EventChan <- event:
			delivered++
		default:
			// Slow consumer. Drop rather than block the loop.
			dropped++
			m.logger.Warn("dropped event for slow client",
				slog.String("client_id", client.ID),
				slog.String("event_type", string(event.Type)))
		}
	}

	if event.Type != EventHeartbeat {
		m.logger.Debug("event broadcast",
			slog.String("event_type", string(event.Type)),
			slog.Int("delivered", delivered),
			slog.Int("dropped", dropped))
	}
}

// Connect registers a new client.
func (m *Manager) Connect() (*Client, error) {
	clientID, err := id.Generate(id.PrefixClient)
	if err != nil {
		return nil, err
	}

	client := &Client{
		ID:          clientID,
		EventChan:   make(chan Event, clientBuffer),
		Done:        make(chan struct{}),
		ConnectedAt: time.Now(),
	}

	m.mu.Lock()
	m.clients[client.ID] = client
	total := len(m.clients)
	m.mu.Unlock()

	m.logger.Info("event stream client connected",
		slog.String("client_id", clientID),
		slog.Int("total_clients", total))
	return client, nil
}

// Disconnect removes a client and closes its channels. Safe to call for an
// already-removed client.
func (m *Manager) Disconnect(clientID string) {
	m.mu.Lock()
	client, ok := m.clients[clientID]
	if !ok {
		m.mu.Unlock()
		return
	}
	delete(m.clients, clientID)
	total := len(m.clients)
	m.mu.Unlock()

	close(client.Done)
	close(client.EventChan)

	m.logger.Info("event stream client disconnected",
		slog.String("client_id", clientID),
		slog.Duration("duration", time.Since(client.ConnectedAt)),
		slog.Int("total_clients", total))
}

// Emit queues an event for broadcast. It satisfies store.EventEmitter, so the
// argument is any; non-Event values are logged and dropped.
func (m *Manager) Emit(event any) {
	evt, ok := event.(Event)
	if !ok {
		m.logger.Error("emit called with non-event value")
		return
	}

	m.shutdownMu.RLock()
	defer m.shutdownMu.RUnlock()
	if m.shutdown {
		// Normal during shutdown.
		return
	}

	select {
	case m.events <- evt:
	default:
		m.logger.Warn("event queue full, dropping event",
			slog.String("event_type", string(evt.Type)))
	}
}

// ClientCount reports connected clients, used by the health endpoint.
func (m *Manager) ClientCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.clients)
}

func (m *Manager) closeAllClients() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, client := range m.clients {
		close(client.Done)
		close(client.EventChan)
		delete(m.clients, id)
	}
	m.logger.Info("all event stream clients closed")
}
