// Package hub fans workflow events out to live observers. Each project has
// its own subscriber set; broadcasting to a project with no observers is a
// no-op, and a subscriber whose Send fails is dropped from the set without
// affecting delivery to the others.
package hub

import (
	"log/slog"
	"sync"
	"time"
)

// Subscriber receives broadcast events. A non-nil error from Send marks the
// subscriber dead and removes it from the project's set.
type Subscriber interface {
	Send(event Event) error
}

// Hub tracks subscriber sets per project.
type Hub struct {
	mu       sync.Mutex
	projects map[string]map[Subscriber]struct{}
	logger   *slog.Logger
}

// New creates an empty hub.
func New(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		projects: make(map[string]map[Subscriber]struct{}),
		logger:   logger,
	}
}

// Subscribe registers sub as an observer of projectID and sends it the
// connected acknowledgment.
func (h *Hub) Subscribe(projectID string, sub Subscriber) {
	h.mu.Lock()
	set, ok := h.projects[projectID]
	if !ok {
		set = make(map[Subscriber]struct{})
		h.projects[projectID] = set
	}
	set[sub] = struct{}{}
	count := len(set)
	h.mu.Unlock()

	h.logger.Debug("subscriber attached", "project_id", projectID, "subscribers", count)

	if err := sub.Send(Connected(projectID)); err != nil {
		h.Unsubscribe(projectID, sub)
	}
}

// Unsubscribe removes sub from projectID's set. Removing the last subscriber
// removes the project entry itself.
func (h *Hub) Unsubscribe(projectID string, sub Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.projects[projectID]
	if !ok {
		return
	}
	delete(set, sub)
	if len(set) == 0 {
		delete(h.projects, projectID)
	}
}

// SubscriberCount returns the number of live observers for projectID.
func (h *Hub) SubscriberCount(projectID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.projects[projectID])
}

// Broadcast delivers event to every observer of projectID. The event is
// stamped with a timestamp if it has none. Delivery iterates over a snapshot
// of the subscriber set, so concurrent subscribe and unsubscribe calls do not
// disturb it. Broadcast never returns an error: a failed subscriber is
// removed and the workflow proceeds.
func (h *Hub) Broadcast(projectID string, event Event) {
	if _, ok := event["timestamp"]; !ok {
		event["timestamp"] = time.Now().UTC().Format(time.RFC3339)
	}

	h.mu.Lock()
	set, ok := h.projects[projectID]
	if !ok || len(set) == 0 {
		h.mu.Unlock()
		return
	}
	snapshot := make([]Subscriber, 0, len(set))
	for sub := range set {
		snapshot = append(snapshot, sub)
	}
	h.mu.Unlock()

	var dead []Subscriber
	for _, sub := range snapshot {
		if err := sub.Send(event); err != nil {
			h.logger.Debug("dropping dead subscriber",
				"project_id", projectID, "event_type", event["type"], "error", err)
			dead = append(dead, sub)
		}
	}
	for _, sub := range dead {
		h.Unsubscribe(projectID, sub)
	}
}
