package websocket

import (
	"context"
	"time"

	"github.com/raaihank/anonimizador/internal/workflow"
)

// HubDisplay shows workflow statuses to every connected dashboard
type HubDisplay struct {
	Hub       *Hub
	RequestID string
}

// Show broadcasts the status; a nil hub shows nothing
func (d HubDisplay) Show(_ context.Context, status workflow.Status) error {
	if d.Hub == nil {
		return nil
	}
	return d.Hub.BroadcastEvent(Event{
		Type:      EventTypeStatus,
		Timestamp: time.Now(),
		RequestID: d.RequestID,
		Data: StatusEvent{
			Kind:    string(status.Kind),
			Message: status.Message,
		},
	})
}
