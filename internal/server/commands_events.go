package server

import (
	"github.com/asikmydeen/AudioCap/internal/eventlog"
)

// EventsPage is the events/view response.
type EventsPage struct {
	Events  []eventlog.Event `json:"events"`
	HasMore bool             `json:"has_more"`
}

// handleViewEvents processes an events/view command.
func (h *CommandHandler) handleViewEvents(cmd WSCommand, send chan<- any) {
	var req EventsViewRequest
	if !DecodeAndValidate(cmd, send, &req) {
		return
	}

	limit := req.Limit
	if limit <= 0 {
		limit = MaxLogEntries
	}

	events, hasMore, err := eventlog.ReadLast(h.eventLogPath, limit, req.Offset, eventlog.TypeFilter(req.Filter))
	if err != nil {
		SendError(send, cmd.Type, err)
		return
	}

	SendSuccess(send, cmd.Type, EventsPage{Events: events, HasMore: hasMore})
}
