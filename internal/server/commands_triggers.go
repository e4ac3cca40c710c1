package server

import (
	"github.com/asikmydeen/AudioCap/internal/types"
)

// handleAddTrigger processes a triggers/add command.
func (h *CommandHandler) handleAddTrigger(cmd WSCommand, send chan<- any) {
	var req TriggerRequest
	if !DecodeAndValidate(cmd, send, &req) {
		return
	}

	actions := make([]types.Action, 0, len(req.Actions))
	for _, a := range req.Actions {
		actions = append(actions, types.Action{
			Type: types.ActionType(a.Type),
			Params: types.ActionParams{
				Destination: a.Params.Destination,
				URL:         a.Params.URL,
				Method:      a.Params.Method,
				Body:        a.Params.Body,
				Title:       a.Params.Title,
			},
		})
	}

	added, err := h.engine.Add(types.Trigger{
		Event:   types.EventName(req.Event),
		Actions: actions,
	})
	if err != nil {
		SendError(send, cmd.Type, err)
		return
	}

	SendSuccess(send, cmd.Type, added)
}

// handleRemoveTrigger processes a triggers/remove command.
func (h *CommandHandler) handleRemoveTrigger(cmd WSCommand, send chan<- any) {
	HandleCommand(h, cmd, send, func(req *RemoveTriggerRequest) error {
		return h.engine.Remove(req.ID)
	})
}

// handleListTriggers processes a triggers/list command.
func (h *CommandHandler) handleListTriggers(cmd WSCommand, send chan<- any) {
	SendSuccess(send, cmd.Type, h.engine.List())
}
