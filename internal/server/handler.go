// Package server provides the WebSocket command channel for controlling the
// capture service.
package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/asikmydeen/AudioCap/internal/types"
)

var validate = newValidator()

// newValidator builds the shared request validator. Error messages carry
// JSON tag names so clients see the fields they actually sent.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return fld.Name
		}
		return name
	})
	return v
}

// commandResult is the reply sent for every processed command. Its type is
// the command type with a "_result" suffix.
type commandResult struct {
	Type    string `json:"type"`
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   any    `json:"error,omitempty"`
}

// DecodeAndValidate decodes a command's data into the request struct and
// validates it. On failure an error result has already been sent and false
// is returned.
func DecodeAndValidate[T any](cmd WSCommand, send chan<- any, data *T) bool {
	if err := json.Unmarshal(cmd.Data, data); err != nil {
		SendError(send, cmd.Type, fmt.Errorf("invalid JSON: %w", err))
		return false
	}

	if err := validate.Struct(data); err != nil {
		sendValidationErrors(send, cmd.Type, err)
		return false
	}

	return true
}

// HandleCommand decodes and validates the request, runs process, and replies
// with success or the returned error. For commands whose result carries no
// data.
func HandleCommand[T any](h *CommandHandler, cmd WSCommand, send chan<- any, process func(*T) error) {
	var data T
	if !DecodeAndValidate(cmd, send, &data) {
		return
	}

	if err := process(&data); err != nil {
		SendError(send, cmd.Type, err)
		return
	}

	SendSuccess(send, cmd.Type, nil)
}

// HandleActionAsync runs an action on its own goroutine and replies when it
// finishes. A panic in the action becomes an error result instead of taking
// down the connection.
func HandleActionAsync(cmd WSCommand, send chan<- any, action func() (any, error)) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				slog.Error("panic in async handler", "command", cmd.Type, "panic", r)
				SendError(send, cmd.Type, fmt.Errorf("internal error"))
			}
		}()

		result, err := action()
		if err != nil {
			SendError(send, cmd.Type, err)
			return
		}
		SendSuccess(send, cmd.Type, result)
	}()
}

// SendSuccess replies to a command with optional result data.
func SendSuccess(send chan<- any, cmdType string, data any) {
	trySend(send, cmdType, commandResult{
		Type:    cmdType + "_result",
		Success: true,
		Data:    data,
	})
}

// SendError replies to a command with a failure message.
func SendError(send chan<- any, cmdType string, err error) {
	trySend(send, cmdType, commandResult{
		Type:    cmdType + "_result",
		Success: false,
		Error:   err.Error(),
	})
}

// sendValidationErrors converts validator errors into a field-level error
// result.
func sendValidationErrors(send chan<- any, cmdType string, err error) {
	verr := types.NewValidationError()

	if fieldErrs, ok := err.(validator.ValidationErrors); ok {
		for _, e := range fieldErrs {
			verr.Add(e.Field(), validationMessage(e), e.Value())
		}
	} else {
		verr.Add("", err.Error(), nil)
	}

	trySend(send, cmdType, commandResult{
		Type:    cmdType + "_result",
		Success: false,
		Error:   verr,
	})
}

// trySend drops the message with a warning when the send channel is full.
// Command replies are best-effort: async handlers can outlive their
// connection, whose event loop closes the channel on disconnect, so a send
// on a closed channel is recovered and dropped too.
func trySend(send chan<- any, cmdType string, msg any) {
	defer func() {
		if recover() != nil {
			slog.Debug("dropping response for closed connection", "type", cmdType)
		}
	}()
	select {
	case send <- msg:
	default:
		slog.Warn("failed to send response: channel full or closed", "type", cmdType)
	}
}

// validationMessage renders one validator tag as a human-readable message.
func validationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must have at least %s items", e.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", e.Param())
	case "gte":
		return fmt.Sprintf("must be greater than or equal to %s", e.Param())
	case "lte":
		return fmt.Sprintf("must be less than or equal to %s", e.Param())
	case "url":
		return "must be a valid URL"
	case "oneof":
		return fmt.Sprintf("must be one of: %s", e.Param())
	default:
		return fmt.Sprintf("failed validation '%s'", e.Tag())
	}
}
