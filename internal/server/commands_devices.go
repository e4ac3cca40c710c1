package server

// handleListDevices processes a devices/list command. Enumeration shells out
// to the platform capture tool, so it runs off the reader goroutine.
func (h *CommandHandler) handleListDevices(send chan<- any) {
	HandleActionAsync(WSCommand{Type: "devices/list"}, send, func() (any, error) {
		return h.devices.Devices(), nil
	})
}
