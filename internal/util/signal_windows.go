//go:build windows

package util

import "os"

// ShutdownSignals returns the signals to listen for graceful shutdown.
func ShutdownSignals() []os.Signal {
	return []os.Signal{os.Interrupt}
}

// GracefulSignal attempts graceful process termination.
// On Windows SIGINT cannot be delivered to a child process, so capture
// processes are wound down through stdin instead; returning nil keeps the
// stop sequence from collecting a spurious error.
func GracefulSignal(p *os.Process) error {
	return nil
}
