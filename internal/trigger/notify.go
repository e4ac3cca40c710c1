package trigger

import (
	"fmt"
	"log/slog"
	"os/exec"
	"runtime"
)

// notifyDesktop shows a desktop notification using the platform's native
// tool. Platforms without one just log the notification.
func notifyDesktop(title, body string) error {
	switch runtime.GOOS {
	case "darwin":
		script := fmt.Sprintf("display notification %q with title %q", body, title)
		return exec.Command("osascript", "-e", script).Run()
	case "linux":
		return exec.Command("notify-send", title, body).Run()
	default:
		slog.Info("notification", "title", title, "body", body)
		return nil
	}
}
