package types

// WSEvent pushes a session event to connected clients.
type WSEvent struct {
	Type    string       `json:"type"` // "event"
	Event   EventName    `json:"event"`
	Payload EventPayload `json:"payload"`
}

// WSStatusResponse pushes the live session list to connected clients.
type WSStatusResponse struct {
	Type            string           `json:"type"` // "status"
	FFmpegAvailable bool             `json:"ffmpeg_available"`
	Sessions        []SessionSummary `json:"sessions"`
	Version         VersionInfo      `json:"version"`
}

// VersionInfo describes the running build and the latest published release.
type VersionInfo struct {
	Current     string `json:"current"`
	Latest      string `json:"latest,omitempty"`
	Commit      string `json:"commit"`
	BuildTime   string `json:"build_time"`
	UpdateAvail bool   `json:"update_available"`
}
