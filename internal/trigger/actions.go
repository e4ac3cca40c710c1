package trigger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/asikmydeen/AudioCap/internal/types"
	"github.com/asikmydeen/AudioCap/internal/util"
)

// httpTimeout is the timeout for api-call requests.
const httpTimeout = 10000 * time.Millisecond

// Notifier shows a desktop notification.
type Notifier func(title, body string) error

// APIAuth holds OAuth2 client-credentials used to authenticate api-call
// actions. A zero value means requests go out unauthenticated.
type APIAuth struct {
	TokenURL     string
	ClientID     string
	ClientSecret string
	Scopes       []string
}

// Configured reports whether client-credentials auth is fully set.
func (a *APIAuth) Configured() bool {
	return util.IsConfigured(a.TokenURL, a.ClientID, a.ClientSecret)
}

// ActionRunner executes trigger actions. It satisfies Executor.
type ActionRunner struct {
	httpClient *http.Client

	// Notify shows desktop notifications. Replaceable in tests.
	Notify Notifier
}

// NewActionRunner creates a runner. When auth is configured, api-call
// requests carry a bearer token obtained via the client-credentials flow;
// tokens are fetched and refreshed transparently by the OAuth2 transport.
func NewActionRunner(auth APIAuth) *ActionRunner {
	base := &http.Client{Timeout: httpTimeout}

	client := base
	if auth.Configured() {
		conf := &clientcredentials.Config{
			ClientID:     auth.ClientID,
			ClientSecret: auth.ClientSecret,
			TokenURL:     auth.TokenURL,
			Scopes:       auth.Scopes,
		}
		ctx := context.WithValue(context.Background(), oauth2.HTTPClient, base)
		client = conf.Client(ctx)
	}

	return &ActionRunner{
		httpClient: client,
		Notify:     notifyDesktop,
	}
}

// Execute dispatches one action. Unknown action types are reported as
// failures so the engine records them in the event log.
func (r *ActionRunner) Execute(action types.Action, payload types.EventPayload) error {
	switch action.Type {
	case types.ActionSaveFile:
		return r.saveFile(action.Params, payload)
	case types.ActionAPICall:
		return r.apiCall(action.Params, payload)
	case types.ActionNotification:
		return r.notification(action.Params, payload)
	default:
		return fmt.Errorf("unknown action type %q", action.Type)
	}
}

// saveFile copies the event's recording into the destination directory.
func (r *ActionRunner) saveFile(params types.ActionParams, payload types.EventPayload) error {
	if params.Destination == "" {
		return fmt.Errorf("save-file action needs a destination")
	}
	if payload.FilePath == "" {
		return fmt.Errorf("event carries no file to save")
	}

	if err := os.MkdirAll(params.Destination, 0o755); err != nil {
		return util.WrapError("create destination directory", err)
	}

	src, err := os.Open(payload.FilePath)
	if err != nil {
		return util.WrapError("open recording", err)
	}
	defer util.SafeClose(src, "recording file")

	dstPath := filepath.Join(params.Destination, filepath.Base(payload.FilePath))
	dst, err := os.Create(dstPath)
	if err != nil {
		return util.WrapError("create destination file", err)
	}

	if _, err := io.Copy(dst, src); err != nil {
		util.SafeClose(dst, "destination file")
		return util.WrapError("copy recording", err)
	}
	return dst.Close()
}

// apiCall sends the event payload (or a body override) to an HTTP endpoint.
func (r *ActionRunner) apiCall(params types.ActionParams, payload types.EventPayload) error {
	if params.URL == "" {
		return fmt.Errorf("api-call action needs a url")
	}

	method := params.Method
	if method == "" {
		method = http.MethodPost
	}

	var body []byte
	if params.Body != "" {
		body = []byte(params.Body)
	} else {
		var err error
		body, err = json.Marshal(payload)
		if err != nil {
			return util.WrapError("marshal event payload", err)
		}
	}

	req, err := http.NewRequest(method, params.URL, bytes.NewReader(body))
	if err != nil {
		return util.WrapError("create request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return util.WrapError("send request", err)
	}
	defer util.SafeClose(resp.Body, "response body")
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("endpoint returned status %d", resp.StatusCode)
	}

	return nil
}

// notification shows a desktop notification about the event.
func (r *ActionRunner) notification(params types.ActionParams, payload types.EventPayload) error {
	title := params.Title
	if title == "" {
		title = "AudioCap"
	}
	body := params.Body
	if body == "" {
		body = fmt.Sprintf("Session %s", payload.SessionID)
		if payload.DurationSeconds > 0 {
			body = fmt.Sprintf("Session %s finished after %s",
				payload.SessionID, util.FormatDuration(int64(payload.DurationSeconds*1000)))
		}
	}
	return r.Notify(title, body)
}
