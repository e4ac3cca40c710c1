package trigger

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asikmydeen/AudioCap/internal/types"
)

func TestExecuteUnknownActionType(t *testing.T) {
	runner := NewActionRunner(APIAuth{})

	err := runner.Execute(types.Action{Type: "launch-rocket"}, types.EventPayload{})
	assert.ErrorContains(t, err, "unknown action type")
}

func TestSaveFileCopiesRecording(t *testing.T) {
	runner := NewActionRunner(APIAuth{})

	srcDir := t.TempDir()
	srcPath := filepath.Join(srcDir, "recording-1.wav")
	require.NoError(t, os.WriteFile(srcPath, []byte("pcm data"), 0o644))

	dstDir := filepath.Join(t.TempDir(), "archive")
	err := runner.Execute(types.Action{
		Type:   types.ActionSaveFile,
		Params: types.ActionParams{Destination: dstDir},
	}, types.EventPayload{SessionID: "s1", FilePath: srcPath})
	require.NoError(t, err)

	copied, err := os.ReadFile(filepath.Join(dstDir, "recording-1.wav"))
	require.NoError(t, err)
	assert.Equal(t, []byte("pcm data"), copied)
}

func TestSaveFileValidation(t *testing.T) {
	runner := NewActionRunner(APIAuth{})

	err := runner.Execute(types.Action{
		Type: types.ActionSaveFile,
	}, types.EventPayload{FilePath: "/tmp/some.wav"})
	assert.ErrorContains(t, err, "destination")

	err = runner.Execute(types.Action{
		Type:   types.ActionSaveFile,
		Params: types.ActionParams{Destination: t.TempDir()},
	}, types.EventPayload{})
	assert.ErrorContains(t, err, "no file")
}

func TestSaveFileMissingSource(t *testing.T) {
	runner := NewActionRunner(APIAuth{})

	err := runner.Execute(types.Action{
		Type:   types.ActionSaveFile,
		Params: types.ActionParams{Destination: t.TempDir()},
	}, types.EventPayload{FilePath: filepath.Join(t.TempDir(), "gone.wav")})
	assert.Error(t, err)
}

func TestAPICallSendsEventPayload(t *testing.T) {
	var gotMethod, gotContentType string
	var gotBody []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotContentType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	runner := NewActionRunner(APIAuth{})
	payload := types.EventPayload{SessionID: "s1", FilePath: "/recordings/recording-1.wav"}

	err := runner.Execute(types.Action{
		Type:   types.ActionAPICall,
		Params: types.ActionParams{URL: server.URL},
	}, payload)
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "application/json", gotContentType)

	var sent types.EventPayload
	require.NoError(t, json.Unmarshal(gotBody, &sent))
	assert.Equal(t, payload, sent)
}

func TestAPICallBodyAndMethodOverride(t *testing.T) {
	var gotMethod string
	var gotBody []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	runner := NewActionRunner(APIAuth{})
	err := runner.Execute(types.Action{
		Type: types.ActionAPICall,
		Params: types.ActionParams{
			URL:    server.URL,
			Method: http.MethodPut,
			Body:   `{"custom":true}`,
		},
	}, types.EventPayload{SessionID: "s1"})
	require.NoError(t, err)

	assert.Equal(t, http.MethodPut, gotMethod)
	assert.JSONEq(t, `{"custom":true}`, string(gotBody))
}

func TestAPICallNonSuccessStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	runner := NewActionRunner(APIAuth{})
	err := runner.Execute(types.Action{
		Type:   types.ActionAPICall,
		Params: types.ActionParams{URL: server.URL},
	}, types.EventPayload{})
	assert.ErrorContains(t, err, "status 502")
}

func TestAPICallRequiresURL(t *testing.T) {
	runner := NewActionRunner(APIAuth{})

	err := runner.Execute(types.Action{Type: types.ActionAPICall}, types.EventPayload{})
	assert.ErrorContains(t, err, "url")
}

func TestNotificationDefaults(t *testing.T) {
	runner := NewActionRunner(APIAuth{})

	var gotTitle, gotBody string
	runner.Notify = func(title, body string) error {
		gotTitle = title
		gotBody = body
		return nil
	}

	err := runner.Execute(types.Action{
		Type: types.ActionNotification,
	}, types.EventPayload{SessionID: "1700-abcd1234"})
	require.NoError(t, err)

	assert.Equal(t, "AudioCap", gotTitle)
	assert.Equal(t, "Session 1700-abcd1234", gotBody)
}

func TestNotificationDefaultBodyIncludesDuration(t *testing.T) {
	runner := NewActionRunner(APIAuth{})

	var gotBody string
	runner.Notify = func(title, body string) error {
		gotBody = body
		return nil
	}

	err := runner.Execute(types.Action{
		Type: types.ActionNotification,
	}, types.EventPayload{SessionID: "1700-abcd1234", DurationSeconds: 154})
	require.NoError(t, err)

	assert.Equal(t, "Session 1700-abcd1234 finished after 2m 34s", gotBody)
}

func TestNotificationCustomTitleAndBody(t *testing.T) {
	runner := NewActionRunner(APIAuth{})

	var gotTitle, gotBody string
	runner.Notify = func(title, body string) error {
		gotTitle = title
		gotBody = body
		return nil
	}

	err := runner.Execute(types.Action{
		Type:   types.ActionNotification,
		Params: types.ActionParams{Title: "Studio", Body: "Silence on air"},
	}, types.EventPayload{SessionID: "s1"})
	require.NoError(t, err)

	assert.Equal(t, "Studio", gotTitle)
	assert.Equal(t, "Silence on air", gotBody)
}

func TestAPIAuthConfigured(t *testing.T) {
	auth := APIAuth{}
	assert.False(t, auth.Configured())

	auth = APIAuth{TokenURL: "https://auth.example.com/token", ClientID: "id"}
	assert.False(t, auth.Configured(), "missing client secret")

	auth.ClientSecret = "secret"
	assert.True(t, auth.Configured())
}
