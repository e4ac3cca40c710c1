package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/mod/semver"

	"github.com/asikmydeen/AudioCap/internal/types"
	"github.com/asikmydeen/AudioCap/internal/util"
)

// Release lookup tuning.
const (
	releaseURL          = "https://api.github.com/repos/asikmydeen/AudioCap/releases/latest"
	releaseCheckEvery   = 24 * time.Hour
	releaseCheckDelay   = 30 * time.Second // keep startup from waiting on GitHub
	releaseCheckTimeout = 30 * time.Second
	releaseCheckRetries = 3
	releaseRetryDelay   = time.Minute
)

// VersionChecker polls GitHub for the newest published release so status
// pushes can tell clients when an update is available. Safe for concurrent
// use.
type VersionChecker struct {
	mu     sync.RWMutex
	latest string
	etag   string // conditional requests, 304 means nothing changed
	stopCh chan struct{}
}

// NewVersionChecker starts the polling goroutine.
func NewVersionChecker() *VersionChecker {
	vc := &VersionChecker{stopCh: make(chan struct{})}
	go vc.run()
	return vc
}

// Stop ends the polling goroutine.
func (vc *VersionChecker) Stop() {
	close(vc.stopCh)
}

func (vc *VersionChecker) run() {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("panic in version checker", "panic", r)
		}
	}()

	select {
	case <-time.After(releaseCheckDelay):
	case <-vc.stopCh:
		return
	}

	for {
		vc.poll()
		select {
		case <-time.After(releaseCheckEvery):
		case <-vc.stopCh:
			return
		}
	}
}

// poll runs one check cycle, retrying transient failures.
func (vc *VersionChecker) poll() {
	for attempt := 1; attempt <= releaseCheckRetries; attempt++ {
		if vc.fetchLatest() || attempt == releaseCheckRetries {
			return
		}
		select {
		case <-time.After(releaseRetryDelay):
		case <-vc.stopCh:
			return
		}
	}
}

type githubRelease struct {
	TagName    string `json:"tag_name"`
	Draft      bool   `json:"draft"`
	Prerelease bool   `json:"prerelease"`
}

// fetchLatest asks GitHub for the newest release and records it. Returns
// false only for failures worth retrying.
func (vc *VersionChecker) fetchLatest() bool {
	ctx, cancel := context.WithTimeout(context.Background(), releaseCheckTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, releaseURL, http.NoBody)
	if err != nil {
		return false
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	req.Header.Set("User-Agent", "audiocap/"+Version)

	vc.mu.RLock()
	if vc.etag != "" {
		req.Header.Set("If-None-Match", vc.etag)
	}
	vc.mu.RUnlock()

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return false
	}
	defer util.SafeClose(resp.Body, "release response")

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotModified:
		return true
	case http.StatusNotFound:
		// No releases published yet.
		return true
	case http.StatusForbidden, http.StatusTooManyRequests:
		// Rate limited, come back later.
		return false
	default:
		// Server errors are worth a retry, other client errors are not.
		return resp.StatusCode < 500
	}

	var release githubRelease
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return false
	}
	if release.Draft || release.Prerelease {
		return true
	}
	if release.TagName == "" {
		return false
	}

	vc.mu.Lock()
	vc.latest = trimV(release.TagName)
	if etag := resp.Header.Get("ETag"); etag != "" {
		vc.etag = etag
	}
	vc.mu.Unlock()

	return true
}

// Info returns build and release info for status pushes.
func (vc *VersionChecker) Info() types.VersionInfo {
	vc.mu.RLock()
	latest := vc.latest
	vc.mu.RUnlock()

	current := trimV(Version)
	info := types.VersionInfo{
		Current:   current,
		Latest:    latest,
		Commit:    Commit,
		BuildTime: BuildTime,
	}
	if latest != "" && current != "dev" && current != "unknown" {
		info.UpdateAvail = updateAvailable(latest, current)
	}
	return info
}

// updateAvailable reports whether latest is a newer semver than current.
func updateAvailable(latest, current string) bool {
	return semver.Compare(withV(latest), withV(current)) > 0
}

func withV(v string) string {
	v = strings.TrimSpace(v)
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	return v
}

func trimV(v string) string {
	return strings.TrimPrefix(strings.TrimSpace(v), "v")
}
