package recording

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/asikmydeen/AudioCap/internal/eventlog"
	"github.com/asikmydeen/AudioCap/internal/types"
	"github.com/asikmydeen/AudioCap/internal/util"
)

// S3Config holds S3-compatible storage configuration.
type S3Config struct {
	Endpoint        string // Custom S3 endpoint (empty for AWS)
	Bucket          string // Bucket name
	AccessKeyID     string // Access key ID
	SecretAccessKey string // Secret access key
}

// IsConfigured returns true if all required S3 settings are set.
func (c *S3Config) IsConfigured() bool {
	return c.Bucket != "" && c.AccessKeyID != "" && c.SecretAccessKey != ""
}

// Upload worker tuning.
const (
	uploadQueueSize     = 16
	uploadTimeout       = 5 * time.Minute
	maxUploadAttempts   = 3
	uploadInitialDelay  = 3 * time.Second
	uploadMaxRetryDelay = 60 * time.Second
)

// uploadRequest represents a file to be uploaded to S3.
type uploadRequest struct {
	localPath string
	s3Key     string
	fileSize  int64
}

// Uploader ships finished recordings to S3-compatible storage on a single
// background worker. Failures are logged and retried with backoff; they
// never affect recording sessions.
type Uploader struct {
	cfg    S3Config
	client *s3.Client

	queue   chan uploadRequest
	stopCh  chan struct{}
	wg      sync.WaitGroup
	backoff *util.Backoff

	eventLogger *eventlog.Logger
}

// NewUploader creates an uploader for the given storage target.
func NewUploader(cfg S3Config, eventLogger *eventlog.Logger) (*Uploader, error) {
	if !cfg.IsConfigured() {
		return nil, fmt.Errorf("upload storage is not configured")
	}

	client, err := createS3Client(&cfg)
	if err != nil {
		return nil, fmt.Errorf("create S3 client: %w", err)
	}

	return &Uploader{
		cfg:         cfg,
		client:      client,
		queue:       make(chan uploadRequest, uploadQueueSize),
		stopCh:      make(chan struct{}),
		backoff:     util.NewBackoff(uploadInitialDelay, uploadMaxRetryDelay),
		eventLogger: eventLogger,
	}, nil
}

// Start launches the upload worker.
func (u *Uploader) Start() {
	u.wg.Add(1)
	go u.worker()
}

// Stop signals the worker to drain the queue and waits for it to finish.
func (u *Uploader) Stop() {
	close(u.stopCh)
	u.wg.Wait()
}

// Queue enqueues a finished recording for upload. A full queue drops the
// file with a warning rather than blocking the caller.
func (u *Uploader) Queue(filePath string) {
	info, err := os.Stat(filePath)
	if err != nil {
		slog.Warn("failed to stat recording for upload", "path", filePath, "error", err)
		return
	}

	req := uploadRequest{
		localPath: filePath,
		s3Key:     s3Key(filePath, info.ModTime()),
		fileSize:  info.Size(),
	}

	select {
	case u.queue <- req:
		slog.Info("queued recording for upload", "file", filepath.Base(filePath))
		u.logUpload(eventlog.UploadQueued, &eventlog.UploadDetails{
			Filename: filepath.Base(filePath),
			S3Key:    req.s3Key,
		})
	default:
		slog.Warn("upload queue full, dropping file", "file", filepath.Base(filePath))
	}
}

// worker processes the upload queue, draining remaining items on shutdown.
func (u *Uploader) worker() {
	defer u.wg.Done()

	for {
		select {
		case <-u.stopCh:
			for {
				select {
				case req := <-u.queue:
					u.uploadFile(req)
				default:
					return
				}
			}
		case req := <-u.queue:
			u.uploadFile(req)
		}
	}
}

// uploadFile puts one file to the bucket, retrying with backoff.
func (u *Uploader) uploadFile(req uploadRequest) {
	var lastErr error
	for attempt := 1; attempt <= maxUploadAttempts; attempt++ {
		lastErr = u.putObject(req)
		if lastErr == nil {
			u.backoff.Reset()
			slog.Info("upload completed", "s3_key", req.s3Key)
			u.logUpload(eventlog.UploadCompleted, &eventlog.UploadDetails{
				Filename: filepath.Base(req.localPath),
				S3Key:    req.s3Key,
			})
			return
		}

		slog.Warn("upload attempt failed",
			"s3_key", req.s3Key,
			"attempt", attempt,
			"error", lastErr)

		if attempt < maxUploadAttempts {
			select {
			case <-time.After(u.backoff.Next()):
			case <-u.stopCh:
				// Shutting down; give remaining attempts up front.
			}
		}
	}

	slog.Error("upload failed", "s3_key", req.s3Key, "error", lastErr)
	u.logUpload(eventlog.UploadFailed, &eventlog.UploadDetails{
		Filename: filepath.Base(req.localPath),
		S3Key:    req.s3Key,
		Error:    lastErr.Error(),
		Retry:    maxUploadAttempts,
	})
}

func (u *Uploader) putObject(req uploadRequest) error {
	ctx, cancel := context.WithTimeout(context.Background(), uploadTimeout)
	defer cancel()

	file, err := os.Open(req.localPath)
	if err != nil {
		return util.WrapError("open file for upload", err)
	}
	defer util.SafeClose(file, "upload file")

	_, err = u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(u.cfg.Bucket),
		Key:           aws.String(req.s3Key),
		Body:          file,
		ContentLength: aws.Int64(req.fileSize),
		ContentType:   aws.String(contentTypeFor(req.localPath)),
	})
	return err
}

func (u *Uploader) logUpload(eventType eventlog.EventType, details *eventlog.UploadDetails) {
	if u.eventLogger == nil {
		return
	}
	if err := u.eventLogger.LogUpload(eventType, details); err != nil {
		slog.Warn("failed to log upload event", "type", eventType, "error", err)
	}
}

// s3Key builds a date-partitioned object key for a recording.
func s3Key(filePath string, modTime time.Time) string {
	return fmt.Sprintf("recordings/%s/%s", modTime.Format(time.DateOnly), filepath.Base(filePath))
}

// contentTypeFor maps a recording's extension to its MIME type.
func contentTypeFor(filePath string) string {
	ext := strings.TrimPrefix(filepath.Ext(filePath), ".")
	return types.PresetFor(types.Format(ext)).MIMEType
}

// createS3Client creates an S3 client with the given configuration.
func createS3Client(cfg *S3Config) (*s3.Client, error) {
	creds := credentials.NewStaticCredentialsProvider(
		cfg.AccessKeyID,
		cfg.SecretAccessKey,
		"",
	)

	options := []func(*s3.Options){
		func(o *s3.Options) {
			o.Credentials = creds
			o.Region = "auto"
		},
	}

	if cfg.Endpoint != "" {
		options = append(options, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		})
	}

	return s3.New(s3.Options{}, options...), nil
}

// TestS3Connection tests connectivity to a bucket by uploading and deleting
// a small file.
func TestS3Connection(cfg *S3Config) error {
	if !cfg.IsConfigured() {
		return fmt.Errorf("S3 is not configured")
	}

	client, err := createS3Client(cfg)
	if err != nil {
		return fmt.Errorf("create S3 client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30000*time.Millisecond)
	defer cancel()

	testKey := fmt.Sprintf("test-connection-%d.txt", time.Now().UnixNano())
	testContent := []byte("AudioCap connection test " + util.TimestampUTC())

	_, err = client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(cfg.Bucket),
		Key:           aws.String(testKey),
		Body:          bytes.NewReader(testContent),
		ContentLength: aws.Int64(int64(len(testContent))),
	})
	if err != nil {
		return fmt.Errorf("upload test file: %w", err)
	}

	_, err = client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(cfg.Bucket),
		Key:    aws.String(testKey),
	})
	if err != nil {
		slog.Warn("failed to delete test file", "key", testKey, "error", err)
	}

	return nil
}
