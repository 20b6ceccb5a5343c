// Package imaging handles object-created notifications for uploaded images.
// It derives the thumbnail and medium output keys and tags the original;
// pixel transformation is left to a downstream worker.
package imaging

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/prperemyshlev/platform-services/internal/lambdaio"
	"github.com/prperemyshlev/platform-services/internal/ports"
	"go.uber.org/zap"
)

var imageExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".webp"}

const defaultContentType = "image/jpeg"

// Settings name the output prefixes
type Settings struct {
	ThumbnailPrefix string
	ProcessedPrefix string
}

// ObjectRef identifies the original object
type ObjectRef struct {
	Bucket      string `json:"bucket"`
	Key         string `json:"key"`
	Size        int64  `json:"size"`
	ContentType string `json:"content_type"`
}

// Outputs are the derived object keys
type Outputs struct {
	Thumbnail string `json:"thumbnail"`
	Medium    string `json:"medium"`
}

// Result describes one processed image
type Result struct {
	Original ObjectRef `json:"original"`
	Outputs  Outputs   `json:"outputs"`
	Status   string    `json:"status"`
}

// Summary is the body of an invocation
type Summary struct {
	Processed int      `json:"processed"`
	Errors    int      `json:"errors"`
	Results   []Result `json:"results"`
}

// Processor handles S3 notifications
type Processor struct {
	store    ports.ObjectStore
	settings Settings
	logger   *zap.Logger
}

// NewProcessor creates a processor
func NewProcessor(store ports.ObjectStore, settings Settings, logger *zap.Logger) *Processor {
	return &Processor{
		store:    store,
		settings: settings,
		logger:   logger.Named("imaging"),
	}
}

// Handle processes every record. A failing record is logged and counted,
// never returned as an error.
func (p *Processor) Handle(ctx context.Context, event events.S3Event) (lambdaio.Response, error) {
	requestID := "local"
	if lc, ok := lambdacontext.FromContext(ctx); ok && lc.AwsRequestID != "" {
		requestID = lc.AwsRequestID
	}

	summary := Summary{Results: []Result{}}
	for _, record := range event.Records {
		result, skipped, err := p.processRecord(ctx, record, requestID)
		switch {
		case err != nil:
			p.logger.Error("error processing record",
				zap.String("bucket", record.S3.Bucket.Name),
				zap.String("key", record.S3.Object.Key),
				zap.Error(err),
			)
			summary.Errors++
		case skipped:
		default:
			summary.Results = append(summary.Results, *result)
			summary.Processed++
		}
	}

	return lambdaio.OK(summary)
}

func (p *Processor) processRecord(ctx context.Context, record events.S3EventRecord, requestID string) (*Result, bool, error) {
	bucket := record.S3.Bucket.Name
	key, err := url.QueryUnescape(record.S3.Object.Key)
	if err != nil {
		return nil, false, fmt.Errorf("invalid object key %q: %w", record.S3.Object.Key, err)
	}

	p.logger.Info("processing object",
		zap.String("bucket", bucket),
		zap.String("key", key),
		zap.Int64("size", record.S3.Object.Size),
	)

	if !IsImage(key) {
		p.logger.Info("skipping non-image file", zap.String("key", key))
		return nil, true, nil
	}
	if p.isDerived(key) {
		p.logger.Info("skipping already processed", zap.String("key", key))
		return nil, true, nil
	}

	info, err := p.store.Head(ctx, bucket, key)
	if err != nil {
		return nil, false, err
	}
	if info.ContentType == "" {
		info.ContentType = defaultContentType
	}

	outputs := p.OutputKeys(key)

	if err := p.store.Tag(ctx, bucket, key, map[string]string{
		"Processed":     "true",
		"ProcessedTime": requestID,
	}); err != nil {
		return nil, false, err
	}

	p.logger.Info("processed image", zap.String("key", key))

	return &Result{
		Original: ObjectRef{
			Bucket:      bucket,
			Key:         key,
			Size:        info.Size,
			ContentType: info.ContentType,
		},
		Outputs: outputs,
		Status:  "processed",
	}, false, nil
}

// IsImage reports whether key has an image extension, ignoring case
func IsImage(key string) bool {
	lower := strings.ToLower(key)
	for _, ext := range imageExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// isDerived reports whether key lives under an output prefix, at the root
// or nested
func (p *Processor) isDerived(key string) bool {
	for _, prefix := range []string{p.settings.ThumbnailPrefix, p.settings.ProcessedPrefix} {
		if prefix == "" {
			continue
		}
		if strings.HasPrefix(key, prefix) || strings.Contains(key, "/"+prefix) {
			return true
		}
	}
	return false
}

// OutputKeys derives <thumbnails>/<name>_thumb<ext> and <processed>/<name>_medium<ext>
func (p *Processor) OutputKeys(key string) Outputs {
	filename := path.Base(key)
	ext := path.Ext(filename)
	name := strings.TrimSuffix(filename, ext)

	return Outputs{
		Thumbnail: p.settings.ThumbnailPrefix + name + "_thumb" + ext,
		Medium:    p.settings.ProcessedPrefix + name + "_medium" + ext,
	}
}
