// Package upload coordinates batch uploads of candidate files into a blob
// store and a metadata store, and tracks which files still need a retry.
package upload

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/dmitrijs2005/filedrop/internal/intake"
	"github.com/dmitrijs2005/filedrop/internal/logging"
	"github.com/dmitrijs2005/filedrop/internal/models"
	"github.com/dmitrijs2005/filedrop/internal/sanitize"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrNoBucket is returned by NewCoordinator when Options.Bucket is empty.
	ErrNoBucket = errors.New("bucket name is required")
	// ErrNoMetadataStore means a path prefix is set but no metadata store
	// was given to record the files under it.
	ErrNoMetadataStore = errors.New("no metadata store")
)

// Options configure a Coordinator.
type Options struct {
	// Bucket the blobs are written to. Required.
	Bucket string
	// PathPrefix groups the storage keys under a container id. When set it
	// is also the parent id of the metadata records; when empty no metadata
	// is written.
	PathPrefix          string
	CacheControlSeconds int
	Upsert              bool
	// Concurrency bounds the number of files in flight; 0 means unbounded.
	Concurrency int
	// CompensateOrphans removes a freshly written blob when its metadata
	// insert fails. It only applies when Upsert is false, since an upsert
	// may have replaced an object that other records still point to.
	CompensateOrphans bool
}

// Coordinator runs upload cycles. It holds no per-batch state and is safe
// for concurrent use by several sessions.
type Coordinator struct {
	opts    Options
	blobs   BlobStore
	meta    MetadataStore
	logger  logging.Logger
	metrics *Metrics
}

// NewCoordinator validates opts and fills in defaults. meta may be nil only
// when PathPrefix is empty.
func NewCoordinator(opts Options, blobs BlobStore, meta MetadataStore, logger logging.Logger, metrics *Metrics) (*Coordinator, error) {
	if opts.Bucket == "" {
		return nil, ErrNoBucket
	}
	if opts.PathPrefix != "" && meta == nil {
		return nil, ErrNoMetadataStore
	}
	if opts.CacheControlSeconds <= 0 {
		opts.CacheControlSeconds = DefaultCacheControlSeconds
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	return &Coordinator{
		opts:    opts,
		blobs:   blobs,
		meta:    meta,
		logger:  logger.With("module", "upload_coordinator"),
		metrics: metrics,
	}, nil
}

// WithPathPrefix returns a copy of the coordinator writing under prefix.
func (c *Coordinator) WithPathPrefix(prefix string) *Coordinator {
	cp := *c
	cp.opts.PathPrefix = prefix
	return &cp
}

func (c *Coordinator) Options() Options { return c.opts }

// Upload runs one cycle over the files eligible under prior and waits for
// every unit to finish. A failing file never stops its siblings.
//
// Cancelling ctx is passed on to every store call; units that observe the
// cancellation report it as their error, and the result still holds one
// outcome per attempted file.
func (c *Coordinator) Upload(ctx context.Context, files []*intake.CandidateFile, prior State) CycleResult {
	names := make([]string, len(files))
	byName := make(map[string]*intake.CandidateFile, len(files))
	for i, f := range files {
		names[i] = f.Name
		if _, ok := byName[f.Name]; !ok {
			byName[f.Name] = f
		}
	}

	eligible := Eligible(names, prior.Errors, prior.Successes)
	if len(eligible) == 0 {
		return CycleResult{}
	}

	done := c.metrics.cycleStarted()
	defer done()

	c.logger.Info(ctx, "upload cycle started", "files", len(eligible), "prefix", c.opts.PathPrefix)

	outcomes := make([]Outcome, len(eligible))

	var g errgroup.Group
	if c.opts.Concurrency > 0 {
		g.SetLimit(c.opts.Concurrency)
	}
	for i, name := range eligible {
		f := byName[name]
		g.Go(func() error {
			outcomes[i] = c.uploadOne(ctx, f)
			c.metrics.observeFile(outcomes[i].Failed())
			return nil
		})
	}
	_ = g.Wait()

	result := CycleResult{Outcomes: outcomes}
	c.logger.Info(ctx, "upload cycle finished", "succeeded", len(result.Successes()), "failed", len(result.Errors()))
	return result
}

func (c *Coordinator) uploadOne(ctx context.Context, f *intake.CandidateFile) Outcome {
	key := sanitize.StorageKey(c.opts.PathPrefix, f.Name)
	log := c.logger.With("file", f.Name, "key", key)

	// Checked before the blob write so a prefixed upload never leaves an
	// unrecorded object behind.
	if c.opts.PathPrefix != "" && c.meta == nil {
		log.Error(ctx, "prefixed upload without a metadata store")
		return Outcome{FileName: f.Name, Err: "metadata error: " + ErrNoMetadataStore.Error()}
	}

	if err := c.putBlob(ctx, key, f); err != nil {
		log.Warn(ctx, "blob write failed", "error", err)
		return Outcome{FileName: f.Name, Err: err.Error()}
	}

	if c.opts.PathPrefix == "" {
		log.Debug(ctx, "blob written")
		return Outcome{FileName: f.Name}
	}

	rec := &models.StorageRecord{
		ParentID:    c.opts.PathPrefix,
		DisplayName: f.Name,
		StorageKey:  key,
		SizeBytes:   f.Size,
		MimeType:    f.MimeType,
	}
	if err := c.meta.Insert(ctx, rec); err != nil {
		log.Error(ctx, "metadata write failed after blob write", "error", err)
		c.handleOrphan(ctx, log, key)
		return Outcome{FileName: f.Name, Err: "metadata error: " + err.Error()}
	}

	log.Debug(ctx, "file uploaded", "record_id", rec.ID)
	return Outcome{FileName: f.Name}
}

func (c *Coordinator) putBlob(ctx context.Context, key string, f *intake.CandidateFile) error {
	if f.Open == nil {
		return fmt.Errorf("no content for %q", f.Name)
	}

	body, err := f.Open()
	if err != nil {
		return fmt.Errorf("open %q: %w", f.Name, err)
	}
	defer func(body io.ReadCloser) { _ = body.Close() }(body)

	return c.blobs.Put(ctx, c.opts.Bucket, key, body, f.Size, PutOptions{
		CacheControlSeconds: c.opts.CacheControlSeconds,
		Upsert:              c.opts.Upsert,
		ContentType:         f.MimeType,
	})
}

// handleOrphan deals with a blob whose metadata row failed to persist. The
// file's outcome is an error either way.
func (c *Coordinator) handleOrphan(ctx context.Context, log logging.Logger, key string) {
	if !c.opts.CompensateOrphans || c.opts.Upsert {
		c.metrics.observeOrphan("kept")
		log.Warn(ctx, "orphaned blob left in place")
		return
	}

	// The unit's own ctx may already be cancelled; the compensation must
	// still run.
	rmCtx := context.WithoutCancel(ctx)
	if err := c.blobs.Remove(rmCtx, c.opts.Bucket, []string{key}); err != nil {
		c.metrics.observeOrphan("remove_failed")
		log.Error(ctx, "orphaned blob could not be removed", "error", err)
		return
	}
	c.metrics.observeOrphan("removed")
	log.Info(ctx, "orphaned blob removed")
}
