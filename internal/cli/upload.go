package cli

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/dmitrijs2005/filedrop/internal/blobstore"
	"github.com/dmitrijs2005/filedrop/internal/dbx"
	"github.com/dmitrijs2005/filedrop/internal/filex"
	"github.com/dmitrijs2005/filedrop/internal/intake"
	"github.com/dmitrijs2005/filedrop/internal/models"
	"github.com/dmitrijs2005/filedrop/internal/server/config"
	"github.com/dmitrijs2005/filedrop/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/filedrop/internal/upload"
)

// ErrIncomplete is returned when files are still failed after the last
// attempt.
var ErrIncomplete = errors.New("upload incomplete")

var (
	newS3Store = func(ctx context.Context, c blobstore.S3Config) (upload.BlobStore, error) {
		return blobstore.NewS3Store(ctx, c)
	}

	openDB = func(dsn string) (*sql.DB, error) {
		return sql.Open("pgx", dsn)
	}

	// isInteractive reports whether in is a terminal a retry prompt can be
	// shown on.
	isInteractive = func(in io.Reader) bool {
		f, ok := in.(*os.File)
		return ok && term.IsTerminal(int(f.Fd()))
	}
)

type uploadFlags struct {
	project     string
	dryRun      bool
	retries     int
	bucket      string
	upsert      bool
	concurrency int
	maxFiles    int
	maxSize     int64
	allow       []string
	dsn         string
}

func newUploadCmd() *cobra.Command {
	f := &uploadFlags{}

	cmd := &cobra.Command{
		Use:   "upload [flags] FILE...",
		Short: "Upload files as one batch",
		Long: `Upload files as one batch.

Every file is attempted once per cycle. Files that fail are retried up to
--retries times; on a terminal you are then asked whether to try again.
Files that already succeeded are never uploaded twice.

Settings default to the FILEDROP_* environment used by the server.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadFromEnv(environ())
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}
			f.apply(cmd, cfg)
			return runUpload(cmd, cfg, f, args)
		},
	}

	fl := cmd.Flags()
	fl.StringVarP(&f.project, "project", "p", "", "project id; prefixes the keys and records metadata")
	fl.BoolVar(&f.dryRun, "dry-run", false, "upload into memory instead of S3 and Postgres")
	fl.IntVarP(&f.retries, "retries", "r", 0, "automatic retries of failed files")
	fl.StringVarP(&f.bucket, "bucket", "b", "", "target bucket")
	fl.BoolVar(&f.upsert, "upsert", false, "overwrite existing objects")
	fl.IntVarP(&f.concurrency, "concurrency", "j", 0, "files uploaded at once")
	fl.IntVar(&f.maxFiles, "max-files", 0, "files accepted in the batch")
	fl.Int64Var(&f.maxSize, "max-size", 0, "largest accepted file in bytes")
	fl.StringSliceVar(&f.allow, "allow", nil, "accepted mime types, e.g. image/*,application/pdf")
	fl.StringVar(&f.dsn, "dsn", "", "Postgres DSN for metadata records")

	return cmd
}

// apply overlays the flags the user set onto c.
func (f *uploadFlags) apply(cmd *cobra.Command, c *config.Config) {
	changed := cmd.Flags().Changed
	if changed("bucket") {
		c.S3Bucket = f.bucket
	}
	if changed("upsert") {
		c.Upsert = f.upsert
	}
	if changed("concurrency") {
		c.UploadConcurrency = f.concurrency
	}
	if changed("max-files") {
		c.MaxFiles = f.maxFiles
	}
	if changed("max-size") {
		c.MaxFileSize = f.maxSize
	}
	if changed("allow") {
		c.AllowedMimeTypes = f.allow
	}
	if changed("dsn") {
		c.DatabaseDSN = f.dsn
	}
}

func runUpload(cmd *cobra.Command, cfg *config.Config, f *uploadFlags, paths []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	logger := newLogger(cmd)

	files, err := filex.RawFiles(paths)
	if err != nil {
		return err
	}

	b, err := openBackends(ctx, cfg, f)
	if err != nil {
		return err
	}
	defer b.close()

	coordinator, err := upload.NewCoordinator(upload.Options{
		Bucket:              cfg.S3Bucket,
		PathPrefix:          f.project,
		CacheControlSeconds: cfg.CacheControlSeconds,
		Upsert:              cfg.Upsert,
		Concurrency:         cfg.UploadConcurrency,
		CompensateOrphans:   cfg.CompensateOrphans,
	}, b.blobs, b.meta, logger, nil)
	if err != nil {
		return err
	}

	sess := upload.NewSession(coordinator, intake.Constraints{
		AllowedMimeTypes: cfg.AllowedMimeTypes,
		MaxFileSize:      cfg.MaxFileSize,
		MaxFiles:         cfg.MaxFiles,
	}, intake.NewPreviewRegistry())
	defer sess.Close()

	if _, err := sess.Add(files); err != nil {
		return err
	}
	printViolations(out, sess.Snapshot())

	in := cmd.InOrStdin()
	reader := bufio.NewReader(in)
	interactive := isInteractive(in)

	for attempt := 1; ; attempt++ {
		result, err := sess.Upload(ctx)
		if err != nil {
			return err
		}
		printCycle(out, attempt, result)

		if sess.IsSuccess() {
			break
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if attempt <= f.retries {
			continue
		}
		failed := len(sess.Snapshot().Errors)
		if !interactive || !confirm(reader, out, fmt.Sprintf("Retry %d failed file(s)? [y/N] ", failed)) {
			return fmt.Errorf("%w: %d of %d files failed", ErrIncomplete, failed, len(files))
		}
	}

	fmt.Fprintf(out, "%s %d file(s) uploaded to %s\n", bold("done:"), len(files), cfg.S3Bucket)
	if b.memory != nil {
		for _, k := range b.memory.Keys(cfg.S3Bucket) {
			fmt.Fprintf(out, "  %s\n", k)
		}
	}
	return nil
}

type backends struct {
	blobs  upload.BlobStore
	meta   upload.MetadataStore
	memory *blobstore.MemoryStore
	close  func()
}

func openBackends(ctx context.Context, cfg *config.Config, f *uploadFlags) (*backends, error) {
	if f.dryRun {
		m := blobstore.NewMemoryStore()
		return &backends{blobs: m, meta: &memoryRecords{}, memory: m, close: func() {}}, nil
	}

	blobs, err := newS3Store(ctx, blobstore.S3Config{
		Region:       cfg.S3Region,
		AccessKey:    cfg.S3RootUser,
		SecretKey:    cfg.S3RootPassword,
		BaseEndpoint: cfg.S3BaseEndpoint,
		UsePathStyle: cfg.S3UsePathStyle,
	})
	if err != nil {
		return nil, err
	}

	b := &backends{blobs: blobs, close: func() {}}
	if f.project == "" {
		return b, nil
	}

	db, err := openDB(cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	if err := dbx.Ping(ctx, db, 5*time.Second); err != nil {
		_ = db.Close()
		return nil, err
	}
	b.meta = repomanager.NewPostgresRepositoryManager().Files(db)
	b.close = func() { _ = db.Close() }
	return b, nil
}

// memoryRecords keeps the records of a dry run.
type memoryRecords struct {
	mu      sync.Mutex
	records []*models.StorageRecord
}

func (m *memoryRecords) Insert(_ context.Context, rec *models.StorageRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, rec)
	return nil
}

func printViolations(w io.Writer, v upload.View) {
	for _, f := range v.Files {
		for _, viol := range f.Violations {
			fmt.Fprintf(w, "%s %s: %s (%s)\n", red("rejected"), f.Name, viol.Message, viol.Code)
		}
	}
}

func printCycle(w io.Writer, attempt int, r upload.CycleResult) {
	fmt.Fprintf(w, "%s\n", bold(fmt.Sprintf("attempt %d", attempt)))
	for _, o := range r.Outcomes {
		if o.Failed() {
			fmt.Fprintf(w, "  %s %s: %s\n", red("failed"), o.FileName, o.Err)
			continue
		}
		fmt.Fprintf(w, "  %s %s\n", green("ok"), o.FileName)
	}
}

func confirm(r *bufio.Reader, w io.Writer, prompt string) bool {
	fmt.Fprint(w, prompt)
	line, err := r.ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}
