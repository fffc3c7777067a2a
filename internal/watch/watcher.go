// Package watch turns files dropped into the input directory into jobs.
//
// The watcher debounces filesystem events per path so partially written
// files are not ingested, then creates one job per input object. Ingestion
// is idempotent: a file already queued under the same input location is
// skipped via the duplicate-job check.
package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"

	"jsonpress/internal/config"
	"jsonpress/internal/jobs"
	"jsonpress/internal/logging"
	"jsonpress/internal/notifications"
	"jsonpress/internal/services"
)

// Watcher monitors the input directory and enqueues jobs.
type Watcher struct {
	cfg      *config.Config
	store    *jobs.Store
	logger   *slog.Logger
	notifier notifications.Service
	settle   time.Duration

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	fs      *fsnotify.Watcher
	wg      sync.WaitGroup
}

// NewWatcher constructs a watcher over the configured input directory.
func NewWatcher(cfg *config.Config, store *jobs.Store, logger *slog.Logger, notifier notifications.Service) *Watcher {
	if logger == nil {
		logger = logging.NewNop()
	}
	settle := time.Duration(cfg.Watch.SettleMillis) * time.Millisecond
	if settle <= 0 {
		settle = 250 * time.Millisecond
	}
	return &Watcher{
		cfg:      cfg,
		store:    store,
		logger:   logging.NewComponentLogger(logger, "watcher"),
		notifier: notifier,
		settle:   settle,
	}
}

// Start ingests files already present in the input directory and begins
// watching for new ones.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return errors.New("watcher already running")
	}

	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fs watcher: %w", err)
	}
	if err := fs.Add(w.cfg.Paths.InputDir); err != nil {
		fs.Close()
		return fmt.Errorf("watch input dir: %w", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	w.fs = fs
	w.cancel = cancel
	w.running = true

	w.wg.Add(1)
	go w.run(runCtx, fs)

	if err := w.ingestExisting(runCtx); err != nil {
		w.logger.Warn("initial scan failed", logging.Error(err))
	}
	return nil
}

// Stop terminates the watcher and waits for the event loop to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	cancel := w.cancel
	fs := w.fs
	w.running = false
	w.cancel = nil
	w.fs = nil
	w.mu.Unlock()

	cancel()
	fs.Close()
	w.wg.Wait()
}

func (w *Watcher) run(ctx context.Context, fs *fsnotify.Watcher) {
	defer w.wg.Done()

	timers := make(map[string]*time.Timer)
	defer func() {
		for _, t := range timers {
			t.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-fs.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			path := event.Name
			if t, exists := timers[path]; exists {
				t.Stop()
			}
			timers[path] = time.AfterFunc(w.settle, func() {
				if err := w.Ingest(ctx, path); err != nil {
					w.logger.Warn("ingest failed",
						logging.String("path", path),
						logging.Error(err),
					)
				}
			})
		case err, ok := <-fs.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch error", logging.Error(err))
		}
	}
}

// ingestExisting enqueues files that landed while the daemon was down.
func (w *Watcher) ingestExisting(ctx context.Context) error {
	entries, err := os.ReadDir(w.cfg.Paths.InputDir)
	if err != nil {
		return fmt.Errorf("scan input dir: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(w.cfg.Paths.InputDir, entry.Name())
		if err := w.Ingest(ctx, path); err != nil {
			w.logger.Warn("ingest failed",
				logging.String("path", path),
				logging.Error(err),
			)
		}
	}
	return nil
}

// Ingest creates a job for one input file. Files that do not match the
// expected naming convention are skipped without error so stray files
// cannot wedge the watcher.
func (w *Watcher) Ingest(ctx context.Context, path string) error {
	name := filepath.Base(path)
	owner, fileName, ok := ParseInputName(name)
	if !ok {
		w.logger.Debug("skipping non-input file", logging.String("path", path))
		return nil
	}

	existing, err := w.store.FindByInputLocation(ctx, name)
	if err != nil {
		return err
	}
	if existing != nil && !existing.Status.IsTerminal() {
		w.logger.Debug("input already queued",
			logging.String(logging.FieldReferenceID, existing.ReferenceID),
			logging.String("path", path),
		)
		return nil
	}

	meta := jobs.Metadata{
		ReferenceID:   NewReferenceID(),
		OwnerEmail:    owner,
		FileName:      fileName,
		InputLocation: name,
		OutputFormat:  w.cfg.Flatten.OutputFormat,
	}
	rec, err := w.store.Create(ctx, meta)
	if err != nil {
		if errors.Is(err, services.ErrDuplicateJob) {
			return nil
		}
		return err
	}

	w.logger.Info("job queued",
		logging.String(logging.FieldReferenceID, rec.ReferenceID),
		logging.String("owner_email", rec.OwnerEmail),
		logging.String("file_name", rec.FileName),
		logging.String(logging.FieldEventType, "job_queued"),
	)
	if err := w.notifier.NotifyJobQueued(ctx, rec.ReferenceID, rec.FileName); err != nil {
		w.logger.Warn("notification failed", logging.Error(err))
	}
	return nil
}

// ParseInputName splits "{email}_{name}.json" into its owner email and
// original file name. Hidden files and anything without the underscore
// separator or .json suffix are rejected.
func ParseInputName(name string) (owner, fileName string, ok bool) {
	if strings.HasPrefix(name, ".") || !strings.EqualFold(filepath.Ext(name), ".json") {
		return "", "", false
	}
	sep := strings.Index(name, "_")
	if sep <= 0 || sep == len(name)-len(".json")-1 {
		return "", "", false
	}
	owner = name[:sep]
	fileName = name[sep+1:]
	if !strings.Contains(owner, "@") {
		return "", "", false
	}
	return owner, fileName, true
}

// NewReferenceID returns a fresh job reference like "REF-5f2b...".
func NewReferenceID() string {
	return "REF-" + uuid.NewString()
}
