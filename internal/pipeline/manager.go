package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"jsonpress/internal/blob"
	"jsonpress/internal/config"
	"jsonpress/internal/jobs"
	"jsonpress/internal/logging"
	"jsonpress/internal/notifications"
	"jsonpress/internal/services"
)

// Manager coordinates job processing using the configured stage sequence.
type Manager struct {
	cfg      *config.Config
	store    *jobs.Store
	input    blob.Store
	output   blob.Store
	logger   *slog.Logger
	notifier notifications.Service

	retry              RetryPolicy
	pollInterval       time.Duration
	errorRetryInterval time.Duration
	ioTimeout          time.Duration

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewManager constructs a pipeline manager with filesystem-backed storage.
func NewManager(cfg *config.Config, store *jobs.Store, logger *slog.Logger) *Manager {
	return NewManagerWithNotifier(cfg, store, logger, notifications.NewService(cfg))
}

// NewManagerWithNotifier constructs a manager with a custom notifier (used in tests).
func NewManagerWithNotifier(cfg *config.Config, store *jobs.Store, logger *slog.Logger, notifier notifications.Service) *Manager {
	return NewManagerWithStores(cfg, store, logger, notifier,
		blob.NewFSStore(cfg.Paths.InputDir), blob.NewFSStore(cfg.Paths.OutputDir))
}

// NewManagerWithStores constructs a manager with explicit blob stores.
func NewManagerWithStores(cfg *config.Config, store *jobs.Store, logger *slog.Logger, notifier notifications.Service, input, output blob.Store) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Manager{
		cfg:                cfg,
		store:              store,
		input:              input,
		output:             output,
		logger:             logging.NewComponentLogger(logger, "pipeline"),
		notifier:           notifier,
		retry:              PolicyFromConfig(cfg),
		pollInterval:       time.Duration(cfg.Workflow.QueuePollInterval) * time.Second,
		errorRetryInterval: time.Duration(cfg.Workflow.ErrorRetryInterval) * time.Second,
		ioTimeout:          time.Duration(cfg.Workflow.IOTimeout) * time.Second,
	}
}

// Start begins background processing.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return errors.New("pipeline already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true

	workers := m.cfg.Workflow.Workers
	if workers < 1 {
		workers = 1
	}
	m.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go m.runWorker(runCtx, i)
	}
	return nil
}

// Stop terminates background processing and waits for in-flight jobs.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	m.wg.Wait()
}

func (m *Manager) runWorker(ctx context.Context, id int) {
	defer m.wg.Done()
	logger := m.logger.With(logging.Int("worker", id))

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		job, err := m.store.NextForStatuses(ctx, jobs.StatusCreated)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			logger.Error("failed to fetch next job",
				logging.Error(err),
				logging.String(logging.FieldEventType, "queue_fetch_failed"),
				logging.String(logging.FieldErrorHint, "check job database access"),
			)
			if !m.sleep(ctx, m.errorRetryInterval) {
				return
			}
			continue
		}
		if job == nil {
			if !m.sleep(ctx, m.pollInterval) {
				return
			}
			continue
		}

		if err := m.ProcessJob(ctx, job); err != nil && errors.Is(err, context.Canceled) {
			return
		}
	}
}

// ProcessJob claims the job and runs it through every stage, finishing with
// exactly one terminal transition. It is exported so the CLI can drain jobs
// without a daemon.
func (m *Manager) ProcessJob(ctx context.Context, job *jobs.Record) error {
	ctx = services.WithReferenceID(ctx, job.ReferenceID)
	logger := m.logger.With(logging.String(logging.FieldReferenceID, job.ReferenceID))

	claimed, err := m.store.Transition(ctx, job.ReferenceID, jobs.StatusRunning, jobs.Fields{
		Stage: jobs.StringPtr(StageFetch),
	})
	if err != nil {
		// Another worker got there first.
		if errors.Is(err, services.ErrInvalidTransition) || errors.Is(err, services.ErrNotFound) {
			logger.Debug("job already claimed", logging.Error(err))
			return nil
		}
		logger.Error("failed to claim job", logging.Error(err))
		return err
	}

	logger.Info("job started",
		logging.String("file_name", claimed.FileName),
		logging.String(logging.FieldEventType, "job_started"),
	)
	start := time.Now()
	exec := &execution{job: claimed}

	for i, st := range m.stages() {
		stageCtx := services.WithStage(ctx, st.name)
		stageLogger := logger.With(logging.String(logging.FieldStage, st.name))
		stageLogger.Debug("stage started")

		// The claim transition already recorded the first stage.
		if i > 0 {
			if err := m.store.UpdateStage(ctx, claimed.ReferenceID, st.name); err != nil {
				stageLogger.Warn("failed to record stage progress", logging.Error(err))
			}
		}

		if err := st.run(stageCtx, exec); err != nil {
			if errors.Is(err, context.Canceled) {
				// Leave the job running; retry-failed or a restart picks it up.
				stageLogger.Debug("shutdown during stage")
				return err
			}
			m.failJob(ctx, stageLogger, claimed, st.name, err)
			return nil
		}
		stageLogger.Debug("stage completed")
	}

	final, err := m.store.Transition(ctx, claimed.ReferenceID, jobs.StatusSucceeded, jobs.Fields{
		Stage:          jobs.StringPtr(StageExport),
		OutputLocation: jobs.StringPtr(exec.outputLocation),
	})
	if err != nil {
		logger.Error("failed to persist job success", logging.Error(err))
		return err
	}

	duration := time.Since(start)
	logger.Info("job succeeded",
		logging.String("output_location", final.OutputLocation),
		logging.Duration("duration", duration),
		logging.Int("rows", len(exec.table.Rows)),
		logging.Int("columns", len(exec.table.Columns)),
		logging.String(logging.FieldEventType, "job_succeeded"),
	)
	if err := m.notifier.NotifyJobSucceeded(ctx, final.ReferenceID, final.OutputLocation, duration); err != nil {
		logger.Warn("notification failed", logging.Error(err))
	}
	return nil
}

// failJob records the terminal failure. The stored message is a short
// summary for operators, not the full wrapped chain.
func (m *Manager) failJob(ctx context.Context, logger *slog.Logger, job *jobs.Record, stageName string, stageErr error) {
	message := services.Message(stageErr)
	logger.Error("stage failed",
		logging.Error(stageErr),
		logging.String("error_message", message),
		logging.String(logging.FieldEventType, "stage_failure"),
	)

	if _, err := m.store.Transition(ctx, job.ReferenceID, jobs.StatusFailed, jobs.Fields{
		Stage:        jobs.StringPtr(stageName),
		ErrorMessage: jobs.StringPtr(message),
	}); err != nil {
		logger.Error("failed to persist stage failure", logging.Error(err))
	}

	if err := m.notifier.NotifyJobFailed(ctx, job.ReferenceID, message); err != nil {
		logger.Warn("notification failed", logging.Error(err))
	}
}

// sleep waits for the duration or shutdown, reporting whether to continue.
func (m *Manager) sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		d = time.Second
	}
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
