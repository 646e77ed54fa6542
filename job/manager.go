package job

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"

	"songfetch/artifact"
	"songfetch/progress"
)

// FetchStage and TranscodeStage push scaled percents to updates while they
// run and must not close the channel.
type FetchStage interface {
	Run(ctx context.Context, remoteID, dest string, updates chan<- float64) error
}

type TranscodeStage interface {
	Run(ctx context.Context, src, dest string, updates chan<- float64) error
}

// Publisher receives every event of every job.
type Publisher interface {
	Publish(jobID string, ev progress.Event)
}

// SaveFunc writes a job's input to dest.
type SaveFunc func(dest string) error

type Manager struct {
	jobs      sync.Map
	paths     *artifact.Manager
	publisher Publisher
	fetch     FetchStage
	transcode TranscodeStage
	direct    TranscodeStage
	logger    hclog.Logger
}

// NewManager wires the pipeline. transcode is used after a fetch, direct for
// uploaded files.
func NewManager(paths *artifact.Manager, publisher Publisher, fetch FetchStage, transcode, direct TranscodeStage, logger hclog.Logger) *Manager {
	return &Manager{
		paths:     paths,
		publisher: publisher,
		fetch:     fetch,
		transcode: transcode,
		direct:    direct,
		logger:    logger,
	}
}

// tracked is the live state of a running job.
type tracked struct {
	mu        sync.Mutex
	job       Job
	published bool
}

func (t *tracked) snapshot() Job {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.job
}

func (t *tracked) transition(to State) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.job.transition(to)
}

// Start runs the fetch and transcode pipeline for remoteID under jobID and
// blocks until the job is finished. The job keeps running if ctx is canceled.
func (m *Manager) Start(ctx context.Context, jobID, remoteID string) (Job, error) {
	t, err := m.register(jobID, remoteID, m.paths.InputPath(jobID, remoteID))
	if err != nil {
		return Job{}, err
	}
	return m.runPipeline(context.WithoutCancel(ctx), t)
}

// Submit starts the same pipeline as Start in the background and returns at once.
func (m *Manager) Submit(jobID, remoteID string) (Job, error) {
	t, err := m.register(jobID, remoteID, m.paths.InputPath(jobID, remoteID))
	if err != nil {
		return Job{}, err
	}
	go m.runPipeline(context.Background(), t)
	return t.snapshot(), nil
}

// Convert transcodes a file provided by the caller. save writes the upload to
// the job's input path; the output is left for the caller to deliver and remove.
func (m *Manager) Convert(ctx context.Context, jobID string, save SaveFunc) (Job, error) {
	t, err := m.register(jobID, "", m.paths.UploadPath(jobID))
	if err != nil {
		return Job{}, err
	}
	ctx = context.WithoutCancel(ctx)

	in, out := t.job.InputPath, t.job.OutputPath
	if err := save(in); err != nil {
		return m.fail(t, fmt.Errorf("could not store upload: %w", err))
	}

	m.publishPercent(t, 0)
	if err := t.transition(StateTranscoding); err != nil {
		return m.fail(t, err)
	}
	if err := m.runStage(t, func(updates chan<- float64) error {
		return m.direct.Run(ctx, in, out, updates)
	}); err != nil {
		return m.fail(t, err)
	}
	return m.complete(t)
}

func (m *Manager) Get(jobID string) (Job, bool) {
	if v, ok := m.jobs.Load(jobID); ok {
		return v.(*tracked).snapshot(), true
	}
	return Job{}, false
}

// List returns the jobs that are still running.
func (m *Manager) List() []Job {
	var jobs []Job
	m.jobs.Range(func(_, v interface{}) bool {
		jobs = append(jobs, v.(*tracked).snapshot())
		return true
	})
	return jobs
}

// Owns reports whether artifactName is the output of a job that is still running.
func (m *Manager) Owns(artifactName string) bool {
	owned := false
	m.jobs.Range(func(_, v interface{}) bool {
		t := v.(*tracked)
		if filepath.Base(t.job.OutputPath) == artifactName {
			owned = true
			return false
		}
		return true
	})
	return owned
}

func (m *Manager) register(jobID, remoteID, inputPath string) (*tracked, error) {
	t := &tracked{job: Job{
		ID:         jobID,
		RemoteID:   remoteID,
		State:      StateCreated,
		InputPath:  inputPath,
		OutputPath: m.paths.OutputPath(jobID),
		CreatedAt:  time.Now(),
	}}
	if _, loaded := m.jobs.LoadOrStore(jobID, t); loaded {
		return nil, fmt.Errorf("%w: %s", ErrJobExists, jobID)
	}
	m.logger.Info("job registered", "job", jobID, "remote_id", remoteID)
	return t, nil
}

func (m *Manager) runPipeline(ctx context.Context, t *tracked) (Job, error) {
	remoteID, in, out := t.job.RemoteID, t.job.InputPath, t.job.OutputPath

	m.publishPercent(t, 0)
	if err := t.transition(StateFetching); err != nil {
		return m.fail(t, err)
	}
	if err := m.runStage(t, func(updates chan<- float64) error {
		return m.fetch.Run(ctx, remoteID, in, updates)
	}); err != nil {
		return m.fail(t, err)
	}

	if err := t.transition(StateTranscoding); err != nil {
		return m.fail(t, err)
	}
	m.publishPercent(t, 50)
	if err := m.runStage(t, func(updates chan<- float64) error {
		return m.transcode.Run(ctx, in, out, updates)
	}); err != nil {
		return m.fail(t, err)
	}
	return m.complete(t)
}

// runStage runs stage while forwarding its updates to the publisher.
func (m *Manager) runStage(t *tracked, stage func(updates chan<- float64) error) error {
	updates := make(chan float64, 16)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for p := range updates {
			m.publishPercent(t, p)
		}
	}()

	err := stage(updates)
	close(updates)
	<-done
	return err
}

// publishPercent forwards p unless it would not advance the job's progress.
func (m *Manager) publishPercent(t *tracked, p float64) {
	t.mu.Lock()
	if t.published && p <= t.job.Percent {
		t.mu.Unlock()
		return
	}
	t.published = true
	t.job.Percent = p
	id := t.job.ID
	t.mu.Unlock()

	m.publisher.Publish(id, progress.Percent(p))
}

func (m *Manager) complete(t *tracked) (Job, error) {
	if err := t.transition(StateComplete); err != nil {
		return m.fail(t, err)
	}
	m.publishPercent(t, 100)

	t.mu.Lock()
	t.job.Artifact = filepath.Base(t.job.OutputPath)
	j := t.job
	t.mu.Unlock()

	m.paths.Cleanup(j.InputPath)
	m.release(t)
	m.publisher.Publish(j.ID, progress.Done(j.Artifact))
	m.logger.Info("job complete", "job", j.ID, "artifact", j.Artifact, "took", time.Since(j.CreatedAt))
	return j, nil
}

// release frees the job id before the terminal event goes out, so a client
// reacting to that event may reuse the id at once.
func (m *Manager) release(t *tracked) {
	m.jobs.CompareAndDelete(t.job.ID, t)
}

func (m *Manager) fail(t *tracked, cause error) (Job, error) {
	t.mu.Lock()
	// A failed transition means the job is already finished; force the state.
	if err := t.job.transition(StateFailed); err != nil {
		t.job.State = StateFailed
		now := time.Now()
		t.job.CompletedAt = &now
	}
	t.job.Error = cause.Error()
	j := t.job
	t.mu.Unlock()

	m.paths.Cleanup(j.InputPath, j.OutputPath)
	m.release(t)
	m.publisher.Publish(j.ID, progress.Error(j.Error))
	m.logger.Error("job failed", "job", j.ID, "error", cause)
	return j, cause
}
