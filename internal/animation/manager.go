package animation

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/data-studio/backend/internal/chart"
	"github.com/data-studio/backend/internal/config"
	"github.com/data-studio/backend/internal/storage"
)

// JobStatus is the lifecycle state of an animation job.
type JobStatus string

const (
	JobQueued    JobStatus = "queued"
	JobRendering JobStatus = "rendering"
	JobEncoding  JobStatus = "encoding"
	JobDone      JobStatus = "done"
	JobError     JobStatus = "error"
)

// Job tracks one animation render from request to finished video.
type Job struct {
	ID          string    `json:"id"`
	DatasetID   string    `json:"datasetId"`
	ChartType   string    `json:"chartType"`
	Title       string    `json:"title"`
	Status      JobStatus `json:"status"`
	Progress    float64   `json:"progress"` // 0..1
	FramesDone  int       `json:"framesDone"`
	FrameCount  int       `json:"frameCount"`
	DurationS   int       `json:"durationSeconds"`
	FPS         int       `json:"fps"`
	Format      string    `json:"format,omitempty"`
	ContentType string    `json:"-"`
	VideoFileID string    `json:"-"`
	Error       string    `json:"error,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	CompletedAt time.Time `json:"completedAt,omitempty"`
}

// Manager runs animation jobs in the background, bounded by a concurrency
// limit, and keeps their status for polling.
type Manager struct {
	mu      sync.RWMutex
	jobs    map[string]*Job
	store   storage.Store
	encoder *Encoder
	cfg     config.AnimationConfig
	sem     chan struct{}
}

// NewManager creates an animation job manager.
func NewManager(store storage.Store, encoder *Encoder, cfg config.AnimationConfig) *Manager {
	maxConcurrent := cfg.MaxConcurrent
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &Manager{
		jobs:    make(map[string]*Job),
		store:   store,
		encoder: encoder,
		cfg:     cfg,
		sem:     make(chan struct{}, maxConcurrent),
	}
}

// ClampDuration bounds the requested duration to the configured range.
func (m *Manager) ClampDuration(seconds int) int {
	if seconds < m.cfg.MinDurationS {
		return m.cfg.MinDurationS
	}
	if seconds > m.cfg.MaxDurationS {
		return m.cfg.MaxDurationS
	}
	return seconds
}

// ClampFPS bounds the requested frame rate to the configured range.
func (m *Manager) ClampFPS(fps int) int {
	if fps < m.cfg.MinFPS {
		return m.cfg.MinFPS
	}
	if fps > m.cfg.MaxFPS {
		return m.cfg.MaxFPS
	}
	return fps
}

// Start queues an animation job for the given chart data and returns it
// immediately. Rendering happens in the background.
func (m *Manager) Start(datasetID string, data *chart.Data, durationS, fps int) *Job {
	durationS = m.ClampDuration(durationS)
	fps = m.ClampFPS(fps)

	// Frames render at the configured video size regardless of the chart
	// spec's own dimensions.
	data.Spec.Width = m.cfg.FrameWidth
	data.Spec.Height = m.cfg.FrameHeight

	job := &Job{
		ID:         uuid.New().String(),
		DatasetID:  datasetID,
		ChartType:  string(data.Spec.Type),
		Title:      data.Spec.Title,
		Status:     JobQueued,
		DurationS:  durationS,
		FPS:        fps,
		FrameCount: durationS * fps,
		Format:     m.encoder.Format(),
		CreatedAt:  time.Now(),
	}

	m.mu.Lock()
	m.jobs[job.ID] = job
	m.mu.Unlock()

	go m.run(job, data)

	return job
}

// GetJob returns a snapshot of a job.
func (m *Manager) GetJob(id string) (Job, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	job, ok := m.jobs[id]
	if !ok {
		return Job{}, false
	}
	return *job, true
}

// JobsForDataset returns snapshots of all jobs for one dataset, newest first.
func (m *Manager) JobsForDataset(datasetID string) []Job {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Job
	for _, job := range m.jobs {
		if job.DatasetID == datasetID {
			out = append(out, *job)
		}
	}
	sortJobs(out)
	return out
}

// ActiveJobs returns snapshots of all jobs that are not yet finished.
func (m *Manager) ActiveJobs() []Job {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Job
	for _, job := range m.jobs {
		if job.Status != JobDone && job.Status != JobError {
			out = append(out, *job)
		}
	}
	sortJobs(out)
	return out
}

// CleanupOldJobs drops finished jobs older than maxAge and deletes their
// videos from storage. Returns how many were removed.
func (m *Manager) CleanupOldJobs(maxAge time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	now := time.Now()
	for id, job := range m.jobs {
		if job.Status != JobDone && job.Status != JobError {
			continue
		}
		if now.Sub(job.CompletedAt) < maxAge {
			continue
		}
		if job.VideoFileID != "" {
			m.store.Delete(job.VideoFileID)
		}
		delete(m.jobs, id)
		removed++
	}

	if removed > 0 {
		fmt.Printf("[Anim] Cleaned up %d finished jobs\n", removed)
	}
	return removed
}

func (m *Manager) run(job *Job, data *chart.Data) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Printf("[Anim %s] PANIC: %v\n", shortID(job.ID), r)
			m.fail(job.ID, fmt.Sprintf("internal error: %v", r))
		}
	}()

	m.sem <- struct{}{}
	defer func() { <-m.sem }()

	m.update(job.ID, func(j *Job) { j.Status = JobRendering })
	fmt.Printf("[Anim %s] Rendering %d frames (%s, %ds @ %dfps)\n",
		shortID(job.ID), job.FrameCount, job.ChartType, job.DurationS, job.FPS)

	frameCount := job.FrameCount
	renderFrame := func(i int) ([]byte, error) {
		t := 0.0
		if frameCount > 1 {
			t = float64(i) / float64(frameCount-1)
		}
		frame, opts := FrameAt(data, EaseInOutCubic(t))
		return chart.Render(frame, opts)
	}
	frameDone := func(i int) {
		m.update(job.ID, func(j *Job) {
			j.FramesDone = i + 1
			j.Progress = float64(i+1) / float64(frameCount) * 0.95
			if i == frameCount-1 {
				j.Status = JobEncoding
			}
		})
	}

	video, format, err := m.encoder.Encode(job.ID, m.cfg.FrameWidth, m.cfg.FrameHeight,
		job.FPS, frameCount, renderFrame, frameDone)
	if err != nil {
		fmt.Printf("[Anim %s] Failed: %v\n", shortID(job.ID), err)
		m.fail(job.ID, err.Error())
		return
	}

	// format reflects the container actually written; the encoder falls
	// back to AVI when the MP4 transcode fails.
	name := fmt.Sprintf("animation_%s.%s", shortID(job.ID), format)
	info, err := m.store.SaveArtifact(name, VideoContentType(format), video)
	if err != nil {
		fmt.Printf("[Anim %s] Failed to store video: %v\n", shortID(job.ID), err)
		m.fail(job.ID, err.Error())
		return
	}

	m.update(job.ID, func(j *Job) {
		j.Status = JobDone
		j.Progress = 1
		j.Format = format
		j.VideoFileID = info.ID
		j.ContentType = info.ContentType
		j.CompletedAt = time.Now()
	})
	fmt.Printf("[Anim %s] Done: %s (%d bytes)\n", shortID(job.ID), name, len(video))
}

func (m *Manager) update(id string, fn func(*Job)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if job, ok := m.jobs[id]; ok {
		fn(job)
	}
}

func (m *Manager) fail(id, msg string) {
	m.update(id, func(j *Job) {
		j.Status = JobError
		j.Error = msg
		j.CompletedAt = time.Now()
	})
}

func sortJobs(jobs []Job) {
	for i := 1; i < len(jobs); i++ {
		for j := i; j > 0 && jobs[j].CreatedAt.After(jobs[j-1].CreatedAt); j-- {
			jobs[j], jobs[j-1] = jobs[j-1], jobs[j]
		}
	}
}
