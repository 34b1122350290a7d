package animation

import (
	"testing"
	"time"

	"github.com/data-studio/backend/internal/chart"
	"github.com/data-studio/backend/internal/config"
	"github.com/data-studio/backend/internal/models"
	"github.com/data-studio/backend/internal/testutil"
)

func testAnimConfig() config.AnimationConfig {
	return config.AnimationConfig{
		FrameWidth:    320,
		FrameHeight:   240,
		MinDurationS:  1,
		MaxDurationS:  10,
		MinFPS:        2,
		MaxFPS:        60,
		MaxConcurrent: 2,
	}
}

func testBarData() *chart.Data {
	return &chart.Data{
		Spec:   models.ChartSpec{Type: models.ChartTypeBar, Title: "Test", Width: 320, Height: 240},
		Labels: []string{"a", "b", "c"},
		Values: []float64{10, 20, 15},
	}
}

func waitForJob(t *testing.T, m *Manager, id string) Job {
	t.Helper()
	deadline := time.Now().Add(60 * time.Second)
	for time.Now().Before(deadline) {
		job, ok := m.GetJob(id)
		if !ok {
			t.Fatalf("Job %s disappeared", id)
		}
		if job.Status == JobDone || job.Status == JobError {
			return job
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatalf("Job %s did not finish in time", id)
	return Job{}
}

func TestManagerClamps(t *testing.T) {
	m := NewManager(testutil.NewMockStore(t.TempDir()), NewEncoder(t.TempDir()), testAnimConfig())

	if got := m.ClampDuration(0); got != 1 {
		t.Errorf("Expected duration clamped to 1, got %d", got)
	}
	if got := m.ClampDuration(100); got != 10 {
		t.Errorf("Expected duration clamped to 10, got %d", got)
	}
	if got := m.ClampFPS(1); got != 2 {
		t.Errorf("Expected fps clamped to 2, got %d", got)
	}
	if got := m.ClampFPS(120); got != 60 {
		t.Errorf("Expected fps clamped to 60, got %d", got)
	}
}

func TestManagerRunsJob(t *testing.T) {
	store := testutil.NewMockStore(t.TempDir())
	m := NewManager(store, NewEncoder(t.TempDir()), testAnimConfig())

	job := m.Start("ds-1", testBarData(), 1, 2)
	if job.Status != JobQueued && job.Status != JobRendering {
		t.Errorf("Unexpected initial status: %s", job.Status)
	}
	if job.FrameCount != 2 {
		t.Errorf("Expected 2 frames for 1s @ 2fps, got %d", job.FrameCount)
	}

	done := waitForJob(t, m, job.ID)
	if done.Status != JobDone {
		t.Fatalf("Job failed: %s", done.Error)
	}
	if done.Progress != 1 {
		t.Errorf("Expected progress 1, got %v", done.Progress)
	}
	if done.VideoFileID == "" {
		t.Fatal("Expected a stored video file")
	}

	info, err := store.Get(done.VideoFileID)
	if err != nil {
		t.Fatalf("Video not in storage: %v", err)
	}
	if info.Size == 0 {
		t.Error("Expected a non-empty video")
	}
}

func TestManagerJobQueries(t *testing.T) {
	store := testutil.NewMockStore(t.TempDir())
	m := NewManager(store, NewEncoder(t.TempDir()), testAnimConfig())

	a := m.Start("ds-1", testBarData(), 1, 2)
	b := m.Start("ds-2", testBarData(), 1, 2)

	jobs := m.JobsForDataset("ds-1")
	if len(jobs) != 1 || jobs[0].ID != a.ID {
		t.Errorf("JobsForDataset returned %v", jobs)
	}

	waitForJob(t, m, a.ID)
	waitForJob(t, m, b.ID)

	if active := m.ActiveJobs(); len(active) != 0 {
		t.Errorf("Expected no active jobs after completion, got %d", len(active))
	}
}

func TestManagerCleanupOldJobs(t *testing.T) {
	store := testutil.NewMockStore(t.TempDir())
	m := NewManager(store, NewEncoder(t.TempDir()), testAnimConfig())

	job := m.Start("ds-1", testBarData(), 1, 2)
	done := waitForJob(t, m, job.ID)

	// Fresh jobs survive
	if removed := m.CleanupOldJobs(time.Hour); removed != 0 {
		t.Errorf("Expected no jobs removed, got %d", removed)
	}

	if removed := m.CleanupOldJobs(0); removed != 1 {
		t.Errorf("Expected 1 job removed, got %d", removed)
	}
	if _, ok := m.GetJob(job.ID); ok {
		t.Error("Expected job gone after cleanup")
	}
	if _, err := store.Get(done.VideoFileID); err == nil {
		t.Error("Expected video deleted with the job")
	}
}

func TestManagerUnknownJob(t *testing.T) {
	m := NewManager(testutil.NewMockStore(t.TempDir()), NewEncoder(t.TempDir()), testAnimConfig())
	if _, ok := m.GetJob("nope"); ok {
		t.Error("Expected missing job to report not found")
	}
}
