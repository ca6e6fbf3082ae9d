package organize

import (
	"sync"
	"time"

	"github.com/M0hammedHaris/snaptrace/internal/model"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Task tracks one organize run executing on a background goroutine.
type Task struct {
	ID        string           `json:"task_id"`
	Status    model.RunStatus  `json:"status"`
	Progress  int              `json:"progress"` // percent
	Processed int              `json:"processed"`
	Total     int              `json:"total"`
	Stage     string           `json:"stage"`
	Stats     model.Statistics `json:"stats"`
	Error     string           `json:"error,omitempty"`
	CreatedAt time.Time        `json:"created_at"`

	runner *Runner
}

// Manager owns the background organize tasks.
type Manager struct {
	mu    sync.RWMutex
	tasks map[string]*Task
}

// NewManager creates an empty task manager.
func NewManager() *Manager {
	return &Manager{tasks: make(map[string]*Task)}
}

// Launch starts the runner on a goroutine and returns a snapshot of the
// tracking task. The live task is only reachable through Get, which copies
// it under the lock; handing out the mutated struct itself would race with
// the progress callback. onDone is invoked once with the final task state
// and the run summary (summary is nil when the run failed before producing
// one).
func (m *Manager) Launch(r *Runner, onDone func(task *Task, sum *Summary)) *Task {
	m.CleanExpired()

	task := &Task{
		ID:        uuid.NewString(),
		Status:    model.RunProcessing,
		CreatedAt: time.Now(),
		runner:    r,
	}
	r.progress = func(current, total int, stage string) {
		m.mu.Lock()
		task.Processed = current
		task.Total = total
		task.Stage = stage
		if total > 0 {
			task.Progress = current * 100 / total
		}
		task.Stats = r.Stats()
		m.mu.Unlock()
	}

	m.mu.Lock()
	m.tasks[task.ID] = task
	snapshot := *task
	snapshot.runner = nil
	m.mu.Unlock()

	go func() {
		sum, err := r.Run()

		m.mu.Lock()
		switch {
		case err != nil:
			task.Status = model.RunFailed
			task.Error = err.Error()
		case sum.Cancelled:
			task.Status = model.RunCancelled
			task.Stats = sum.Stats
		default:
			task.Status = model.RunCompleted
			task.Progress = 100
			task.Stats = sum.Stats
		}
		m.mu.Unlock()

		if err != nil {
			log.Error().Err(err).Str("task_id", task.ID).Msg("organize run failed")
		}
		if onDone != nil {
			onDone(task, sum)
		}
	}()

	return &snapshot
}

// Get returns a snapshot of the task, or nil when unknown.
func (m *Manager) Get(taskID string) *Task {
	m.mu.RLock()
	defer m.mu.RUnlock()
	task, ok := m.tasks[taskID]
	if !ok {
		return nil
	}
	snapshot := *task
	snapshot.runner = nil
	return &snapshot
}

// Cancel requests cooperative cancellation of a running task.
func (m *Manager) Cancel(taskID string) bool {
	m.mu.RLock()
	task, ok := m.tasks[taskID]
	m.mu.RUnlock()
	if !ok || task.runner == nil {
		return false
	}
	task.runner.Cancel()
	return true
}

// Running reports whether any task is still processing.
func (m *Manager) Running() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, t := range m.tasks {
		if t.Status == model.RunProcessing {
			return true
		}
	}
	return false
}

// CleanExpired drops finished tasks older than one hour.
func (m *Manager) CleanExpired() {
	m.mu.Lock()
	defer m.mu.Unlock()
	cutoff := time.Now().Add(-1 * time.Hour)
	for id, t := range m.tasks {
		if t.Status != model.RunProcessing && t.CreatedAt.Before(cutoff) {
			delete(m.tasks, id)
		}
	}
}
