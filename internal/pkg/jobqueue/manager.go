package jobqueue

import (
	"context"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/bantaydalan/bantaydalan-api/internal/pkg/metrics"
)

// Manager runs the queue together with its periodic housekeeping
type Manager struct {
	queue       *Queue
	depthTicker *time.Ticker
	stopCh      chan struct{}
	wg          sync.WaitGroup
	mu          sync.Mutex
	running     bool
}

func NewManager(queue *Queue) *Manager {
	return &Manager{queue: queue}
}

// GetQueue returns the managed job queue
func (m *Manager) GetQueue() *Queue {
	return m.queue
}

// Start starts the job queue and background tasks
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return
	}

	// Fresh stop channel so the manager can be restarted
	m.stopCh = make(chan struct{})
	m.running = true
	log.Info("[JobQueue Manager] Starting job queue and background tasks")

	m.queue.Start()

	m.depthTicker = time.NewTicker(15 * time.Second)
	m.wg.Add(1)
	go m.depthWorker()
}

// Stop stops the job queue and background tasks
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}

	log.Info("[JobQueue Manager] Stopping job queue and background tasks...")
	m.depthTicker.Stop()
	close(m.stopCh)
	m.running = false
	m.wg.Wait()

	m.queue.Stop()
	log.Info("[JobQueue Manager] Stopped successfully")
}

// IsRunning returns whether the manager is currently running
func (m *Manager) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// depthWorker publishes queue sizes to the metrics endpoint
func (m *Manager) depthWorker() {
	defer m.wg.Done()
	for {
		select {
		case <-m.stopCh:
			return
		case <-m.depthTicker.C:
			m.publishDepth(context.Background())
		}
	}
}

func (m *Manager) publishDepth(ctx context.Context) {
	pending, err := m.queue.GetQueueSize(ctx)
	if err != nil {
		log.Debugf("[JobQueue Manager] Queue size unavailable: %v", err)
		return
	}
	processing, err := m.queue.GetProcessingSize(ctx)
	if err != nil {
		return
	}
	metrics.SetQueueDepth(pending, processing)
}
