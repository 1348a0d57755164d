package queue

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"ingredient-analyzer/internal/infrastructure/config"
	"ingredient-analyzer/internal/pkg/common"

	"go.uber.org/zap"
)

var (
	// ErrQueueFull 隊列已滿
	ErrQueueFull = errors.New("queue is full")
	// ErrClosed 隊列管理器已關閉
	ErrClosed = errors.New("queue manager is closed")
)

// Request 隊列請求
type Request struct {
	Context context.Context
	Job     func(ctx context.Context)
	done    chan struct{}
}

// Status 隊列狀態
type Status struct {
	QueueLength    int   `json:"queue_length"`
	ProcessedCount int64 `json:"processed_count"`
	InFlight       int64 `json:"in_flight"`
	MaxQueueSize   int   `json:"max_queue_size"`
	Workers        int   `json:"workers"`
}

// Manager 推理請求工作池
type Manager struct {
	workers   int
	maxSize   int
	queue     chan *Request
	done      chan struct{}
	processed int64
	inFlight  int64

	mu        sync.RWMutex
	closed    bool
	startOnce sync.Once
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewManager 創建新的隊列管理器
func NewManager(cfg *config.Config) *Manager {
	return New(cfg.Queue.Workers, cfg.Queue.MaxSize)
}

// New 以指定工作者數量與隊列容量建立管理器
func New(workers, maxSize int) *Manager {
	if workers <= 0 {
		workers = 1
	}
	if maxSize <= 0 {
		maxSize = 1
	}
	return &Manager{
		workers: workers,
		maxSize: maxSize,
		queue:   make(chan *Request, maxSize),
		done:    make(chan struct{}),
	}
}

// Start 啟動工作者，重複呼叫無效果；Enqueue 也會自動啟動
func (m *Manager) Start() {
	m.startOnce.Do(func() {
		for i := 0; i < m.workers; i++ {
			m.wg.Add(1)
			go m.worker(i)
		}
		common.LogInfo("Queue workers started",
			zap.Int("workers", m.workers),
			zap.Int("max_queue_size", m.maxSize),
		)
	})
}

func (m *Manager) worker(id int) {
	defer m.wg.Done()
	for req := range m.queue {
		m.run(id, req)
	}
}

func (m *Manager) run(id int, req *Request) {
	atomic.AddInt64(&m.inFlight, 1)
	defer func() {
		if rec := recover(); rec != nil {
			common.LogError("Queue job panicked",
				zap.Int("worker", id),
				zap.Any("panic", rec),
			)
		}
		atomic.AddInt64(&m.inFlight, -1)
		atomic.AddInt64(&m.processed, 1)
		close(req.done)
	}()
	req.Job(req.Context)
}

// Enqueue 將工作加入隊列，回傳完成通知 channel
func (m *Manager) Enqueue(ctx context.Context, job func(ctx context.Context)) (<-chan struct{}, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrClosed
	}
	m.Start()

	// 檢查隊列容量
	if len(m.queue) >= m.maxSize {
		return nil, ErrQueueFull
	}

	req := &Request{
		Context: ctx,
		Job:     job,
		done:    make(chan struct{}),
	}

	select {
	case m.queue <- req:
		common.LogDebug("Request enqueued",
			zap.Int("queue_length", len(m.queue)),
			zap.Int("max_queue_size", m.maxSize),
		)
		return req.done, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-m.done:
		return nil, ErrClosed
	}
}

// Do 排入工作並等待完成；工作一旦排入必定會被執行
func (m *Manager) Do(ctx context.Context, job func(ctx context.Context)) error {
	done, err := m.Enqueue(ctx, job)
	if err != nil {
		return err
	}
	<-done
	return nil
}

// GetQueueStatus 獲取隊列狀態
func (m *Manager) GetQueueStatus() *Status {
	return &Status{
		QueueLength:    len(m.queue),
		ProcessedCount: atomic.LoadInt64(&m.processed),
		InFlight:       atomic.LoadInt64(&m.inFlight),
		MaxQueueSize:   m.maxSize,
		Workers:        m.workers,
	}
}

// Close 停止接收新工作，等待已排入的工作完成
func (m *Manager) Close() {
	m.closeOnce.Do(func() {
		close(m.done)

		m.mu.Lock()
		m.closed = true
		close(m.queue)
		m.mu.Unlock()

		m.wg.Wait()
		common.LogInfo("Queue manager closed",
			zap.Int64("processed_count", atomic.LoadInt64(&m.processed)),
		)
	})
}
