package scheduler

import (
	"sync"
	"time"

	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("mozuku.scheduler")

type Task struct {
	Name    string
	Execute func() error
}

type Scheduler struct {
	taskQueue       chan Task
	workers         int
	lowPriorityLock sync.Mutex
	stopChan        chan struct{}
	wg              sync.WaitGroup

	mu       sync.RWMutex
	stopped  bool
	stopOnce sync.Once
}

// NewScheduler creates a new Scheduler with the specified number of workers
// and queue size
func NewScheduler(workers, queueSize int) *Scheduler {
	if workers < 1 {
		workers = 1
	}
	return &Scheduler{
		taskQueue: make(chan Task, queueSize),
		workers:   workers,
		stopChan:  make(chan struct{}),
	}
}

// RunScheduler starts the worker loops
func (s *Scheduler) RunScheduler() {
	for i := 0; i < s.workers; i++ {
		go func() {
			for task := range s.taskQueue {
				s.execute(task)
			}
		}()
	}
}

func (s *Scheduler) execute(task Task) {
	defer s.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("task %s panicked: %v", task.Name, r)
		}
	}()
	log.Debugf("executing %s", task.Name)
	if err := task.Execute(); err != nil {
		log.Warningf("task %s failed: %v", task.Name, err)
	}
}

// SchedulePeriodicTask periodically queues a low-priority task without
// blocking. Ticks that find the queue full are skipped.
func (s *Scheduler) SchedulePeriodicTask(interval time.Duration, lowTask Task) {
	ticker := time.NewTicker(interval)

	// Run the task on startup in a non-blocking manner
	go func() {
		s.lowPriorityLock.Lock()
		defer s.lowPriorityLock.Unlock()
		if err := lowTask.Execute(); err != nil {
			log.Warningf("task %s failed: %v", lowTask.Name, err)
		}
	}()

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.lowPriorityLock.Lock()
				if !s.TrySchedule(lowTask) {
					log.Debugf("skipped scheduling %s, queue is full", lowTask.Name)
				}
				s.lowPriorityLock.Unlock()
			case <-s.stopChan:
				return
			}
		}
	}()
}

// TrySchedule queues a task if there is room and reports whether it did.
func (s *Scheduler) TrySchedule(task Task) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.stopped {
		return false
	}

	s.wg.Add(1)
	select {
	case s.taskQueue <- task:
		return true
	default:
		s.wg.Done()
		return false
	}
}

// ScheduleHighPriorityTask queues a task, waiting for room if necessary
func (s *Scheduler) ScheduleHighPriorityTask(task Task) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.stopped {
		return false
	}

	s.wg.Add(1)
	select {
	case s.taskQueue <- task:
		return true
	case <-s.stopChan:
		s.wg.Done()
		return false
	}
}

// StopScheduler waits for all queued tasks to complete and stops the workers
func (s *Scheduler) StopScheduler() {
	s.stopOnce.Do(func() {
		log.Info("stopping scheduler")
		close(s.stopChan)

		s.mu.Lock()
		s.stopped = true
		close(s.taskQueue)
		s.mu.Unlock()

		s.wg.Wait()
		log.Info("scheduler stopped")
	})
}
