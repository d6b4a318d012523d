package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

type countingJob struct {
	executed *int32
	err      error
}

func (j *countingJob) Process(ctx context.Context) error {
	atomic.AddInt32(j.executed, 1)
	return j.err
}

func TestPool(t *testing.T) {
	var executed int32
	pool := NewPool(TestWorkerCount, TestQueueSize)
	pool.Start()

	job := &countingJob{executed: &executed}
	pool.Enqueue(job)
	pool.Enqueue(job)

	time.Sleep(TestWorkerProcessWaitTime * time.Millisecond)

	pool.Stop()

	if atomic.LoadInt32(&executed) != TestExpectedJobCount {
		t.Errorf("Expected %d jobs executed, got %d", TestExpectedJobCount, executed)
	}
}

func TestPool_JobErrorDoesNotStopWorkers(t *testing.T) {
	var executed int32
	pool := NewPool(1, TestQueueSize)
	pool.Start()

	pool.Enqueue(&countingJob{executed: &executed, err: errors.New("job failed")})
	pool.Enqueue(&countingJob{executed: &executed})

	time.Sleep(TestWorkerProcessWaitTime * time.Millisecond)

	pool.Stop()

	if atomic.LoadInt32(&executed) != 2 {
		t.Errorf("Expected 2 jobs executed after a failure, got %d", executed)
	}
}

func TestPool_StopDrainsQueue(t *testing.T) {
	var executed int32
	pool := NewPool(1, TestQueueSize)
	pool.Start()

	for i := 0; i < TestQueueSize; i++ {
		pool.Enqueue(&countingJob{executed: &executed})
	}

	pool.Stop()

	if got := atomic.LoadInt32(&executed); got != TestQueueSize {
		t.Errorf("Expected %d jobs executed after Stop, got %d", TestQueueSize, got)
	}
}
