package systems

import (
	"fmt"
	"sync"

	"github.com/spaghettifunk/framegraph/engine/core"
)

/** @brief A unit of work run by the job system. */
type Job struct {
	/** @brief Used in logs. */
	Name string
	/** @brief The work itself. */
	Run func() error
	/** @brief Optional, called with the error returned by Run. */
	OnFailure func(err error)
	/** @brief Optional, called when Run succeeded. */
	OnComplete func()
}

type JobSystem struct {
	numWorkers int
	jobQueue   chan Job
	done       chan struct{}
	wg         sync.WaitGroup
	// submitters currently sending on jobQueue
	senders sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

var ErrNoWorkers = fmt.Errorf("attempting to create worker pool with less than 1 worker")
var ErrNegativeChannelSize = fmt.Errorf("attempting to create worker pool with a negative channel size")
var ErrJobSystemClosed = fmt.Errorf("job system is shut down")

func NewJobSystem(numWorkers int, channelSize int) (*JobSystem, error) {
	if numWorkers <= 0 {
		return nil, ErrNoWorkers
	}
	if channelSize < 0 {
		return nil, ErrNegativeChannelSize
	}

	js := &JobSystem{
		numWorkers: numWorkers,
		jobQueue:   make(chan Job, channelSize),
		done:       make(chan struct{}),
	}

	js.start()

	return js, nil
}

func (js *JobSystem) start() {
	for i := 0; i < js.numWorkers; i++ {
		js.wg.Add(1)
		go func() {
			defer js.wg.Done()
			for job := range js.jobQueue {
				if err := job.Run(); err != nil {
					core.LogError("job %s: %s", job.Name, err.Error())
					if job.OnFailure != nil {
						job.OnFailure(err)
					}
					continue
				}
				if job.OnComplete != nil {
					job.OnComplete()
				}
			}
		}()
	}
}

/**
 * @brief Shuts the job system down, waiting for the queued jobs to finish.
 * Submits still blocked on a full queue give up with ErrJobSystemClosed.
 */
func (js *JobSystem) Shutdown() error {
	js.mu.Lock()
	if js.closed {
		js.mu.Unlock()
		return nil
	}
	js.closed = true
	close(js.done)
	js.mu.Unlock()

	js.senders.Wait()
	close(js.jobQueue)
	js.wg.Wait()
	return nil
}

/**
 * @brief Submits the provided job to be queued for execution. Blocks while
 * the queue is full.
 * @param job The job to be executed.
 */
func (js *JobSystem) Submit(job Job) error {
	if job.Run == nil {
		return fmt.Errorf("job %s has nothing to run", job.Name)
	}
	js.mu.Lock()
	if js.closed {
		js.mu.Unlock()
		return ErrJobSystemClosed
	}
	js.senders.Add(1)
	js.mu.Unlock()
	defer js.senders.Done()

	select {
	case js.jobQueue <- job:
		return nil
	case <-js.done:
		return ErrJobSystemClosed
	}
}
