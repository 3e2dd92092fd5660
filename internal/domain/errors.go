package domain

import "errors"

// ErrJobNotFound indicates a job id with no entry in the job store.
var ErrJobNotFound = errors.New("job not found")

// ErrQueueFull indicates the shared queue buffer is at capacity.
var ErrQueueFull = errors.New("download queue is full")

// ErrQueueStopped indicates an enqueue after the pool was stopped.
var ErrQueueStopped = errors.New("download queue is stopped")
