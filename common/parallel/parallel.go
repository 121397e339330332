// Copyright 2026 gorse Project Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package parallel

import (
	"context"
	"fmt"
	"sync"

	"github.com/juju/errors"
)

const chanSize = 1024

// ErrPanic is the type of errors converted from panics raised by workers.
const ErrPanic = errors.ConstError("worker panicked")

// Parallel schedules and runs jobs in parallel. nJobs is the number of jobs and nWorkers is
// the number of executors. A panic in worker is recovered and returned as an error of type
// ErrPanic. The first error in job order is returned after all workers stop.
func Parallel(ctx context.Context, nJobs, nWorkers int, worker func(workerId, jobId int) error) error {
	if nWorkers <= 1 {
		for i := 0; i < nJobs; i++ {
			if err := ctx.Err(); err != nil {
				return errors.Trace(err)
			}
			if err := safeRun(worker, 0, i); err != nil {
				return errors.Trace(err)
			}
		}
		return nil
	}
	c := make(chan int, chanSize)
	// producer
	go func() {
		defer close(c)
		for i := 0; i < nJobs; i++ {
			select {
			case <-ctx.Done():
				return
			case c <- i:
			}
		}
	}()
	// consumer
	var wg sync.WaitGroup
	errs := make([]error, nJobs)
	for j := 0; j < nWorkers; j++ {
		workerId := j
		wg.Go(func() {
			for jobId := range c {
				if err := ctx.Err(); err != nil {
					errs[jobId] = err
					continue
				}
				errs[jobId] = safeRun(worker, workerId, jobId)
			}
		})
	}
	wg.Wait()
	if err := ctx.Err(); err != nil {
		return errors.Trace(err)
	}
	for _, err := range errs {
		if err != nil {
			return errors.Trace(err)
		}
	}
	return nil
}

func safeRun(worker func(workerId, jobId int) error, workerId, jobId int) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.WithType(fmt.Errorf("job %d: %v", jobId, r), ErrPanic)
		}
	}()
	return worker(workerId, jobId)
}
