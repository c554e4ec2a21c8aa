package middleware

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tnctl/constants"
	"tnctl/types"
	"tnctl/validators"

	"github.com/cenkalti/backoff/v5"
)

var errJobRunning = errors.New("job still running")

// WaitJob polls core.get_jobs for job id until it succeeds (returning its result), fails
// or is aborted (returning a *JobError). A zero timeout waits as long as ctx allows.
func WaitJob(ctx context.Context, c Client, id int, method string, interval, timeout time.Duration) (any, error) {
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = interval
	b.MaxInterval = 10 * interval

	opts := []backoff.RetryOption{backoff.WithBackOff(b)}

	if timeout > 0 {
		opts = append(opts, backoff.WithMaxElapsedTime(timeout))
	} else {
		opts = append(opts, backoff.WithMaxElapsedTime(0))
	}

	res, err := backoff.Retry(ctx, func() (any, error) {
		raw, err := c.Call(ctx, "core.get_jobs", Eq("id", id))

		if err != nil {
			return nil, backoff.Permanent(err)
		}

		var jobs []types.Job
		if err := Decode(raw, &jobs); err != nil {
			return nil, backoff.Permanent(fmt.Errorf("failed to decode job %d: %w", id, err))
		}

		if len(jobs) == 0 {
			return nil, backoff.Permanent(fmt.Errorf("job %d (%s) not found", id, method))
		}

		job := jobs[0]

		switch job.State {
		case constants.JobStateSuccess:
			return job.Result, nil
		case constants.JobStateFailed, constants.JobStateAborted:
			return nil, backoff.Permanent(&JobError{
				JobID:     id,
				Method:    method,
				State:     job.State,
				Err:       validators.Deref(job.Error),
				Exception: validators.Deref(job.Exception),
				Progress:  job.Progress,
			})
		}

		return nil, errJobRunning
	}, opts...)

	if errors.Is(err, errJobRunning) {
		return nil, fmt.Errorf("timed out waiting for job %d (%s)", id, method)
	}

	return res, err
}
