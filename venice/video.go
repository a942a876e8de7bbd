package venice

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"time"

	"github.com/venice-ai/venice-go/core"
)

// Video API endpoints.
const (
	videoQueuePath    = "video/queue"
	videoRetrievePath = "video/retrieve"
	videoQuotePath    = "video/quote"
)

// Job states. queued and processing are transient; completed and failed are
// terminal and one-way.
const (
	VideoQueued     = "queued"
	VideoProcessing = "processing"
	VideoCompleted  = "completed"
	VideoFailed     = "failed"
)

// Wait loop defaults.
const (
	DefaultPollInterval    = 5 * time.Second
	DefaultCompleteMaxWait = 15 * time.Minute

	// pollFailureBudget is how many consecutive connection/server errors a
	// wait loop swallows before surfacing the last one.
	pollFailureBudget = 3
)

var timeNow = time.Now

// VideoRequest is the generation payload for queue, quote and complete.
// Either Prompt (text-to-video) or ImageURL (image-to-video) is required.
type VideoRequest struct {
	Model          string   `json:"model"`
	Prompt         string   `json:"prompt,omitempty"`
	ImageURL       string   `json:"image_url,omitempty"`
	Duration       string   `json:"duration,omitempty"`
	Resolution     string   `json:"resolution,omitempty"`
	AspectRatio    string   `json:"aspect_ratio,omitempty"`
	FPS            *int     `json:"fps,omitempty"`
	Audio          bool     `json:"audio,omitempty"`
	Seed           *int64   `json:"seed,omitempty"`
	NegativePrompt string   `json:"negative_prompt,omitempty"`
	GuidanceScale  *float64 `json:"guidance_scale,omitempty"`
}

// VideoJob is the server-side record of an asynchronous generation.
type VideoJob struct {
	JobID         string         `json:"job_id"`
	Status        string         `json:"status"`
	Progress      *float64       `json:"progress"`
	QueuePosition *int           `json:"queue_position"`
	VideoURL      string         `json:"video_url"`
	Error         string         `json:"error"`
	ErrorCode     string         `json:"error_code"`
	Model         string         `json:"model"`
	CreatedAt     string         `json:"created_at"`
	CompletedAt   string         `json:"completed_at"`
	Metadata      map[string]any `json:"metadata"`
}

// Completed reports whether the job finished successfully.
func (j *VideoJob) Completed() bool { return j.Status == VideoCompleted }

// Failed reports whether the job finished unsuccessfully.
func (j *VideoJob) Failed() bool { return j.Status == VideoFailed }

// Terminal reports whether the job can no longer change state.
func (j *VideoJob) Terminal() bool { return j.Completed() || j.Failed() }

// VideoQuote is a price estimate for a generation.
type VideoQuote struct {
	EstimatedCost     float64          `json:"estimated_cost"`
	Currency          string           `json:"currency"`
	EstimatedDuration *int             `json:"estimated_duration"`
	PricingModel      string           `json:"pricing_model"`
	MinimumCost       *float64         `json:"minimum_cost"`
	MaximumCost       *float64         `json:"maximum_cost"`
	Breakdown         map[string]any   `json:"pricing_breakdown"`
	CostComponents    []map[string]any `json:"cost_components"`
}

// WaitOptions tunes the polling loop.
type WaitOptions struct {
	// PollInterval is the delay between retrieve calls (default 5s).
	PollInterval time.Duration

	// MaxWait bounds the total wait; zero means no limit.
	MaxWait time.Duration

	// OnUpdate is invoked on every observed state transition or progress
	// change.
	OnUpdate func(*VideoJob)
}

// VideoService drives the async generation queue: queue, poll, download.
type VideoService struct {
	client *core.Client

	// sleep and now are injected so tests can run the wait loop on a fake
	// clock.
	sleep func(ctx context.Context, d time.Duration) error
	now   func() time.Time
}

// Queue submits a generation and returns the queued job.
func (s *VideoService) Queue(ctx context.Context, req *VideoRequest) (*VideoJob, error) {
	raw, err := s.client.Post(ctx, videoQueuePath, req)
	if err != nil {
		return nil, err
	}
	return decodeJob(raw)
}

// Retrieve returns the current state of a job.
func (s *VideoService) Retrieve(ctx context.Context, jobID string) (*VideoJob, error) {
	raw, err := s.client.Post(ctx, videoRetrievePath, map[string]string{"job_id": jobID})
	if err != nil {
		return nil, err
	}
	return decodeJob(raw)
}

// Quote estimates the cost of a generation without queueing it.
func (s *VideoService) Quote(ctx context.Context, req *VideoRequest) (*VideoQuote, error) {
	raw, err := s.client.Post(ctx, videoQuotePath, req)
	if err != nil {
		return nil, err
	}
	var quote VideoQuote
	if err := json.Unmarshal(raw, &quote); err != nil {
		return nil, err
	}
	return &quote, nil
}

// Wait polls Retrieve until the job reaches a terminal state, the context
// is cancelled, or MaxWait elapses. Terminal states are one-way: once
// completed or failed is observed, Wait returns without further polling.
//
// Connection and server errors during polling are swallowed up to a budget
// of three consecutive failures; rate limits honor Retry-After for the next
// delay. A failed job returns the job together with a server-kind error
// carrying the job's error code. On cancellation the last observed job is
// returned with the context's error.
func (s *VideoService) Wait(ctx context.Context, jobID string, opts *WaitOptions) (*VideoJob, error) {
	var o WaitOptions
	if opts != nil {
		o = *opts
	}
	if o.PollInterval <= 0 {
		o.PollInterval = DefaultPollInterval
	}

	start := s.now()
	var last *VideoJob
	lastState := ""
	lastProgress := -1.0
	consecutiveFailures := 0

	for {
		delay := o.PollInterval

		job, err := s.Retrieve(ctx, jobID)
		switch {
		case err == nil:
			consecutiveFailures = 0
			last = job

			progress := lastProgress
			if job.Progress != nil {
				progress = *job.Progress
			}
			if job.Status != lastState || progress != lastProgress {
				lastState = job.Status
				lastProgress = progress
				if o.OnUpdate != nil {
					o.OnUpdate(job)
				}
			}

			if job.Completed() {
				return job, nil
			}
			if job.Failed() {
				return job, jobFailureError(job)
			}

		case ctx.Err() != nil:
			return last, err

		case errors.Is(err, core.ErrRateLimited):
			var apiErr *core.APIError
			if errors.As(err, &apiErr) && apiErr.RetryAfter != nil {
				if ra := time.Duration(*apiErr.RetryAfter) * time.Second; ra > delay {
					delay = ra
				}
			}

		case errors.Is(err, core.ErrConnection) || errors.Is(err, core.ErrServer):
			consecutiveFailures++
			if consecutiveFailures > pollFailureBudget {
				return last, err
			}

		default:
			return last, err
		}

		if o.MaxWait > 0 && s.now().Sub(start) >= o.MaxWait {
			return last, waitTimeoutError(jobID, last, o.MaxWait)
		}
		if err := s.sleep(ctx, delay); err != nil {
			return last, err
		}
	}
}

// Complete queues a generation and waits for it, bounded by fifteen minutes
// unless opts overrides MaxWait.
func (s *VideoService) Complete(ctx context.Context, req *VideoRequest, opts *WaitOptions) (*VideoJob, error) {
	var o WaitOptions
	if opts != nil {
		o = *opts
	}
	if o.MaxWait <= 0 {
		o.MaxWait = DefaultCompleteMaxWait
	}

	job, err := s.Queue(ctx, req)
	if err != nil {
		return nil, err
	}
	return s.Wait(ctx, job.JobID, &o)
}

// Download streams a completed job's artifact into path.
func (s *VideoService) Download(ctx context.Context, job *VideoJob, path string) error {
	if !job.Completed() {
		return &core.APIError{
			Message: "cannot download video: job status is " + job.Status,
			Kind:    core.ErrInvalidRequest,
			Context: map[string]string{"job_id": job.JobID, "status": job.Status},
		}
	}
	if job.VideoURL == "" {
		return &core.APIError{
			Message: "no video URL available for download",
			Kind:    core.ErrInvalidRequest,
			Context: map[string]string{"job_id": job.JobID},
		}
	}

	resp, err := s.client.DownloadURL(ctx, job.VideoURL)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := io.Copy(f, resp.Body); err != nil {
		return err
	}
	return f.Sync()
}

// decodeJob accepts both flat and data-wrapped job envelopes.
func decodeJob(raw json.RawMessage) (*VideoJob, error) {
	var job VideoJob
	if err := json.Unmarshal(raw, &job); err != nil {
		return nil, err
	}
	if job.JobID == "" {
		var wrapped struct {
			Data VideoJob `json:"data"`
		}
		if err := json.Unmarshal(raw, &wrapped); err == nil && wrapped.Data.JobID != "" {
			return &wrapped.Data, nil
		}
	}
	return &job, nil
}

// jobFailureError surfaces a failed job as a server-kind error.
func jobFailureError(job *VideoJob) error {
	message := job.Error
	if message == "" {
		message = "video generation failed"
	}
	return &core.APIError{
		Code:    job.ErrorCode,
		Message: message,
		Kind:    core.ErrServer,
		Context: map[string]string{"job_id": job.JobID, "status": job.Status},
	}
}

// waitTimeoutError reports an exhausted wait budget, carrying the last
// observed job state.
func waitTimeoutError(jobID string, last *VideoJob, maxWait time.Duration) error {
	lastState := "unknown"
	if last != nil {
		lastState = last.Status
	}
	return &core.APIError{
		Message: "timed out waiting for video generation after " + maxWait.String(),
		Kind:    core.ErrTimeout,
		Context: map[string]string{"job_id": jobID, "last_state": lastState},
	}
}
