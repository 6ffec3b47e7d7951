package subjects

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/ybbus/httpretry"

	"quizzapp-service/internal/domain"
	"quizzapp-service/internal/metrics"
)

const defaultTimeout = 10 * time.Second

var (
	// ErrInvalidEndpoint is returned when the subjects URL cannot be used for a GET.
	ErrInvalidEndpoint = errors.New("invalid subjects endpoint")
	// ErrTransport wraps network level failures.
	ErrTransport = errors.New("subjects request failed")
	// ErrUnexpectedStatus is returned for non-2xx responses.
	ErrUnexpectedStatus = errors.New("unexpected subjects response status")
	// ErrDecode is returned when the body is not a JSON array of subjects.
	ErrDecode = errors.New("malformed subjects payload")
	// ErrInvalidPayload is returned when a decoded subject misses required fields.
	ErrInvalidPayload = errors.New("invalid subjects payload")
)

// Retry enables exponential backoff on transient upstream failures.
type Retry struct {
	MinWait     time.Duration
	MaxWait     time.Duration
	MaxAttempts int
}

type Options struct {
	URL     string
	Timeout time.Duration
	Retry   *Retry
	// Client overrides the transport, mostly for tests.
	Client  *http.Client
	Logger  zerolog.Logger
	Metrics *metrics.Metrics
}

// Fetcher retrieves the subject list from the upstream endpoint.
type Fetcher struct {
	endpoint string
	client   *http.Client
	validate *validator.Validate
	logger   zerolog.Logger
	metrics  *metrics.Metrics
}

// Result is delivered exactly once by FetchAsync.
type Result struct {
	Subjects []domain.Subject
	Err      error
}

func NewFetcher(opts Options) (*Fetcher, error) {
	if err := checkEndpoint(opts.URL); err != nil {
		return nil, err
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}

	if opts.Retry != nil {
		retryOpts := []httpretry.Option{
			httpretry.WithBackoffPolicy(httpretry.ExponentialBackoff(opts.Retry.MinWait, opts.Retry.MaxWait, 0)),
		}
		if opts.Retry.MaxAttempts > 0 {
			retryOpts = append(retryOpts, httpretry.WithMaxRetryCount(opts.Retry.MaxAttempts))
		}
		client = httpretry.NewCustomClient(client, retryOpts...)
	}

	return &Fetcher{
		endpoint: opts.URL,
		client:   client,
		validate: validator.New(),
		logger:   opts.Logger,
		metrics:  opts.Metrics,
	}, nil
}

// FetchSubjects issues one GET and decodes the subject array in the order received.
func (f *Fetcher) FetchSubjects(ctx context.Context) ([]domain.Subject, error) {
	subjects, err := f.fetch(ctx)
	f.metrics.ObserveFetch(err)
	if err != nil {
		f.logger.Error().Err(err).Str("endpoint", f.endpoint).Msg("subject fetch failed")
		return nil, err
	}
	f.logger.Debug().Int("subjects", len(subjects)).Msg("subjects fetched")
	return subjects, nil
}

// LoadSubjects lets the fetcher back a subject repository.
func (f *Fetcher) LoadSubjects(ctx context.Context) ([]domain.Subject, error) {
	return f.FetchSubjects(ctx)
}

// FetchAsync runs the fetch on its own goroutine. The returned channel
// receives exactly one Result and is then closed.
func (f *Fetcher) FetchAsync(ctx context.Context) <-chan Result {
	out := make(chan Result, 1)
	go func() {
		defer close(out)
		subjects, err := f.FetchSubjects(ctx)
		out <- Result{Subjects: subjects, Err: err}
	}()
	return out
}

func (f *Fetcher) fetch(ctx context.Context) ([]domain.Subject, error) {
	if err := checkEndpoint(f.endpoint); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEndpoint, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	subjects, err := Decode(resp.Body)
	if err != nil {
		return nil, err
	}

	for i := range subjects {
		if err := f.validate.Struct(subjects[i]); err != nil {
			return nil, fmt.Errorf("%w: subject %d: %v", ErrInvalidPayload, i, err)
		}
		if !subjects[i].Consistent() {
			f.logger.Warn().
				Str("subject", subjects[i].ID).
				Int("questionsCount", subjects[i].QuestionCount).
				Int("questions", len(subjects[i].Questions)).
				Msg("question count does not match payload")
		}
	}
	return subjects, nil
}

func checkEndpoint(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidEndpoint, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %q", ErrInvalidEndpoint, raw)
	}
	return nil
}
