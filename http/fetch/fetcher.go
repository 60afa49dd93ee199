/*
Copyright 2026 The Flux authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/go-logr/logr"
	"github.com/hashicorp/go-retryablehttp"

	"github.com/fluxcd/adbc-driver-fetch/masktoken"
)

const (
	// DefaultRetries is the number of retries after the first attempt.
	DefaultRetries = 3

	// DefaultTimeout bounds a single request, including reading the body.
	DefaultTimeout = 5 * time.Minute

	userAgent = "adbc-fetch"
)

// ErrFileNotFound is used to signal 404 HTTP status code responses.
var ErrFileNotFound = errors.New("file not found")

// StatusError is returned when the server responds with a non-2xx status
// code other than 404.
type StatusError struct {
	URL        string
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("failed to download %s, status: %s", masktoken.MaskURL(e.URL), e.Status)
}

// DownloadError wraps transport failures. Its message never contains the
// configured bearer token or URL userinfo passwords.
type DownloadError struct {
	URL   string
	Err   error
	token string
}

func (e *DownloadError) Error() string {
	return masktoken.Mask(fmt.Sprintf("failed to download %s: %v", e.URL, e.Err), e.token)
}

func (e *DownloadError) Unwrap() error {
	return e.Err
}

// Fetcher holds the HTTP client that retries with back off when
// the registry is unavailable.
type Fetcher struct {
	httpClient      *retryablehttp.Client
	maxDownloadSize int64
	hostOverride    string
	token           string
	log             logr.Logger
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithRetries sets the maximum number of retries after the first attempt.
func WithRetries(retries int) Option {
	return func(f *Fetcher) {
		f.httpClient.RetryMax = retries
	}
}

// WithRetryWait sets the minimum and maximum back off between attempts.
func WithRetryWait(min, max time.Duration) Option {
	return func(f *Fetcher) {
		f.httpClient.RetryWaitMin = min
		f.httpClient.RetryWaitMax = max
	}
}

// WithTimeout bounds every request. Zero disables the timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(f *Fetcher) {
		f.httpClient.HTTPClient.Timeout = timeout
	}
}

// WithMaxDownloadSize limits the size of response bodies. Values lower
// than one disable the limit.
func WithMaxDownloadSize(size int64) Option {
	return func(f *Fetcher) {
		f.maxDownloadSize = size
	}
}

// WithHostOverride replaces the host of every requested URL, e.g. to go
// through a mirror of the registry.
func WithHostOverride(host string) Option {
	return func(f *Fetcher) {
		f.hostOverride = host
	}
}

// WithBearerToken sets the token sent in the Authorization header.
func WithBearerToken(token string) Option {
	return func(f *Fetcher) {
		f.token = token
	}
}

// WithLogger sets the logger used to report retried requests.
func WithLogger(log logr.Logger) Option {
	return func(f *Fetcher) {
		f.log = log
	}
}

// NewFetcher configures the retryable http client used for fetching
// registry metadata and artifacts.
func NewFetcher(opts ...Option) *Fetcher {
	httpClient := retryablehttp.NewClient()
	httpClient.RetryWaitMin = time.Second
	httpClient.RetryWaitMax = 30 * time.Second
	httpClient.RetryMax = DefaultRetries
	httpClient.HTTPClient.Timeout = DefaultTimeout
	httpClient.Logger = nil
	// Hand back the last response once retries are exhausted so that
	// the status code is reported.
	httpClient.ErrorHandler = retryablehttp.PassthroughErrorHandler

	f := &Fetcher{
		httpClient: httpClient,
		log:        logr.Discard(),
	}
	for _, opt := range opts {
		opt(f)
	}

	if f.log.GetSink() != nil {
		httpClient.Logger = newErrorLogger(f.log, f.token)
		httpClient.RequestLogHook = func(_ retryablehttp.Logger, req *http.Request, attempt int) {
			if attempt > 0 {
				f.log.Info("retrying request", "url", masktoken.MaskURL(req.URL.String()), "attempt", attempt)
			}
		}
	}
	return f
}

// Get downloads the content at the given URL and returns it fully buffered.
// If the server responds with 5xx errors, the request is retried.
// If the server responds with 404, the returned error is ErrFileNotFound.
// Any other non-2xx status results in a StatusError.
func (f *Fetcher) Get(ctx context.Context, rawURL string) ([]byte, error) {
	if f.hostOverride != "" {
		u, err := url.Parse(rawURL)
		if err != nil {
			return nil, err
		}
		u.Host = f.hostOverride
		rawURL = u.String()
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create a new request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	if f.token != "" {
		req.Header.Set("Authorization", "Bearer "+f.token)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, &DownloadError{URL: rawURL, Err: err, token: f.token}
	}
	defer resp.Body.Close()

	if code := resp.StatusCode; code < 200 || code > 299 {
		if code == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, masktoken.MaskURL(rawURL))
		}
		return nil, &StatusError{URL: rawURL, StatusCode: code, Status: resp.Status}
	}

	var body io.Reader = resp.Body
	if f.maxDownloadSize > 0 {
		// Headers can lie, so instead of trusting resp.ContentLength,
		// read one byte past the limit and error in case it was consumed.
		body = io.LimitReader(resp.Body, f.maxDownloadSize+1)
	}

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, &DownloadError{URL: rawURL, Err: err, token: f.token}
	}
	if f.maxDownloadSize > 0 && int64(len(data)) > f.maxDownloadSize {
		// Discarding the remaining bytes lets Go reuse the connection.
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("artifact at %s is greater than the max download size of %d bytes",
			masktoken.MaskURL(rawURL), f.maxDownloadSize)
	}

	return data, nil
}
