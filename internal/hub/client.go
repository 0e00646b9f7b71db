// Package hub downloads model and tokenizer files from a Hugging Face
// compatible hub into a local cache directory.
package hub

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/schollz/progressbar/v3"

	"gemmad/internal/common/fsutil"
)

// Options configures a Client.
type Options struct {
	// BaseURL of the hub, e.g. https://huggingface.co.
	BaseURL string
	// Token is sent as a bearer credential when non-empty (HF_TOKEN).
	Token string
	// CacheDir receives downloaded files. '~' is expanded.
	CacheDir string
	// Progress, when non-nil, receives a progress bar per download.
	Progress io.Writer
	// HTTPClient overrides the default transport.
	HTTPClient *http.Client
	Logger     zerolog.Logger
	// MaxRetries for 5xx/429 and transport errors (default 3).
	MaxRetries int
	// RetryBaseDelay is the first backoff step (default 500ms).
	RetryBaseDelay time.Duration
}

// Client fetches files by repository id and revision.
type Client struct {
	baseURL  string
	token    string
	cacheDir string
	progress io.Writer
	http     *http.Client
	log      zerolog.Logger
	retry    retryPolicy
}

// New constructs a Client and creates the cache directory.
func New(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.BaseURL) == "" {
		return nil, fmt.Errorf("hub: empty base url")
	}
	dir, err := fsutil.ResolveDir(opts.CacheDir)
	if err != nil {
		return nil, fmt.Errorf("hub: cache dir: %w", err)
	}
	cli := opts.HTTPClient
	if cli == nil {
		tr := &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   30 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			MaxIdleConns:          10,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		}
		// No client timeout: model weights can take minutes; callers bound work via ctx.
		cli = &http.Client{Transport: tr}
	}
	rp := retryPolicy{maxRetries: opts.MaxRetries, baseDelay: opts.RetryBaseDelay, maxDelay: 30 * time.Second}
	if rp.maxRetries <= 0 {
		rp.maxRetries = 3
	}
	if rp.baseDelay <= 0 {
		rp.baseDelay = 500 * time.Millisecond
	}
	return &Client{
		baseURL:  strings.TrimRight(opts.BaseURL, "/"),
		token:    opts.Token,
		cacheDir: dir,
		progress: opts.Progress,
		http:     cli,
		log:      opts.Logger,
		retry:    rp,
	}, nil
}

// CacheDir returns the resolved cache directory.
func (c *Client) CacheDir() string { return c.cacheDir }

// LocalPath is where file of repo@revision is cached.
func (c *Client) LocalPath(repo, revision, file string) string {
	return filepath.Join(c.cacheDir, strings.ReplaceAll(repo, "/", "--"), revision, filepath.FromSlash(file))
}

// FileURL is the resolve URL of file in repo@revision.
func (c *Client) FileURL(repo, revision, file string) string {
	return c.baseURL + "/" + repo + "/resolve/" + url.PathEscape(revision) + "/" + path.Clean(file)
}

// Fetch returns the local path of file, downloading it when not cached yet.
func (c *Client) Fetch(ctx context.Context, repo, revision, file string) (string, error) {
	if strings.TrimSpace(repo) == "" || strings.TrimSpace(file) == "" {
		return "", fmt.Errorf("hub: repo and file are required")
	}
	if revision == "" {
		revision = "main"
	}
	dst := c.LocalPath(repo, revision, file)
	if _, ok := fsutil.FileSize(dst); ok {
		c.log.Debug().Str("repo", repo).Str("file", file).Str("path", dst).Msg("hub cache hit")
		return dst, nil
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", fmt.Errorf("hub: create dir: %w", err)
	}
	u := c.FileURL(repo, revision, file)
	start := time.Now()
	c.log.Info().Str("repo", repo).Str("file", file).Str("revision", revision).Msg("hub download start")
	err := c.retry.do(ctx, func(ctx context.Context) error {
		return c.download(ctx, u, dst, file)
	})
	if err != nil {
		c.log.Error().Err(err).Str("repo", repo).Str("file", file).Msg("hub download failed")
		return "", err
	}
	c.log.Info().Str("repo", repo).Str("file", file).Dur("dur", time.Since(start)).Msg("hub download done")
	return dst, nil
}

// download streams u into dst+".partial", resuming a previous partial file
// with a Range request, and renames it into place on success.
func (c *Client) download(ctx context.Context, u, dst, label string) error {
	partial := dst + ".partial"
	var offset int64
	if n, ok := fsutil.FileSize(partial); ok {
		offset = n
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	if offset > 0 {
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-", offset))
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("hub: request %s: %w", u, err)
	}
	defer resp.Body.Close()

	flags := os.O_CREATE | os.O_WRONLY
	switch {
	case resp.StatusCode == http.StatusPartialContent && offset > 0:
		flags |= os.O_APPEND
	case resp.StatusCode == http.StatusOK:
		// Server ignored the range (or there was none); start over.
		offset = 0
		flags |= os.O_TRUNC
	case resp.StatusCode == http.StatusRequestedRangeNotSatisfiable && offset > 0:
		// The partial file is stale; drop it and let the retry start fresh.
		_ = os.Remove(partial)
		return &StatusError{URL: u, Status: http.StatusServiceUnavailable, Body: "stale partial download"}
	default:
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{URL: u, Status: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}

	f, err := os.OpenFile(partial, flags, 0o644)
	if err != nil {
		return &localError{err: fmt.Errorf("hub: open %s: %w", partial, err)}
	}
	var w io.Writer = f
	if c.progress != nil {
		total := int64(-1)
		if resp.ContentLength >= 0 {
			total = resp.ContentLength + offset
		}
		bar := progressbar.NewOptions64(total,
			progressbar.OptionSetWriter(c.progress),
			progressbar.OptionSetDescription(label),
			progressbar.OptionShowBytes(true),
			progressbar.OptionSetWidth(40),
			progressbar.OptionThrottle(100*time.Millisecond),
			progressbar.OptionOnCompletion(func() { fmt.Fprintln(c.progress) }),
		)
		if offset > 0 {
			_ = bar.Set64(offset)
		}
		defer bar.Finish()
		w = io.MultiWriter(f, bar)
	}
	if _, err := io.Copy(w, resp.Body); err != nil {
		f.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("hub: read body: %w", err)
	}
	if err := f.Close(); err != nil {
		return &localError{err: fmt.Errorf("hub: close %s: %w", partial, err)}
	}
	if err := os.Rename(partial, dst); err != nil {
		return &localError{err: fmt.Errorf("hub: rename: %w", err)}
	}
	return nil
}
