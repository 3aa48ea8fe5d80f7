package yp4g

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"pecadir/internal/domain"
	"pecadir/internal/logger"
)

// maxIndexBytes caps the size of one index.txt response.
const maxIndexBytes = 5 << 20

// Client talks the YP4G protocols to yellow page servers.
type Client struct {
	httpClient   *http.Client
	uptestClient *http.Client
	log          *logger.Logger
}

// NewClient creates a YP4G protocol client. The speed-test upload uses a
// client without a global timeout because a throttled POST legitimately
// runs for minutes; callers bound it with a context deadline.
func NewClient(log *logger.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		uptestClient: &http.Client{},
		log:          log,
	}
}

// FetchIndex downloads and parses index.txt from one yellow page. hostPort
// is the local peer's "host:port", carried as the host query parameter.
// Every returned record is tagged with the yellow page's name and URL.
func (c *Client) FetchIndex(ctx context.Context, yp domain.YellowPage, hostPort string) ([]domain.Channel, error) {
	u := yp.URL + "index.txt?host=" + url.QueryEscape(hostPort)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrSourceFetch, yp.Name, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrSourceFetch, yp.Name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s: unexpected status %d", domain.ErrSourceFetch, yp.Name, resp.StatusCode)
	}

	return ParseIndex(io.LimitReader(resp.Body, maxIndexBytes), yp, c.log), nil
}

// FetchConfig downloads and parses yp4g.xml from one yellow page.
func (c *Client) FetchConfig(ctx context.Context, yp domain.YellowPage) (*Config, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, yp.URL+"yp4g.xml", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch yp4g.xml from %s: %w", yp.Name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("yp4g.xml from %s: unexpected status %d", yp.Name, resp.StatusCode)
	}

	return ParseConfig(resp.Body)
}

// SpeedTest uploads a rate-limited random payload to the yellow page's
// uptest endpoint described by cfg. onProgress receives completion in
// percent. Success or failure decides whether the caller reloads the config.
func (c *Client) SpeedTest(ctx context.Context, cfg *Config, onProgress func(int)) error {
	srv := cfg.Server
	if srv.Addr == "" || srv.Port == 0 {
		return fmt.Errorf("speed test: no uptest server configured")
	}

	body := NewRandomBody(srv.PostSizeKB*1024, srv.LimitKbps*1024/8, onProgress)

	pr, pw := io.Pipe()
	go func() {
		pw.CloseWithError(body.WriteTo(ctx, pw))
	}()

	u := fmt.Sprintf("http://%s:%d%s", srv.Addr, srv.Port, srv.Object)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, pr)
	if err != nil {
		return fmt.Errorf("speed test: failed to create request: %w", err)
	}
	req.ContentLength = body.ContentLength()
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := c.uptestClient.Do(req)
	if err != nil {
		return fmt.Errorf("speed test upload failed: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("speed test: unexpected status %d", resp.StatusCode)
	}
	return nil
}
