package network

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"trade-dashboard/src/helpers"
	"trade-dashboard/src/logger"
	"trade-dashboard/src/models"
)

const (
	defaultTimeout   = 5 * time.Second
	defaultUserAgent = "trade-dashboard/1.0"
	maxBodyBytes     = 16 << 20
	retryBaseDelay   = 250 * time.Millisecond
)

type AsyncNetworkManager struct {
	Config *models.MConfig
	Client *http.Client
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewAsyncNetworkManager(cfg *models.MConfig, log *logger.Logger) *AsyncNetworkManager {
	timeout := time.Duration(cfg.Source.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	proxy, err := helpers.ProxyFunc(cfg.Source.Proxy)
	if err != nil {
		log.Warning("Ignoring source proxy: %v", err)
		proxy = http.ProxyFromEnvironment
	}
	transport.Proxy = proxy

	return &AsyncNetworkManager{
		Config: cfg,
		Logger: log,
		Client: &http.Client{Timeout: timeout, Transport: transport},
	}
}

// -----------------------------------------------------------------------------

// Get performs a GET request, retrying up to Source.MaxRetries extra times.
// Any non-2xx status is returned as a *helpers.FetchError.
func (nm *AsyncNetworkManager) Get(ctx context.Context, urlStr string, params map[string]string) ([]byte, error) {
	reqURL, err := url.Parse(urlStr)
	if err != nil {
		return nil, err
	}

	q := reqURL.Query()
	for k, v := range params {
		q.Set(k, v)
	}
	reqURL.RawQuery = q.Encode()
	finalURL := reqURL.String()

	sleep := func(d time.Duration) bool {
		select {
		case <-time.After(d):
			return true
		case <-ctx.Done():
			return false
		}
	}

	return helpers.RetryWithBackoff(nm.Logger, "GET "+urlStr, nm.Config.Source.MaxRetries+1, retryBaseDelay, sleep,
		func() ([]byte, error) {
			return nm.do(ctx, finalURL)
		})
}

// -----------------------------------------------------------------------------

func (nm *AsyncNetworkManager) do(ctx context.Context, finalURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, finalURL, nil)
	if err != nil {
		return nil, err
	}

	userAgent := nm.Config.Source.UserAgent
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := nm.Client.Do(req)
	if err != nil {
		return nil, helpers.NewFetchError(finalURL, 0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, helpers.NewFetchError(finalURL, resp.StatusCode, fmt.Errorf("bad status: %s", resp.Status))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, helpers.NewFetchError(finalURL, resp.StatusCode, err)
	}
	return body, nil
}
