package provider

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/robfig/cron"
	log "github.com/sirupsen/logrus"
)

const defaultPollInterval = "30s"

// HTTPProvider fetches settings from a remote endpoint and re-polls it on a schedule.
type HTTPProvider struct {
	URL         string
	Credentials Credentials
	// Interval is a time.Duration string, e.g. "30s".
	Interval string
	Client   *http.Client
}

func (hp *HTTPProvider) Name() string {
	return "http:" + hp.URL
}

func (hp *HTTPProvider) client() *http.Client {
	if hp.Client != nil {
		return hp.Client
	}
	return &http.Client{Timeout: 10 * time.Second}
}

func (hp *HTTPProvider) Fetch(ctx context.Context) ([]byte, error) {
	u, err := url.Parse(hp.URL)
	if err != nil {
		return nil, fmt.Errorf("parse settings url: %w", err)
	}
	q := u.Query()
	q.Set("accountId", strconv.Itoa(hp.Credentials.AccountID))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build settings request: %w", err)
	}
	req.Header.Set("Authorization", hp.Credentials.SDKKey)
	req.Header.Set("Accept", "application/json")

	resp, err := hp.client().Do(req)
	if err != nil {
		return nil, fmt.Errorf("request settings: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read settings response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("settings endpoint returned status %d", resp.StatusCode)
	}
	return body, nil
}

func (hp *HTTPProvider) Watch(ctx context.Context, onChange func([]byte)) error {
	interval := hp.Interval
	if interval == "" {
		interval = defaultPollInterval
	}
	if _, err := time.ParseDuration(interval); err != nil {
		return fmt.Errorf("invalid poll interval %q: %w", interval, err)
	}

	var last []byte
	// cron runs every tick in its own goroutine
	var mu sync.Mutex
	c := cron.New()
	err := c.AddFunc("@every "+interval, func() {
		settings, err := hp.Fetch(ctx)
		if err != nil {
			log.Errorf("settings poll failed: %v", err)
			return
		}
		mu.Lock()
		defer mu.Unlock()
		if bytes.Equal(settings, last) {
			return
		}
		last = settings
		onChange(settings)
	})
	if err != nil {
		return fmt.Errorf("schedule settings poll: %w", err)
	}

	c.Start()
	<-ctx.Done()
	c.Stop()
	return nil
}
