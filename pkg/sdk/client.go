// Package sdk is the flag evaluation client used by the application. It loads
// a settings document from a provider, keeps it fresh in the background and
// resolves flags for a user context.
package sdk

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/open-feature/flagdemo/pkg/eval"
	"github.com/open-feature/flagdemo/pkg/provider"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
)

var (
	ErrClientClosed    = errors.New("client is closed")
	ErrMissingUserID   = errors.New("user context id is required")
	ErrMissingEvent    = errors.New("event name is required")
	ErrMissingFlagKey  = errors.New("flag key is required")
	ErrMissingProvider = errors.New("settings provider is required")
)

type Options struct {
	AccountID int
	SDKKey    string
	Provider  provider.IProvider
	Logger    LoggerOptions
	// Registerer receives the client metrics. Nil leaves them unregistered.
	Registerer prometheus.Registerer
}

// UserContext identifies the user a flag is evaluated for.
type UserContext struct {
	ID              string
	CustomVariables map[string]any
	Attributes      map[string]any
}

func (u UserContext) targetingData() map[string]any {
	data := make(map[string]any, len(u.CustomVariables)+3)
	for k, v := range u.CustomVariables {
		data[k] = v
	}
	data["id"] = u.ID
	data["targetingKey"] = u.ID
	if len(u.Attributes) > 0 {
		data["attributes"] = u.Attributes
	}
	return data
}

type Client struct {
	evaluator eval.IEvaluator
	provider  provider.IProvider
	logger    *Logger
	metrics   *metrics

	mu     sync.Mutex
	closed bool
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Init loads the initial settings and starts watching the provider for updates.
// ctx bounds the initial load only; the watcher lives until Close.
func Init(ctx context.Context, opts Options) (*Client, error) {
	logger := newLogger(opts.Logger)

	switch {
	case opts.AccountID <= 0:
		return nil, errors.New("account id is required")
	case opts.SDKKey == "":
		return nil, errors.New("sdk key is required")
	case opts.Provider == nil:
		return nil, ErrMissingProvider
	}

	logger.Debugf(ctx, "fetching settings from %s", opts.Provider.Name())
	raw, err := opts.Provider.Fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch settings: %w", err)
	}

	evaluator := eval.NewJSONEvaluator()
	if _, err := evaluator.SetState(opts.Provider.Name(), raw); err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	m, err := newMetrics(opts.Registerer)
	if err != nil {
		return nil, err
	}

	watchCtx, cancel := context.WithCancel(context.Background())
	c := &Client{
		evaluator: evaluator,
		provider:  opts.Provider,
		logger:    logger,
		metrics:   m,
		cancel:    cancel,
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		if err := c.provider.Watch(watchCtx, c.onSettings); err != nil {
			c.logger.Errorf(watchCtx, "settings watcher stopped: %v", err)
		}
	}()

	logger.Infof(ctx, "client initialized with settings from %s", opts.Provider.Name())
	return c, nil
}

func (c *Client) onSettings(raw []byte) {
	ctx := context.Background()
	notifications, err := c.evaluator.SetState(c.provider.Name(), raw)
	if err != nil {
		c.logger.Errorf(ctx, "ignoring settings update: %v", err)
		return
	}
	if len(notifications) == 0 {
		return
	}
	for key, n := range notifications {
		log.WithField("flag", key).Debugf("settings change: %v", n)
	}
	c.logger.Infof(ctx, "settings updated, %d flag(s) changed", len(notifications))

	state, err := c.evaluator.GetState()
	if err != nil {
		c.logger.Errorf(ctx, "unable to read flag state: %v", err)
		return
	}
	c.logger.Debugf(ctx, "current flag state: %s", state)
}

func (c *Client) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// GetFlag resolves flagKey for user.
func (c *Client) GetFlag(ctx context.Context, flagKey string, user UserContext) (*Flag, error) {
	if c.isClosed() {
		return nil, ErrClientClosed
	}
	if flagKey == "" {
		return nil, ErrMissingFlagKey
	}
	if user.ID == "" {
		return nil, ErrMissingUserID
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.logger.Debugf(ctx, "evaluating flag %s for user %s", flagKey, user.ID)
	res, err := c.evaluator.Resolve(flagKey, user.targetingData())
	if err != nil {
		c.logger.Errorf(ctx, "error evaluating flag %s: %v", flagKey, err)
		return nil, err
	}

	c.metrics.evaluation(flagKey, res.Variant, res.Enabled)
	c.logger.Infof(ctx, "flag %s resolved for user %s: enabled=%t variant=%q reason=%s",
		flagKey, user.ID, res.Enabled, res.Variant, res.Reason)

	return &Flag{
		Key:       res.Key,
		Enabled:   res.Enabled,
		Variant:   res.Variant,
		Reason:    res.Reason,
		Variables: res.Variables,
	}, nil
}

// TrackEvent records a conversion event for user.
func (c *Client) TrackEvent(ctx context.Context, eventName string, user UserContext) error {
	if c.isClosed() {
		return ErrClientClosed
	}
	if eventName == "" {
		return ErrMissingEvent
	}
	if user.ID == "" {
		return ErrMissingUserID
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	c.metrics.event(eventName)
	c.logger.Infof(ctx, "event %s tracked for user %s", eventName, user.ID)
	return nil
}

// OriginalSettings returns the settings document currently in use.
func (c *Client) OriginalSettings() json.RawMessage {
	return c.evaluator.Settings()
}

// Close stops the settings watcher. Further calls fail with ErrClientClosed.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	c.cancel()
	c.wg.Wait()
	return nil
}
