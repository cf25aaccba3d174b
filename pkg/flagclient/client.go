// Package flagclient wraps the flag SDK for the demo: it owns the single SDK
// client, evaluates the configured flag for a user and records what happened.
package flagclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/open-feature/flagdemo/pkg/config"
	"github.com/open-feature/flagdemo/pkg/logs"
	"github.com/open-feature/flagdemo/pkg/provider"
	"github.com/open-feature/flagdemo/pkg/sdk"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// DefaultContent is shown when the flag carries no content variable.
const DefaultContent = "To reset your password:\n" +
	"1. Open the app and go to the login screen.\n" +
	"2. Tap \"Forgot Password?\" below the password field.\n" +
	"3. Enter your registered email address and submit.\n" +
	"4. Check your inbox for a password reset email (it may take a few minutes).\n" +
	"5. Click the link in the email and follow the instructions to create a new password.\n" +
	"6. Return to the app and log in with your new password."

const (
	DefaultModelName       = "GPT-4"
	DefaultBackgroundColor = "#fff"
)

const (
	UserIDRequired      = "User ID is required"
	TrackUserIDRequired = "User ID is required for event tracking"
)

// SDKClient is the part of the SDK client the wrapper uses.
type SDKClient interface {
	GetFlag(ctx context.Context, flagKey string, user sdk.UserContext) (*sdk.Flag, error)
	TrackEvent(ctx context.Context, eventName string, user sdk.UserContext) error
	OriginalSettings() json.RawMessage
	Close() error
}

// InitFunc creates an SDK client.
type InitFunc func(ctx context.Context, opts sdk.Options) (SDKClient, error)

// SDKInit is the InitFunc backed by sdk.Init.
func SDKInit(ctx context.Context, opts sdk.Options) (SDKClient, error) {
	c, err := sdk.Init(ctx, opts)
	if err != nil {
		return nil, err
	}
	return c, nil
}

type Evaluation struct {
	Content         string          `json:"content"`
	ModelName       string          `json:"modelName"`
	BackgroundColor string          `json:"backgroundColor"`
	IsEnabled       bool            `json:"isEnabled"`
	UserID          string          `json:"userId"`
	Settings        json.RawMessage `json:"settings,omitempty"`
	Logs            []logs.Entry    `json:"logs"`
}

type Response struct {
	Success bool        `json:"success"`
	Data    *Evaluation `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

type TrackResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// contentVariable is the shape of the object held by VariableKey2.
type contentVariable struct {
	Content    string
	Background string
}

type Client struct {
	cfg        *config.Config
	init       InitFunc
	registerer prometheus.Registerer

	group  singleflight.Group
	mu     sync.RWMutex
	client SDKClient

	latest logs.Buffer
}

type Option func(*Client)

// WithInit replaces the function used to create the SDK client.
func WithInit(fn InitFunc) Option {
	return func(c *Client) { c.init = fn }
}

// WithRegisterer registers the SDK metrics with reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(c *Client) { c.registerer = reg }
}

func New(cfg *config.Config, opts ...Option) *Client {
	c := &Client{cfg: cfg, init: SDKInit}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// addLog records a line in the collector carried by ctx and mirrors it to the process log.
func addLog(ctx context.Context, level log.Level, format string, args ...interface{}) {
	message := fmt.Sprintf(format, args...)
	if c := logs.FromContext(ctx); c != nil {
		c.Add(level, message)
	}
	log.WithField("component", "flagclient").Log(level, message)
}

func (c *Client) sdkOptions() sdk.Options {
	return sdk.Options{
		AccountID:  c.cfg.AccountID,
		SDKKey:     c.cfg.SDKKey,
		Provider:   provider.New(c.cfg.SettingsSource, provider.Credentials{AccountID: c.cfg.AccountID, SDKKey: c.cfg.SDKKey}, c.cfg.PollInterval),
		Registerer: c.registerer,
		Logger: sdk.LoggerOptions{
			Level: c.cfg.Level(),
			Transport: func(ctx context.Context, level log.Level, message string) {
				if col := logs.FromContext(ctx); col != nil {
					col.Add(level, message)
				}
				log.WithField("component", "sdk").Log(level, message)
			},
		},
	}
}

func (c *Client) current() SDKClient {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.client
}

// Initialize returns the shared SDK client, creating it on first use. Concurrent
// callers share one in-flight creation, and a caller whose ctx ends stops waiting
// without cancelling it. A failed creation is not remembered, so the next call
// tries again.
func (c *Client) Initialize(ctx context.Context) (SDKClient, error) {
	if client := c.current(); client != nil {
		return client, nil
	}

	ch := c.group.DoChan("init", func() (interface{}, error) {
		// the creation is shared, so it must outlive the caller that started it
		ctx := context.WithoutCancel(ctx)
		if client := c.current(); client != nil {
			return client, nil
		}

		if ok, errs := c.cfg.Validate(); !ok {
			msg := fmt.Sprintf("Configuration errors: %s", strings.Join(errs, ", "))
			addLog(ctx, log.ErrorLevel, "%s", msg)
			return nil, errors.New(msg)
		}

		addLog(ctx, log.InfoLevel, "Initializing flag SDK...")
		client, err := c.init(ctx, c.sdkOptions())
		if err != nil {
			addLog(ctx, log.ErrorLevel, "Failed to initialize flag SDK: %v", err)
			return nil, fmt.Errorf("SDK initialization failed: %w", err)
		}

		c.mu.Lock()
		c.client = client
		c.mu.Unlock()

		addLog(ctx, log.InfoLevel, "Flag SDK initialized successfully")
		return client, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(SDKClient), nil
	}
}

func (c *Client) userContext(userID string) sdk.UserContext {
	return sdk.UserContext{
		ID:              userID,
		CustomVariables: c.cfg.CustomVariables,
		Attributes:      c.cfg.UserAttributes,
	}
}

// EvaluateFlag evaluates the configured flag for userID. Failures are reported
// in the returned Response, never as a panic or error.
//
// The log lines of the evaluation go to the collector carried by ctx, or to a
// new one if ctx has none. Either way it becomes the latest log buffer.
func (c *Client) EvaluateFlag(ctx context.Context, userID string) Response {
	col := logs.FromContext(ctx)
	if col == nil {
		col = logs.NewCollector()
		ctx = logs.NewContext(ctx, col)
	}
	c.latest.Publish(col)

	userID = strings.TrimSpace(userID)
	if userID == "" {
		return Response{Error: UserIDRequired}
	}

	addLog(ctx, log.InfoLevel, "Evaluating flag for user: %s", userID)

	client, err := c.Initialize(ctx)
	if err != nil {
		return c.evaluationFailed(ctx, err)
	}

	flag, err := client.GetFlag(ctx, c.cfg.FlagKey, c.userContext(userID))
	if err != nil {
		return c.evaluationFailed(ctx, err)
	}

	isEnabled := flag.IsEnabled()
	addLog(ctx, log.InfoLevel, "Flag evaluation result - Enabled: %t for user: %s", isEnabled, userID)

	modelName, ok := flag.GetVariable(c.cfg.VariableKey1, DefaultModelName).(string)
	if !ok || modelName == "" {
		modelName = DefaultModelName
	}

	content := decodeContent(flag.GetVariable(c.cfg.VariableKey2, nil))
	if content.Content == "" {
		content.Content = DefaultContent
	}
	if content.Background == "" {
		content.Background = DefaultBackgroundColor
	}

	return Response{
		Success: true,
		Data: &Evaluation{
			Content:         content.Content,
			ModelName:       modelName,
			BackgroundColor: content.Background,
			IsEnabled:       isEnabled,
			UserID:          userID,
			Settings:        client.OriginalSettings(),
			Logs:            col.Entries(),
		},
	}
}

func (c *Client) evaluationFailed(ctx context.Context, err error) Response {
	addLog(ctx, log.ErrorLevel, "Flag evaluation failed: %v", err)
	return Response{Error: fmt.Sprintf("Flag evaluation failed: %v", err)}
}

// decodeContent reads the {content, background} object, ignoring anything else.
func decodeContent(v any) contentVariable {
	var out contentVariable
	m, ok := v.(map[string]any)
	if !ok {
		return out
	}
	out.Content, _ = m["content"].(string)
	out.Background, _ = m["background"].(string)
	return out
}

// TrackEvent sends the configured event for userID.
func (c *Client) TrackEvent(ctx context.Context, userID string) TrackResult {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return TrackResult{Error: TrackUserIDRequired}
	}

	addLog(ctx, log.InfoLevel, "Tracking event for user: %s", userID)

	client, err := c.Initialize(ctx)
	if err != nil {
		return c.trackFailed(ctx, err)
	}
	if err := client.TrackEvent(ctx, c.cfg.EventName, c.userContext(userID)); err != nil {
		return c.trackFailed(ctx, err)
	}

	addLog(ctx, log.InfoLevel, "Event tracked successfully for user: %s", userID)
	return TrackResult{Success: true}
}

func (c *Client) trackFailed(ctx context.Context, err error) TrackResult {
	addLog(ctx, log.ErrorLevel, "Event tracking failed: %v", err)
	return TrackResult{Error: fmt.Sprintf("Event tracking failed: %v", err)}
}

// GetLogs returns a copy of the latest evaluation's log lines.
func (c *Client) GetLogs() []logs.Entry {
	return c.latest.Get()
}

func (c *Client) ClearLogs() {
	col := c.latest.Reset()
	addLog(logs.NewContext(context.Background(), col), log.InfoLevel, "Logs cleared")
}

// Close releases the SDK client if one was created.
func (c *Client) Close() error {
	c.mu.Lock()
	client := c.client
	c.client = nil
	c.mu.Unlock()

	if client == nil {
		return nil
	}
	return client.Close()
}
