package provider

import (
	"context"
	"strings"
)

// IProvider is a source of settings documents.
type IProvider interface {
	// Name identifies the source in notifications and log lines.
	Name() string
	// Fetch returns the current settings document.
	Fetch(ctx context.Context) ([]byte, error)
	// Watch calls onChange with every new settings document until ctx is done.
	Watch(ctx context.Context, onChange func([]byte)) error
}

type Credentials struct {
	AccountID int
	SDKKey    string
}

// New picks a provider for uri: http(s) URLs are polled, anything else is a file path.
func New(uri string, creds Credentials, pollInterval string) IProvider {
	if strings.HasPrefix(uri, "http://") || strings.HasPrefix(uri, "https://") {
		return &HTTPProvider{
			URL:         uri,
			Credentials: creds,
			Interval:    pollInterval,
		}
	}
	return &FilePathProvider{URI: strings.TrimPrefix(uri, "file://")}
}
