package service

import (
	"context"

	"github.com/open-feature/flagdemo/pkg/flagclient"
	"github.com/open-feature/flagdemo/pkg/logs"
)

// FlagEvaluator is what the HTTP routes need from the flag client.
type FlagEvaluator interface {
	EvaluateFlag(ctx context.Context, userID string) flagclient.Response
	TrackEvent(ctx context.Context, userID string) flagclient.TrackResult
	GetLogs() []logs.Entry
}

type IService interface {
	Serve(ctx context.Context, flags FlagEvaluator) error
}
