package runtime

import (
	"context"

	"github.com/open-feature/flagdemo/pkg/flagclient"
	"github.com/open-feature/flagdemo/pkg/service"
	log "github.com/sirupsen/logrus"
)

// Start serves flags until ctx is cancelled, then releases the SDK client.
// The SDK client itself is created lazily by the first request that needs it.
func Start(ctx context.Context, server service.IService, flags *flagclient.Client) error {
	defer func() {
		if err := flags.Close(); err != nil {
			log.Errorf("closing flag client: %v", err)
		}
	}()
	return server.Serve(ctx, flags)
}
