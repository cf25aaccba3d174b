package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/open-feature/flagdemo/pkg/config"
	"github.com/open-feature/flagdemo/pkg/flagclient"
	"github.com/open-feature/flagdemo/pkg/runtime"
	"github.com/open-feature/flagdemo/pkg/service"
)

// startCmd represents the start command
var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the flag demo web server",
	Long:  ``,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load(v)
		if origins, _ := cmd.Flags().GetStringSlice(config.CORSOriginsKey); len(origins) > 0 {
			cfg.CORSOrigins = origins
		}
		if ok, errs := cfg.Validate(); !ok {
			// not fatal: the evaluate route reports the same errors per request
			for _, e := range errs {
				log.Warn(e)
			}
		}

		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

		flags := flagclient.New(cfg, flagclient.WithRegisterer(reg))
		serviceImpl := &service.HTTPService{
			HTTPServiceConfiguration: &service.HTTPServiceConfiguration{
				Port:        cfg.Port,
				CORSOrigins: cfg.CORSOrigins,
				FlagKey:     cfg.FlagKey,
			},
			Registry: reg,
		}

		// Serve ------------------------------------------------------------------
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		errc := make(chan error, 1)
		go func() {
			errc <- runtime.Start(ctx, serviceImpl, flags)
		}()

		sigc := make(chan os.Signal, 1)
		signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigc)

		select {
		case sig := <-sigc:
			log.Infof("received %s, shutting down", sig)
			cancel()
			return <-errc
		case err := <-errc:
			if err != nil {
				return fmt.Errorf("server stopped: %w", err)
			}
			return nil
		}
	},
}

func init() {
	flags := startCmd.Flags()
	flags.Int32P(config.PortKey, "p", 8080, "Port to listen on")
	flags.StringP(config.SettingsSourceKey, "f", "settings.json", "Settings source: a file path or an http(s) URL")
	flags.String(config.PollIntervalKey, "30s", "Poll interval for http(s) settings sources")
	flags.String(config.FlagKeyKey, "", "Flag to evaluate")
	flags.String(config.EventNameKey, "", "Event to track after each evaluation")
	flags.StringSlice(config.CORSOriginsKey, nil, "Origins allowed to call the API cross-origin")

	for _, key := range []string{
		config.PortKey, config.SettingsSourceKey, config.PollIntervalKey,
		config.FlagKeyKey, config.EventNameKey,
	} {
		_ = v.BindPFlag(key, flags.Lookup(key))
	}
	rootCmd.AddCommand(startCmd)
}
