package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/david-macharia/isc-radius/pkg/log"
	"github.com/david-macharia/isc-radius/pkg/packet"
	"github.com/david-macharia/isc-radius/pkg/server"
)

var (
	configPath string
	logLevel   string
)

func main() {
	cmd := &cobra.Command{
		Use:          "radiusd",
		Short:        "RADIUS authentication and accounting server",
		SilenceUsage: true,
		RunE:         run,
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "radiusd.yml", "path to the YAML config file")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	logg := log.NewWithLevel(logLevel)

	cfg, err := server.LoadConfig(configPath)
	if err != nil {
		return err
	}
	cfg.Logger = logg

	hook := server.Hook{
		Auth: []server.HandlerFunc{logRequest(logg)},
		Acct: []server.HandlerFunc{logRequest(logg)},
	}

	srv, err := server.New(cfg, hook)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := srv.Start(ctx); err != nil {
		return err
	}

	<-ctx.Done()
	srv.Stop()
	return nil
}

func logRequest(logg log.Logger) server.HandlerFunc {
	return func(ctx context.Context, req *server.Request, resp *packet.Packet) (bool, error) {
		if attr := req.Packet.Get("User-Name"); attr != nil {
			logg.Infof("%s from %s for %s", req.Packet.Code(), req.ClientAddr, attr.Value)
		} else {
			logg.Infof("%s from %s", req.Packet.Code(), req.ClientAddr)
		}
		return false, nil
	}
}
