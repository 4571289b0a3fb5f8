package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Bianca-Alexandru/Retele-CoopCanvas/internal/config"
	"github.com/Bianca-Alexandru/Retele-CoopCanvas/internal/logger"
	"github.com/Bianca-Alexandru/Retele-CoopCanvas/server"
	"github.com/Bianca-Alexandru/Retele-CoopCanvas/transport"
)

func serveCmd() *cobra.Command {
	var (
		cfgPath string
		logDir  string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the canvas server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), cfgPath, logDir)
		},
	}

	cmd.Flags().StringVarP(&cfgPath, "config", "c", config.DefaultPath, "Configuration file")
	cmd.Flags().StringVar(&logDir, "log-dir", "log", "Directory for latest.txt and last.txt")

	return cmd
}

func serve(ctx context.Context, cfgPath, logDir string) error {
	lg := logger.Setup(logDir)
	defer lg.Close()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}

	store, err := openStore(cfg.Storage)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.New(cfg, store)
	if err := srv.Load(ctx); err != nil {
		return err
	}

	l, err := transport.Listen(cfg.Transport, cfg.Addr())
	if err != nil {
		return err
	}

	if cfg.AdminListen != "" {
		hs := &http.Server{
			Addr:              cfg.AdminListen,
			Handler:           srv.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		go func() {
			log.Print("[Admin] Listening on ", cfg.AdminListen)
			if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Print("[Admin] ", err)
			}
		}()

		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			hs.Shutdown(sctx)
		}()
	}

	if cfg.MDNS {
		ms, err := srv.Advertise(cfg.MDNSInstance)
		if err != nil {
			log.Print("[Server] mDNS: ", err)
		} else {
			defer ms.Shutdown()
		}
	}

	return srv.Run(ctx, l)
}
