package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/DoyleJ11/stars-party/internal/config"
	"github.com/DoyleJ11/stars-party/internal/conn"
	"github.com/DoyleJ11/stars-party/internal/httpapi"
	"github.com/DoyleJ11/stars-party/internal/session"
	"github.com/DoyleJ11/stars-party/internal/tui"
)

const shutdownTimeout = 5 * time.Second

func main() {
	cfg, err := config.Parse(flag.CommandLine, os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	log, err := cfg.NewLogger()
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = run(ctx, cfg, log)
	stop()

	if err != nil {
		log.Error("exiting", zap.Error(err))
	}
	_ = log.Sync()
	if err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *zap.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	mgr := conn.New(conn.Config{
		URL:         cfg.AuthorityURL,
		MaxAttempts: cfg.ReconnectAttempts,
		Delay:       cfg.ReconnectDelay,
		DialTimeout: cfg.DialTimeout,
	}, log)

	s := session.New(ctx, mgr, session.Options{
		ToastTTL:    cfg.ToastTTL,
		MaxAttempts: mgr.MaxAttempts(),
		Log:         log,
	})

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := mgr.Run(gctx)
		if errors.Is(err, conn.ErrRetriesExhausted) {
			// The last view stays up; the user reloads to retry.
			log.Warn("authority unreachable, serving last known state", zap.Error(err))
			return nil
		}
		return err
	})

	g.Go(func() error {
		s.Follow(gctx, mgr.Events())
		return nil
	})

	switch cfg.UI {
	case config.UITUI:
		g.Go(func() error {
			// Quitting the terminal ends the process.
			defer cancel()
			return tui.Run(gctx, s)
		})
	default:
		srv := &http.Server{
			Addr:              cfg.HTTPAddr,
			Handler:           httpapi.SetupRoutes(s, log),
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			log.Info("listening", zap.String("addr", "http://"+cfg.HTTPAddr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancelShutdown()
			err := srv.Shutdown(shutdownCtx)
			if err != nil {
				// Viewers still attached past the deadline are cut off.
				err = multierr.Append(err, srv.Close())
			}
			return err
		})
	}

	return g.Wait()
}
