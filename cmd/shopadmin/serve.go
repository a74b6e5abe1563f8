package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/shopadmin/internal/api"
	"github.com/shopadmin/internal/credstore"
	"github.com/shopadmin/internal/gate"
	"github.com/shopadmin/internal/scheduler"
)

func serveCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the local admin console",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.app.serve(cmd.Context())
		},
	}
}

func (a *app) serve(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Follow sign-ins and sign-outs made by other processes sharing the store
	if w, ok := a.store.(credstore.Watcher); ok && a.cfg.Store.Watch {
		if err := a.session.Follow(ctx, w); err != nil {
			a.logger.Warn("not following credential changes", "error", err)
		}
	}

	sched := scheduler.New(a.logger)
	if err := sched.Add("session", a.cfg.Refresh.Session, scheduler.SessionJob(a.session)); err != nil {
		return fmt.Errorf("failed to schedule session refresh: %w", err)
	}
	lists := scheduler.All(
		scheduler.Gated(a.session, gate.TierAuthenticated, scheduler.All(
			scheduler.RefreshJob("products", a.products),
			scheduler.RefreshJob("orders", a.orders.Synchronizer),
		)),
		scheduler.Gated(a.session, gate.TierAdmin, scheduler.All(
			scheduler.RefreshJob("categories", a.categories),
			scheduler.RefreshJob("settings", a.settings.Synchronizer),
		)),
	)
	if err := sched.Add("lists", a.cfg.Refresh.Lists, lists); err != nil {
		return fmt.Errorf("failed to schedule list refresh: %w", err)
	}
	sched.Start(ctx)
	defer sched.Stop()

	handler := api.NewHandler(api.Deps{
		Session:    a.session,
		Products:   a.products,
		Orders:     a.orders,
		Categories: a.categories,
		Settings:   a.settings,
		Users:      a.users,
		Dashboard:  a.dashboard,
		Recent:     a.ordersAPI,
		Scheduler:  sched,
		APIBase:    a.client.BaseURL(),
		Logger:     a.logger,
	})

	server := &http.Server{
		Addr:         a.cfg.Server.Addr(),
		Handler:      api.NewRouter(handler, a.registry, a.logger.With("component", "http"), a.cfg.Server.AllowedOrigins),
		ReadTimeout:  a.cfg.Server.ReadTimeout,
		WriteTimeout: a.cfg.Server.WriteTimeout,
	}

	errc := make(chan error, 1)
	go func() {
		a.logger.Info("console listening", "addr", server.Addr, "api", a.client.BaseURL())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err, ok := <-errc:
		if ok {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	a.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	a.logger.Info("server stopped")
	return nil
}
