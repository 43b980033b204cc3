package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// shutdownGrace is added to the write timeout when draining, so a generation
// that started just before shutdown can still finish.
const shutdownGrace = 10 * time.Second

// Run serves HTTP until ctx is cancelled, then drains in-flight requests and
// stops the application.
func (a *App) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.config.Server.Address)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", a.config.Server.Address, err)
	}
	return a.serve(ctx, ln)
}

func (a *App) serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:      a.router,
		ReadTimeout:  a.config.Server.ReadTimeout,
		WriteTimeout: a.config.Server.WriteTimeout,
		IdleTimeout:  a.config.Server.IdleTimeout,
		ErrorLog:     zap.NewStdLog(a.zapLogger.Named("http")),
	}

	errCh := make(chan error, 1)
	go func() {
		a.zapLogger.Info("server listening", zap.String("address", ln.Addr().String()))
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		a.Stop()
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	a.zapLogger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.config.Server.WriteTimeout+shutdownGrace)
	defer cancel()

	err := srv.Shutdown(shutdownCtx)
	if serveErr := <-errCh; err == nil && !errors.Is(serveErr, http.ErrServerClosed) {
		err = serveErr
	}
	if err != nil {
		a.zapLogger.Error("shutdown incomplete", zap.Error(err))
	} else {
		a.zapLogger.Info("server stopped")
	}
	a.Stop()
	if err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
