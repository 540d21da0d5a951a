package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/codegangsta/negroni"
	"github.com/spf13/viper"

	"ticketing-backend/config"
	c "ticketing-backend/context"
	"ticketing-backend/factory"
	"ticketing-backend/logger"
	"ticketing-backend/router"
)

var (
	version string
)

const defaultCorrelationID = "00000000.00000000"

var ctx context.Context

func init() {
	ctx = c.SetContextWithValue(context.Background(), c.ContextKeyCorrelationID, defaultCorrelationID)
}

func main() {
	if err := config.Load(os.Args[1:]); err != nil {
		logger.Fatalf(ctx, "main: %+v", err)
	}
	if err := logger.Configure(viper.GetString(config.LogLevel), viper.GetString(config.LogFormat)); err != nil {
		logger.Fatalf(ctx, "main: %+v", err)
	}

	f := factory.NewFactory()
	defer func() {
		if err := f.Close(); err != nil {
			logger.Errorf(ctx, "main: error closing connections: %+v", err)
		}
	}()

	muxRouter := router.Router(ctx, f)

	n := negroni.New()
	n.UseHandler(muxRouter)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", viper.GetString(config.Port)),
		Handler: n,
	}

	go func() {
		logger.Infof(ctx, "main: ticketing %s listening on %s", version, srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf(ctx, "main: server stopped: %+v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := c.NewContextWithTimeOut(ctx, viper.GetDuration(config.ShutdownTimeout))
	defer cancel()

	logger.Infof(ctx, "main: shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf(ctx, "main: graceful shutdown failed: %+v", err)
	}
}
