package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/httplog"
	"github.com/sleekyom/linkdash/config"
	httpchi "github.com/sleekyom/linkdash/internal/http/chi"
	"github.com/sleekyom/linkdash/metrics"
	"github.com/sleekyom/linkdash/ratelimit"
	"github.com/sleekyom/linkdash/webhook"
	"github.com/sleekyom/linkdash/webhook/memory"
	webhookredis "github.com/sleekyom/linkdash/webhook/redis"
)

const TIMEOUT = 30 * time.Second

/* main is where the wiring of all packages happens: dependencies are
 * initialized here and handed down. Imports flow in one direction only:
 * the application imports the business layer, which imports storage.
 */
func main() {
	cfg, err := config.GetConfig()
	if err != nil {
		fmt.Println(err)
		return
	}

	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT,
	)
	defer stop()

	logger := httplog.NewLogger("linkdash-webhooks", httplog.Options{
		JSON: true,
	})

	// Redis when configured, in-memory otherwise (single-process dev mode)
	var repo webhook.Repository
	if cfg.RedisAddr != "" {
		repo, err = webhookredis.NewRepository(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			fmt.Println(err)
			return
		}
	} else {
		repo = memory.NewRepository()
	}
	defer repo.Close(ctx)

	policies := ratelimit.DefaultPolicies()
	if cfg.RateLimitsFile != "" {
		policies, err = ratelimit.LoadPolicies(cfg.RateLimitsFile)
		if err != nil {
			fmt.Println(err)
			return
		}
	}

	limiter := ratelimit.NewLimiter()
	defer limiter.Close()

	collector := metrics.NewRepositoryCollector(repo)
	exporter, err := metrics.NewOTelExporter(collector)
	if err != nil {
		fmt.Println(err)
		return
	}
	defer exporter.Shutdown(ctx)

	deliverer := webhook.NewDeliverer(repo, logger)
	dispatcher := webhook.NewDispatcher(repo, deliverer, logger, exporter)
	service := webhook.NewService(repo, deliverer)

	r := httpchi.Handlers(ctx, service, dispatcher, limiter, policies, exporter.Handler())
	srv := &http.Server{
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		Addr:         ":" + cfg.Port,
		Handler:      r,
	}

	errShutdown := make(chan error, 1)
	go shutdown(srv, ctx, errShutdown)
	fmt.Printf("Listening on port %s\n", cfg.Port)
	err = srv.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		fmt.Println(err)
		return
	}
	err = <-errShutdown
	if err != nil {
		fmt.Println(err)
		return
	}

	// Best effort: let in-flight delivery chains finish their attempts
	dispatcher.Wait()
}

func shutdown(server *http.Server, ctxShutdown context.Context, errShutdown chan error) {
	<-ctxShutdown.Done()

	ctxTimeout, stop := context.WithTimeout(context.Background(), TIMEOUT)
	defer stop()

	err := server.Shutdown(ctxTimeout)
	switch err {
	case nil:
		fmt.Printf("\nShutting down server...\n")
		errShutdown <- nil
	case context.DeadlineExceeded:
		errShutdown <- fmt.Errorf("Forcing closing the server")
	default:
		errShutdown <- fmt.Errorf("Forcing closing the server")
	}
}
