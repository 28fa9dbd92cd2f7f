package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/mwolters/polymark/pkg/api"
	"github.com/mwolters/polymark/pkg/cache"
	"github.com/mwolters/polymark/pkg/pipeline"
)

// newServeCmd creates the serve command that runs the scene build HTTP
// service.
//
// By default the service uses the same local file cache as the CLI. With
// --redis it uses a shared Redis backend instead, which is how several
// instances behind a load balancer share topology and artifact results.
// The Redis password is read from the REDIS_PASSWORD environment variable.
func newServeCmd() *cobra.Command {
	var (
		addr      string
		redisAddr string
		noCache   bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the scene build HTTP service",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), addr, redisAddr, noCache)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	cmd.Flags().StringVar(&redisAddr, "redis", "", "redis address for a shared cache (host:port)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching entirely")

	return cmd
}

func runServe(ctx context.Context, addr, redisAddr string, noCache bool) error {
	logger := loggerFromContext(ctx)

	var (
		c   cache.Cache
		err error
	)
	switch {
	case noCache:
		c = cache.NewNullCache()
	case redisAddr != "":
		c, err = cache.NewRedisCache(ctx, cache.RedisOptions{
			Addr:     redisAddr,
			Password: os.Getenv("REDIS_PASSWORD"),
		})
		if err != nil {
			return err
		}
		logger.Info("Using shared redis cache", "addr", redisAddr)
	default:
		c, err = newCache(false)
		if err != nil {
			return err
		}
	}

	runner := pipeline.NewRunner(c, nil, logger)
	defer runner.Close()

	srv := &http.Server{
		Addr:              addr,
		Handler:           api.NewServer(runner, logger).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return ctx.Err()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
