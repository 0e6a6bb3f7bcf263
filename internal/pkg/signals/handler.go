package signals

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/endorses/stringmatch/internal/pkg/constants"
	"github.com/endorses/stringmatch/internal/pkg/logger"
)

// SetupHandler sets up a signal handler that cancels the provided context on SIGINT or SIGTERM
// Returns a cleanup function that should be called when the signal handler is no longer needed
func SetupHandler(ctx context.Context, cancel context.CancelFunc) (cleanup func()) {
	sigCh := make(chan os.Signal, constants.SignalChannelBuffer)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan struct{})
	go func() {
		defer close(done)
		select {
		case sig := <-sigCh:
			logger.Info("Received signal, initiating shutdown", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()

	return func() {
		signal.Stop(sigCh)
		cancel()
		<-done
	}
}

// SetupReloadHandler calls reload on every SIGHUP until ctx is done. The
// pattern set is rebuilt in place while scans keep running on the old one.
func SetupReloadHandler(ctx context.Context, reload func()) (cleanup func()) {
	sigCh := make(chan os.Signal, constants.SignalChannelBuffer)
	signal.Notify(sigCh, syscall.SIGHUP)

	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case sig := <-sigCh:
				logger.Info("Received signal, reloading patterns", "signal", sig.String())
				reload()
			case <-ctx.Done():
				return
			case <-stop:
				return
			}
		}
	}()

	return func() {
		signal.Stop(sigCh)
		close(stop)
		<-done
	}
}
