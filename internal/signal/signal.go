package signal

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
)

// WatchInterrupt returns a context cancelled on SIGINT or SIGTERM. The process
// exits if it is still alive forceShutdownDelay after the signal.
func WatchInterrupt(ctx context.Context, forceShutdownDelay time.Duration) context.Context {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	ctx, cancel := context.WithCancel(ctx)

	go func() {
		select {
		case sig := <-sigs:
			log.WithField("signal", sig.String()).
				Warnf("interrupt signal received, draining running jobs or exiting in %s", forceShutdownDelay)
		case <-ctx.Done():
			signal.Stop(sigs)
			return
		}

		cancel()

		timer := time.NewTimer(forceShutdownDelay)
		select {
		case <-timer.C:
			log.Warnf("still running %s after interrupt, exit immediately", forceShutdownDelay)
			os.Exit(1)
		case <-sigs:
			log.Warn("second interrupt received, exit immediately")
			os.Exit(1)
		}
	}()

	return ctx
}
