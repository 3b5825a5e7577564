package bot

import (
	"context"
	"sync"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("bot",
	fx.Provide(NewHandler),
	fx.Provide(NewRunner),
	fx.Invoke(StartRunner),
)

// StartRunner polls Telegram for the lifetime of the app. OnStop waits for
// in-flight updates to finish. A runner that stops on its own, such as
// after losing the poller lease, shuts the app down with exit code 1.
func StartRunner(lc fx.Lifecycle, shutdowner fx.Shutdowner, runner *Runner, log *zap.Logger) {
	var (
		cancel context.CancelFunc
		wg     sync.WaitGroup
	)

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			var ctx context.Context
			ctx, cancel = context.WithCancel(context.Background())

			wg.Add(1)
			go func() {
				defer wg.Done()
				runner.Run(ctx)
				if ctx.Err() == nil {
					log.Error("bot runner exited unexpectedly")
					_ = shutdowner.Shutdown(fx.ExitCode(1))
				}
			}()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()

			done := make(chan struct{})
			go func() {
				wg.Wait()
				close(done)
			}()
			select {
			case <-done:
				return nil
			case <-stopCtx.Done():
				return stopCtx.Err()
			}
		},
	})
}
