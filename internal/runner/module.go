package runner

import (
	"context"

	"go.uber.org/fx"
)

func Module() fx.Option {
	return fx.Module("runner",
		fx.Provide(
			NewTrader,
			NewLoopFromConfig,
		),
		fx.Invoke(RunLoop),
	)
}

// RunLoop starts the loop with the application and cancels it on stop, waiting for the
// cycle in flight. In single-shot mode the application shuts itself down afterwards.
func RunLoop(lc fx.Lifecycle, sd fx.Shutdowner, loop *Loop) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				loop.Run(ctx)
				close(done)
				if loop.once {
					_ = sd.Shutdown()
				}
			}()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			select {
			case <-done:
				return nil
			case <-stopCtx.Done():
				return stopCtx.Err()
			}
		},
	})
}
