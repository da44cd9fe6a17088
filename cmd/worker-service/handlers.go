package main

import (
	"context"
	"fmt"
	"time"

	"github.com/cuongbtq/jq/internal/handler"
)

type echoArgs struct {
	Msg string `msgpack:"msg"`
}

type sleepArgs struct {
	Ms int64 `msgpack:"ms"`
}

// registerHandlers installs the demo job handlers
func registerHandlers(r *handler.Registry) {
	handler.RegisterFunc(r, "echo", func(_ context.Context, args echoArgs) (echoArgs, error) {
		return args, nil
	})

	// sleep honours the job timeout, so it doubles as a timeout demo
	handler.RegisterFunc(r, "sleep", func(ctx context.Context, args sleepArgs) (string, error) {
		if args.Ms < 0 {
			return "", handler.Permanent(fmt.Errorf("ms must not be negative"))
		}
		select {
		case <-time.After(time.Duration(args.Ms) * time.Millisecond):
			return "slept", nil
		case <-ctx.Done():
			return "", ctx.Err()
		}
	})
}
