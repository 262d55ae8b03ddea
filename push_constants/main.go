package main

import (
	"context"
	"os"
	"os/signal"
	"runtime"

	"github.com/vkngwrapper/compute/logging"
)

func init() {
	runtime.LockOSThread()
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		logging.Fatalf("%v", err)
	}
	logging.Close()
}
