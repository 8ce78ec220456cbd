package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tigerbot-team/tigerbot/cata-controller/pkg/config"
	"github.com/tigerbot-team/tigerbot/cata-controller/pkg/joystick"
)

var log = logrus.WithField("component", "joytests")

func main() {
	// Our global context, we cancel it to trigger shutdown.
	ctx, cancel := context.WithCancel(context.Background())

	// Hook Ctrl-C etc.
	registerSignalHandlers(cancel)

	jDev := config.GetStringEnv("JOYSTICK_DEVICE", config.DefaultPad)
	j, err := joystick.Open(ctx, jDev, time.Second)
	if err != nil {
		return
	}
	joystickEvents := make(chan *joystick.Event)
	go func() {
		if err := j.Run(ctx, joystickEvents); err != nil && ctx.Err() == nil {
			fmt.Printf("Joystick failed: %v\n", err)
		}
	}()
	state := joystick.NewState()
	var last joystick.Snapshot
	for je := range joystickEvents {
		state.Apply(je)
		snap := state.Snapshot()
		if snap != last {
			fmt.Printf("%+v\n", snap)
			last = snap
		}
	}
}

func registerSignalHandlers(cancelFunc context.CancelFunc) {
	// Hook Ctrl-C to cause shut down.
	signals := make(chan os.Signal, 2)
	signal.Notify(signals, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		s := <-signals
		log.WithField("signal", s).Info("Signal received")
		cancelFunc()
		time.Sleep(2 * time.Second)
		os.Exit(0)
	}()
}
