package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/tigerbot-team/tigerbot/cata-controller/pkg/automode"
	"github.com/tigerbot-team/tigerbot/cata-controller/pkg/competition"
	"github.com/tigerbot-team/tigerbot/cata-controller/pkg/config"
	"github.com/tigerbot-team/tigerbot/cata-controller/pkg/drivermode"
	"github.com/tigerbot-team/tigerbot/cata-controller/pkg/hardware"
	"github.com/tigerbot-team/tigerbot/cata-controller/pkg/joystick"
	"github.com/tigerbot-team/tigerbot/cata-controller/pkg/motion"
	"github.com/tigerbot-team/tigerbot/cata-controller/pkg/screen"
	"github.com/tigerbot-team/tigerbot/cata-controller/pkg/simbot"
	"github.com/tigerbot-team/tigerbot/cata-controller/pkg/telemetry"
	"github.com/tigerbot-team/tigerbot/cata-controller/pkg/testmode"
)

var log = logrus.WithField("component", "controller")

var cli struct {
	Config   string `help:"Config file to overlay on the defaults." default:"/cfg/robot.yaml"`
	Profile  string `help:"Configuration profile: match, skills or legacy."`
	Match    bool   `help:"Start a timed match as soon as the robot is initialized."`
	Sim      bool   `help:"Drive a simulated robot instead of the hardware." xor:"backend"`
	Dummy    bool   `help:"Use dummy hardware that only records commands." xor:"backend"`
	SelfTest bool   `help:"Exercise each mechanism in turn, print the results and exit."`
}

func main() {
	kong.Parse(&cli, kong.Description("Competition robot controller."))

	fmt.Println("---- Catapult bot ----")
	fmt.Println("GOMAXPROCS", runtime.GOMAXPROCS(0))

	cfg, err := config.Load(cli.Config, cli.Profile)
	if err != nil {
		log.WithError(err).Fatal("Failed to load config")
	}
	if err := cfg.ApplyLogLevel(); err != nil {
		log.WithError(err).Fatal("Bad log level")
	}
	if err := cfg.WriteInUse(config.InUseFile); err != nil {
		log.WithError(err).Warn("Failed to write in-use config")
	}
	matchID := uuid.New().String()
	log = log.WithField("match", matchID)
	log.WithField("profile", cfg.Profile).Info("Config loaded")

	// Our global context, we cancel it to trigger shutdown.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Hook Ctrl-C etc.
	registerSignalHandlers(cancel)

	// Initialise the hardware.
	hw, stopBackend := openHardware(ctx, cfg)
	defer func() {
		fmt.Println("Zeroing motors for shut down")
		hw.Shutdown()
		stopBackend()
		time.Sleep(100 * time.Millisecond)
	}()

	if cli.SelfTest {
		for _, r := range testmode.New(hw).Run(ctx) {
			fmt.Println(r)
		}
		return
	}

	chassis := motion.NewChassis(hw.LeftDrive, hw.RightDrive, hw.IMU, cfg.Drivetrain, cfg.Linear, cfg.Angular)
	defer chassis.Stop()

	routine, err := automode.Select(cfg.Autonomous.Routine, cfg.Autonomous.RoutineFile)
	if err != nil {
		log.WithError(err).Error("Failed to load autonomous routine")
		return
	}
	if report, err := automode.Budget(routine); err != nil {
		log.WithError(err).Error("Autonomous routine doesn't fit its phase")
		return
	} else if len(report.Mismatches) > 0 {
		log.WithField("mismatches", report.Mismatches).Warn("Routine timing annotations are stale")
	}

	pad := joystick.NewState()
	auto := automode.New(automode.NewSequencer(chassis, hw), routine)
	driver := drivermode.New(cfg.Driver, chassis, hw, pad)
	life := competition.New(hw, chassis, cfg.Match, auto, driver)
	defer life.Shutdown()

	scr := screen.New()
	tel := telemetry.New(cfg.Telemetry, chassis, scr, hw.Battery, matchID)
	tel.Phase = func() string { return life.Phase().String() }
	if cfg.Telemetry.SerialPort != "" {
		port, err := telemetry.OpenSerial(cfg.Telemetry.SerialPort, cfg.Telemetry.BaudRate)
		if err != nil {
			log.WithError(err).Warn("Serial telemetry disabled")
		} else {
			defer port.Close()
			tel.Sink = port
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		scr.Loop(gctx, cfg.Framebuffer)
		return nil
	})
	g.Go(func() error {
		return tel.Loop(gctx)
	})
	joystickEvents := make(chan *joystick.Event, 1)
	g.Go(func() error {
		return runJoystick(gctx, cfg.JoystickDevice, joystickEvents)
	})
	defer func() {
		cancel()
		if err := g.Wait(); err != nil && err != context.Canceled {
			log.WithError(err).Warn("Background task failed")
		}
	}()

	hw.PlaySound("/sounds/robotstart.wav")
	if err := life.Initialize(gctx); err != nil {
		log.WithError(err).Error("Failed to initialize")
		return
	}
	if cli.Match {
		life.StartMatch(gctx)
	}

	fmt.Println("Waiting for events...")
	watchdog := time.NewTicker(5 * time.Second)
	defer watchdog.Stop()
	for {
		select {
		case <-gctx.Done():
			fmt.Println("Context done, stopping active mode and shutting down")
			return
		case event, ok := <-joystickEvents:
			if !ok {
				fmt.Println("Joystick events channel closed!")
				return
			}
			pad.Apply(event)
			life.OnJoystickEvent(gctx, event)
		case <-watchdog.C:
			log.WithField("phase", life.Phase()).Debug("Main loop still running")
		}
	}
}

// openHardware returns the selected back-end and a function that stops it.
func openHardware(ctx context.Context, cfg config.RobotConfig) (*hardware.RobotHardware, func()) {
	switch {
	case cli.Sim:
		fmt.Println("Using simulated robot")
		sim := simbot.New(simbot.DefaultConfig(cfg.Drivetrain))
		return sim.RobotHardware, sim.Start(ctx)
	case cli.Dummy:
		fmt.Println("Using dummy hardware")
		return hardware.NewDummy().RobotHardware, func() {}
	}
	hw, err := hardware.New(ctx, cfg.Ports, cfg.Devices)
	if err != nil {
		log.WithError(err).Fatal("Failed to open hardware")
	}
	return hw, func() {}
}

// runJoystick waits for the joystick to appear and then copies its events
// to the channel until ctx is done or the device fails.
func runJoystick(ctx context.Context, device string, events chan *joystick.Event) error {
	j, err := joystick.Open(ctx, device, time.Second)
	if err != nil {
		close(events)
		return err
	}
	err = j.Run(ctx, events)
	if err != nil && ctx.Err() == nil {
		fmt.Printf("Joystick failed: %v.\n", err)
	}
	return err
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
