package main

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"time"

	"github.com/alecthomas/kong"

	"github.com/tigerbot-team/tigerbot/cata-controller/pkg/angle"
	"github.com/tigerbot-team/tigerbot/cata-controller/pkg/config"
	"github.com/tigerbot-team/tigerbot/cata-controller/pkg/hardware"
	"github.com/tigerbot-team/tigerbot/cata-controller/pkg/simbot"
)

var cli struct {
	Config string        `help:"Config file to overlay on the defaults." default:"/cfg/robot.yaml"`
	Sim    bool          `help:"Run against the simulator."`
	Power  int           `help:"Turning power (0-127)." default:"40"`
	Time   time.Duration `help:"How long to spin each way." default:"5s"`
}

// Spins on the spot each way and compares the gyro's heading change with
// the wheel travel to measure the effective track width.
func main() {
	kong.Parse(&cli, kong.Description("Measure the effective track width against the gyro."))
	fmt.Println("---- Gyro calibration ----")
	fmt.Println("GOMAXPROCS", runtime.GOMAXPROCS(0))

	cfg, err := config.Load(cli.Config, "")
	if err != nil {
		fmt.Println("Failed to load config:", err)
		return
	}

	// Our global context, we cancel it to trigger shutdown.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialise the hardware.
	var hw *hardware.RobotHardware
	if cli.Sim {
		sim := simbot.New(simbot.DefaultConfig(cfg.Drivetrain))
		defer sim.Start(ctx)()
		hw = sim.RobotHardware
	} else {
		hw, err = hardware.New(ctx, cfg.Ports, cfg.Devices)
		if err != nil {
			fmt.Println("Failed to open hardware:", err)
			return
		}
	}
	defer func() {
		fmt.Println("Zeroing motors for shut down")
		hw.Shutdown()
		time.Sleep(100 * time.Millisecond)
	}()

	fmt.Println("Calibrating; keep the robot still")
	if err := hw.IMU.Calibrate(ctx); err != nil {
		fmt.Println("Failed to calibrate:", err)
		return
	}

	inchesPerDegree := cfg.Drivetrain.InchesPerMotorDegree()
	var widths []float64
	for _, dir := range []int{1, -1} {
		h0, err0 := hw.IMU.Heading()
		l0, errL := hw.LeftDrive.Position()
		r0, errR := hw.RightDrive.Position()
		if err0 != nil || errL != nil || errR != nil {
			fmt.Println("Failed to read sensors:", err0, errL, errR)
			return
		}

		_ = hw.LeftDrive.Move(dir * cli.Power)
		_ = hw.RightDrive.Move(-dir * cli.Power)
		time.Sleep(cli.Time)
		hw.StopMotors()
		time.Sleep(500 * time.Millisecond)

		h1, _ := hw.IMU.Heading()
		l1, _ := hw.LeftDrive.Position()
		r1, _ := hw.RightDrive.Position()

		turned := h1 - h0
		wheels := ((l1 - l0) - (r1 - r0)) * inchesPerDegree
		fmt.Printf("Direction %d: gyro %.1f deg, wheel difference %.1f in\n", dir, turned, wheels)
		if math.Abs(turned) < 10 {
			fmt.Println("Barely turned; try more power or time")
			continue
		}
		widths = append(widths, wheels/angle.ToRadians(turned))
	}
	if len(widths) == 0 {
		return
	}
	sum := 0.0
	for _, w := range widths {
		sum += w
	}
	fmt.Printf("Effective track width %.2f in (configured %.2f in)\n", sum/float64(len(widths)), cfg.Drivetrain.TrackWidth)
}
