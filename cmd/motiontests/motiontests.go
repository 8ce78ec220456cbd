package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/alecthomas/kong"

	"github.com/tigerbot-team/tigerbot/cata-controller/pkg/config"
	"github.com/tigerbot-team/tigerbot/cata-controller/pkg/hardware"
	"github.com/tigerbot-team/tigerbot/cata-controller/pkg/motion"
	"github.com/tigerbot-team/tigerbot/cata-controller/pkg/path"
	"github.com/tigerbot-team/tigerbot/cata-controller/pkg/simbot"
)

var cli struct {
	Config  string `help:"Config file to overlay on the defaults." default:"/cfg/robot.yaml"`
	Profile string `help:"Configuration profile."`
	Sim     bool   `help:"Run against the simulator instead of the hardware."`
}

const usage = `Commands:
    pose                      print the tracked pose
    set <x> <y> <theta>       set the tracked pose
    p <x> <y> <theta> <t>     move to pose with timeout t (e.g. 2s)
    m <x> <y> <t>             move to point
    t <x> <y> <t>             turn to face point
    h <theta> <t>             turn to heading
    f <path> <lookahead> <t>  follow a path asset
    r                         toggle reverse driving
    s <speed>                 set max speed (0-127)`

func main() {
	kong.Parse(&cli, kong.Description("Run single motion commands and print how they finish."))
	fmt.Println("---- Motion tests ----")
	fmt.Println("GOMAXPROCS", runtime.GOMAXPROCS(0))

	cfg, err := config.Load(cli.Config, cli.Profile)
	if err != nil {
		fmt.Println("Failed to load config:", err)
		return
	}

	// Our global context, we cancel it to trigger shutdown.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialise the hardware.
	var hw *hardware.RobotHardware
	var sim *simbot.Robot
	if cli.Sim {
		sim = simbot.New(simbot.DefaultConfig(cfg.Drivetrain))
		stop := sim.Start(ctx)
		defer stop()
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

	chassis := motion.NewChassis(hw.LeftDrive, hw.RightDrive, hw.IMU, cfg.Drivetrain, cfg.Linear, cfg.Angular)
	fmt.Println("Calibrating; keep the robot still")
	if err := chassis.Calibrate(ctx); err != nil {
		fmt.Println("Failed to calibrate:", err)
		return
	}
	defer chassis.Stop()

	params := motion.Params{MaxSpeed: motion.DefaultMaxSpeed}
	fmt.Println(usage)

	floats := func(parts []string, n int) ([]float64, time.Duration, bool) {
		if len(parts) < n+2 {
			fmt.Println("Not enough parameters")
			return nil, 0, false
		}
		var out []float64
		for _, p := range parts[1 : n+1] {
			f, err := strconv.ParseFloat(p, 64)
			if err != nil {
				fmt.Printf("Failed to parse float: %v\n", err)
				return nil, 0, false
			}
			out = append(out, f)
		}
		d, err := time.ParseDuration(parts[n+1])
		if err != nil {
			fmt.Printf("Failed to parse duration: %v\n", err)
			return nil, 0, false
		}
		return out, d, true
	}

	reader := bufio.NewReader(os.Stdin)
	for {
		fmt.Print("> ")
		line, err := reader.ReadString('\n')
		if err != nil {
			fmt.Println("\nFailed to read stdin: ", err)
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}

		var m *motion.Motion
		start := time.Now()
		switch parts[0] {
		case "pose":
			fmt.Println(chassis.Pose())
			if sim != nil {
				fmt.Println("true pose:", sim.TruePose())
			}
			continue
		case "set":
			if len(parts) < 4 {
				fmt.Println("Not enough parameters")
				continue
			}
			v, _, ok := floats(append(parts[:4], "0s"), 3)
			if !ok {
				continue
			}
			p := motion.Pose{X: v[0], Y: v[1], Theta: v[2]}
			chassis.SetPose(p)
			if sim != nil {
				sim.SetTruePose(p)
			}
			continue
		case "r":
			params.Reverse = !params.Reverse
			fmt.Println("Reverse:", params.Reverse)
			continue
		case "s":
			if len(parts) < 2 {
				fmt.Println("Not enough parameters")
				continue
			}
			speed, err := strconv.ParseFloat(parts[1], 64)
			if err != nil {
				fmt.Printf("Failed to parse float: %v\n", err)
				continue
			}
			params.MaxSpeed = speed
			continue
		case "p":
			v, d, ok := floats(parts, 3)
			if !ok {
				continue
			}
			m, err = chassis.MoveToPose(ctx, v[0], v[1], v[2], d, params)
		case "m":
			v, d, ok := floats(parts, 2)
			if !ok {
				continue
			}
			m, err = chassis.MoveToPoint(ctx, v[0], v[1], d, params)
		case "t":
			v, d, ok := floats(parts, 2)
			if !ok {
				continue
			}
			m, err = chassis.TurnTo(ctx, v[0], v[1], d, params)
		case "h":
			v, d, ok := floats(parts, 1)
			if !ok {
				continue
			}
			m, err = chassis.TurnToHeading(ctx, v[0], d, params)
		case "f":
			if len(parts) < 4 {
				fmt.Println("Not enough parameters")
				continue
			}
			p, perr := path.Load(parts[1])
			if perr != nil {
				fmt.Println(perr)
				continue
			}
			v, d, ok := floats(parts[1:], 1)
			if !ok {
				continue
			}
			m, err = chassis.Follow(ctx, p, v[0], d, params)
		default:
			fmt.Println(usage)
			continue
		}
		if err != nil {
			fmt.Println("Motion failed:", err)
			continue
		}
		outcome, err := m.Wait(ctx)
		if err != nil {
			fmt.Println("Wait failed:", err)
			continue
		}
		fmt.Printf("%s: %v after %v, travelled %.1f, pose %v\n",
			m.Kind, outcome, time.Since(start).Round(time.Millisecond), m.Travelled(), chassis.Pose())
	}
}
