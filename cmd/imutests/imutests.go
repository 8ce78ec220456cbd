package main

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/alecthomas/kong"

	"github.com/tigerbot-team/tigerbot/cata-controller/pkg/angle"
	"github.com/tigerbot-team/tigerbot/cata-controller/pkg/hardware"
	"github.com/tigerbot-team/tigerbot/cata-controller/pkg/imu"
)

var cli struct {
	Device string        `help:"SPI device the gyro is on." default:"/dev/spidev0.1"`
	Period time.Duration `help:"How often to print the heading." default:"200ms"`
}

func main() {
	kong.Parse(&cli, kong.Description("Print the integrated gyro heading."))

	m, err := imu.NewSPI(cli.Device)
	if err != nil {
		fmt.Println("Failed to open IMU:", err)
		return
	}
	gyro := hardware.NewGyroInertial(m)

	ctx := context.Background()
	fmt.Println("Calibrating; keep the robot still")
	if err := gyro.Calibrate(ctx); err != nil {
		fmt.Println("Failed to calibrate:", err)
		return
	}
	var wg sync.WaitGroup
	wg.Add(1)
	go gyro.Loop(ctx, &wg)

	for range time.NewTicker(cli.Period).C {
		h, err := gyro.Heading()
		if err != nil {
			fmt.Println("Heading:", err)
			continue
		}
		fmt.Printf("Heading: %.2f (%.2f)\n", h, angle.FromFloat(h).Float())
	}
}
