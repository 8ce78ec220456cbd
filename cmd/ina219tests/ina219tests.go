package main

import (
	"fmt"
	"time"

	"github.com/alecthomas/kong"

	"github.com/tigerbot-team/tigerbot/cata-controller/pkg/ina219"
	"github.com/tigerbot-team/tigerbot/cata-controller/pkg/screen"
)

var cli struct {
	Bus  string `help:"I2C bus." default:"/dev/i2c-1"`
	Addr int    `help:"Monitor address." default:"65"`
}

func main() {
	kong.Parse(&cli, kong.Description("Print battery monitor readings."))

	batt, err := ina219.NewI2C(cli.Bus, cli.Addr)
	if err != nil {
		fmt.Println("Failed to open ina219", err)
		return
	}
	err = batt.Configure(0.1, 2.0)
	if err != nil {
		fmt.Println("Failed to configure ina219", err)
		return
	}

	for range time.NewTicker(500 * time.Millisecond).C {
		voltage, err := batt.ReadBusVoltage()
		fmt.Printf("%.2fV (%.0f%%) %v ", voltage, screen.Charge(voltage)*100, err)
		current, err := batt.ReadCurrent()
		fmt.Printf("%.3fA %v ", current, err)
		power, err := batt.ReadPower()
		fmt.Printf("%.3fW %v\n", power, err)
	}
}
