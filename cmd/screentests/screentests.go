package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/tigerbot-team/tigerbot/cata-controller/pkg/screen"
)

// Each line typed goes to the next row of the display.
func main() {
	ctx := context.Background()

	scr := screen.New()
	go scr.Loop(ctx, screen.DefaultDevice)

	scr.SetBatteryVolts(8.1)

	reader := bufio.NewReader(os.Stdin)
	row := 0
	for {
		fmt.Print("> ")
		line, err := reader.ReadString('\n')
		if err != nil {
			fmt.Println("\nFailed to read stdin: ", err)
			return
		}
		line = strings.TrimSpace(line)
		if line == "clear" {
			scr.Clear()
			row = 0
			continue
		}
		scr.Print(row, "%s", line)
		row = (row + 1) % screen.NumRows
		fmt.Print(scr)
	}
}
