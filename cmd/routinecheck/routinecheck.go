package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/alecthomas/kong"
	"github.com/pkg/errors"

	"github.com/tigerbot-team/tigerbot/cata-controller/pkg/automode"
	"github.com/tigerbot-team/tigerbot/cata-controller/pkg/path"
)

var CLI struct {
	Check CheckCmd `cmd:"" default:"withargs" help:"Check routines fit their phase and reference real paths."`
	Dump  DumpCmd  `cmd:"" help:"Print a built-in routine as YAML, ready to edit."`
	List  ListCmd  `cmd:"" help:"List built-in routines and path assets."`
}

type CheckCmd struct {
	Builtin []string `help:"Built-in routines to check (default all)."`
	Files   []string `arg:"" optional:"" name:"file" help:"Routine files to check." type:"existingfile"`
	Verbose bool     `short:"v" help:"Print the step table."`
}

func (c *CheckCmd) Run() error {
	var routines []*automode.Routine
	names := c.Builtin
	if len(names) == 0 && len(c.Files) == 0 {
		names = automode.BuiltinNames()
	}
	for _, n := range names {
		r, err := automode.Builtin(n)
		if err != nil {
			return err
		}
		routines = append(routines, r)
	}
	for _, f := range c.Files {
		r, err := automode.LoadRoutine(f)
		if err != nil {
			return errors.Wrap(err, f)
		}
		routines = append(routines, r)
	}

	failed := 0
	for _, r := range routines {
		if err := r.Validate(); err != nil {
			fmt.Printf("%s: INVALID: %v\n", r.Name, err)
			failed++
			continue
		}
		report, err := automode.Budget(r)
		status := "OK"
		if err != nil {
			status = "OVER BUDGET"
			failed++
		}
		fmt.Printf("%s: %s: worst case %v of %v\n", r.Name, status, report.Total, report.Budget)
		for _, m := range report.Mismatches {
			fmt.Printf("  stale annotation: %s\n", m)
		}
		if c.Verbose {
			printTable(r, report)
		}
	}
	if failed > 0 {
		return errors.Errorf("%d routine(s) failed", failed)
	}
	return nil
}

func printTable(r *automode.Routine, report *automode.BudgetReport) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "  #\tstep\tsync\tworst case")
	for i, s := range r.Steps {
		sync := ""
		if s.Sync {
			sync = "sync"
		}
		fmt.Fprintf(w, "  %d\t%s\t%s\t%v\n", i, s, sync, report.Cumulative[i])
	}
	w.Flush()
}

type DumpCmd struct {
	Name string `arg:"" help:"Built-in routine name."`
}

func (d *DumpCmd) Run() error {
	r, err := automode.Builtin(d.Name)
	if err != nil {
		return err
	}
	data, err := r.Encode()
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(data)
	return err
}

type ListCmd struct{}

func (l *ListCmd) Run() error {
	fmt.Println("Routines:")
	for _, n := range automode.BuiltinNames() {
		fmt.Println("  " + n)
	}
	fmt.Println("Paths:")
	for _, n := range path.Names() {
		p, err := path.Load(n)
		if err != nil {
			return err
		}
		fmt.Printf("  %s: %d points, %.1f in\n", n, len(p.Points), p.Length())
	}
	return nil
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("routinecheck"),
		kong.Description("Static checks for autonomous routines."),
	)
	ctx.FatalIfErrorf(ctx.Run())
}
