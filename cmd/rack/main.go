package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/pipelined/rack/config"
)

type app struct {
	args []string
}

type command interface {
	Name() string
	Help() string
	Run() error
	Register(*flag.FlagSet)
}

func (a *app) run() int {
	cmdName, args := parseArgs(a.args)
	if cmdName == "" {
		printUsage()
		return errorExitCode
	}

	for _, cmd := range commands {
		if cmd.Name() == cmdName {
			flags := flag.NewFlagSet(cmdName, flag.ContinueOnError)
			cmd.Register(flags)
			if err := flags.Parse(args); err != nil {
				return errorExitCode
			}
			if err := cmd.Run(); err != nil {
				fmt.Fprintf(os.Stderr, "Command failed: %v\n", err)
				return errorExitCode
			}
			return successExitCode
		}
	}
	printUsage()
	return errorExitCode
}

var (
	successExitCode = 0
	errorExitCode   = 1
	commands        = []command{
		&playCommand{},
		&renderCommand{},
		&presetsCommand{},
		&unitsCommand{},
	}
)

func main() {
	a := app{
		args: os.Args,
	}
	os.Exit(a.run())
}

func parseArgs(args []string) (string, []string) {
	if len(args) < 2 {
		return "", nil
	}
	return args[1], args[2:]
}

func printUsage() {
	fmt.Println("Rack is a beat driven synth chain host")
	fmt.Println()
	fmt.Println("Usage: rack <command> [flags]")
	fmt.Println()
	fmt.Println("Commands:")
	for _, cmd := range commands {
		fmt.Printf("\t%s\t%s\n", cmd.Name(), cmd.Help())
	}
}

// rigFlags are flags shared by commands which build the rig. Zero values
// keep configuration values.
type rigFlags struct {
	config    string
	tempo     float64
	note      int
	presetDir string
}

func (f *rigFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&f.config, "config", "", "path to yaml config file")
	fs.Float64Var(&f.tempo, "tempo", 0, "tempo in beats per minute")
	fs.IntVar(&f.note, "note", -1, "initial note pitch 0..127")
	fs.StringVar(&f.presetDir, "presets", "", "preset directory")
}

func (f *rigFlags) load() (config.Config, error) {
	cfg := config.Default()
	if f.config != "" {
		var err error
		if cfg, err = config.Load(f.config); err != nil {
			return config.Config{}, err
		}
	}
	if f.tempo != 0 {
		cfg.Tempo = f.tempo
	}
	if f.note >= 0 {
		cfg.Note = f.note
	}
	if f.presetDir != "" {
		cfg.PresetDir = f.presetDir
	}
	return cfg, cfg.Validate()
}
