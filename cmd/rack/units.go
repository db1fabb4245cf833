package main

import (
	"flag"
	"fmt"

	"github.com/davecgh/go-spew/spew"

	"github.com/pipelined/rack"
	"github.com/pipelined/rack/internal/patch"
)

type unitsCommand struct {
	rigFlags
	dump bool
}

func (cmd *unitsCommand) Name() string {
	return "units"
}

func (cmd *unitsCommand) Help() string {
	return "Show units of the chain and their parameters"
}

func (cmd *unitsCommand) Register(fs *flag.FlagSet) {
	cmd.rigFlags.register(fs)
	fs.BoolVar(&cmd.dump, "dump", false, "dump current preset set of the chain")
}

func (cmd *unitsCommand) Run() error {
	cfg, err := cmd.load()
	if err != nil {
		return err
	}
	// in-memory store keeps listing free of side effects
	rig, err := patch.New(cfg, patch.WithStore(rack.NewMemoryStore()))
	if err != nil {
		return err
	}
	fmt.Println(rig.Chain)
	for _, u := range rig.Chain.Units() {
		fmt.Printf("%s:\n", u.Name())
		for _, s := range u.Specs() {
			fmt.Printf("\t%s\t[%v, %v]\tdefault %v\n", s.Name, s.Min, s.Max, s.Default)
		}
	}
	if cmd.dump {
		spew.Dump(rack.NewPresetSet(rack.DefaultPreset, rig.Chain.Units()...))
	}
	return nil
}
