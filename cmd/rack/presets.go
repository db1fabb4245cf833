package main

import (
	"flag"
	"fmt"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
	"gopkg.in/yaml.v3"

	"github.com/pipelined/rack/preset"
)

type presetsCommand struct {
	rigFlags
	chain string
	diff  string
}

func (cmd *presetsCommand) Name() string {
	return "presets"
}

func (cmd *presetsCommand) Help() string {
	return "Show saved presets of the chain or difference between two of them"
}

func (cmd *presetsCommand) Register(fs *flag.FlagSet) {
	cmd.rigFlags.register(fs)
	fs.StringVar(&cmd.chain, "chain", "", "chain name, configured chain by default")
	fs.StringVar(&cmd.diff, "diff", "", "comma separated pair of presets to compare")
}

func (cmd *presetsCommand) Run() error {
	cfg, err := cmd.load()
	if err != nil {
		return err
	}
	if cmd.chain == "" {
		cmd.chain = cfg.Chain.Name
	}
	store := preset.NewFileStore(cfg.PresetDir)
	if cmd.diff != "" {
		return cmd.compare(store)
	}
	names, err := store.List(cmd.chain)
	if err != nil {
		return err
	}
	fmt.Printf("Presets of %s in %s:\n", cmd.chain, store.Dir())
	for _, name := range names {
		set, err := store.Load(cmd.chain, name)
		if err != nil {
			return err
		}
		fmt.Printf("\t%s\t%d units\n", name, len(set.Units))
	}
	return nil
}

func (cmd *presetsCommand) compare(store *preset.FileStore) error {
	names := strings.Split(cmd.diff, ",")
	if len(names) != 2 {
		return fmt.Errorf("-diff expects two presets, got %q", cmd.diff)
	}
	var text [2]string
	for i, name := range names {
		set, err := store.Load(cmd.chain, name)
		if err != nil {
			return err
		}
		data, err := yaml.Marshal(set.Units)
		if err != nil {
			return err
		}
		text[i] = string(data)
	}
	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(text[0]),
		B:        difflib.SplitLines(text[1]),
		FromFile: names[0],
		ToFile:   names[1],
		Context:  1,
	})
	if err != nil {
		return err
	}
	fmt.Print(diff)
	return nil
}
