package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/pipelined/rack"
	"github.com/pipelined/rack/internal/patch"
	"github.com/pipelined/rack/log"
	"github.com/pipelined/rack/wav"
)

type renderCommand struct {
	rigFlags
	out      string
	duration time.Duration
	bitDepth int
	idle     bool
}

func (cmd *renderCommand) Name() string {
	return "render"
}

func (cmd *renderCommand) Help() string {
	return "Render the rig offline into wav file"
}

func (cmd *renderCommand) Register(fs *flag.FlagSet) {
	cmd.rigFlags.register(fs)
	fs.StringVar(&cmd.out, "out", "", "output wav file (required)")
	fs.DurationVar(&cmd.duration, "duration", 8*time.Second, "rendered duration")
	fs.IntVar(&cmd.bitDepth, "bits", 16, "bit depth of output: 16 or 32")
	fs.BoolVar(&cmd.idle, "idle", false, "don't start transport")
}

func (cmd *renderCommand) Run() (err error) {
	if cmd.out == "" {
		return errors.New("missing -out required flag")
	}
	cfg, err := cmd.load()
	if err != nil {
		return err
	}
	l := log.GetLogger()
	rig, err := patch.New(cfg, patch.WithLogger(l))
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, rig.Session.Close())
	}()

	f, err := os.Create(cmd.out)
	if err != nil {
		return err
	}
	defer f.Close()
	sink, err := wav.NewSink(f, cfg.SampleRate, cfg.Channels, cmd.bitDepth)
	if err != nil {
		return err
	}

	rig.Session.Start()
	if !cmd.idle {
		if err := rig.Session.Transport().TogglePlaying(); err != nil {
			return err
		}
	}
	frames := int(cmd.duration.Seconds() * float64(cfg.SampleRate))
	start := time.Now()
	if err := rig.Session.Offline(frames, cfg.BufferSize, cfg.FPS, func(b rack.Buffer) error {
		return sink.Write(b)
	}); err != nil {
		return err
	}
	if err := sink.Close(); err != nil {
		return err
	}
	l.WithFields(logrus.Fields{
		"chain":  rig.Chain.ID(),
		"frames": sink.Frames(),
		"beats":  rig.Session.Clock().Beats(),
		"took":   time.Since(start),
	}).Info("rendered")
	fmt.Printf("Rendered %v into %s\n", cmd.duration, cmd.out)
	return nil
}
