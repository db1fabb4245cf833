package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/term"

	"github.com/pipelined/rack/config"
	"github.com/pipelined/rack/internal/patch"
	"github.com/pipelined/rack/log"
	"github.com/pipelined/rack/oto"
	"github.com/pipelined/rack/portaudio"
)

const (
	keyQuit      = 'q'
	keyInterrupt = 3 // ctrl+c in raw mode
)

type playCommand struct {
	rigFlags
	output string
	record string
}

func (cmd *playCommand) Name() string {
	return "play"
}

func (cmd *playCommand) Help() string {
	return "Play the rig with keyboard control"
}

func (cmd *playCommand) Register(fs *flag.FlagSet) {
	cmd.rigFlags.register(fs)
	fs.StringVar(&cmd.output, "output", "", "audio output: portaudio or oto")
	fs.StringVar(&cmd.record, "record", "", "save played notes into midi file")
}

func (cmd *playCommand) Run() (err error) {
	cfg, err := cmd.load()
	if err != nil {
		return err
	}
	if cmd.output != "" {
		cfg.Output = cmd.output
	}
	l := log.GetLogger()
	options := []patch.Option{patch.WithLogger(l)}
	if cmd.record != "" {
		options = append(options, patch.WithRecording())
	}
	rig, err := patch.New(cfg, options...)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, rig.Session.Close())
		if rig.Recorder != nil {
			err = errors.Join(err, writeRecording(rig, cmd.record))
		}
	}()

	var closeOutput func() error
	switch cfg.Output {
	case config.OutputOto:
		out, err := oto.Open(rig.Session, cfg.SampleRate, cfg.Channels, cfg.BufferSize)
		if err != nil {
			return err
		}
		closeOutput = out.Close
	default:
		out, err := portaudio.Open(rig.Session, cfg.SampleRate, cfg.Channels, cfg.BufferSize)
		if err != nil {
			return err
		}
		closeOutput = out.Close
	}
	defer func() {
		err = errors.Join(err, closeOutput())
	}()

	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		state, err := term.MakeRaw(fd)
		if err != nil {
			return err
		}
		defer term.Restore(fd, state)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	rig.Session.Start()
	done := make(chan error, 1)
	go func() {
		done <- rig.Session.Run(ctx, cfg.FPS, time.Millisecond)
	}()

	l.WithFields(logrus.Fields{
		"chain":  rig.Chain.ID(),
		"output": cfg.Output,
		"tempo":  cfg.Tempo,
	}).Debug("playing")
	printHelp()
	keys := readKeys(os.Stdin)
	for {
		select {
		case <-ctx.Done():
			return <-done
		case key, ok := <-keys:
			if !ok || key == keyQuit || key == keyInterrupt {
				cancel()
				return <-done
			}
			if _, err := rig.Session.Key(key); err != nil {
				fmt.Printf("%v\r\n", err)
			}
			printStatus(rig)
		}
	}
}

// readKeys delivers runes read from r until it fails. Reading goroutine
// is left blocked on exit, since stdin can't be interrupted.
func readKeys(r io.Reader) <-chan rune {
	keys := make(chan rune)
	go func() {
		defer close(keys)
		br := bufio.NewReader(r)
		for {
			key, _, err := br.ReadRune()
			if err != nil {
				return
			}
			keys <- key
		}
	}()
	return keys
}

func printHelp() {
	fmt.Print("space: play/stop  [ ]: note down/up  d: debug  n: focus next  s: save  l: load  q: quit\r\n")
}

func printStatus(rig *patch.Rig) {
	tr := rig.Session.Transport()
	state := "stopped"
	if tr.Playing() {
		state = "playing"
	}
	fmt.Printf("%s note %d beat %d\r\n", state, tr.Note(), rig.Session.Clock().Beats())
	m := rig.Session.Manager()
	if m.DebugUI() {
		fmt.Print(strings.Join(m.DebugLines(), "\r\n") + "\r\n")
	}
}

func writeRecording(rig *patch.Rig, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := rig.Recorder.WriteTo(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
