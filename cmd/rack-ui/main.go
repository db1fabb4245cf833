// Command rack-ui plays the rig in a window. Keys are the same as in the
// terminal host, escape quits.
package main

import (
	"context"
	"flag"
	"fmt"
	"image/color"
	"os"
	"strings"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/audio"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/sirupsen/logrus"

	"github.com/pipelined/rack"
	"github.com/pipelined/rack/config"
	"github.com/pipelined/rack/internal/patch"
	"github.com/pipelined/rack/log"
)

const (
	windowW = 640
	windowH = 480
	lineH   = 16
)

var bgColor = color.RGBA{24, 24, 32, 255}

type game struct {
	rig    *patch.Rig
	log    *logrus.Logger
	swatch *ebiten.Image
	status string
}

func (g *game) Update() error {
	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		return ebiten.Termination
	}
	for _, r := range ebiten.AppendInputChars(nil) {
		if _, err := g.rig.Session.Key(r); err != nil {
			g.status = err.Error()
		}
	}
	if err := g.rig.Session.Frame(); err != nil {
		g.log.Warn(err)
	}
	return nil
}

func (g *game) Draw(screen *ebiten.Image) {
	screen.Fill(bgColor)
	tr := g.rig.Session.Transport()
	state := "stopped"
	if tr.Playing() {
		state = "playing"
	}
	ebitenutil.DebugPrintAt(screen, fmt.Sprintf("%s  note %d  beat %d  %.0f bpm  %.0f fps",
		state, tr.Note(), g.rig.Session.Clock().Beats(), g.rig.Session.Clock().Tempo(), ebiten.ActualFPS()), 8, 8)
	ebitenutil.DebugPrintAt(screen, "space: play/stop  [ ]: note  d: debug  n: next  s: save  l: load  esc: quit", 8, 8+lineH)
	if g.status != "" {
		ebitenutil.DebugPrintAt(screen, g.status, 8, 8+2*lineH)
	}

	m := g.rig.Session.Manager()
	y := 8 + 4*lineH
	for _, c := range m.Chains() {
		g.swatch.Fill(c.Color)
		op := &ebiten.DrawImageOptions{}
		op.GeoM.Translate(8, float64(y))
		screen.DrawImage(g.swatch, op)
		y += lineH
	}
	if m.DebugUI() {
		ebitenutil.DebugPrintAt(screen, strings.Join(m.DebugLines(), "\n"), 24, 8+4*lineH)
	}
}

func (g *game) Layout(outsideW, outsideH int) (int, int) {
	return outsideW, outsideH
}

func main() {
	var (
		configPath = flag.String("config", "", "path to yaml config file")
		presetDir  = flag.String("presets", "", "preset directory")
	)
	flag.Parse()
	if err := run(*configPath, *presetDir); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(configPath, presetDir string) (err error) {
	cfg := config.Default()
	if configPath != "" {
		if cfg, err = config.Load(configPath); err != nil {
			return err
		}
	}
	if presetDir != "" {
		cfg.PresetDir = presetDir
	}
	// ebiten players are stereo
	cfg.Channels = 2
	l := log.GetLogger()
	rig, err := patch.New(cfg, patch.WithLogger(l))
	if err != nil {
		return err
	}
	defer func() {
		if cerr := rig.Session.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	player, err := audio.NewContext(cfg.SampleRate).NewPlayerF32(rack.NewStream(rig.Session, 2, cfg.BufferSize))
	if err != nil {
		return err
	}
	player.SetBufferSize(time.Duration(cfg.BufferSize) * time.Second / time.Duration(cfg.SampleRate) * 4)
	defer player.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	rig.Session.Start()
	go rig.Session.Clock().Run(ctx, time.Millisecond)
	player.Play()

	ebiten.SetWindowSize(windowW, windowH)
	ebiten.SetWindowTitle("rack: " + cfg.Chain.Name)
	ebiten.SetTPS(cfg.FPS)
	g := &game{
		rig:    rig,
		log:    l,
		swatch: ebiten.NewImage(lineH-4, lineH-4),
	}
	if err := ebiten.RunGame(g); err != nil && err != ebiten.Termination {
		return err
	}
	return nil
}
