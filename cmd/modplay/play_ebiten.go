package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/audio"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"github.com/quasilyte/modplay"
)

var muteKeys = []ebiten.Key{
	ebiten.Key1, ebiten.Key2, ebiten.Key3, ebiten.Key4,
	ebiten.Key5, ebiten.Key6, ebiten.Key7, ebiten.Key8, ebiten.Key9,
}

func playEbiten(stream *modplay.Stream, filename string, sampleRate int) error {
	ls := &lockedStream{stream: stream}

	// Create a sound player using the Ebitengine audio context.
	// You can have multiple players, but only one audio context.
	// See Ebitengine docs to learn more.
	audioContext := audio.NewContext(sampleRate)
	player, err := audioContext.NewPlayer(ls)
	if err != nil {
		return err
	}

	g := &game{
		player:   player,
		stream:   ls,
		filename: filename,
		paused:   true,
	}
	ebiten.SetWindowTitle("modplay: " + filename)
	return ebiten.RunGame(g)
}

type game struct {
	player *audio.Player
	stream *lockedStream

	filename string
	paused   bool
	status   string
}

func (g *game) Update() error {
	if inpututil.IsKeyJustPressed(ebiten.KeySpace) {
		g.paused = !g.paused
		if g.player.IsPlaying() {
			g.player.Pause()
		} else {
			g.player.Play()
		}
	}

	g.stream.do(func(s *modplay.Session) {
		if inpututil.IsKeyJustPressed(ebiten.KeyRight) {
			s.NextPosition()
		}
		if inpututil.IsKeyJustPressed(ebiten.KeyLeft) {
			s.PrevPosition()
		}
		if inpututil.IsKeyJustPressed(ebiten.KeyR) {
			s.Restart()
		}
		for i, k := range muteKeys {
			if inpututil.IsKeyJustPressed(k) {
				s.ChannelMute(i, modplay.MuteToggle)
			}
		}
		g.status = formatStatus(s.FrameInfo(), g.stream.peak)
	})

	return nil
}

func formatStatus(info modplay.FrameInfo, peak float32) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "pos %02d/%02d row %02d/%02d speed %d bpm %d\n",
		info.Pos, info.Pattern, info.Row, info.NumRows, info.Speed, info.BPM)
	fmt.Fprintf(&sb, "time %s/%s voices %d/%d\n",
		info.Time.Truncate(100*time.Millisecond), info.TotalTime.Truncate(100*time.Millisecond),
		info.VoicesUsed, info.VirtualChannels)
	fmt.Fprintf(&sb, "peak %s\n", strings.Repeat("#", int(peak*40)))
	for i, ci := range info.Channels {
		mark := ' '
		if ci.Muted {
			mark = 'M'
		}
		fmt.Fprintf(&sb, "%c %02d %s\n", mark, i, strings.Repeat("|", ci.Volume/4))
	}
	return sb.String()
}

func (g *game) Draw(screen *ebiten.Image) {
	if g.paused {
		ebitenutil.DebugPrint(screen, "Paused... press SPACE")
		return
	}
	ebitenutil.DebugPrint(screen, fmt.Sprintf("Playing %s...\n%s", g.filename, g.status))
}

func (g *game) Layout(_, _ int) (int, int) {
	return 640, 480
}
