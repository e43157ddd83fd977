// Package audio plays an ambient pad that follows the cloud.
//
// Expansion opens the filter, hands bring the pad forward, and pitch tilts
// the voicing. A [Pad] is an engine observer; the synthesis runs on the
// portaudio callback thread.
package audio

import (
	"fmt"
	"log/slog"
	"math"
	"math/cmplx"
	"sync"

	"github.com/gordonklaus/portaudio"
	"github.com/mjibson/go-dsp/fft"
	"github.com/san-kum/morphcloud/internal/engine"
)

const (
	SampleRate = 44100
	BufferSize = 1024
)

// G2 Bb2 D3 F3 A3
var chord = []float64{98.00, 116.54, 146.83, 174.61, 220.00}

// Levels describes the most recent output block.
type Levels struct {
	RMS        float64
	Brightness float64 // spectral centroid, Hz
}

type voice struct {
	expansion float64
	presence  float64
	tilt      float64
}

type Pad struct {
	stream *portaudio.Stream
	log    *slog.Logger
	volume float64

	mu     sync.Mutex
	target voice
	levels Levels

	// audio thread only
	t      float64
	smooth voice
	filter [2]float64
	delay  [2][]float64
	head   int
	block  []complex128
}

type Option func(*Pad)

func WithLogger(l *slog.Logger) Option {
	return func(p *Pad) { p.log = l }
}

// WithVolume sets the master volume in [0, 1].
func WithVolume(v float64) Option {
	return func(p *Pad) { p.volume = math.Max(0, math.Min(1, v)) }
}

func NewPad(opts ...Option) *Pad {
	delayLen := int(float64(SampleRate) * 0.6)
	rest := voice{expansion: 1, presence: 0.6}
	p := &Pad{
		log:    slog.Default(),
		volume: 0.25,
		target: rest,
		smooth: rest,
		delay:  [2][]float64{make([]float64, delayLen), make([]float64, delayLen)},
		block:  make([]complex128, BufferSize),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start opens the default output device.
func (p *Pad) Start() error {
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("audio: init: %w", err)
	}
	stream, err := portaudio.OpenDefaultStream(0, 2, SampleRate, BufferSize, p.Render)
	if err != nil {
		portaudio.Terminate()
		return fmt.Errorf("audio: open stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return fmt.Errorf("audio: start stream: %w", err)
	}
	p.stream = stream
	p.log.Info("audio started", "rate", SampleRate, "buffer", BufferSize)
	return nil
}

func (p *Pad) Stop() {
	if p.stream == nil {
		return
	}
	p.stream.Stop()
	p.stream.Close()
	p.stream = nil
	portaudio.Terminate()
}

// OnTick satisfies engine.Observer.
func (p *Pad) OnTick(st engine.Stats) {
	v := voice{
		expansion: float64(st.Expansion),
		presence:  0.6,
		tilt:      float64(st.Pitch),
	}
	if st.Gesture.Hands > 0 {
		v.presence = 1
	}
	p.mu.Lock()
	p.target = v
	p.mu.Unlock()
}

// Levels returns the analysis of the last rendered block.
func (p *Pad) Levels() Levels {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.levels
}

func triangle(phase float64) float64 {
	x := phase - math.Floor(phase)
	return 4.0*math.Abs(x-0.5) - 1.0
}

// lpf is a one pole low pass; it returns the output and the new state.
func lpf(sample, cutoff, dt, state float64) (float64, float64) {
	rc := 1.0 / (2.0 * math.Pi * cutoff)
	alpha := dt / (rc + dt)
	out := state + alpha*(sample-state)
	return out, out
}

// cutoffFor maps expansion onto the filter cutoff in Hz.
func cutoffFor(expansion float64) float64 {
	x := (expansion - 0.5) / 3
	x = math.Max(0, math.Min(1, x))
	return 250 + 1200*x
}

// Render fills both output channels. It is the portaudio callback.
func (p *Pad) Render(out [][]float32) {
	p.mu.Lock()
	target := p.target
	p.mu.Unlock()

	const glide = 0.05
	p.smooth.expansion += (target.expansion - p.smooth.expansion) * glide
	p.smooth.presence += (target.presence - p.smooth.presence) * glide
	p.smooth.tilt += (target.tilt - p.smooth.tilt) * glide

	cutoff := cutoffFor(p.smooth.expansion)
	detune := 1 + 0.01*p.smooth.tilt
	vol := p.volume * p.smooth.presence
	dt := 1.0 / float64(SampleRate)
	g := 1.0 / float64(len(chord))

	for i := range out[0] {
		var sl, sr float64
		for j, f := range chord {
			breathe := 0.7 + 0.3*math.Sin(p.t*0.2+float64(j))
			sl += triangle(p.t*f*0.999*detune) * g * breathe
			sr += triangle(p.t*f*1.001*detune) * g * breathe
		}

		var outL, outR float64
		outL, p.filter[0] = lpf(sl, cutoff, dt, p.filter[0])
		outR, p.filter[1] = lpf(sr, cutoff, dt, p.filter[1])

		dl := p.delay[0][p.head]
		dr := p.delay[1][p.head]
		ml := outL + dl*0.3 + dr*0.1
		mr := outR + dr*0.3 + dl*0.1
		p.delay[0][p.head] = ml * 0.7
		p.delay[1][p.head] = mr * 0.7
		p.head = (p.head + 1) % len(p.delay[0])

		out[0][i] = float32(ml * vol)
		if len(out) > 1 {
			out[1][i] = float32(mr * vol)
		}
		p.t += dt
	}

	lv := p.analyze(out[0])
	p.mu.Lock()
	p.levels = lv
	p.mu.Unlock()
}

func (p *Pad) analyze(samples []float32) Levels {
	n := min(len(samples), len(p.block))
	if n == 0 {
		return Levels{}
	}

	var sum float64
	for i := range p.block {
		if i >= n {
			p.block[i] = 0
			continue
		}
		v := float64(samples[i])
		sum += v * v
		window := 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(n-1)))
		p.block[i] = complex(v*window, 0)
	}
	spectrum := fft.FFT(p.block)

	binHz := float64(SampleRate) / float64(len(p.block))
	var weighted, total float64
	for k := 1; k < len(spectrum)/2; k++ {
		mag := cmplx.Abs(spectrum[k])
		weighted += mag * float64(k) * binHz
		total += mag
	}

	lv := Levels{RMS: math.Sqrt(sum / float64(n))}
	if total > 0 {
		lv.Brightness = weighted / total
	}
	return lv
}
