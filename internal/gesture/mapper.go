package gesture

import (
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"
)

// Tuning holds the mapping and smoothing coefficients.
type Tuning struct {
	TrackRate float64 `yaml:"track_rate"` // raw → target per callback while tracking
	ApplyRate float64 `yaml:"apply_rate"` // target → applied per Step
	DecayRate float64 `yaml:"decay_rate"` // target → rest when no hands

	YawSensitivity   float64 `yaml:"yaw_sensitivity"`
	PitchSensitivity float64 `yaml:"pitch_sensitivity"`
	PitchScale       float64 `yaml:"pitch_scale"` // two-hand vertical offset → pitch

	PinchBase    float64 `yaml:"pinch_base"`
	PinchGain    float64 `yaml:"pinch_gain"`
	SpreadGain   float64 `yaml:"spread_gain"`
	PinchClosed  float64 `yaml:"pinch_closed"` // pinch distance at which strength reaches 0
	MinExpansion float64 `yaml:"min_expansion"`
	MaxExpansion float64 `yaml:"max_expansion"`
	MaxAngle     float64 `yaml:"max_angle"`

	StaleAfter time.Duration `yaml:"stale_after"`
}

// DefaultTuning returns the stock coefficients.
func DefaultTuning() Tuning {
	return Tuning{
		TrackRate:        0.35,
		ApplyRate:        0.3,
		DecayRate:        0.06,
		YawSensitivity:   1.5,
		PitchSensitivity: 1.0,
		PitchScale:       3.0,
		PinchBase:        0.8,
		PinchGain:        5,
		SpreadGain:       4,
		PinchClosed:      0.1,
		MinExpansion:     0.5,
		MaxExpansion:     3.5,
		MaxAngle:         math.Pi / 2,
		StaleAfter:       300 * time.Millisecond,
	}
}

// Validate rejects coefficients that would let the mapper diverge.
func (t Tuning) Validate() error {
	rate := func(name string, v float64) error {
		if !(v > 0 && v <= 1) {
			return fmt.Errorf("gesture: %s must be in (0,1], got %v", name, v)
		}
		return nil
	}
	for _, r := range []struct {
		name string
		v    float64
	}{{"track_rate", t.TrackRate}, {"apply_rate", t.ApplyRate}, {"decay_rate", t.DecayRate}} {
		if err := rate(r.name, r.v); err != nil {
			return err
		}
	}
	if !(t.MinExpansion > 0) || !(t.MaxExpansion >= t.MinExpansion) || math.IsInf(t.MaxExpansion, 0) {
		return fmt.Errorf("gesture: expansion bounds [%v,%v] invalid", t.MinExpansion, t.MaxExpansion)
	}
	if !(t.PinchClosed > 0) {
		return fmt.Errorf("gesture: pinch_closed must be positive, got %v", t.PinchClosed)
	}
	if !(t.MaxAngle > 0) {
		return fmt.Errorf("gesture: max_angle must be positive, got %v", t.MaxAngle)
	}
	for _, v := range []float64{t.YawSensitivity, t.PitchSensitivity, t.PitchScale, t.PinchBase, t.PinchGain, t.SpreadGain} {
		if !isFinite(v) {
			return fmt.Errorf("gesture: non-finite coefficient %v", v)
		}
	}
	return nil
}

// PinchExpansion maps a thumb-index distance to an expansion.
func PinchExpansion(pinch float64, t Tuning) float64 {
	return clamp(t.PinchBase+t.PinchGain*pinch, t.MinExpansion, t.MaxExpansion)
}

// SpreadExpansion maps a wrist-to-wrist distance to an expansion.
func SpreadExpansion(d float64, t Tuning) float64 {
	return clamp(t.SpreadGain*d, t.MinExpansion, t.MaxExpansion)
}

// PinchStrength is 1 for touching fingertips, falling to 0 at PinchClosed.
func PinchStrength(pinch float64, t Tuning) float64 {
	return clamp(1-pinch/t.PinchClosed, 0, 1)
}

// Pose is the transform the mapper drives.
type Pose struct {
	Expansion float64
	Yaw       float64
	Pitch     float64
}

// Rest is the pose the mapper settles to without hands.
var Rest = Pose{Expansion: 1}

func (p Pose) lerp(to Pose, r float64) Pose {
	return Pose{
		Expansion: p.Expansion + (to.Expansion-p.Expansion)*r,
		Yaw:       p.Yaw + (to.Yaw-p.Yaw)*r,
		Pitch:     p.Pitch + (to.Pitch-p.Pitch)*r,
	}
}

// Snapshot is what the scheduler reads once per tick.
type Snapshot struct {
	Hands         int
	Status        Status
	Raw           Pose
	Target        Pose
	Applied       Pose
	Pinch         float64 // thumb-index distance, one hand only
	PinchStrength float64
	HandDistance  float64 // wrist-to-wrist, two hands only
	Stale         bool
	Ignored       int // malformed results dropped so far
}

// Option configures a Mapper.
type Option func(*Mapper)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Mapper) { m.log = l }
}

// WithClock replaces time.Now, for tests and replay.
func WithClock(now func() time.Time) Option {
	return func(m *Mapper) { m.now = now }
}

// WithTuning sets the coefficients. Invalid tunings are ignored.
func WithTuning(t Tuning) Option {
	return func(m *Mapper) {
		if t.Validate() == nil {
			m.tuning = t
		}
	}
}

// OnStatus registers a hook called after every status update, outside the
// mapper lock. It receives the state, the hand count and the status text.
func OnStatus(fn func(s Status, hands int, text string)) Option {
	return func(m *Mapper) { m.onStatus = fn }
}

// Mapper turns recognizer results into a smoothed Pose. Update is called
// from the recognizer goroutine, Step from the scheduler; both are safe for
// concurrent use.
type Mapper struct {
	mu     sync.Mutex
	tuning Tuning
	log    *slog.Logger
	now    func() time.Time

	hands    int
	status   Status
	raw      Pose
	target   Pose
	applied  Pose
	pinch    float64
	strength float64
	spread   float64
	last     time.Time
	stale    bool
	ignored  int

	onStatus func(Status, int, string)
}

// NewMapper returns a mapper at rest.
func NewMapper(opts ...Option) *Mapper {
	m := &Mapper{
		tuning:  DefaultTuning(),
		log:     slog.Default(),
		now:     time.Now,
		raw:     Rest,
		target:  Rest,
		applied: Rest,
		stale:   true,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Tuning returns the active coefficients.
func (m *Mapper) Tuning() Tuning {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tuning
}

// Retune swaps coefficients on a live mapper.
func (m *Mapper) Retune(t Tuning) error {
	if err := t.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	m.tuning = t
	m.mu.Unlock()
	return nil
}

// Update consumes one recognizer result. Malformed results leave every
// target untouched and return an error wrapping ErrMalformed.
func (m *Mapper) Update(r Result) error {
	if err := r.Validate(); err != nil {
		m.mu.Lock()
		m.ignored++
		m.mu.Unlock()
		m.log.Debug("ignoring landmark result", "err", err)
		return err
	}

	m.mu.Lock()
	t := m.tuning
	m.last = m.now()
	m.stale = false
	m.hands = len(r.Hands)

	switch m.hands {
	case 0:
		m.raw = Rest
		m.pinch, m.strength, m.spread = 0, 0, 0
		m.target = m.target.lerp(Rest, t.DecayRate)
	case 1:
		m.raw = m.oneHand(r.Hands[0], t)
		m.target = m.target.lerp(m.raw, t.TrackRate)
	default:
		m.raw = m.twoHands(r.Hands[0], r.Hands[1], t)
		m.target = m.target.lerp(m.raw, t.TrackRate)
	}
	changed := m.setStatus(statusFor(m.hands))
	status, hands, text := m.status, m.hands, StatusText(m.hands)
	hook := m.onStatus
	m.mu.Unlock()

	if changed {
		m.log.Info("tracking status", "status", status, "hands", len(r.Hands))
	}
	if hook != nil {
		hook(status, hands, text)
	}
	return nil
}

func (m *Mapper) oneHand(h Hand, t Tuning) Pose {
	p := dist(h[ThumbTip], h[IndexTip])
	m.pinch = p
	m.strength = PinchStrength(p, t)
	m.spread = 0

	facing := heading(h[Wrist], h[MiddleBase])
	tilt := wrapAngle(heading(h[MiddleBase], h[MiddleTip]) - facing)

	return Pose{
		Expansion: PinchExpansion(p, t),
		Yaw:       clamp(wrapAngle(facing)*t.YawSensitivity, -t.MaxAngle, t.MaxAngle),
		Pitch:     clamp(tilt*t.PitchSensitivity, -t.MaxAngle, t.MaxAngle),
	}
}

func (m *Mapper) twoHands(a, b Hand, t Tuning) Pose {
	left, right := a[Wrist], b[Wrist]
	if right.X < left.X {
		left, right = right, left
	}
	d := dist(left, right)
	m.spread = d
	m.pinch, m.strength = 0, 0

	angle := math.Atan2(right.Y-left.Y, right.X-left.X)

	return Pose{
		Expansion: SpreadExpansion(d, t),
		Yaw:       clamp(angle*t.YawSensitivity, -t.MaxAngle, t.MaxAngle),
		Pitch:     clamp((left.Y-right.Y)*t.PitchScale, -t.MaxAngle, t.MaxAngle),
	}
}

// Step advances the applied pose one tick toward the target and returns the
// snapshot. Input older than StaleAfter counts as no hands.
func (m *Mapper) Step() Snapshot {
	m.mu.Lock()
	t := m.tuning

	var changed bool
	if m.now().Sub(m.last) > t.StaleAfter {
		if !m.stale {
			m.log.Debug("landmark input stale", "since", m.last)
		}
		m.stale = true
		m.hands = 0
		m.raw = Rest
		m.pinch, m.strength, m.spread = 0, 0, 0
		m.target = m.target.lerp(Rest, t.DecayRate)
		changed = m.setStatus(NoHands)
	}
	m.applied = m.applied.lerp(m.target, t.ApplyRate)

	snap := m.snapshotLocked()
	hook := m.onStatus
	m.mu.Unlock()

	if changed && hook != nil {
		hook(NoHands, 0, StatusText(0))
	}
	return snap
}

// Snapshot returns the current state without advancing it.
func (m *Mapper) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

func (m *Mapper) snapshotLocked() Snapshot {
	return Snapshot{
		Hands:         m.hands,
		Status:        m.status,
		Raw:           m.raw,
		Target:        m.target,
		Applied:       m.applied,
		Pinch:         m.pinch,
		PinchStrength: m.strength,
		HandDistance:  m.spread,
		Stale:         m.stale,
		Ignored:       m.ignored,
	}
}

// Status returns the tracking state and its text.
func (m *Mapper) Status() (Status, string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status, StatusText(m.hands)
}

// Reset returns the mapper to rest.
func (m *Mapper) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hands = 0
	m.raw, m.target, m.applied = Rest, Rest, Rest
	m.pinch, m.strength, m.spread = 0, 0, 0
	m.stale = true
	m.status = NoHands
}

func (m *Mapper) setStatus(s Status) bool {
	if m.status == s {
		return false
	}
	m.status = s
	return true
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
