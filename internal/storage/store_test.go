package storage

import (
	"strings"
	"testing"
	"time"

	. "github.com/onsi/gomega"
	"github.com/san-kum/morphcloud/internal/engine"
	"github.com/san-kum/morphcloud/internal/gesture"
)

func twoWrists() []gesture.Hand {
	hands := make([]gesture.Hand, 2)
	for h := range hands {
		hands[h] = make(gesture.Hand, gesture.LandmarkCount)
		hands[h][gesture.Wrist] = gesture.Landmark{X: 0.3 + 0.4*float64(h), Y: 0.5}
	}
	return hands
}

func TestSessionRoundTrip(t *testing.T) {
	g := NewWithT(t)
	st := New(t.TempDir())

	ss, err := st.Create(SessionMetadata{Source: "ws", Shape: "saturn", Particles: 1000, Seed: 42})
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(ss.ID()).To(HavePrefix("saturn_"))

	start := time.Now()
	g.Expect(ss.RecordFrame(gesture.Result{Hands: twoWrists(), At: start.Add(100 * time.Millisecond)})).To(Succeed())
	g.Expect(ss.RecordFrame(gesture.Result{})).To(Succeed())

	for i := 1; i <= 3; i++ {
		ss.OnTick(engine.Stats{
			Elapsed:   float64(i) / 60,
			Dt:        16 * time.Millisecond,
			Expansion: 1.5,
			Yaw:       0.25,
			Gesture:   gesture.Snapshot{Hands: 2, HandDistance: 0.4, Target: gesture.Pose{Expansion: 1.6}},
		})
	}
	g.Expect(ss.Close(map[string]float64{"tracking_ratio": 0.5})).To(Succeed())
	g.Expect(ss.Close(nil)).To(Succeed())
	g.Expect(ss.RecordFrame(gesture.Result{})).To(MatchError(ErrClosed))

	meta, err := st.Load(ss.ID())
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(meta.Frames).To(Equal(2))
	g.Expect(meta.Ticks).To(Equal(3))
	g.Expect(meta.Seed).To(Equal(int64(42)))
	g.Expect(meta.Metrics).To(HaveKeyWithValue("tracking_ratio", 0.5))
	g.Expect(meta.Duration()).To(BeNumerically(">=", 0))

	frames, err := st.LoadFrames(ss.ID())
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(frames).To(HaveLen(2))
	g.Expect(frames[0].Hands).To(HaveLen(2))
	g.Expect(frames[0].Hands[1][gesture.Wrist].X).To(BeNumerically("~", 0.7, 1e-12))
	g.Expect(frames[1].Hands).To(BeEmpty())

	tel, err := st.LoadTelemetry(ss.ID())
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(tel.Times).To(HaveLen(3))
	g.Expect(tel.Get("expansion")).To(Equal([]float64{1.5, 1.5, 1.5}))
	g.Expect(tel.Get("target_expansion")[0]).To(BeNumerically("~", 1.6, 1e-6))
	g.Expect(tel.Get("hands")).To(Equal([]float64{2, 2, 2}))
	g.Expect(tel.Get("frame_ms")[0]).To(BeNumerically("~", 16, 1e-6))
	g.Expect(tel.Get("missing")).To(BeNil())
}

func TestListSortsAndSkipsJunk(t *testing.T) {
	g := NewWithT(t)
	dir := t.TempDir()
	st := New(dir)

	a, err := st.Create(SessionMetadata{Shape: "heart"})
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(a.Close(nil)).To(Succeed())

	b, err := st.Create(SessionMetadata{Shape: "heart"})
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(b.Close(nil)).To(Succeed())
	g.Expect(b.ID()).NotTo(Equal(a.ID()))

	g.Expect(New(dir + "/nope/deeper").List()).To(BeEmpty())

	list, err := st.List()
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(list).To(HaveLen(2))
	g.Expect(list[0].ID).To(Equal(a.ID()))
}

func TestScanFramesSkipsBadLines(t *testing.T) {
	in := strings.NewReader(`{"t":0.1,"hands":[]}
garbage

{"t":0.2,"hands":[]}
`)
	var ts []float64
	err := ScanFrames(in, func(r FrameRecord) error {
		ts = append(ts, r.T)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(ts) != 2 || ts[0] != 0.1 || ts[1] != 0.2 {
		t.Errorf("got %v", ts)
	}
}
