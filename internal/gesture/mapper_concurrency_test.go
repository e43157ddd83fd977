package gesture

import (
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Mapper under a live producer", func() {
	var m *Mapper

	BeforeEach(func() {
		tn := DefaultTuning()
		tn.StaleAfter = 50 * time.Millisecond
		m = NewMapper(WithTuning(tn))
	})

	It("keeps every snapshot finite while updates race with steps", func() {
		var wg sync.WaitGroup
		done := make(chan struct{})

		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 2000; i++ {
				switch i % 3 {
				case 0:
					_ = m.Update(Result{Hands: []Hand{pinchHand(float64(i%50) / 100)}})
				case 1:
					_ = m.Update(Result{Hands: []Hand{openHand(0.2, 0.5), openHand(0.7, 0.4)}})
				default:
					_ = m.Update(Result{Hands: []Hand{pinchHand(0.1)[:3]}})
				}
			}
			close(done)
		}()

	loop:
		for {
			select {
			case <-done:
				break loop
			default:
				s := m.Step()
				Expect(isFinite(s.Applied.Expansion)).To(BeTrue())
				Expect(s.Applied.Expansion).To(BeNumerically(">", 0))
				Expect(s.Hands).To(BeNumerically("<=", MaxHands))
			}
		}
		wg.Wait()

		Expect(m.Snapshot().Ignored).To(Equal(666))
	})

	It("settles to rest once the producer goes quiet", func() {
		for i := 0; i < 20; i++ {
			Expect(m.Update(Result{Hands: []Hand{pinchHand(0.5)}})).To(Succeed())
		}
		Expect(m.Snapshot().Target.Expansion).To(BeNumerically(">", 2))

		Eventually(func() float64 {
			return m.Step().Applied.Expansion
		}).WithTimeout(5 * time.Second).WithPolling(time.Millisecond).Should(BeNumerically("~", 1, 0.01))

		status, text := m.Status()
		Expect(status).To(Equal(NoHands))
		Expect(text).To(Equal("No hands detected"))
	})

	It("reports status changes through the hook", func() {
		var mu sync.Mutex
		var seen []string
		m = NewMapper(OnStatus(func(_ Status, _ int, text string) {
			mu.Lock()
			seen = append(seen, text)
			mu.Unlock()
		}))

		Expect(m.Update(Result{Hands: []Hand{openHand(0.4, 0.5)}})).To(Succeed())
		Expect(m.Update(Result{Hands: []Hand{openHand(0.4, 0.5), openHand(0.6, 0.5)}})).To(Succeed())
		Expect(m.Update(Result{})).To(Succeed())

		mu.Lock()
		defer mu.Unlock()
		Expect(seen).To(Equal([]string{"Tracking 1 hand", "Tracking 2 hands", "No hands detected"}))
	})
})
