package engine

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/san-kum/morphcloud/internal/gesture"
	"github.com/san-kum/morphcloud/internal/particles"
	"github.com/san-kum/morphcloud/internal/shapes"
)

var _ = Describe("Engine loop", func() {
	var (
		e *Engine
		r *recorder
	)

	BeforeEach(func() {
		r = &recorder{}
		cfg := testConfig()
		cfg.FPS = 200
		var err error
		e, err = New(cfg, r, WithLogger(quietLogger()))
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		Expect(e.Dispose()).To(Succeed())
	})

	It("ticks on its own goroutine until stopped", func(ctx SpecContext) {
		Expect(e.Start(ctx)).To(Succeed())
		Expect(e.Running()).To(BeTrue())
		Expect(e.Start(ctx)).To(MatchError(ErrRunning))

		Eventually(r.count).Should(BeNumerically(">=", 10))
		e.Stop()
		Expect(e.Running()).To(BeFalse())

		n := r.count()
		Consistently(r.count).WithTimeout(50 * time.Millisecond).Should(Equal(n))
	}, SpecTimeout(5*time.Second))

	It("accepts commands and landmarks from other goroutines mid-run", func(ctx SpecContext) {
		Expect(e.Start(ctx)).To(Succeed())

		var wg sync.WaitGroup
		wg.Add(3)
		go func() {
			defer wg.Done()
			defer GinkgoRecover()
			for i := 0; i < 30; i++ {
				Expect(e.SwitchShape(shapes.All()[i%len(shapes.All())])).To(Succeed())
			}
		}()
		go func() {
			defer wg.Done()
			defer GinkgoRecover()
			for _, c := range shapes.SwatchNames() {
				Expect(e.SetColorHex(c)).To(Succeed())
			}
		}()
		go func() {
			defer wg.Done()
			defer GinkgoRecover()
			for i := 0; i < 200; i++ {
				_ = e.HandleLandmarks(gesture.Result{Hands: []gesture.Hand{hand(0.3, 0.5), hand(0.6, 0.5)}})
				_ = e.Resize(640+i%3, 480)
			}
		}()
		wg.Wait()

		Eventually(r.count).Should(BeNumerically(">", 0))
		e.Stop()
		Expect(r.last().Count).To(Equal(2000))

		Expect(e.WithBuffer(func(b *particles.Buffer) {
			Expect(b.Len()).To(Equal(2000))
		})).To(Succeed())
	}, SpecTimeout(10*time.Second))

	It("stops the loop and reports when the context is lost", func(ctx SpecContext) {
		var calls atomic.Int32
		lost := make(chan error, 1)
		r2 := RenderFunc(func(f Frame) error {
			if f.Index == 3 {
				return fmt.Errorf("probe: %w", ErrContextLost)
			}
			return nil
		})
		e2, err := New(testConfig(), r2, WithLogger(quietLogger()), OnError(func(err error) {
			calls.Add(1)
			lost <- err
		}))
		Expect(err).NotTo(HaveOccurred())

		runErr := make(chan error, 1)
		go func() { runErr <- e2.Run(ctx) }()

		Eventually(lost).Should(Receive(MatchError(ErrContextLost)))
		Eventually(runErr).Should(Receive(MatchError(ErrContextLost)))
		Expect(e2.Disposed()).To(BeTrue())
		Expect(calls.Load()).To(Equal(int32(1)))
	}, SpecTimeout(5*time.Second))

	It("lets the error hook dispose a started engine", func(ctx SpecContext) {
		hookDone := make(chan struct{})
		var e3 *Engine
		r3 := RenderFunc(func(f Frame) error {
			if f.Index == 2 {
				return fmt.Errorf("gl: %w", ErrContextLost)
			}
			return nil
		})
		e3, err := New(testConfig(), r3, WithLogger(quietLogger()), OnError(func(error) {
			defer GinkgoRecover()
			Expect(e3.Dispose()).To(Succeed())
			close(hookDone)
		}))
		Expect(err).NotTo(HaveOccurred())

		Expect(e3.Start(ctx)).To(Succeed())
		Eventually(hookDone).Should(BeClosed())
		Eventually(e3.Running).Should(BeFalse())
		Expect(e3.Disposed()).To(BeTrue())
		Expect(e3.Start(ctx)).To(MatchError(ErrDisposed))
	}, SpecTimeout(5*time.Second))

	It("reads its config while being retuned", func(ctx SpecContext) {
		Expect(e.Start(ctx)).To(Succeed())

		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer GinkgoRecover()
			for i := 0; i < 100; i++ {
				Expect(e.Retune(particles.DefaultTuning(), gesture.DefaultTuning())).To(Succeed())
			}
		}()
		for i := 0; i < 100; i++ {
			Expect(e.Config().FPS).To(Equal(200))
		}
		wg.Wait()
		e.Stop()
	}, SpecTimeout(5*time.Second))

	It("returns from Run when the context is cancelled", func(ctx SpecContext) {
		runCtx, cancel := context.WithCancel(ctx)
		done := make(chan error, 1)
		go func() { done <- e.Run(runCtx) }()

		Eventually(r.count).Should(BeNumerically(">", 0))
		cancel()
		Eventually(done).Should(Receive(BeNil()))
		Expect(e.Disposed()).To(BeFalse())
	}, SpecTimeout(5*time.Second))

	It("dispose stops a running loop", func(ctx SpecContext) {
		Expect(e.Start(ctx)).To(Succeed())
		Eventually(r.count).Should(BeNumerically(">", 2))

		Expect(e.Dispose()).To(Succeed())
		Expect(e.Running()).To(BeFalse())
		Expect(e.Tick(time.Millisecond)).To(MatchError(ErrDisposed))
	}, SpecTimeout(5*time.Second))
})
