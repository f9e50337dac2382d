package sim

import (
	"context"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/rs/xid"
	"go.uber.org/mock/gomock"

	"github.com/san-kum/plantsim/internal/control"
	"github.com/san-kum/plantsim/internal/dynamo"
	"github.com/san-kum/plantsim/internal/metrics"
	"github.com/san-kum/plantsim/internal/plant"
	"github.com/san-kum/plantsim/internal/plants"
	"github.com/san-kum/plantsim/internal/random"
	"github.com/san-kum/plantsim/internal/signal"
)

func newCartPendulum(seed uint64, alpha float64, x0 dynamo.State) *plant.Simulator {
	m, err := plants.Lookup(plants.CartPendulumName)
	Expect(err).NotTo(HaveOccurred())
	p, err := plant.New(m, plant.Config{Ts: 0.01, Alpha: plant.Alpha(alpha)}, x0, random.New(seed))
	Expect(err).NotTo(HaveOccurred())
	return p
}

var _ = Describe("Loop", func() {
	var (
		mockCtrl *gomock.Controller
		ctrl     *MockController
		p        *plant.Simulator
		loop     *Loop
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		ctrl = NewMockController(mockCtrl)
		p = newCartPendulum(1, 0, dynamo.State{0, 0.1, 0, 0})
		loop = New(p, ctrl, signal.Constant(0.5))
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should call the controller once per step with the reference", func() {
		ctrl.EXPECT().
			Update(dynamo.Reference{0.5}, gomock.Any()).
			Return(dynamo.Control{0}).
			Times(10)

		result, err := loop.Run(context.Background(), 0.1)

		Expect(err).NotTo(HaveOccurred())
		Expect(result.StepsTaken).To(Equal(10))
		Expect(result.Samples).To(HaveLen(10))
		Expect(result.Measurements).To(HaveLen(10))
		Expect(result.Times()[3]).To(BeNumerically("~", 0.03, 1e-12))
		Expect(result.Final).To(Equal(p.State()))
		Expect(p.Steps()).To(Equal(10))
	})

	It("should feed measurements back by default", func() {
		ctrl.EXPECT().
			Update(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ dynamo.Reference, y dynamo.Output) dynamo.Control {
				Expect(y).To(HaveLen(2))
				return dynamo.Control{0}
			}).
			Times(5)

		result, err := loop.Run(context.Background(), 0.05)

		Expect(err).NotTo(HaveOccurred())
		Expect(result.Samples[1].Y).To(Equal(result.Measurements[0]))
	})

	It("should feed the true state back when asked", func() {
		loop.Feedback = FeedbackState
		ctrl.EXPECT().
			Update(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ dynamo.Reference, y dynamo.Output) dynamo.Control {
				Expect(y).To(HaveLen(4))
				return dynamo.Control{0}
			}).
			Times(5)

		result, err := loop.Run(context.Background(), 0.05)

		Expect(err).NotTo(HaveOccurred())
		Expect(result.Samples[0].X).To(Equal(dynamo.State{0, 0.1, 0, 0}))
	})

	It("should record the applied input and the state it was applied in", func() {
		ctrl.EXPECT().
			Update(gomock.Any(), gomock.Any()).
			Return(dynamo.Control{2}).
			Times(3)

		result, err := loop.Run(context.Background(), 0.03)

		Expect(err).NotTo(HaveOccurred())
		for _, s := range result.Samples {
			Expect(s.U).To(Equal(dynamo.Control{2}))
			Expect(s.Ref).To(Equal(dynamo.Reference{0.5}))
		}
		Expect(result.Samples[1].X).NotTo(Equal(result.Samples[0].X))
		Expect(result.InputSeries(0)).To(Equal([]float64{2, 2, 2}))
		Expect(result.ReferenceSeries()).To(Equal([]float64{0.5, 0.5, 0.5}))
		Expect(result.StateSeries(1)[0]).To(Equal(0.1))
	})

	It("should stop on a plant failure and keep the partial result", func() {
		gomock.InOrder(
			ctrl.EXPECT().Update(gomock.Any(), gomock.Any()).Return(dynamo.Control{0}).Times(3),
			ctrl.EXPECT().Update(gomock.Any(), gomock.Any()).Return(dynamo.Control{math.Inf(1)}),
		)

		result, err := loop.Run(context.Background(), 1)

		Expect(err).To(MatchError(dynamo.ErrNonFiniteState))
		Expect(result.StepsTaken).To(Equal(3))
		Expect(result.Samples).To(HaveLen(4))
		Expect(result.Final.IsValid()).To(BeTrue())
		Expect(p.Err()).To(HaveOccurred())
	})

	It("should stop when the context is cancelled", func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		result, err := loop.Run(ctx, 1)

		Expect(err).To(MatchError(dynamo.ErrContextCanceled))
		Expect(err).To(MatchError(context.Canceled))
		Expect(result.StepsTaken).To(Equal(0))
	})

	It("should reject an invalid run", func() {
		_, err := loop.Run(context.Background(), 0)
		Expect(err).To(MatchError(dynamo.ErrInvalidConfiguration))

		loop.Controller = nil
		_, err = loop.Run(context.Background(), 1)
		Expect(err).To(MatchError(dynamo.ErrInvalidConfiguration))
	})

	It("should report metrics and notify observers", func() {
		ctrl.EXPECT().
			Update(gomock.Any(), gomock.Any()).
			Return(dynamo.Control{-1.5}).
			Times(20)

		var seen int
		loop.AddMetric(metrics.NewControlEffort())
		loop.AddObserver(ObserverFunc(func(dynamo.Sample) { seen++ }))

		result, err := loop.Run(context.Background(), 0.2)

		Expect(err).NotTo(HaveOccurred())
		Expect(seen).To(Equal(20))
		Expect(result.Metrics).To(HaveKeyWithValue("control_effort", 1.5))
	})

	It("should tag every run with a fresh id", func() {
		ctrl.EXPECT().Update(gomock.Any(), gomock.Any()).Return(dynamo.Control{0}).AnyTimes()

		r1, err := loop.Run(context.Background(), 0.01)
		Expect(err).NotTo(HaveOccurred())
		r2, err := loop.Run(context.Background(), 0.01)
		Expect(err).NotTo(HaveOccurred())

		_, err = xid.FromString(r1.RunID)
		Expect(err).NotTo(HaveOccurred())
		Expect(r1.RunID).NotTo(Equal(r2.RunID))
	})
})

var _ = Describe("Closed loop", func() {
	It("should balance the cart-pendulum on the true state", func() {
		p := newCartPendulum(1, 0, dynamo.State{0, 0.05, 0, 0})
		loop := New(p, control.NewCartPendulumFeedback(), signal.Constant(0))
		loop.Feedback = FeedbackState

		result, err := loop.Run(context.Background(), 10)

		Expect(err).NotTo(HaveOccurred())
		Expect(result.StepsTaken).To(Equal(1000))
		Expect(math.Abs(result.Final[1])).To(BeNumerically("<", 0.01))
		Expect(math.Abs(result.Final[0])).To(BeNumerically("<", 0.05))
	})
})

var _ = Describe("Ensemble", func() {
	build := func(seed uint64) (*Loop, error) {
		p := newCartPendulum(seed, 0.2, dynamo.State{0, 0.05, 0, 0})
		loop := New(p, control.NewCartPendulumFeedback(), signal.Constant(0))
		loop.Feedback = FeedbackState
		loop.AddMetric(metrics.NewStability(1))
		return loop, nil
	}

	It("should run one loop per seed", func() {
		e := &Ensemble{Build: build, Runs: 4, SeedStart: 10, Parallelism: 2}

		results, err := e.Run(context.Background(), 0.5)

		Expect(err).NotTo(HaveOccurred())
		Expect(results).To(HaveLen(4))
		for _, r := range results {
			Expect(r.StepsTaken).To(Equal(50))
			Expect(r.Metrics).To(HaveKey("stability"))
		}
		Expect(results[0].Final).NotTo(Equal(results[1].Final))
	})

	It("should be reproducible per seed", func() {
		a, err := (&Ensemble{Build: build, Runs: 3, SeedStart: 7}).Run(context.Background(), 0.2)
		Expect(err).NotTo(HaveOccurred())
		b, err := (&Ensemble{Build: build, Runs: 3, SeedStart: 7, Parallelism: 1}).Run(context.Background(), 0.2)
		Expect(err).NotTo(HaveOccurred())

		for i := range a {
			Expect(a[i].Final).To(Equal(b[i].Final))
		}
	})

	It("should surface build failures", func() {
		e := &Ensemble{
			Build: func(seed uint64) (*Loop, error) {
				if seed == 2 {
					return nil, dynamo.Invalidf("bad seed")
				}
				return build(seed)
			},
			Runs: 3,
		}

		_, err := e.Run(context.Background(), 0.1)

		Expect(err).To(MatchError(dynamo.ErrInvalidConfiguration))
		Expect(err.Error()).To(ContainSubstring("seed 2"))
	})

	It("should reject an empty ensemble", func() {
		_, err := (&Ensemble{Build: build}).Run(context.Background(), 0.1)
		Expect(err).To(MatchError(dynamo.ErrInvalidConfiguration))
	})
})

var _ = Describe("Feedback", func() {
	DescribeTable("parsing",
		func(name string, want Feedback, ok bool) {
			got, err := ParseFeedback(name)
			if !ok {
				Expect(err).To(MatchError(dynamo.ErrInvalidConfiguration))
				return
			}
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(Equal(want))
		},
		Entry("default", "", FeedbackMeasurement, true),
		Entry("measurement", "measurement", FeedbackMeasurement, true),
		Entry("state", "State", FeedbackState, true),
		Entry("unknown", "estimate", FeedbackMeasurement, false),
	)
})
