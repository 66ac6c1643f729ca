package replacement

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/vmsim/mem/vm"
	"github.com/sarchlab/vmsim/sim/hooking"
	"go.uber.org/mock/gomock"
)

type fixedVictimFinder struct {
	victim uint64
}

func (f fixedVictimFinder) FindVictim(_ vm.State) (uint64, bool) {
	return f.victim, true
}

var _ = Describe("FIFO Engine", func() {
	var (
		mockCtrl *gomock.Controller
		hook     *MockHook
		engine   *Engine
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		hook = NewMockHook(mockCtrl)
		engine = NewFIFOEngine()
		engine.AcceptHook(hook)
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should evict the oldest page when physical space is full", func() {
		cfg := vm.ConfigFromKB(16, 8, 4)
		s, err := vm.Generate(cfg)
		Expect(err).NotTo(HaveOccurred())

		gomock.InOrder(
			hook.EXPECT().Func(gomock.Any()).Do(func(ctx hooking.HookCtx) {
				Expect(ctx.Pos).To(Equal(HookPosPageEvict))
				Expect(ctx.Item).To(Equal(
					EvictionDetail{Victim: 0, PFN: 0, For: 2}))
			}),
			hook.EXPECT().Func(gomock.Any()).Do(func(ctx hooking.HookCtx) {
				Expect(ctx.Pos).To(Equal(HookPosPageFault))
			}),
		)

		next, res, err := engine.Fault(cfg, s, 2)

		Expect(err).NotTo(HaveOccurred())
		Expect(res).To(Equal(FaultResult{VPN: 2, PFN: 0, Evicted: true, Victim: 0}))
		Expect(next.Queue.Pages()).To(Equal([]uint64{1, 2}))

		victim, _ := next.Table.Entry(0)
		Expect(victim).To(Equal(vm.PageTableEntry{VPN: 0, ArrivalOrder: vm.NoArrival}))

		loaded, _ := next.Table.Entry(2)
		Expect(loaded).To(Equal(
			vm.PageTableEntry{VPN: 2, PFN: 0, Present: true, ArrivalOrder: 1}))

		Expect(next.CheckInvariants(cfg)).To(Succeed())
		Expect(s.Queue.Pages()).To(Equal([]uint64{0, 1}))
	})

	It("should take the next free frame without evicting", func() {
		cfg := vm.ConfigFromKB(32, 16, 4)
		s := vm.State{
			Table: vm.NewPageTable(cfg.TotalPages()),
			Queue: vm.NewLoadQueue(int(cfg.TotalFrames())),
		}

		hook.EXPECT().Func(gomock.Any()).Times(2)

		s, res, err := engine.Fault(cfg, s, 6)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.PFN).To(Equal(uint64(0)))
		_, evicted := res.EvictedPage()
		Expect(evicted).To(BeFalse())

		s, res, err = engine.Fault(cfg, s, 3)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.PFN).To(Equal(uint64(1)))

		e, _ := s.Table.Entry(3)
		Expect(e.ArrivalOrder).To(Equal(1))
	})

	It("should follow load order across F+1 faults", func() {
		cfg := vm.ConfigFromKB(32, 16, 4)
		s := vm.State{
			Table: vm.NewPageTable(cfg.TotalPages()),
			Queue: vm.NewLoadQueue(int(cfg.TotalFrames())),
		}
		hook.EXPECT().Func(gomock.Any()).AnyTimes()

		pages := []uint64{3, 5, 0, 7, 2}
		for _, p := range pages {
			var err error
			s, _, err = engine.Fault(cfg, s, p)
			Expect(err).NotTo(HaveOccurred())
		}

		first, _ := s.Table.Entry(3)
		Expect(first.Present).To(BeFalse())
		for _, p := range pages[1:] {
			e, _ := s.Table.Entry(p)
			Expect(e.Present).To(BeTrue())
		}

		_, res, err := engine.Fault(cfg, s, 6)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Victim).To(Equal(uint64(5)))
		Expect(res.Evicted).To(BeTrue())
	})

	It("should reuse a free frame left by a manual edit", func() {
		cfg := vm.ConfigFromKB(32, 16, 4)
		s, err := vm.Generate(cfg)
		Expect(err).NotTo(HaveOccurred())
		hook.EXPECT().Func(gomock.Any()).AnyTimes()

		s, err = vm.ApplyManualEdit(cfg, s, 1, vm.FieldPresent, 0)
		Expect(err).NotTo(HaveOccurred())

		next, res, err := engine.Fault(cfg, s, 5)

		Expect(err).NotTo(HaveOccurred())
		Expect(res.Evicted).To(BeFalse())
		Expect(res.PFN).To(Equal(uint64(1)))
		Expect(next.CheckInvariants(cfg)).To(Succeed())
	})

	It("should refuse to fault a resident page", func() {
		cfg := vm.ConfigFromKB(16, 8, 4)
		s, err := vm.Generate(cfg)
		Expect(err).NotTo(HaveOccurred())

		_, _, err = engine.Fault(cfg, s, 1)

		Expect(err).To(MatchError(vm.ErrPagePresent))
	})

	It("should report a full table with an empty queue", func() {
		cfg := vm.ConfigFromKB(16, 8, 4)
		s, err := vm.Generate(cfg)
		Expect(err).NotTo(HaveOccurred())
		s.Queue = vm.NewLoadQueue(2)

		_, _, err = engine.Fault(cfg, s, 3)

		Expect(err).To(MatchError(vm.ErrInconsistentTable))
	})

	It("should not report an eviction when the fault is rolled back", func() {
		cfg := vm.ConfigFromKB(16, 8, 4)
		s, err := vm.Generate(cfg)
		Expect(err).NotTo(HaveOccurred())

		// Page 3 holds frame 1 but is not queued, so the queue stays full
		// after the victim is evicted.
		_, err = s.Table.Evict(1)
		Expect(err).NotTo(HaveOccurred())
		Expect(s.Table.Install(3, 1, 1)).To(Succeed())

		e := NewEngine(fixedVictimFinder{victim: 3})
		e.AcceptHook(hook)

		next, _, err := e.Fault(cfg, s, 2)

		Expect(err).To(MatchError(vm.ErrInconsistentTable))
		Expect(next.Table.Entries()).To(Equal(s.Table.Entries()))
		Expect(next.Queue.Pages()).To(Equal([]uint64{0, 1}))
	})
})
