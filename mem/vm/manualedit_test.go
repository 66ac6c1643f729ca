package vm

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Manual edits", func() {
	var (
		cfg Config
		s   State
	)

	BeforeEach(func() {
		var err error
		cfg = ConfigFromKB(32, 16, 4)
		s, err = Generate(cfg)
		Expect(err).NotTo(HaveOccurred())
	})

	Context("present", func() {
		It("should release the frame and dequeue the page", func() {
			next, err := ApplyManualEdit(cfg, s, 1, FieldPresent, 0)

			Expect(err).NotTo(HaveOccurred())
			e, _ := next.Table.Entry(1)
			Expect(e.Present).To(BeFalse())
			Expect(e.ArrivalOrder).To(Equal(NoArrival))
			Expect(next.Queue.Pages()).To(Equal([]uint64{0, 2, 3}))
			Expect(next.CheckInvariants(cfg)).To(Succeed())

			orig, _ := s.Table.Entry(1)
			Expect(orig.Present).To(BeTrue())
		})

		It("should load into the lowest free frame", func() {
			next, err := ApplyManualEdit(cfg, s, 2, FieldPresent, 0)
			Expect(err).NotTo(HaveOccurred())

			next, err = ApplyManualEdit(cfg, next, 6, FieldPresent, 1)

			Expect(err).NotTo(HaveOccurred())
			e, _ := next.Table.Entry(6)
			Expect(e.Present).To(BeTrue())
			Expect(e.PFN).To(Equal(uint64(2)))
			Expect(e.ArrivalOrder).To(Equal(3))
			Expect(next.Queue.Pages()).To(Equal([]uint64{0, 1, 3, 6}))
			Expect(next.CheckInvariants(cfg)).To(Succeed())
		})

		It("should fail when every frame is taken", func() {
			_, err := ApplyManualEdit(cfg, s, 5, FieldPresent, 1)

			Expect(err).To(MatchError(ErrNoFreeFrame))
		})

		It("should ignore edits that change nothing", func() {
			next, err := ApplyManualEdit(cfg, s, 0, FieldPresent, 1)

			Expect(err).NotTo(HaveOccurred())
			Expect(next.Table.Entries()).To(Equal(s.Table.Entries()))
		})
	})

	Context("arrival order", func() {
		It("should reorder the load queue", func() {
			next, err := ApplyManualEdit(cfg, s, 0, FieldArrivalOrder, 10)

			Expect(err).NotTo(HaveOccurred())
			Expect(next.Queue.Pages()).To(Equal([]uint64{1, 2, 3, 0}))
			Expect(s.Queue.Pages()).To(Equal([]uint64{0, 1, 2, 3}))
		})

		It("should move the page in front of later arrivals", func() {
			next, err := ApplyManualEdit(cfg, s, 3, FieldArrivalOrder, 0)

			Expect(err).NotTo(HaveOccurred())
			Expect(next.Queue.Pages()).To(Equal([]uint64{0, 3, 1, 2}))
		})

		It("should only move the edited page after a fault", func() {
			next, err := ApplyManualEdit(cfg, s, 0, FieldArrivalOrder, 10)
			Expect(err).NotTo(HaveOccurred())

			// Serve a fault on page 4 the way the replacement engine does:
			// evict the queue front and load into its frame with arrival
			// order equal to the queue length.
			victim, _ := next.Queue.Peek()
			next.Queue.Remove(victim)
			pfn, err := next.Table.Evict(victim)
			Expect(err).NotTo(HaveOccurred())
			Expect(next.Table.Install(4, pfn, next.Queue.Size())).To(Succeed())
			next.Queue.Push(4)
			Expect(next.Queue.Pages()).To(Equal([]uint64{2, 3, 0, 4}))

			again, err := ApplyManualEdit(cfg, next, 2, FieldArrivalOrder, 2)

			Expect(err).NotTo(HaveOccurred())
			Expect(again.Queue.Pages()).To(Equal([]uint64{2, 3, 0, 4}))
			Expect(again.CheckInvariants(cfg)).To(Succeed())

			moved, err := ApplyManualEdit(cfg, next, 3, FieldArrivalOrder, 20)

			Expect(err).NotTo(HaveOccurred())
			Expect(moved.Queue.Pages()).To(Equal([]uint64{2, 0, 4, 3}))
		})

		It("should reject absent pages", func() {
			_, err := ApplyManualEdit(cfg, s, 5, FieldArrivalOrder, 1)

			Expect(err).To(MatchError(ErrNotResident))
		})

		It("should reject negative orders", func() {
			_, err := ApplyManualEdit(cfg, s, 1, FieldArrivalOrder, -3)

			Expect(err).To(MatchError(ErrInvalidValue))
		})
	})

	It("should reject unknown fields and indices", func() {
		_, err := ApplyManualEdit(cfg, s, 0, Field(9), 1)
		Expect(err).To(MatchError(ErrUnknownField))

		_, err = ApplyManualEdit(cfg, s, 8, FieldPresent, 1)
		Expect(err).To(MatchError(ErrIndexOutOfRange))

		_, err = ParseField("physicalIndex")
		Expect(err).To(MatchError(ErrUnknownField))
	})

	Context("swapping physical slots", func() {
		It("should swap frames only", func() {
			next, err := SwapPhysicalSlots(s, 0, 3)

			Expect(err).NotTo(HaveOccurred())
			a, _ := next.Table.Entry(0)
			b, _ := next.Table.Entry(3)
			Expect(a.PFN).To(Equal(uint64(3)))
			Expect(b.PFN).To(Equal(uint64(0)))
			Expect(a.ArrivalOrder).To(Equal(0))
			Expect(next.Queue.Pages()).To(Equal(s.Queue.Pages()))
			Expect(next.CheckInvariants(cfg)).To(Succeed())
		})

		It("should do nothing for two absent pages", func() {
			next, err := SwapPhysicalSlots(s, 4, 5)

			Expect(err).NotTo(HaveOccurred())
			Expect(next.Table.Entries()).To(Equal(s.Table.Entries()))
		})

		It("should refuse to leave a resident page without a frame", func() {
			_, err := SwapPhysicalSlots(s, 0, 5)

			Expect(err).To(MatchError(ErrNotResident))
		})
	})
})
