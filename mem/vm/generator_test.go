package vm

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Generate", func() {
	It("should identity-map the first frames", func() {
		cfg := ConfigFromKB(16, 8, 4)

		s, err := Generate(cfg)

		Expect(err).NotTo(HaveOccurred())
		Expect(s.Table.Len()).To(Equal(uint64(4)))
		Expect(s.Queue.Pages()).To(Equal([]uint64{0, 1}))
		Expect(s.Table.Entries()).To(Equal([]PageTableEntry{
			{VPN: 0, PFN: 0, Present: true, ArrivalOrder: 0},
			{VPN: 1, PFN: 1, Present: true, ArrivalOrder: 1},
			{VPN: 2, ArrivalOrder: NoArrival},
			{VPN: 3, ArrivalOrder: NoArrival},
		}))

		vi, err := s.Table.VirtualIndex(cfg, 2)
		Expect(err).NotTo(HaveOccurred())
		Expect(vi).To(Equal("10"))

		pi, err := s.Table.PhysicalIndex(cfg, 1)
		Expect(err).NotTo(HaveOccurred())
		Expect(pi).To(Equal("1"))

		pi, err = s.Table.PhysicalIndex(cfg, 3)
		Expect(err).NotTo(HaveOccurred())
		Expect(pi).To(BeEmpty())
	})

	DescribeTable("should produce exactly TotalFrames present pages",
		func(virtualKB, physicalKB, pageKB uint64) {
			cfg := ConfigFromKB(virtualKB, physicalKB, pageKB)

			s, err := Generate(cfg)

			Expect(err).NotTo(HaveOccurred())
			Expect(s.Table.PresentCount()).To(Equal(cfg.TotalFrames()))
			Expect(s.Table.Len() - s.Table.PresentCount()).
				To(Equal(cfg.TotalPages() - cfg.TotalFrames()))
			Expect(s.CheckInvariants(cfg)).To(Succeed())
		},
		Entry("16/8/4", uint64(16), uint64(8), uint64(4)),
		Entry("64/32/1", uint64(64), uint64(32), uint64(1)),
		Entry("8/4/4", uint64(8), uint64(4), uint64(4)),
		Entry("1024/512/2", uint64(1024), uint64(512), uint64(2)),
	)

	It("should be deterministic", func() {
		cfg := ConfigFromKB(32, 16, 2)

		a, err := Generate(cfg)
		Expect(err).NotTo(HaveOccurred())
		b, err := Generate(cfg)
		Expect(err).NotTo(HaveOccurred())

		Expect(a.Table.Entries()).To(Equal(b.Table.Entries()))
		Expect(a.Queue.Pages()).To(Equal(b.Queue.Pages()))
	})

	It("should fail without producing a table", func() {
		s, err := Generate(ConfigFromKB(16, 4, 4))

		Expect(err).To(MatchError(ErrConfiguration))
		Expect(s.Table.Len()).To(BeZero())
	})
})
