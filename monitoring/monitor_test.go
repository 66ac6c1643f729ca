package monitoring

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/vmsim/mem/vm"
	"github.com/sarchlab/vmsim/mem/vm/addresstranslator"
	"github.com/sarchlab/vmsim/mem/vm/session"
)

var _ = Describe("Monitor", func() {
	var (
		m      *Monitor
		router http.Handler
	)

	do := func(method, url, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, url, strings.NewReader(body))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		return rec
	}

	decode := func(rec *httptest.ResponseRecorder, v any) {
		Expect(json.Unmarshal(rec.Body.Bytes(), v)).To(Succeed())
	}

	generate := func() {
		rec := do(http.MethodPost, "/api/generate",
			`{"virtual_kb":16,"physical_kb":8,"page_kb":4}`)
		Expect(rec.Code).To(Equal(http.StatusOK))
	}

	BeforeEach(func() {
		m = NewMonitor(session.New()).
			WithProfileDuration(10 * time.Millisecond)
		router = m.Router()
	})

	It("should reject table reads before generation", func() {
		rec := do(http.MethodGet, "/api/table", "")

		Expect(rec.Code).To(Equal(http.StatusConflict))
	})

	It("should generate a table", func() {
		rec := do(http.MethodPost, "/api/generate",
			`{"virtual_kb":16,"physical_kb":8,"page_kb":4}`)

		Expect(rec.Code).To(Equal(http.StatusOK))

		snap := session.Snapshot{}
		decode(rec, &snap)
		Expect(snap.Rows).To(HaveLen(4))
		Expect(snap.LoadQueue).To(Equal([]uint64{0, 1}))
		Expect(snap.Rows[1].PhysicalIndex).To(Equal("1"))
		Expect(snap.Rows[3].PhysicalIndex).To(BeEmpty())
	})

	It("should reject an invalid configuration", func() {
		rec := do(http.MethodPost, "/api/generate",
			`{"virtual_kb":16,"physical_kb":4,"page_kb":4}`)

		Expect(rec.Code).To(Equal(http.StatusBadRequest))
		Expect(rec.Body.String()).To(ContainSubstring("error"))
	})

	It("should reject malformed bodies", func() {
		rec := do(http.MethodPost, "/api/generate", `{`)

		Expect(rec.Code).To(Equal(http.StatusBadRequest))
	})

	It("should translate with a page fault", func() {
		generate()

		rec := do(http.MethodPost, "/api/translate",
			`{"direction":"v2p","address":"0x2000"}`)
		Expect(rec.Code).To(Equal(http.StatusOK))

		res := addresstranslator.Result{}
		decode(rec, &res)
		Expect(res.AddressHex).To(Equal("0x0000"))
		Expect(res.Faulted).To(BeTrue())
		Expect(*res.EvictedPage).To(Equal(uint64(0)))

		rec = do(http.MethodGet, "/api/stats", "")
		stats := session.Stats{}
		decode(rec, &stats)
		Expect(stats).To(Equal(session.Stats{
			Translations: 1, Faults: 1, Evictions: 1,
		}))

		rec = do(http.MethodGet, "/api/table", "")
		snap := session.Snapshot{}
		decode(rec, &snap)
		Expect(snap.LoadQueue).To(Equal([]uint64{1, 2}))
	})

	It("should map translation errors to status codes", func() {
		generate()

		rec := do(http.MethodPost, "/api/translate",
			`{"direction":"v2p","address":"0xZZ"}`)
		Expect(rec.Code).To(Equal(http.StatusBadRequest))

		rec = do(http.MethodPost, "/api/translate",
			`{"direction":"v2p","address":"0x4000"}`)
		Expect(rec.Code).To(Equal(http.StatusBadRequest))

		rec = do(http.MethodPost, "/api/translate",
			`{"direction":"sideways","address":"0x0"}`)
		Expect(rec.Code).To(Equal(http.StatusBadRequest))
	})

	It("should report a frame without a page as not found", func() {
		generate()

		rec := do(http.MethodPut, "/api/entry/1",
			`{"field":"present","value":0}`)
		Expect(rec.Code).To(Equal(http.StatusOK))

		rec = do(http.MethodPost, "/api/translate",
			`{"direction":"p2v","address":"0x1000"}`)
		Expect(rec.Code).To(Equal(http.StatusNotFound))
	})

	It("should edit entries", func() {
		generate()

		rec := do(http.MethodPut, "/api/entry/0",
			`{"field":"present","value":0}`)
		Expect(rec.Code).To(Equal(http.StatusOK))

		snap := session.Snapshot{}
		decode(rec, &snap)
		Expect(snap.Rows[0].Present).To(BeFalse())
		Expect(snap.LoadQueue).To(Equal([]uint64{1}))

		rec = do(http.MethodPut, "/api/entry/9",
			`{"field":"present","value":1}`)
		Expect(rec.Code).To(Equal(http.StatusBadRequest))

		rec = do(http.MethodPut, "/api/entry/x",
			`{"field":"present","value":1}`)
		Expect(rec.Code).To(Equal(http.StatusBadRequest))

		rec = do(http.MethodPut, "/api/entry/1",
			`{"field":"color","value":1}`)
		Expect(rec.Code).To(Equal(http.StatusBadRequest))
	})

	It("should swap physical slots", func() {
		generate()

		rec := do(http.MethodPost, "/api/swap", `{"a":0,"b":1}`)
		Expect(rec.Code).To(Equal(http.StatusOK))

		snap := session.Snapshot{}
		decode(rec, &snap)
		Expect(snap.Rows[0].PhysicalIndex).To(Equal("1"))
		Expect(snap.Rows[1].PhysicalIndex).To(Equal("0"))
		Expect(snap.LoadQueue).To(Equal([]uint64{0, 1}))

		rec = do(http.MethodPost, "/api/swap", `{"a":0,"b":3}`)
		Expect(rec.Code).To(Equal(http.StatusBadRequest))
	})

	It("should serialize the session", func() {
		generate()

		rec := do(http.MethodGet, "/api/session", "")

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.Len()).To(BeNumerically(">", 0))
	})

	It("should report resources", func() {
		rec := do(http.MethodGet, "/api/resource", "")

		Expect(rec.Code).To(Equal(http.StatusOK))

		rsp := resourceRsp{}
		decode(rec, &rsp)
		Expect(rsp.MemorySize).To(BeNumerically(">", 0))
	})

	It("should collect a profile", func() {
		rec := do(http.MethodGet, "/api/profile", "")

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(json.Valid(rec.Body.Bytes())).To(BeTrue())
	})

	It("should serve the web page", func() {
		rec := do(http.MethodGet, "/", "")

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(HavePrefix("<!DOCTYPE html>"))
	})
})

var _ = Describe("StatusOf", func() {
	DescribeTable("maps errors",
		func(err error, status int) {
			Expect(StatusOf(fmt.Errorf("ctx: %w", err))).To(Equal(status))
		},
		Entry("config", vm.ErrConfiguration, http.StatusBadRequest),
		Entry("hex", vm.ErrInvalidHexAddress, http.StatusBadRequest),
		Entry("range", vm.ErrAddressOutOfRange, http.StatusBadRequest),
		Entry("mapping", vm.ErrNoMappingFound, http.StatusNotFound),
		Entry("not generated", session.ErrNotGenerated, http.StatusConflict),
		Entry("overflow", vm.ErrEncodingOverflow, http.StatusInternalServerError),
		Entry("inconsistent", vm.ErrInconsistentTable,
			http.StatusInternalServerError),
	)
})

var _ = Describe("Server", func() {
	It("should start and shut down", func() {
		m := NewMonitor(session.New())

		url, err := m.StartServer()
		Expect(err).NotTo(HaveOccurred())
		Expect(url).To(HavePrefix("http://localhost:"))

		rsp, err := http.Get(url + "/api/stats")
		Expect(err).NotTo(HaveOccurred())
		rsp.Body.Close()
		Expect(rsp.StatusCode).To(Equal(http.StatusOK))

		Expect(m.Shutdown(context.Background())).To(Succeed())
	})
})
