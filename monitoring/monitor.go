// Package monitoring serves a simulation session over HTTP so that it can be
// driven and inspected from a browser.
package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"runtime/pprof"
	"strconv"
	"sync"
	"time"

	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/sarchlab/vmsim/mem/vm"
	"github.com/sarchlab/vmsim/mem/vm/addresstranslator"
	"github.com/sarchlab/vmsim/mem/vm/session"
	"github.com/sarchlab/vmsim/monitoring/web"
	"github.com/shirou/gopsutil/process"
	"github.com/syifan/goseth"
)

// Monitor turns a session into a server. Requests are served one at a time.
type Monitor struct {
	lock    sync.Mutex
	session *session.Session

	portNumber      int
	profileDuration time.Duration
	logger          *slog.Logger
	server          *http.Server
}

// NewMonitor creates a new Monitor that serves the given session.
func NewMonitor(s *session.Session) *Monitor {
	return &Monitor{
		session:         s,
		profileDuration: time.Second,
		logger:          slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// WithPortNumber sets the port number of the monitor.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	if portNumber != 0 && portNumber < 1000 {
		m.logger.Warn("port not allowed, using a random port instead",
			"port", portNumber)

		portNumber = 0
	}

	m.portNumber = portNumber

	return m
}

// WithLogger sets the logger of the monitor.
func (m *Monitor) WithLogger(logger *slog.Logger) *Monitor {
	m.logger = logger
	return m
}

// WithProfileDuration sets how long /api/profile samples the CPU.
func (m *Monitor) WithProfileDuration(d time.Duration) *Monitor {
	m.profileDuration = d
	return m
}

// Router returns the handler of all monitor routes.
func (m *Monitor) Router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/api/generate", m.generate).Methods(http.MethodPost)
	r.HandleFunc("/api/translate", m.translate).Methods(http.MethodPost)
	r.HandleFunc("/api/table", m.table).Methods(http.MethodGet)
	r.HandleFunc("/api/entry/{index}", m.editEntry).Methods(http.MethodPut)
	r.HandleFunc("/api/swap", m.swap).Methods(http.MethodPost)
	r.HandleFunc("/api/stats", m.stats).Methods(http.MethodGet)
	r.HandleFunc("/api/session", m.sessionDetails).Methods(http.MethodGet)
	r.HandleFunc("/api/resource", m.listResources).Methods(http.MethodGet)
	r.HandleFunc("/api/profile", m.collectProfile).Methods(http.MethodGet)
	r.PathPrefix("/").Handler(http.FileServer(web.GetAssets()))

	return r
}

// StartServer listens on the configured port and serves in the background.
// It returns the URL of the monitor.
func (m *Monitor) StartServer() (string, error) {
	actualPort := ":" + strconv.Itoa(m.portNumber)

	listener, err := net.Listen("tcp", actualPort)
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("http://localhost:%d",
		listener.Addr().(*net.TCPAddr).Port)

	fmt.Fprintf(os.Stderr, "Monitoring simulation with %s\n", url)

	m.server = &http.Server{
		Handler:           m.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		err := m.server.Serve(listener)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.logger.Error("monitor stopped", "error", err)
		}
	}()

	return url, nil
}

// Shutdown stops a server started by StartServer.
func (m *Monitor) Shutdown(ctx context.Context) error {
	if m.server == nil {
		return nil
	}

	return m.server.Shutdown(ctx)
}

type generateReq struct {
	VirtualKB  uint64 `json:"virtual_kb"`
	PhysicalKB uint64 `json:"physical_kb"`
	PageKB     uint64 `json:"page_kb"`
}

func (m *Monitor) generate(w http.ResponseWriter, r *http.Request) {
	req := generateReq{}
	if !decodeOr400(w, r, &req) {
		return
	}

	m.lock.Lock()
	defer m.lock.Unlock()

	cfg := vm.ConfigFromKB(req.VirtualKB, req.PhysicalKB, req.PageKB)
	if err := m.session.Generate(cfg); err != nil {
		m.writeError(w, err)
		return
	}

	m.writeSnapshot(w)
}

type translateReq struct {
	Direction addresstranslator.Direction `json:"direction"`
	Address   string                      `json:"address"`
}

func (m *Monitor) translate(w http.ResponseWriter, r *http.Request) {
	req := translateReq{}
	if !decodeOr400(w, r, &req) {
		return
	}

	m.lock.Lock()
	defer m.lock.Unlock()

	res, err := m.session.Translate(req.Direction, req.Address)
	if err != nil {
		m.writeError(w, err)
		return
	}

	m.writeJSON(w, http.StatusOK, res)
}

func (m *Monitor) table(w http.ResponseWriter, _ *http.Request) {
	m.lock.Lock()
	defer m.lock.Unlock()

	m.writeSnapshot(w)
}

type editReq struct {
	Field string `json:"field"`
	Value int    `json:"value"`
}

func (m *Monitor) editEntry(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.ParseUint(mux.Vars(r)["index"], 10, 64)
	if err != nil {
		m.writeError(w, fmt.Errorf("%v: %w", err, vm.ErrIndexOutOfRange))
		return
	}

	req := editReq{}
	if !decodeOr400(w, r, &req) {
		return
	}

	field, err := vm.ParseField(req.Field)
	if err != nil {
		m.writeError(w, err)
		return
	}

	m.lock.Lock()
	defer m.lock.Unlock()

	if err := m.session.ApplyManualEdit(index, field, req.Value); err != nil {
		m.writeError(w, err)
		return
	}

	m.writeSnapshot(w)
}

type swapReq struct {
	A uint64 `json:"a"`
	B uint64 `json:"b"`
}

func (m *Monitor) swap(w http.ResponseWriter, r *http.Request) {
	req := swapReq{}
	if !decodeOr400(w, r, &req) {
		return
	}

	m.lock.Lock()
	defer m.lock.Unlock()

	if err := m.session.SwapPhysicalSlots(req.A, req.B); err != nil {
		m.writeError(w, err)
		return
	}

	m.writeSnapshot(w)
}

func (m *Monitor) stats(w http.ResponseWriter, _ *http.Request) {
	m.lock.Lock()
	defer m.lock.Unlock()

	m.writeJSON(w, http.StatusOK, m.session.Stats())
}

type sessionView struct {
	ID        string
	Generated bool
	Config    vm.Config
	State     vm.State
	Stats     session.Stats
}

func (m *Monitor) sessionDetails(w http.ResponseWriter, _ *http.Request) {
	m.lock.Lock()
	view := &sessionView{
		ID:        m.session.ID(),
		Generated: m.session.Generated(),
		Config:    m.session.Config(),
		State:     m.session.State(),
		Stats:     m.session.Stats(),
	}
	m.lock.Unlock()

	buf := bytes.NewBuffer(nil)

	serializer := goseth.NewSerializer()
	serializer.SetRoot(view)
	serializer.SetMaxDepth(3)

	if err := serializer.Serialize(buf); err != nil {
		m.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write(buf.Bytes())
}

type resourceRsp struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemorySize uint64  `json:"memory_size"`
}

func (m *Monitor) listResources(w http.ResponseWriter, _ *http.Request) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		m.writeError(w, err)
		return
	}

	cpuPercent, err := proc.CPUPercent()
	if err != nil {
		m.writeError(w, err)
		return
	}

	memoryInfo, err := proc.MemoryInfo()
	if err != nil {
		m.writeError(w, err)
		return
	}

	m.writeJSON(w, http.StatusOK, resourceRsp{
		CPUPercent: cpuPercent,
		MemorySize: memoryInfo.RSS,
	})
}

func (m *Monitor) collectProfile(w http.ResponseWriter, _ *http.Request) {
	buf := bytes.NewBuffer(nil)

	if err := pprof.StartCPUProfile(buf); err != nil {
		m.writeError(w, err)
		return
	}

	time.Sleep(m.profileDuration)

	pprof.StopCPUProfile()

	prof, err := profile.ParseData(buf.Bytes())
	if err != nil {
		m.writeError(w, err)
		return
	}

	m.writeJSON(w, http.StatusOK, prof)
}

func (m *Monitor) writeSnapshot(w http.ResponseWriter) {
	snap, err := m.session.Snapshot()
	if err != nil {
		m.writeError(w, err)
		return
	}

	m.writeJSON(w, http.StatusOK, snap)
}

type errorRsp struct {
	Error string `json:"error"`
}

func (m *Monitor) writeError(w http.ResponseWriter, err error) {
	status := StatusOf(err)
	if status >= http.StatusInternalServerError {
		m.logger.Error("request failed", "error", err)
	}

	m.writeJSON(w, status, errorRsp{Error: err.Error()})
}

func (m *Monitor) writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		m.logger.Error("encoding response", "error", err)
		w.WriteHeader(http.StatusInternalServerError)

		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}

func decodeOr400(w http.ResponseWriter, r *http.Request, v any) bool {
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil {
		return true
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	json.NewEncoder(w).Encode(errorRsp{Error: err.Error()})

	return false
}
