// Package monitoring turns a running scheduler into an HTTP server that can
// be inspected and controlled from outside.
package monitoring

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"runtime/pprof"
	"strconv"
	"sync"
	"time"

	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/rs/xid"
	"github.com/shirou/gopsutil/process"
	"github.com/syifan/goseth"

	"github.com/sarchlab/smpsched/sched"
	"github.com/sarchlab/smpsched/timing"
)

// EventSource is the read-only view of a scheduler the monitor reports on.
type EventSource interface {
	Events() []sched.EventRecord
	Event(id sched.EventID) (sched.EventRecord, error)
	CurrentEventID() sched.EventID
	NextScheduledEventTime() (timing.Duration, bool)
	NextZuluEventTime() (timing.DateTime, bool)
}

// Controller can stop and resume a run.
type Controller interface {
	Pause()
	Continue()
	IsPaused() bool
}

// TraceController switches firing traces on and off.
type TraceController interface {
	EnableTracing()
	StopTracing()
	IsTracing() bool
}

// FiringCounter reports how often each entry point fired.
type FiringCounter interface {
	Names() []string
	Count(name string) uint64
}

// Monitor can turn a simulation into a server and allows external monitoring
// controlling of the simulation.
type Monitor struct {
	timeKeeper timing.TimeKeeper
	events     EventSource
	controller Controller
	tracer     TraceController
	counter    FiringCounter
	portNumber int

	progressBarsLock sync.Mutex
	progressBars     []*ProgressBar
}

// NewMonitor creates a new Monitor
func NewMonitor() *Monitor {
	return &Monitor{}
}

// WithPortNumber sets the port number of the monitor.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	if portNumber < 1000 {
		fmt.Fprintf(os.Stderr,
			"Port number %d is assigned to the monitoring server, "+
				"which is not allowed. Using a random port instead.\n", portNumber)
		portNumber = 0
	}

	m.portNumber = portNumber

	return m
}

// RegisterTimeKeeper sets the time keeper whose times are reported.
func (m *Monitor) RegisterTimeKeeper(tk timing.TimeKeeper) {
	m.timeKeeper = tk
}

// RegisterEventSource sets the scheduler whose events are reported.
func (m *Monitor) RegisterEventSource(s EventSource) {
	m.events = s
}

// RegisterController sets the driver that pause and continue act on.
func (m *Monitor) RegisterController(c Controller) {
	m.controller = c
}

// RegisterTracer sets the tracer that can be started and stopped.
func (m *Monitor) RegisterTracer(t TraceController) {
	m.tracer = t
}

// RegisterFiringCounter sets where firing counts are read from.
func (m *Monitor) RegisterFiringCounter(c FiringCounter) {
	m.counter = c
}

// CreateProgressBar creates a new progress bar.
func (m *Monitor) CreateProgressBar(name string, total uint64) *ProgressBar {
	bar := &ProgressBar{
		ID:        xid.New().String(),
		Name:      name,
		StartTime: time.Now(),
		Total:     total,
	}

	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	m.progressBars = append(m.progressBars, bar)

	return bar
}

// CompleteProgressBar removes a bar from the list.
func (m *Monitor) CompleteProgressBar(pb *ProgressBar) {
	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	newBars := make([]*ProgressBar, 0, len(m.progressBars))
	for _, b := range m.progressBars {
		if b != pb {
			newBars = append(newBars, b)
		}
	}

	m.progressBars = newBars
}

func (m *Monitor) router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/", m.index)
	r.HandleFunc("/api/pause", m.pause)
	r.HandleFunc("/api/continue", m.continueRun)
	r.HandleFunc("/api/now", m.now)
	r.HandleFunc("/api/events", m.listEvents)
	r.HandleFunc("/api/event/{id}", m.eventDetail)
	r.HandleFunc("/api/next", m.next)
	r.HandleFunc("/api/current", m.current)
	r.HandleFunc("/api/firings", m.listFirings)
	r.HandleFunc("/api/trace/start", m.startTrace)
	r.HandleFunc("/api/trace/stop", m.stopTrace)
	r.HandleFunc("/api/progress", m.listProgressBars)
	r.HandleFunc("/api/resource", m.listResources)
	r.HandleFunc("/api/profile", m.collectProfile)

	return r
}

// StartServer starts the monitor as a web server and returns its URL.
func (m *Monitor) StartServer() string {
	actualPort := ":0"
	if m.portNumber > 1000 {
		actualPort = ":" + strconv.Itoa(m.portNumber)
	}

	listener, err := net.Listen("tcp", actualPort)
	dieOnErr(err)

	url := fmt.Sprintf("http://localhost:%d",
		listener.Addr().(*net.TCPAddr).Port)
	fmt.Fprintf(os.Stderr, "Monitoring simulation with %s\n", url)

	r := m.router()

	go func() {
		err := http.Serve(listener, r)
		dieOnErr(err)
	}()

	return url
}

var endpoints = []string{
	"/api/now",
	"/api/events",
	"/api/event/{id}",
	"/api/next",
	"/api/current",
	"/api/firings",
	"/api/pause",
	"/api/continue",
	"/api/trace/start",
	"/api/trace/stop",
	"/api/progress",
	"/api/resource",
	"/api/profile",
}

func (m *Monitor) index(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, endpoints)
}

type statusRsp struct {
	Paused  bool `json:"paused"`
	Tracing bool `json:"tracing"`
}

func (m *Monitor) status() statusRsp {
	rsp := statusRsp{}

	if m.controller != nil {
		rsp.Paused = m.controller.IsPaused()
	}

	if m.tracer != nil {
		rsp.Tracing = m.tracer.IsTracing()
	}

	return rsp
}

func (m *Monitor) pause(w http.ResponseWriter, _ *http.Request) {
	if m.controller == nil {
		http.Error(w, "no run to pause", http.StatusNotFound)
		return
	}

	m.controller.Pause()
	writeJSON(w, m.status())
}

func (m *Monitor) continueRun(w http.ResponseWriter, _ *http.Request) {
	if m.controller == nil {
		http.Error(w, "no run to continue", http.StatusNotFound)
		return
	}

	m.controller.Continue()
	writeJSON(w, m.status())
}

func (m *Monitor) startTrace(w http.ResponseWriter, _ *http.Request) {
	if m.tracer == nil {
		http.Error(w, "tracing is not configured", http.StatusNotFound)
		return
	}

	m.tracer.EnableTracing()
	writeJSON(w, m.status())
}

func (m *Monitor) stopTrace(w http.ResponseWriter, _ *http.Request) {
	if m.tracer == nil {
		http.Error(w, "tracing is not configured", http.StatusNotFound)
		return
	}

	m.tracer.StopTracing()
	writeJSON(w, m.status())
}

type nowRsp struct {
	Simulation int64  `json:"simulation"`
	Mission    int64  `json:"mission"`
	Epoch      int64  `json:"epoch"`
	Zulu       int64  `json:"zulu"`
	EpochText  string `json:"epoch_text"`
	ZuluText   string `json:"zulu_text"`
}

func (m *Monitor) now(w http.ResponseWriter, _ *http.Request) {
	if m.timeKeeper == nil {
		http.Error(w, "no time keeper", http.StatusNotFound)
		return
	}

	epoch := m.timeKeeper.EpochTime()
	zulu := m.timeKeeper.ZuluTime()

	writeJSON(w, nowRsp{
		Simulation: int64(m.timeKeeper.SimulationTime()),
		Mission:    int64(m.timeKeeper.MissionTime()),
		Epoch:      int64(epoch),
		Zulu:       int64(zulu),
		EpochText:  epoch.String(),
		ZuluText:   zulu.String(),
	})
}

func (m *Monitor) listEvents(w http.ResponseWriter, _ *http.Request) {
	if !m.hasEventSourceOr404(w) {
		return
	}

	writeJSON(w, m.events.Events())
}

func (m *Monitor) eventDetail(w http.ResponseWriter, r *http.Request) {
	if !m.hasEventSourceOr404(w) {
		return
	}

	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	rec, err := m.events.Event(sched.EventID(id))
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	serializer := goseth.NewSerializer()
	serializer.SetRoot(&rec)
	serializer.SetMaxDepth(1)
	err = serializer.Serialize(w)

	dieOnErr(err)
}

type nextRsp struct {
	Simulation    int64 `json:"simulation"`
	HasSimulation bool  `json:"has_simulation"`
	Zulu          int64 `json:"zulu"`
	HasZulu       bool  `json:"has_zulu"`
}

func (m *Monitor) next(w http.ResponseWriter, _ *http.Request) {
	if !m.hasEventSourceOr404(w) {
		return
	}

	simTime, simOK := m.events.NextScheduledEventTime()
	zuluTime, zuluOK := m.events.NextZuluEventTime()

	writeJSON(w, nextRsp{
		Simulation:    int64(simTime),
		HasSimulation: simOK,
		Zulu:          int64(zuluTime),
		HasZulu:       zuluOK,
	})
}

type currentRsp struct {
	EventID sched.EventID `json:"event_id"`
}

func (m *Monitor) current(w http.ResponseWriter, _ *http.Request) {
	if !m.hasEventSourceOr404(w) {
		return
	}

	writeJSON(w, currentRsp{EventID: m.events.CurrentEventID()})
}

type firingCount struct {
	Name  string `json:"name"`
	Count uint64 `json:"count"`
}

func (m *Monitor) listFirings(w http.ResponseWriter, _ *http.Request) {
	if m.counter == nil {
		http.Error(w, "firings are not counted", http.StatusNotFound)
		return
	}

	counts := []firingCount{}
	for _, name := range m.counter.Names() {
		counts = append(counts, firingCount{
			Name:  name,
			Count: m.counter.Count(name),
		})
	}

	writeJSON(w, counts)
}

func (m *Monitor) hasEventSourceOr404(w http.ResponseWriter) bool {
	if m.events == nil {
		http.Error(w, "no scheduler", http.StatusNotFound)
		return false
	}

	return true
}

type progressRsp struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	StartTime time.Time `json:"start_time"`
	Total     uint64    `json:"total"`
	Finished  uint64    `json:"finished"`
}

func (m *Monitor) listProgressBars(w http.ResponseWriter, _ *http.Request) {
	m.progressBarsLock.Lock()
	bars := make([]progressRsp, 0, len(m.progressBars))
	for _, b := range m.progressBars {
		b.Lock()
		bars = append(bars, progressRsp{
			ID:        b.ID,
			Name:      b.Name,
			StartTime: b.StartTime,
			Total:     b.Total,
			Finished:  b.Finished,
		})
		b.Unlock()
	}
	m.progressBarsLock.Unlock()

	writeJSON(w, bars)
}

type resourceRsp struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemorySize uint64  `json:"memory_size"`
}

func (m *Monitor) listResources(w http.ResponseWriter, _ *http.Request) {
	pid := os.Getpid()
	process, err := process.NewProcess(int32(pid))
	dieOnErr(err)

	cpuPercent, err := process.CPUPercent()
	dieOnErr(err)

	memorySize, err := process.MemoryInfo()
	dieOnErr(err)

	writeJSON(w, resourceRsp{
		CPUPercent: cpuPercent,
		MemorySize: memorySize.RSS,
	})
}

func (m *Monitor) collectProfile(w http.ResponseWriter, _ *http.Request) {
	buf := bytes.NewBuffer(nil)

	err := pprof.StartCPUProfile(buf)
	if err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}

	time.Sleep(time.Second)

	pprof.StopCPUProfile()

	prof, err := profile.ParseData(buf.Bytes())
	dieOnErr(err)

	writeJSON(w, prof)
}

func writeJSON(w http.ResponseWriter, v any) {
	data, err := json.Marshal(v)
	dieOnErr(err)

	w.Header().Set("Content-Type", "application/json")

	_, err = w.Write(data)
	dieOnErr(err)
}

func dieOnErr(err error) {
	if err != nil {
		log.Panic(err)
	}
}
