package storage

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/san-kum/morphcloud/internal/engine"
	"github.com/san-kum/morphcloud/internal/gesture"
)

const (
	metadataFile  = "metadata.json"
	framesFile    = "frames.jsonl"
	telemetryFile = "telemetry.csv"
)

// ErrClosed indicates a write to a closed session.
var ErrClosed = errors.New("storage: session closed")

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

// Dir returns the directory holding session id.
func (s *Store) Dir(id string) string {
	return filepath.Join(s.baseDir, id)
}

type SessionMetadata struct {
	ID        string             `json:"id"`
	Started   time.Time          `json:"started"`
	Ended     time.Time          `json:"ended,omitempty"`
	Source    string             `json:"source"`
	Shape     string             `json:"shape"`
	Particles int                `json:"particles"`
	Seed      int64              `json:"seed"`
	Frames    int                `json:"frames"`
	Ticks     int                `json:"ticks"`
	Metrics   map[string]float64 `json:"metrics,omitempty"`
}

// Duration is the recorded wall time.
func (m SessionMetadata) Duration() time.Duration {
	if m.Ended.IsZero() {
		return 0
	}
	return m.Ended.Sub(m.Started)
}

// FrameRecord is one recognizer result, offset from the session start.
type FrameRecord struct {
	T     float64        `json:"t"`
	Hands []gesture.Hand `json:"hands"`
}

var telemetryHeader = []string{
	"time", "hands", "expansion", "yaw", "pitch",
	"target_expansion", "raw_expansion", "pinch_strength", "hand_distance", "frame_ms",
}

// Session records one run. RecordFrame and OnTick may be called from
// different goroutines.
type Session struct {
	mu   sync.Mutex
	dir  string
	meta SessionMetadata
	now  func() time.Time

	frames    *os.File
	framesW   *bufio.Writer
	enc       *json.Encoder
	telemetry *os.File
	csv       *csv.Writer
	closed    bool
}

// Create opens a new session directory. ID and Started are filled in.
func (s *Store) Create(meta SessionMetadata) (*Session, error) {
	if err := s.Init(); err != nil {
		return nil, err
	}

	meta.Started = time.Now()
	base := fmt.Sprintf("%s_%s", meta.Shape, meta.Started.Format("20060102-150405"))
	id := base
	for i := 2; ; i++ {
		if _, err := os.Stat(s.Dir(id)); os.IsNotExist(err) {
			break
		}
		id = fmt.Sprintf("%s-%d", base, i)
	}
	meta.ID = id

	dir := s.Dir(id)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	frames, err := os.Create(filepath.Join(dir, framesFile))
	if err != nil {
		return nil, err
	}
	telemetry, err := os.Create(filepath.Join(dir, telemetryFile))
	if err != nil {
		frames.Close()
		return nil, err
	}

	fw := bufio.NewWriter(frames)
	ss := &Session{
		dir:       dir,
		meta:      meta,
		now:       time.Now,
		frames:    frames,
		framesW:   fw,
		enc:       json.NewEncoder(fw),
		telemetry: telemetry,
		csv:       csv.NewWriter(telemetry),
	}
	if err := ss.csv.Write(telemetryHeader); err != nil {
		ss.Close(nil)
		return nil, err
	}
	if err := ss.writeMetadata(); err != nil {
		ss.Close(nil)
		return nil, err
	}
	return ss, nil
}

// ID returns the session id.
func (ss *Session) ID() string { return ss.meta.ID }

// RecordFrame appends one recognizer result.
func (ss *Session) RecordFrame(r gesture.Result) error {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	if ss.closed {
		return ErrClosed
	}

	at := r.At
	if at.IsZero() {
		at = ss.now()
	}
	rec := FrameRecord{T: at.Sub(ss.meta.Started).Seconds(), Hands: r.Hands}
	if rec.Hands == nil {
		rec.Hands = []gesture.Hand{}
	}
	if err := ss.enc.Encode(rec); err != nil {
		return err
	}
	ss.meta.Frames++
	return nil
}

// OnTick appends one telemetry row. It satisfies engine.Observer.
func (ss *Session) OnTick(st engine.Stats) {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	if ss.closed {
		return
	}

	g := st.Gesture
	row := []string{
		fmtFloat(st.Elapsed),
		strconv.Itoa(g.Hands),
		fmtFloat(float64(st.Expansion)),
		fmtFloat(float64(st.Yaw)),
		fmtFloat(float64(st.Pitch)),
		fmtFloat(g.Target.Expansion),
		fmtFloat(g.Raw.Expansion),
		fmtFloat(g.PinchStrength),
		fmtFloat(g.HandDistance),
		fmtFloat(float64(st.Dt.Microseconds()) / 1000),
	}
	if err := ss.csv.Write(row); err == nil {
		ss.meta.Ticks++
	}
}

func fmtFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}

// Close flushes both streams and writes the final metadata.
func (ss *Session) Close(metrics map[string]float64) error {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	if ss.closed {
		return nil
	}
	ss.closed = true
	ss.meta.Ended = ss.now()
	ss.meta.Metrics = metrics

	ss.csv.Flush()
	errs := []error{
		ss.csv.Error(),
		ss.framesW.Flush(),
		ss.frames.Close(),
		ss.telemetry.Close(),
		ss.writeMetadata(),
	}
	return errors.Join(errs...)
}

func (ss *Session) writeMetadata() error {
	f, err := os.Create(filepath.Join(ss.dir, metadataFile))
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(ss.meta)
}

// List returns every readable session, oldest first.
func (s *Store) List() ([]SessionMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []SessionMetadata{}, nil
		}
		return nil, err
	}

	sessions := make([]SessionMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		sessions = append(sessions, *meta)
	}

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].Started.Before(sessions[j].Started)
	})
	return sessions, nil
}

func (s *Store) Load(id string) (*SessionMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.Dir(id), metadataFile))
	if err != nil {
		return nil, err
	}

	var meta SessionMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// FramesPath returns the frames file of session id.
func (s *Store) FramesPath(id string) string {
	return filepath.Join(s.Dir(id), framesFile)
}

// LoadFrames reads every frame record of session id.
func (s *Store) LoadFrames(id string) ([]FrameRecord, error) {
	f, err := os.Open(s.FramesPath(id))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []FrameRecord
	err = ScanFrames(f, func(rec FrameRecord) error {
		out = append(out, rec)
		return nil
	})
	return out, err
}

// ScanFrames decodes frame records one per line. Undecodable lines are
// skipped; fn returning an error stops the scan.
func ScanFrames(r io.Reader, fn func(FrameRecord) error) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec FrameRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			continue
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
	return sc.Err()
}

// Telemetry is a column view of telemetry.csv.
type Telemetry struct {
	Columns []string
	Times   []float64
	Series  map[string][]float64
}

// Get returns the series for column name, or nil.
func (t *Telemetry) Get(name string) []float64 {
	return t.Series[name]
}

func (s *Store) LoadTelemetry(id string) (*Telemetry, error) {
	file, err := os.Open(filepath.Join(s.Dir(id), telemetryFile))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}

	tel := &Telemetry{Series: make(map[string][]float64)}
	if len(records) == 0 {
		return tel, nil
	}
	tel.Columns = records[0]

	for _, record := range records[1:] {
		if len(record) != len(tel.Columns) {
			continue
		}
		vals := make([]float64, len(record))
		ok := true
		for j, field := range record {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				ok = false
				break
			}
			vals[j] = v
		}
		if !ok {
			continue
		}
		tel.Times = append(tel.Times, vals[0])
		for j, name := range tel.Columns[1:] {
			tel.Series[name] = append(tel.Series[name], vals[j+1])
		}
	}
	return tel, nil
}
