// Package trace records per-frame allocator statistics as zstd-compressed
// JSON lines and reads them back for analysis.
package trace

import (
	"bufio"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/klauspost/compress/zstd"

	"github.com/Faultbox/surface-atlas/internal/atlas"
)

// ErrClosed is returned when writing to a closed Writer.
var ErrClosed = errors.New("trace: writer closed")

// Writer appends one JSON line per frame to a zstd stream.
type Writer struct {
	mu     sync.Mutex
	f      *os.File
	enc    *zstd.Encoder
	w      *bufio.Writer
	frames int
}

// Create opens path for writing, truncating any previous trace.
func Create(path string) (*Writer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return &Writer{f: f, enc: enc, w: bufio.NewWriterSize(enc, 64*1024)}, nil
}

// Write appends one frame. Lines stay buffered until Flush or Close.
func (w *Writer) Write(s atlas.FrameStats) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.w == nil {
		return ErrClosed
	}

	b, err := json.Marshal(s)
	if err != nil {
		return err
	}
	if _, err := w.w.Write(b); err != nil {
		return err
	}
	if err := w.w.WriteByte('\n'); err != nil {
		return err
	}
	w.frames++
	return nil
}

// Frames returns the number of frames written so far.
func (w *Writer) Frames() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.frames
}

// Flush pushes buffered lines through the encoder.
func (w *Writer) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.w == nil {
		return ErrClosed
	}
	if err := w.w.Flush(); err != nil {
		return err
	}
	return w.enc.Flush()
}

// Close finishes the zstd frame and closes the file. Closing twice is a no-op.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.w == nil {
		return nil
	}
	errFlush := w.w.Flush()
	errEnc := w.enc.Close()
	errFile := w.f.Close()
	w.w, w.enc, w.f = nil, nil, nil
	return errors.Join(errFlush, errEnc, errFile)
}

// Reader decodes a trace written by Writer.
type Reader struct {
	dec  *zstd.Decoder
	scan *bufio.Scanner
}

// NewReader wraps a compressed trace stream.
func NewReader(r io.Reader) (*Reader, error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, err
	}
	scan := bufio.NewScanner(dec)
	scan.Buffer(make([]byte, 0, 4096), 1<<20)
	return &Reader{dec: dec, scan: scan}, nil
}

// Next returns the next frame, or io.EOF at the end of the trace.
func (r *Reader) Next() (atlas.FrameStats, error) {
	var s atlas.FrameStats
	for r.scan.Scan() {
		line := r.scan.Bytes()
		if len(line) == 0 {
			continue
		}
		err := json.Unmarshal(line, &s)
		return s, err
	}
	if err := r.scan.Err(); err != nil {
		return s, err
	}
	return s, io.EOF
}

// Close releases the decoder.
func (r *Reader) Close() {
	r.dec.Close()
}

// ReadFile loads every frame of a trace file.
func ReadFile(path string) ([]atlas.FrameStats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r, err := NewReader(f)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	var out []atlas.FrameStats
	for {
		s, err := r.Next()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, s)
	}
}

// Summary aggregates a run.
type Summary struct {
	Frames         int     `json:"frames"`
	Rebuilds       int     `json:"rebuilds"`
	Defragments    int     `json:"defragments"`
	Inserted       int     `json:"inserted"`
	Freed          int     `json:"freed"`
	InsertFailures int     `json:"insert_failures"`
	Evicted        int     `json:"evicted"`
	MaxDirty       int     `json:"max_dirty"`
	MeanOccupancy  float64 `json:"mean_occupancy"`
	PeakOccupancy  float64 `json:"peak_occupancy"`
	PeakCapacity   int     `json:"peak_capacity_bytes"`
	NotReadyFrames int     `json:"not_ready_frames"`
	// DroppedReadbacks counts counter readbacks that never delivered a sample.
	DroppedReadbacks int `json:"dropped_readbacks"`
}

// Add folds one frame into the summary.
func (s *Summary) Add(f atlas.FrameStats) {
	s.MeanOccupancy = (s.MeanOccupancy*float64(s.Frames) + f.Occupancy) / float64(s.Frames+1)
	s.Frames++
	if f.Rebuilt {
		s.Rebuilds++
	}
	if f.Defragmented {
		s.Defragments++
	}
	s.Inserted += f.Inserted
	s.Freed += f.Freed
	s.InsertFailures += f.InsertFailures
	s.Evicted += f.Evicted
	s.MaxDirty = max(s.MaxDirty, f.Dirty)
	s.PeakOccupancy = max(s.PeakOccupancy, f.Occupancy)
	s.PeakCapacity = max(s.PeakCapacity, f.CapacityBytes)
	if f.NotReady {
		s.NotReadyFrames++
	}
	s.DroppedReadbacks += f.ReadbacksDropped
}

// Summarize folds a whole trace.
func Summarize(frames []atlas.FrameStats) Summary {
	var s Summary
	for _, f := range frames {
		s.Add(f)
	}
	return s
}
