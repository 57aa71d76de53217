package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"github.com/ftahirops/airtop/model"
)

// recordFrame is one batch or average written to disk.
type recordFrame struct {
	Time     time.Time       `json:"time"`
	Scale    model.TimeScale `json:"scale"`
	Readings []model.Reading `json:"readings,omitempty"`
	Average  *int            `json:"average,omitempty"`
	Err      string          `json:"err,omitempty"`
}

// Recorder wraps a source factory and records every batch and average
// as JSON lines.
type Recorder struct {
	inner  SourceFactory
	writer *json.Encoder
	mu     sync.Mutex
}

// NewRecorder creates a recorder that writes JSON lines to w.
func NewRecorder(inner SourceFactory, w io.Writer) *Recorder {
	return &Recorder{inner: inner, writer: json.NewEncoder(w)}
}

// Open implements SourceFactory.
func (r *Recorder) Open(scale model.TimeScale) (Source, error) {
	src, err := r.inner(scale)
	if err != nil {
		return nil, err
	}
	return &recordingSource{Source: src, rec: r}, nil
}

func (r *Recorder) write(f recordFrame) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.writer.Encode(f); err != nil {
		log.Printf("airtop: record frame: %v", err)
	}
}

type recordingSource struct {
	Source
	rec *Recorder
}

func (s *recordingSource) ReadAverage(ctx context.Context, cursor time.Time) (int, error) {
	v, err := s.Source.ReadAverage(ctx, cursor)
	if err == nil {
		s.rec.write(recordFrame{Time: cursor, Scale: s.Scale(), Average: &v})
	}
	return v, err
}

func (s *recordingSource) Subscribe(ctx context.Context) <-chan model.Batch {
	in := s.Source.Subscribe(ctx)
	out := make(chan model.Batch)
	go func() {
		defer close(out)
		for b := range in {
			f := recordFrame{Time: time.Now(), Scale: b.Scale, Readings: b.Readings}
			if b.Err != nil {
				f.Err = b.Err.Error()
			}
			s.rec.write(f)
			if !SendBatch(ctx, out, b) {
				return
			}
		}
	}()
	return out
}

// Player replays recorded frames. Each scale replays only its own frames.
type Player struct {
	frames []recordFrame
	// Interval paces replayed batches; zero replays them back to back.
	Interval time.Duration
}

// NewPlayer creates a player from a recorded file (JSON lines).
// Frames that do not match the frame schema are skipped; broken JSON is an error.
func NewPlayer(r io.Reader) (*Player, error) {
	dec := json.NewDecoder(r)
	var frames []recordFrame
	for {
		var frame recordFrame
		if err := dec.Decode(&frame); err != nil {
			if err == io.EOF {
				break
			}
			var syn *json.SyntaxError
			if errors.As(err, &syn) {
				return nil, fmt.Errorf("decode recording: %w", err)
			}
			continue
		}
		frames = append(frames, frame)
	}
	return &Player{frames: frames}, nil
}

// Len returns the number of frames available.
func (p *Player) Len() int {
	return len(p.frames)
}

// Open implements SourceFactory.
func (p *Player) Open(scale model.TimeScale) (Source, error) {
	return &playerSource{p: p, scale: scale}, nil
}

type playerSource struct {
	p     *Player
	scale model.TimeScale
}

func (s *playerSource) Scale() model.TimeScale { return s.scale }

// ReadAverage returns the last recorded average for the scale at or before cursor.
func (s *playerSource) ReadAverage(ctx context.Context, cursor time.Time) (int, error) {
	var last *int
	for i := range s.p.frames {
		f := &s.p.frames[i]
		if f.Scale != s.scale || f.Average == nil {
			continue
		}
		if !cursor.IsZero() && f.Time.After(cursor) {
			continue
		}
		last = f.Average
	}
	if last == nil {
		return 0, fmt.Errorf("no recorded average for %s", s.scale)
	}
	return *last, nil
}

func (s *playerSource) Subscribe(ctx context.Context) <-chan model.Batch {
	out := make(chan model.Batch)
	go func() {
		defer close(out)
		for _, f := range s.p.frames {
			if f.Scale != s.scale || f.Average != nil {
				continue
			}
			b := model.Batch{Scale: f.Scale, Readings: f.Readings}
			if f.Err != "" {
				b.Err = errors.New(f.Err)
			}
			if !SendBatch(ctx, out, b) {
				return
			}
			if s.p.Interval > 0 {
				select {
				case <-time.After(s.p.Interval):
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}
