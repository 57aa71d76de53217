package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ftahirops/airtop/model"
)

func drain(ch <-chan model.Batch) []model.Batch {
	var out []model.Batch
	for b := range ch {
		out = append(out, b)
	}
	return out
}

func TestRecorderPlayerRoundTrip(t *testing.T) {
	src := &fakeSource{
		scale: model.ScaleDays,
		avg:   7,
		batches: []model.Batch{
			{Scale: model.ScaleDays, Readings: []model.Reading{
				{Timestamp: at(0), Value: model.IntPtr(4), MaxValue: 10},
				{Timestamp: at(1), MaxValue: 10},
			}},
			{Scale: model.ScaleDays, Err: errors.New("upstream down")},
		},
	}
	var buf bytes.Buffer
	rec := NewRecorder(func(model.TimeScale) (Source, error) { return src, nil }, &buf)

	s, err := rec.Open(model.ScaleDays)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	ctx := context.Background()
	cursor := time.Now()
	if v, err := s.ReadAverage(ctx, cursor); err != nil || v != 7 {
		t.Fatalf("ReadAverage = %d, %v", v, err)
	}
	if got := drain(s.Subscribe(ctx)); len(got) != 2 {
		t.Fatalf("recorded subscription delivered %d batches, want 2", len(got))
	}

	player, err := NewPlayer(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("NewPlayer: %v", err)
	}
	if player.Len() != 3 {
		t.Fatalf("frames = %d, want 3", player.Len())
	}

	ps, _ := player.Open(model.ScaleDays)
	if v, err := ps.ReadAverage(ctx, cursor.Add(time.Second)); err != nil || v != 7 {
		t.Errorf("replayed average = %d, %v", v, err)
	}
	batches := drain(ps.Subscribe(ctx))
	if len(batches) != 2 {
		t.Fatalf("replayed %d batches, want 2", len(batches))
	}
	rs := batches[0].Readings
	if len(rs) != 2 || rs[0].Value == nil || *rs[0].Value != 4 || rs[1].Value != nil {
		t.Errorf("replayed readings = %+v", rs)
	}
	if !rs[0].Timestamp.Equal(at(0)) {
		t.Errorf("timestamp = %v, want %v", rs[0].Timestamp, at(0))
	}
	if batches[1].Err == nil || batches[1].Err.Error() != "upstream down" {
		t.Errorf("replayed error = %v", batches[1].Err)
	}

	// Other scales replay nothing.
	hs, _ := player.Open(model.ScaleHours)
	if got := drain(hs.Subscribe(ctx)); len(got) != 0 {
		t.Errorf("hours replayed %d batches, want 0", len(got))
	}
	if _, err := hs.ReadAverage(ctx, cursor); err == nil {
		t.Error("hours average: expected error")
	}
}

func TestPlayerSkipsForeignFrames(t *testing.T) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	_ = enc.Encode(map[string]interface{}{"scale": "fortnights"})
	_ = enc.Encode(recordFrame{Time: time.Unix(1000, 0), Scale: model.ScaleMonths})

	player, err := NewPlayer(&buf)
	if err != nil {
		t.Fatalf("NewPlayer: %v", err)
	}
	if player.Len() != 1 {
		t.Errorf("frames = %d, want 1", player.Len())
	}
}

func TestPlayerRejectsBrokenJSON(t *testing.T) {
	if _, err := NewPlayer(strings.NewReader("{\"scale\": \"days\"\n{oops")); err == nil {
		t.Error("expected error for broken JSON")
	}
}

func TestPlayerStopsOnCancel(t *testing.T) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for i := 0; i < 3; i++ {
		_ = enc.Encode(recordFrame{Time: time.Unix(int64(i), 0), Scale: model.ScaleHours})
	}
	player, err := NewPlayer(&buf)
	if err != nil {
		t.Fatalf("NewPlayer: %v", err)
	}
	player.Interval = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	ps, _ := player.Open(model.ScaleHours)
	ch := ps.Subscribe(ctx)
	if _, ok := <-ch; !ok {
		t.Fatal("expected first batch")
	}
	cancel()
	select {
	case _, ok := <-ch:
		if ok {
			t.Error("received a batch after cancel")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("subscription not closed after cancel")
	}
}
