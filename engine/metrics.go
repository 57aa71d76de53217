package engine

import (
	"fmt"
	"io"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/ftahirops/airtop/model"
)

// MetricsStore holds the latest applied update for exporters.
// All methods are safe on a nil store.
type MetricsStore struct {
	mu      sync.RWMutex
	upd     *model.Update
	banner  *model.Banner
	ts      time.Time
	batches uint64
	stales  uint64
}

// NewMetricsStore creates a new store.
func NewMetricsStore() *MetricsStore {
	return &MetricsStore{}
}

// Update stores the latest sample.
func (s *MetricsStore) Update(upd *model.Update, banner *model.Banner) {
	if s == nil {
		return
	}
	s.mu.Lock()
	if upd != nil && upd != s.upd {
		s.batches++
	}
	s.upd = upd
	s.banner = banner
	s.ts = time.Now()
	s.mu.Unlock()
}

func (s *MetricsStore) stale() {
	if s == nil {
		return
	}
	s.mu.Lock()
	s.stales++
	s.mu.Unlock()
}

// Counters returns applied and stale batch counts.
func (s *MetricsStore) Counters() (batches, stales uint64) {
	if s == nil {
		return 0, 0
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.batches, s.stales
}

// Handler exposes Prometheus metrics for the latest sample.
func (s *MetricsStore) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s == nil {
			http.Error(w, "# metrics disabled", http.StatusServiceUnavailable)
			return
		}
		s.mu.RLock()
		upd, banner, ts := s.upd, s.banner, s.ts
		batches, stales := s.batches, s.stales
		s.mu.RUnlock()
		if upd == nil && banner == nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("# no data yet\n"))
			return
		}
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		writePrometheus(w, upd, banner, ts, batches, stales)
	})
}

func writePrometheus(w io.Writer, upd *model.Update, banner *model.Banner, ts time.Time, batches, stales uint64) {
	write := func(format string, args ...interface{}) {
		_, _ = fmt.Fprintf(w, format, args...)
	}

	write("# TYPE airtop_up gauge\n")
	write("airtop_up 1\n")
	write("# TYPE airtop_batches_total counter\n")
	write("airtop_batches_total %d\n", batches)
	write("# TYPE airtop_stale_batches_total counter\n")
	write("airtop_stale_batches_total %d\n", stales)
	write("# TYPE airtop_last_update_seconds gauge\n")
	write("airtop_last_update_seconds %d\n", ts.Unix())

	if banner != nil {
		write("# TYPE airtop_banner_value gauge\n")
		write("airtop_banner_value{state=%q} %d\n", banner.State, banner.MainValue)
	}
	if upd == nil {
		return
	}

	write("# TYPE airtop_sections gauge\n")
	write("airtop_sections{scale=%q} %d\n", upd.Scale, len(upd.Sections))
	write("# TYPE airtop_items gauge\n")
	write("airtop_items{scale=%q} %d\n", upd.Scale, upd.ItemCount)

	states := make(map[model.BalanceState]int)
	for _, sec := range upd.Sections {
		for _, it := range sec.Items {
			states[it.State]++
		}
	}
	keys := make([]model.BalanceState, 0, len(states))
	for k := range states {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	write("# TYPE airtop_items_by_state gauge\n")
	for _, k := range keys {
		write("airtop_items_by_state{state=%q} %d\n", k, states[k])
	}
}
