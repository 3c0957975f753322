package pipeline

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/banshee-data/sonarmap/internal/sonar"
)

// BeamSummary counts one channel's chunks.
type BeamSummary struct {
	Pings     int `json:"pings"`
	Chunks    int `json:"chunks"`
	Picked    int `json:"picked"`
	Rectified int `json:"rectified"`
	Skipped   int `json:"skipped"`
	NullPicks int `json:"null_picks"`
}

// Summary reports the outcome of a run.
type Summary struct {
	RunID      string                  `json:"run_id,omitempty"`
	Projection string                  `json:"projection"`
	EPSG       int                     `json:"epsg"`
	Dropped    int                     `json:"dropped_records"`
	Beams      map[string]*BeamSummary `json:"beams"`

	Reconciled int `json:"reconciled_pings"`
	Rejected   int `json:"rejected_picks"`
	Fallback   int `json:"instrument_fallbacks"`
	Filled     int `json:"interpolated_pings"`

	Mosaics        []string `json:"mosaics,omitempty"`
	SkippedMosaics []string `json:"skipped_mosaics,omitempty"`
	FailedChannels []string `json:"failed_channels,omitempty"`

	ChunkErrors   []*ChunkError   `json:"-"`
	ChannelErrors []*ChannelError `json:"-"`

	Elapsed    time.Duration            `json:"elapsed_ns"`
	StageTimes map[string]time.Duration `json:"stage_times_ns,omitempty"` // summed across workers
}

func newSummary() *Summary {
	return &Summary{Beams: make(map[string]*BeamSummary)}
}

func (s *Summary) beam(b sonar.Beam) *BeamSummary {
	bs, ok := s.Beams[b.String()]
	if !ok {
		bs = &BeamSummary{}
		s.Beams[b.String()] = bs
	}
	return bs
}

// Beam returns the counts for a channel; zero when it had no pings.
func (s *Summary) Beam(b sonar.Beam) BeamSummary {
	if bs, ok := s.Beams[b.String()]; ok {
		return *bs
	}
	return BeamSummary{}
}

func (s *Summary) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "run %s in %v, %s\n", orDash(s.RunID), s.Elapsed.Round(time.Millisecond), s.Projection)
	names := make([]string, 0, len(s.Beams))
	for name := range s.Beams {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		bs := s.Beams[name]
		fmt.Fprintf(&b, "  %-9s %6d pings  %4d chunks  %4d rectified  %4d skipped\n",
			name, bs.Pings, bs.Chunks, bs.Rectified, bs.Skipped)
	}
	fmt.Fprintf(&b, "  depth: %d pings, %d rejected, %d fallback, %d interpolated\n",
		s.Reconciled, s.Rejected, s.Fallback, s.Filled)
	for _, m := range s.Mosaics {
		fmt.Fprintf(&b, "  mosaic: %s\n", m)
	}
	if len(s.SkippedMosaics) > 0 {
		fmt.Fprintf(&b, "  skipped mosaics: %s\n", strings.Join(s.SkippedMosaics, ", "))
	}
	if len(s.FailedChannels) > 0 {
		fmt.Fprintf(&b, "  failed channels: %s\n", strings.Join(s.FailedChannels, ", "))
	}
	if len(s.StageTimes) > 0 {
		stages := make([]string, 0, len(s.StageTimes))
		for name := range s.StageTimes {
			stages = append(stages, name)
		}
		sort.Strings(stages)
		for i, name := range stages {
			stages[i] = fmt.Sprintf("%s %v", name, s.StageTimes[name].Round(time.Millisecond))
		}
		fmt.Fprintf(&b, "  stage time: %s\n", strings.Join(stages, ", "))
	}
	return b.String()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
