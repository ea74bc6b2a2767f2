// Package metrics computes arrival-time statistics from a run's event log.
package metrics

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/akshitanchan/fpp-arrivals/internal/domain"
	"github.com/akshitanchan/fpp-arrivals/internal/eventlog"
)

// DefaultBins is the number of histogram bins over the time axis.
const DefaultBins = 20

// Bin is one histogram bin of arrival counts.
type Bin struct {
	Start    float64 `json:"start"`
	End      float64 `json:"end"`
	Count    int     `json:"count"`
	Expected float64 `json:"expected,omitempty"` // expected count under the step rates, when known
}

// ArrivalMetrics holds statistics of one run's arrival times.
type ArrivalMetrics struct {
	Scenario    string `json:"scenario"`
	Seed        int64  `json:"seed"`
	Method      string `json:"method"`
	TotalPulses int    `json:"total_pulses"`

	// Counts.
	Arrivals      int `json:"arrivals"`
	DistinctTimes int `json:"distinct_times"`
	Duplicates    int `json:"duplicates"` // arrivals sharing a time with an earlier arrival

	// Sampler rounds.
	Rounds   int `json:"rounds"`
	PoolSize int `json:"pool_size"` // candidates accumulated before downsampling

	// Timing.
	FirstArrival     float64 `json:"first_arrival"`
	LastArrival      float64 `json:"last_arrival"`
	MeanInterArrival float64 `json:"mean_inter_arrival"`
	StdInterArrival  float64 `json:"std_inter_arrival"`
	MeanRate         float64 `json:"mean_rate"` // arrivals per unit time over the axis
	Sorted           bool    `json:"sorted"`

	Bins []Bin `json:"bins"`

	// Raw data for plotting.
	InterArrivals []float64 `json:"inter_arrivals,omitempty"`

	axisEnd float64
}

// ComputeFromLog reads an event log and computes metrics.
func ComputeFromLog(logPath string) (*ArrivalMetrics, error) {
	events, err := eventlog.ReadFile(logPath)
	if err != nil {
		return nil, err
	}
	return ComputeFromEvents(events), nil
}

// ComputeFromEvents computes metrics from events in log order.
func ComputeFromEvents(events []*domain.Event) *ArrivalMetrics {
	m := &ArrivalMetrics{}
	var times []float64
	for _, e := range events {
		switch e.Type {
		case domain.EventSimStart:
			if e.Run != nil {
				m.Scenario = e.Run.Scenario
				m.Seed = e.Run.Seed
				m.Method = e.Run.Method
				m.TotalPulses = e.Run.TotalPulses
				m.axisEnd = e.Run.End
			}
		case domain.EventRound:
			if e.Round != nil {
				m.Rounds++
				m.PoolSize = e.Round.PoolSize
			}
		case domain.EventArrival:
			if e.Arrival != nil {
				times = append(times, e.Arrival.Time)
			}
		}
	}

	m.Arrivals = len(times)
	m.Sorted = sort.Float64sAreSorted(times)
	if len(times) == 0 {
		return m
	}

	sorted := times
	if !m.Sorted {
		sorted = append([]float64(nil), times...)
		sort.Float64s(sorted)
	}

	m.DistinctTimes = 1
	for i := 1; i < len(sorted); i++ {
		if sorted[i] != sorted[i-1] {
			m.DistinctTimes++
		}
	}
	m.Duplicates = m.Arrivals - m.DistinctTimes
	m.FirstArrival = sorted[0]
	m.LastArrival = sorted[len(sorted)-1]

	if len(sorted) > 1 {
		m.InterArrivals = make([]float64, len(sorted)-1)
		floats.SubTo(m.InterArrivals, sorted[1:], sorted[:len(sorted)-1])
		m.MeanInterArrival, m.StdInterArrival = stat.MeanStdDev(m.InterArrivals, nil)
		if math.IsNaN(m.StdInterArrival) {
			m.StdInterArrival = 0
		}
	}

	lo, hi := 0.0, m.axisEnd
	if !(hi > 0) {
		lo, hi = m.FirstArrival, m.LastArrival
	}
	if hi > lo {
		m.MeanRate = float64(m.Arrivals) / (hi - lo)
		m.Bins = histogram(sorted, lo, hi, DefaultBins)
	}
	return m
}

// histogram counts sorted values into equal bins over [lo, hi]. The last
// bin is closed so that arrivals at the final axis sample are counted.
func histogram(sorted []float64, lo, hi float64, n int) []Bin {
	dividers := floats.Span(make([]float64, n+1), lo, hi)
	edges := append([]float64(nil), dividers...)
	dividers[n] = math.Nextafter(hi, math.Inf(1))

	inRange := sorted
	for len(inRange) > 0 && inRange[0] < lo {
		inRange = inRange[1:]
	}
	for len(inRange) > 0 && inRange[len(inRange)-1] > hi {
		inRange = inRange[:len(inRange)-1]
	}
	counts := stat.Histogram(nil, dividers, inRange, nil)

	bins := make([]Bin, n)
	for i := range bins {
		bins[i] = Bin{Start: edges[i], End: edges[i+1], Count: int(counts[i])}
	}
	return bins
}

// AttachExpected fills in the expected count of every bin, given the
// per-step acceptance probabilities the sampler used over times. The
// expected counts are scaled to the number of arrivals.
func (m *ArrivalMetrics) AttachExpected(times, probs []float64) {
	if len(m.Bins) == 0 || len(times) != len(probs) {
		return
	}
	total := floats.Sum(probs)
	if total == 0 {
		return
	}
	mass := make([]float64, len(m.Bins))
	for i, t := range times {
		for b := range m.Bins {
			last := b == len(m.Bins)-1
			if t >= m.Bins[b].Start && (t < m.Bins[b].End || last && t <= m.Bins[b].End) {
				mass[b] += probs[i]
				break
			}
		}
	}
	for b := range m.Bins {
		m.Bins[b].Expected = mass[b] / total * float64(m.Arrivals)
	}
}
