// Package report generates the arrival-time report of a run
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/akshitanchan/fpp-arrivals/internal/metrics"
	"github.com/akshitanchan/fpp-arrivals/internal/scenario"
)

// Report generates and writes the report of a single run
type Report struct {
	config  *scenario.Config
	metrics *metrics.ArrivalMetrics
	outDir  string
}

// NewReport creates a report generator
func NewReport(cfg *scenario.Config, m *metrics.ArrivalMetrics, outDir string) *Report {
	return &Report{
		config:  cfg,
		metrics: m,
		outDir:  outDir,
	}
}

// Generate writes metrics.json, report.md and plots.txt into the output directory
func (r *Report) Generate() error {
	metricsPath := filepath.Join(r.outDir, "metrics.json")
	metricsData, err := json.MarshalIndent(r.metrics, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal metrics: %w", err)
	}
	if err := os.WriteFile(metricsPath, metricsData, 0644); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}

	reportPath := filepath.Join(r.outDir, "report.md")
	if err := os.WriteFile(reportPath, []byte(r.renderMarkdown()), 0644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	plotPath := filepath.Join(r.outDir, "plots.txt")
	if err := os.WriteFile(plotPath, []byte(r.renderPlots()), 0644); err != nil {
		return fmt.Errorf("write plots: %w", err)
	}

	return nil
}

func (r *Report) renderMarkdown() string {
	var sb strings.Builder
	c, m := r.config, r.metrics

	sb.WriteString("# Arrival Time Report\n\n")
	fmt.Fprintf(&sb, "**Scenario:** %s | **Seed:** %d | **Method:** %s\n\n", c.Name, c.Seed, c.Method)

	sb.WriteString("## Configuration\n\n")
	sb.WriteString("| Parameter | Value |\n")
	sb.WriteString("|-----------|-------|\n")
	fmt.Fprintf(&sb, "| Time axis | [0, %g], %d samples |\n", c.Duration, c.Steps)
	fmt.Fprintf(&sb, "| Total pulses | %d |\n", c.TotalPulses)
	fmt.Fprintf(&sb, "| Rate kind | %s |\n", c.Rate.Kind)
	if c.Rate.Oversample > 0 && !c.SameShape {
		fmt.Fprintf(&sb, "| Rate samples per step | %d |\n", c.Rate.Oversample)
	}
	fmt.Fprintf(&sb, "| Same shape | %t |\n", c.SameShape)
	averaging := c.Averaging
	if averaging == "" {
		averaging = "raw"
	}
	fmt.Fprintf(&sb, "| Averaging | %s |\n\n", averaging)

	sb.WriteString("## Arrival Statistics\n\n")
	if m == nil {
		sb.WriteString("No metrics available.\n")
		return sb.String()
	}
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	fmt.Fprintf(&sb, "| Arrivals | %d |\n", m.Arrivals)
	fmt.Fprintf(&sb, "| Distinct times | %d |\n", m.DistinctTimes)
	fmt.Fprintf(&sb, "| Duplicates | %d |\n", m.Duplicates)
	fmt.Fprintf(&sb, "| Sampling rounds | %d |\n", m.Rounds)
	fmt.Fprintf(&sb, "| Candidate pool | %d |\n", m.PoolSize)
	fmt.Fprintf(&sb, "| First arrival | %.4f |\n", m.FirstArrival)
	fmt.Fprintf(&sb, "| Last arrival | %.4f |\n", m.LastArrival)
	fmt.Fprintf(&sb, "| Mean inter-arrival | %.4f |\n", m.MeanInterArrival)
	fmt.Fprintf(&sb, "| Std inter-arrival | %.4f |\n", m.StdInterArrival)
	fmt.Fprintf(&sb, "| Mean rate | %.4f |\n\n", m.MeanRate)

	sb.WriteString("## Inter-arrival Distribution\n\n")
	sb.WriteString("| Percentile | Value |\n")
	sb.WriteString("|------------|-------|\n")
	for _, p := range []float64{0.25, 0.50, 0.75, 0.90, 0.99} {
		fmt.Fprintf(&sb, "| P%.0f | %.4f |\n", p*100, percentile(sortedCopy(m.InterArrivals), p))
	}
	sb.WriteString("\n")

	sb.WriteString("## Analysis\n\n")
	sb.WriteString(r.generateExplanation())

	return sb.String()
}

func (r *Report) generateExplanation() string {
	var sb strings.Builder
	m := r.metrics

	if m.Duplicates > 0 {
		fmt.Fprintf(&sb, "%d arrivals repeat an earlier arrival time. ", m.Duplicates)
		sb.WriteString("The sampler draws the final arrivals with replacement from its candidate pool, ")
		sb.WriteString("and later rounds can accept the same time samples again, so repeated times are expected.\n\n")
	}

	if m.Rounds > 1 {
		fmt.Fprintf(&sb, "The candidate pool needed **%d rounds** over the time axis to reach %d pulses. ",
			m.Rounds, m.TotalPulses)
		sb.WriteString("The rate process accepts fewer events per pass than were requested.\n\n")
	} else if m.Rounds == 1 {
		sb.WriteString("A single pass over the time axis produced enough candidates.\n\n")
	}

	if chi, ok := chiSquare(m.Bins); ok {
		fmt.Fprintf(&sb, "Observed bin counts against the expected counts under the step rates give chi-square = %.2f over %d bins.\n\n",
			chi, len(m.Bins))
	}

	switch r.config.Rate.Kind {
	case "constant":
		sb.WriteString("A constant rate should spread arrivals evenly; bin counts vary only by sampling noise.\n")
	case "lognormal", "gamma":
		sb.WriteString("A random intermittency realization concentrates arrivals where the realized rate is high.\n")
	case "burst":
		sb.WriteString("Burst windows raise the acceptance probability, so arrivals cluster inside them.\n")
	case "sinusoid":
		sb.WriteString("The modulated rate produces alternating dense and sparse stretches of arrivals.\n")
	}
	if r.config.Method == "cumsum" {
		sb.WriteString("\nThe cumulative-sum method is known to invert the rate: high rate spaces arrivals further apart.\n")
	}
	return sb.String()
}

func chiSquare(bins []metrics.Bin) (float64, bool) {
	var chi float64
	used := false
	for _, b := range bins {
		if b.Expected <= 0 {
			continue
		}
		d := float64(b.Count) - b.Expected
		chi += d * d / b.Expected
		used = true
	}
	return chi, used
}

func (r *Report) renderPlots() string {
	var sb strings.Builder
	if r.metrics == nil {
		return "  (no data)\n"
	}

	sb.WriteString("=== Arrivals per Bin (ASCII Histogram) ===\n\n")
	sb.WriteString(binHistogram(r.metrics.Bins))
	sb.WriteString("\n")

	sb.WriteString("=== Inter-arrival CDF (ASCII) ===\n\n")
	sb.WriteString(asciiCDF(sortedCopy(r.metrics.InterArrivals)))
	return sb.String()
}

// binHistogram draws observed counts, marking the expected count with '|'
func binHistogram(bins []metrics.Bin) string {
	if len(bins) == 0 {
		return "  (no data)\n"
	}

	maxCount := 0.0
	for _, b := range bins {
		maxCount = math.Max(maxCount, math.Max(float64(b.Count), b.Expected))
	}

	var sb strings.Builder
	barMax := 40
	for _, b := range bins {
		barLen, mark := 0, -1
		if maxCount > 0 {
			barLen = int(float64(b.Count) * float64(barMax) / maxCount)
			if b.Expected > 0 {
				mark = int(b.Expected * float64(barMax) / maxCount)
			}
		}
		bar := []rune(strings.Repeat("█", barLen) + strings.Repeat(" ", barMax-barLen+1))
		if mark >= 0 && mark < len(bar) {
			bar[mark] = '|'
		}
		fmt.Fprintf(&sb, "  %8.2f to %8.2f | %s (%d)\n", b.Start, b.End, strings.TrimRight(string(bar), " "), b.Count)
	}
	return sb.String()
}

// asciiCDF draws a simple text CDF
func asciiCDF(sorted []float64) string {
	if len(sorted) == 0 {
		return "  (no data)\n"
	}

	var sb strings.Builder
	steps := 10
	for i := 1; i <= steps; i++ {
		p := float64(i) / float64(steps)
		val := percentile(sorted, p)
		bar := strings.Repeat("▓", int(p*40))
		fmt.Fprintf(&sb, "  P%3.0f: %8.4f | %s\n", p*100, val, bar)
	}
	return sb.String()
}

func sortedCopy(values []float64) []float64 {
	out := append([]float64(nil), values...)
	sort.Float64s(out)
	return out
}

func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := p * float64(len(sorted)-1)
	lower := int(math.Floor(idx))
	upper := int(math.Ceil(idx))
	if lower == upper || upper >= len(sorted) {
		return sorted[lower]
	}
	frac := idx - float64(lower)
	return sorted[lower]*(1-frac) + sorted[upper]*frac
}

// PrintSummary writes a brief summary of one run
func PrintSummary(w io.Writer, cfg *scenario.Config, m *metrics.ArrivalMetrics) {
	if m == nil {
		fmt.Fprintln(w, "  No arrival metrics available.")
		return
	}

	fmt.Fprintf(w, "  %-22s %12s\n", "Metric", "Value")
	fmt.Fprintf(w, "  %-22s %12s\n", strings.Repeat("-", 22), strings.Repeat("-", 12))

	printRow := func(label string, v float64, format string) {
		fmt.Fprintf(w, "  %-22s "+format+"\n", label, v)
	}

	printRow("Arrivals", float64(m.Arrivals), "%12.0f")
	printRow("Requested pulses", float64(cfg.TotalPulses), "%12.0f")
	printRow("Distinct times", float64(m.DistinctTimes), "%12.0f")
	printRow("Rounds", float64(m.Rounds), "%12.0f")
	printRow("Candidate pool", float64(m.PoolSize), "%12.0f")
	printRow("Mean inter-arrival", m.MeanInterArrival, "%12.4f")
	printRow("Mean rate", m.MeanRate, "%12.4f")
}
