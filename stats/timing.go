package stats

import (
	"fmt"
	"io"
	"time"

	"github.com/aybabtme/uniplot/histogram"
)

const histogramBins = 12

// Timing collects durations of one operation, in milliseconds.
type Timing struct {
	Name    string
	stat    Statistic
	samples []float64
}

func NewTiming(name string) *Timing {
	return &Timing{Name: name}
}

func (t *Timing) Add(d time.Duration) {
	ms := float64(d) / float64(time.Millisecond)
	t.stat.Push(ms)
	t.samples = append(t.samples, ms)
}

// Time runs fn and records how long it took.
func (t *Timing) Time(fn func() error) error {
	start := time.Now()
	err := fn()
	t.Add(time.Since(start))
	return err
}

func (t *Timing) Stat() *Statistic {
	return &t.stat
}

// Summary is a one-line report: count, mean with its 95% interval, and range.
func (t *Timing) Summary() string {
	s := &t.stat
	if s.Iterations() == 0 {
		return fmt.Sprintf("%-10s no samples", t.Name)
	}
	return fmt.Sprintf("%-10s n=%-5d mean %.3fms ± %.3f  min %.3fms  max %.3fms",
		t.Name, s.Iterations(), s.Mean(), s.ConfidenceHalfWidth(95), s.Min(), s.Max())
}

// FprintHistogram draws the distribution of the samples.
func (t *Timing) FprintHistogram(w io.Writer, width int) error {
	if len(t.samples) == 0 {
		return nil
	}
	h := histogram.Hist(histogramBins, t.samples)
	return histogram.Fprint(w, h, histogram.Linear(width))
}
