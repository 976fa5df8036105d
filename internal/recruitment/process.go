package recruitment

import (
	"fmt"

	"stockproj/internal/numeric"
)

const (
	ProcessLogDevs = "log_devs"
	ProcessLogR    = "log_r"
)

// LogDevProcess adds a per-year deviation to the log of mean recruitment:
//
//	log R[t] = log(R_mean) + dev[t] (- 0.5 sigma^2 when BiasCorrect)
//
// An empty LogDevs means deterministic recruitment. With SumToZero set every
// deviation is re-centred on the mean of all deviations during Prepare; this is
// a normalization only and adds no likelihood term.
type LogDevProcess[T numeric.Number[T]] struct {
	LogDevs     []T
	LogSigma    T
	BiasCorrect bool
	SumToZero   bool

	effective []T
}

func (p *LogDevProcess[T]) Prepare() {
	if len(p.effective) != len(p.LogDevs) {
		p.effective = make([]T, len(p.LogDevs))
	}
	copy(p.effective, p.LogDevs)
	if !p.SumToZero || len(p.LogDevs) == 0 {
		return
	}
	mean := numeric.Mean(p.LogDevs)
	for i := range p.effective {
		p.effective[i] = p.LogDevs[i].Sub(mean)
	}
}

// Deviations returns the deviations in use after Prepare.
func (p *LogDevProcess[T]) Deviations() []T {
	return p.effective
}

func (p *LogDevProcess[T]) Evaluate(pos int, mean T) T {
	out := numeric.SafeLog(mean)
	if len(p.effective) > 0 {
		out = out.Add(p.effective[pos])
	}
	if p.BiasCorrect {
		sigma := p.LogSigma.Exp()
		out = out.Sub(numeric.Const[T](0.5).Mul(sigma).Mul(sigma))
	}
	return out
}

func (p *LogDevProcess[T]) CheckPositions(n int) error {
	if len(p.LogDevs) != 0 && len(p.LogDevs) < n {
		return fmt.Errorf("log_devs has %d values, need %d: %w", len(p.LogDevs), n, ErrPositionOutOfRange)
	}
	return nil
}

func (p *LogDevProcess[T]) Name() string { return ProcessLogDevs }

// LogRProcess ignores the stock-recruit prediction and returns a freely
// estimated log recruitment for each year.
type LogRProcess[T numeric.Number[T]] struct {
	LogR []T
}

func (p *LogRProcess[T]) Prepare() {}

func (p *LogRProcess[T]) Evaluate(pos int, _ T) T {
	return p.LogR[pos]
}

func (p *LogRProcess[T]) CheckPositions(n int) error {
	if len(p.LogR) < n {
		return fmt.Errorf("log_r has %d values, need %d: %w", len(p.LogR), n, ErrPositionOutOfRange)
	}
	return nil
}

func (p *LogRProcess[T]) Name() string { return ProcessLogR }
