package timing

import (
	"math"
	"sort"

	"github.com/wonny/quantlab/internal/contracts"
	"github.com/wonny/quantlab/internal/indicators"
	"github.com/wonny/quantlab/internal/stats"
)

// Label thresholds
const (
	DefaultHorizon   = 5
	DefaultThreshold = 0.03
)

// Label is a forward-return class
type Label struct {
	Entry bool `json:"entry"` // 향후 horizon 수익률 > threshold
	Exit  bool `json:"exit"`  // 향후 horizon 수익률 < -threshold
	Known bool `json:"known"` // false for the last horizon bars
}

// Labels tags every bar by its forward return over horizon bars
func Labels(closes []float64, horizon int, threshold float64) []Label {
	out := make([]Label, len(closes))
	for i := range closes {
		if i+horizon >= len(closes) || closes[i] == 0 {
			continue
		}
		fwd := closes[i+horizon]/closes[i] - 1
		out[i] = Label{Entry: fwd > threshold, Exit: fwd < -threshold, Known: true}
	}
	return out
}

// FeatureNames lists the Features columns in order
var FeatureNames = []string{"rsi", "macd", "macd_signal", "obv", "bb_high", "bb_low"}

// Features returns one row per bar (RSI, MACD, signal, OBV, Bollinger bands).
// Rows before the MACD signal line has 26+9 bars of history are dropped, as
// the seeded EMAs have not settled there; the returned offset is the bar
// index of the first row.
func Features(s *contracts.Series) (rows [][]float64, offset int) {
	closes := s.Closes()
	rsi := indicators.RSI(closes, 14)
	macd := indicators.MACD(closes, 12, 26, 9)
	obv := indicators.OBV(closes, s.Volumes())
	bbHigh, bbLow := indicators.Bollinger(closes, 20, 2)

	offset = 26 + 9 - 1
	for i := offset; i < len(closes); i++ {
		rows = append(rows, []float64{rsi[i], macd.MACD[i], macd.Signal[i], obv[i], bbHigh[i], bbLow[i]})
	}
	return rows, offset
}

// Predictor estimates entry/exit probabilities with k nearest neighbours over
// z-scored features
type Predictor struct {
	k      int
	means  []float64
	stds   []float64
	train  [][]float64
	labels []Label
}

// NewPredictor creates a predictor using k neighbours (default 15)
func NewPredictor(k int) *Predictor {
	if k <= 0 {
		k = 15
	}
	return &Predictor{k: k}
}

// Fit stores the labelled rows; rows with unknown labels are skipped
func (p *Predictor) Fit(rows [][]float64, labels []Label) error {
	p.train, p.labels = nil, nil
	for i, r := range rows {
		if i < len(labels) && labels[i].Known {
			p.train = append(p.train, r)
			p.labels = append(p.labels, labels[i])
		}
	}
	if len(p.train) == 0 {
		return ErrInsufficientData
	}

	dims := len(p.train[0])
	p.means, p.stds = make([]float64, dims), make([]float64, dims)
	for d := 0; d < dims; d++ {
		col := make([]float64, len(p.train))
		for i, r := range p.train {
			col[i] = r[d]
		}
		p.means[d], p.stds[d] = stats.Mean(col), stats.StdDev(col)
	}
	return nil
}

// Probability is an entry/exit probability pair
type Probability struct {
	Entry float64 `json:"entry"`
	Exit  float64 `json:"exit"`
}

// Predict returns the neighbour share of entry and exit labels for each row
func (p *Predictor) Predict(rows [][]float64) []Probability {
	out := make([]Probability, len(rows))
	if len(p.train) == 0 {
		return out
	}
	k := min(p.k, len(p.train))

	type neighbour struct {
		dist float64
		idx  int
	}
	for i, r := range rows {
		ns := make([]neighbour, len(p.train))
		for j, t := range p.train {
			ns[j] = neighbour{dist: p.distance(r, t), idx: j}
		}
		sort.Slice(ns, func(a, b int) bool { return ns[a].dist < ns[b].dist })

		var entry, exit int
		for _, n := range ns[:k] {
			if p.labels[n.idx].Entry {
				entry++
			}
			if p.labels[n.idx].Exit {
				exit++
			}
		}
		out[i] = Probability{Entry: float64(entry) / float64(k), Exit: float64(exit) / float64(k)}
	}
	return out
}

func (p *Predictor) distance(a, b []float64) float64 {
	var sum float64
	for d := range a {
		s := p.stds[d]
		if s == 0 {
			continue
		}
		z := (a[d] - b[d]) / s
		sum += z * z
	}
	return math.Sqrt(sum)
}

// ProfileSide summarises realised forward returns after a signal
type ProfileSide struct {
	Signals     int     `json:"signals"`
	MeanReturn  float64 `json:"mean_return"`
	SuccessRate float64 `json:"success_rate"`
}

// ReturnProfile is the realised outcome of predicted entries and exits
type ReturnProfile struct {
	Entry ProfileSide `json:"entry"`
	Exit  ProfileSide `json:"exit"`
}

// EvaluateReturnProfile checks bars whose probability exceeds cutoff (0.6)
// against the realised horizon return. closes[i] aligns with probs[i].
func EvaluateReturnProfile(closes []float64, probs []Probability, horizon int, cutoff float64) ReturnProfile {
	var entryRets, exitRets []float64
	for i, pr := range probs {
		if i+horizon >= len(closes) || closes[i] == 0 {
			break
		}
		fwd := closes[i+horizon]/closes[i] - 1
		if pr.Entry > cutoff {
			entryRets = append(entryRets, fwd)
		}
		if pr.Exit > cutoff {
			exitRets = append(exitRets, fwd)
		}
	}
	return ReturnProfile{
		Entry: side(entryRets, func(r float64) bool { return r > 0 }),
		Exit:  side(exitRets, func(r float64) bool { return r < 0 }),
	}
}

func side(rets []float64, success func(float64) bool) ProfileSide {
	ps := ProfileSide{Signals: len(rets)}
	if len(rets) == 0 {
		return ps
	}
	var hits int
	for _, r := range rets {
		if success(r) {
			hits++
		}
	}
	ps.MeanReturn = stats.Mean(rets)
	ps.SuccessRate = float64(hits) / float64(len(rets))
	return ps
}
