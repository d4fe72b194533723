// core/sieve/verdict.go
package sieve

// Verdict is the structured classification result for one record:
// every metric computed so far, the accept flag, and the rejection
// reason (empty iff acceptable). Built incrementally by the stages.
type Verdict struct {
	Metrics    map[string]float64
	Acceptable bool
	Issue      string
}

func NewVerdict() *Verdict {
	return &Verdict{Metrics: make(map[string]float64, 24)}
}

func (v *Verdict) Set(name string, value float64) { v.Metrics[name] = value }

func (v *Verdict) Get(name string) (float64, bool) {
	x, ok := v.Metrics[name]
	return x, ok
}

func (v *Verdict) Has(name string) bool {
	_, ok := v.Metrics[name]
	return ok
}
