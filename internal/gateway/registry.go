package gateway

import (
	"fmt"
	"time"

	"github.com/sony/gobreaker/v2"
)

// Registry holds the configured submitters with a circuit breaker per
// submitter, so a flapping gateway fails fast instead of piling up requests.
type Registry struct {
	submitters map[string]Submitter
	breakers   map[string]*gobreaker.CircuitBreaker[*Result]
}

func NewRegistry(submitters ...Submitter) *Registry {
	r := &Registry{
		submitters: make(map[string]Submitter),
		breakers:   make(map[string]*gobreaker.CircuitBreaker[*Result]),
	}

	if len(submitters) == 0 {
		r.Register(NewMockSubmitter("hyperpay", WithLatency(200*time.Millisecond)))
	} else {
		for _, s := range submitters {
			r.Register(s)
		}
	}

	return r
}

func (r *Registry) Register(s Submitter) {
	r.submitters[s.Name()] = s
	r.breakers[s.Name()] = gobreaker.NewCircuitBreaker[*Result](gobreaker.Settings{
		Name:        s.Name(),
		MaxRequests: 10,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 10 && failureRatio >= 0.6
		},
	})
}

func (r *Registry) Get(name string) (Submitter, *gobreaker.CircuitBreaker[*Result], error) {
	s, ok := r.submitters[name]
	if !ok {
		return nil, nil, fmt.Errorf("unknown gateway submitter %q", name)
	}
	return s, r.breakers[name], nil
}
