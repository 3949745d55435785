package maintenance

import (
	"context"

	"github.com/fact-run/fact/pkg/breaker"
)

// AttachHealthProbe starts br's background half-open health probe and
// registers its stop function with the scheduler so Shutdown also tears
// it down (spec §4.7: "Breaker health probe (§4.2) if enabled").
func (s *Scheduler) AttachHealthProbe(ctx context.Context, br *breaker.Breaker, probe func() error) {
	stop := br.StartHealthProbe(ctx, probe)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		<-s.stopCh
		stop()
	}()
}
