package emitter

import (
	"context"
	"time"

	beacon "github.com/telhawk-systems/telhawk-beacon"
	"github.com/telhawk-systems/telhawk-beacon/internal/logging"
)

// Run plays a scenario through the pipeline. Respects ctx cancellation
// between events.
func Run(ctx context.Context, p *beacon.Pipeline, sc *Scenario, gen *Generator, log *logging.Logger) error {
	if log == nil {
		log = logging.Default()
	}

	for _, phase := range sc.Phases {
		log.Info("starting phase",
			"phase", phase.Name,
			logging.Collection(phase.Collection),
			"count", phase.Count,
		)

		for i := 0; i < phase.Count; i++ {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			p.Record(phase.Collection, gen.Payload(phase.Collection))

			if phase.Interval > 0 && i < phase.Count-1 {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(phase.Interval):
				}
			}
		}
	}
	return nil
}
