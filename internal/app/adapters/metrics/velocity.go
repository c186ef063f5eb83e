package metrics

import (
	"errors"
	"modbot/internal/app/domain/velocity"
)

// ObserveVelocityPass records the outcome of one follow velocity pass.
func ObserveVelocityPass(res velocity.PassResult, err error) {
	switch {
	case errors.Is(err, velocity.ErrPassInProgress):
		VelocityPasses.WithLabelValues("skipped").Inc()
		return
	case err != nil:
		VelocityPasses.WithLabelValues("error").Inc()
	default:
		VelocityPasses.WithLabelValues("ok").Inc()
	}

	VelocityPassDuration.Observe(res.Duration.Seconds())
	FollowersAnalysed.Add(float64(res.Analysed))
	FollowBotsFlagged.Add(float64(len(res.Flagged)))
	Watermarks.Set(float64(res.WatermarksSize))
}
