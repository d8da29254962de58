package services

import (
	"context"
	"time"

	"github.com/sjperalta/fintera-financing/internal/jobs"
)

const moratorySweepJob = "moratory_sweep"

// JobService exposes the background worker and owns the jobs it runs
type JobService struct {
	worker   *jobs.Worker
	moratory *MoratoryService
}

func NewJobService(worker *jobs.Worker, moratory *MoratoryService) *JobService {
	return &JobService{
		worker:   worker,
		moratory: moratory,
	}
}

// ScheduleMoratorySweep registers the recurring recalculation. A cron spec
// takes precedence; interval is used when spec is empty.
func (s *JobService) ScheduleMoratorySweep(spec string, interval time.Duration) error {
	if spec != "" {
		return s.worker.ScheduleCron(spec, moratorySweepJob, s.sweep)
	}
	if interval > 0 {
		s.worker.ScheduleEvery(interval, moratorySweepJob, s.sweep)
	}
	return nil
}

// TriggerMoratorySweep queues a recalculation run outside the schedule. It
// returns false once the worker has shut down.
func (s *JobService) TriggerMoratorySweep() bool {
	return s.worker.Enqueue(moratorySweepJob, s.sweep)
}

func (s *JobService) sweep(ctx context.Context) error {
	_, err := s.moratory.RecalculateAll(ctx, time.Now())
	return err
}

func (s *JobService) GetStatus() jobs.WorkerStats {
	return s.worker.GetStats()
}
