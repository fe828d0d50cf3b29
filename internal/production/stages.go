package production

import (
	"errors"
	"math"
	"time"

	"furniture-erp/internal/models"
)

// Pipeline stages in production order
const (
	StageCuttingSewing = "cutting_sewing"
	StageCarpentry     = "carpentry"
	StageUpholstery    = "upholstery"
	StageAssembly      = "assembly"
	StagePackaging     = "packaging"
	StageDelivery      = "delivery"
)

// Stages is the fixed manufacturing pipeline
var Stages = []string{
	StageCuttingSewing,
	StageCarpentry,
	StageUpholstery,
	StageAssembly,
	StagePackaging,
	StageDelivery,
}

// ErrPipelineFinished is returned when every stage is already completed
var ErrPipelineFinished = errors.New("production pipeline already finished")

// SeedStages returns the pipeline with every stage pending
func SeedStages() models.ProductionStages {
	out := make(models.ProductionStages, len(Stages))
	for i, s := range Stages {
		out[i] = models.ProductionStage{Stage: s, Status: models.StageStatusPending}
	}
	return out
}

// Approve moves an order into production. The pipeline is seeded when the
// order has none and its first stage is started when still pending.
func Approve(order *models.Order, now time.Time) {
	if len(order.ProductionStages) == 0 {
		order.ProductionStages = SeedStages()
	}
	if order.ProductionStages[0].Status == models.StageStatusPending {
		started := now
		order.ProductionStages[0].Status = models.StageStatusInProgress
		order.ProductionStages[0].StartedAt = &started
	}
	order.Status = models.OrderStatusInProduction
	order.ProductionProgress = Progress(order.ProductionStages)
}

// Advance completes the running stage and starts the next one. Completing
// the last stage sends the order to quality check.
func Advance(order *models.Order, now time.Time) error {
	if len(order.ProductionStages) == 0 {
		order.ProductionStages = SeedStages()
	}
	stages := order.ProductionStages

	current := -1
	for i, s := range stages {
		if s.Status == models.StageStatusInProgress {
			current = i
			break
		}
	}
	if current == -1 {
		for i, s := range stages {
			if s.Status == models.StageStatusPending {
				current = i
				break
			}
		}
		if current == -1 {
			return ErrPipelineFinished
		}
		started := now
		stages[current].StartedAt = &started
	}

	done := now
	stages[current].Status = models.StageStatusCompleted
	stages[current].CompletedAt = &done

	if next := current + 1; next < len(stages) {
		started := now
		stages[next].Status = models.StageStatusInProgress
		stages[next].StartedAt = &started
	} else {
		order.Status = models.OrderStatusQualityCheck
	}

	order.ProductionProgress = Progress(stages)
	return nil
}

// Progress is the completed share of the pipeline as a percentage
func Progress(stages models.ProductionStages) int {
	if len(stages) == 0 {
		return 0
	}
	completed := 0
	for _, s := range stages {
		if s.Status == models.StageStatusCompleted {
			completed++
		}
	}
	return int(math.Round(float64(completed) * 100 / float64(len(stages))))
}
