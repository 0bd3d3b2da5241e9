package tasks

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TypeBillingSweep = "billing:sweep"

// SweepPayload parameterizes one billing sweep run.
type SweepPayload struct {
	DaysAhead int `json:"daysAhead"`
}

func NewSweepTask(daysAhead int) (*asynq.Task, error) {
	b, err := json.Marshal(SweepPayload{DaysAhead: daysAhead})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeBillingSweep, b), nil
}
