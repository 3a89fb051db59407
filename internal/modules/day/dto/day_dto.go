package dto

import (
	actionDto "tandera.com/daypillar/internal/modules/action/dto"
	habitDto "tandera.com/daypillar/internal/modules/habit/dto"
	ledgerDto "tandera.com/daypillar/internal/modules/ledger/dto"
	reflectionDto "tandera.com/daypillar/internal/modules/reflection/dto"
)

// HabitLogEntry is a habit log joined with its definition for display.
type HabitLogEntry struct {
	habitDto.HabitLogResponse
	HabitName string `json:"habit_name"`
	Points    int    `json:"points"`
}

type DaySummaryResponse struct {
	Date        string                             `json:"date"`
	Actions     []actionDto.ActionResponse         `json:"actions"`
	HabitLogs   []HabitLogEntry                    `json:"habit_logs"`
	Reflections []reflectionDto.ReflectionResponse `json:"reflections"`
	Points      ledgerDto.RollupResponse           `json:"points"`
}
