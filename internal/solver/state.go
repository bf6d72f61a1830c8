package solver

import "fmt"

// state.go - машина состояний попытки исполнения
//
// Переходы однонаправленные, без циклов:
//
//	Discovered -> Validated -> LiquidityLocked -> Submitted -> Confirmed
//	                                  |               |
//	                                  v               v
//	                                Failed -------> Unlocked
//
// Capital-safety: из LiquidityLocked и дальше любой отказ обязан пройти
// через Unlocked с возвратом ровно той суммы, что была заблокирована.

// ExecutionState - состояние попытки исполнения ордера
type ExecutionState int

const (
	StateDiscovered ExecutionState = iota
	StateValidated
	StateLiquidityLocked
	StateSubmitted
	StateConfirmed
	StateFailed
	StateUnlocked
)

var stateNames = map[ExecutionState]string{
	StateDiscovered:      "discovered",
	StateValidated:       "validated",
	StateLiquidityLocked: "liquidity_locked",
	StateSubmitted:       "submitted",
	StateConfirmed:       "confirmed",
	StateFailed:          "failed",
	StateUnlocked:        "unlocked",
}

func (s ExecutionState) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("unknown(%d)", int(s))
}

// допустимые переходы
var transitions = map[ExecutionState][]ExecutionState{
	StateDiscovered:      {StateValidated, StateFailed},
	StateValidated:       {StateLiquidityLocked, StateFailed},
	StateLiquidityLocked: {StateSubmitted, StateFailed},
	StateSubmitted:       {StateConfirmed, StateFailed},
	StateConfirmed:       {},
	StateFailed:          {StateUnlocked},
	StateUnlocked:        {},
}

// CanTransition проверяет допустимость перехода
func CanTransition(from, to ExecutionState) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Terminal возвращает true для конечных состояний
func (s ExecutionState) Terminal() bool {
	return len(transitions[s]) == 0
}
