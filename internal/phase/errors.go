package phase

import "errors"

// Code classifies a local validation failure.
type Code string

const (
	CodeNotYourTurn          Code = "NotYourTurn"
	CodeNotOwnedTerritory    Code = "NotOwnedTerritory"
	CodeUnknownTerritory     Code = "UnknownTerritory"
	CodeBudgetExhausted      Code = "BudgetExhausted"
	CodeInsufficientBudget   Code = "InsufficientBudget"
	CodeInvalidOrigin        Code = "InvalidOrigin"
	CodeMustTargetEnemy      Code = "MustTargetEnemy"
	CodeMustTargetOwn        Code = "MustTargetOwn"
	CodeIncompleteAllocation Code = "IncompleteAllocation"
	CodeInvalidTroopCount    Code = "InvalidTroopCount"
	CodeNoSelection          Code = "NoSelection"
	CodeCommandInFlight      Code = "CommandInFlight"
	CodeMatchOver            Code = "MatchOver"
	CodeNotLoaded            Code = "NotLoaded"
	CodeReinforcementPending Code = "ReinforcementPending"
	CodeWrongPhase           Code = "WrongPhase"
	CodeWrongMode            Code = "WrongMode"
)

// Error is a local validation failure. It never reaches the server.
type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string { return e.Message }

// Is matches any *Error with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

var (
	ErrNotYourTurn          = &Error{CodeNotYourTurn, "It's not your turn"}
	ErrNotOwnedTerritory    = &Error{CodeNotOwnedTerritory, "You can only reinforce your own territories"}
	ErrUnknownTerritory     = &Error{CodeUnknownTerritory, "That territory is not on this map"}
	ErrBudgetExhausted      = &Error{CodeBudgetExhausted, "You have no troops left to place"}
	ErrInsufficientBudget   = &Error{CodeInsufficientBudget, "Not enough troops left to place"}
	ErrInvalidOrigin        = &Error{CodeInvalidOrigin, "Pick one of your territories with at least 2 troops"}
	ErrMustTargetEnemy      = &Error{CodeMustTargetEnemy, "Attack an enemy territory"}
	ErrMustTargetOwn        = &Error{CodeMustTargetOwn, "Troops can only move to your own territories"}
	ErrIncompleteAllocation = &Error{CodeIncompleteAllocation, "Place all of your reinforcements before confirming"}
	ErrInvalidTroopCount    = &Error{CodeInvalidTroopCount, "Invalid troop count"}
	ErrNoSelection          = &Error{CodeNoSelection, "Select an origin and a destination first"}
	ErrCommandInFlight      = &Error{CodeCommandInFlight, "Wait for the previous move to finish"}
	ErrMatchOver            = &Error{CodeMatchOver, "The match is over"}
	ErrNotLoaded            = &Error{CodeNotLoaded, "The match is still loading"}
	ErrReinforcementPending = &Error{CodeReinforcementPending, "Place your reinforcements first"}
	ErrWrongPhase           = &Error{CodeWrongPhase, "That move is not available in this phase"}
	ErrWrongMode            = &Error{CodeWrongMode, "Switch modes to make that move"}
)

// CodeOf returns the validation code of err, or "" when err is not a local validation failure.
func CodeOf(err error) Code {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Code
	}
	return ""
}

func withMessage(base *Error, msg string) *Error {
	return &Error{Code: base.Code, Message: msg}
}
