package domain

import "errors"

var (
	ErrInvalidID       = errors.New("invalid_id")
	ErrInvalidName     = errors.New("invalid_name")
	ErrInvalidLineName = errors.New("invalid_line_name")
	ErrInvalidLineKind = errors.New("invalid_line_kind")
	ErrInvalidCalcType = errors.New("invalid_calc_type")
	ErrInvalidBase     = errors.New("invalid_base")
	ErrInvalidRate     = errors.New("invalid_rate")
	ErrInvalidAmount   = errors.New("invalid_amount")
	ErrRegimeNotFound  = errors.New("regime_not_found")
	ErrRuleNotFound    = errors.New("rule_not_found")
	ErrNoLines         = errors.New("rule_has_no_lines")
)
