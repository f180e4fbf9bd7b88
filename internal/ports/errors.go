package ports

import "errors"

var (
	// некорректный ввод (срок, метод, число дней)
	ErrValidation = errors.New("validation failed")
	// approve/reject без pending-заявки
	ErrNotActionable = errors.New("no actionable pending request")
	// extend/shorten/expire не в том состоянии
	ErrNotEligible = errors.New("subscription not eligible for modification")
	ErrNotFound    = errors.New("subscription not found")
)
