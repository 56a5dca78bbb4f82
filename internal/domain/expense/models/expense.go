package models

import "time"

// Expense is a submitted expense. It is never mutated after creation.
type Expense struct {
	ID     int64     `json:"id"`
	Desc   string    `json:"desc"`
	Amount float64   `json:"amount"`
	Date   time.Time `json:"date"`
}

// Form is the state of the submit form before it is accepted
type Form struct {
	Desc   string `validate:"required"`
	Amount string `validate:"required"`
}
