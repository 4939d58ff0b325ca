package entity

import "time"

type PaymentChannel struct {
	Category  string
	Channel   string
	Name      string
	Available bool
	Message   *string
	SortOrder int32

	UpdatedAt time.Time
}
