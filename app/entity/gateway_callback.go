package entity

import "time"

const (
	GatewayCallbackProcessed int32 = 10
	GatewayCallbackRejected  int32 = 20
)

type GatewayCallback struct {
	ID uint64

	OrderID *string

	CallbackHash string
	EventType    string
	PayloadJSON  string
	Status       int32
	Error        *string

	CreatedAt time.Time
}
