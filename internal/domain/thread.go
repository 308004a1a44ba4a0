package domain

// Thread is a persistent conversation on the assistant service.
type Thread struct {
	ID        string `json:"id"`
	CreatedAt int64  `json:"created_at"`
}
