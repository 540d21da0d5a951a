package model

const (
	HealthUp   = "UP"
	HealthDown = "DOWN"
)

type Health struct {
	Status string `json:"status"`
	Store  string `json:"store"`
	Redis  string `json:"redis,omitempty"`
}
