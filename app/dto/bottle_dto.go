package dto

// ImageDTO is one image attached to a bottle
type ImageDTO struct {
	Type string `json:"type" validate:"required"`
	Data string `json:"data" validate:"required"`
}

// CreateBottleRequest represents the request body for throwing a new bottle
type CreateBottleRequest struct {
	Content  string     `json:"content" validate:"required"`
	Images   []ImageDTO `json:"images" validate:"omitempty,dive"`
	Sender   string     `json:"sender" validate:"required,max=255"`
	SenderID string     `json:"sender_id" validate:"required,max=255"`
	Poke     *bool      `json:"poke" validate:"required"`
}

// PickBottleRequest identifies the requester claiming a random bottle
type PickBottleRequest struct {
	SenderID string `json:"sender_id" validate:"required,max=255"`
}

// BottleResponse is the public representation of a bottle
type BottleResponse struct {
	BottleID  int64      `json:"bottle_id"`
	Content   string     `json:"content"`
	Images    []ImageDTO `json:"images"`
	Sender    string     `json:"sender"`
	SenderID  string     `json:"sender_id"`
	Picked    bool       `json:"picked"`
	Timestamp string     `json:"timestamp"`
	Poke      bool       `json:"poke"`
}

// BottleCountResponse carries the number of unpicked bottles
type BottleCountResponse struct {
	TotalActiveBottles int64 `json:"total_active_bottles"`
}

// WelcomeResponse is returned by the root endpoint
type WelcomeResponse struct {
	Message string `json:"message"`
}

// HealthResponse reports process and dependency liveness
type HealthResponse struct {
	Status      string            `json:"status"`
	Timestamp   string            `json:"timestamp"`
	Version     string            `json:"version"`
	Environment string            `json:"environment"`
	Checks      map[string]string `json:"checks"`
}
