// Package businessflow contains the business logic for the application.
package businessflow

import (
	"context"

	"github.com/amirphl/drift-bottle/app/dto"
	"github.com/amirphl/drift-bottle/config"
	"github.com/amirphl/drift-bottle/models"
	"github.com/amirphl/drift-bottle/utils"
)

// ClientMetadata holds client-related information attached to log lines
type ClientMetadata struct {
	IPAddress string `json:"ip_address"`
	UserAgent string `json:"user_agent"`
	RequestID string `json:"request_id,omitempty"`
}

// NewClientMetadata creates a new ClientMetadata instance with basic information
func NewClientMetadata(ipAddress, userAgent string) *ClientMetadata {
	return &ClientMetadata{
		IPAddress: ipAddress,
		UserAgent: userAgent,
	}
}

// SetRequestID sets the request ID
func (cm *ClientMetadata) SetRequestID(requestID string) {
	cm.RequestID = requestID
}

// requestIDFrom returns the request id stored by the handler, or the one on metadata
func requestIDFrom(ctx context.Context, metadata *ClientMetadata) string {
	if metadata != nil && metadata.RequestID != "" {
		return metadata.RequestID
	}
	if v, ok := ctx.Value(utils.RequestIDKey).(string); ok {
		return v
	}
	return ""
}

// ToBottleDTO converts a bottle model to its public representation
func ToBottleDTO(bottle models.Bottle) dto.BottleResponse {
	images := make([]dto.ImageDTO, 0, len(bottle.Images))
	for _, img := range bottle.Images {
		images = append(images, dto.ImageDTO{Type: img.Type, Data: img.Data})
	}

	return dto.BottleResponse{
		BottleID:  bottle.BottleID,
		Content:   bottle.Content,
		Images:    images,
		Sender:    bottle.Sender,
		SenderID:  bottle.SenderID,
		Picked:    bottle.Picked,
		Timestamp: utils.FormatTimestamp(bottle.CreatedAt.Time),
		Poke:      bottle.Poke,
	}
}

func toImageModels(images []dto.ImageDTO) []models.Image {
	out := make([]models.Image, 0, len(images))
	for _, img := range images {
		out = append(out, models.Image{Type: img.Type, Data: img.Data})
	}
	return out
}

func redisKey(cfg config.CacheConfig, key string) string {
	return cfg.RedisPrefix + key
}
