package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/PushRelay/models"
	"github.com/PushRelay/ratelimit"
	"github.com/PushRelay/services"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

const (
	healthCheckTimeout = 2 * time.Second

	// Envelope plus a payload at the push size limit fits well inside this.
	maxSendBodySize = 4 * models.MaxPayloadSize
)

func SendPush(c *gin.Context) {
	dispatcher := services.GetRelayDispatcher()
	if dispatcher == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "ServiceUnavailable", "details": "push relay is not initialized"})
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxSendBodySize)
	raw, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "InvalidRequest", "details": err.Error()})
		return
	}

	var req models.PushSendRequest
	if err := binding.JSON.BindBody(raw, &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "InvalidRequest", "details": err.Error()})
		return
	}

	if !req.Encrypted {
		legacy, err := decodeLegacyPayload(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "InvalidRequest", "details": err.Error()})
			return
		}
		req.LegacyPayload = legacy
	}

	result, err := dispatcher.Send(c.Request.Context(), req)
	if err != nil {
		renderRelayError(c, dispatcher.Maximum(), err)
		return
	}

	response := models.PushSendResponse{
		Target:      req.PushToken,
		MessageID:   result.MessageID,
		PushType:    result.Message.PushType,
		RateLimits:  toRateLimits(result.Record, dispatcher.Maximum()),
		SentPayload: string(result.Message.Payload),
	}
	if result.Message.CollapseID != "" {
		id := result.Message.CollapseID
		response.CollapseIdentifier = &id
	}

	c.JSON(http.StatusOK, response)
}

func GetRateLimits(c *gin.Context) {
	dispatcher := services.GetRelayDispatcher()
	if dispatcher == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "ServiceUnavailable", "details": "push relay is not initialized"})
		return
	}

	var req models.RateLimitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "InvalidRequest", "details": err.Error()})
		return
	}

	rec, err := dispatcher.RateLimits(c.Request.Context(), req.PushToken)
	if err != nil {
		renderRelayError(c, dispatcher.Maximum(), err)
		return
	}

	c.JSON(http.StatusOK, models.RateLimitResponse{
		Target:     req.PushToken,
		RateLimits: toRateLimits(rec, dispatcher.Maximum()),
	})
}

func HealthCheck(c *gin.Context) {
	dispatcher := services.GetRelayDispatcher()
	if dispatcher == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "details": "push relay is not initialized"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
	defer cancel()

	if err := dispatcher.Ping(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

func GetMetrics(c *gin.Context) {
	dispatcher := services.GetRelayDispatcher()
	if dispatcher == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "ServiceUnavailable", "details": "push relay is not initialized"})
		return
	}

	c.JSON(http.StatusOK, dispatcher.Metrics().Snapshot())
}

// decodeLegacyPayload returns the body without its envelope keys. Numbers are
// kept as json.Number so they are forwarded exactly as received.
func decodeLegacyPayload(raw []byte) (map[string]any, error) {
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()

	var body map[string]any
	if err := decoder.Decode(&body); err != nil {
		return nil, err
	}
	for _, key := range models.EnvelopeKeys {
		delete(body, key)
	}
	return body, nil
}

func renderRelayError(c *gin.Context, maximum int64, err error) {
	var upstream *services.UpstreamError
	var storage *services.StorageError

	switch {
	case errors.Is(err, services.ErrInvalidAppID):
		c.JSON(http.StatusBadRequest, gin.H{"error": "InvalidAppId", "details": err.Error()})
	case errors.Is(err, services.ErrMissingEncryptedData):
		c.JSON(http.StatusBadRequest, gin.H{"error": "MissingEncryptedData", "details": err.Error()})
	case errors.Is(err, services.ErrPayloadTooLarge):
		c.JSON(http.StatusBadRequest, gin.H{"error": "PayloadTooLarge", "details": err.Error()})
	case errors.Is(err, services.ErrDeliveryCancelled):
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": "DeliveryCancelled", "details": err.Error()})
	case errors.As(err, &upstream):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":       "UpstreamDeliveryFailed",
			"details":     upstream.Err.Error(),
			"rate_limits": toRateLimits(upstream.Record, maximum),
		})
	case errors.As(err, &storage):
		c.JSON(http.StatusInternalServerError, gin.H{"error": "RateLimitStorageUnavailable", "details": err.Error()})
	default:
		slog.Error("unhandled relay error", slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "InternalError", "details": err.Error()})
	}
}

func toRateLimits(rec ratelimit.Record, maximum int64) models.RateLimits {
	return models.RateLimits{
		Successful: rec.Successful,
		Errors:     rec.Errors,
		Maximum:    maximum,
		Remaining:  rec.Remaining(maximum),
		ResetsAt:   rec.ExpiresAt,
	}
}
