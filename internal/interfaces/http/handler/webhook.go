package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/connec/shopify-connector/internal/domain/sync"
	"github.com/connec/shopify-connector/internal/infrastructure/logger"
	"github.com/connec/shopify-connector/internal/infrastructure/shopify"
)

// Maximum webhook payload size (1MB - product payloads carry every
// variant inline).
const maxWebhookPayloadSize = 1 << 20

// Dispatcher resolves one webhook payload into typed batches and hands
// them to the job queue.
type Dispatcher interface {
	Dispatch(ctx context.Context, org *sync.Organization, label string, payload sync.Record) error
}

// WebhookHandler receives Shopify webhooks. Endpoints are called by
// Shopify and authenticate with the HMAC signature header instead of a
// session.
type WebhookHandler struct {
	orgs          sync.OrganizationRepository
	dispatcher    Dispatcher
	webhookSecret string
	logger        *zap.Logger
}

// NewWebhookHandler creates a new WebhookHandler.
func NewWebhookHandler(orgs sync.OrganizationRepository, dispatcher Dispatcher, webhookSecret string, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{
		orgs:          orgs,
		dispatcher:    dispatcher,
		webhookSecret: webhookSecret,
		logger:        logger,
	}
}

// WebhookResponse represents the response returned to Shopify.
type WebhookResponse struct {
	Received bool   `json:"received"`
	Message  string `json:"message,omitempty"`
}

// RegisterRoutes registers the webhook endpoints.
func (h *WebhookHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/webhooks/:org_uid/:topic", h.Handle)
}

// Handle processes one webhook delivery. The topic parameter is the
// Shopify resource label, e.g. "products" or "orders". Unknown
// organizations are acknowledged with 200 so Shopify stops retrying a
// delivery that will never succeed.
func (h *WebhookHandler) Handle(c *gin.Context) {
	orgUID := c.Param("org_uid")
	topic := c.Param("topic")

	// Signature verification needs the raw body.
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookPayloadSize+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, WebhookResponse{Message: "Failed to read request body"})
		return
	}
	if len(body) > maxWebhookPayloadSize {
		c.JSON(http.StatusRequestEntityTooLarge, WebhookResponse{Message: "Payload too large"})
		return
	}

	signature := c.GetHeader("X-Shopify-Hmac-Sha256")
	if !shopify.VerifyWebhook(h.webhookSecret, body, signature) {
		c.JSON(http.StatusUnauthorized, WebhookResponse{Message: "Webhook signature verification failed"})
		return
	}

	var payload sync.Record
	if err := json.Unmarshal(body, &payload); err != nil {
		c.JSON(http.StatusBadRequest, WebhookResponse{Message: "Invalid JSON payload"})
		return
	}

	log := logger.WithLogger(c.Request.Context(), h.logger)

	org, err := h.orgs.FindByUID(c.Request.Context(), orgUID)
	if err != nil {
		if errors.Is(err, sync.ErrOrganizationNotFound) {
			log.Warn("webhook for unknown organization", zap.String("organization", orgUID))
			c.JSON(http.StatusOK, WebhookResponse{Received: true, Message: "Unknown organization"})
			return
		}
		log.Error("failed to load organization", zap.String("organization", orgUID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, WebhookResponse{Message: "Internal error"})
		return
	}

	if err := h.dispatcher.Dispatch(c.Request.Context(), org, topic, payload); err != nil {
		log.Error("failed to dispatch webhook",
			zap.String("organization", orgUID),
			zap.String("topic", topic),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, WebhookResponse{Message: "Failed to queue webhook"})
		return
	}

	c.JSON(http.StatusOK, WebhookResponse{Received: true})
}
