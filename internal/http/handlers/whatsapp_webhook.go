package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/trainerhub/trainerhub/internal/webhook"
	"github.com/trainerhub/trainerhub/pkg/logging"
)

// WebhookConfig wires the inbound webhook handler.
type WebhookConfig struct {
	Processor *webhook.Processor
	Logger    *logging.Logger
}

// WebhookHandler receives Evolution "messages.upsert" events. It always
// acknowledges with 200 so the gateway never enters a retry storm; failures
// surface through logs and metrics only.
type WebhookHandler struct {
	processor *webhook.Processor
	logger    *logging.Logger
}

func NewWebhookHandler(cfg WebhookConfig) *WebhookHandler {
	if cfg.Processor == nil {
		panic("handlers: webhook processor required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	return &WebhookHandler{processor: cfg.Processor, logger: cfg.Logger}
}

// evolutionEvent mirrors the subset of the gateway payload we consume.
// messageTimestamp arrives as a number or a string depending on the gateway
// version, so it is decoded as json.Number.
type evolutionEvent struct {
	Event    string `json:"event"`
	Instance string `json:"instance"`
	Data     struct {
		Key struct {
			RemoteJid string `json:"remoteJid"`
			FromMe    bool   `json:"fromMe"`
			ID        string `json:"id"`
		} `json:"key"`
		Message struct {
			Conversation        string `json:"conversation"`
			ExtendedTextMessage struct {
				Text string `json:"text"`
			} `json:"extendedTextMessage"`
		} `json:"message"`
		MessageTimestamp json.Number `json:"messageTimestamp"`
	} `json:"data"`
}

// Handle processes one webhook delivery.
// Route: POST /webhooks/whatsapp
func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	var evt evolutionEvent
	if err := json.NewDecoder(r.Body).Decode(&evt); err != nil {
		h.logger.Warn("webhook payload undecodable", "error", err)
		writeJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
		return
	}
	if evt.Event != "" && evt.Event != "messages.upsert" {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
		return
	}

	text := evt.Data.Message.Conversation
	if text == "" {
		text = evt.Data.Message.ExtendedTextMessage.Text
	}
	ts, _ := evt.Data.MessageTimestamp.Int64()

	outcome := h.processor.Process(r.Context(), webhook.InboundMessage{
		Instance:  evt.Instance,
		Sender:    evt.Data.Key.RemoteJid,
		FromMe:    evt.Data.Key.FromMe,
		Text:      text,
		Timestamp: ts,
	})
	writeJSON(w, http.StatusOK, map[string]string{"status": string(outcome)})
}
