package telegram

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// BotManager runs the configured bot. With a webhook base URL it registers
// the webhook and serves updates through gin; without one it falls back to
// getUpdates long polling.
type BotManager struct {
	client         *Client
	handler        *UpdateHandler
	webhookBaseURL string
	webhookSecret  string
	secret         string

	stopCh chan struct{}
}

func NewBotManager(client *Client, handler *UpdateHandler, token, webhookBaseURL, webhookSecret string) *BotManager {
	return &BotManager{
		client:         client,
		handler:        handler,
		webhookBaseURL: webhookBaseURL,
		webhookSecret:  webhookSecret,
		secret:         tokenSecret(token),
		stopCh:         make(chan struct{}),
	}
}

// tokenSecret derives the webhook path segment so the bot token never
// appears in URLs or logs.
func tokenSecret(token string) string {
	h := sha256.Sum256([]byte(token))
	return fmt.Sprintf("%x", h[:16])
}

func (m *BotManager) Start() {
	if m.webhookBaseURL != "" {
		webhookURL := fmt.Sprintf("%s/webhook/bot/%s", m.webhookBaseURL, m.secret)
		if err := m.client.SetWebhook(webhookURL, m.webhookSecret); err != nil {
			log.Printf("[BotManager] failed to set webhook: %v", err)
			return
		}
		log.Printf("[BotManager] webhook registered: %s", webhookURL)
		return
	}

	if err := m.client.DeleteWebhook(); err != nil {
		log.Printf("[BotManager] delete webhook: %v", err)
	}
	go m.pollLoop()
	log.Println("[BotManager] long polling started")
}

func (m *BotManager) Stop() {
	close(m.stopCh)
	if m.webhookBaseURL != "" {
		m.client.DeleteWebhook()
	}
	log.Println("[BotManager] stopped")
}

func (m *BotManager) pollLoop() {
	var offset int64
	for {
		select {
		case <-m.stopCh:
			return
		default:
		}

		updates, err := m.client.GetUpdates(offset, 25)
		if err != nil {
			log.Printf("[BotManager] get updates: %v", err)
			time.Sleep(3 * time.Second)
			continue
		}

		for _, upd := range updates {
			if upd.UpdateID >= offset {
				offset = upd.UpdateID + 1
			}
			m.handler.Handle(upd)
		}
	}
}

func (m *BotManager) HandleWebhook(c *gin.Context) {
	if c.Param("secret") != m.secret {
		c.Status(http.StatusNotFound)
		return
	}

	if m.webhookSecret != "" {
		headerSecret := c.GetHeader("X-Telegram-Bot-Api-Secret-Token")
		if headerSecret != m.webhookSecret {
			c.Status(http.StatusUnauthorized)
			return
		}
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.Status(http.StatusBadRequest)
		return
	}

	var upd Update
	if err := json.Unmarshal(body, &upd); err != nil {
		c.Status(http.StatusBadRequest)
		return
	}

	// handled before replying 200 so answer events for one poll are
	// appended in delivery order
	m.handler.Handle(upd)

	c.Status(http.StatusOK)
}
