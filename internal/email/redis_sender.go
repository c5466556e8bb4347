package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/mail"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hareeshagunasekara/SoloDesk-sub000/internal/config"
)

// MockEmailTTL is how long a mock email stays readable in Redis.
const MockEmailTTL = 5 * time.Minute

// RedisSender stores messages in Redis instead of sending them, so end-to-end
// tests can read what would have been delivered.
type RedisSender struct {
	client *redis.Client
	cfg    *config.Config
}

func NewRedisSender(client *redis.Client, cfg *config.Config) Sender {
	return &RedisSender{
		client: client,
		cfg:    cfg,
	}
}

// MockEmailKey is the Redis key a mock email to recipient rendered from
// templateType is stored under.
func MockEmailKey(recipient, templateType string) string {
	return fmt.Sprintf("mockemail:%s:%s", recipient, templateType)
}

func (s *RedisSender) Send(ctx context.Context, to []string, subject string, rawMessage []byte) error {
	templateType := "unknown"
	if msg, err := mail.ReadMessage(bytes.NewReader(rawMessage)); err == nil {
		if t := msg.Header.Get(TemplateHeader); t != "" {
			templateType = t
		}
	}

	primaryTo := ""
	if len(to) > 0 {
		primaryTo = to[0]
	}

	jsonData, err := json.Marshal(map[string]interface{}{
		"to":           strings.Join(to, ", "),
		"from":         s.cfg.SmtpFromAddress,
		"subject":      subject,
		"body":         string(rawMessage),
		"sent_at":      time.Now().UTC().Format(time.RFC3339Nano),
		"templateType": templateType,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal email data: %w", err)
	}

	key := MockEmailKey(primaryTo, templateType)
	if err := s.client.Set(ctx, key, jsonData, MockEmailTTL).Err(); err != nil {
		return fmt.Errorf("failed to store email in Redis key '%s': %w", key, err)
	}

	log.Printf("Mock email stored in Redis key '%s' (TTL: %v, To: %s, Subject: %s)", key, MockEmailTTL, strings.Join(to, ", "), subject)
	return nil
}
