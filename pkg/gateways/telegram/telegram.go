package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/janael-pinheiro/room-monitor-golang/pkg/entities"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	DefaultAPIURL  = "https://api.telegram.org"
	requestTimeout = 10 * time.Second
	parseModeHTML  = "HTML"
)

var ErrNotConfigured = errors.New("telegram bot token or chat id missing")

type sendMessageRequest struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// Bot sends messages through the Telegram Bot API.
type Bot struct {
	apiURL   string
	botToken string
	chatID   string
	client   *http.Client
	log      *logrus.Entry
}

func NewBot(conf entities.TelegramConfig, client *http.Client, log *logrus.Entry) *Bot {
	if client == nil {
		client = &http.Client{Timeout: requestTimeout}
	}
	apiURL := conf.APIURL
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	return &Bot{
		apiURL:   strings.TrimRight(apiURL, "/"),
		botToken: conf.BotToken,
		chatID:   conf.ChatID,
		client:   client,
		log:      log,
	}
}

func (b *Bot) Configured() bool {
	return b.botToken != "" && b.chatID != ""
}

// Notify sends "title\n\nbody" as one HTML message.
func (b *Bot) Notify(ctx context.Context, title, body string) error {
	if !b.Configured() {
		b.log.Debugln("bot not configured")
		return ErrNotConfigured
	}

	payload, err := json.Marshal(sendMessageRequest{
		ChatID:    b.chatID,
		Text:      fmt.Sprintf("%s\n\n%s", title, body),
		ParseMode: parseModeHTML,
	})
	if err != nil {
		return errors.Wrap(err, "encoding telegram message")
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", b.apiURL, b.botToken)
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return errors.Wrap(err, "building telegram request")
	}
	request.Header.Set("Content-Type", "application/json")

	response, err := b.client.Do(request)
	if err != nil {
		// the URL carries the bot token
		return errors.New("telegram request failed: " + redact(err.Error(), b.botToken))
	}
	defer response.Body.Close()

	var result apiResponse
	decodeErr := json.NewDecoder(io.LimitReader(response.Body, 1<<16)).Decode(&result)
	if response.StatusCode != http.StatusOK {
		return errors.Errorf("telegram responded %d: %s", response.StatusCode, result.Description)
	}
	if decodeErr != nil {
		return errors.Wrap(decodeErr, "decoding telegram response")
	}
	if !result.OK {
		return errors.Errorf("telegram rejected message: %s", result.Description)
	}

	b.log.Debugf("message %q sent", title)
	return nil
}

func redact(message, secret string) string {
	if secret == "" {
		return message
	}
	return strings.ReplaceAll(message, secret, "<redacted>")
}
