package notifications

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

type TelegramNotifier struct {
	token  string
	chatID string
}

func NewTelegramNotifier(token, chatID string) *TelegramNotifier {
	return &TelegramNotifier{
		token:  token,
		chatID: chatID,
	}
}

func (t *TelegramNotifier) SendAlert(level, message string) error {
	text := fmt.Sprintf("%s *Signal Engine Alert*\n\n%s", levelEmoji(level), message)
	return t.post(text)
}

// SendRiskAlert renders a tripped risk limit as a structured message:
// which limit tripped, the symbol it tripped on, the current value and
// the limit value, and the correlation ID of the signal that triggered
// the check.
func (t *TelegramNotifier) SendRiskAlert(kind, symbol string, current, limit float64, correlationID string) error {
	text := fmt.Sprintf(
		"%s *Risk Limit Tripped*\n\n*Limit:* %s\n*Symbol:* %s\n*Current:* %.4f\n*Limit value:* %.4f\n*Correlation ID:* `%s`",
		levelEmoji("warning"), kind, symbol, current, limit, correlationID,
	)
	return t.post(text)
}

func levelEmoji(level string) string {
	switch level {
	case "warning":
		return "⚠️"
	case "error":
		return "🚨"
	case "success":
		return "✅"
	default:
		return "ℹ️"
	}
}

func (t *TelegramNotifier) post(text string) error {
	apiURL := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", t.token)

	data := url.Values{}
	data.Set("chat_id", t.chatID)
	data.Set("text", text)
	data.Set("parse_mode", "Markdown")

	resp, err := http.Post(apiURL, "application/x-www-form-urlencoded",
		strings.NewReader(data.Encode()))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return fmt.Errorf("telegram API returned status %d", resp.StatusCode)
	}

	return nil
}
