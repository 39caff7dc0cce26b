// Package telegram posts complaint notifications to a staff chat.
package telegram

import (
	"context"
	"strings"

	"complaintdesk/backend/internal/localization"
	"complaintdesk/backend/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

const queueSize = 64

// Sender is the part of *tgbotapi.BotAPI the notifier uses.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Connect logs in to the Bot API.
func Connect(token string) (*tgbotapi.BotAPI, error) {
	return tgbotapi.NewBotAPI(token)
}

// Notifier implements complaint.Notifier. Calls only enqueue; Run does the
// sending, so a slow or unreachable Bot API never holds up a request.
type Notifier struct {
	bot       Sender
	chatID    int64
	lang      string
	localizer *localization.Localizer
	queue     chan tgbotapi.MessageConfig
	log       zerolog.Logger
}

func NewNotifier(bot Sender, chatID int64, lang string, localizer *localization.Localizer, log zerolog.Logger) *Notifier {
	if !localizer.Has(lang) {
		lang = localization.DefaultLanguage
	}
	return &Notifier{
		bot:       bot,
		chatID:    chatID,
		lang:      lang,
		localizer: localizer,
		queue:     make(chan tgbotapi.MessageConfig, queueSize),
		log:       log.With().Str("component", "telegram").Logger(),
	}
}

func (n *Notifier) ComplaintCreated(c *models.Complaint) {
	text := n.localizer.Format(n.lang, "complaint_created", c.Title, c.ID)
	if len(c.Tags) > 0 {
		text += "\n" + n.localizer.Format(n.lang, "tags", strings.Join(c.Tags, ", "))
	}
	n.enqueue(text)
}

func (n *Notifier) StatusChanged(c *models.Complaint, previous string) {
	n.enqueue(n.localizer.Format(n.lang, "status_changed", c.Title, previous, c.Status))
}

func (n *Notifier) enqueue(text string) {
	select {
	case n.queue <- tgbotapi.NewMessage(n.chatID, text):
	default:
		n.log.Warn().Msg("notification queue full, dropping message")
	}
}

// Run sends queued notifications until ctx is cancelled.
func (n *Notifier) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-n.queue:
			if _, err := n.bot.Send(msg); err != nil {
				n.log.Error().Err(err).Int64("chat_id", n.chatID).Msg("failed to send notification")
			}
		}
	}
}
