package notify

import (
	"fmt"
	"strings"

	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/pkg/errors"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"sma_trader/internal/config"
	"sma_trader/internal/models"
)

type Notifier interface {
	Send(msg string)
	Sendf(format string, args ...any)
}

// botSender is the part of *tgbot.BotAPI we use.
type botSender interface {
	Send(c tgbot.Chattable) (tgbot.Message, error)
}

// Telegram posts messages to a single chat. Delivery failures are logged, never returned.
type Telegram struct {
	bot    botSender
	chatID int64
	log    *zap.Logger
}

func NewTelegram(token string, chatID int64, log *zap.Logger) (*Telegram, error) {
	b, err := tgbot.NewBotAPI(token)
	if err != nil {
		return nil, errors.Wrap(err, "init telegram bot")
	}
	return &Telegram{bot: b, chatID: chatID, log: log}, nil
}

func (t *Telegram) Send(msg string) {
	if t == nil || t.bot == nil || t.chatID == 0 {
		return
	}
	if _, err := t.bot.Send(tgbot.NewMessage(t.chatID, msg)); err != nil {
		t.log.Warn("telegram send failed", zap.Error(err))
	}
}

func (t *Telegram) Sendf(format string, args ...any) { t.Send(fmt.Sprintf(format, args...)) }

// Stdout writes notifications to the log.
type Stdout struct {
	log *zap.Logger
}

func NewStdout(log *zap.Logger) *Stdout { return &Stdout{log: log} }

func (s *Stdout) Send(msg string)                  { s.log.Info("notification", zap.String("text", msg)) }
func (s *Stdout) Sendf(format string, args ...any) { s.Send(fmt.Sprintf(format, args...)) }

// New picks Telegram when a token and chat are configured, stdout otherwise.
func New(cfg *config.Config, log *zap.Logger) Notifier {
	if cfg.Telegram.Token != "" && cfg.Telegram.ChatID != 0 {
		tg, err := NewTelegram(cfg.Telegram.Token, cfg.Telegram.ChatID, log)
		if err == nil {
			return tg
		}
		log.Warn("telegram notifier unavailable, using stdout", zap.Error(err))
	}
	return NewStdout(log)
}

// OrderMessage renders a receipt for humans.
func OrderMessage(r models.OrderReceipt) string {
	var b strings.Builder
	mode := "LIVE"
	if r.Simulated {
		mode = "DRY RUN"
	}
	fmt.Fprintf(&b, "[%s] %s %s %s on %s", mode, r.Side, formatAmount(r.Amount), r.Symbol, r.Exchange)
	if r.ID != "" {
		fmt.Fprintf(&b, "\norder id: %s", r.ID)
	}
	fmt.Fprintf(&b, "\nstatus: %s", r.Status)
	return b.String()
}

func formatAmount(v float64) string {
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.8f", v), "0"), ".")
}

func Module() fx.Option {
	return fx.Module("notify",
		fx.Provide(New),
	)
}
