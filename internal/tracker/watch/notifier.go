package watch

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Min interval between two messages to the same chat, Telegram answers 429 above ~30/min.
const telegramSendInterval = 2 * time.Second

const queueSize = 100

var (
	ErrNotifierStopped = errors.New("notifier stopped")
	ErrQueueFull       = errors.New("message queue is full")
)

// Notifier delivers alerts. Notify must not block on delivery.
type Notifier interface {
	Notify(ctx context.Context, alert Alert) error
	Stop()
}

// chatSender is the part of tgbotapi.BotAPI the notifier uses.
type chatSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramNotifier queues alerts and sends them to one chat, spacing messages out.
type TelegramNotifier struct {
	bot      chatSender
	chatID   int64
	interval time.Duration
	logger   *slog.Logger

	queue chan Alert
	done  chan struct{}
	ctx   context.Context
	stop  context.CancelFunc
	once  sync.Once
}

// NewTelegramNotifier connects the bot and starts the sender goroutine.
func NewTelegramNotifier(token string, chatID int64, logger *slog.Logger) (*TelegramNotifier, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	bot.Debug = false
	return newTelegramNotifier(bot, chatID, telegramSendInterval, logger), nil
}

func newTelegramNotifier(bot chatSender, chatID int64, interval time.Duration, logger *slog.Logger) *TelegramNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	n := &TelegramNotifier{
		bot:      bot,
		chatID:   chatID,
		interval: interval,
		logger:   logger,
		queue:    make(chan Alert, queueSize),
		done:     make(chan struct{}),
		ctx:      ctx,
		stop:     cancel,
	}
	go n.sender()
	n.logger.Info("telegram notifier initialized", "chat_id", chatID)
	return n
}

// Notify queues the alert; a full queue drops it.
func (n *TelegramNotifier) Notify(ctx context.Context, alert Alert) error {
	select {
	case <-n.ctx.Done():
		return ErrNotifierStopped
	default:
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case n.queue <- alert:
		return nil
	default:
		n.logger.Warn("telegram queue full, dropping alert", "kind", alert.Kind, "fixture_id", alert.FixtureID)
		return ErrQueueFull
	}
}

// QueueLen returns the number of alerts waiting to be sent.
func (n *TelegramNotifier) QueueLen() int {
	return len(n.queue)
}

// Stop flushes queued alerts and waits for the sender to exit.
func (n *TelegramNotifier) Stop() {
	n.once.Do(n.stop)
	<-n.done
}

func (n *TelegramNotifier) sender() {
	defer close(n.done)

	var last time.Time
	send := func(a Alert) {
		if wait := n.interval - time.Since(last); !last.IsZero() && wait > 0 {
			time.Sleep(wait)
		}
		last = time.Now()
		msg := tgbotapi.NewMessage(n.chatID, a.Text())
		msg.ParseMode = tgbotapi.ModeMarkdown
		if _, err := n.bot.Send(msg); err != nil {
			n.logger.Error("telegram send failed", "error", err, "kind", a.Kind, "fixture_id", a.FixtureID)
			return
		}
		n.logger.Debug("telegram alert sent", "kind", a.Kind, "fixture_id", a.FixtureID, "queue_length", len(n.queue))
	}

	for {
		select {
		case <-n.ctx.Done():
			// дочищаем очередь перед выходом
			for {
				select {
				case a := <-n.queue:
					send(a)
				default:
					return
				}
			}
		case a := <-n.queue:
			send(a)
		}
	}
}

// LogNotifier writes alerts to the log; used when no Telegram bot is configured.
type LogNotifier struct {
	Logger *slog.Logger
}

func (l LogNotifier) Notify(_ context.Context, alert Alert) error {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("watch alert", "kind", alert.Kind, "fixture_id", alert.FixtureID, "phrase", alert.Phrase, "from", alert.From, "to", alert.To)
	return nil
}

func (LogNotifier) Stop() {}
