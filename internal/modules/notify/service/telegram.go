package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"signal_bot/internal/models"
	"signal_bot/pkg/logger"
)

// SignalDesk — команды /signals и /close смотрят в lifecycle-менеджер.
// Ставится сеттером после сборки графа.
type SignalDesk interface {
	ActiveList() []models.Signal
	ManualClose(ctx context.Context, id string) error
}

// Telegram — пассивный нотифайер + пара команд оператора.
type Telegram struct {
	bot    *tgbot.BotAPI
	chatID int64

	desk SignalDesk
}

func NewTelegram(token string, chatID int64) (*Telegram, error) {
	b, err := tgbot.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	return &Telegram{bot: b, chatID: chatID}, nil
}

func (t *Telegram) SetDesk(d SignalDesk) { t.desk = d }

func (t *Telegram) send(msg string) {
	if t == nil || t.bot == nil || t.chatID == 0 {
		return
	}
	if _, err := t.bot.Send(tgbot.NewMessage(t.chatID, msg)); err != nil {
		logger.Error("[TG] send: %v", err)
	}
}

func (t *Telegram) sendf(format string, args ...any) { t.send(fmt.Sprintf(format, args...)) }

// EntryAlert — карточка входа.
func (t *Telegram) EntryAlert(_ context.Context, s *models.Signal) {
	emoji := "🟢"
	if s.Direction == models.DirectionPE {
		emoji = "🔴"
	}
	t.sendf(`%s СИГНАЛ %s
%s %.0f %s [%s]
Вход: %.2f | SL: %.2f
Цели: %.2f / %.2f / %.2f
Уверенность: %.0f%%
%s`,
		emoji, s.ID,
		s.Instrument, s.Strike, s.Direction, s.Product,
		s.EntryPrice, s.StopLoss,
		s.Target1, s.Target2, s.Target3,
		s.Confidence, s.Reason)
}

// ExitAlert — карточка выхода с деньгами по лоту.
func (t *Telegram) ExitAlert(_ context.Context, s *models.Signal, reason string, pnl float64) {
	emoji := "✅"
	if pnl < 0 {
		emoji = "❌"
	}
	t.sendf(`%s ВЫХОД %s (%s)
%s %.0f %s: %.2f -> %.2f
P&L: %+.2f пт | %+.2f ₹ (лот %d)`,
		emoji, s.ID, reason,
		s.Instrument, s.Strike, s.Direction, s.EntryPrice, s.ExitPrice,
		s.PnL, pnl, s.LotSize)
}

func (t *Telegram) Summary(_ context.Context, text string) { t.send(text) }

func (t *Telegram) handleSignals() {
	if t.desk == nil {
		return
	}
	sigs := t.desk.ActiveList()
	if len(sigs) == 0 {
		t.send("📭 Открытых сигналов нет")
		return
	}
	sort.Slice(sigs, func(i, j int) bool { return sigs[i].CreatedAt.Before(sigs[j].CreatedAt) })

	var b strings.Builder
	b.WriteString("📊 Открытые сигналы:\n")
	for _, s := range sigs {
		fmt.Fprintf(&b, "- %s %s %.0f%s @ %.2f -> %.2f (%+.2f пт, trail %.2f)\n",
			s.ID, s.Instrument, s.Strike, s.Direction, s.EntryPrice, s.CurrentPrice, s.PnL, s.TrailingStop)
	}
	t.send(b.String())
}

func (t *Telegram) handleClose(ctx context.Context, args string) {
	if t.desk == nil {
		return
	}
	id := strings.TrimSpace(args)
	if id == "" {
		t.send("Использование: /close SIG-...")
		return
	}
	if err := t.desk.ManualClose(ctx, id); err != nil {
		t.sendf("❗️ %v", err)
		return
	}
	t.sendf("🤝 %s закрыт вручную", id)
}

// Start — long-polling команд оператора.
func (t *Telegram) Start(ctx context.Context) error {
	if t == nil || t.bot == nil {
		return nil
	}

	u := tgbot.NewUpdate(0)
	u.Timeout = 30
	u.AllowedUpdates = []string{"message"}

	updates := t.bot.GetUpdatesChan(u)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case upd := <-updates:
				if upd.Message == nil || upd.Message.Chat == nil ||
					upd.Message.Chat.ID != t.chatID || !upd.Message.IsCommand() {
					continue
				}
				switch upd.Message.Command() {
				case "signals":
					go t.handleSignals()
				case "close":
					args := upd.Message.CommandArguments()
					go t.handleClose(ctx, args)
				}
			}
		}
	}()
	return nil
}

func (t *Telegram) Stop() { t.bot.StopReceivingUpdates() }
