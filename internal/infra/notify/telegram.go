package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/jmorataya/tipica-pos/internal/domain/products"
)

// Telegram шлёт оповещения о низких остатках в админский чат.
// Доставка не влияет на продажу: ошибки только логируются.
type Telegram struct {
	api  *tgbotapi.BotAPI
	chat int64
	log  *slog.Logger
}

func NewTelegram(token string, adminChatID int64, log *slog.Logger) (*Telegram, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	return &Telegram{api: api, chat: adminChatID, log: log}, nil
}

func (t *Telegram) LowStock(_ context.Context, ps []products.Product) {
	if len(ps) == 0 {
		return
	}

	var b strings.Builder
	b.WriteString("Мало на складе:\n")
	for _, p := range ps {
		if p.Kind == products.KindCut {
			fmt.Fprintf(&b, "• %s — %s ярд. (%s)\n", p.Name, p.YardsOnHand.StringFixed(2), p.CutState)
		} else {
			fmt.Fprintf(&b, "• %s — %d шт.\n", p.Name, p.Stock)
		}
	}

	if _, err := t.api.Send(tgbotapi.NewMessage(t.chat, b.String())); err != nil {
		t.log.Error("low stock alert failed", "err", err)
	}
}
