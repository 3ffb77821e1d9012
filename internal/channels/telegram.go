package channels

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/tootrelay/tootrelay/internal/bus"
	"github.com/tootrelay/tootrelay/internal/config/channel"
	"github.com/tootrelay/tootrelay/internal/relay"
)

const telegramName = "telegram"

// TelegramChannel reads channel posts via long polling and serves file
// downloads to the relay.
type TelegramChannel struct {
	Base
	cfg    *channel.TelegramConfig
	bot    *tgbotapi.BotAPI
	client *http.Client
}

// NewTelegramChannel connects to the Bot API. tgbotapi checks the token with
// getMe while connecting, so a bad token fails here.
func NewTelegramChannel(cfg *channel.TelegramConfig, b bus.Bus, client *http.Client, logger *slog.Logger) (*TelegramChannel, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("telegram: bot token not configured")
	}
	if client == nil {
		client = &http.Client{Timeout: time.Duration(cfg.PollTimeout+30) * time.Second}
	}
	endpoint := cfg.APIEndpoint
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}

	t := &TelegramChannel{
		Base:   NewBase(telegramName, b, cfg.AllowFrom, logger),
		cfg:    cfg,
		client: client,
	}
	_ = tgbotapi.SetLogger(botLogger{t.logger})

	bot, err := tgbotapi.NewBotAPIWithClient(cfg.Token, endpoint, client)
	if err != nil {
		return nil, fmt.Errorf("telegram: create bot: %w", err)
	}
	bot.Debug = cfg.Debug
	t.bot = bot
	t.logger.Info("telegram: connected", "username", bot.Self.UserName)
	return t, nil
}

func (t *TelegramChannel) Name() string { return telegramName }

// Start polls for channel posts and publishes them on the bus in arrival
// order. It blocks until ctx is cancelled.
func (t *TelegramChannel) Start(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = t.cfg.PollTimeout
	u.AllowedUpdates = []string{"channel_post"}
	updates := t.bot.GetUpdatesChan(u)
	t.logger.Info("telegram: polling started", "timeout", u.Timeout)

	for {
		select {
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if err := t.handleUpdate(ctx, update); err != nil {
				if errors.Is(err, context.Canceled) {
					t.bot.StopReceivingUpdates()
					return err
				}
				t.logger.Error("telegram: publish failed", "update_id", update.UpdateID, "err", err)
			}
		case <-ctx.Done():
			t.bot.StopReceivingUpdates()
			t.logger.Info("telegram: polling stopped")
			return ctx.Err()
		}
	}
}

func (t *TelegramChannel) handleUpdate(ctx context.Context, update tgbotapi.Update) error {
	post := update.ChannelPost
	if post == nil || post.Chat == nil {
		return nil
	}
	msg := toInbound(post)
	t.logger.Info("telegram: new channel post", "message", msg, "kind", msg.Kind())
	return t.HandleMessage(ctx, post.Chat.ID, post.Chat.UserName, msg)
}

// toInbound converts a Bot API channel post. The largest photo size is
// relayed; it is the last one Telegram lists.
func toInbound(m *tgbotapi.Message) bus.InboundMessage {
	var content bus.Content
	switch {
	case len(m.Photo) > 0:
		content = bus.Photo{
			Caption: m.Caption,
			File:    bus.MediaRef{FileID: m.Photo[len(m.Photo)-1].FileID},
		}
	case m.Video != nil:
		content = bus.Video{
			Caption: m.Caption,
			File:    bus.MediaRef{FileID: m.Video.FileID},
		}
	case m.Text != "":
		content = bus.Text{Body: m.Text}
	default:
		content = bus.Unsupported{Type: contentType(m)}
	}

	origin := bus.Origin{}
	if m.Chat != nil {
		origin.ChannelTitle = m.Chat.Title
		origin.ChannelHandle = m.Chat.UserName
	}
	if m.ForwardFromChat != nil {
		origin.ForwardedFrom = m.ForwardFromChat.Title
	}

	id := strconv.Itoa(m.MessageID)
	if m.Chat != nil {
		id = strconv.FormatInt(m.Chat.ID, 10) + ":" + id
	}
	return bus.NewInboundMessage(id, content, origin)
}

func contentType(m *tgbotapi.Message) string {
	switch {
	case m.Animation != nil:
		return "animation"
	case m.Audio != nil:
		return "audio"
	case m.Document != nil:
		return "document"
	case m.Sticker != nil:
		return "sticker"
	case m.Voice != nil:
		return "voice"
	case m.VideoNote != nil:
		return "video_note"
	case m.Poll != nil:
		return "poll"
	case m.Location != nil:
		return "location"
	default:
		return "unknown"
	}
}

// FetchFile implements relay.Source.
func (t *TelegramChannel) FetchFile(_ context.Context, fileID string) (relay.FileInfo, error) {
	f, err := t.bot.GetFile(tgbotapi.FileConfig{FileID: fileID})
	if err != nil {
		return relay.FileInfo{}, fmt.Errorf("telegram: get file: %w", err)
	}
	return relay.FileInfo{FileID: f.FileID, Path: f.FilePath, Size: f.FileSize}, nil
}

// Download implements relay.Source.
func (t *TelegramChannel) Download(ctx context.Context, path string) ([]byte, error) {
	endpoint := t.cfg.FileEndpoint
	if endpoint == "" {
		endpoint = tgbotapi.FileEndpoint
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf(endpoint, t.cfg.Token, path), nil)
	if err != nil {
		return nil, err
	}
	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("telegram: download %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("telegram: download %s: %s", path, resp.Status)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("telegram: download %s: %w", path, err)
	}
	return data, nil
}

// WhoAmI implements relay.Source.
func (t *TelegramChannel) WhoAmI(context.Context) (string, error) {
	me, err := t.bot.GetMe()
	if err != nil {
		return "", err
	}
	return "@" + me.UserName, nil
}

// botLogger routes tgbotapi's internal logging through slog.
type botLogger struct{ l *slog.Logger }

func (b botLogger) Println(v ...interface{}) {
	b.l.Warn("telegram: " + fmt.Sprint(v...))
}

func (b botLogger) Printf(format string, v ...interface{}) {
	b.l.Warn("telegram: " + fmt.Sprintf(format, v...))
}
