package channels

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/mattn/go-mastodon"

	"github.com/tootrelay/tootrelay/internal/config/channel"
	"github.com/tootrelay/tootrelay/internal/relay"
)

const (
	mastodonName      = "mastodon"
	mastodonUserAgent = "tootrelay"
	mastodonMediaPath = "/api/v2/media"
)

// MastodonChannel publishes statuses and media on a Mastodon instance.
type MastodonChannel struct {
	cfg    *channel.MastodonConfig
	client *mastodon.Client
	logger *slog.Logger
}

// NewMastodonChannel creates a client for cfg.Instance. No request is made
// until the first call.
func NewMastodonChannel(cfg *channel.MastodonConfig, logger *slog.Logger) *MastodonChannel {
	if logger == nil {
		logger = slog.Default()
	}
	c := mastodon.NewClient(&mastodon.Config{
		Server:      strings.TrimRight(cfg.Instance, "/"),
		AccessToken: cfg.Token,
	})
	c.Timeout = 60 * time.Second
	c.UserAgent = mastodonUserAgent
	return &MastodonChannel{cfg: cfg, client: c, logger: logger}
}

func (m *MastodonChannel) Name() string { return mastodonName }

// CreatePost implements relay.Destination.
func (m *MastodonChannel) CreatePost(ctx context.Context, p relay.Post) (string, error) {
	toot := &mastodon.Toot{
		Status:     p.Text,
		Visibility: p.Visibility.String(),
	}
	if p.ReplyTo != "" {
		toot.InReplyToID = mastodon.ID(p.ReplyTo)
	}
	if p.MediaID != "" {
		toot.MediaIDs = []mastodon.ID{mastodon.ID(p.MediaID)}
	}

	status, err := m.client.PostStatus(ctx, toot)
	if err != nil {
		return "", fmt.Errorf("mastodon: post status: %w", err)
	}
	m.logger.Info("mastodon: posted", "uri", status.URI, "id", status.ID)
	return string(status.ID), nil
}

// UploadMedia implements relay.Destination. Typed uploads carry their MIME
// type on the multipart part; untyped ones go through the library and let
// the server sniff the content.
func (m *MastodonChannel) UploadMedia(ctx context.Context, u relay.Upload) (string, error) {
	var (
		att *mastodon.Attachment
		err error
	)
	switch {
	case u.MimeType != "":
		att, err = m.uploadTyped(ctx, u.Data, u.MimeType)
	case u.Path != "":
		att, err = m.client.UploadMedia(ctx, u.Path)
	default:
		att, err = m.client.UploadMediaFromBytes(ctx, u.Data)
	}
	if err != nil {
		return "", fmt.Errorf("mastodon: upload media: %w", err)
	}
	m.logger.Debug("mastodon: media uploaded", "id", att.ID, "type", att.Type)
	return string(att.ID), nil
}

func (m *MastodonChannel) uploadTyped(ctx context.Context, data []byte, mimeType string) (*mastodon.Attachment, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	filename := "upload"
	if exts, _ := mime.ExtensionsByType(mimeType); len(exts) > 0 {
		filename += exts[0]
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	h.Set("Content-Type", mimeType)
	part, err := mw.CreatePart(h)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(data); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.client.Config.Server+mastodonMediaPath, &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+m.client.Config.AccessToken)
	req.Header.Set("User-Agent", m.client.UserAgent)

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	// 202 means the file is still being processed; the id is usable already.
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("mastodon api error: %s body=%s", resp.Status, strings.TrimSpace(string(respBody)))
	}

	var att mastodon.Attachment
	if err := json.NewDecoder(resp.Body).Decode(&att); err != nil {
		return nil, fmt.Errorf("decode attachment: %w", err)
	}
	return &att, nil
}

// WhoAmI implements relay.Destination.
func (m *MastodonChannel) WhoAmI(ctx context.Context) (string, error) {
	acct, err := m.client.GetAccountCurrentUser(ctx)
	if err != nil {
		return "", err
	}
	return "@" + acct.Acct, nil
}
