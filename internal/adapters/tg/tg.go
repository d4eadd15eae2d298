// Package tg implements ports.Messenger on top of TDLib, authorized as a
// bot account.
package tg

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/zelenin/go-tdlib/client"

	"github.com/larriantoniy/dl_slot_bot/internal/domain"
)

type Client struct {
	client *client.Client
	logger *slog.Logger
	tmpDir string
	selfID int64
}

func NewClient(apiID int32, apiHash, botToken, baseDir string, log *slog.Logger) (*Client, error) {
	dbDir := filepath.Join(baseDir, "database")
	filesDir := filepath.Join(baseDir, "files")
	tmpDir := filepath.Join(baseDir, "outbox")

	for _, dir := range []string{dbDir, filesDir, tmpDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}

	if _, err := client.SetLogVerbosityLevel(&client.SetLogVerbosityLevelRequest{
		NewVerbosityLevel: 1,
	}); err != nil {
		log.Error("TDLib SetLogVerbosityLevel", "error", err)
	}

	tdParams := &client.SetTdlibParametersRequest{
		UseTestDc:          false,
		DatabaseDirectory:  dbDir,
		FilesDirectory:     filesDir,
		UseFileDatabase:    true,
		UseMessageDatabase: true,
		UseSecretChats:     false,
		ApiId:              apiID,
		ApiHash:            apiHash,
		SystemLanguageCode: "en",
		DeviceModel:        "Server",
		SystemVersion:      "1.0",
		ApplicationVersion: "1.0",
	}

	authorizer := client.BotAuthorizer(tdParams, botToken)

	tdCli, err := client.NewClient(authorizer)
	if err != nil {
		log.Error("TDLib NewClient error", "error", err)
		return nil, err
	}

	me, err := tdCli.GetMe()
	if err != nil {
		log.Error("GetMe failed", "error", err)
		return nil, err
	}

	log.Info("TDLib bot client authorized", "self_id", me.Id)

	return &Client{
		client: tdCli,
		logger: log,
		tmpDir: tmpDir,
		selfID: me.Id,
	}, nil
}

func (t *Client) Close() {
	t.client.Close()
}

// Listen converts TDLib updates into domain messages. Only incoming text
// from private chats is forwarded; everything else is dropped.
func (t *Client) Listen() (<-chan domain.Message, error) {
	out := make(chan domain.Message)

	listener := t.client.GetListener()
	go func() {
		defer close(out)
		for update := range listener.Updates {
			upd, ok := update.(*client.UpdateNewMessage)
			if !ok {
				continue
			}
			msg, ok := t.toDomainMessage(upd)
			if !ok {
				continue
			}
			out <- msg
		}
	}()

	return out, nil
}

func (t *Client) toDomainMessage(upd *client.UpdateNewMessage) (domain.Message, bool) {
	msg := upd.Message
	if msg.IsOutgoing || msg.IsChannelPost {
		return domain.Message{}, false
	}

	sender, ok := msg.SenderId.(*client.MessageSenderUser)
	if !ok || sender.UserId == t.selfID {
		return domain.Message{}, false
	}

	content, ok := msg.Content.(*client.MessageText)
	if !ok || content.Text == nil {
		return domain.Message{}, false
	}

	chat, err := t.client.GetChat(&client.GetChatRequest{ChatId: msg.ChatId})
	if err != nil {
		t.logger.Error("GetChat failed", "chat_id", msg.ChatId, "error", err)
		return domain.Message{}, false
	}
	if _, private := chat.Type.(*client.ChatTypePrivate); !private {
		return domain.Message{}, false
	}

	return domain.Message{
		ChatID: msg.ChatId,
		UserID: sender.UserId,
		Text:   content.Text.Text,
	}, true
}

func (t *Client) SendMessage(chatID int64, text string) error {
	_, err := t.client.SendMessage(&client.SendMessageRequest{
		ChatId: chatID,
		InputMessageContent: &client.InputMessageText{
			Text:       &client.FormattedText{Text: text},
			ClearDraft: true,
		},
	})
	if err != nil {
		t.logger.Error("SendMessage failed", "chat_id", chatID, "error", err)
		return err
	}
	return nil
}

// SendPhoto stages the image on disk for TDLib to upload. The upload is
// asynchronous, so cleanup is deferred rather than immediate.
func (t *Client) SendPhoto(chatID int64, caption string, image []byte) error {
	f, err := os.CreateTemp(t.tmpDir, "captcha-*.jpg")
	if err != nil {
		return fmt.Errorf("stage photo: %w", err)
	}
	path := f.Name()
	if _, err := f.Write(image); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("stage photo: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return fmt.Errorf("stage photo: %w", err)
	}

	_, err = t.client.SendMessage(&client.SendMessageRequest{
		ChatId: chatID,
		InputMessageContent: &client.InputMessagePhoto{
			Photo:   &client.InputFileLocal{Path: path},
			Caption: &client.FormattedText{Text: caption},
		},
	})
	if err != nil {
		t.logger.Error("SendPhoto failed", "chat_id", chatID, "error", err)
		os.Remove(path)
		return err
	}

	time.AfterFunc(time.Minute, func() { os.Remove(path) })
	return nil
}
