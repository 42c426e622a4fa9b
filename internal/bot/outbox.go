package bot

import (
	"context"
	"strconv"

	"github.com/m3rciful/storybot/core/telegram/helpers"
	"github.com/m3rciful/storybot/core/telegram/keyboard"
	"github.com/m3rciful/storybot/core/telegram/middleware"
	"github.com/m3rciful/storybot/internal/chat"
	"github.com/m3rciful/storybot/internal/story"

	tele "gopkg.in/telebot.v4"
)

// storyUnique is the callback key of game buttons; the payload is the choice token.
const storyUnique = "story"

// outbox sends replies on behalf of one update.
//
// Game prompts go straight to the Bot API: their message id is stored in the session
// and a retried send could leave a second live keyboard. Everything else goes through
// the dispatcher.
type outbox struct {
	c tele.Context
}

var _ chat.Outbox = outbox{}

func (o outbox) SendPrompt(ctx context.Context, chatID int64, text string, kb story.Keyboard) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	msg, err := o.c.Bot().Send(tele.ChatID(chatID), text, promptMarkup(kb))
	if err != nil {
		return 0, err
	}
	middleware.RecordSent(o.c, true)
	return msg.ID, nil
}

func (o outbox) SendText(_ context.Context, chatID int64, text string) (int, error) {
	return o.deliver("send.text", "sendMessage", chatID, text)
}

func (o outbox) SendPhoto(_ context.Context, chatID int64, url string) (int, error) {
	return o.deliver("send.photo", "sendPhoto", chatID, &tele.Photo{File: tele.FromURL(url)})
}

func (o outbox) SendContact(_ context.Context, chatID int64, c chat.Contact) error {
	_, err := o.deliver("send.contact", "sendContact", chatID, &tele.Contact{
		PhoneNumber: c.Phone,
		FirstName:   c.FirstName,
		LastName:    c.LastName,
	})
	return err
}

func (o outbox) ClearKeyboard(ctx context.Context, chatID int64, messageID int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := o.c.Bot().EditReplyMarkup(tele.StoredMessage{
		MessageID: strconv.Itoa(messageID),
		ChatID:    chatID,
	}, nil)
	return err
}

func (o outbox) deliver(action, endpoint string, chatID int64, what any) (int, error) {
	var sent *tele.Message
	err := helpers.Deliver(o.c, action, endpoint, func() error {
		msg, err := o.c.Bot().Send(tele.ChatID(chatID), what)
		if err != nil {
			return err
		}
		sent = msg
		return nil
	})
	if err != nil {
		return 0, err
	}
	middleware.RecordSent(o.c, false)
	return sent.ID, nil
}

func promptMarkup(kb story.Keyboard) *tele.ReplyMarkup {
	rows := make([][]keyboard.Button, 0, len(kb))
	for _, row := range kb {
		btns := make([]keyboard.Button, 0, len(row))
		for _, b := range row {
			btns = append(btns, keyboard.Button{Text: b.Label, Unique: storyUnique, Data: b.Token})
		}
		rows = append(rows, btns)
	}
	return keyboard.Inline(rows...)
}
