// Package chat turns inbound messages into replies: it routes free text to intents,
// runs the bot's commands and hands game events to the story engine.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/m3rciful/storybot/core/logger"
	"github.com/m3rciful/storybot/internal/apperr"
	"github.com/m3rciful/storybot/internal/content"
	"github.com/m3rciful/storybot/internal/intent"
	"github.com/m3rciful/storybot/internal/lemma"
	"github.com/m3rciful/storybot/internal/story"
	"github.com/m3rciful/storybot/internal/users"
)

// Contact is the support contact attached to the movie reply.
type Contact struct {
	Phone     string
	FirstName string
	LastName  string
}

// Outbox delivers replies to one chat.
type Outbox interface {
	story.Prompter
	SendPhoto(ctx context.Context, chatID int64, url string) (int, error)
	SendContact(ctx context.Context, chatID int64, c Contact) error
}

// HelpIndex describes the commands shown by /help.
type HelpIndex interface {
	// Names returns the visible command names, without the slash, in display order.
	Names() []string
	HelpFor(name string) (string, bool)
}

// TextMessage is an inbound text or command. Args holds the command arguments.
type TextMessage struct {
	ChatID   int64
	UserID   int64
	Username string
	Text     string
	Args     []string
}

// Texts holds the fixed replies of the service.
type Texts struct {
	Greeting       string
	NotUnderstood  string
	Movie          string
	Bochka         string
	TopicsHeader   string
	SingersHeader  string
	HelpHeader     string
	UnknownCommand string
	Failure        string
}

// DefaultTexts returns the Russian replies used by the bot.
func DefaultTexts() Texts {
	return Texts{
		Greeting:      "Привет!",
		NotUnderstood: "Я не понимаю о чём ты говоришь...",
		Movie:         "Работа в процессе. Вы можете поддержать проект: ",
		Bochka:        "...Басс колбасит соло Колбасёр по пояс голый...",
		TopicsHeader:  "Список имеющихся тем мемов:",
		SingersHeader: "Список имеющихся исполнителей песен:",
		HelpHeader: `Введите "/help <название_команды> <ещё_названия команд>", ` +
			"чтобы получить более подробное описание определенных команд.\nСписок команд:",
		UnknownCommand: `Нет команды "%s"`,
		Failure:        "Что-то пошло не так, попробуйте позже.",
	}
}

// Deps are the collaborators of a Service.
type Deps struct {
	Normalizer lemma.Normalizer
	Router     *intent.Router
	Resolver   *content.Resolver
	Catalog    content.Catalog
	Engine     *story.Engine
	Users      *users.Service
	Contact    Contact
	Texts      *Texts
	// StoreTimeout bounds catalog reads; 0 leaves them unbounded.
	StoreTimeout time.Duration
}

// Service handles chat events. It is safe for concurrent use; events of one chat
// must be serialized by the caller.
type Service struct {
	normalizer   lemma.Normalizer
	router       *intent.Router
	resolver     *content.Resolver
	catalog      content.Catalog
	engine       *story.Engine
	users        *users.Service
	contact      Contact
	texts        Texts
	storeTimeout time.Duration
}

// NewService validates deps and builds a Service.
func NewService(d Deps) (*Service, error) {
	switch {
	case d.Normalizer == nil:
		return nil, errors.New("chat: normalizer is required")
	case d.Router == nil:
		return nil, errors.New("chat: router is required")
	case d.Resolver == nil || d.Catalog == nil:
		return nil, errors.New("chat: content resolver and catalog are required")
	case d.Engine == nil:
		return nil, errors.New("chat: story engine is required")
	case d.Users == nil:
		return nil, errors.New("chat: users service is required")
	}
	texts := DefaultTexts()
	if d.Texts != nil {
		texts = *d.Texts
	}
	return &Service{
		normalizer:   d.Normalizer,
		router:       d.Router,
		resolver:     d.Resolver,
		catalog:      d.Catalog,
		engine:       d.Engine,
		users:        d.Users,
		contact:      d.Contact,
		texts:        texts,
		storeTimeout: d.StoreTimeout,
	}, nil
}

// HandleText routes free text: every matching intent runs once, in keyword table
// order. Text matching no intent gets the fallback reply and nothing else.
func (s *Service) HandleText(ctx context.Context, out Outbox, msg TextMessage) error {
	tokens := s.normalizer.Normalize(msg.Text)
	intents, err := s.router.Route(tokens)
	intent.LogRoute(ctx, tokens, intents, err)
	if errors.Is(err, intent.ErrNoMatch) {
		_, sendErr := out.SendText(ctx, msg.ChatID, s.texts.NotUnderstood)
		return sendErr
	}
	if err != nil {
		return err
	}

	var errs []error
	for _, in := range intents {
		if err := s.dispatch(ctx, out, msg, in, tokens); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", in, err))
		}
	}
	return errors.Join(errs...)
}

func (s *Service) dispatch(ctx context.Context, out Outbox, msg TextMessage, in intent.Intent, tokens lemma.Set) error {
	switch in {
	case intent.Meme, intent.Music:
		return s.sendContent(ctx, out, msg.ChatID, in, content.Request{Tokens: tokens})
	case intent.Movie:
		return s.Movie(ctx, out, msg)
	case intent.Game:
		return s.engine.StartGame(ctx, out, msg.ChatID)
	case intent.Bochka:
		return s.Bochka(ctx, out, msg)
	default:
		return fmt.Errorf("chat: no handler for intent %q", in)
	}
}

// Start registers the chat and greets it.
func (s *Service) Start(ctx context.Context, out Outbox, msg TextMessage) error {
	if err := s.users.Register(ctx, msg.ChatID, msg.Username); err != nil {
		_, _ = out.SendText(ctx, msg.ChatID, s.texts.Failure)
		return err
	}
	_, err := out.SendText(ctx, msg.ChatID, s.texts.Greeting)
	return err
}

// Help lists the commands, or describes each command named in the arguments.
func (s *Service) Help(ctx context.Context, out Outbox, msg TextMessage, idx HelpIndex) error {
	if len(msg.Args) == 0 {
		text := s.texts.HelpHeader
		if names := idx.Names(); len(names) > 0 {
			text += "\n/" + strings.Join(names, "\n/")
		}
		_, err := out.SendText(ctx, msg.ChatID, text)
		return err
	}
	var errs []error
	for _, name := range msg.Args {
		reply, ok := idx.HelpFor(name)
		if !ok {
			reply = fmt.Sprintf(s.texts.UnknownCommand, name)
		}
		if _, err := out.SendText(ctx, msg.ChatID, reply); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Meme sends memes for the command arguments, or for the message text when there are none.
func (s *Service) Meme(ctx context.Context, out Outbox, msg TextMessage) error {
	return s.sendContent(ctx, out, msg.ChatID, intent.Meme, s.request(msg))
}

// Music sends songs for the command arguments, or for the message text when there are none.
func (s *Service) Music(ctx context.Context, out Outbox, msg TextMessage) error {
	return s.sendContent(ctx, out, msg.ChatID, intent.Music, s.request(msg))
}

// Movie answers with the work-in-progress note and the support contact.
func (s *Service) Movie(ctx context.Context, out Outbox, msg TextMessage) error {
	if _, err := out.SendText(ctx, msg.ChatID, s.texts.Movie); err != nil {
		return err
	}
	if s.contact.Phone == "" {
		return nil
	}
	return out.SendContact(ctx, msg.ChatID, s.contact)
}

// Bochka sends the easter egg line.
func (s *Service) Bochka(ctx context.Context, out Outbox, msg TextMessage) error {
	_, err := out.SendText(ctx, msg.ChatID, s.texts.Bochka)
	return err
}

// StartGame opens the game menu.
func (s *Service) StartGame(ctx context.Context, out Outbox, msg TextMessage) error {
	return s.engine.StartGame(ctx, out, msg.ChatID)
}

// Choose applies a pressed game button.
func (s *Service) Choose(ctx context.Context, out Outbox, ev story.CallbackEvent) error {
	return s.engine.Choose(ctx, out, ev)
}

// Topics lists the known meme topics.
func (s *Service) Topics(ctx context.Context, out Outbox, msg TextMessage) error {
	return s.sendList(ctx, out, msg.ChatID, s.texts.TopicsHeader, s.catalog.ListTopics)
}

// Singers lists the known singers.
func (s *Service) Singers(ctx context.Context, out Outbox, msg TextMessage) error {
	return s.sendList(ctx, out, msg.ChatID, s.texts.SingersHeader, s.catalog.ListSingers)
}

// AddAdmins grants admin rights to the chats listed in the arguments.
func (s *Service) AddAdmins(ctx context.Context, out Outbox, msg TextMessage) error {
	replies, err := s.users.Grant(ctx, msg.Args)
	return s.sendAll(ctx, out, msg.ChatID, replies, err)
}

// DeleteAdmins revokes admin rights from the chats listed in the arguments.
func (s *Service) DeleteAdmins(ctx context.Context, out Outbox, msg TextMessage) error {
	replies, err := s.users.Revoke(ctx, msg.Args)
	return s.sendAll(ctx, out, msg.ChatID, replies, err)
}

// request builds a content request; an empty argument list selects inferred mode.
func (s *Service) request(msg TextMessage) content.Request {
	return content.Request{Tokens: s.normalizer.Normalize(msg.Text), Filters: msg.Args}
}

func (s *Service) sendContent(ctx context.Context, out Outbox, chatID int64, in intent.Intent, req content.Request) error {
	rctx, cancel := s.storeContext(ctx)
	msgs, err := s.resolver.Resolve(rctx, in, req)
	cancel()
	if err != nil {
		if apperr.Is(err, apperr.StoreUnavailable) {
			_, _ = out.SendText(ctx, chatID, s.texts.Failure)
		}
		return err
	}
	var errs []error
	for _, m := range msgs {
		var sendErr error
		if m.Kind == content.Photo {
			_, sendErr = out.SendPhoto(ctx, chatID, m.Body)
		} else {
			_, sendErr = out.SendText(ctx, chatID, m.Body)
		}
		if sendErr != nil {
			errs = append(errs, apperr.New(apperr.SendFailed, "chat.content", sendErr))
		}
	}
	return errors.Join(errs...)
}

func (s *Service) sendList(ctx context.Context, out Outbox, chatID int64, header string, list func(context.Context) ([]string, error)) error {
	lctx, cancel := s.storeContext(ctx)
	items, err := list(lctx)
	cancel()
	if err != nil {
		logger.LogEvent(ctx, logger.SVCContent, slog.LevelWarn, "content.list",
			slog.String("status", logger.Status(err)),
			slog.String("err", err.Error()),
		)
		_, _ = out.SendText(ctx, chatID, s.texts.Failure)
		return apperr.New(apperr.StoreUnavailable, "chat.list", err)
	}
	text := header
	if len(items) > 0 {
		text += "\n- " + strings.Join(items, "\n- ")
	}
	_, err = out.SendText(ctx, chatID, text)
	return err
}

func (s *Service) sendAll(ctx context.Context, out Outbox, chatID int64, replies []string, cause error) error {
	errs := []error{cause}
	for _, r := range replies {
		if _, err := out.SendText(ctx, chatID, r); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *Service) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.storeTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.storeTimeout)
}
