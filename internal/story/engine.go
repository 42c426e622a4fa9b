// Package story runs the interactive narrative: a per-chat state machine over an
// immutable stage graph, driven by inline button tokens.
package story

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/m3rciful/storybot/core/logger"
	"github.com/m3rciful/storybot/internal/apperr"
)

// Button is an inline button; Token is delivered back on press.
type Button struct {
	Label string
	Token string
}

// Keyboard is a list of button rows.
type Keyboard [][]Button

// Prompter delivers engine output to a chat. Send methods return the new message id.
type Prompter interface {
	SendPrompt(ctx context.Context, chatID int64, text string, kb Keyboard) (int, error)
	SendText(ctx context.Context, chatID int64, text string) (int, error)
	ClearKeyboard(ctx context.Context, chatID int64, messageID int) error
}

// CallbackEvent is a pressed button.
type CallbackEvent struct {
	ChatID          int64
	OriginMessageID int
	Token           string
}

// Texts holds every fixed reply and caption of the game.
type Texts struct {
	Launch        string
	Unfinished    string
	Begin         string
	Restart       string
	Resume        string
	Exit          string
	Finished      string
	InvalidAction string
	Failure       string
}

// DefaultTexts returns the Russian texts used by the bot.
func DefaultTexts() Texts {
	return Texts{
		Launch:        "Запускаю игру.",
		Unfinished:    "Вы не завершили игру в прошлый раз. Желаете продолжить или начать заново?",
		Begin:         "Начать",
		Restart:       "Начать заново",
		Resume:        "Продолжить",
		Exit:          "Выход",
		Finished:      "Игра завершена.",
		InvalidAction: "Недопустимое действие.",
		Failure:       "Что-то пошло не так, попробуйте позже.",
	}
}

// Engine applies game events to sessions. It holds no session state between events;
// callers serialize events of one chat.
type Engine struct {
	graph        *Graph
	store        SessionStore
	texts        Texts
	storeTimeout time.Duration
}

// Option customizes an Engine.
type Option func(*Engine)

// WithTexts replaces the game texts.
func WithTexts(t Texts) Option {
	return func(e *Engine) { e.texts = t }
}

// WithStoreTimeout bounds every session store call.
func WithStoreTimeout(d time.Duration) Option {
	return func(e *Engine) { e.storeTimeout = d }
}

// NewEngine builds an engine over graph and store.
func NewEngine(graph *Graph, store SessionStore, opts ...Option) (*Engine, error) {
	if graph == nil || store == nil {
		return nil, errors.New("story: graph and store are required")
	}
	e := &Engine{graph: graph, store: store, texts: DefaultTexts(), storeTimeout: 3 * time.Second}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Graph returns the engine's stage graph.
func (e *Engine) Graph() *Graph { return e.graph }

// StartGame shows the start menu: begin/exit for a chat that is not playing,
// restart/resume/exit for one that is. The previous prompt loses its keyboard.
func (e *Engine) StartGame(ctx context.Context, p Prompter, chatID int64) error {
	const op = "story.start"
	s, err := e.load(ctx, chatID)
	if err != nil {
		return e.fail(ctx, p, chatID, op, err)
	}
	e.retractKeyboard(ctx, p, chatID, s.LastPromptMessageID)

	text, kb := e.menu(s)
	msgID, err := p.SendPrompt(ctx, chatID, text, kb)
	if err != nil {
		return apperr.New(apperr.SendFailed, op, err)
	}

	next := s
	next.LastPromptMessageID = msgID
	if err := e.save(ctx, next); err != nil {
		e.retractKeyboard(ctx, p, chatID, msgID)
		return e.fail(ctx, p, chatID, op, err)
	}
	e.logTransition(ctx, op, s, next, "")
	return nil
}

// Choose applies a pressed button. The originating message loses its keyboard first.
// Unknown tokens get the invalid-action reply and leave the session untouched.
func (e *Engine) Choose(ctx context.Context, p Prompter, ev CallbackEvent) error {
	const op = "story.choose"
	e.retractKeyboard(ctx, p, ev.ChatID, ev.OriginMessageID)

	s, err := e.load(ctx, ev.ChatID)
	if err != nil {
		return e.fail(ctx, p, ev.ChatID, op, err)
	}

	step, err := e.graph.Transition(s, ev.Token)
	if err != nil {
		logger.LogEvent(ctx, logger.SVCStory, slog.LevelInfo, "story.transition",
			slog.String("status", "skip"),
			slog.String("stage", s.CurrentStageID),
			slog.String("token", ev.Token),
			slog.String("err_code", string(apperr.CodeOf(err))),
		)
		_, _ = p.SendText(ctx, ev.ChatID, e.texts.InvalidAction)
		return err
	}

	next := s
	var msgID int
	if step.Exit {
		if _, err = p.SendText(ctx, ev.ChatID, e.texts.Finished); err != nil {
			return apperr.New(apperr.SendFailed, op, err)
		}
		next.IsPlaying = false
		next.LastPromptMessageID = 0
	} else {
		msgID, err = p.SendPrompt(ctx, ev.ChatID, step.Stage.Text, e.stageKeyboard(step.Stage))
		if err != nil {
			return apperr.New(apperr.SendFailed, op, err)
		}
		next.IsPlaying = true
		next.CurrentStageID = step.Stage.ID
		next.LastPromptMessageID = msgID
	}

	if err := e.save(ctx, next); err != nil {
		e.retractKeyboard(ctx, p, ev.ChatID, msgID)
		return e.fail(ctx, p, ev.ChatID, op, err)
	}
	e.logTransition(ctx, op, s, next, ev.Token)
	return nil
}

func (e *Engine) menu(s Session) (string, Keyboard) {
	exit := []Button{{Label: e.texts.Exit, Token: TokenExit}}
	if !s.IsPlaying {
		return e.texts.Launch, Keyboard{
			{{Label: e.texts.Begin, Token: TokenRestart}},
			exit,
		}
	}
	return e.texts.Unfinished, Keyboard{
		{{Label: e.texts.Restart, Token: TokenRestart}, {Label: e.texts.Resume, Token: TokenResume}},
		exit,
	}
}

func (e *Engine) stageKeyboard(st Stage) Keyboard {
	kb := make(Keyboard, 0, len(st.Choices)+1)
	for _, ch := range st.Choices {
		kb = append(kb, []Button{{Label: ch.Label, Token: ch.Token}})
	}
	return append(kb, []Button{{Label: e.texts.Exit, Token: TokenExit}})
}

// retractKeyboard removes the keyboard of msgID. Failures (message edited or deleted
// already, chat gone) are logged and dropped here and nowhere else.
func (e *Engine) retractKeyboard(ctx context.Context, p Prompter, chatID int64, msgID int) {
	if msgID == 0 {
		return
	}
	if err := p.ClearKeyboard(ctx, chatID, msgID); err != nil {
		uiErr := apperr.New(apperr.BestEffortUIFailure, "story.retract", err)
		logger.LogEvent(ctx, logger.SVCStory, slog.LevelDebug, "story.retract",
			slog.String("status", "skip"),
			slog.Int("message_id", msgID),
			slog.String("err_code", uiErr.Code()),
			slog.String("err", logger.SanitizeLimit(uiErr.Error(), 256)),
		)
	}
}

// fail answers with the generic failure text and returns err as a store failure.
func (e *Engine) fail(ctx context.Context, p Prompter, chatID int64, op string, err error) error {
	logger.LogEvent(ctx, logger.SVCStory, slog.LevelWarn, op,
		slog.String("status", logger.Status(err)),
		slog.String("err_code", string(apperr.StoreUnavailable)),
		slog.String("err", err.Error()),
	)
	_, _ = p.SendText(ctx, chatID, e.texts.Failure)
	return apperr.New(apperr.StoreUnavailable, op, err)
}

func (e *Engine) load(ctx context.Context, chatID int64) (Session, error) {
	ctx, cancel := e.storeContext(ctx)
	defer cancel()
	s, err := e.store.Load(ctx, chatID)
	if err != nil {
		return Session{}, fmt.Errorf("load session: %w", err)
	}
	return s, nil
}

func (e *Engine) save(ctx context.Context, s Session) error {
	ctx, cancel := e.storeContext(ctx)
	defer cancel()
	if err := e.store.Save(ctx, s); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (e *Engine) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.storeTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, e.storeTimeout)
}

func (e *Engine) logTransition(ctx context.Context, op string, from, to Session, token string) {
	logger.LogEvent(ctx, logger.SVCStory, slog.LevelInfo, "story.transition",
		slog.String("status", "ok"),
		slog.String("operation", op),
		slog.String("stage", from.CurrentStageID),
		slog.String("target", to.CurrentStageID),
		slog.String("token", token),
		slog.Bool("playing", to.IsPlaying),
		slog.Int("message_id", to.LastPromptMessageID),
	)
}
