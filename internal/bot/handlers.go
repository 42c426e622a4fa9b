package bot

import (
	"context"
	"log/slog"
	"strings"

	"github.com/m3rciful/storybot/core/logger"
	tg "github.com/m3rciful/storybot/core/telegram"
	"github.com/m3rciful/storybot/core/telegram/callbacks"
	"github.com/m3rciful/storybot/core/telegram/commands"
	"github.com/m3rciful/storybot/core/telegram/helpers"
	"github.com/m3rciful/storybot/internal/chat"
	"github.com/m3rciful/storybot/internal/story"
	"github.com/m3rciful/storybot/internal/users"

	tele "gopkg.in/telebot.v4"
)

type chatAction func(ctx context.Context, out chat.Outbox, msg chat.TextMessage) error

type handlers struct {
	chat  *chat.Service
	users *users.Service
	reg   *tg.Registry
	// invalid is the callback answer for buttons the bot does not know.
	invalid string
}

type commandSpec struct {
	name string
	cmd  commands.Command
}

// register fills reg with the bot's commands, the game callback and the text fallback.
func (h *handlers) register() error {
	specs := []commandSpec{
		{"/start", commands.Command{
			Handler:     h.command(h.chat.Start),
			Description: "Начать общение с ботом",
		}},
		{"/help", commands.Command{
			Handler:     h.help,
			Description: "Список команд",
			Help:        `"/help" присылает список команд, "/help <команда> ..." описание каждой из них.`,
		}},
		{"/meme", commands.Command{
			Handler:     h.command(h.chat.Meme),
			Description: "Прислать мем",
			Help:        `"/meme <тема> ..." присылает мем на каждую тему. Без тем присылает случайный мем.`,
		}},
		{"/music", commands.Command{
			Handler:     h.command(h.chat.Music),
			Description: "Прислать песню",
			Help:        `"/music <исполнитель> ..." присылает песню каждого исполнителя. Без исполнителей присылает случайную песню.`,
		}},
		{"/movie", commands.Command{
			Handler:     h.command(h.chat.Movie),
			Description: "Посоветовать фильм",
		}},
		{"/bochka", commands.Command{
			Handler:     h.command(h.chat.Bochka),
			Description: "Бочка",
			Hidden:      true,
		}},
		{"/topics", commands.Command{
			Handler:     h.command(h.chat.Topics),
			Description: "Темы мемов",
		}},
		{"/singers", commands.Command{
			Handler:     h.command(h.chat.Singers),
			Description: "Исполнители песен",
		}},
		{"/start_game", commands.Command{
			Handler:     h.command(h.chat.StartGame),
			Description: "Запустить игру",
			Help:        "Открывает меню текстовой игры. Незавершённую игру можно продолжить или начать заново.",
		}},
		{"/add_admins", commands.Command{
			Handler:     h.command(h.chat.AddAdmins),
			Description: "Назначить админов",
			Help:        `"/add_admins <chat_id> ..." выдаёт права админа пользователям, запустившим бота.`,
			AdminOnly:   true,
		}},
		{"/delete_admins", commands.Command{
			Handler:     h.command(h.chat.DeleteAdmins),
			Description: "Снять админов",
			Help:        `"/delete_admins <chat_id> ..." снимает права админа.`,
			AdminOnly:   true,
		}},
	}
	for _, s := range specs {
		if err := h.reg.RegisterCommand(s.name, s.cmd); err != nil {
			return err
		}
	}

	if err := h.reg.RegisterCallback(storyUnique, h.choose); err != nil {
		return err
	}
	h.reg.SetCallbackNotFound(func(c tele.Context) error {
		return c.Respond(&tele.CallbackResponse{Text: h.invalid})
	})
	h.reg.SetTextFallback(h.command(h.chat.HandleText))
	return nil
}

func (h *handlers) command(run chatAction) tele.HandlerFunc {
	return func(c tele.Context) error {
		return run(helpers.BuildContext(c), outbox{c: c}, textMessage(c))
	}
}

func (h *handlers) help(c tele.Context) error {
	ctx := helpers.BuildContext(c)
	msg := textMessage(c)
	admin, err := h.users.IsAdmin(ctx, msg.UserID)
	if err != nil {
		logger.LogEvent(ctx, logger.SVCUsers, slog.LevelWarn, "users.is_admin",
			slog.String("status", logger.Status(err)),
			slog.String("err", err.Error()),
		)
	}
	return h.chat.Help(ctx, outbox{c: c}, msg, registryHelp{reg: h.reg, admin: admin})
}

func (h *handlers) choose(c tele.Context) error {
	ev := story.CallbackEvent{
		OriginMessageID: callbacks.OriginMessageID(c),
		Token:           callbacks.CallbackPayload(c),
	}
	if ch := c.Chat(); ch != nil {
		ev.ChatID = ch.ID
	}
	return h.chat.Choose(helpers.BuildContext(c), outbox{c: c}, ev)
}

func textMessage(c tele.Context) chat.TextMessage {
	msg := chat.TextMessage{Text: c.Text(), Args: c.Args()}
	if ch := c.Chat(); ch != nil {
		msg.ChatID = ch.ID
	}
	if u := c.Sender(); u != nil {
		msg.UserID = u.ID
		msg.Username = u.Username
	}
	return msg
}

// registryHelp exposes registered commands to /help. Admin-only commands are listed
// for admins only; any known command can be described.
type registryHelp struct {
	reg   *tg.Registry
	admin bool
}

func (r registryHelp) Names() []string {
	cmds := r.reg.ListCommands(true, r.admin)
	names := make([]string, 0, len(cmds))
	for _, c := range cmds {
		names = append(names, strings.TrimPrefix(c.Text, "/"))
	}
	return names
}

func (r registryHelp) HelpFor(name string) (string, bool) {
	_, cmd, ok := r.reg.LookupCommand(name)
	if !ok {
		return "", false
	}
	return cmd.HelpText(), true
}
