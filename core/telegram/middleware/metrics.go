package middleware

import (
	tele "gopkg.in/telebot.v4"
)

const countersKey = "storybot.reply_counters"

// replyCounters tallies what one update produced. Handlers of a chat run one at a
// time, so plain fields are enough.
type replyCounters struct {
	messages int
	keyboard bool
}

// countingContext records every successful Send and Reply made through the context.
type countingContext struct {
	tele.Context
	counters *replyCounters
}

func (c countingContext) Send(what any, opts ...any) error {
	return c.count(c.Context.Send(what, opts...), opts)
}

func (c countingContext) Reply(what any, opts ...any) error {
	return c.count(c.Context.Reply(what, opts...), opts)
}

func (c countingContext) count(err error, opts []any) error {
	if err == nil {
		c.counters.add(carriesMarkup(opts))
	}
	return err
}

func (rc *replyCounters) add(withKeyboard bool) {
	rc.messages++
	rc.keyboard = rc.keyboard || withKeyboard
}

func carriesMarkup(opts []any) bool {
	for _, o := range opts {
		switch v := o.(type) {
		case *tele.ReplyMarkup:
			return v != nil
		case *tele.SendOptions:
			return v != nil && v.ReplyMarkup != nil
		}
	}
	return false
}

// MessageMetricsMiddleware counts the replies each update produces; the handler
// summary reads them back with GetCounters.
func MessageMetricsMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		rc := &replyCounters{}
		c.Set(countersKey, rc)
		return next(countingContext{Context: c, counters: rc})
	}
}

// RecordSent counts a message sent straight through the bot rather than c.Send.
func RecordSent(c tele.Context, withKeyboard bool) {
	if c == nil {
		return
	}
	if rc, ok := c.Get(countersKey).(*replyCounters); ok {
		rc.add(withKeyboard)
	}
}

// GetCounters reports how many messages the update produced and whether any had a keyboard.
func GetCounters(c tele.Context) (messages int, keyboard bool) {
	if rc, ok := c.Get(countersKey).(*replyCounters); ok {
		return rc.messages, rc.keyboard
	}
	return 0, false
}
