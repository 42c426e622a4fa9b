package state

import tele "gopkg.in/telebot.v4"

// Serialize holds the chat lock for the whole downstream handler. Updates without a chat
// fall back to the sender id; updates with neither run unlocked.
func Serialize(l *ChatLocker) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			key := lockKey(c)
			if key == 0 || l == nil {
				return next(c)
			}
			unlock := l.Lock(key)
			defer unlock()
			return next(c)
		}
	}
}

func lockKey(c tele.Context) int64 {
	if chat := c.Chat(); chat != nil {
		return chat.ID
	}
	if user := c.Sender(); user != nil {
		return user.ID
	}
	return 0
}
