package ratelimiter

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	privateChatInterval = time.Second
	groupChatInterval   = 3 * time.Second
)

var ErrStopped = errors.New("rate limiter is stopped")

// API is the part of *tgbotapi.BotAPI the limiter forwards to.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// RateLimiter books one send slot per chat interval. Callers sleep until
// their slot, so sends to one chat leave in the order they were booked.
type RateLimiter struct {
	api      API
	mu       sync.Mutex
	nextSlot map[int64]time.Time
	stopped  chan struct{}
	stopOnce sync.Once
	log      *slog.Logger
}

func New(api API, log *slog.Logger) *RateLimiter {
	return &RateLimiter{
		api:      api,
		nextSlot: make(map[int64]time.Time),
		stopped:  make(chan struct{}),
		log:      log,
	}
}

// Send waits for the chat's next slot and sends a message, edit or document.
func (rl *RateLimiter) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	chatID := chatIDOf(c)

	if wait := rl.reserve(chatID, time.Now()); wait > 0 {
		rl.log.Debug("Rate limiting message",
			"chatID", chatID,
			"delay", wait,
			"chattableType", fmt.Sprintf("%T", c))

		timer := time.NewTimer(wait)
		defer timer.Stop()

		select {
		case <-timer.C:
		case <-rl.stopped:
			return tgbotapi.Message{}, ErrStopped
		}
	}

	select {
	case <-rl.stopped:
		return tgbotapi.Message{}, ErrStopped
	default:
	}

	return rl.api.Send(c)
}

// Request bypasses pacing. It is meant for chat actions, callback answers
// and deletions, which Telegram does not count against the message rate.
func (rl *RateLimiter) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	return rl.api.Request(c)
}

// Stop fails pending and future sends with ErrStopped.
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stopped) })
}

// reserve books the first free slot for chatID and returns the wait for it.
func (rl *RateLimiter) reserve(chatID int64, now time.Time) time.Duration {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	slot := now
	if next, ok := rl.nextSlot[chatID]; ok && next.After(now) {
		slot = next
	}
	rl.nextSlot[chatID] = slot.Add(intervalFor(chatID))

	return slot.Sub(now)
}

// Group and channel chats have negative IDs.
func intervalFor(chatID int64) time.Duration {
	if chatID < 0 {
		return groupChatInterval
	}
	return privateChatInterval
}

func chatIDOf(c tgbotapi.Chattable) int64 {
	switch m := c.(type) {
	case tgbotapi.MessageConfig:
		return m.ChatID
	case tgbotapi.EditMessageTextConfig:
		return m.ChatID
	case tgbotapi.EditMessageReplyMarkupConfig:
		return m.ChatID
	case tgbotapi.DocumentConfig:
		return m.ChatID
	default:
		return 0
	}
}
