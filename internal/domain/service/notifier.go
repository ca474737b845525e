package service

import "context"

// Button is one inline control offered with a message; Data is echoed
// back by the transport as callback data when pressed.
type Button struct {
	Label string `json:"label"`
	Data  string `json:"data"`
}

// Keyboard is rows of buttons.
type Keyboard [][]Button

// Row builds a single-row keyboard.
func Row(buttons ...Button) Keyboard {
	return Keyboard{buttons}
}

// Notifier delivers messages to a user's chat or to the shared channel.
// Delivery timeouts and retries belong to the transport behind it.
type Notifier interface {
	SendToUser(ctx context.Context, userID int64, text string, kb Keyboard) error
	// EditLastMessage replaces the bot's last message to the user,
	// used to advance inline-keyboard conversations in place.
	EditLastMessage(ctx context.Context, userID int64, text string, kb Keyboard) error
	SendToChannel(ctx context.Context, text string) error
}
