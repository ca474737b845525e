package chat

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/kbehari1995/habit-snake-bot/internal/domain/service"
)

// Event is one inbound chat update, already stripped down to what the
// flows need. Exactly one of Command, CallbackData, Text is set.
type Event struct {
	UserID       int64  `json:"user_id"`
	Username     string `json:"username"`
	Command      string `json:"command,omitempty"`
	CallbackData string `json:"callback_data,omitempty"`
	Text         string `json:"text,omitempty"`
}

// Handler consumes inbound chat events.
type Handler interface {
	Handle(ctx context.Context, ev Event) error
}

// Dispatcher routes inbound events to the conversation flows. Commands
// start flows, callbacks are routed by data prefix, and free text is
// offered to each text-consuming flow in turn.
type Dispatcher struct {
	checkin  service.CheckinFlow
	dnd      service.DndFlow
	habits   service.HabitSetupFlow
	notifier service.Notifier
}

// NewDispatcher creates the inbound event router.
func NewDispatcher(
	checkin service.CheckinFlow,
	dnd service.DndFlow,
	habits service.HabitSetupFlow,
	notifier service.Notifier,
) *Dispatcher {
	return &Dispatcher{checkin: checkin, dnd: dnd, habits: habits, notifier: notifier}
}

func (d *Dispatcher) Handle(ctx context.Context, ev Event) error {
	switch {
	case ev.Command != "":
		return d.handleCommand(ctx, ev)
	case ev.CallbackData != "":
		return d.handleCallback(ctx, ev)
	case ev.Text != "":
		return d.handleText(ctx, ev)
	}
	return nil
}

func (d *Dispatcher) handleCommand(ctx context.Context, ev Event) error {
	switch strings.TrimPrefix(ev.Command, "/") {
	case "checkin":
		return d.checkin.Start(ctx, ev.UserID, ev.Username)
	case "dnd":
		return d.dnd.Start(ctx, ev.UserID, ev.Username)
	case "sethabits":
		return d.habits.Start(ctx, ev.UserID, ev.Username)
	case "start", "help":
		return d.notifier.SendToUser(ctx, ev.UserID, helpText, nil)
	default:
		return d.notifier.SendToUser(ctx, ev.UserID,
			fmt.Sprintf("Unknown command %q. %s", ev.Command, helpText), nil)
	}
}

func (d *Dispatcher) handleCallback(ctx context.Context, ev Event) error {
	prefix, _, ok := strings.Cut(ev.CallbackData, "|")
	if !ok {
		log.Printf("Dropping malformed callback data %q from user %d", ev.CallbackData, ev.UserID)
		return nil
	}
	switch prefix {
	case "date", "habit", "second":
		return d.checkin.HandleCallback(ctx, ev.UserID, ev.CallbackData)
	case "dnd", "dndsel", "dndok", "dndedit", "dndact", "dndhab":
		return d.dnd.HandleCallback(ctx, ev.UserID, ev.CallbackData)
	case "habits":
		return d.habits.HandleCallback(ctx, ev.UserID, ev.CallbackData)
	default:
		log.Printf("Dropping callback with unknown prefix %q from user %d", prefix, ev.UserID)
		return nil
	}
}

// handleText offers free text to the flows that accept it; whichever
// has an awaiting session claims the message.
func (d *Dispatcher) handleText(ctx context.Context, ev Event) error {
	handled, err := d.dnd.HandleText(ctx, ev.UserID, ev.Text)
	if handled || err != nil {
		return err
	}
	handled, err = d.habits.HandleText(ctx, ev.UserID, ev.Text)
	if handled || err != nil {
		return err
	}
	return nil
}

const helpText = "Commands:\n" +
	"/sethabits — declare your core habits for the month\n" +
	"/checkin — record yesterday's or today's habits\n" +
	"/dnd — manage Do Not Disturb periods"
