package service

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kbehari1995/habit-snake-bot/internal/domain/entity"
	"github.com/kbehari1995/habit-snake-bot/internal/domain/repository"
	"github.com/kbehari1995/habit-snake-bot/internal/domain/service"
	"github.com/kbehari1995/habit-snake-bot/pkg/clock"
)

// Callback data prefixes for the DND editor conversation.
const (
	cbDndMenu   = "dnd"    // add | edit | done
	cbDndSelect = "dndsel" // habit index | all | cancel
	cbDndAddOk  = "dndok"  // confirm | cancel
	cbDndEdit   = "dndedit"
	cbDndAction = "dndact" // habit | dates | delete | back
	cbDndHabit  = "dndhab"
)

type dndFlow struct {
	store    repository.Store
	sessions repository.SessionStore
	notifier service.Notifier
	clock    clock.Clock
}

// NewDndFlow creates the DND window editor state machine. All edits are
// queued against an in-memory working copy and flushed to the store as
// one best-effort batch when the session ends.
func NewDndFlow(
	store repository.Store,
	sessions repository.SessionStore,
	notifier service.Notifier,
	clk clock.Clock,
) service.DndFlow {
	return &dndFlow{store: store, sessions: sessions, notifier: notifier, clock: clk}
}

func (f *dndFlow) Start(ctx context.Context, userID int64, username string) error {
	if err := f.store.Refresh(ctx); err != nil {
		return fmt.Errorf("failed to refresh store: %w", err)
	}

	windows := f.store.DndWindows(userID)
	working := make([]entity.DndWindow, len(windows))
	for i, w := range windows {
		working[i] = *w
	}

	sess := &entity.DndSession{
		UserID:   userID,
		Username: username,
		Stage:    entity.DndList,
		Working:  working,
	}
	if err := f.sessions.SaveDndSession(ctx, sess); err != nil {
		return fmt.Errorf("failed to save DND session: %w", err)
	}
	return f.notifier.SendToUser(ctx, userID, formatWindowList(sess.Working), mainDndKeyboard())
}

func (f *dndFlow) HandleCallback(ctx context.Context, userID int64, data string) error {
	sess, err := f.sessions.DndSession(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to load DND session: %w", err)
	}
	if sess == nil {
		return f.notifier.EditLastMessage(ctx, userID,
			"No DND session found. Use /dnd to start.", nil)
	}

	prefix, value, ok := strings.Cut(data, "|")
	if !ok {
		return nil
	}
	switch prefix {
	case cbDndMenu:
		return f.handleMenu(ctx, sess, value)
	case cbDndSelect:
		return f.handleHabitSelection(ctx, sess, value)
	case cbDndAddOk:
		return f.handleAddConfirmation(ctx, sess, value)
	case cbDndEdit:
		return f.handleEditSelect(ctx, sess, value)
	case cbDndAction:
		return f.handleEditAction(ctx, sess, value)
	case cbDndHabit:
		return f.handleEditHabit(ctx, sess, value)
	}
	return nil
}

func (f *dndFlow) handleMenu(ctx context.Context, sess *entity.DndSession, value string) error {
	switch value {
	case "add":
		return f.startAddFlow(ctx, sess)
	case "edit":
		return f.showList(ctx, sess, true)
	case "done":
		return f.endSession(ctx, sess, "DND session ended.")
	}
	return nil
}

func (f *dndFlow) startAddFlow(ctx context.Context, sess *entity.DndSession) error {
	month := f.clock.Now().Format(entity.YearMonthLayout)
	habits := coreHabits(f.store.HabitsForMonth(sess.UserID, month))
	if len(habits) == 0 {
		return f.endSession(ctx, sess,
			"No habits found for this month. Set your core habits first to use DND.")
	}

	sess.MonthHabits = make([]entity.HabitRef, len(habits))
	for i, h := range habits {
		sess.MonthHabits[i] = entity.HabitRef{ID: h.ID, Text: h.Text}
	}

	sess.Selected = nil
	sess.Stage = entity.DndSelectingHabits
	if err := f.sessions.SaveDndSession(ctx, sess); err != nil {
		return fmt.Errorf("failed to save DND session: %w", err)
	}
	return f.notifier.EditLastMessage(ctx, sess.UserID, "Select habits to set DND:",
		habitSelectionKeyboard(sess.MonthHabits))
}

func (f *dndFlow) handleHabitSelection(ctx context.Context, sess *entity.DndSession, value string) error {
	if sess.Stage != entity.DndSelectingHabits && sess.Stage != entity.DndEnteringDates {
		return nil
	}
	switch value {
	case "cancel":
		return f.endSession(ctx, sess, "DND setup cancelled.")
	case "all":
		sess.Selected = sess.Selected[:0]
		for i := range sess.MonthHabits {
			sess.Selected = append(sess.Selected, i)
		}
	default:
		idx, err := strconv.Atoi(value)
		if err != nil || idx < 0 || idx >= len(sess.MonthHabits) {
			return nil
		}
		sess.Selected = toggleIndex(sess.Selected, idx)
		if len(sess.Selected) == 0 {
			if err := f.sessions.SaveDndSession(ctx, sess); err != nil {
				return fmt.Errorf("failed to save DND session: %w", err)
			}
			return f.notifier.EditLastMessage(ctx, sess.UserID,
				"Please select at least one habit.",
				habitSelectionKeyboard(sess.MonthHabits))
		}
	}

	var names []string
	for _, i := range sess.Selected {
		names = append(names, sess.MonthHabits[i].Text)
	}
	sess.Stage = entity.DndEnteringDates
	if err := f.sessions.SaveDndSession(ctx, sess); err != nil {
		return fmt.Errorf("failed to save DND session: %w", err)
	}
	return f.notifier.EditLastMessage(ctx, sess.UserID,
		fmt.Sprintf("Selected habits:\n%s\n\nEnter the start and end dates as YYYY-MM-DD YYYY-MM-DD, e.g. 2025-01-15 2025-01-20.",
			bulletList(names)), nil)
}

func (f *dndFlow) handleAddConfirmation(ctx context.Context, sess *entity.DndSession, value string) error {
	if sess.Stage != entity.DndConfirmingAdd {
		return nil
	}
	if value != "confirm" {
		return f.endSession(ctx, sess, "DND setup cancelled.")
	}

	now := f.clock.Now()
	count := 0
	for _, i := range sess.Selected {
		habit := sess.MonthHabits[i]
		window := entity.DndWindow{
			ID:        uuid.New(),
			UserID:    sess.UserID,
			HabitID:   habit.ID,
			HabitText: habit.Text,
			YearMonth: now.Format(entity.YearMonthLayout),
			StartDate: sess.StartDate,
			EndDate:   sess.EndDate,
			CreatedAt: now.UTC(),
		}
		sess.Working = append(sess.Working, window)
		sess.Pending = append(sess.Pending, entity.DndOp{Kind: entity.DndOpAdd, Window: window})
		count++
	}

	return f.endSession(ctx, sess, fmt.Sprintf(
		"DND periods added!\n\nPeriod: %s to %s\n%d habit(s) excluded from check-ins.",
		sess.StartDate, sess.EndDate, count))
}

func (f *dndFlow) handleEditSelect(ctx context.Context, sess *entity.DndSession, value string) error {
	if sess.Stage != entity.DndEditSelect {
		return nil
	}
	idx, err := strconv.Atoi(value)
	if err != nil || idx < 0 || idx >= len(sess.Working) {
		return f.showList(ctx, sess, true)
	}

	sess.EditIdx = idx
	sess.Stage = entity.DndEditAction
	if err := f.sessions.SaveDndSession(ctx, sess); err != nil {
		return fmt.Errorf("failed to save DND session: %w", err)
	}
	entry := sess.Working[idx]
	kb := service.Keyboard{
		{
			{Label: "Change Habit", Data: cbDndAction + "|habit"},
			{Label: "Edit Dates", Data: cbDndAction + "|dates"},
		},
		{
			{Label: "Delete", Data: cbDndAction + "|delete"},
			{Label: "Back", Data: cbDndAction + "|back"},
		},
	}
	return f.notifier.EditLastMessage(ctx, sess.UserID,
		fmt.Sprintf("What would you like to do with this entry?\n%s: %s → %s",
			entry.HabitText, entry.StartDate, entry.EndDate), kb)
}

func (f *dndFlow) handleEditAction(ctx context.Context, sess *entity.DndSession, value string) error {
	switch value {
	case "habit":
		if sess.Stage != entity.DndEditAction {
			return nil
		}
		month := f.clock.Now().Format(entity.YearMonthLayout)
		habits := coreHabits(f.store.HabitsForMonth(sess.UserID, month))
		if len(habits) == 0 {
			return f.showList(ctx, sess, true)
		}
		sess.MonthHabits = make([]entity.HabitRef, len(habits))
		kb := make(service.Keyboard, 0, len(habits))
		for i, h := range habits {
			sess.MonthHabits[i] = entity.HabitRef{ID: h.ID, Text: h.Text}
			kb = append(kb, []service.Button{
				{Label: h.Text, Data: fmt.Sprintf("%s|%d", cbDndHabit, i)},
			})
		}
		sess.Stage = entity.DndEditHabit
		if err := f.sessions.SaveDndSession(ctx, sess); err != nil {
			return fmt.Errorf("failed to save DND session: %w", err)
		}
		return f.notifier.EditLastMessage(ctx, sess.UserID, "Select a new habit:", kb)

	case "dates":
		if sess.Stage != entity.DndEditAction {
			return nil
		}
		sess.Stage = entity.DndEditDates
		if err := f.sessions.SaveDndSession(ctx, sess); err != nil {
			return fmt.Errorf("failed to save DND session: %w", err)
		}
		return f.notifier.EditLastMessage(ctx, sess.UserID,
			"Enter new start and end dates as YYYY-MM-DD YYYY-MM-DD, e.g. 2025-01-15 2025-01-20.", nil)

	case "delete":
		if sess.Stage != entity.DndEditAction || sess.EditIdx >= len(sess.Working) {
			return f.showList(ctx, sess, true)
		}
		target := sess.Working[sess.EditIdx]
		sess.Working = append(sess.Working[:sess.EditIdx], sess.Working[sess.EditIdx+1:]...)
		sess.Pending = append(sess.Pending, entity.DndOp{
			Kind:   entity.DndOpDelete,
			Target: target.ID.String(),
		})
		return f.showList(ctx, sess, true)

	case "back":
		return f.showList(ctx, sess, true)
	}
	return nil
}

func (f *dndFlow) handleEditHabit(ctx context.Context, sess *entity.DndSession, value string) error {
	if sess.Stage != entity.DndEditHabit {
		return nil
	}
	idx, err := strconv.Atoi(value)
	if err != nil || idx < 0 || idx >= len(sess.MonthHabits) || sess.EditIdx >= len(sess.Working) {
		return f.showList(ctx, sess, true)
	}

	habit := sess.MonthHabits[idx]
	entry := &sess.Working[sess.EditIdx]
	upd := entity.DndWindowUpdate{HabitID: &habit.ID, HabitText: &habit.Text}
	upd.Apply(entry)
	sess.Pending = append(sess.Pending, entity.DndOp{
		Kind:   entity.DndOpEdit,
		Target: entry.ID.String(),
		Update: upd,
	})
	return f.showList(ctx, sess, true)
}

// HandleText consumes the date-pair inputs of the add and edit flows.
// Validation failures re-prompt the same step and never end the session.
func (f *dndFlow) HandleText(ctx context.Context, userID int64, text string) (bool, error) {
	sess, err := f.sessions.DndSession(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("failed to load DND session: %w", err)
	}
	if sess == nil || (sess.Stage != entity.DndEnteringDates && sess.Stage != entity.DndEditDates) {
		return false, nil
	}

	start, end, err := parseDatePair(text)
	if err != nil {
		return true, f.notifier.SendToUser(ctx, userID, err.Error(), nil)
	}

	if sess.Stage == entity.DndEnteringDates {
		sess.StartDate = start
		sess.EndDate = end
		sess.Stage = entity.DndConfirmingAdd
		if err := f.sessions.SaveDndSession(ctx, sess); err != nil {
			return true, fmt.Errorf("failed to save DND session: %w", err)
		}
		kb := service.Keyboard{
			{{Label: "Confirm", Data: cbDndAddOk + "|confirm"}},
			{{Label: "Cancel", Data: cbDndAddOk + "|cancel"}},
		}
		return true, f.notifier.SendToUser(ctx, userID,
			fmt.Sprintf("DND period: %s to %s (%d days). Confirm?", start, end, daySpan(start, end)), kb)
	}

	// Editing an existing window's dates.
	if sess.EditIdx >= len(sess.Working) {
		return true, f.showList(ctx, sess, false)
	}
	entry := &sess.Working[sess.EditIdx]
	upd := entity.DndWindowUpdate{StartDate: &start, EndDate: &end}
	upd.Apply(entry)
	sess.Pending = append(sess.Pending, entity.DndOp{
		Kind:   entity.DndOpEdit,
		Target: entry.ID.String(),
		Update: upd,
	})
	return true, f.showList(ctx, sess, false)
}

// showList re-displays the working copy with edit controls. The edit
// flag selects message editing vs sending a fresh message (text inputs
// cannot be edited over).
func (f *dndFlow) showList(ctx context.Context, sess *entity.DndSession, edit bool) error {
	deliver := f.notifier.SendToUser
	if edit {
		deliver = f.notifier.EditLastMessage
	}

	if len(sess.Working) == 0 {
		sess.Stage = entity.DndList
		if err := f.sessions.SaveDndSession(ctx, sess); err != nil {
			return fmt.Errorf("failed to save DND session: %w", err)
		}
		return deliver(ctx, sess.UserID, formatWindowList(nil), mainDndKeyboard())
	}

	var editRow []service.Button
	for i := range sess.Working {
		editRow = append(editRow, service.Button{
			Label: fmt.Sprintf("Edit %d", i+1),
			Data:  fmt.Sprintf("%s|%d", cbDndEdit, i),
		})
	}
	kb := service.Keyboard{
		editRow,
		{
			{Label: "Done", Data: cbDndMenu + "|done"},
			{Label: "Add", Data: cbDndMenu + "|add"},
		},
	}

	sess.Stage = entity.DndEditSelect
	if err := f.sessions.SaveDndSession(ctx, sess); err != nil {
		return fmt.Errorf("failed to save DND session: %w", err)
	}
	return deliver(ctx, sess.UserID, formatWindowList(sess.Working), kb)
}

// endSession flushes the pending queue and tears the session down.
func (f *dndFlow) endSession(ctx context.Context, sess *entity.DndSession, message string) error {
	f.flush(ctx, sess)
	_ = f.sessions.DeleteDndSession(ctx, sess.UserID)
	return f.notifier.EditLastMessage(ctx, sess.UserID, message, nil)
}

// flush applies the queued operations to the store in order. Partial
// failures are logged and the remainder still attempted; there is no
// rollback.
func (f *dndFlow) flush(ctx context.Context, sess *entity.DndSession) {
	if len(sess.Pending) == 0 {
		return
	}
	for _, op := range sess.Pending {
		var err error
		switch op.Kind {
		case entity.DndOpAdd:
			w := op.Window
			err = f.store.AddDndWindow(ctx, &w)
		case entity.DndOpEdit:
			var id uuid.UUID
			if id, err = uuid.Parse(op.Target); err == nil {
				err = f.store.UpdateDndWindow(ctx, id, op.Update)
			}
		case entity.DndOpDelete:
			var id uuid.UUID
			if id, err = uuid.Parse(op.Target); err == nil {
				err = f.store.DeleteDndWindow(ctx, id)
			}
		}
		if err != nil {
			log.Printf("Failed to apply DND %s for user %d: %v", op.Kind, sess.UserID, err)
		}
	}
	sess.Pending = nil
	if err := f.store.Refresh(ctx); err != nil {
		log.Printf("Failed to refresh store after DND flush: %v", err)
	}
}

func habitSelectionKeyboard(habits []entity.HabitRef) service.Keyboard {
	kb := make(service.Keyboard, 0, len(habits)+2)
	for i, h := range habits {
		kb = append(kb, []service.Button{
			{Label: h.Text, Data: fmt.Sprintf("%s|%d", cbDndSelect, i)},
		})
	}
	return append(kb,
		[]service.Button{{Label: "All", Data: cbDndSelect + "|all"}},
		[]service.Button{{Label: "Cancel", Data: cbDndSelect + "|cancel"}},
	)
}

func mainDndKeyboard() service.Keyboard {
	return service.Keyboard{{
		{Label: "Add DND", Data: cbDndMenu + "|add"},
		{Label: "Edit/Delete", Data: cbDndMenu + "|edit"},
		{Label: "Done", Data: cbDndMenu + "|done"},
	}}
}

func formatWindowList(windows []entity.DndWindow) string {
	if len(windows) == 0 {
		return "No DND entries found.\n\nYou have not set any Do Not Disturb periods yet."
	}
	lines := []string{"Your DND entries:"}
	for i, w := range windows {
		lines = append(lines, fmt.Sprintf("%d. %s: %s → %s", i+1, w.HabitText, w.StartDate, w.EndDate))
	}
	return strings.Join(lines, "\n")
}

func parseDatePair(text string) (start, end string, err error) {
	fields := strings.Fields(strings.TrimSpace(text))
	if len(fields) != 2 {
		return "", "", fmt.Errorf("please enter exactly two dates separated by a space, e.g. 2025-01-15 2025-01-20")
	}
	startT, err := entity.ParseDate(fields[0])
	if err != nil {
		return "", "", fmt.Errorf("invalid date format, use YYYY-MM-DD YYYY-MM-DD")
	}
	endT, err := entity.ParseDate(fields[1])
	if err != nil {
		return "", "", fmt.Errorf("invalid date format, use YYYY-MM-DD YYYY-MM-DD")
	}
	if startT.After(endT) {
		return "", "", fmt.Errorf("start date cannot be after end date")
	}
	return fields[0], fields[1], nil
}

func daySpan(start, end string) int {
	s, err1 := entity.ParseDate(start)
	e, err2 := entity.ParseDate(end)
	if err1 != nil || err2 != nil {
		return 0
	}
	return int(e.Sub(s)/(24*time.Hour)) + 1
}

func toggleIndex(selected []int, idx int) []int {
	for i, v := range selected {
		if v == idx {
			return append(selected[:i], selected[i+1:]...)
		}
	}
	return append(selected, idx)
}
