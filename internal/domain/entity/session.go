package entity

// Conversation sessions are keyed by user id and serialized into the
// session store between steps. They expire with the store's TTL, which
// is how abandoned sessions get reaped.

// CheckinStage is the check-in conversation's current state.
type CheckinStage string

const (
	CheckinSelectingDate  CheckinStage = "selecting_date"
	CheckinAnswering      CheckinStage = "answering"
	CheckinOfferingSecond CheckinStage = "offering_second"
)

// CheckinSession is the in-progress state of one user's check-in
// conversation.
type CheckinSession struct {
	UserID   int64        `json:"user_id"`
	Username string       `json:"username"`
	Stage    CheckinStage `json:"stage"`
	Date     string       `json:"date"`

	// Habits in original order with a precomputed DND mask; Responses
	// stays index-aligned with Habits as answers come in.
	Habits    []HabitRef `json:"habits"`
	DndMask   []bool     `json:"dnd_mask"`
	Responses []Status   `json:"responses"`
	Cursor    int        `json:"cursor"`

	// DualAvailable marks that the other of {yesterday, today} was
	// still open at session start; SecondRound disables rest-day
	// offers while answering for that other date.
	DualAvailable bool `json:"dual_available"`
	SecondRound   bool `json:"second_round"`
}

// DndStage is the DND editor conversation's current state.
type DndStage string

const (
	DndList            DndStage = "list"
	DndSelectingHabits DndStage = "selecting_habits"
	DndEnteringDates   DndStage = "entering_dates"
	DndConfirmingAdd   DndStage = "confirming_add"
	DndEditSelect      DndStage = "edit_select"
	DndEditAction      DndStage = "edit_action"
	DndEditDates       DndStage = "edit_dates"
	DndEditHabit       DndStage = "edit_habit"
)

// DndOpKind tags a queued DND mutation.
type DndOpKind string

const (
	DndOpAdd    DndOpKind = "add"
	DndOpEdit   DndOpKind = "edit"
	DndOpDelete DndOpKind = "delete"
)

// DndOp is one pending mutation, applied to the store only when the
// editing session ends.
type DndOp struct {
	Kind   DndOpKind       `json:"kind"`
	Window DndWindow       `json:"window,omitempty"` // add
	Target string          `json:"target,omitempty"` // edit/delete: window id
	Update DndWindowUpdate `json:"update,omitempty"` // edit
}

// DndSession holds a working copy of the user's windows plus the queue
// of pending operations collected during the session.
type DndSession struct {
	UserID   int64    `json:"user_id"`
	Username string   `json:"username"`
	Stage    DndStage `json:"stage"`

	Working []DndWindow `json:"working"`
	Pending []DndOp     `json:"pending"`

	MonthHabits []HabitRef `json:"month_habits,omitempty"`
	Selected    []int      `json:"selected,omitempty"`
	StartDate   string     `json:"start_date,omitempty"`
	EndDate     string     `json:"end_date,omitempty"`
	EditIdx     int        `json:"edit_idx"`
}

// HabitSetupStage is the set-habits conversation's current state.
type HabitSetupStage string

const (
	HabitSetupAwaitingList HabitSetupStage = "awaiting_list"
	HabitSetupConfirming   HabitSetupStage = "confirming"
)

// HabitSetupSession collects the month's core habit list before the
// one-time commit.
type HabitSetupSession struct {
	UserID    int64           `json:"user_id"`
	Username  string          `json:"username"`
	Stage     HabitSetupStage `json:"stage"`
	YearMonth string          `json:"year_month"`
	Habits    []string        `json:"habits,omitempty"`
}
