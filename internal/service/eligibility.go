package service

import (
	"github.com/google/uuid"

	"github.com/kbehari1995/habit-snake-bot/internal/domain/entity"
	"github.com/kbehari1995/habit-snake-bot/internal/domain/repository"
	"github.com/kbehari1995/habit-snake-bot/internal/domain/service"
)

// restDayStreak is the number of consecutive done records that unlock a
// rest day.
const restDayStreak = 6

type eligibilityService struct {
	store repository.Store
}

// NewEligibilityService creates the eligibility engine over a store
// snapshot.
func NewEligibilityService(store repository.Store) service.Eligibility {
	return &eligibilityService{store: store}
}

func (e *eligibilityService) IsDndExcused(userID int64, date string, habitID uuid.UUID) bool {
	return e.store.InDndWindow(userID, date, habitID)
}

func (e *eligibilityService) IsRestDayEligible(userID int64, habitID uuid.UUID, date string) bool {
	recent := e.store.LastCheckins(userID, habitID, date, restDayStreak)
	if len(recent) != restDayStreak {
		return false
	}
	for _, r := range recent {
		if r.Status != entity.StatusDone {
			return false
		}
	}
	return true
}

func (e *eligibilityService) HasCheckedIn(userID int64, date string) bool {
	return e.store.HasCheckedIn(userID, date)
}
