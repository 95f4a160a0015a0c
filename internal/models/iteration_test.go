package models

import (
	"errors"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tumblelab/gym-api/pkg/dates"
	appErrors "github.com/tumblelab/gym-api/pkg/errors"
)

func datePtr(y int, m time.Month, d int) *dates.CalendarDate {
	cd := dates.New(y, m, d)
	return &cd
}

func strPtr(s string) *string { return &s }

func TestIterationValidDaysPreservesStoredOrder(t *testing.T) {
	it := Iteration{DaysOfWeek: pq.Int64Array{3, 1, 5}}
	assert.Equal(t, []string{"Wednesday", "Monday", "Friday"}, it.ValidDays())
}

func TestIterationValidDaysSkipsOutOfRange(t *testing.T) {
	it := Iteration{DaysOfWeek: pq.Int64Array{1, 9}}
	assert.Equal(t, []string{"Monday"}, it.ValidDays())
}

func TestIterationDescribeDuration(t *testing.T) {
	indefinite := Iteration{DurationType: DurationIndefinite}
	assert.Equal(t, "Indefinite", indefinite.DescribeDuration())

	block := Iteration{DurationType: DurationBlock, StartDate: datePtr(2025, time.September, 1)}
	assert.Equal(t, "3-Month Block starting September 1, 2025", block.DescribeDuration())

	finite := Iteration{
		DurationType: DurationFinite,
		StartDate:    datePtr(2025, time.September, 1),
		EndDate:      datePtr(2025, time.December, 19),
	}
	assert.Equal(t, "September 1, 2025 – December 19, 2025", finite.DescribeDuration())

	openEnded := Iteration{DurationType: DurationFinite, StartDate: datePtr(2025, time.September, 1)}
	assert.Equal(t, "Starting September 1, 2025", openEnded.DescribeDuration())
}

func TestIterationValidateSelection(t *testing.T) {
	it := Iteration{DaysOfWeek: pq.Int64Array{1, 3, 5}} // Mon/Wed/Fri

	require.NoError(t, it.ValidateSelection([]string{"Monday", "Friday"}, 2))

	err := it.ValidateSelection([]string{"Monday", "Tuesday"}, 2)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrDayNotOffered.Code, appErr.Code)

	err = it.ValidateSelection([]string{"Monday"}, 2)
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrDaysCountMismatch.Code, appErr.Code)

	err = it.ValidateSelection(nil, 1)
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrEmptySelection.Code, appErr.Code)

	// An empty selection fails even when daysPerWeek agrees with it.
	err = it.ValidateSelection(nil, 0)
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrEmptySelection.Code, appErr.Code)
}

func TestIterationValidateSelectionTotality(t *testing.T) {
	// ValidateSelection(i, s, |s|) succeeds iff s is non-empty and every day
	// in s is offered by i.
	it := Iteration{DaysOfWeek: pq.Int64Array{0, 2, 4, 6}}
	offered := it.ValidDays()

	selections := [][]string{
		nil,
		{"Sunday"},
		{"Sunday", "Tuesday"},
		{"Sunday", "Monday"},
		{"Thursday", "Saturday"},
		{"Monday", "Wednesday", "Friday"},
		offered,
	}
	for _, sel := range selections {
		err := it.ValidateSelection(sel, len(sel))
		allOffered := true
		for _, day := range sel {
			if !it.OffersDay(day) {
				allOffered = false
			}
		}
		if len(sel) > 0 && allOffered {
			assert.NoError(t, err, "selection %v", sel)
		} else {
			assert.Error(t, err, "selection %v", sel)
		}
	}
}

func TestIterationValidate(t *testing.T) {
	valid := Iteration{
		ProgramID:    "p1",
		DaysOfWeek:   pq.Int64Array{1, 3},
		StartTime:    strPtr("16:00"),
		EndTime:      strPtr("17:30"),
		DurationType: DurationIndefinite,
	}
	require.NoError(t, valid.Validate())

	empty := valid
	empty.DaysOfWeek = nil
	assert.Error(t, empty.Validate())

	outOfRange := valid
	outOfRange.DaysOfWeek = pq.Int64Array{1, 7}
	assert.Error(t, outOfRange.Validate())

	inverted := valid
	inverted.StartTime = strPtr("17:30")
	inverted.EndTime = strPtr("16:00")
	assert.Error(t, inverted.Validate())

	blockMissingStart := valid
	blockMissingStart.DurationType = DurationBlock
	assert.Error(t, blockMissingStart.Validate())

	badRange := valid
	badRange.DurationType = DurationFinite
	badRange.StartDate = datePtr(2025, time.March, 1)
	badRange.EndDate = datePtr(2025, time.February, 28)
	err := badRange.Validate()
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrInvalidDateRange.Code, appErr.Code)
}

func TestIterationOffersDayCaseInsensitive(t *testing.T) {
	it := Iteration{DaysOfWeek: pq.Int64Array{2}}
	assert.True(t, it.OffersDay("tuesday"))
	assert.False(t, it.OffersDay("Wednesday"))
	assert.False(t, it.OffersDay("Noday"))
}
