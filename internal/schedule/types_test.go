package schedule

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseDay(t *testing.T) {
	day, ok := ParseDay("wed")
	require.True(t, ok)
	require.Equal(t, DayWed, day)

	_, ok = ParseDay("Wednesday")
	require.False(t, ok)

	_, ok = ParseDay("")
	require.False(t, ok)
}

func TestDaysOrderedByWeekStart(t *testing.T) {
	monFirst := DaysOrderedByWeekStart(DayMon)
	require.Equal(t, DayMon, monFirst[0])
	require.Equal(t, DaySun, monFirst[6])

	sunFirst := DaysOrderedByWeekStart(DaySun)
	require.Equal(t, DaySun, sunFirst[0])
	require.Equal(t, DaySat, sunFirst[6])
	require.Len(t, sunFirst, 7)
}

func TestParseKind(t *testing.T) {
	for _, valid := range []string{"text", "image", "day-card"} {
		kind, ok := ParseKind(valid)
		require.True(t, ok)
		require.EqualValues(t, valid, kind)
	}

	_, ok := ParseKind("sticker")
	require.False(t, ok)
}

func TestDefaultProps(t *testing.T) {
	text, ok := DefaultProps(KindText).(TextProps)
	require.True(t, ok)
	require.Equal(t, "Schedule", text.Text)
	require.EqualValues(t, 72, text.FontSize)
	require.Equal(t, "left", text.Align)
	require.EqualValues(t, 1.1, text.LineHeight)

	image, ok := DefaultProps(KindImage).(ImageProps)
	require.True(t, ok)
	require.Equal(t, "contain", image.Fit)
	require.EqualValues(t, 1, image.Opacity)
	require.Nil(t, image.ImageID)

	card, ok := DefaultProps(KindDayCard).(DayCardProps)
	require.True(t, ok)
	require.Equal(t, DayMon, card.Day)
	require.True(t, card.ShowDate)
	require.True(t, card.ShowTime)
	require.NotNil(t, card.BackgroundColorToken)
	require.Equal(t, "card", *card.BackgroundColorToken)
}
