package invoices

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestDaysOverdue(t *testing.T) {
	now := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)

	inv := Invoice{Status: StatusPending, DueDate: date(2024, 3, 5)}
	require.Equal(t, 10, inv.DaysOverdue(now))

	inv.DueDate = date(2024, 3, 15)
	require.Equal(t, 0, inv.DaysOverdue(now))

	inv.DueDate = date(2024, 3, 20)
	require.Equal(t, 0, inv.DaysOverdue(now))

	inv = Invoice{Status: StatusPaid, DueDate: date(2024, 1, 1)}
	require.Equal(t, 0, inv.DaysOverdue(now))
}

func TestShouldSendReminder(t *testing.T) {
	now := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	overdue := Invoice{Status: StatusPending, DueDate: date(2024, 3, 1)}

	require.True(t, overdue.ShouldSendReminder(now, DefaultReminderIntervalDays))

	recent := now.AddDate(0, 0, -3)
	overdue.LastReminderDate = &recent
	require.False(t, overdue.ShouldSendReminder(now, DefaultReminderIntervalDays))

	old := now.AddDate(0, 0, -7)
	overdue.LastReminderDate = &old
	require.True(t, overdue.ShouldSendReminder(now, DefaultReminderIntervalDays))

	cancelled := Invoice{Status: StatusCancelled, DueDate: date(2024, 3, 1)}
	require.False(t, cancelled.ShouldSendReminder(now, DefaultReminderIntervalDays))

	notDue := Invoice{Status: StatusPending, DueDate: date(2024, 3, 30)}
	require.False(t, notDue.ShouldSendReminder(now, DefaultReminderIntervalDays))
}

func TestDaysToPaymentRoundsUp(t *testing.T) {
	require.Equal(t, 30, DaysToPayment(date(2024, 1, 1), date(2024, 1, 31)))
	require.Equal(t, 1, DaysToPayment(date(2024, 1, 1), time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)))
	require.Equal(t, 0, DaysToPayment(date(2024, 1, 1), date(2024, 1, 1)))
}

func TestStatusOutstanding(t *testing.T) {
	require.True(t, StatusPending.Outstanding())
	require.True(t, StatusOverdue.Outstanding())
	require.False(t, StatusDraft.Outstanding())
	require.False(t, StatusPaid.Outstanding())
	require.False(t, Status("unknown").Valid())
}
