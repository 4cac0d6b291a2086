package core

import "fmt"

// Resolution is the derived view of one invoice at a given day: its lifecycle
// status, its due date, and a human-facing aging label.
type Resolution struct {
	Status Status
	Due    Date
	Aging  string
}

// Resolve derives the current status and aging label of an invoice.
//
// The current date is injected so the function stays deterministic and
// testable. Rules, in order:
//   - a recorded payment date always wins: the invoice is Paid even when the
//     payment came after the due date (the early/late label is informational
//     only and never changes the status);
//   - unpaid and past due -> Overdue, aged by at least one whole day;
//   - unpaid and due today or later -> Pending.
func Resolve(inv Invoice, today Date) Resolution {
	due := inv.DueDate()

	if inv.IsPaid() {
		return Resolution{Status: StatusPaid, Due: due, Aging: paidAging(inv.PaymentDate, due)}
	}

	switch late := today.DaysSince(due); {
	case late > 0:
		return Resolution{Status: StatusOverdue, Due: due, Aging: countDays(late) + " overdue"}
	case late == 0:
		return Resolution{Status: StatusPending, Due: due, Aging: "due today"}
	default:
		return Resolution{Status: StatusPending, Due: due, Aging: "due in " + countDays(-late)}
	}
}

func paidAging(paid, due Date) string {
	switch d := due.DaysSince(paid); {
	case d > 0:
		return countDays(d) + " early"
	case d < 0:
		return countDays(-d) + " late"
	default:
		return "paid on time"
	}
}

func countDays(n int) string {
	if n == 1 {
		return "1 day"
	}
	return fmt.Sprintf("%d days", n)
}
