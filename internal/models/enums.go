package models

// ProjectStatus is the lifecycle state of a project.
type ProjectStatus string

const (
	ProjectPlanning   ProjectStatus = "Planning"
	ProjectInProgress ProjectStatus = "In Progress"
	ProjectOnHold     ProjectStatus = "On Hold"
	ProjectCompleted  ProjectStatus = "Completed"
	ProjectCancelled  ProjectStatus = "Cancelled"
)

// ProjectStatuses lists every accepted project status.
var ProjectStatuses = []ProjectStatus{
	ProjectPlanning, ProjectInProgress, ProjectOnHold, ProjectCompleted, ProjectCancelled,
}

// Valid reports whether s is a known project status.
func (s ProjectStatus) Valid() bool {
	switch s {
	case ProjectPlanning, ProjectInProgress, ProjectOnHold, ProjectCompleted, ProjectCancelled:
		return true
	}
	return false
}

// Active reports whether a project in this status still counts as running.
func (s ProjectStatus) Active() bool {
	switch s {
	case ProjectCompleted, ProjectCancelled:
		return false
	default:
		return true
	}
}

// TaskStatus is the workflow state of a task.
type TaskStatus string

const (
	TaskTodo       TaskStatus = "Todo"
	TaskInProgress TaskStatus = "In Progress"
	TaskBlocked    TaskStatus = "Blocked"
	TaskDone       TaskStatus = "Done"
)

var TaskStatuses = []TaskStatus{TaskTodo, TaskInProgress, TaskBlocked, TaskDone}

func (s TaskStatus) Valid() bool {
	switch s {
	case TaskTodo, TaskInProgress, TaskBlocked, TaskDone:
		return true
	}
	return false
}

// Priority is a task priority level.
type Priority string

const (
	PriorityLow    Priority = "Low"
	PriorityMedium Priority = "Medium"
	PriorityHigh   Priority = "High"
)

var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh}

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// ScheduleType categorises a schedule event. The set is open: the UI offers
// the constants below but imported data may carry other labels.
type ScheduleType string

const (
	ScheduleWork     ScheduleType = "Work"
	ScheduleMeeting  ScheduleType = "Meeting"
	ScheduleBreak    ScheduleType = "Break"
	SchedulePersonal ScheduleType = "Personal"
	ScheduleDeadline ScheduleType = "Deadline"
)

var ScheduleTypes = []ScheduleType{ScheduleWork, ScheduleMeeting, ScheduleBreak, SchedulePersonal, ScheduleDeadline}

// RecurrencePattern is how often a recurring schedule event repeats.
type RecurrencePattern string

const (
	RecurDaily    RecurrencePattern = "daily"
	RecurWeekly   RecurrencePattern = "weekly"
	RecurBiweekly RecurrencePattern = "biweekly"
	RecurMonthly  RecurrencePattern = "monthly"
)

var RecurrencePatterns = []RecurrencePattern{RecurDaily, RecurWeekly, RecurBiweekly, RecurMonthly}

// PaymentStatus is the settlement state of a payment.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "Pending"
	PaymentPaid      PaymentStatus = "Paid"
	PaymentOverdue   PaymentStatus = "Overdue"
	PaymentCancelled PaymentStatus = "Cancelled"
)

var PaymentStatuses = []PaymentStatus{PaymentPending, PaymentPaid, PaymentOverdue, PaymentCancelled}

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentPending, PaymentPaid, PaymentOverdue, PaymentCancelled:
		return true
	}
	return false
}

// PaymentType distinguishes incoming from outgoing money.
type PaymentType string

const (
	PaymentInvoice PaymentType = "Invoice"
	PaymentPayment PaymentType = "Payment"
	PaymentExpense PaymentType = "Expense"
	PaymentRefund  PaymentType = "Refund"
)

var PaymentTypes = []PaymentType{PaymentInvoice, PaymentPayment, PaymentExpense, PaymentRefund}

func (t PaymentType) Valid() bool {
	switch t {
	case PaymentInvoice, PaymentPayment, PaymentExpense, PaymentRefund:
		return true
	}
	return false
}
