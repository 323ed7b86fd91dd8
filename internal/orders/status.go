package orders

type Status string

const (
	StatusPending    Status = "pending"
	StatusConfirmed  Status = "confirmed" // paid
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
	StatusRefunded   Status = "refunded"
)

// Lifecycle is the forward order of the linear states. Cancelled and refunded
// are side branches and never appear in the progression.
var Lifecycle = []Status{
	StatusPending,
	StatusConfirmed,
	StatusProcessing,
	StatusShipped,
	StatusDelivered,
	StatusCompleted,
}

var validNext = map[Status]map[Status]bool{
	StatusPending:    {StatusConfirmed: true, StatusCancelled: true},
	StatusConfirmed:  {StatusProcessing: true, StatusCancelled: true, StatusRefunded: true},
	StatusProcessing: {StatusShipped: true, StatusCancelled: true, StatusRefunded: true},
	StatusShipped:    {StatusDelivered: true, StatusCancelled: true, StatusRefunded: true},
	StatusDelivered:  {StatusCompleted: true, StatusRefunded: true},
	StatusCompleted:  {StatusRefunded: true},
	StatusCancelled:  {},
	StatusRefunded:   {},
}

// CanTransition reports whether an order may move from one status to another.
// Status only advances along the lifecycle or branches into the terminals.
func CanTransition(from, to Status) bool {
	return validNext[from][to]
}

// StatusIndex returns the position of s in the lifecycle, or -1 for the
// terminal branches.
func StatusIndex(s Status) int {
	for i, st := range Lifecycle {
		if st == s {
			return i
		}
	}
	return -1
}

type StepState string

const (
	StepCompleted StepState = "completed"
	StepCurrent   StepState = "current"
	StepUpcoming  StepState = "upcoming"
)

type Step struct {
	Status Status    `json:"status"`
	State  StepState `json:"state"`
}

type ProgressView struct {
	Cancelled    bool   `json:"cancelled"`
	CancelReason string `json:"cancel_reason,omitempty"`
	Refunded     bool   `json:"refunded"`
	Steps        []Step `json:"steps,omitempty"`
}

// Progress derives the progress-indicator view from the current status alone:
// steps before the current index are completed, the current one is current,
// the rest upcoming. Cancelled suppresses the steps entirely.
func Progress(status Status, cancelReason string) ProgressView {
	switch status {
	case StatusCancelled:
		return ProgressView{Cancelled: true, CancelReason: cancelReason}
	case StatusRefunded:
		return ProgressView{Refunded: true}
	}

	idx := StatusIndex(status)
	steps := make([]Step, len(Lifecycle))
	for i, st := range Lifecycle {
		state := StepUpcoming
		switch {
		case i < idx:
			state = StepCompleted
		case i == idx:
			state = StepCurrent
		}
		steps[i] = Step{Status: st, State: state}
	}
	return ProgressView{Steps: steps}
}
