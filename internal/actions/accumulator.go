package actions

// PermissionDecision is the verdict reported for tool-use events
type PermissionDecision string

const (
	DecisionAllow PermissionDecision = "allow"
	DecisionDeny  PermissionDecision = "deny"
)

// RequestDecision is the verdict reported for permission_request events
type RequestDecision struct {
	Behavior  PermissionDecision
	Message   string
	Interrupt bool
}

// Accumulator collects the side outputs of one executor run. It is owned by
// that run and never shared.
type Accumulator struct {
	// PermissionDecision is empty until an action sets it
	PermissionDecision       PermissionDecision
	PermissionDecisionReason string
	RequestDecision          *RequestDecision
	SystemMessages           []string
}

// NewAccumulator returns an empty accumulator
func NewAccumulator() *Accumulator {
	return &Accumulator{}
}

// SetPermissionDecision records a tool-use verdict; the latest call wins
func (a *Accumulator) SetPermissionDecision(decision PermissionDecision, reason string) {
	a.PermissionDecision = decision
	a.PermissionDecisionReason = reason
}

// SetRequestDecision records a permission-request verdict; the latest call wins
func (a *Accumulator) SetRequestDecision(decision RequestDecision) {
	a.RequestDecision = &decision
}

// AddSystemMessage appends a user-visible message
func (a *Accumulator) AddSystemMessage(msg string) {
	a.SystemMessages = append(a.SystemMessages, msg)
}
