package domain

// OrderStatus is the lifecycle state of a ChatOrder.
type OrderStatus string

const (
	OrderRequested      OrderStatus = "requested"
	OrderPendingPayment OrderStatus = "pending_payment"
	OrderPaid           OrderStatus = "paid"
)

// orderRank orders statuses along the only allowed direction of travel.
var orderRank = map[OrderStatus]int{
	OrderRequested:      0,
	OrderPendingPayment: 1,
	OrderPaid:           2,
}

// Valid reports whether s is a known status.
func (s OrderStatus) Valid() bool {
	_, ok := orderRank[s]
	return ok
}

// Terminal reports whether no further transition is possible.
func (s OrderStatus) Terminal() bool { return s == OrderPaid }

// CanTransitionTo reports whether moving from s to next is allowed.
// Transitions are forward-only: requested → pending_payment → paid, or
// requested → paid directly.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	from, ok := orderRank[s]
	if !ok {
		return false
	}
	to, ok := orderRank[next]
	if !ok {
		return false
	}
	return to > from
}

// OrderAction names a seller-side transition.
type OrderAction string

const (
	ActionMarkPending OrderAction = "mark_pending"
	ActionMarkPaid    OrderAction = "mark_paid"
)

// Target returns the status an action moves an order to.
func (a OrderAction) Target() OrderStatus {
	switch a {
	case ActionMarkPending:
		return OrderPendingPayment
	case ActionMarkPaid:
		return OrderPaid
	}
	return ""
}

// ProofStatus is the verification state of a PaymentProof.
type ProofStatus string

const (
	ProofPending  ProofStatus = "pending"
	ProofApproved ProofStatus = "approved"
	ProofRejected ProofStatus = "rejected"
)

// Decided reports whether the proof has been approved or rejected.
func (s ProofStatus) Decided() bool { return s == ProofApproved || s == ProofRejected }
