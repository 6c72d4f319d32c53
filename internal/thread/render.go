package thread

import (
	"fmt"
	"strings"

	"github.com/anidigital/harvest-hub/internal/domain"
)

// LoadingOrder stands in for an order reference whose order is not loaded yet.
const LoadingOrder = "loading order…"

// Render formats one message for a terminal. Order references prefer the
// session's order list over the copy embedded in the message, since the list
// is refreshed on every poll.
func Render(m domain.MessageView, orders map[string]domain.OrderView) string {
	switch m.Body.Kind {
	case domain.KindOrder:
		if o, ok := orders[m.Body.OrderID]; ok {
			return OrderCard(o)
		}
		if m.Order != nil {
			return OrderCard(*m.Order)
		}
		return LoadingOrder
	case domain.KindImage:
		if m.Body.Caption == "" {
			return "[image] " + m.Body.ImageURL
		}
		return "[image] " + m.Body.ImageURL + "\n" + m.Body.Caption
	default:
		return m.Body.Text
	}
}

// OrderCard is the summary shown inline for an order reference.
func OrderCard(o domain.OrderView) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[order] %s\n", o.ProductName)
	qty := o.Quantity.String()
	if o.Unit != "" {
		qty += " " + o.Unit
	}
	fmt.Fprintf(&b, "  qty %s @ %s = %s\n", qty, o.UnitPrice.StringFixed(2), o.TotalAmount.StringFixed(2))
	fmt.Fprintf(&b, "  status: %s", StatusBadge(o.Status))
	if len(o.Actions) > 0 {
		acts := make([]string, len(o.Actions))
		for i, a := range o.Actions {
			acts[i] = string(a)
		}
		fmt.Fprintf(&b, "\n  actions: %s", strings.Join(acts, ", "))
	}
	return b.String()
}

// StatusBadge renders an order status as an upper-case label.
func StatusBadge(s domain.OrderStatus) string {
	return strings.ToUpper(strings.ReplaceAll(string(s), "_", " "))
}

// Lines renders the whole snapshot, labelling the viewer's own messages.
func Lines(snap Snapshot, viewerID string) []string {
	other := "them"
	if snap.Header != nil && snap.Header.Other.FullName != "" {
		other = snap.Header.Other.FullName
	}
	out := make([]string, 0, len(snap.Messages))
	for _, m := range snap.Messages {
		who := other
		if m.SenderID == viewerID {
			who = "me"
		}
		out = append(out, fmt.Sprintf("%s %s: %s", m.CreatedAt.Local().Format("15:04"), who, Render(m, snap.Orders)))
	}
	return out
}
