package fanout

// Publisher delivers events to interested parties.  Implementations must
// never block the caller for long and must swallow delivery failures:
// publishing happens on the booking path after commit, and a broken
// subscriber must not fail a successful reservation.
type Publisher interface {
	Publish(event Event)
}

// Noop discards every event.  It stands in for the realtime layer in
// tests and in offline sweep runs where no delivery channel exists.
type Noop struct{}

// Publish implements Publisher.
func (Noop) Publish(Event) {}

// Multi fans a publish out to several publishers in order, e.g. the
// websocket hub plus the broker bridge.
type Multi []Publisher

// Publish implements Publisher.
func (m Multi) Publish(event Event) {
	for _, p := range m {
		p.Publish(event)
	}
}
