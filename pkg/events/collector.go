package events

// EventCollector is embedded in aggregates to collect domain events during
// state transitions.
type EventCollector struct {
	events []DomainEvent
}

// Record appends domain events to the collector.
func (c *EventCollector) Record(evts ...DomainEvent) {
	c.events = append(c.events, evts...)
}

// Pending reports how many events are waiting to be published.
func (c *EventCollector) Pending() int {
	return len(c.events)
}

// ClearEvents returns the collected domain events and clears the collector.
func (c *EventCollector) ClearEvents() []DomainEvent {
	collected := c.events
	c.events = nil
	return collected
}
