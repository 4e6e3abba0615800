package core

import "fmt"

// Message is an addressed property bag exchanged between agents.
type Message struct {
	Sender   string
	Receiver string
	Subject  string
	Props    Properties
}

func NewMessage(sender, receiver, subject string) Message {
	return Message{Sender: sender, Receiver: receiver, Subject: subject, Props: NewProperties()}
}

func (m Message) IsBroadcast() bool { return m.Receiver == Broadcast }

// AddressedTo reports whether name should handle the message.
func (m Message) AddressedTo(name string) bool {
	return m.Receiver == name || m.Receiver == Broadcast
}

// Wire flattens the message onto port: every property becomes an
// attribute, plus sender, receiver and subject.
func (m Message) Wire(port string) WireEvent {
	attrs := m.Props.Clone()
	attrs.SetText(AttrSender, m.Sender)
	attrs.SetText(AttrReceiver, m.Receiver)
	attrs.SetText(AttrSubject, m.Subject)
	return WireEvent{Port: port, Attrs: attrs}
}

// MessageFromWire rebuilds a message from a wire event. The addressing
// attributes stay in Props as well.
func MessageFromWire(ev WireEvent) (Message, error) {
	sender, err := ev.Attrs.Text(AttrSender)
	if err != nil {
		return Message{}, fmt.Errorf("wire event: %w", err)
	}
	receiver, err := ev.Attrs.Text(AttrReceiver)
	if err != nil {
		return Message{}, fmt.Errorf("wire event: %w", err)
	}
	subject, err := ev.Attrs.Text(AttrSubject)
	if err != nil {
		return Message{}, fmt.Errorf("wire event: %w", err)
	}
	return Message{Sender: sender, Receiver: receiver, Subject: subject, Props: ev.Attrs.Clone()}, nil
}

// WireEvent is what travels between models through the kernel.
type WireEvent struct {
	Port  string
	Attrs Properties
}

func (w WireEvent) Clone() WireEvent {
	return WireEvent{Port: w.Port, Attrs: w.Attrs.Clone()}
}
