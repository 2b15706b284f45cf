package practice

// Button is one keyboard button: a label shown to the user and the action
// code delivered back when pressed.
type Button struct {
	Label  string
	Action string
}

// Keyboard is an ordered list of button rows.
type Keyboard [][]Button

// Message is one outbound message of a directive.
type Message struct {
	Text     string
	Keyboard Keyboard

	// PreferEdit asks the renderer to edit the triggering message in place
	// instead of sending a new one. Only meaningful for the first message of
	// a directive produced by a button press; the renderer falls back to a
	// send when editing fails.
	PreferEdit bool
}

// Directive is the engine's complete output for one inbound event. The
// renderer delivers Messages in order and acknowledges the triggering action
// exactly once, with Alert as the acknowledgement text when set.
type Directive struct {
	Messages []Message

	// Alert is shown as a blocking notice on acknowledgement. An empty Alert
	// means a silent acknowledgement.
	Alert string
}

// edit appends a message that prefers editing the triggering message.
func (d *Directive) edit(text string, kb Keyboard) {
	d.Messages = append(d.Messages, Message{Text: text, Keyboard: kb, PreferEdit: true})
}

// send appends a message delivered as a fresh send.
func (d *Directive) send(text string, kb Keyboard) {
	d.Messages = append(d.Messages, Message{Text: text, Keyboard: kb})
}
