package logging

// LogBuffer is a helper object that can be used to buffer log messages. A log buffer is effectively a list of arguments
// of any type, including color functions. It is useful when building multi-line console output with mixed coloring,
// which can then be passed to a Logger as a single argument.
type LogBuffer struct {
	// elements describes the list of arguments that eventually need to be concatenated together in the Logger
	elements []any
}

// NewLogBuffer creates a new LogBuffer object
func NewLogBuffer() *LogBuffer {
	return &LogBuffer{
		elements: make([]any, 0),
	}
}

// Append appends a variadic set of elements to the list of elements
func (l *LogBuffer) Append(newElements ...any) {
	l.elements = append(l.elements, newElements...)
}

// Elements returns the list of elements stored in this LogBuffer
func (l *LogBuffer) Elements() []any {
	return l.elements
}

// Len returns the number of elements in the LogBuffer
func (l *LogBuffer) Len() int {
	return len(l.elements)
}

// String provides the non-colorized string representation of the LogBuffer
func (l *LogBuffer) String() string {
	_, msg, _, _ := buildMsgs(l.elements...)
	return msg
}
