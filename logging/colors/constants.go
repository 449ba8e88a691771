package colors

// Color is an ANSI SGR code.
type Color int

// Source: https://github.com/rs/zerolog/blob/4fff5db29c3403bc26dee9895e12a108aacc0203/console.go
const (
	BLACK Color = iota + 30
	RED
	GREEN
	YELLOW
	BLUE
	MAGENTA
	CYAN
	WHITE

	BOLD      Color = 1
	DARK_GRAY Color = 90
)

// LEFT_ARROW is the glyph prefixed to info-level console output.
const LEFT_ARROW = "⇾"
