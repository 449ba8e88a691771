package colors

import "fmt"

// ColorFunc is an alias type for a coloring function that accepts anything and returns a colorized string
type ColorFunc = func(s any) string

// Reset is a ColorFunc that returns the input as a plain string. It is used to reset the color context when logging
// mixed-color output.
func Reset(s any) string {
	return fmt.Sprintf("%v", s)
}

// styled returns a ColorFunc applying each of the codes in turn, innermost first.
func styled(codes ...Color) ColorFunc {
	return func(s any) string {
		out := fmt.Sprintf("%v", s)
		for _, code := range codes {
			out = Colorize(out, code)
		}
		return out
	}
}

// The ColorFunc set used for console output.
var (
	Bold       = styled(BOLD)
	Green      = styled(GREEN)
	GreenBold  = styled(GREEN, BOLD)
	RedBold    = styled(RED, BOLD)
	YellowBold = styled(YELLOW, BOLD)
	BlueBold   = styled(BLUE, BOLD)
	Cyan       = styled(CYAN)
	CyanBold   = styled(CYAN, BOLD)
	DarkGray   = styled(DARK_GRAY)
)
