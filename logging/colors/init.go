package colors

// init enables ANSI coloring where the platform supports it.
func init() {
	EnableColor()
}

// DisableColor turns off ANSI coloring for every ColorFunc.
func DisableColor() {
	enabled = false
}
