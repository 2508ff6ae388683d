package ui

import "fmt"

// ASCIILogo is printed at the start of interactive commands
const ASCIILogo = `
    ╔════════════════════════════════════════════════════════════╗
    ║ ████████╗██╗    ██╗███████╗███████╗████████╗               ║
    ║ ╚══██╔══╝██║    ██║██╔════╝██╔════╝╚══██╔══╝               ║
    ║    ██║   ██║ █╗ ██║█████╗  █████╗     ██║    V A U L T     ║
    ║    ██║   ██║███╗██║██╔══╝  ██╔══╝     ██║                  ║
    ║    ██║   ╚███╔███╔╝███████╗███████╗   ██║                  ║
    ║    ╚═╝    ╚══╝╚══╝ ╚══════╝╚══════╝   ╚═╝                  ║
    ║          RESUMABLE TWITTER ACCOUNT ARCHIVER                ║
    ╚════════════════════════════════════════════════════════════╝
`

// Color functions for terminal output
var (
	Cyan    = colorize("\033[36m%s\033[0m")
	Yellow  = colorize("\033[33m%s\033[0m")
	Red     = colorize("\033[31m%s\033[0m")
	Green   = colorize("\033[32m%s\033[0m")
	Magenta = colorize("\033[35m%s\033[0m")
	Dim     = colorize("\033[2m%s\033[0m")
)

func colorize(colorString string) func(string) string {
	return func(text string) string {
		return fmt.Sprintf(colorString, text)
	}
}

// PrintLogo prints the ASCII logo with color
func PrintLogo() {
	fmt.Print(Cyan(ASCIILogo))
}

// PrintError prints msg in red, followed by the first arg if given
func PrintError(msg string, args ...interface{}) {
	if len(args) > 0 {
		msg = fmt.Sprintf("%s: %v", msg, args[0])
	}
	fmt.Println(Red(msg))
}

// PrintSuccess prints a success message in green
func PrintSuccess(msg string) {
	fmt.Println(Green(msg))
}

// PrintInfo prints a label and value pair
func PrintInfo(label string, value string) {
	fmt.Printf("%s: %s\n", Cyan(label), Yellow(value))
}

// PrintWarning prints msg in yellow, followed by the first arg if given
func PrintWarning(msg string, args ...interface{}) {
	if len(args) > 0 {
		msg = fmt.Sprintf("%s: %v", msg, args[0])
	}
	fmt.Println(Yellow(msg))
}

// PrintHighlight prints a highlighted message in magenta
func PrintHighlight(msg string) {
	fmt.Println(Magenta(msg))
}
