package tui

import (
	"fmt"

	"github.com/muesli/termenv"
)

// PrintBanner writes the chat startup banner, colored when the terminal
// supports it.
func PrintBanner() {
	p := termenv.ColorProfile()
	lines := []struct {
		text  string
		color string
	}{
		{`     _ _       _             _                 `, "#818cf8"},
		{`  __| (_) __ _| | ___   __ _| |_ _ __ ___  ___ `, "#a78bfa"},
		{` / _' | |/ _' | |/ _ \ / _' | __| '__/ _ \/ _ \`, "#c084fc"},
		{`| (_| | | (_| | | (_) | (_| | |_| | |  __/  __/`, "#e879f9"},
		{` \__,_|_|\__,_|_|\___/ \__, |\__|_|  \___|\___|`, "#f472b6"},
		{`                       |___/                   `, "#fb7185"},
	}

	fmt.Println()
	for _, line := range lines {
		fmt.Println(termenv.String(line.text).Foreground(p.Color(line.color)))
	}
	fmt.Println()
}
