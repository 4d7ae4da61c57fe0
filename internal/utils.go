package internal

import (
	"os"
	"strings"

	"github.com/mattn/go-runewidth"
)

const tabWidth = 4

func IsDebugMode() bool {
	isDebug := strings.ToLower(os.Getenv("BUILDERR_DEBUG"))
	if isDebug == "true" || isDebug == "1" {
		return true
	}
	return false
}

// cellWidth is the number of terminal cells r occupies at screen column x
func cellWidth(r rune, x int) int {
	if r == '\t' {
		return tabWidth - x%tabWidth
	}
	width := runewidth.RuneWidth(r)
	if width <= 0 {
		width = 1
	}
	return width
}
