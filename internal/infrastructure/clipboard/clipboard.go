package clipboard

import (
	"errors"

	"crosschain_portfolio/internal/app/port"

	"github.com/atotto/clipboard"
)

// ErrUnsupported is returned when the host has no clipboard utility.
var ErrUnsupported = errors.New("clipboard is not supported on this host")

// System writes to the host clipboard.
type System struct{}

var _ port.Clipboard = System{}

// WriteAll copies text to the clipboard.
func (System) WriteAll(text string) error {
	if clipboard.Unsupported {
		return ErrUnsupported
	}
	return clipboard.WriteAll(text)
}
