package port

// Clipboard is the system clipboard.
type Clipboard interface {
	WriteAll(text string) error
}
