// File: internal/creds/clipboard.go
package creds

import "github.com/atotto/clipboard"

// SystemClipboard writes through the OS clipboard.
type SystemClipboard struct{}

func (SystemClipboard) Write(text string) error {
	return clipboard.WriteAll(text)
}
