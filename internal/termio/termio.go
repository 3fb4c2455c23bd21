// Package termio holds the interactive terminal collaborators: terminal
// detection for the status display and hidden passphrase input.
package termio

import (
	"bytes"
	"fmt"
	"os"

	"golang.org/x/term"
)

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// PromptPassphrase prompts for a passphrase with hidden input and asks the
// user to retype it. Prompts go to stderr so stdout stays reserved for found
// keys. An empty passphrase is returned as nil, meaning no encryption.
func PromptPassphrase() ([]byte, error) {
	if !IsTerminal(os.Stdin) {
		return nil, fmt.Errorf("passphrase prompting requires a terminal")
	}

	passphrase, err := readHidden("Enter passphrase for encrypting found keys (leave empty for no encryption): ")
	if err != nil {
		return nil, err
	}
	if len(passphrase) == 0 {
		return nil, nil
	}

	confirm, err := readHidden("Retype passphrase: ")
	if err != nil {
		return nil, err
	}
	if !bytes.Equal(passphrase, confirm) {
		return nil, fmt.Errorf("passphrases do not match")
	}

	return passphrase, nil
}

func readHidden(prompt string) ([]byte, error) {
	fmt.Fprint(os.Stderr, prompt)
	passphrase, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr) // New line after hidden input

	if err != nil {
		return nil, fmt.Errorf("failed to read passphrase: %w", err)
	}
	return passphrase, nil
}
