package main

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/Travis-Britz/regdns"
	"golang.org/x/term"
)

// readPassword prompts for the account password on the terminal attached to in.
func readPassword(in io.Reader, out io.Writer) (string, error) {
	f, ok := in.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return "", &regdns.ConfigError{Msg: `password "-" needs an interactive terminal`}
	}
	fmt.Fprint(out, "Password: ")
	b, err := term.ReadPassword(int(f.Fd()))
	fmt.Fprintln(out)
	if err != nil {
		return "", fmt.Errorf("error reading password: %w", err)
	}
	password := strings.TrimSpace(string(b))
	if password == "" {
		return "", &regdns.ConfigError{Msg: "password cannot be empty"}
	}
	return password, nil
}

// verifyPermissions reports an error when path is accessible to anyone but its owner.
// The cache holds a bearer token.
func verifyPermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("error checking cache file permissions: %w", err)
	}
	if perms := info.Mode().Perm(); perms&0o077 != 0 {
		return fmt.Errorf("invalid permissions for %q: expected file permissions \"-rw-------\"; found %q", path, fs.FileMode(perms))
	}
	return nil
}
