package secrets

import (
	"errors"
	"strings"

	"github.com/zalando/go-keyring"
)

// KeyringService groups this app's secrets in the OS keychain.
const KeyringService = "harvest"

// BrowserTokenAccount is the keychain entry holding the local browser
// automation API token.
const BrowserTokenAccount = "harvest:browser:api-token"

func GetBrowserToken() (string, error) {
	tok, err := keyring.Get(KeyringService, BrowserTokenAccount)
	if err != nil || strings.TrimSpace(tok) == "" {
		return "", errors.New("browser API token not found in keychain")
	}
	return tok, nil
}

func SetBrowserToken(token string) error {
	if strings.TrimSpace(token) == "" {
		return errors.New("token is empty")
	}
	return keyring.Set(KeyringService, BrowserTokenAccount, token)
}

func DeleteBrowserToken() error {
	return keyring.Delete(KeyringService, BrowserTokenAccount)
}
