package secret

import (
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// DefaultKeychainService is the keychain service the secrets are filed under.
const DefaultKeychainService = "storefront"

// errItemMissing is what a runner reports for "no such keychain item".
var errItemMissing = errors.New("keychain item not found")

// securityRunner runs the macOS `security` tool with args.
type securityRunner func(args ...string) ([]byte, error)

// KeychainStore keeps secrets in the macOS Keychain through the
// `security` CLI. Keys become the item account, all under one service.
type KeychainStore struct {
	service string
	run     securityRunner
}

func NewKeychainStore(service string) *KeychainStore {
	if service == "" {
		service = DefaultKeychainService
	}
	return &KeychainStore{service: service, run: runSecurity}
}

func runSecurity(args ...string) ([]byte, error) {
	out, err := exec.Command("security", args...).Output()
	if err == nil {
		return out, nil
	}
	// 44 is errSecItemNotFound. Without the binary (not macOS) there is
	// no keychain to read from either.
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() == 44 {
		return nil, errItemMissing
	}
	if errors.Is(err, exec.ErrNotFound) {
		return nil, errItemMissing
	}
	if exitErr != nil && len(exitErr.Stderr) > 0 {
		return nil, fmt.Errorf("%s: %w", strings.TrimSpace(string(exitErr.Stderr)), err)
	}
	return nil, err
}

// Set writes key, replacing an existing item.
func (k *KeychainStore) Set(key string, value []byte) error {
	_, err := k.run("add-generic-password", "-a", key, "-s", k.service, "-w", string(value), "-U")
	if err != nil {
		return fmt.Errorf("keychain set %s: %w", key, err)
	}
	return nil
}

// Get returns nil without error when the item does not exist.
func (k *KeychainStore) Get(key string) ([]byte, error) {
	out, err := k.run("find-generic-password", "-a", key, "-s", k.service, "-w")
	if errors.Is(err, errItemMissing) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("keychain get %s: %w", key, err)
	}
	return []byte(strings.TrimSpace(string(out))), nil
}

func (k *KeychainStore) Delete(key string) error {
	_, err := k.run("delete-generic-password", "-a", key, "-s", k.service)
	if err != nil && !errors.Is(err, errItemMissing) {
		return fmt.Errorf("keychain delete %s: %w", key, err)
	}
	return nil
}
