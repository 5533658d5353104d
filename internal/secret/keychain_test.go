package secret

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeKeychain mimics the `security` tool over a map.
type fakeKeychain struct {
	items map[string]string
	calls [][]string
	fail  error
}

func (f *fakeKeychain) run(args ...string) ([]byte, error) {
	f.calls = append(f.calls, args)
	if f.fail != nil {
		return nil, f.fail
	}
	account := args[2]
	switch args[0] {
	case "add-generic-password":
		f.items[account] = args[6]
		return nil, nil
	case "find-generic-password":
		v, ok := f.items[account]
		if !ok {
			return nil, errItemMissing
		}
		return []byte(v + "\n"), nil
	case "delete-generic-password":
		if _, ok := f.items[account]; !ok {
			return nil, errItemMissing
		}
		delete(f.items, account)
		return nil, nil
	}
	return nil, errors.New("unexpected command " + args[0])
}

func TestKeychainStore(t *testing.T) {
	fake := &fakeKeychain{items: map[string]string{}}
	k := NewKeychainStore("")
	k.run = fake.run

	got, err := k.Get(KeyNewsletterAPIKey)
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, k.Set(KeyNewsletterAPIKey, []byte("nl-key")))
	got, err = k.Get(KeyNewsletterAPIKey)
	require.NoError(t, err)
	assert.Equal(t, "nl-key", string(got))
	assert.Equal(t, []string{"add-generic-password", "-a", KeyNewsletterAPIKey, "-s", DefaultKeychainService, "-w", "nl-key", "-U"}, fake.calls[1])

	require.NoError(t, k.Delete(KeyNewsletterAPIKey))
	require.NoError(t, k.Delete(KeyNewsletterAPIKey), "deleting a missing item is fine")
}

func TestKeychainStore_Errors(t *testing.T) {
	fake := &fakeKeychain{items: map[string]string{}, fail: errors.New("user interaction is not allowed")}
	k := NewKeychainStore("storefront-test")
	k.run = fake.run

	_, err := k.Get(KeyDatabasePassword)
	assert.ErrorContains(t, err, "keychain get database.password")
	assert.Error(t, k.Set(KeyDatabasePassword, []byte("x")))
	assert.Error(t, k.Delete(KeyDatabasePassword))
	assert.Equal(t, "storefront-test", fake.calls[0][4])
}
