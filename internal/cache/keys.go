package cache

import "fmt"

const autosaveKeyPrefix = "autosave:%s"

// AutosaveKey is where a user's draft lookup is cached.
func AutosaveKey(userID string) string {
	return fmt.Sprintf(autosaveKeyPrefix, userID)
}
