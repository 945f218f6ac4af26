package utils

// IsAdmin checks if the Telegram user id is in the operator allow-list
func IsAdmin(userID int64, adminIDs []int64) bool {
	if userID == 0 {
		return false
	}
	for _, id := range adminIDs {
		if id == userID {
			return true
		}
	}
	return false
}
