package rewards

import "strings"

// Classify returns Coins when text mentions coins and Spins otherwise.
func Classify(text string) RewardType {
	if strings.Contains(strings.ToLower(text), "coin") {
		return Coins
	}
	return Spins
}
