package escalation

import (
	"strings"
)

// 健康确认短语（匹配任一即认为用户平安）
var confirmationPhrases = []string{
	"i'm ok",
	"i am ok",
	"i'm okay",
	"i am okay",
	"i'm fine",
	"i am fine",
	"all good",
	"no help needed",
}

// 求救短语（匹配任一立即升级）
var distressPhrases = []string{
	"help me",
	"help",
	"call for help",
	"emergency",
	"i need help",
	"call 911",
	"i can't get up",
}

// IsConfirmation 判断文本是否为健康确认
func IsConfirmation(text string) bool {
	return matchPhrase(text, confirmationPhrases)
}

// IsDistress 判断文本是否为求救
func IsDistress(text string) bool {
	return matchPhrase(text, distressPhrases)
}

func matchPhrase(text string, phrases []string) bool {
	normalized := strings.ToLower(strings.TrimSpace(text))
	if normalized == "" {
		return false
	}
	for _, p := range phrases {
		if strings.Contains(normalized, p) {
			return true
		}
	}
	return false
}
