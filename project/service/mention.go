package service

import (
	"fmt"
	"regexp"
	"strings"
)

// mentionPattern は Slack のユーザーメンション <@U123> / <@U123|name> にマッチします
var mentionPattern = regexp.MustCompile(`<@([UW][A-Z0-9]+)(?:\|[^>]*)?>`)

// MentionToken はユーザーIDを Slack のメンション形式 <@USERID> に変換します
func MentionToken(userID string) string {
	return fmt.Sprintf("<@%s>", userID)
}

// IsTargetMentioned は text に対象ユーザーへのメンションが含まれているか判定します
// ユーザーIDは大文字小文字を区別する完全一致で比較します
func IsTargetMentioned(text, targetUserID string) bool {
	if text == "" || targetUserID == "" {
		return false
	}
	return strings.Contains(text, MentionToken(targetUserID))
}

// ExtractMentionIDs は text に含まれるメンションのユーザーIDを出現順に返します
// 重複は除去しません
func ExtractMentionIDs(text string) []string {
	matches := mentionPattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}

	ids := make([]string, 0, len(matches))
	for _, match := range matches {
		if len(match) < 2 {
			continue
		}
		ids = append(ids, match[1])
	}
	return ids
}

// uniqueIDs は出現順を保ったまま重複を除去します
func uniqueIDs(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	var result []string
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		result = append(result, id)
	}
	return result
}
