package service

import (
	"fmt"
	"strings"

	"mention-relay/project/domain"
)

// 転送メッセージのヘッダー
const forwardHeader = "*特定のユーザーがメンションされました*"

// UnknownUserName は名前解決に失敗したユーザーの代替表示です
func UnknownUserName(userID string) string {
	return fmt.Sprintf("Unknown User (%s)", userID)
}

// UnknownChannelName は名前解決に失敗したチャンネルの代替表示です
func UnknownChannelName(channelID string) string {
	return fmt.Sprintf("Unknown Channel (%s)", channelID)
}

// ReplaceMentions は body 内のメンションを @表示名 に置換します
// names に含まれないIDは代替表示に置換し、生のメンションは残しません
func ReplaceMentions(body string, names map[string]string) string {
	return mentionPattern.ReplaceAllStringFunc(body, func(token string) string {
		match := mentionPattern.FindStringSubmatch(token)
		if len(match) < 2 {
			return token
		}
		if name, ok := names[match[1]]; ok && name != "" {
			return "@" + name
		}
		return "@" + UnknownUserName(match[1])
	})
}

// QuoteBody は複数行の本文を引用ブロックにします
// 1行目の引用記号はテンプレート側で付与するため、2行目以降の行頭に ">" を付けます
func QuoteBody(body string) string {
	body = strings.ReplaceAll(body, "\r\n", "\n")
	return strings.Join(strings.Split(body, "\n"), "\n>")
}

// FormatMessage は転送先に投稿するテキストを組み立てます
// 同じ入力に対して常に同じ出力を返します
func FormatMessage(m domain.ForwardedMessage) string {
	var b strings.Builder

	if len(m.LeadingMentions) > 0 {
		tokens := make([]string, 0, len(m.LeadingMentions))
		for _, id := range m.LeadingMentions {
			tokens = append(tokens, MentionToken(id))
		}
		b.WriteString(strings.Join(tokens, " "))
		b.WriteString("\n")
	}

	b.WriteString(forwardHeader)
	if m.WorkspaceName != "" {
		fmt.Fprintf(&b, " (%s)", m.WorkspaceName)
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, ">送信者: %s\n", m.SenderName)
	fmt.Fprintf(&b, ">チャンネル: #%s\n", m.ChannelName)
	fmt.Fprintf(&b, ">メッセージ: %s", m.QuotedBody)

	return b.String()
}
