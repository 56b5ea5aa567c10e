package telegram

import "strings"

// MessageLimit: максимальная длина сообщения Telegram в символах.
const MessageLimit = 4096

// SplitMessage режет текст на части не длиннее MessageLimit.
// Граница по возможности ставится на перевод строки, чтобы строки таблицы не рвались.
func SplitMessage(text string) []string {
	runes := []rune(strings.TrimSpace(text))
	if len(runes) == 0 {
		return nil
	}

	var parts []string
	for len(runes) > MessageLimit {
		cut := MessageLimit
		if nl := lastNewline(runes[:MessageLimit]); nl > 0 {
			cut = nl
		}
		if chunk := strings.Trim(string(runes[:cut]), "\n"); chunk != "" {
			parts = append(parts, chunk)
		}
		runes = []rune(strings.TrimLeft(string(runes[cut:]), "\n"))
	}
	if chunk := strings.Trim(string(runes), "\n"); chunk != "" {
		parts = append(parts, chunk)
	}
	return parts
}

func lastNewline(runes []rune) int {
	for i := len(runes) - 1; i >= 0; i-- {
		if runes[i] == '\n' {
			return i
		}
	}
	return -1
}
