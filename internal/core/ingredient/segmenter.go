package ingredient

import (
	"strings"
	"unicode/utf8"
)

// MinNameLength 清理後名稱需超過此長度才會保留
const MinNameLength = 2

// Markers 成分區段起始標記，依序比對（不是依出現位置）
var Markers = []string{"ingredients:", "contains:", "composition:"}

// Segment 將 OCR 原始文字切成依序排列的成分名稱。
// 不會回傳錯誤：格式不符時回傳空切片。
func Segment(rawText string) []string {
	names := make([]string, 0)
	body := stripPreamble(rawText)
	if strings.TrimSpace(body) == "" {
		return names
	}

	for _, piece := range strings.Split(body, ",") {
		if name := cleanPiece(piece); utf8.RuneCountInString(name) > MinNameLength {
			names = append(names, name)
		}
	}
	return names
}

// stripPreamble 移除第一個命中標記（依 Markers 順序）之前的所有文字
func stripPreamble(text string) string {
	lower := asciiLower(text)
	for _, marker := range Markers {
		if idx := strings.Index(lower, marker); idx != -1 {
			return strings.TrimSpace(text[idx+len(marker):])
		}
	}
	return strings.TrimSpace(text)
}

// asciiLower 只轉換 ASCII 字母，位元組偏移與原文一致
func asciiLower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if 'A' <= c && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}

// cleanPiece 修剪空白並截斷括號與百分比註記
func cleanPiece(piece string) string {
	name := strings.TrimSpace(piece)
	if idx := strings.Index(name, "("); idx != -1 {
		name = strings.TrimSpace(name[:idx])
	}
	if idx := strings.Index(name, "%"); idx != -1 {
		name = trimAmount(strings.TrimSpace(name[:idx]))
	}
	return name
}

// trimAmount 移除百分比前的數字，例如 "Citric Acid 2" → "Citric Acid"
func trimAmount(name string) string {
	idx := strings.LastIndexAny(name, " \t")
	if !isAmount(name[idx+1:]) {
		return name
	}
	if idx == -1 {
		return ""
	}
	return strings.TrimSpace(name[:idx])
}

func isAmount(token string) bool {
	if token == "" {
		return false
	}
	for _, r := range token {
		if (r < '0' || r > '9') && r != '.' && r != ',' {
			return false
		}
	}
	return true
}
