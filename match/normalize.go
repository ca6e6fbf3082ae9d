package match

import (
	"regexp"
	"strings"
)

// Snapchat 导出中的媒体标识使用 b~ 或 b_ 前缀, 后接 base64 风格的字符。
var (
	mediaIDPattern     = regexp.MustCompile(`b[~_]([A-Za-z0-9_-]+)`)
	bareIDPattern      = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
	canonicalIDPattern = regexp.MustCompile(`^[a-z0-9_-]+$`)
	filenameIDRegex    = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}_b[~_]([A-Za-z0-9_-]+)`)
)

// NormalizeMediaID 从原始标识字段提取规范化的小写标识。
// 找不到可用标识时返回空串, 这不是错误。幂等:
// 已是规范形式 (纯小写标识字符) 的输入原样返回, 不再做前缀提取,
// 否则形如 "aab_cd" 的输出会被二次提取成 "cd"。
func NormalizeMediaID(raw string) string {
	if raw == "" {
		return ""
	}
	if canonicalIDPattern.MatchString(raw) {
		return raw
	}
	if m := mediaIDPattern.FindStringSubmatch(raw); m != nil {
		return strings.ToLower(m[1])
	}
	// 无前缀时, 只接受整体形如 base64 且足够长的输入
	if len(raw) >= 20 && bareIDPattern.MatchString(raw) {
		return strings.ToLower(raw)
	}
	return ""
}

// MediaIDFromFilename 从媒体文件名提取规范化标识。
// 标识必须紧跟在 YYYY-MM-DD_ 日期前缀与 b~/b_ 标记之后。
func MediaIDFromFilename(filename string) string {
	if m := filenameIDRegex.FindStringSubmatch(filename); m != nil {
		return strings.ToLower(m[1])
	}
	return ""
}
