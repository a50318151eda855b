package tracker

import "strings"

// 文档注释：显示名清洗
// 背景：远端名称可能是 "((1089116))" 占位符、带 "Weekly Strike Mission:" 前缀或 "(Squad)" 后缀。
// 返回：占位符返回空串；去掉首个冒号及之前的内容与首个左括号及之后的内容，再去首尾空白。
func DisplayName(s string) string {
	if s == "" || strings.HasPrefix(s, "((") {
		return ""
	}
	if i := strings.IndexByte(s, ':'); i >= 0 {
		s = s[i+1:]
	}
	if i := strings.IndexByte(s, '('); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}
