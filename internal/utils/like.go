package utils

import "strings"

// LikeEscape 是 ContainsPattern 使用的转义字符，SQL 中写作 ESCAPE '\'
const LikeEscape = `\`

var likeReplacer = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// ContainsPattern 把任意文本转成 LIKE 子串匹配模式，% 和 _ 按字面匹配
func ContainsPattern(term string) string {
	return "%" + likeReplacer.Replace(term) + "%"
}
