package extract

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// 本包内的提取器都是全函数：匹配失败返回空串/零值，绝不 panic。
// 所有模式只对有限窗口做匹配，避免长邮件正文触发病态回溯。

var (
	orderIDRe = regexp.MustCompile(`\d{3}-\d{7}-\d{7}`)
	last4Re   = regexp.MustCompile(`(?i)ending\s+(?:in|with)\D{0,8}(\d{4})`)
	urlRe     = regexp.MustCompile(`https?://[^\s)>"]+`)
	parenURL  = regexp.MustCompile(`\((https?://[^)\s]+)\)`)
	tagRe     = regexp.MustCompile(`(?s)<[^>]*>`)
	blockTag  = regexp.MustCompile(`(?i)</?(p|div|br|tr|li|h[1-6]|table)[^>]*>`)
	// 金额：货币符号 + 十进制数（可带千分位），或数字直接后缀 ISO 代码；
	// 两者都没有的裸数字不算金额。
	amountRe = regexp.MustCompile(`([$€£])?\s?(\d{1,3}(?:,\d{3})*(?:\.\d+)?|\d+(?:\.\d+)?)\s?([A-Z]{3})?`)
	dateRe   = regexp.MustCompile(`(?i)(Sun|Mon|Tue|Wed|Thu|Fri|Sat)[a-z]*,?\s+([A-Za-z]{3})[a-z]*\.?\s+(\d{1,2})`)
)

// 金额标签与数字之间允许的最大间隔（标点/空白/标记混排的窗口上限）。
const amountWindow = 120

var monthTable = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "may": time.May, "jun": time.June,
	"jul": time.July, "aug": time.August, "sep": time.September,
	"oct": time.October, "nov": time.November, "dec": time.December,
}

// currencyBySymbol 无显式 ISO 代码时按符号推断币种。
var currencyBySymbol = map[string]string{
	"$": "USD",
	"€": "EUR",
	"£": "GBP",
}

// OrderID 返回文本中第一个形如 \d{3}-\d{7}-\d{7} 的订单号，找不到返回空串。
func OrderID(text string) string {
	return orderIDRe.FindString(text)
}

// Amount 在 text 中定位 label（大小写不敏感，词边界锚定，避免
// "Total" 命中 "Subtotal" 内部），取其后有限窗口内最近的货币金额。
// 返回 (数值, 币种, 是否命中)。
func Amount(text, label string) (float64, string, bool) {
	re, err := regexp.Compile(`(?i)\b(?:` + label + `)`)
	if err != nil {
		return 0, "", false
	}
	loc := re.FindStringIndex(text)
	if loc == nil {
		return 0, "", false
	}
	window := text[loc[1]:]
	if len(window) > amountWindow {
		window = window[:amountWindow]
	}
	for _, m := range amountRe.FindAllStringSubmatch(window, -1) {
		if m[1] == "" && m[3] == "" {
			continue // 裸数字不是金额
		}
		raw := strings.ReplaceAll(m[2], ",", "")
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			continue
		}
		cur := m[3]
		if cur == "" {
			cur = currencyBySymbol[m[1]]
		}
		return v, cur, true
	}
	return 0, "", false
}

// Date 在 label 之后寻找 "Mon, Aug 18" 形式的日期记号，与 year 组合成
// 日期（来源邮件省略年份）。返回 "2006-01-02" 格式，解析失败返回空串。
// label 为空时对整个文本取第一个日期记号。
func Date(text, label string, year int) string {
	scope := text
	if label != "" {
		re, err := regexp.Compile(`(?i)` + label)
		if err != nil {
			return ""
		}
		loc := re.FindStringIndex(text)
		if loc == nil {
			return ""
		}
		scope = text[loc[1]:]
	}
	m := dateRe.FindStringSubmatch(scope)
	if m == nil {
		return ""
	}
	month, ok := monthTable[strings.ToLower(m[2])]
	if !ok {
		return ""
	}
	day, err := strconv.Atoi(m[3])
	if err != nil || day < 1 || day > 31 {
		return ""
	}
	return fmt.Sprintf("%04d-%02d-%02d", year, int(month), day)
}

// CardLast4 返回 "ending in/with" 之后的第一个 4 位数字组。
func CardLast4(text string) string {
	m := last4Re.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return m[1]
}

// LabeledLink 定位固定标签短语所在行，按回退链取 URL：
// 同行括号内 URL → 同行第一个 URL → 下一非空行第一个 URL → 空串。
func LabeledLink(text, label string) string {
	lower := strings.ToLower(label)
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if !strings.Contains(strings.ToLower(line), lower) {
			continue
		}
		if m := parenURL.FindStringSubmatch(line); m != nil {
			return m[1]
		}
		if u := urlRe.FindString(line); u != "" {
			return u
		}
		for j := i + 1; j < len(lines); j++ {
			if strings.TrimSpace(lines[j]) == "" {
				continue
			}
			return urlRe.FindString(lines[j])
		}
		return ""
	}
	return ""
}

// LabeledText 返回标签所在行标签之后的剩余文本（剥掉前导冒号与空白），
// 行内无剩余时取下一非空行；找不到标签返回空串。
func LabeledText(text, label string) string {
	lower := strings.ToLower(label)
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		idx := strings.Index(strings.ToLower(line), lower)
		if idx < 0 {
			continue
		}
		rest := strings.TrimLeft(line[idx+len(label):], ": \t")
		if rest = strings.TrimSpace(rest); rest != "" {
			return rest
		}
		for j := i + 1; j < len(lines); j++ {
			if s := strings.TrimSpace(lines[j]); s != "" {
				return s
			}
		}
		return ""
	}
	return ""
}

// StripHTML 去掉标记并还原常见实体，把 HTML 正文降级成可提取的纯文本。
// 块级标签断行，保证行级提取器（链接、条目）仍按行工作。
func StripHTML(html string) string {
	s := blockTag.ReplaceAllString(html, "\n")
	s = tagRe.ReplaceAllString(s, "")
	r := strings.NewReplacer(
		"&amp;", "&",
		"&nbsp;", " ",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&#39;", "'",
	)
	s = r.Replace(s)
	return s
}
