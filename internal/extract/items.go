package extract

import (
	"regexp"
	"strconv"
	"strings"
)

// Item 是从邮件正文提取出的单个商品条目。Qty 为 0 表示未知。
type Item struct {
	Title     string  `json:"title"`
	Qty       int     `json:"qty"`
	ProductID string  `json:"product_id,omitempty"`
	UnitPrice float64 `json:"unit_price,omitempty"`
	Currency  string  `json:"currency,omitempty"`
	Link      string  `json:"link,omitempty"`
}

var (
	bracketTitleRe = regexp.MustCompile(`^\s*\[([^\]]+)\]\s*(?:\((https?://[^)\s]+)\))?\s*$`)
	quantityRe     = regexp.MustCompile(`(?i)^\s*Quantity:\s*(\d+)\s*$`)
	productPathRe  = regexp.MustCompile(`/gp/product/([A-Za-z0-9]{10})`)
	// 订单确认邮件的宽松星号行："* 2 x Gadget - $28.48" 或 "* Gadget"
	starLineRe  = regexp.MustCompile(`^\s*\*\s*(?:(\d+)\s*[x×]\s*)?(.+?)(?:\s+[-–]\s+([$€£])\s?(\d{1,3}(?:,\d{3})*(?:\.\d+)?))?\s*$`)
	entityAmp   = strings.NewReplacer("&amp;", "&")
	titleCharRe = regexp.MustCompile(`[^a-z0-9$€£.\- ]+`)
	spaceRe     = regexp.MustCompile(`\s+`)
)

// BracketedItems 按行扫描 "[标题](链接?)" + "Quantity: N" 的配对。
// 标题行打开一个待定条目，数量行关闭它；纯文本模板会把订单号等元数据
// 插在标题与数量之间，因此允许向后看最多 2 行。没等到数量行的待定
// 标题直接丢弃，不会产出无数量条目。
func BracketedItems(text string) []Item {
	lines := strings.Split(text, "\n")
	items := make([]Item, 0, 4)

	for i := 0; i < len(lines); i++ {
		m := bracketTitleRe.FindStringSubmatch(lines[i])
		if m == nil {
			continue
		}
		title, link := strings.TrimSpace(m[1]), m[2]

		qty := 0
		end := i + 3 // 标题行之后最多看 3 行（数量行本身 + 2 行元数据）
		if end >= len(lines) {
			end = len(lines) - 1
		}
		for j := i + 1; j <= end; j++ {
			if bracketTitleRe.MatchString(lines[j]) {
				break // 下一个标题先出现，当前条目作废
			}
			if qm := quantityRe.FindStringSubmatch(lines[j]); qm != nil {
				n, err := strconv.Atoi(qm[1])
				if err == nil && n >= 1 {
					qty = n
					i = j
				}
				break
			}
		}
		if qty == 0 {
			continue
		}

		it := Item{Title: title, Qty: qty, Link: link}
		if pm := productPathRe.FindStringSubmatch(link); pm != nil {
			it.ProductID = pm[1]
		}
		items = append(items, it)
	}
	return items
}

// StarredItems 解析订单确认邮件的星号条目行：
//
//	* 2 x Gadget - $28.48
//	* USB Cable
//
// 数量缺省为 1，单价可缺省。
func StarredItems(text string) []Item {
	lines := strings.Split(text, "\n")
	items := make([]Item, 0, 4)
	for _, line := range lines {
		if !strings.HasPrefix(strings.TrimSpace(line), "*") {
			continue
		}
		m := starLineRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		title := strings.TrimSpace(m[2])
		if title == "" {
			continue
		}
		it := Item{Title: title, Qty: 1}
		if m[1] != "" {
			if n, err := strconv.Atoi(m[1]); err == nil && n >= 1 {
				it.Qty = n
			}
		}
		if m[4] != "" {
			raw := strings.ReplaceAll(m[4], ",", "")
			if v, err := strconv.ParseFloat(raw, 64); err == nil {
				it.UnitPrice = v
				it.Currency = currencyBySymbol[m[3]]
			}
		}
		if pm := productPathRe.FindStringSubmatch(line); pm != nil {
			it.ProductID = pm[1]
		}
		items = append(items, it)
	}
	return items
}

// NormalizeTitle 把标题规整成跨邮件稳定的键片段：小写、展开 &amp;、
// 删除白名单外字符、折叠空白。
func NormalizeTitle(title string) string {
	s := strings.ToLower(entityAmp.Replace(title))
	s = titleCharRe.ReplaceAllString(s, " ")
	s = spaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
