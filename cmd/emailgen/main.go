package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"time"
)

// Result 记录单次请求的 HTTP 结果，便于聚合统计。
type Result struct {
	Status int
	Body   string
	Err    error
}

// emailReq 与 /api/emails 的请求体一致。
type emailReq struct {
	MessageID  string `json:"message_id"`
	ThreadID   string `json:"thread_id"`
	Subject    string `json:"subject"`
	PlainBody  string `json:"plain_body"`
	From       string `json:"from"`
	To         string `json:"to"`
	ReceivedAt string `json:"received_at"`
}

func main() {
	baseURL := flag.String("base", "http://localhost:8080", "server base url")
	nOrders := flag.Int("orders", 20, "distinct orders to simulate")
	returns := flag.Int("returns", 5, "orders that go through the return lifecycle")
	runAfter := flag.Bool("run", true, "trigger a pipeline run after ingest")
	adminToken := flag.String("admin-token", "dev-admin-token", "admin token for run endpoint")
	flag.Parse()

	client := &http.Client{Timeout: 5 * time.Second}

	// 为每个订单生成下单 → 发货 → 送达邮件；前 returns 个再补全退货三部曲。
	var results []Result
	for i := 0; i < *nOrders; i++ {
		orderID := fmt.Sprintf("%03d-%07d-%07d", 100+i%900, rand.Intn(10000000), rand.Intn(10000000))
		asin := fmt.Sprintf("B%09d", rand.Intn(1000000000))
		base := time.Now().AddDate(0, 0, -rand.Intn(10)-5)

		msgs := lifecycleEmails(orderID, asin, i, base)
		if i < *returns {
			msgs = append(msgs, returnEmails(orderID, asin, i, base.AddDate(0, 0, 4))...)
		}
		for _, m := range msgs {
			results = append(results, postEmail(client, *baseURL, m))
		}
	}
	printSummary("ingest", results)

	if *runAfter {
		// 给 relay → kafka → consumer 链路一点落库时间再触发运行。
		time.Sleep(3 * time.Second)
		body, err := triggerRun(client, *baseURL, *adminToken)
		if err != nil {
			fmt.Println("run failed:", err)
			return
		}
		fmt.Println("run summary:", body)
	}
}

// lifecycleEmails 生成一个订单的下单/发货/送达三封通知邮件。
func lifecycleEmails(orderID, asin string, seq int, base time.Time) []emailReq {
	title := fmt.Sprintf("Gadget %d", seq)
	qty := 1 + seq%3
	unit := float64(899+seq*37) / 100
	total := float64(qty) * unit

	ordered := emailReq{
		MessageID: fmt.Sprintf("msg-%s-ordered", orderID),
		ThreadID:  "thread-" + orderID,
		Subject:   fmt.Sprintf("Ordered: %s", title),
		PlainBody: fmt.Sprintf(
			"Hello,\n\nThanks for your order %s.\n\n[%s](https://www.example.com/gp/product/%s)\nOrder #%s\nQuantity: %d\n\nOrder Total\n$%.2f\n\nArriving: %s\n",
			orderID, title, asin, orderID, qty, total, base.AddDate(0, 0, 4).Format("Mon, Jan 2")),
		From:       "auto-confirm@example.com",
		To:         "buyer@example.org",
		ReceivedAt: base.Format(time.RFC3339),
	}
	shipped := ordered
	shipped.MessageID = fmt.Sprintf("msg-%s-shipped", orderID)
	shipped.Subject = fmt.Sprintf("Shipped: %s", title)
	shipped.PlainBody = fmt.Sprintf(
		"Your package is on the way.\n\nOrder #%s\nArriving: %s\nTrack package (https://www.example.com/track/%s)\n",
		orderID, base.AddDate(0, 0, 4).Format("Mon, Jan 2"), orderID)
	shipped.From = "ship-confirm@example.com"
	shipped.ReceivedAt = base.AddDate(0, 0, 1).Format(time.RFC3339)

	delivered := ordered
	delivered.MessageID = fmt.Sprintf("msg-%s-delivered", orderID)
	delivered.Subject = fmt.Sprintf("Delivered: %s", title)
	delivered.PlainBody = fmt.Sprintf("Your package was delivered.\n\nOrder #%s\nView order (https://www.example.com/orders/%s)\n", orderID, orderID)
	delivered.From = "order-update@example.com"
	delivered.ReceivedAt = base.AddDate(0, 0, 3).Format(time.RFC3339)

	return []emailReq{ordered, shipped, delivered}
}

// returnEmails 生成退货申请 / 投递确认 / 退款完成三封邮件。
func returnEmails(orderID, asin string, seq int, base time.Time) []emailReq {
	title := fmt.Sprintf("Gadget %d", seq)
	amount := float64(899+seq*37) / 100

	requested := emailReq{
		MessageID: fmt.Sprintf("msg-%s-return", orderID),
		ThreadID:  "thread-" + orderID,
		Subject:   "Your return requested for " + title,
		PlainBody: fmt.Sprintf(
			"We received your return request.\n\n[%s](https://www.example.com/gp/product/%s)\nOrder #%s\nQuantity: 1\n\nRefund subtotal: $%.2f\nTotal estimated refund: $%.2f\nRefund will go to your card ending in 4242.\nDrop off by %s\nDropoff location: Locker Plaza\nQR code (https://www.example.com/qr/%s)\n",
			title, asin, orderID, amount, amount, base.AddDate(0, 0, 14).Format("Mon, Jan 2"), orderID),
		From:       "return-confirm@example.com",
		To:         "buyer@example.org",
		ReceivedAt: base.Format(time.RFC3339),
	}

	dropped := requested
	dropped.MessageID = fmt.Sprintf("msg-%s-dropoff", orderID)
	dropped.Subject = "Your dropoff is complete"
	dropped.PlainBody = fmt.Sprintf(
		"Your return was dropped off at Locker Plaza.\n\n[%s](https://www.example.com/gp/product/%s)\nOrder #%s\nQuantity: 1\n", title, asin, orderID)
	dropped.ReceivedAt = base.AddDate(0, 0, 2).Format(time.RFC3339)

	refunded := requested
	refunded.MessageID = fmt.Sprintf("msg-%s-refund", orderID)
	refunded.Subject = "Your refund is complete"
	refunded.PlainBody = fmt.Sprintf(
		"Refund total: $%.2f issued to your card ending in 4242.\n\n[%s](https://www.example.com/gp/product/%s)\nOrder #%s\nQuantity: 1\nView invoice (https://www.example.com/invoice/%s)\n",
		amount, title, asin, orderID, orderID)
	refunded.ReceivedAt = base.AddDate(0, 0, 5).Format(time.RFC3339)

	return []emailReq{requested, dropped, refunded}
}

func postEmail(client *http.Client, baseURL string, req emailReq) Result {
	b, _ := json.Marshal(req)
	httpReq, _ := http.NewRequest(http.MethodPost, baseURL+"/api/emails", bytes.NewReader(b))
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(httpReq)
	if err != nil {
		return Result{Err: err}
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return Result{Status: resp.StatusCode, Body: string(body)}
}

func triggerRun(client *http.Client, baseURL, adminToken string) (string, error) {
	req, _ := http.NewRequest(http.MethodPost, baseURL+"/api/runs", nil)
	req.Header.Set("X-Admin-Token", adminToken)
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("status=%d body=%s", resp.StatusCode, string(b))
	}
	return string(b), nil
}

// printSummary 聚合输出不同状态码分布。
func printSummary(name string, results []Result) {
	count := map[int]int{}
	errCount := 0
	for _, r := range results {
		if r.Err != nil {
			errCount++
			continue
		}
		count[r.Status]++
	}
	fmt.Printf("[%s] http status summary:\n", name)
	for _, code := range []int{200, 400, 404, 429, 500} {
		if count[code] > 0 {
			fmt.Printf("  %d -> %d\n", code, count[code])
		}
	}
	if errCount > 0 {
		fmt.Printf("  errors -> %d\n", errCount)
	}
}
