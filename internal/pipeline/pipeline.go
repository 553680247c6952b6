// Package pipeline 驱动一次完整运行：取候选 → 跳过已处理 → 分类 →
// 解析 → 合并 → 批写 → 审计。运行内全部是内存内同步计算，无并行、
// 无挂起点；只有存储调用可能失败，且对整个运行是致命的。
package pipeline

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"mailorder/internal/event"
	"mailorder/internal/extract"
	"mailorder/internal/merge"
	"mailorder/internal/model"
	"mailorder/internal/parse"
	"mailorder/internal/store"
)

// Summary 是一次运行的对外结果：按检测类型计数 + 结局统计。
type Summary struct {
	RunID      string         `json:"run_id"`
	Candidates int            `json:"candidates"`
	Skipped    int            `json:"skipped"`
	Merged     int            `json:"merged"`
	Partial    int            `json:"partial"`
	Failed     int            `json:"failed"`
	ByType     map[string]int `json:"by_type"`
	Took       string         `json:"took"`
}

// Runner 编排一次运行。单写者：mu 把并发触发串行化，同一时刻至多
// 一个 Run 在跑，后到的触发排队等待而不是并行折叠同一批消息。
type Runner struct {
	store       *store.Store
	loc         *time.Location
	windowDays  int
	maxThreads  int
	maxMessages int
	log         *log.Logger

	mu sync.Mutex
}

func NewRunner(st *store.Store, loc *time.Location, windowDays, maxThreads, maxMessages int, logger *log.Logger) *Runner {
	return &Runner{
		store:       st,
		loc:         loc,
		windowDays:  windowDays,
		maxThreads:  maxThreads,
		maxMessages: maxMessages,
		log:         logger,
	}
}

// timed 返回计时收尾函数，给一段有标签的工序记录耗时。
func (r *Runner) timed(label string) func() {
	start := time.Now()
	return func() { r.log.Printf("%s took %s", label, time.Since(start).Round(time.Millisecond)) }
}

// Run 执行一次批处理。协作方（存储）失败中止整个运行，已写批次保持
// 已提交；单条消息的失败只转成一条审计日志，从不中止批次。
func (r *Runner) Run() (Summary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sum := Summary{RunID: uuid.New().String(), ByType: make(map[string]int)}
	start := time.Now()
	defer r.timed("run " + sum.RunID)()

	processed, err := r.store.ProcessedSet()
	if err != nil {
		return sum, err
	}
	msgs, err := r.store.FetchCandidates(r.windowDays, r.maxThreads, r.maxMessages)
	if err != nil {
		return sum, err
	}
	snap, err := r.store.Snapshot()
	if err != nil {
		return sum, err
	}
	sum.Candidates = len(msgs)

	logs := make([]model.EmailLog, 0, len(msgs))
	for _, msg := range msgs {
		if processed[msg.ID] {
			sum.Skipped++
			continue
		}
		entry := r.processOne(snap, msg, &sum)
		logs = append(logs, entry)
	}

	if err := r.store.Flush(snap); err != nil {
		return sum, err
	}
	if err := r.store.AppendLogs(logs); err != nil {
		return sum, err
	}

	sum.Took = time.Since(start).Round(time.Millisecond).String()
	r.log.Printf("run %s: candidates=%d skipped=%d merged=%d partial=%d failed=%d",
		sum.RunID, sum.Candidates, sum.Skipped, sum.Merged, sum.Partial, sum.Failed)
	return sum, nil
}

// processOne 处理单封消息并产出它的审计行。
func (r *Runner) processOne(snap *store.Snapshot, msg event.Message, sum *Summary) model.EmailLog {
	now := time.Now().In(r.loc).Format(time.RFC3339)
	t := event.Classify(msg.Subject)
	sum.ByType[string(t)]++

	entry := model.EmailLog{
		GmailMessageID: msg.ID,
		ThreadID:       msg.ThreadID,
		Subject:        msg.Subject,
		DetectedType:   string(t),
		LoggedAt:       now,
	}

	// 未识别类型按 Partial 记账：入日志、不重试、不再解析
	if t == event.TypeOther {
		entry.ParseResult = model.ParsePartial
		entry.Notes = "unrecognized subject, no parser applied"
		sum.Partial++
		return entry
	}

	p, ok := parse.ForType(t)
	if !ok {
		entry.ParseResult = model.ParsePartial
		entry.Notes = fmt.Sprintf("no parser for type %s", t)
		sum.Partial++
		return entry
	}

	rec, err := p(msg, r.loc)
	if err != nil {
		if !errors.Is(err, parse.ErrNoOrderID) {
			entry.ParseResult = model.ParseFailed
			entry.Notes = err.Error()
			sum.Failed++
			return entry
		}
		// 身份补救：正文提取不到订单号时，用主题 + 双正文再试一次
		full := strings.Join([]string{msg.Subject, msg.PlainBody, msg.HTMLBody}, "\n")
		rec.OrderID = extract.OrderID(full)
		if rec.OrderID == "" {
			entry.ParseResult = model.ParseFailed
			entry.Notes = "order id not found in subject or body"
			sum.Failed++
			return entry
		}
	}

	r.apply(snap, rec)
	entry.OrderID = rec.OrderID
	entry.ParseResult = model.ParseSuccess
	entry.Notes = fmt.Sprintf("merged as %s with %d item(s)", rec.Type, len(rec.Items))
	sum.Merged++
	return entry
}

// returnTypes 标记会产生退货/退款行的事件类型。
var returnTypes = map[event.Type]bool{
	event.TypeReturnRequested:        true,
	event.TypeReturnDropoffConfirmed: true,
	event.TypeRefundIssued:           true,
}

// apply 把一条事件记录折叠进快照：订单行 + 每个商品的生命周期行，
// 退货类事件再各折一条退货行。
func (r *Runner) apply(snap *store.Snapshot, rec event.Record) {
	merge.Order(snap.Order(rec.OrderID), rec)

	for _, it := range rec.Items {
		key := merge.ItemKey(rec.OrderID, it.ProductID, it.Title)
		merge.Item(snap.Item(key), rec, it)
		if returnTypes[rec.Type] {
			merge.ReturnItem(snap.Return(key), rec, it)
		}
	}
}
