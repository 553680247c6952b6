// Package store 把合并算法与存储的行列形状解耦：运行开始时整表读成
// 内存快照（键 → 行指针），运行内只改内存，批写边界再落库。
package store

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"mailorder/internal/event"
	"mailorder/internal/model"
)

// Store 是 gorm/sqlite 之上的实体存取层。单写者、同步调用，不提供
// 运行级回滚——宿主保证同一时刻至多一个运行。
type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store { return &Store{db: db} }

// AutoMigrate 建出全部表。
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.Order{},
		&model.OrderItem{},
		&model.ReturnItem{},
		&model.EmailLog{},
		&model.InboundEmail{},
	)
}

// Snapshot 是一次运行期间的目标存储内存镜像。实体首次被引用时播种
// 空行；运行内建行/改行只动内存，Flush 时统一落库。
type Snapshot struct {
	orders  map[string]*model.Order
	items   map[string]*model.OrderItem
	returns map[string]*model.ReturnItem

	touchedOrders  map[string]bool
	touchedItems   map[string]bool
	touchedReturns map[string]bool
}

// Snapshot 读全量实体行构建快照。缺表等存储故障对整个运行是致命的。
func (s *Store) Snapshot() (*Snapshot, error) {
	snap := &Snapshot{
		orders:         make(map[string]*model.Order),
		items:          make(map[string]*model.OrderItem),
		returns:        make(map[string]*model.ReturnItem),
		touchedOrders:  make(map[string]bool),
		touchedItems:   make(map[string]bool),
		touchedReturns: make(map[string]bool),
	}

	var orders []model.Order
	if err := s.db.Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("load orders: %w", err)
	}
	for i := range orders {
		snap.orders[orders[i].OrderID] = &orders[i]
	}

	var items []model.OrderItem
	if err := s.db.Find(&items).Error; err != nil {
		return nil, fmt.Errorf("load order items: %w", err)
	}
	for i := range items {
		snap.items[items[i].ItemKey] = &items[i]
	}

	var returns []model.ReturnItem
	if err := s.db.Find(&returns).Error; err != nil {
		return nil, fmt.Errorf("load return items: %w", err)
	}
	for i := range returns {
		snap.returns[returns[i].ItemKey] = &returns[i]
	}
	return snap, nil
}

// Order 取或播种订单行（首见实体 = 空行 + 首个事件合并出来）。
func (sn *Snapshot) Order(orderID string) *model.Order {
	sn.touchedOrders[orderID] = true
	if o, ok := sn.orders[orderID]; ok {
		return o
	}
	o := &model.Order{OrderID: orderID}
	sn.orders[orderID] = o
	return o
}

// Item 取或播种统一生命周期条目行。
func (sn *Snapshot) Item(key string) *model.OrderItem {
	sn.touchedItems[key] = true
	if it, ok := sn.items[key]; ok {
		return it
	}
	it := &model.OrderItem{ItemKey: key}
	sn.items[key] = it
	return it
}

// Return 取或播种退货/退款行。
func (sn *Snapshot) Return(key string) *model.ReturnItem {
	sn.touchedReturns[key] = true
	if ri, ok := sn.returns[key]; ok {
		return ri
	}
	ri := &model.ReturnItem{ItemKey: key}
	sn.returns[key] = ri
	return ri
}

// Flush 把本次运行触碰过的行批量落库：键控的插入或整行覆盖，
// 不做盲追加，失败的运行重跑是安全的。
func (s *Store) Flush(sn *Snapshot) error {
	for key := range sn.touchedOrders {
		if err := s.db.Save(sn.orders[key]).Error; err != nil {
			return fmt.Errorf("save order %s: %w", key, err)
		}
	}
	for key := range sn.touchedItems {
		if err := s.db.Save(sn.items[key]).Error; err != nil {
			return fmt.Errorf("save item %s: %w", key, err)
		}
	}
	for key := range sn.touchedReturns {
		if err := s.db.Save(sn.returns[key]).Error; err != nil {
			return fmt.Errorf("save return item %s: %w", key, err)
		}
	}
	return nil
}

// ProcessedSet 返回可跳过消息 id 集合：parse_result != 'Failed' 的
// 日志条目算处理完成，Failed 留给下次运行重试。
func (s *Store) ProcessedSet() (map[string]bool, error) {
	var ids []string
	err := s.db.Model(&model.EmailLog{}).
		Where("parse_result <> ?", model.ParseFailed).
		Pluck("gmail_message_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("load processed set: %w", err)
	}
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set, nil
}

// AppendLogs 批量追加审计日志，只追加不合并。
func (s *Store) AppendLogs(entries []model.EmailLog) error {
	if len(entries) == 0 {
		return nil
	}
	if err := s.db.Create(&entries).Error; err != nil {
		return fmt.Errorf("append email logs: %w", err)
	}
	return nil
}

// FetchCandidates 从收件箱取运行候选：按时间窗过滤、按收件时间升序，
// 线程数与消息总数双重封顶。
func (s *Store) FetchCandidates(windowDays, maxThreads, maxMessages int) ([]event.Message, error) {
	cutoff := time.Now().AddDate(0, 0, -windowDays)
	var rows []model.InboundEmail
	err := s.db.Where("received_at >= ?", cutoff).
		Order("received_at asc").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("load inbound emails: %w", err)
	}

	msgs := make([]event.Message, 0, len(rows))
	threads := make(map[string]bool)
	for _, r := range rows {
		if len(msgs) >= maxMessages {
			break
		}
		tid := r.ThreadID
		if tid == "" {
			tid = r.MessageID
		}
		if !threads[tid] {
			if len(threads) >= maxThreads {
				continue
			}
			threads[tid] = true
		}
		msgs = append(msgs, event.Message{
			ID:        r.MessageID,
			ThreadID:  r.ThreadID,
			Subject:   r.Subject,
			PlainBody: r.PlainBody,
			HTMLBody:  r.HTMLBody,
			Date:      r.ReceivedAt,
			From:      r.FromEmail,
			To:        r.ToEmail,
		})
	}
	return msgs, nil
}

// SaveInbound 落一封原始邮件。重复投递撞唯一索引按幂等成功处理。
func (s *Store) SaveInbound(em *model.InboundEmail) error {
	if err := s.db.Create(em).Error; err != nil {
		if errorsLikeUnique(err) {
			return nil
		}
		return fmt.Errorf("save inbound email: %w", err)
	}
	return nil
}

func errorsLikeUnique(err error) bool {
	if err == nil {
		return false
	}
	s := err.Error()
	return strings.Contains(s, "UNIQUE") || strings.Contains(s, "unique")
}
