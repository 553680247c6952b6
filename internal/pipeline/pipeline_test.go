package pipeline

import (
	"fmt"
	"io"
	"log"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"mailorder/internal/event"
	"mailorder/internal/model"
	"mailorder/internal/store"
)

const orderID = "123-4567890-1234567"

func testRunner(t *testing.T) (*Runner, *gorm.DB, *store.Store) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, store.AutoMigrate(db))
	st := store.New(db)
	r := NewRunner(st, time.UTC, 30, 100, 100, log.New(io.Discard, "", 0))
	return r, db, st
}

func seedInbound(t *testing.T, db *gorm.DB, id, subject, body string, at time.Time) {
	t.Helper()
	require.NoError(t, db.Create(&model.InboundEmail{
		MessageID:  id,
		ThreadID:   "thread-" + orderID,
		Subject:    subject,
		PlainBody:  body,
		FromEmail:  "auto-confirm@shop.example",
		ToEmail:    "buyer@example.org",
		ReceivedAt: at,
	}).Error)
}

func orderedBody() string {
	return fmt.Sprintf(
		"Thanks for your order %s.\n\n[Gadget](https://shop.example/gp/product/B000000001)\nQuantity: 2\n\nOrder Total\n$56.96\n",
		orderID)
}

func TestRunMergesLifecycle(t *testing.T) {
	r, db, _ := testRunner(t)
	base := time.Now().Add(-48 * time.Hour)

	seedInbound(t, db, "m-ordered", "Ordered: Gadget", orderedBody(), base)
	seedInbound(t, db, "m-shipped", "Shipped: Gadget",
		"On the way.\nOrder #"+orderID+"\nArriving: Mon, Aug 18\n", base.Add(24*time.Hour))

	sum, err := r.Run()
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Candidates)
	assert.Equal(t, 2, sum.Merged)
	assert.Equal(t, 1, sum.ByType[string(event.TypeOrdered)])
	assert.Equal(t, 1, sum.ByType[string(event.TypeShipped)])

	var o model.Order
	require.NoError(t, db.Where("order_id = ?", orderID).First(&o).Error)
	assert.Equal(t, event.StatusShipped, o.Status)
	assert.InDelta(t, 56.96, o.OrderTotal, 0.001)
	assert.NotEmpty(t, o.OrderedAt)
	assert.NotEmpty(t, o.ShippedAt)
	assert.Equal(t, 2, o.ItemsCount)

	var it model.OrderItem
	require.NoError(t, db.Where("item_key = ?", orderID+"|asin:B000000001").First(&it).Error)
	assert.Equal(t, 2, it.Qty)
	assert.Equal(t, event.StatusOrdered, it.Status)

	var logs []model.EmailLog
	require.NoError(t, db.Find(&logs).Error)
	assert.Len(t, logs, 2)
	for _, l := range logs {
		assert.Equal(t, model.ParseSuccess, l.ParseResult)
		assert.Equal(t, orderID, l.OrderID)
	}
}

func TestRunSkipsProcessed(t *testing.T) {
	r, db, _ := testRunner(t)
	seedInbound(t, db, "m-ordered", "Ordered: Gadget", orderedBody(), time.Now())

	_, err := r.Run()
	require.NoError(t, err)

	// 第二次运行：同一封邮件被跳过，不追加日志
	sum, err := r.Run()
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Skipped)
	assert.Equal(t, 0, sum.Merged)

	var count int64
	require.NoError(t, db.Model(&model.EmailLog{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestRunConcurrentTriggersSerialized(t *testing.T) {
	r, db, _ := testRunner(t)
	seedInbound(t, db, "m-ordered", "Ordered: Gadget", orderedBody(), time.Now())

	// 两个并发触发：后到的排队，第二次运行看到已处理集合后只会跳过
	var wg sync.WaitGroup
	sums := make([]Summary, 2)
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sums[i], errs[i] = r.Run()
		}(i)
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	assert.Equal(t, 1, sums[0].Merged+sums[1].Merged)
	assert.Equal(t, 1, sums[0].Skipped+sums[1].Skipped)

	var count int64
	require.NoError(t, db.Model(&model.EmailLog{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestRunFailedRetried(t *testing.T) {
	r, db, _ := testRunner(t)
	// 无订单号：硬失败，但 Failed 不进已处理集，下次运行重试
	seedInbound(t, db, "m-bad", "Shipped: Gadget", "no order number anywhere", time.Now())

	sum, err := r.Run()
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Failed)

	sum, err = r.Run()
	require.NoError(t, err)
	assert.Equal(t, 0, sum.Skipped)
	assert.Equal(t, 1, sum.Failed)

	var logs []model.EmailLog
	require.NoError(t, db.Find(&logs).Error)
	assert.Len(t, logs, 2)
	for _, l := range logs {
		assert.Equal(t, model.ParseFailed, l.ParseResult)
	}
}

func TestRunOtherIsPartialNotRetried(t *testing.T) {
	r, db, _ := testRunner(t)
	seedInbound(t, db, "m-promo", "Weekly deals just for you", "nothing to parse", time.Now())

	sum, err := r.Run()
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Partial)
	assert.Equal(t, 1, sum.ByType[string(event.TypeOther)])

	// Partial 计入已处理，不重试
	sum, err = r.Run()
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Skipped)

	var l model.EmailLog
	require.NoError(t, db.First(&l).Error)
	assert.Equal(t, model.ParsePartial, l.ParseResult)
	assert.Equal(t, string(event.TypeOther), l.DetectedType)
}

func TestRunOrderIDFromSubjectRescue(t *testing.T) {
	r, db, _ := testRunner(t)
	// 正文无订单号，但主题里有：补救提取后按 Success 处理
	seedInbound(t, db, "m-rescue", "Shipped: order "+orderID, "your package is moving", time.Now())

	sum, err := r.Run()
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Merged)

	var o model.Order
	require.NoError(t, db.Where("order_id = ?", orderID).First(&o).Error)
	assert.Equal(t, event.StatusShipped, o.Status)
}

func TestRunOutOfOrderRefund(t *testing.T) {
	r, db, _ := testRunner(t)
	base := time.Now().Add(-72 * time.Hour)
	itemBlock := "[Gadget](https://shop.example/gp/product/B000000001)\nOrder #" + orderID + "\nQuantity: 1\n"

	// 退款邮件先入库，退货申请后入库（乱序投递）
	seedInbound(t, db, "m-refund", "Your refund is complete",
		"Refund total: $28.48 to your card ending in 4242.\n"+itemBlock, base.Add(48*time.Hour))
	seedInbound(t, db, "m-return", "Return requested for Gadget",
		"Refund subtotal: $28.48\n"+itemBlock, base.Add(49*time.Hour))

	_, err := r.Run()
	require.NoError(t, err)

	var ri model.ReturnItem
	require.NoError(t, db.Where("item_key = ?", orderID+"|asin:B000000001").First(&ri).Error)
	// 最高秩胜出，与到达顺序无关
	assert.Equal(t, event.StatusRefundIssued, ri.Status)
	assert.Len(t, model.DecodeHistory(ri.StatusHistory), 2)
	assert.Equal(t, "4242", ri.CardLast4)

	var count int64
	require.NoError(t, db.Model(&model.ReturnItem{}).Count(&count).Error)
	assert.EqualValues(t, 1, count) // 两封邮件收敛到同一退货行
}
