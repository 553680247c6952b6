package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		subject string
		want    Type
	}{
		{"Ordered: Widget", TypeOrdered},
		{"  ordered: widget  ", TypeOrdered},
		{"Your Order Confirmation", TypeOrdered},
		{"Shipped: Widget", TypeShipped},
		{"Your package has shipped", TypeShipped},
		{"Delivered: Widget", TypeDelivered},
		{"Your package has been delivered", TypeDelivered},
		{"Your order has been cancelled", TypeCancelled},
		{"Your refund is complete", TypeRefundIssued},
		// "refund" 必须先于裸 "return" 命中
		{"Refund issued for your return", TypeRefundIssued},
		{"Your dropoff is complete", TypeReturnDropoffConfirmed},
		{"Item dropped off at locker", TypeReturnDropoffConfirmed},
		{"Return requested for Widget", TypeReturnRequested},
		{"Your return of Widget", TypeReturnRequested},
		{"Weekly deals just for you", TypeOther},
		{"", TypeOther},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Classify(tc.subject), "subject=%q", tc.subject)
	}
}

func TestClassifyDeterministic(t *testing.T) {
	for i := 0; i < 3; i++ {
		assert.Equal(t, TypeOrdered, Classify("Ordered: Widget"))
	}
}

func TestTypeStatus(t *testing.T) {
	assert.Equal(t, StatusOrdered, TypeOrdered.Status())
	assert.Equal(t, StatusRefundIssued, TypeRefundIssued.Status())
	assert.Equal(t, Status(""), TypeOther.Status())
}

func TestStatusRank(t *testing.T) {
	assert.Equal(t, 1, StatusOrdered.Rank())
	assert.Equal(t, 6, StatusRefundIssued.Rank())
	// Cancelled 是秩 0 旁支
	assert.Equal(t, 0, StatusCancelled.Rank())
	assert.Equal(t, -1, Status("bogus").Rank())

	assert.Greater(t, StatusShipped.Rank(), StatusOrdered.Rank())
	assert.Greater(t, StatusDelivered.Rank(), StatusShipped.Rank())
	assert.Greater(t, StatusReturnRequested.Rank(), StatusDelivered.Rank())
	assert.Greater(t, StatusReturnDropoffConfirmed.Rank(), StatusReturnRequested.Rank())
	assert.Greater(t, StatusRefundIssued.Rank(), StatusReturnDropoffConfirmed.Rank())
}
