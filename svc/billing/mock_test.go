package billing_test

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/dmitrymomot/accountbilling/svc/billing"
)

type processorMock struct {
	mock.Mock
}

func (m *processorMock) CreateCustomer(ctx context.Context, p billing.CustomerParams) (string, error) {
	args := m.Called(ctx, p)
	return args.String(0), args.Error(1)
}

func (m *processorMock) AttachPaymentMethod(ctx context.Context, customerID, paymentMethodID string) error {
	return m.Called(ctx, customerID, paymentMethodID).Error(0)
}

func (m *processorMock) CreateSubscription(ctx context.Context, p billing.CreateSubscriptionParams) (billing.Subscription, error) {
	args := m.Called(ctx, p)
	return args.Get(0).(billing.Subscription), args.Error(1)
}

func (m *processorMock) RetrieveSubscription(ctx context.Context, id string) (billing.Subscription, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(billing.Subscription), args.Error(1)
}

func (m *processorMock) UpdateSubscription(ctx context.Context, id string, p billing.UpdateSubscriptionParams) (billing.Subscription, error) {
	args := m.Called(ctx, id, p)
	return args.Get(0).(billing.Subscription), args.Error(1)
}

func (m *processorMock) CancelSubscription(ctx context.Context, id string) (billing.Subscription, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(billing.Subscription), args.Error(1)
}

func (m *processorMock) CreatePaymentIntent(ctx context.Context, p billing.PaymentIntentParams) (billing.PaymentIntent, error) {
	args := m.Called(ctx, p)
	return args.Get(0).(billing.PaymentIntent), args.Error(1)
}

func (m *processorMock) CreateCheckoutSession(ctx context.Context, p billing.CheckoutSessionParams) (billing.CheckoutSession, error) {
	args := m.Called(ctx, p)
	return args.Get(0).(billing.CheckoutSession), args.Error(1)
}

func (m *processorMock) RetrieveCheckoutSession(ctx context.Context, id string) (billing.CheckoutSession, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(billing.CheckoutSession), args.Error(1)
}
