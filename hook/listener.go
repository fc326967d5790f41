package hook

import "context"

// listener adapts a plain function to a named hook so UI code can
// subscribe to a channel with a closure.
type listener struct {
	name string
	init func(ctx context.Context, result interface{}) error
	buy  func(ctx context.Context, result interface{}) error
}

func (l *listener) Name() string { return l.name }

// InitListener wraps fn as a hook on the initialization-result channel.
// result is *purchase.InitResult.
func InitListener(name string, fn func(ctx context.Context, result interface{}) error) OnInitResult {
	return &initListener{listener{name: name, init: fn}}
}

// PurchaseListener wraps fn as a hook on the purchase-result channel.
// result is *purchase.Result.
func PurchaseListener(name string, fn func(ctx context.Context, result interface{}) error) OnPurchaseResult {
	return &purchaseListener{listener{name: name, buy: fn}}
}

type initListener struct{ listener }

func (l *initListener) OnInitResult(ctx context.Context, result interface{}) error {
	return l.init(ctx, result)
}

type purchaseListener struct{ listener }

func (l *purchaseListener) OnPurchaseResult(ctx context.Context, result interface{}) error {
	return l.buy(ctx, result)
}
