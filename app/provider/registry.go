package provider

import (
	"errors"

	"github.com/vibast-solutions/ms-go-checkout/app/types"
)

var ErrMethodNotSupported = errors.New("payment method is not supported")

// Registry routes each payment method to the gateway that serves it. Later gateways win.
type Registry struct {
	gateways map[types.PaymentMethod]Gateway
}

func NewRegistry(gateways ...Gateway) *Registry {
	items := make(map[types.PaymentMethod]Gateway)
	for _, g := range gateways {
		for _, method := range g.Methods() {
			items[method] = g
		}
	}
	return &Registry{gateways: items}
}

func (r *Registry) Get(method types.PaymentMethod) (Gateway, error) {
	gateway, ok := r.gateways[method]
	if !ok {
		return nil, ErrMethodNotSupported
	}
	return gateway, nil
}

// Any returns a registered gateway, used for callbacks that are not yet tied to a method.
func (r *Registry) Any() (Gateway, error) {
	for _, method := range []types.PaymentMethod{
		types.PaymentMethodQRIS,
		types.PaymentMethodVirtualAccount,
		types.PaymentMethodEWallet,
		types.PaymentMethodRetailOutlet,
		types.PaymentMethodPayLater,
		types.PaymentMethodCard,
	} {
		if g, ok := r.gateways[method]; ok {
			return g, nil
		}
	}
	return nil, ErrMethodNotSupported
}
