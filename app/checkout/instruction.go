package checkout

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/vibast-solutions/ms-go-checkout/app/types"
)

// Instruction is what the customer needs to complete a payment. The concrete variants are
// QRInstruction, BankTransferInstruction, EWalletInstruction, RetailOutletInstruction,
// PayLaterInstruction, CardInstruction and FallbackInstruction.
type Instruction interface {
	Method() types.PaymentMethod
	isInstruction()
}

type QRInstruction struct {
	Amount    string
	QRCodeURL string
	QRString  string
	Steps     []string
	// Degraded is set when neither an image nor a QR payload is available.
	Degraded bool
}

type BankTransferInstruction struct {
	Amount        string
	BankCode      string
	AccountNumber string
	Steps         []string
	Degraded      bool
}

type EWalletInstruction struct {
	Amount      string
	Channel     string
	CheckoutURL string
	ButtonLabel string
	Degraded    bool
}

type RetailOutletInstruction struct {
	Amount      string
	Outlet      string
	PaymentCode string
	Steps       []string
	Degraded    bool
}

type PayLaterInstruction struct {
	Amount      string
	Provider    string
	CheckoutURL string
	ButtonLabel string
	Degraded    bool
}

// CardInstruction means the card form is shown; see CardFlow.
type CardInstruction struct {
	Amount string
}

type FallbackInstruction struct {
	Amount  string
	Message string
	method  types.PaymentMethod
}

func (QRInstruction) Method() types.PaymentMethod           { return types.PaymentMethodQRIS }
func (BankTransferInstruction) Method() types.PaymentMethod { return types.PaymentMethodVirtualAccount }
func (EWalletInstruction) Method() types.PaymentMethod      { return types.PaymentMethodEWallet }
func (RetailOutletInstruction) Method() types.PaymentMethod { return types.PaymentMethodRetailOutlet }
func (PayLaterInstruction) Method() types.PaymentMethod     { return types.PaymentMethodPayLater }
func (CardInstruction) Method() types.PaymentMethod         { return types.PaymentMethodCard }
func (f FallbackInstruction) Method() types.PaymentMethod   { return f.method }

func (QRInstruction) isInstruction()           {}
func (BankTransferInstruction) isInstruction() {}
func (EWalletInstruction) isInstruction()      {}
func (RetailOutletInstruction) isInstruction() {}
func (PayLaterInstruction) isInstruction()     {}
func (CardInstruction) isInstruction()         {}
func (FallbackInstruction) isInstruction()     {}

const fallbackMessage = "Follow the payment instructions sent to your email to complete this order."

// RenderInstruction picks the instruction variant for the order's latest transaction. It never fails:
// missing inputs degrade the variant and unknown methods fall back to generic guidance.
func RenderInstruction(order *types.Order) Instruction {
	if order == nil {
		return FallbackInstruction{Message: fallbackMessage}
	}
	amount := FormatAmount(order.Amount, order.Currency)

	tx := order.LatestTransaction
	method := order.PaymentMethod
	channel := order.PaymentChannel
	if tx != nil {
		if tx.Method != "" {
			method = tx.Method
		}
		if tx.Channel != "" {
			channel = tx.Channel
		}
	} else {
		tx = &types.PaymentTransaction{}
	}
	channel = strings.ToUpper(strings.TrimSpace(channel))

	switch method {
	case types.PaymentMethodQRIS:
		return QRInstruction{
			Amount:    amount,
			QRCodeURL: tx.QrCodeUrl,
			QRString:  tx.QrString,
			Steps:     qrSteps(amount),
			Degraded:  tx.QrCodeUrl == "" && tx.QrString == "",
		}
	case types.PaymentMethodVirtualAccount:
		return BankTransferInstruction{
			Amount:        amount,
			BankCode:      channel,
			AccountNumber: tx.VirtualAccountNumber,
			Steps:         bankSteps(channel, tx.VirtualAccountNumber, amount),
			Degraded:      channel == "" || tx.VirtualAccountNumber == "",
		}
	case types.PaymentMethodEWallet:
		return EWalletInstruction{
			Amount:      amount,
			Channel:     channel,
			CheckoutURL: tx.CheckoutUrl,
			ButtonLabel: redirectLabel(channel, "e-wallet"),
			Degraded:    tx.CheckoutUrl == "",
		}
	case types.PaymentMethodRetailOutlet:
		return RetailOutletInstruction{
			Amount:      amount,
			Outlet:      channel,
			PaymentCode: tx.PaymentCode,
			Steps:       retailSteps(channel, tx.PaymentCode, amount),
			Degraded:    tx.PaymentCode == "",
		}
	case types.PaymentMethodPayLater:
		return PayLaterInstruction{
			Amount:      amount,
			Provider:    channel,
			CheckoutURL: firstNonEmpty(tx.CheckoutUrl, tx.InvoiceUrl),
			ButtonLabel: redirectLabel(channel, "pay later provider"),
			Degraded:    tx.CheckoutUrl == "" && tx.InvoiceUrl == "",
		}
	case types.PaymentMethodCard:
		return CardInstruction{Amount: amount}
	default:
		return FallbackInstruction{Amount: amount, Message: fallbackMessage, method: method}
	}
}

func qrSteps(amount string) []string {
	return []string{
		"Open any mobile banking or e-wallet app that supports QRIS.",
		"Scan the QR code shown on this page.",
		fmt.Sprintf("Make sure the amount is %s and confirm the payment.", amount),
		"Press \"Confirm Payment\" once your app shows the payment as successful.",
	}
}

func bankSteps(bank, account, amount string) []string {
	if account == "" {
		return []string{
			"Your virtual account number is being prepared.",
			"Refresh this page in a moment or check your email for the transfer details.",
		}
	}

	final := fmt.Sprintf("Check that the amount is %s and confirm the transfer.", amount)
	switch bank {
	case "BCA":
		return []string{
			"Open BCA mobile and sign in to m-BCA.",
			"Choose m-Transfer, then BCA Virtual Account.",
			fmt.Sprintf("Enter virtual account number %s.", account),
			final,
		}
	case "BNI":
		return []string{
			"Open BNI Mobile Banking and sign in.",
			"Choose Transfer, then Virtual Account Billing.",
			fmt.Sprintf("Enter virtual account number %s.", account),
			final,
		}
	case "BRI":
		return []string{
			"Open BRImo and sign in.",
			"Choose Payment, then BRIVA.",
			fmt.Sprintf("Enter BRIVA number %s.", account),
			final,
		}
	case "MANDIRI":
		return []string{
			"Open Livin' by Mandiri and sign in.",
			"Choose Payment, then Multipayment.",
			fmt.Sprintf("Select the merchant and enter payment code %s.", account),
			final,
		}
	case "PERMATA":
		return []string{
			"Open PermataMobile X and sign in.",
			"Choose Pay Bills, then Virtual Account.",
			fmt.Sprintf("Enter virtual account number %s.", account),
			final,
		}
	default:
		return []string{
			"Open your bank's mobile app, internet banking or visit an ATM.",
			"Choose transfer to virtual account.",
			fmt.Sprintf("Enter virtual account number %s.", account),
			final,
		}
	}
}

func retailSteps(outlet, code, amount string) []string {
	if code == "" {
		return []string{"Your payment code is being prepared. Check your email for the code."}
	}
	store := "the retail outlet"
	if outlet != "" {
		store = outlet
	}
	return []string{
		fmt.Sprintf("Visit the nearest %s.", store),
		fmt.Sprintf("Tell the cashier you want to make a payment and show code %s.", code),
		fmt.Sprintf("Pay %s and keep the receipt as proof of payment.", amount),
	}
}

func redirectLabel(channel, fallback string) string {
	if channel == "" {
		return "Continue to " + fallback
	}
	return "Continue to " + channel
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

var zeroDecimalCurrencies = map[string]bool{"IDR": true, "JPY": true, "KRW": true, "VND": true}

// FormatAmount renders a minor-unit amount for display, e.g. 150000 IDR as "Rp 150.000".
func FormatAmount(amount int64, currency string) string {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		currency = "IDR"
	}

	if currency == "IDR" {
		return "Rp " + groupThousands(decimal.NewFromInt(amount).StringFixed(0), ".", ",")
	}
	if zeroDecimalCurrencies[currency] {
		return currency + " " + groupThousands(decimal.NewFromInt(amount).StringFixed(0), ",", ".")
	}
	return currency + " " + groupThousands(decimal.New(amount, -2).StringFixed(2), ",", ".")
}

func groupThousands(fixed, thousands, point string) string {
	negative := strings.HasPrefix(fixed, "-")
	fixed = strings.TrimPrefix(fixed, "-")

	whole, fraction, hasFraction := strings.Cut(fixed, ".")
	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteString(thousands)
		}
		b.WriteRune(r)
	}

	out := b.String()
	if hasFraction {
		out += point + fraction
	}
	if negative {
		out = "-" + out
	}
	return out
}
