package payments

import (
	"fmt"
	"net/url"
	"os"
	"strings"
)

// UPIConfig identifies the merchant collecting the payment.
type UPIConfig struct {
	VPA          string
	MerchantName string
	Note         string
}

// UPIConfigFromEnv reads the merchant identity, falling back to the defaults
// the mobile clients were shipped with.
func UPIConfigFromEnv() UPIConfig {
	vpa := os.Getenv("UPI_ID")
	if vpa == "" {
		vpa = "praxisai@paytm"
	}
	name := os.Getenv("MERCHANT_NAME")
	if name == "" {
		name = "PraxisAI"
	}
	return UPIConfig{VPA: vpa, MerchantName: name, Note: "JEE Prep Subscription"}
}

// BuildUPILink renders the upi://pay deep link for the amount. The same string
// doubles as the QR payload; clients render the image themselves.
func BuildUPILink(cfg UPIConfig, amount float64, currency string) string {
	q := url.Values{}
	q.Set("pa", cfg.VPA)
	q.Set("pn", cfg.MerchantName)
	q.Set("am", trimAmount(amount))
	q.Set("cu", currency)
	q.Set("tn", cfg.Note)
	return "upi://pay?" + q.Encode()
}

func trimAmount(amount float64) string {
	s := fmt.Sprintf("%.2f", amount)
	s = strings.TrimRight(s, "0")
	return strings.TrimRight(s, ".")
}
