package domain

// GatewaySettings is the persisted SMS gateway configuration.
type GatewaySettings struct {
	Active            bool   `json:"sms_activation"`
	Provider          string `json:"sms_provider"`
	Pattern           string `json:"sms_pattern"`
	KavenegarAPIKey   string `json:"kavenegar_api_key"`
	KavenegarSender   string `json:"kavenegar_sender_number"`
	KavenegarInsecure bool   `json:"kavenegar_insecure"`
}

// DriverSettings returns the provider-specific keys a driver constructor reads.
func (g GatewaySettings) DriverSettings() map[string]string {
	insecure := ""
	if g.KavenegarInsecure {
		insecure = "1"
	}
	return map[string]string{
		"kavenegar_api_key":       g.KavenegarAPIKey,
		"kavenegar_sender_number": g.KavenegarSender,
		"kavenegar_insecure":      insecure,
	}
}

// GeneralSettings is the persisted login and registration configuration.
type GeneralSettings struct {
	AutoRegister     bool   `json:"auto_register"`
	DefaultRole      string `json:"default_role"`
	UsernamePrefix   string `json:"username_prefix"`
	LoginRedirectURL string `json:"login_redirect_url"`
	CheckoutRedirect bool   `json:"checkout_redirect"`
}

// Option names in the settings store.
const (
	OptionGatewaySettings = "verify_woo_sms_gateway"
	OptionGeneralSettings = "verify_woo_general"
)
