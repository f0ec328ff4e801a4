package wallet

// Default configuration values
const (
	DefaultCurrency = "USD"
)
