package gateway

// GatewayConfig holds the settings of the operational HTTP surface
// (/metrics and /healthz). An empty Addr disables it.
type GatewayConfig struct {
	Addr string `yaml:"addr"`
}

func DefaultGatewayConfig() GatewayConfig {
	return GatewayConfig{}
}
