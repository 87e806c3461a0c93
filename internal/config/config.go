package config

type Config interface {
	EnvConfig
	TokenConfig
	SecurityConfig
	StoreConfig
}

type mainConfig struct {
	EnvVars
	Tokens
	Security
	Stores
}

func New() Config {
	return mainConfig{}
}
