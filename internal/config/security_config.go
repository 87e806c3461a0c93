package config

import "time"

type SecurityConfig interface {
	GetMaxLoginAttempts() int
	GetLockoutWindow() time.Duration
}

type Security struct{}

var _ SecurityConfig = Security{}

func (Security) GetMaxLoginAttempts() int {
	return GetIntEnv("MAX_LOGIN_ATTEMPTS", 5)
}

func (Security) GetLockoutWindow() time.Duration {
	return GetDurationEnv("LOCKOUT_WINDOW", 15*time.Minute)
}
