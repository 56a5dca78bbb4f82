package config

import (
	"github.com/deepgram/catgpt/pkg/logger"
)

func GetRedisURL() string {
	logger.Debug(logger.CONFIG, "Attempting to retrieve Redis URL from environment")
	value := firstNonEmpty(GetEnvOrDefault("REDIS_URL", ""), file().RedisURL)
	if value == "" {
		logger.Debug(logger.CONFIG, "Redis URL not set - sessions stay in memory")
	} else {
		logger.Info(logger.CONFIG, "Redis URL successfully loaded")
	}
	return value
}

func GetRedisPassword() string {
	return firstNonEmpty(GetEnvOrDefault("REDIS_PASSWORD", ""), file().RedisPassword)
}
