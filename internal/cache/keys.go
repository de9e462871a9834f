package cache

import "fmt"

func StatisticsKey() string {
	return "stats:snapshot"
}

func RateLimitKey(tokenPrefix string) string {
	return fmt.Sprintf("ratelimit:%s", tokenPrefix)
}
