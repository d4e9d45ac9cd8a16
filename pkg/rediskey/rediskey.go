package rediskey

import "fmt"

const HeartbeatRatePrefix = "license-heartbeat"

func NamespaceKey(namespace, key string) string {
	return fmt.Sprintf("%s:%s", namespace, key)
}

// BuildHeartbeatRateKey returns "license-heartbeat:{ip}"
func BuildHeartbeatRateKey(ip string) string {
	return NamespaceKey(HeartbeatRatePrefix, ip)
}
