package consts

const (
	EngagementDecayLock = "lock:engagement:decay"
	EngagementSweepLock = "lock:engagement:sweep"
)

// TokenRevokedPrefix 账号服务登出时按签名写入的吊销标记
const TokenRevokedPrefix = "auth:revoked:"

// ListingScoredPrefix 已按 SERVICE_POST 计分的服务 id
const ListingScoredPrefix = "engagement:listing:scored:"
