package protocol

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
)

// NATS Subject 常量定义
const (
	// SubjectRequest 客户端 -> 服务端 请求（request/reply）
	SubjectRequest = "hukum.game.request"

	// SubjectGamePrefix 牌局频道前缀
	// 公共频道: hukum.game.{gameId}.events
	// 座位私有频道: hukum.game.{gameId}.seat.{n}.{key}
	SubjectGamePrefix = "hukum.game."

	// QueueGroupLogic 服务端队列组名称
	QueueGroupLogic = "hukum-logic"
)

// BuildEventsSubject 构建牌局公共频道 Subject
func BuildEventsSubject(gameID string) string {
	return SubjectGamePrefix + gameID + ".events"
}

// BuildSeatSubject 构建座位私有频道 Subject
// key 只在入座与快照应答中下发给座位上的玩家
func BuildSeatSubject(gameID string, seat int, key string) string {
	return fmt.Sprintf("%s%s.seat.%d.%s", SubjectGamePrefix, gameID, seat, key)
}

// SeatKey 座位频道密钥，同一玩家重连得到相同的值
func SeatKey(secret []byte, gameID string, seat int, userID int64) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(gameID))
	mac.Write([]byte{'/'})
	mac.Write(strconv.AppendInt(nil, int64(seat), 10))
	mac.Write([]byte{'/'})
	mac.Write(strconv.AppendInt(nil, userID, 10))
	return hex.EncodeToString(mac.Sum(nil)[:16])
}
