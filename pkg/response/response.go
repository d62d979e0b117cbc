package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"sudooom.hukum/internal/game/hukum"
)

// Response 统一响应结构
type Response struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

// 错误码常量
const (
	CodeSuccess = 0

	// 认证相关 10000-10999
	CodeTokenInvalid = 10003
	CodeTokenExpired = 10004

	// 参数相关 11000-11999
	CodeInvalidParams = 11001

	// 牌局相关 20000-20999
	CodeGameNotFound = 20001
	CodeGameBusy     = 20002
	CodeGameRejected = 20003 // 规则拒绝，具体原因见 message

	// 系统错误 50000-50999
	CodeServerError = 50000
	CodeDBError     = 50001
)

var codeMessages = map[int]string{
	CodeSuccess:       "success",
	CodeTokenInvalid:  "Token 无效",
	CodeTokenExpired:  "Token 已过期",
	CodeInvalidParams: "参数校验失败",
	CodeGameNotFound:  "牌局不存在",
	CodeGameBusy:      "牌局正忙，请稍后重试",
	CodeGameRejected:  "操作被拒绝",
	CodeServerError:   "服务器内部错误",
	CodeDBError:       "数据库错误",
}

// gameCodes 牌局错误代码到响应码的映射，未列出的按 CodeGameRejected 处理
var gameCodes = map[string]int{
	"GAME_NOT_FOUND": CodeGameNotFound,
	"GAME_BUSY":      CodeGameBusy,
	"BAD_REQUEST":    CodeInvalidParams,
	"UNAUTHORIZED":   CodeTokenInvalid,
}

// Success 成功响应
func Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, Response{
		Code:    CodeSuccess,
		Message: "success",
		Data:    data,
	})
}

// Error 错误响应
func Error(c *gin.Context, code int) {
	message := codeMessages[code]
	if message == "" {
		message = "unknown error"
	}
	c.JSON(http.StatusOK, Response{
		Code:    code,
		Message: message,
		Data:    nil,
	})
}

// ErrorWithMsg 自定义错误消息
func ErrorWithMsg(c *gin.Context, code int, message string) {
	c.JSON(http.StatusOK, Response{
		Code:    code,
		Message: message,
		Data:    nil,
	})
}

// ErrorFromGameError 由牌局错误生成响应，非牌局错误按服务器错误处理
func ErrorFromGameError(c *gin.Context, err error) {
	gameErr := hukum.AsGameError(err)
	if gameErr == nil {
		Error(c, CodeServerError)
		return
	}

	code, ok := gameCodes[gameErr.Code]
	if !ok {
		code = CodeGameRejected
	}
	c.JSON(http.StatusOK, Response{
		Code:    code,
		Message: gameErr.Message,
		Data:    gin.H{"reason": gameErr.Code, "context": gameErr.Context},
	})
}

// Unauthorized 未认证
func Unauthorized(c *gin.Context) {
	c.JSON(http.StatusUnauthorized, Response{
		Code:    CodeTokenInvalid,
		Message: codeMessages[CodeTokenInvalid],
		Data:    nil,
	})
}
