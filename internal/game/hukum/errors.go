package hukum

import (
	"errors"
	"fmt"
)

// GameError 游戏错误类型
// 拒绝原因以 Code 区分，errors.Is 按 Code 匹配，携带上下文的副本同样可以匹配
type GameError struct {
	Code    string         // 错误代码
	Message string         // 错误消息
	Cause   error          // 原因错误
	Context map[string]any // 错误上下文
}

func (e *GameError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *GameError) Unwrap() error {
	return e.Cause
}

// Is 按错误代码匹配
func (e *GameError) Is(target error) bool {
	var other *GameError
	if !errors.As(target, &other) {
		return false
	}
	return e.Code == other.Code
}

// NewGameError 创建游戏错误
func NewGameError(code, message string) *GameError {
	return &GameError{
		Code:    code,
		Message: message,
	}
}

// WithCause 返回带原因错误的副本
func (e *GameError) WithCause(cause error) *GameError {
	cp := e.clone()
	cp.Cause = cause
	return cp
}

// WithContext 返回带上下文信息的副本，不修改预定义错误
func (e *GameError) WithContext(key string, value any) *GameError {
	cp := e.clone()
	cp.Context[key] = value
	return cp
}

func (e *GameError) clone() *GameError {
	cp := &GameError{
		Code:    e.Code,
		Message: e.Message,
		Cause:   e.Cause,
		Context: make(map[string]any, len(e.Context)+1),
	}
	for k, v := range e.Context {
		cp.Context[k] = v
	}
	return cp
}

// AsGameError 提取 GameError，非游戏错误返回 nil
func AsGameError(err error) *GameError {
	var gameErr *GameError
	if errors.As(err, &gameErr) {
		return gameErr
	}
	return nil
}

// 牌局相关错误
var (
	ErrInvalidDeckSize = NewGameError("INVALID_DECK_SIZE", "牌堆必须是 32 张互不相同的牌，需要重新发牌")
	ErrIncompleteTrick = NewGameError("INCOMPLETE_TRICK", "一墩牌不足 4 张，无法结算")
)

// 座位相关错误
var (
	ErrInvalidSeat   = NewGameError("INVALID_SEAT", "无效的座位")
	ErrSeatTaken     = NewGameError("SEAT_TAKEN", "座位已被占用")
	ErrAlreadySeated = NewGameError("ALREADY_SEATED", "玩家已在其他座位")
	ErrNotSeated     = NewGameError("NOT_SEATED", "玩家不在座位上")
)

// 规则相关错误
var (
	ErrInvalidPhase   = NewGameError("INVALID_PHASE", "当前游戏阶段不允许此操作")
	ErrNotYourTurn    = NewGameError("NOT_YOUR_TURN", "还没轮到你")
	ErrCardNotInHand  = NewGameError("CARD_NOT_IN_HAND", "手牌中没有指定的牌")
	ErrMustFollowSuit = NewGameError("MUST_FOLLOW_SUIT", "有首出花色的牌时必须跟出该花色")
	ErrInvalidSuit    = NewGameError("INVALID_SUIT", "无效的花色")
)

// 同步相关错误
var (
	ErrStaleEvent = NewGameError("STALE_EVENT", "事件序号不大于已应用序号")
)
