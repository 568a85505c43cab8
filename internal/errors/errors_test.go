package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/suite"
)

// ErrorsTestSuite 错误包测试套件
type ErrorsTestSuite struct {
	suite.Suite
}

// 测试创建新错误
func (suite *ErrorsTestSuite) TestNew() {
	err := New(ErrInvalidParam)
	suite.NotNil(err)
	suite.Equal(ErrInvalidParam, err.Code)
	suite.Equal("无效的参数", err.Message)
	suite.Empty(err.Details)

	err = New(ErrSessionNotFound, "session-1")
	suite.Equal("游戏会话不存在", err.Message)
	suite.Equal("session-1", err.Details)

	// 多个详情
	err = New(ErrCardTaken, "卡号: 7", "玩家: p2")
	suite.Equal("卡号: 7; 玩家: p2", err.Details)
}

func (suite *ErrorsTestSuite) TestNewf() {
	err := Newf(ErrInvalidParam, "容量 %d 超出范围", 51)
	suite.Equal("容量 51 超出范围", err.Details)
}

// 测试错误包装
func (suite *ErrorsTestSuite) TestWrap() {
	originalErr := errors.New("原始错误")
	wrappedErr := Wrap(originalErr, ErrDatabaseQuery)
	suite.Equal(ErrDatabaseQuery, wrappedErr.Code)
	suite.Equal("原始错误", wrappedErr.Details)
	suite.Equal(originalErr, wrappedErr.Cause)

	suite.Nil(Wrap(nil, ErrUnknown))

	// 已有AppError保留原始错误码
	appErr := New(ErrWordTaken, "CARE")
	wrappedAppErr := Wrap(appErr, ErrInvalidParam, "额外信息")
	suite.Equal(ErrWordTaken, wrappedAppErr.Code)
	suite.Contains(wrappedAppErr.Details, "额外信息")
}

func (suite *ErrorsTestSuite) TestIsThroughFmtWrap() {
	err := fmt.Errorf("保存失败: %w", New(ErrVersionConflict))
	suite.True(Is(err, ErrVersionConflict))
	suite.Equal(KindConflict, KindOf(err))
	suite.False(Is(nil, ErrVersionConflict))
	suite.False(Is(errors.New("标准错误"), ErrUnknown))
}

func (suite *ErrorsTestSuite) TestGetCode() {
	suite.Equal(ErrTokenExpired, GetCode(New(ErrTokenExpired)))
	suite.Equal(ErrUnknown, GetCode(errors.New("标准错误")))
	suite.Equal(ErrorCode(0), GetCode(nil))
}

func (suite *ErrorsTestSuite) TestError() {
	err := &AppError{Code: ErrNotFound, Message: "资源未找到"}
	suite.Equal("[1002] 资源未找到", err.Error())

	err.Details = "会话ID: s1"
	suite.Equal("[1002] 资源未找到: 会话ID: s1", err.Error())
}

func (suite *ErrorsTestSuite) TestWithCause() {
	cause := errors.New("SQL语法错误")
	err := New(ErrDatabaseQuery).WithCause(cause)
	suite.Equal(cause, err.Unwrap())
	suite.Equal("SQL语法错误", err.Details)

	err2 := New(ErrDatabaseQuery, "查询失败").WithCause(cause)
	suite.Equal("查询失败", err2.Details)
}

// 测试错误分类
func (suite *ErrorsTestSuite) TestKindOf() {
	testCases := map[ErrorCode]Kind{
		ErrInvalidParam:    KindValidation,
		ErrNumberNotFound:  KindValidation,
		ErrNumberNotDrawn:  KindValidation,
		ErrGameStateError:  KindInvalidState,
		ErrSessionNotFound: KindNotFound,
		ErrPlayerNotJoined: KindNotFound,
		ErrGameFull:        KindConflict,
		ErrAlreadyJoined:   KindConflict,
		ErrCardTaken:       KindConflict,
		ErrWordTaken:       KindConflict,
		ErrPoolExhausted:   KindExhausted,
		ErrTokenInvalid:    KindUnauthorized,
		ErrAuthorization:   KindForbidden,
		ErrDatabaseQuery:   KindInternal,
	}

	for code, kind := range testCases {
		suite.Equal(kind, KindOf(New(code)), "错误码 %d", code)
	}
	suite.Equal(Kind(""), KindOf(nil))
	suite.Equal(KindInternal, KindOf(errors.New("标准错误")))
}

// 测试HTTP状态码映射
func (suite *ErrorsTestSuite) TestHTTPStatus() {
	testCases := []struct {
		code     ErrorCode
		expected int
	}{
		{ErrInvalidParam, 400},
		{ErrNumberNotFound, 400},
		{ErrSessionNotFound, 404},
		{ErrGameStateError, 409},
		{ErrCardTaken, 409},
		{ErrPoolExhausted, 410},
		{ErrAuthentication, 401},
		{ErrPermissionDenied, 403},
		{ErrTimeout, 408},
		{ErrDatabaseConnect, 503},
		{ErrUnknown, 500},
	}

	for _, tc := range testCases {
		err := New(tc.code)
		suite.Equal(tc.expected, err.HTTPStatus(), "错误码 %d 应该返回HTTP状态码 %d", tc.code, tc.expected)
	}
}

func (suite *ErrorsTestSuite) TestIsRetryable() {
	suite.True(IsRetryable(New(ErrTimeout)))
	suite.True(IsRetryable(New(ErrDatabaseConnect)))
	suite.False(IsRetryable(New(ErrCardTaken)))
	suite.False(IsRetryable(New(ErrGameStateError)))
	suite.False(IsRetryable(nil))
}

func (suite *ErrorsTestSuite) TestIsCritical() {
	suite.True(IsCritical(New(ErrConfigLoad)))
	suite.True(IsCritical(New(ErrDataIntegrity)))
	suite.False(IsCritical(New(ErrPoolExhausted)))
	suite.False(IsCritical(nil))
}

func (suite *ErrorsTestSuite) TestWrapf() {
	cause := errors.New("json: unsupported value")
	err := Wrapf(cause, ErrDataIntegrity, "序列化会话 %s 失败", "s1")
	suite.Equal(ErrDataIntegrity, err.Code)
	suite.Equal("序列化会话 s1 失败", err.Details)
	suite.ErrorIs(err, cause)

	// 已有错误码时只追加说明
	inner := New(ErrVersionConflict, "版本 3")
	outer := Wrapf(inner, ErrUnknown, "保存 %s", "s1")
	suite.Equal(ErrVersionConflict, outer.Code)
	suite.Equal("保存 s1; 版本 3", outer.Details)
}

func (suite *ErrorsTestSuite) TestStackCapture() {
	err := New(ErrUnknown)
	suite.NotEmpty(err.Stack)
	suite.NotEmpty(err.GetStack())
}

func (suite *ErrorsTestSuite) TestErrorResponse() {
	err := New(ErrGameFull)
	response := NewErrorResponse(err, "req-123")

	suite.False(response.Success)
	suite.Equal(err, response.Error)
	suite.Equal(KindConflict, response.Kind)
	suite.Equal("req-123", response.RequestID)
	suite.Greater(response.Timestamp, int64(0))
}

func (suite *ErrorsTestSuite) TestUnknownErrorCode() {
	err := New(ErrorCode(99999))
	suite.Equal(ErrorCode(99999), err.Code)
	suite.Equal("未知错误", err.Message)
}

func (suite *ErrorsTestSuite) TestGameErrorMessages() {
	gameErrors := map[ErrorCode]string{
		ErrGameStateError:  "游戏状态错误",
		ErrGameFull:        "游戏人数已满",
		ErrAlreadyJoined:   "玩家已加入",
		ErrCardTaken:       "卡片已被选择",
		ErrWordTaken:       "单词已被占用",
		ErrNumberNotFound:  "卡片上没有该号码",
		ErrPoolExhausted:   "号码已全部开出",
		ErrVersionConflict: "数据版本冲突",
	}

	for code, expectedMsg := range gameErrors {
		suite.Equal(expectedMsg, New(code).Message)
	}
}

func TestErrorsSuite(t *testing.T) {
	suite.Run(t, new(ErrorsTestSuite))
}
