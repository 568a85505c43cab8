package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

// JWTTestSuite JWT工具测试套件
type JWTTestSuite struct {
	suite.Suite
	manager *JWTManager
}

func (suite *JWTTestSuite) SetupTest() {
	suite.manager = NewJWTManager(
		"test-secret-key",
		"bingo-test",
		1*time.Hour,    // access token expiry
		7*24*time.Hour, // refresh token expiry
	)
}

func (suite *JWTTestSuite) TestGetTokenExpiry() {
	manager := NewJWTManager("secret", "bingo", 1*time.Hour, 24*time.Hour)
	suite.Equal(1*time.Hour, manager.GetTokenExpiry(TokenTypeAccess))
	suite.Equal(24*time.Hour, manager.GetTokenExpiry(TokenTypeRefresh))
}

// 测试生成并验证访问令牌
func (suite *JWTTestSuite) TestAccessTokenRoundTrip() {
	token, err := suite.manager.GenerateAccessToken("alice", RoleAdmin)
	suite.Require().NoError(err)
	suite.NotEmpty(token)

	claims, err := suite.manager.ValidateToken(token)
	suite.Require().NoError(err)
	suite.Equal("alice", claims.PlayerID())
	suite.Equal(RoleAdmin, claims.Role)
	suite.Equal(TokenTypeAccess, claims.TokenType)
	suite.Equal("bingo-test", claims.Issuer)
}

// 测试验证无效令牌
func (suite *JWTTestSuite) TestValidateInvalidToken() {
	invalidTokens := []string{
		"",
		"invalid",
		"invalid.token.format",
		"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9.invalid.signature",
	}

	for _, token := range invalidTokens {
		claims, err := suite.manager.ValidateToken(token)
		suite.Error(err, token)
		suite.Nil(claims)
	}
}

// 测试不同密钥签发的令牌
func (suite *JWTTestSuite) TestValidateTokenWithWrongSecret() {
	other := NewJWTManager("other-secret", "bingo-test", time.Hour, time.Hour)
	token, err := other.GenerateAccessToken("alice", RolePlayer)
	suite.Require().NoError(err)

	_, err = suite.manager.ValidateToken(token)
	suite.Error(err)
}

// 测试签发者不匹配
func (suite *JWTTestSuite) TestValidateTokenWithWrongIssuer() {
	other := NewJWTManager("test-secret-key", "someone-else", time.Hour, time.Hour)
	token, err := other.GenerateAccessToken("alice", RolePlayer)
	suite.Require().NoError(err)

	_, err = suite.manager.ValidateToken(token)
	suite.Error(err)
}

// 测试过期令牌
func (suite *JWTTestSuite) TestExpiredToken() {
	manager := NewJWTManager("test-secret-key", "bingo-test", -time.Minute, time.Hour)
	token, err := manager.GenerateAccessToken("alice", RolePlayer)
	suite.Require().NoError(err)

	_, err = manager.ValidateToken(token)
	suite.ErrorIs(err, ErrExpiredToken)
}

// 测试刷新令牌
func (suite *JWTTestSuite) TestRefreshAccessToken() {
	refresh, err := suite.manager.GenerateRefreshToken("bob")
	suite.Require().NoError(err)

	access, err := suite.manager.RefreshAccessToken(refresh, RolePlayer)
	suite.Require().NoError(err)

	claims, err := suite.manager.ValidateToken(access)
	suite.Require().NoError(err)
	suite.Equal("bob", claims.PlayerID())
	suite.Equal(TokenTypeAccess, claims.TokenType)

	// 访问令牌不能用于刷新
	_, err = suite.manager.RefreshAccessToken(access, RolePlayer)
	suite.ErrorIs(err, ErrNotRefreshToken)
}

func TestJWTTestSuite(t *testing.T) {
	suite.Run(t, new(JWTTestSuite))
}
