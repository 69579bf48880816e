package security

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	req := require.New(t)
	Setup("test-secret", "KoraQuest", 1)

	token, err := GenerateToken(42, "amina", []string{"vendor"})
	req.NoError(err)

	claims, err := ValidateToken(token)
	req.NoError(err)
	req.Equal(uint64(42), claims.UserID)
	req.Equal("amina", claims.Username)
	req.Equal([]string{"vendor"}, claims.Roles)

	sig, err := ExtractSignature(token)
	req.NoError(err)
	req.NotEmpty(sig)
}

func TestValidateTokenRejects(t *testing.T) {
	req := require.New(t)
	Setup("test-secret", "KoraQuest", 1)

	_, err := ValidateToken("not-a-token")
	req.Error(err)

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, &UserClaims{
		UserID: 1,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
			Issuer:    "KoraQuest",
		},
	})
	s, err := expired.SignedString([]byte("test-secret"))
	req.NoError(err)
	_, err = ValidateToken(s)
	req.Error(err)

	foreign := jwt.NewWithClaims(jwt.SigningMethodHS256, &UserClaims{UserID: 1, RegisteredClaims: jwt.RegisteredClaims{Issuer: "KoraQuest"}})
	s, err = foreign.SignedString([]byte("other-secret"))
	req.NoError(err)
	_, err = ValidateToken(s)
	req.Error(err)

	_, err = ExtractSignature("a.b")
	req.Error(err)
}
