package common

import (
	"crypto/rand"
	"encoding/hex"
	"math/big"
	"strings"

	"github.com/bwmarrin/snowflake"
)

const (
	ENABLED  = "enabled"
	DISABLED = "disabled"
)

var snowflakeNode *snowflake.Node

func init() {
	max := big.NewInt(1023)
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		n = big.NewInt(1)
	}
	snowflakeNode, err = snowflake.NewNode(n.Int64())
	if err != nil {
		panic(err)
	}
}

// UUIDint64 returns a snowflake id usable as a database primary key.
func UUIDint64() int64 {
	return snowflakeNode.Generate().Int64()
}

// UUID returns a snowflake id in base36 string form.
func UUID() string {
	return strings.ToLower(snowflakeNode.Generate().Base36())
}

// RandomHex returns n random bytes hex encoded.
func RandomHex(n int) string {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return ""
	}
	return hex.EncodeToString(b)
}
