package scoreboard

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewClientID returns "<prefix>-<unix ms>-<9 random chars>". Mint a new one
// per attempt to rank each attempt as its own row on BestPerAttempt boards.
func NewClientID(prefix string) string {
	if prefix == "" {
		prefix = "p"
	}
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
	return prefix + "-" + strconv.FormatInt(time.Now().UnixMilli(), 10) + "-" + suffix
}
