package common

import "fmt"

var (
	// Drafting keys
	draftLock string = "onleads:draft:lock:%s:%s" // leadPageId, emailType
)

var Keys = &redisKeys{}

type redisKeys struct{}

// Drafting keys
func (rk *redisKeys) DraftLock(leadID, emailType string) string {
	return fmt.Sprintf(draftLock, leadID, emailType)
}
