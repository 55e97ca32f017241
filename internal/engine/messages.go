package engine

import "fmt"

const (
	presenceGrantFormat = "✅ **%s** set their status/activity/profile to contain `%s` and received the **%s** role!"
	profileGrantFormat  = "✅ **%s** updated their profile to contain `%s` and received the **%s** role!"
	revokeFormat        = "❌ **%s** removed `%s` from their profile and lost the **%s** role!"
)

func grantMessage(h Handler, memberName, pattern, roleName string) string {
	if h == HandlerProfile {
		return fmt.Sprintf(profileGrantFormat, memberName, pattern, roleName)
	}
	return fmt.Sprintf(presenceGrantFormat, memberName, pattern, roleName)
}

func revokeMessage(memberName, pattern, roleName string) string {
	return fmt.Sprintf(revokeFormat, memberName, pattern, roleName)
}
