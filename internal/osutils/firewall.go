// Package osutils holds OS integration that is not input injection.
package osutils

import (
	"fmt"
	"strconv"
	"strings"
)

// RuleName is the display name of the inbound firewall rule.
const RuleName = "LAN Remote Control"

// firewallScript replaces any existing rule with one allowing inbound TCP
// on port. The rule is not tied to a program path so rebuilt binaries keep
// working.
func firewallScript(port int) string {
	return fmt.Sprintf(
		"Remove-NetFirewallRule -DisplayName '%s' -ErrorAction SilentlyContinue; "+
			"New-NetFirewallRule -DisplayName '%s' -Direction Inbound -LocalPort %d -Protocol TCP -Action Allow -Profile Any",
		RuleName, RuleName, port,
	)
}

// ruleMatches reports whether `netsh advfirewall firewall show rule` output
// describes an allow rule for port.
func ruleMatches(output string, port int) bool {
	var named, portOK, allow bool
	want := strconv.Itoa(port)

	for _, line := range strings.Split(output, "\n") {
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		switch key {
		case "Rule Name":
			named = value == RuleName
		case "LocalPort":
			portOK = value == want
		case "Action":
			allow = value == "Allow"
		}
	}
	return named && portOK && allow
}
