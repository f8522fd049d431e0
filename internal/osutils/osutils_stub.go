//go:build !windows

package osutils

import (
	"go.uber.org/zap"
)

// IsAdmin is a stub for non-Windows platforms
func IsAdmin() bool {
	return false
}

// EnsureFirewallRule is a stub for non-Windows platforms
func EnsureFirewallRule(port int, logger *zap.Logger) error {
	logger.Info("Automatic firewall rule management is only supported on Windows",
		zap.String("component", "firewall"), zap.Int("port", port))
	return nil
}
