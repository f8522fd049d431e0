//go:build windows

package osutils

import (
	"fmt"
	"os/exec"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sys/windows"
)

// IsAdmin checks if the current process has administrative privileges
func IsAdmin() bool {
	var token windows.Token
	h, _ := windows.GetCurrentProcess()
	err := windows.OpenProcessToken(h, windows.TOKEN_QUERY, &token)
	if err != nil {
		return false
	}
	defer token.Close()

	var sid *windows.SID
	err = windows.AllocateAndInitializeSid(
		&windows.SECURITY_NT_AUTHORITY,
		2,
		windows.SECURITY_BUILTIN_DOMAIN_RID,
		windows.DOMAIN_ALIAS_RID_ADMINS,
		0, 0, 0, 0, 0, 0,
		&sid,
	)
	if err != nil {
		return false
	}
	defer windows.FreeSid(sid)

	member, err := token.IsMember(sid)
	if err != nil {
		return false
	}
	return member
}

// EnsureFirewallRule makes sure inbound TCP on port is allowed. When the
// process is not elevated the rule is applied through a UAC prompt and the
// call returns without waiting for the user.
func EnsureFirewallRule(port int, logger *zap.Logger) error {
	logger = logger.With(zap.String("component", "firewall"), zap.String("rule", RuleName), zap.Int("port", port))

	output, err := exec.Command("netsh", "advfirewall", "firewall", "show", "rule", "name="+RuleName).CombinedOutput()
	if err == nil && ruleMatches(string(output), port) {
		logger.Info("Firewall rule already in place")
		return nil
	}
	logger.Info("Firewall rule missing or stale, creating")

	script := firewallScript(port)

	if !IsAdmin() {
		verbPtr, _ := syscall.UTF16PtrFromString("runas")
		exePtr, _ := syscall.UTF16PtrFromString("powershell.exe")
		argPtr, _ := syscall.UTF16PtrFromString(fmt.Sprintf("-NoProfile -WindowStyle Hidden -Command \"%s\"", script))

		if err := windows.ShellExecute(0, verbPtr, exePtr, argPtr, nil, windows.SW_HIDE); err != nil {
			return fmt.Errorf("failed to launch elevated powershell: %w", err)
		}
		logger.Warn("Requested UAC elevation to add the firewall rule; check the taskbar")
		return nil
	}

	if output, err := exec.Command("powershell", "-NoProfile", "-Command", script).CombinedOutput(); err != nil {
		return fmt.Errorf("failed to create firewall rule: %w (output: %s)", err, output)
	}
	logger.Info("Firewall rule created")
	return nil
}
