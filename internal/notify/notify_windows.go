//go:build windows

package notify

import (
	"os/exec"
	"strings"
)

func sendOSNotification(app, title, body string) {
	// Escape single quotes for PowerShell string literals.
	esc := func(s string) string { return strings.ReplaceAll(s, "'", "''") }

	// Windows Forms balloon tip: no WinRT or extra modules needed.
	script := `Add-Type -AssemblyName System.Windows.Forms;` +
		`$n = New-Object System.Windows.Forms.NotifyIcon;` +
		`$n.Icon = [System.Drawing.SystemIcons]::Information;` +
		`$n.Text = '` + esc(app) + `';` +
		`$n.BalloonTipTitle = '` + esc(title) + `';` +
		`$n.BalloonTipText = '` + esc(body) + `';` +
		`$n.Visible = $true;` +
		`$n.ShowBalloonTip(5000);` +
		`Start-Sleep -Milliseconds 5100;` +
		`$n.Dispose()`
	_ = exec.Command("powershell", "-NoProfile", "-NonInteractive", "-Command", script).Start()
}
