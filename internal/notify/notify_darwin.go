//go:build darwin

package notify

import (
	"os/exec"
	"strings"
)

func sendOSNotification(app, title, body string) {
	quote := func(s string) string {
		return `"` + strings.ReplaceAll(strings.ReplaceAll(s, `\`, `\\`), `"`, `\"`) + `"`
	}
	script := `display notification ` + quote(body) + ` with title ` + quote(title) + ` subtitle ` + quote(app)
	_ = exec.Command("osascript", "-e", script).Start()
}
