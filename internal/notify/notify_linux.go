//go:build linux

package notify

import "os/exec"

func sendOSNotification(app, title, body string) {
	_ = exec.Command("notify-send", "-a", app, title, body).Start()
}
