//go:build !linux && !darwin && !windows

package notify

func sendOSNotification(app, title, body string) {}
